package sketch

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"slices"

	gojson "github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
)

const (
	signatureClass = "sourmash_signature"
	hashFunction   = "0.murmur64"
	formatVersion  = 0.4
)

// Signature is a named group of sketches computed from one dataset.
type Signature struct {
	Class        string     `json:"class"`
	Email        string     `json:"email"`
	HashFunction string     `json:"hash_function"`
	Filename     string     `json:"filename"`
	Name         string     `json:"name,omitempty"`
	License      string     `json:"license"`
	Sketches     []*MinHash `json:"signatures"`
	Version      float64    `json:"version"`
}

// NewSignature wraps sketches into a signature.
func NewSignature(name, filename string, sketches ...*MinHash) *Signature {
	return &Signature{
		Class:        signatureClass,
		HashFunction: hashFunction,
		Filename:     filename,
		Name:         name,
		License:      "CC0",
		Sketches:     sketches,
		Version:      formatVersion,
	}
}

// DisplayName returns the name, falling back to the filename.
func (s *Signature) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Filename
}

// Select keeps the sketches matching sel, downsampled to sel.Scaled.
// The result may hold no sketches.
func (s *Signature) Select(sel Selection) (*Signature, error) {
	out := *s
	out.Sketches = nil
	for _, mh := range s.Sketches {
		if !sel.Matches(mh) {
			continue
		}
		if sel.Scaled > mh.Scaled() {
			d, err := mh.Downsample(sel.Scaled)
			if err != nil {
				return nil, err
			}
			mh = d
		}
		out.Sketches = append(out.Sketches, mh)
	}
	return &out, nil
}

// MinHash returns the first sketch, or nil.
func (s *Signature) MinHash() *MinHash {
	if len(s.Sketches) == 0 {
		return nil
	}
	return s.Sketches[0]
}

// Load reads signatures from r. Input may be gzip compressed and may hold a
// single signature object or a list of them.
func Load(r io.Reader) ([]*Signature, error) {
	br := bufio.NewReader(r)
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("sketch: open gzip stream: %w", err)
		}
		defer zr.Close()
		br = bufio.NewReader(zr)
	}

	data, err := io.ReadAll(br)
	if err != nil {
		return nil, fmt.Errorf("sketch: read signatures: %w", err)
	}
	return Parse(data)
}

// Parse decodes uncompressed signature JSON.
func Parse(data []byte) ([]*Signature, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("sketch: empty signature data")
	}

	var sigs []*Signature
	if trimmed[0] == '{' {
		var sig Signature
		if err := gojson.Unmarshal(trimmed, &sig); err != nil {
			return nil, fmt.Errorf("sketch: decode signature: %w", err)
		}
		sigs = []*Signature{&sig}
	} else if err := gojson.Unmarshal(trimmed, &sigs); err != nil {
		return nil, fmt.Errorf("sketch: decode signatures: %w", err)
	}

	for _, sig := range sigs {
		if sig == nil {
			return nil, fmt.Errorf("sketch: null signature")
		}
		if sig.Class != "" && sig.Class != signatureClass {
			return nil, fmt.Errorf("sketch: unexpected class %q", sig.Class)
		}
	}
	return sigs, nil
}

// Write encodes sigs as a JSON list, gzip compressed when compress is set.
func Write(w io.Writer, sigs []*Signature, compress bool) error {
	data, err := gojson.Marshal(sigs)
	if err != nil {
		return fmt.Errorf("sketch: encode signatures: %w", err)
	}
	if !compress {
		_, err = w.Write(data)
		return err
	}

	zw := gzip.NewWriter(w)
	if _, err := zw.Write(data); err != nil {
		return err
	}
	return zw.Close()
}

// Encode returns the JSON encoding of sigs.
func Encode(sigs ...*Signature) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, sigs, false); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// wireMinHash is the on-disk representation of a MinHash.
type wireMinHash struct {
	Num        uint32   `json:"num"`
	Ksize      uint32   `json:"ksize"`
	Seed       uint64   `json:"seed"`
	MaxHash    uint64   `json:"max_hash"`
	Mins       []uint64 `json:"mins"`
	Abundances []uint64 `json:"abundances,omitempty"`
	MD5Sum     string   `json:"md5sum"`
	Molecule   string   `json:"molecule"`
}

// MarshalJSON implements json.Marshaler.
func (m *MinHash) MarshalJSON() ([]byte, error) {
	mins := m.hashes
	if mins == nil {
		mins = []uint64{}
	}
	return gojson.Marshal(wireMinHash{
		Ksize:      m.ksize,
		Seed:       m.seed,
		MaxHash:    m.maxHash,
		Mins:       mins,
		Abundances: m.abunds,
		MD5Sum:     m.MD5(),
		Molecule:   m.moltype,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *MinHash) UnmarshalJSON(data []byte) error {
	var w wireMinHash
	if err := gojson.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Num != 0 {
		return fmt.Errorf("%w: num sketches (num=%d) are not supported", ErrIncompatible, w.Num)
	}
	if w.Abundances != nil && len(w.Abundances) != len(w.Mins) {
		return fmt.Errorf("sketch: %d abundances for %d hashes", len(w.Abundances), len(w.Mins))
	}

	moltype := w.Molecule
	switch moltype {
	case "", "dna":
		moltype = DNA
	}

	*m = MinHash{
		ksize:   w.Ksize,
		scaled:  ScaledForMaxHash(w.MaxHash),
		maxHash: w.MaxHash,
		seed:    w.Seed,
		moltype: moltype,
		track:   w.Abundances != nil,
	}
	if m.seed == 0 {
		m.seed = DefaultSeed
	}

	if slices.IsSorted(w.Mins) && !hasDuplicates(w.Mins) {
		m.hashes = w.Mins
		m.abunds = w.Abundances
		return nil
	}
	for i, h := range w.Mins {
		n := uint64(1)
		if m.track {
			n = w.Abundances[i]
		}
		m.AddAbundance(h, n)
	}
	return nil
}

func hasDuplicates(sorted []uint64) bool {
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1] {
			return true
		}
	}
	return false
}
