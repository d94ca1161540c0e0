// Package sketch implements scaled MinHash sketches and the signature files
// that carry them.
//
// A scaled MinHash keeps every hash value at or below MaxHash = 2^64/scaled,
// so sketches of the same ksize and molecule type can be compared by plain
// set operations once they are brought to a common scaled value.
package sketch

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
)

// DefaultSeed is the hash seed of every sketch produced by this package.
const DefaultSeed uint64 = 42

// Molecule types.
const (
	DNA     = "DNA"
	Protein = "protein"
	Dayhoff = "dayhoff"
	HP      = "hp"
)

// ErrIncompatible is returned when two sketches or a sketch and a selection
// cannot be compared.
var ErrIncompatible = errors.New("sketch: incompatible parameters")

// MismatchError describes the parameter that makes two sketches incompatible.
type MismatchError struct {
	Field    string
	Expected any
	Actual   any
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("sketch: %s mismatch: expected %v, got %v", e.Field, e.Expected, e.Actual)
}

// Is reports ErrIncompatible.
func (e *MismatchError) Is(target error) bool { return target == ErrIncompatible }

// MaxHashForScaled returns the largest hash kept at scaled.
func MaxHashForScaled(scaled uint32) uint64 {
	if scaled == 0 {
		return 0
	}
	if scaled == 1 {
		return math.MaxUint64
	}
	return uint64(float64(math.MaxUint64) / float64(scaled))
}

// ScaledForMaxHash is the inverse of MaxHashForScaled.
func ScaledForMaxHash(maxHash uint64) uint32 {
	if maxHash == 0 {
		return 0
	}
	return uint32(math.Round(float64(math.MaxUint64) / float64(maxHash)))
}

// MinHash is a scaled MinHash sketch. Hashes are kept ascending and unique.
//
// A MinHash is not safe for concurrent mutation.
type MinHash struct {
	ksize   uint32
	scaled  uint32
	maxHash uint64
	seed    uint64
	moltype string
	hashes  []uint64
	abunds  []uint64 // parallel to hashes, nil unless abundance is tracked
	track   bool
}

// NewMinHash returns an empty sketch.
func NewMinHash(ksize, scaled uint32, moltype string, trackAbundance bool) *MinHash {
	if moltype == "" {
		moltype = DNA
	}
	return &MinHash{
		ksize:   ksize,
		scaled:  scaled,
		maxHash: MaxHashForScaled(scaled),
		seed:    DefaultSeed,
		moltype: moltype,
		track:   trackAbundance,
	}
}

func (m *MinHash) Ksize() uint32        { return m.ksize }
func (m *MinHash) Scaled() uint32       { return m.scaled }
func (m *MinHash) MaxHash() uint64      { return m.maxHash }
func (m *MinHash) Seed() uint64         { return m.seed }
func (m *MinHash) Moltype() string      { return m.moltype }
func (m *MinHash) TrackAbundance() bool { return m.track }
func (m *MinHash) Len() int             { return len(m.hashes) }
func (m *MinHash) IsEmpty() bool        { return len(m.hashes) == 0 }

// Hashes returns the ascending hash values. The slice must not be modified.
func (m *MinHash) Hashes() []uint64 { return m.hashes }

// Abundances returns the abundances parallel to Hashes, or nil.
func (m *MinHash) Abundances() []uint64 { return m.abunds }

// Add inserts h with abundance 1.
func (m *MinHash) Add(h uint64) { m.AddAbundance(h, 1) }

// AddAbundance inserts h, adding n to its abundance. Hashes above MaxHash are
// ignored.
func (m *MinHash) AddAbundance(h, n uint64) {
	if m.scaled > 0 && h > m.maxHash {
		return
	}
	i, found := slices.BinarySearch(m.hashes, h)
	if found {
		if m.track {
			m.abunds[i] += n
		}
		return
	}
	m.hashes = slices.Insert(m.hashes, i, h)
	if m.track {
		m.abunds = slices.Insert(m.abunds, i, n)
	}
}

// AddMany inserts every hash with abundance 1.
func (m *MinHash) AddMany(hashes []uint64) {
	for _, h := range hashes {
		m.Add(h)
	}
}

// Contains reports whether h is in the sketch.
func (m *MinHash) Contains(h uint64) bool {
	_, found := slices.BinarySearch(m.hashes, h)
	return found
}

// Abundance returns the abundance of h: 0 when absent, 1 when present and
// abundance is not tracked.
func (m *MinHash) Abundance(h uint64) uint64 {
	i, found := slices.BinarySearch(m.hashes, h)
	switch {
	case !found:
		return 0
	case m.track:
		return m.abunds[i]
	default:
		return 1
	}
}

// SumAbundances returns the total weight of the sketch.
func (m *MinHash) SumAbundances() uint64 {
	if !m.track {
		return uint64(len(m.hashes))
	}
	var sum uint64
	for _, a := range m.abunds {
		sum += a
	}
	return sum
}

// Clone returns a deep copy.
func (m *MinHash) Clone() *MinHash {
	c := *m
	c.hashes = slices.Clone(m.hashes)
	c.abunds = slices.Clone(m.abunds)
	return &c
}

// CheckCompatible returns a *MismatchError when m and other cannot be compared.
func (m *MinHash) CheckCompatible(other *MinHash) error {
	switch {
	case m.ksize != other.ksize:
		return &MismatchError{Field: "ksize", Expected: m.ksize, Actual: other.ksize}
	case m.moltype != other.moltype:
		return &MismatchError{Field: "moltype", Expected: m.moltype, Actual: other.moltype}
	case m.scaled != other.scaled:
		return &MismatchError{Field: "scaled", Expected: m.scaled, Actual: other.scaled}
	case m.seed != other.seed:
		return &MismatchError{Field: "seed", Expected: m.seed, Actual: other.seed}
	}
	return nil
}

// Downsample returns a copy of m at a coarser scaled value.
func (m *MinHash) Downsample(scaled uint32) (*MinHash, error) {
	if scaled == m.scaled {
		return m.Clone(), nil
	}
	if scaled < m.scaled {
		return nil, &MismatchError{Field: "scaled", Expected: fmt.Sprintf(">= %d", m.scaled), Actual: scaled}
	}

	out := NewMinHash(m.ksize, scaled, m.moltype, m.track)
	out.seed = m.seed
	end, _ := slices.BinarySearch(m.hashes, out.maxHash+1)
	if out.maxHash == math.MaxUint64 {
		end = len(m.hashes)
	}
	out.hashes = slices.Clone(m.hashes[:end])
	if m.track {
		out.abunds = slices.Clone(m.abunds[:end])
	}
	return out, nil
}

// Intersection returns the hashes present in both sketches, carrying m's
// abundances.
func (m *MinHash) Intersection(other *MinHash) (*MinHash, error) {
	if err := m.CheckCompatible(other); err != nil {
		return nil, err
	}

	out := NewMinHash(m.ksize, m.scaled, m.moltype, m.track)
	out.seed = m.seed
	i, j := 0, 0
	for i < len(m.hashes) && j < len(other.hashes) {
		switch a, b := m.hashes[i], other.hashes[j]; {
		case a < b:
			i++
		case a > b:
			j++
		default:
			out.hashes = append(out.hashes, a)
			if m.track {
				out.abunds = append(out.abunds, m.abunds[i])
			}
			i++
			j++
		}
	}
	return out, nil
}

// IntersectionSize counts the hashes present in both sketches.
func (m *MinHash) IntersectionSize(other *MinHash) (int, error) {
	if err := m.CheckCompatible(other); err != nil {
		return 0, err
	}
	n, i, j := 0, 0, 0
	for i < len(m.hashes) && j < len(other.hashes) {
		switch a, b := m.hashes[i], other.hashes[j]; {
		case a < b:
			i++
		case a > b:
			j++
		default:
			n++
			i++
			j++
		}
	}
	return n, nil
}

// RemoveMany deletes every hash in sorted from m. sorted must be ascending.
func (m *MinHash) RemoveMany(sorted []uint64) {
	if len(sorted) == 0 || len(m.hashes) == 0 {
		return
	}
	w, j := 0, 0
	for i, h := range m.hashes {
		for j < len(sorted) && sorted[j] < h {
			j++
		}
		if j < len(sorted) && sorted[j] == h {
			continue
		}
		m.hashes[w] = h
		if m.track {
			m.abunds[w] = m.abunds[i]
		}
		w++
	}
	m.hashes = m.hashes[:w]
	if m.track {
		m.abunds = m.abunds[:w]
	}
}

// InflatedAbundances returns, for every hash of m, its abundance in from,
// together with their sum.
func (m *MinHash) InflatedAbundances(from *MinHash) ([]uint64, uint64, error) {
	if !from.track {
		return nil, 0, fmt.Errorf("%w: abundance is not tracked", ErrIncompatible)
	}
	out := make([]uint64, 0, len(m.hashes))
	var sum uint64
	for _, h := range m.hashes {
		if a := from.Abundance(h); a > 0 {
			out = append(out, a)
			sum += a
		}
	}
	return out, sum, nil
}

// MD5 returns the content digest of the sketch used to identify datasets.
func (m *MinHash) MD5() string {
	d := md5.New()
	d.Write([]byte(strconv.FormatUint(uint64(m.ksize), 10)))
	var buf []byte
	for _, h := range m.hashes {
		buf = strconv.AppendUint(buf[:0], h, 10)
		d.Write(buf)
	}
	return hex.EncodeToString(d.Sum(nil))
}
