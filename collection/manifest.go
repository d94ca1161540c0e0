package collection

import (
	"fmt"

	"github.com/hupe1980/revindex/codec"
	"github.com/hupe1980/revindex/sketch"
)

// ManifestVersion is the current manifest format version.
const ManifestVersion = 1

// Record describes one sketch of one dataset.
type Record struct {
	InternalLocation string `json:"internal_location"`
	MD5              string `json:"md5"`
	MD5Short         string `json:"md5short"`
	Ksize            uint32 `json:"ksize"`
	Moltype          string `json:"moltype"`
	Num              uint32 `json:"num"`
	Scaled           uint32 `json:"scaled"`
	NHashes          int    `json:"n_hashes"`
	WithAbundance    bool   `json:"with_abundance"`
	Name             string `json:"name"`
	Filename         string `json:"filename"`
}

// NewRecord describes mh, a sketch of sig stored at location.
func NewRecord(sig *sketch.Signature, mh *sketch.MinHash, location string) Record {
	md5 := mh.MD5()
	return Record{
		InternalLocation: location,
		MD5:              md5,
		MD5Short:         md5[:8],
		Ksize:            mh.Ksize(),
		Moltype:          mh.Moltype(),
		Scaled:           mh.Scaled(),
		NHashes:          mh.Len(),
		WithAbundance:    mh.TrackAbundance(),
		Name:             sig.Name,
		Filename:         sig.Filename,
	}
}

// Selection returns the parameters of the sketch.
func (r Record) Selection() sketch.Selection {
	return sketch.Selection{Ksize: r.Ksize, Scaled: r.Scaled, Moltype: r.Moltype}
}

// DisplayName returns the name, falling back to the filename.
func (r Record) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Filename
}

// SameDataset reports whether r and o describe the same stored sketch.
func (r Record) SameDataset(o Record) bool {
	return r.MD5 == o.MD5 && r.InternalLocation == o.InternalLocation
}

func (r Record) matches(sel sketch.Selection) bool {
	if sel.Ksize != 0 && sel.Ksize != r.Ksize {
		return false
	}
	if sel.Moltype != "" && sel.Moltype != r.Moltype {
		return false
	}
	return sel.Scaled == 0 || r.Scaled <= sel.Scaled
}

// Manifest lists the records of a collection in dataset index order.
type Manifest struct {
	Version int      `json:"version"`
	Records []Record `json:"records"`
}

// NewManifest returns a manifest holding records.
func NewManifest(records []Record) *Manifest {
	return &Manifest{Version: ManifestVersion, Records: records}
}

// Len returns the number of records.
func (m *Manifest) Len() int { return len(m.Records) }

// Encode serializes the manifest with c.
func (m *Manifest) Encode(c codec.Codec) ([]byte, error) {
	return c.Marshal(m)
}

// DecodeManifest parses a manifest serialized with c.
func DecodeManifest(c codec.Codec, data []byte) (*Manifest, error) {
	var m Manifest
	if err := c.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("collection: decode manifest: %w", err)
	}
	if m.Version > ManifestVersion {
		return nil, fmt.Errorf("collection: manifest version %d is newer than supported %d", m.Version, ManifestVersion)
	}
	return &m, nil
}
