package collection

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/hupe1980/revindex/sketch"
	"github.com/hupe1980/revindex/storage"
)

var (
	// ErrEmpty is returned when a collection holds no records.
	ErrEmpty = errors.New("collection: no datasets")

	// ErrMixedSelection is returned when records disagree on ksize, scaled or moltype.
	ErrMixedSelection = errors.New("collection: datasets use different sketch parameters")

	// ErrNotSuperset is returned when a collection does not extend another one.
	ErrNotSuperset = errors.New("collection: not a superset")

	// ErrIndexOutOfRange is returned for dataset indices past the last record.
	ErrIndexOutOfRange = errors.New("collection: dataset index out of range")
)

// Collection is a manifest bound to the storage its records live in.
type Collection struct {
	manifest *Manifest
	storage  storage.Storage
}

// New binds m to st.
func New(m *Manifest, st storage.Storage) *Collection {
	return &Collection{manifest: m, storage: st}
}

// Len returns the number of datasets.
func (c *Collection) Len() int { return c.manifest.Len() }

// Manifest returns the manifest. It must not be modified.
func (c *Collection) Manifest() *Manifest { return c.manifest }

// Storage returns the backing storage.
func (c *Collection) Storage() storage.Storage { return c.storage }

// WithStorage returns a collection with the same records over st.
func (c *Collection) WithStorage(st storage.Storage) *Collection {
	return &Collection{manifest: c.manifest, storage: st}
}

// Records returns the records in dataset index order.
func (c *Collection) Records() []Record { return c.manifest.Records }

// Record returns the record of dataset idx.
func (c *Collection) Record(idx uint32) (Record, error) {
	if int(idx) >= c.manifest.Len() {
		return Record{}, fmt.Errorf("%w: %d >= %d", ErrIndexOutOfRange, idx, c.manifest.Len())
	}
	return c.manifest.Records[idx], nil
}

// Select keeps the records usable under sel.
func (c *Collection) Select(sel sketch.Selection) *Collection {
	var records []Record
	for _, r := range c.manifest.Records {
		if r.matches(sel) {
			records = append(records, r)
		}
	}
	return New(NewManifest(records), c.storage)
}

// Selection returns the parameters shared by every record.
func (c *Collection) Selection() (sketch.Selection, error) {
	if c.Len() == 0 {
		return sketch.Selection{}, ErrEmpty
	}
	first := c.manifest.Records[0].Selection()
	for i, r := range c.manifest.Records[1:] {
		if sel := r.Selection(); sel != first {
			return sketch.Selection{}, fmt.Errorf("%w: dataset 0 has %s, dataset %d has %s", ErrMixedSelection, first, i+1, sel)
		}
	}
	return first, nil
}

// CheckSuperset verifies that next starts with every record of c, in order,
// and returns the number of records they share.
func (c *Collection) CheckSuperset(next *Collection) (int, error) {
	if next.Len() < c.Len() {
		return 0, fmt.Errorf("%w: %d datasets replace %d", ErrNotSuperset, next.Len(), c.Len())
	}
	for i, r := range c.manifest.Records {
		if !r.SameDataset(next.manifest.Records[i]) {
			return 0, fmt.Errorf("%w: dataset %d changed from %s to %s", ErrNotSuperset, i, r.MD5Short, next.manifest.Records[i].MD5Short)
		}
	}
	return c.Len(), nil
}

// SigForDataset loads the signature of dataset idx, holding only the
// recorded sketch.
func (c *Collection) SigForDataset(ctx context.Context, idx uint32) (*sketch.Signature, error) {
	rec, err := c.Record(idx)
	if err != nil {
		return nil, err
	}

	data, err := c.storage.Load(ctx, rec.InternalLocation)
	if err != nil {
		return nil, fmt.Errorf("collection: load dataset %d: %w", idx, err)
	}
	sigs, err := sketch.Load(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("collection: parse dataset %d: %w", idx, err)
	}

	for _, sig := range sigs {
		for _, mh := range sig.Sketches {
			if mh.MD5() == rec.MD5 {
				out := *sig
				out.Sketches = []*sketch.MinHash{mh}
				return &out, nil
			}
		}
	}
	return nil, fmt.Errorf("collection: dataset %d: sketch %s not found at %s", idx, rec.MD5Short, rec.InternalLocation)
}

// Locations returns the distinct storage locations in first-use order.
func (c *Collection) Locations() []string {
	var out []string
	for _, r := range c.manifest.Records {
		if !slices.Contains(out, r.InternalLocation) {
			out = append(out, r.InternalLocation)
		}
	}
	return out
}
