package revindex

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/hupe1980/revindex/internal/kv"
	"github.com/hupe1980/revindex/sketch"
)

// SigCounter maps dataset indices to the number of query hashes they contain.
type SigCounter map[uint32]uint64

// Count is one entry of a SigCounter.
type Count struct {
	Idx   uint32 `json:"idx"`
	Count uint64 `json:"count"`
}

// MostCommon returns the entries ordered by count, highest first. Equal
// counts are ordered by ascending dataset index.
func (c SigCounter) MostCommon() []Count {
	out := make([]Count, 0, len(c))
	for idx, n := range c {
		out = append(out, Count{Idx: idx, Count: n})
	}
	slices.SortFunc(out, compareCounts)
	return out
}

// Clone returns a copy of c.
func (c SigCounter) Clone() SigCounter {
	out := make(SigCounter, len(c))
	for idx, n := range c {
		out[idx] = n
	}
	return out
}

// best returns the first entry MostCommon would return.
func (c SigCounter) best() (Count, bool) {
	var top Count
	found := false
	for idx, n := range c {
		cand := Count{Idx: idx, Count: n}
		if !found || compareCounts(cand, top) < 0 {
			top, found = cand, true
		}
	}
	return top, found
}

func compareCounts(a, b Count) int {
	if a.Count != b.Count {
		return cmp.Compare(b.Count, a.Count)
	}
	return cmp.Compare(a.Idx, b.Idx)
}

// Match is a dataset ranked by containment search.
type Match struct {
	Idx   uint32 `json:"idx"`
	Name  string `json:"name"`
	Count uint64 `json:"count"`
}

// readable must be called with d.mu held.
func (d *DiskIndex) readable() error {
	if d.closed {
		return ErrClosed
	}
	return nil
}

// checkQuery must be called with d.mu held.
func (d *DiskIndex) checkQuery(q *sketch.MinHash) error {
	if d.coll.Len() == 0 {
		return nil
	}
	return translateError(d.sel.CheckQuery(sketch.SelectionOf(q)))
}

// PrepareQuery returns the sketch of sig matching the index, downsampled to
// the index scaled or to sel.Scaled when that is coarser.
func (d *DiskIndex) PrepareQuery(sig *sketch.Signature, sel *sketch.Selection) (*sketch.MinHash, error) {
	d.mu.RLock()
	want := d.sel
	d.mu.RUnlock()

	if sel != nil {
		if err := want.CheckQuery(*sel); err != nil {
			return nil, translateError(err)
		}
		want.Scaled = max(want.Scaled, sel.Scaled)
	}

	for _, mh := range sig.Sketches {
		if mh.Ksize() != want.Ksize || mh.Moltype() != want.Moltype || mh.Scaled() > want.Scaled {
			continue
		}
		q, err := mh.Downsample(want.Scaled)
		if err != nil {
			return nil, translateError(err)
		}
		return q, nil
	}
	return nil, &SelectionMismatchError{
		Field:    "sketch",
		Expected: want.String(),
		Actual:   fmt.Sprintf("%d sketches in %q, none compatible", len(sig.Sketches), sig.DisplayName()),
	}
}

// CounterForQuery counts, for every dataset, the hashes of q it contains.
func (d *DiskIndex) CounterForQuery(ctx context.Context, q *sketch.MinHash) (counter SigCounter, err error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	start := time.Now()
	defer func() {
		d.opts.metricsCollector.RecordQuery(q.Len(), len(counter), time.Since(start), err)
	}()

	if err := d.readable(); err != nil {
		return nil, err
	}
	if err := d.checkQuery(q); err != nil {
		return nil, err
	}

	counter = make(SigCounter)
	r := newSetResolver()
	err = d.db.View(func(tx *kv.Tx) error {
		for i, h := range q.Hashes() {
			if i%4096 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			c, ok, err := lookupColor(tx, h)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			s, err := r.get(tx, c)
			if err != nil {
				return err
			}
			for idx := range s.All() {
				counter[idx]++
			}
		}
		return nil
	})
	if err != nil {
		return nil, translateError(err)
	}
	return counter, nil
}

// MatchesFromCounter returns the datasets with at least threshold hashes,
// highest count first.
func (d *DiskIndex) MatchesFromCounter(counter SigCounter, threshold uint64) ([]Match, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if err := d.readable(); err != nil {
		return nil, err
	}

	var out []Match
	for _, e := range counter.MostCommon() {
		if e.Count < threshold {
			break
		}
		rec, err := d.coll.Record(e.Idx)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorruptEntry, err)
		}
		out = append(out, Match{Idx: e.Idx, Name: rec.DisplayName(), Count: e.Count})
	}
	return out, nil
}
