package revindex

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/revindex/collection"
	"github.com/hupe1980/revindex/internal/color"
	"github.com/hupe1980/revindex/internal/conv"
	"github.com/hupe1980/revindex/internal/kv"
	"golang.org/x/sync/errgroup"
)

// errPersist marks build failures that happened while writing mappings.
var errPersist = errors.New("persist mappings")

// build indexes records [from, coll.Len()) of coll and persists the merged
// mappings. It returns the number of hash entries written.
//
// Records are split into contiguous batches. Every batch is indexed by one
// worker into its own color table; the tables are then reduced pairwise and
// folded into the colors already stored for the same hashes.
func (d *DiskIndex) build(ctx context.Context, coll *collection.Collection, from int) (int, error) {
	total := coll.Len()
	if from >= total {
		return 0, nil
	}

	size := d.opts.batchSize
	nbatches := (total - from + size - 1) / size
	pairs := make([]color.Pair, nbatches)

	g, gctx := errgroup.WithContext(ctx)
	for b := range nbatches {
		lo := from + b*size
		hi := min(lo+size, total)
		g.Go(func() error {
			if err := d.rc.AcquireWorker(gctx); err != nil {
				return err
			}
			defer d.rc.ReleaseWorker()

			p, err := d.indexBatch(gctx, coll, lo, hi)
			if err != nil {
				return err
			}
			pairs[b] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	merged, err := color.ReduceAll(pairs)
	if err != nil {
		return 0, err
	}

	if from > 0 {
		existing, err := d.loadPair(merged.Hashes.SortedHashes())
		if err != nil {
			return 0, err
		}
		// existing covers a subset of merged's hashes, so it is the side
		// folded in.
		if merged, err = color.Reduce(existing, merged); err != nil {
			return 0, err
		}
	}

	d.logger.DebugContext(ctx, "datasets indexed",
		"from", from,
		"to", total,
		"batches", nbatches,
		"hashes", merged.Hashes.Len(),
		"colors", merged.Colors.Len(),
	)

	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := d.persist(merged); err != nil {
		return 0, fmt.Errorf("%w: %w", errPersist, err)
	}
	return merged.Hashes.Len(), nil
}

func (d *DiskIndex) indexBatch(ctx context.Context, coll *collection.Collection, lo, hi int) (color.Pair, error) {
	p := color.NewPair()
	for i := lo; i < hi; i++ {
		if err := ctx.Err(); err != nil {
			return color.Pair{}, err
		}
		idx, err := conv.IntToUint32(i)
		if err != nil {
			return color.Pair{}, err
		}
		sig, err := coll.SigForDataset(ctx, idx)
		if err != nil {
			return color.Pair{}, err
		}
		mh := sig.MinHash()
		if d.sel.Scaled > mh.Scaled() {
			if mh, err = mh.Downsample(d.sel.Scaled); err != nil {
				return color.Pair{}, err
			}
		}
		if err := p.Hashes.Add(p.Colors, idx, mh.Hashes()); err != nil {
			return color.Pair{}, fmt.Errorf("dataset %d: %w", idx, err)
		}
	}
	return p, nil
}

// loadPair reads the stored colors of hashes. Hashes not in the index are
// skipped.
func (d *DiskIndex) loadPair(hashes []uint64) (color.Pair, error) {
	p := color.NewPair()
	r := newSetResolver()
	err := d.db.View(func(tx *kv.Tx) error {
		for _, h := range hashes {
			c, ok, err := lookupColor(tx, h)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			p.Hashes.Set(h, c)
			if _, known := p.Colors.Get(c); known {
				continue
			}
			s, err := r.get(tx, c)
			if err != nil {
				return err
			}
			if err := p.Colors.Insert(c, s); err != nil {
				return corruptEntry(partColors, colorKey(c), err)
			}
		}
		return nil
	})
	return p, err
}

// persist writes every hash mapping and every referenced color of p.
func (d *DiskIndex) persist(p color.Pair) error {
	b := d.db.NewBatch()
	for h, c := range p.Hashes.All() {
		if err := b.Set(partHashes, hashKey(h), colorKey(c)); err != nil {
			b.Cancel()
			return err
		}
	}
	for c := range p.Referenced() {
		s, ok := p.Colors.Get(c)
		if !ok {
			b.Cancel()
			return fmt.Errorf("%w: %s", color.ErrUnknownColor, c)
		}
		if err := b.Set(partColors, colorKey(c), s.Bytes()); err != nil {
			b.Cancel()
			return err
		}
	}
	return b.Commit()
}
