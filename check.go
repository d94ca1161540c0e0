package revindex

import (
	"context"
	"time"

	"github.com/hupe1980/revindex/internal/color"
	"github.com/hupe1980/revindex/internal/idxset"
	"github.com/hupe1980/revindex/internal/stats"
)

// DBStats summarizes the hash mappings of an index.
type DBStats struct {
	// TotalDatasets is the number of distinct datasets referenced by any
	// color. Only computed by deep checks.
	TotalDatasets uint64 `json:"total_datasets"`
	// TotalKeys is the number of indexed hashes.
	TotalKeys uint64 `json:"total_keys"`
	// KCount and VCount are the key and value bytes of the hashes partition.
	KCount uint64 `json:"kcount"`
	VCount uint64 `json:"vcount"`
	// Histogram counts the number of datasets per indexed hash. Only
	// filled by deep checks.
	Histogram *stats.Histogram `json:"histogram,omitempty"`
}

// Check scans the hashes partition. Unless quick is set, it also decodes
// every stored color and resolves the color of every hash; any entry that
// fails fails the check with a CorruptEntryError.
func (d *DiskIndex) Check(ctx context.Context, quick bool) (st *DBStats, err error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	start := time.Now()
	defer func() {
		var keys uint64
		if st != nil {
			keys = st.TotalKeys
		}
		d.opts.metricsCollector.RecordCheck(keys, time.Since(start), err)
		d.logger.LogCheck(ctx, quick, st, err)
	}()

	if err := d.readable(); err != nil {
		return nil, err
	}

	var sets map[color.Color]idxset.Set
	if !quick {
		if sets, err = d.loadColors(ctx); err != nil {
			return nil, err
		}
	}

	out := &DBStats{}
	if !quick {
		out.Histogram = &stats.Histogram{}
	}
	var union idxset.Set
	n := 0
	err = d.db.Iterate(partHashes, func(key, value []byte) error {
		if n++; n%65536 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		out.KCount += uint64(len(key))
		out.VCount += uint64(len(value))
		if quick {
			return nil
		}

		c, err := decodeColor(key, value)
		if err != nil {
			return err
		}
		s, ok := sets[c]
		if !ok {
			return corruptEntry(partHashes, key, color.ErrUnknownColor)
		}
		out.Histogram.Increment(uint64(s.Len()))
		return nil
	})
	if err != nil {
		return nil, translateError(err)
	}
	out.TotalKeys = out.KCount / 8

	if !quick {
		for _, s := range sets {
			union.Union(s)
		}
		out.TotalDatasets = uint64(union.Len())
	}
	return out, nil
}

// loadColors decodes the whole colors partition.
func (d *DiskIndex) loadColors(ctx context.Context) (map[color.Color]idxset.Set, error) {
	sets := make(map[color.Color]idxset.Set)
	err := d.db.Iterate(partColors, func(key, value []byte) error {
		if len(sets)%65536 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if len(key) != 8 {
			return corruptEntry(partColors, key, errBadKey)
		}
		s, err := idxset.FromBytes(value)
		if err != nil {
			return corruptEntry(partColors, key, err)
		}
		sets[decodeKeyColor(key)] = s
		return nil
	})
	return sets, err
}
