package revindex

import (
	"context"
	"math"
	"slices"
	"time"

	"github.com/hupe1980/revindex/internal/color"
	"github.com/hupe1980/revindex/internal/kv"
	"github.com/hupe1980/revindex/sketch"
)

// GatherCounters is the resolved state of one query, shared by any number of
// Gather calls.
type GatherCounters struct {
	counter SigCounter
	colors  *color.Table
	hashes  *color.HashToColor
}

// Counter returns a copy of the initial per-dataset counts.
func (g *GatherCounters) Counter() SigCounter { return g.counter.Clone() }

// Resolved returns the number of query hashes present in the index.
func (g *GatherCounters) Resolved() int { return g.hashes.Len() }

// GatherResult describes one round of a gather.
//
// Fractions and base pair estimates compare the match against the original
// query unless the field name says "unique", which refers to the hashes
// still unclaimed when the round started.
type GatherResult struct {
	Rank     int    `json:"gather_result_rank"`
	Idx      uint32 `json:"idx"`
	Name     string `json:"name"`
	Filename string `json:"filename"`
	MD5      string `json:"md5"`

	FMatch         float64 `json:"f_match"`
	FUniqueToQuery float64 `json:"f_unique_to_query"`
	FOrigQuery     float64 `json:"f_orig_query"`
	FMatchOrig     float64 `json:"f_match_orig"`

	IntersectBP       uint64 `json:"intersect_bp"`
	UniqueIntersectBP uint64 `json:"unique_intersect_bp"`
	RemainingBP       uint64 `json:"remaining_bp"`

	QueryContainmentANI   float64 `json:"query_containment_ani"`
	MatchContainmentANI   float64 `json:"match_containment_ani"`
	AverageContainmentANI float64 `json:"average_containment_ani"`
	MaxContainmentANI     float64 `json:"max_containment_ani"`

	FUniqueWeighted      float64 `json:"f_unique_weighted"`
	NUniqueWeightedFound uint64  `json:"n_unique_weighted_found"`
	SumWeightedFound     uint64  `json:"sum_weighted_found"`
	TotalWeightedHashes  uint64  `json:"total_weighted_hashes"`

	AverageAbund float64 `json:"average_abund"`
	MedianAbund  float64 `json:"median_abund"`
	StdAbund     float64 `json:"std_abund"`
}

// PrepareGatherCounters resolves every hash of q once: the per-dataset
// counts, the color of each hash and the member set of each color.
func (d *DiskIndex) PrepareGatherCounters(ctx context.Context, q *sketch.MinHash) (*GatherCounters, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if err := d.readable(); err != nil {
		return nil, err
	}
	if err := d.checkQuery(q); err != nil {
		return nil, err
	}

	g := &GatherCounters{
		counter: make(SigCounter),
		colors:  color.NewTable(),
		hashes:  color.NewHashToColor(),
	}
	r := newSetResolver()
	err := d.db.View(func(tx *kv.Tx) error {
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
			g.hashes.Set(h, c)

			s, known := g.colors.Get(c)
			if !known {
				if s, err = r.get(tx, c); err != nil {
					return err
				}
				if err := g.colors.Insert(c, s); err != nil {
					return corruptEntry(partColors, colorKey(c), err)
				}
			}
			for idx := range s.All() {
				g.counter[idx]++
			}
		}
		return nil
	})
	if err != nil {
		return nil, translateError(err)
	}
	return g, nil
}

// Gather decomposes q into the datasets that explain it best.
//
// Every round selects the dataset with the highest remaining count (lowest
// index on ties), reports it, and removes its hashes from the query and from
// the counts of every dataset sharing them. Gathering stops when no dataset
// reaches threshold. counters is not modified.
func (d *DiskIndex) Gather(ctx context.Context, counters *GatherCounters, threshold uint64, q *sketch.MinHash, sel *sketch.Selection) (results []GatherResult, err error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	start := time.Now()
	defer func() {
		d.opts.metricsCollector.RecordGather(len(results), time.Since(start), err)
		d.logger.LogGather(ctx, q.Len(), len(results), err)
	}()

	if err := d.readable(); err != nil {
		return nil, err
	}
	if sel != nil {
		if err := d.sel.CheckQuery(*sel); err != nil {
			return nil, translateError(err)
		}
	}
	if err := d.checkQuery(q); err != nil {
		return nil, err
	}

	orig := q
	remaining := q.Clone()
	counter := counters.counter.Clone()
	scaled := uint64(orig.Scaled())
	ksize := orig.Ksize()
	origSize := float64(orig.Len())

	totalWeighted := uint64(orig.Len())
	if orig.TrackAbundance() {
		totalWeighted = orig.SumAbundances()
	}
	var sumWeightedFound uint64

	for len(counter) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		top, _ := counter.best()
		if top.Count < threshold || top.Count == 0 {
			break
		}

		rec, err := d.coll.Record(top.Idx)
		if err != nil {
			return nil, translateError(err)
		}
		sig, err := d.coll.SigForDataset(ctx, top.Idx)
		if err != nil {
			return nil, err
		}
		match := sig.MinHash()
		if match.Scaled() < orig.Scaled() {
			if match, err = match.Downsample(orig.Scaled()); err != nil {
				return nil, translateError(err)
			}
		}

		isect, err := match.Intersection(remaining)
		if err != nil {
			return nil, translateError(err)
		}
		intersectOrig, err := match.IntersectionSize(orig)
		if err != nil {
			return nil, translateError(err)
		}

		matchSize := float64(match.Len())
		fOrigQuery := float64(intersectOrig) / origSize
		fMatchOrig := float64(intersectOrig) / matchSize
		queryANI := sketch.ANIFromContainment(fOrigQuery, ksize)
		matchANI := sketch.ANIFromContainment(fMatchOrig, ksize)

		var abunds []uint64
		weighted := uint64(isect.Len())
		if orig.TrackAbundance() {
			if abunds, weighted, err = isect.InflatedAbundances(orig); err != nil {
				return nil, translateError(err)
			}
		}
		sumWeightedFound += weighted
		avgAbund, medianAbund, stdAbund := abundanceStats(abunds)

		results = append(results, GatherResult{
			Rank:     len(results),
			Idx:      top.Idx,
			Name:     rec.DisplayName(),
			Filename: rec.Filename,
			MD5:      rec.MD5,

			FMatch:         float64(top.Count) / matchSize,
			FUniqueToQuery: float64(isect.Len()) / origSize,
			FOrigQuery:     fOrigQuery,
			FMatchOrig:     fMatchOrig,

			IntersectBP:       scaled * uint64(intersectOrig),
			UniqueIntersectBP: scaled * uint64(isect.Len()),
			RemainingBP:       scaled * uint64(remaining.Len()-isect.Len()),

			QueryContainmentANI:   queryANI,
			MatchContainmentANI:   matchANI,
			AverageContainmentANI: (queryANI + matchANI) / 2,
			MaxContainmentANI:     max(queryANI, matchANI),

			FUniqueWeighted:      float64(weighted) / float64(totalWeighted),
			NUniqueWeightedFound: weighted,
			SumWeightedFound:     sumWeightedFound,
			TotalWeightedHashes:  totalWeighted,

			AverageAbund: avgAbund,
			MedianAbund:  medianAbund,
			StdAbund:     stdAbund,
		})

		claimed := isect.Hashes()
		for _, h := range claimed {
			c, ok := counters.hashes.Get(h)
			if !ok {
				continue
			}
			for idx := range counters.colors.Indices(c) {
				switch n := counter[idx]; n {
				case 0:
				case 1:
					delete(counter, idx)
				default:
					counter[idx] = n - 1
				}
			}
		}
		delete(counter, top.Idx)
		remaining.RemoveMany(claimed)
	}

	return results, nil
}

// abundanceStats returns mean, median and population standard deviation.
func abundanceStats(abunds []uint64) (mean, median, std float64) {
	n := len(abunds)
	if n == 0 {
		return 0, 0, 0
	}

	var sum float64
	for _, a := range abunds {
		sum += float64(a)
	}
	mean = sum / float64(n)

	var sq float64
	for _, a := range abunds {
		diff := float64(a) - mean
		sq += diff * diff
	}
	std = math.Sqrt(sq / float64(n))

	sorted := slices.Clone(abunds)
	slices.Sort(sorted)
	if n%2 == 1 {
		median = float64(sorted[n/2])
	} else {
		median = (float64(sorted[n/2-1]) + float64(sorted[n/2])) / 2
	}
	return mean, median, std
}
