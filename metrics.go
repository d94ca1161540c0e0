package revindex

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; the
// promcollector package provides a Prometheus implementation.
type MetricsCollector interface {
	// RecordBuild is called after Create with the number of indexed datasets.
	RecordBuild(datasets int, duration time.Duration, err error)

	// RecordUpdate is called after Update with the number of added datasets.
	RecordUpdate(added int, duration time.Duration, err error)

	// RecordQuery is called after each counter query.
	// hashes is the query size, matched the number of datasets hit.
	RecordQuery(hashes, matched int, duration time.Duration, err error)

	// RecordGather is called after each gather with the number of results.
	RecordGather(rounds int, duration time.Duration, err error)

	// RecordCheck is called after each consistency check.
	RecordCheck(keys uint64, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordBuild(int, time.Duration, error)      {}
func (NoopMetricsCollector) RecordUpdate(int, time.Duration, error)     {}
func (NoopMetricsCollector) RecordQuery(int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordGather(int, time.Duration, error)     {}
func (NoopMetricsCollector) RecordCheck(uint64, time.Duration, error)   {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	BuildCount       atomic.Int64
	BuildErrors      atomic.Int64
	DatasetsIndexed  atomic.Int64
	UpdateCount      atomic.Int64
	UpdateErrors     atomic.Int64
	QueryCount       atomic.Int64
	QueryErrors      atomic.Int64
	QueryHashes      atomic.Int64
	QueryTotalNanos  atomic.Int64
	GatherCount      atomic.Int64
	GatherErrors     atomic.Int64
	GatherRounds     atomic.Int64
	GatherTotalNanos atomic.Int64
	CheckCount       atomic.Int64
	CheckErrors      atomic.Int64
}

// RecordBuild implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBuild(datasets int, _ time.Duration, err error) {
	b.BuildCount.Add(1)
	if err != nil {
		b.BuildErrors.Add(1)
		return
	}
	b.DatasetsIndexed.Add(int64(datasets))
}

// RecordUpdate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordUpdate(added int, _ time.Duration, err error) {
	b.UpdateCount.Add(1)
	if err != nil {
		b.UpdateErrors.Add(1)
		return
	}
	b.DatasetsIndexed.Add(int64(added))
}

// RecordQuery implements MetricsCollector.
func (b *BasicMetricsCollector) RecordQuery(hashes, _ int, duration time.Duration, err error) {
	b.QueryCount.Add(1)
	b.QueryHashes.Add(int64(hashes))
	b.QueryTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.QueryErrors.Add(1)
	}
}

// RecordGather implements MetricsCollector.
func (b *BasicMetricsCollector) RecordGather(rounds int, duration time.Duration, err error) {
	b.GatherCount.Add(1)
	b.GatherRounds.Add(int64(rounds))
	b.GatherTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.GatherErrors.Add(1)
	}
}

// RecordCheck implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCheck(_ uint64, _ time.Duration, err error) {
	b.CheckCount.Add(1)
	if err != nil {
		b.CheckErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		BuildCount:      b.BuildCount.Load(),
		BuildErrors:     b.BuildErrors.Load(),
		DatasetsIndexed: b.DatasetsIndexed.Load(),
		UpdateCount:     b.UpdateCount.Load(),
		UpdateErrors:    b.UpdateErrors.Load(),
		QueryCount:      b.QueryCount.Load(),
		QueryErrors:     b.QueryErrors.Load(),
		QueryAvgNanos:   avg(b.QueryTotalNanos.Load(), b.QueryCount.Load()),
		GatherCount:     b.GatherCount.Load(),
		GatherErrors:    b.GatherErrors.Load(),
		GatherRounds:    b.GatherRounds.Load(),
		GatherAvgNanos:  avg(b.GatherTotalNanos.Load(), b.GatherCount.Load()),
		CheckCount:      b.CheckCount.Load(),
		CheckErrors:     b.CheckErrors.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	BuildCount      int64
	BuildErrors     int64
	DatasetsIndexed int64
	UpdateCount     int64
	UpdateErrors    int64
	QueryCount      int64
	QueryErrors     int64
	QueryAvgNanos   int64
	GatherCount     int64
	GatherErrors    int64
	GatherRounds    int64
	GatherAvgNanos  int64
	CheckCount      int64
	CheckErrors     int64
}
