// Package promcollector exports reverse index metrics to Prometheus.
//
//	reg := prometheus.NewRegistry()
//	c := promcollector.New("revindex")
//	reg.MustRegister(c)
//	idx, _ := revindex.Open(ctx, dir, true, "", revindex.WithMetricsCollector(c))
package promcollector

import (
	"time"

	"github.com/hupe1980/revindex"
	"github.com/prometheus/client_golang/prometheus"
)

// Collector implements revindex.MetricsCollector and prometheus.Collector.
type Collector struct {
	opLatency *prometheus.HistogramVec
	ops       *prometheus.CounterVec
	errors    *prometheus.CounterVec
	datasets  prometheus.Counter
	hashes    prometheus.Histogram
	matches   prometheus.Histogram
	rounds    prometheus.Histogram
	keys      prometheus.Gauge
}

var (
	_ revindex.MetricsCollector = (*Collector)(nil)
	_ prometheus.Collector      = (*Collector)(nil)
)

// New returns a collector whose metric names start with namespace.
func New(namespace string) *Collector {
	return &Collector{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Latency of index operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Number of index operations.",
		}, []string{"op"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_errors_total",
			Help:      "Number of failed index operations.",
		}, []string{"op"}),
		datasets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "datasets_indexed_total",
			Help:      "Datasets added by create and update.",
		}),
		hashes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_hashes",
			Help:      "Hashes per query sketch.",
			Buckets:   prometheus.ExponentialBuckets(16, 4, 8),
		}),
		matches: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_matched_datasets",
			Help:      "Datasets sharing at least one hash with a query.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		rounds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gather_results",
			Help:      "Results reported per gather.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		keys: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "indexed_hashes",
			Help:      "Hashes counted by the last successful check.",
		}),
	}
}

func (c *Collector) record(op string, d time.Duration, err error) {
	c.ops.WithLabelValues(op).Inc()
	c.opLatency.WithLabelValues(op).Observe(d.Seconds())
	if err != nil {
		c.errors.WithLabelValues(op).Inc()
	}
}

// RecordBuild implements revindex.MetricsCollector.
func (c *Collector) RecordBuild(datasets int, d time.Duration, err error) {
	c.record("build", d, err)
	if err == nil {
		c.datasets.Add(float64(datasets))
	}
}

// RecordUpdate implements revindex.MetricsCollector.
func (c *Collector) RecordUpdate(added int, d time.Duration, err error) {
	c.record("update", d, err)
	if err == nil {
		c.datasets.Add(float64(added))
	}
}

// RecordQuery implements revindex.MetricsCollector.
func (c *Collector) RecordQuery(hashes, matched int, d time.Duration, err error) {
	c.record("query", d, err)
	if err == nil {
		c.hashes.Observe(float64(hashes))
		c.matches.Observe(float64(matched))
	}
}

// RecordGather implements revindex.MetricsCollector.
func (c *Collector) RecordGather(rounds int, d time.Duration, err error) {
	c.record("gather", d, err)
	if err == nil {
		c.rounds.Observe(float64(rounds))
	}
}

// RecordCheck implements revindex.MetricsCollector.
func (c *Collector) RecordCheck(keys uint64, d time.Duration, err error) {
	c.record("check", d, err)
	if err == nil {
		c.keys.Set(float64(keys))
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.opLatency.Describe(ch)
	c.ops.Describe(ch)
	c.errors.Describe(ch)
	c.datasets.Describe(ch)
	c.hashes.Describe(ch)
	c.matches.Describe(ch)
	c.rounds.Describe(ch)
	c.keys.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.opLatency.Collect(ch)
	c.ops.Collect(ch)
	c.errors.Collect(ch)
	c.datasets.Collect(ch)
	c.hashes.Collect(ch)
	c.matches.Collect(ch)
	c.rounds.Collect(ch)
	c.keys.Collect(ch)
}
