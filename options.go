package revindex

import (
	"log/slog"
	"runtime"

	"github.com/hupe1980/revindex/codec"
	"github.com/hupe1980/revindex/internal/compress"
)

// DefaultBatchSize is the number of datasets one build worker indexes before
// its result joins the reduction.
const DefaultBatchSize = 16

// Compression selects how embedded dataset blobs are compressed.
type Compression string

// Supported compressions.
const (
	CompressionNone Compression = "none"
	CompressionLZ4  Compression = "lz4"
	CompressionZSTD Compression = "zstd"
)

type options struct {
	codec            codec.Codec
	metricsCollector MetricsCollector
	logger           *Logger
	workers          int
	batchSize        int
	compression      compress.Type
	ioBytesPerSec    int64
	syncWrites       bool
}

// Option configures Create, CreateEmpty and Open.
type Option func(*options)

// WithCodec configures the codec used to encode the manifest of new indexes.
// Existing indexes keep the codec they were written with.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithWorkers bounds the number of datasets indexed in parallel.
// Values <= 0 use GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithBatchSize sets how many consecutive datasets one worker indexes into
// its own color table before the tables are reduced.
func WithBatchSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// WithCompression selects the compression of blobs copied by
// InternalizeStorage. Unknown values fall back to LZ4.
func WithCompression(c Compression) Option {
	return func(o *options) {
		t, err := compress.ParseType(string(c))
		if err != nil {
			t = compress.LZ4
		}
		o.compression = t
	}
}

// WithIOLimit throttles InternalizeStorage to bytesPerSec. Zero disables the limit.
func WithIOLimit(bytesPerSec int64) Option {
	return func(o *options) {
		o.ioBytesPerSec = bytesPerSec
	}
}

// WithSyncWrites makes every commit durable before it returns.
func WithSyncWrites(enabled bool) Option {
	return func(o *options) {
		o.syncWrites = enabled
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &revindex.BasicMetricsCollector{}
//	idx, _ := revindex.Open(ctx, dir, true, "", revindex.WithMetricsCollector(metrics))
//	// ... run queries ...
//	stats := metrics.GetStats()
//	fmt.Printf("Queries: %d, Avg latency: %dns\n", stats.QueryCount, stats.QueryAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := revindex.NewJSONLogger(slog.LevelInfo)
//	idx, _ := revindex.Create(ctx, dir, coll, false, revindex.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		codec:            codec.Default,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		workers:          runtime.GOMAXPROCS(0),
		batchSize:        DefaultBatchSize,
		compression:      compress.LZ4,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.workers <= 0 {
		o.workers = runtime.GOMAXPROCS(0)
	}
	return o
}
