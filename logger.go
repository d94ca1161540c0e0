package revindex

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with the attribute names index operations use.
type Logger struct {
	*slog.Logger
}

// NewLogger wraps handler. A nil handler logs text at info level to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		return NewTextLogger(slog.LevelInfo)
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewJSONLogger logs JSON records at level and above to stderr.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewTextLogger logs key=value records at level and above to stderr.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NoopLogger discards everything. It is the default.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// WithPath adds the index location to the logger.
func (l *Logger) WithPath(path string) *Logger {
	return &Logger{
		Logger: l.Logger.With("path", path),
	}
}

// LogCreate logs an index build.
func (l *Logger) LogCreate(ctx context.Context, datasets, hashes int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "create failed",
			"datasets", datasets,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "index created",
			"datasets", datasets,
			"hashes", hashes,
		)
	}
}

// LogUpdate logs an index update.
func (l *Logger) LogUpdate(ctx context.Context, added, total int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "update failed",
			"added", added,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "index updated",
			"added", added,
			"datasets", total,
		)
	}
}

// LogGather logs a gather decomposition.
func (l *Logger) LogGather(ctx context.Context, queryHashes, matches int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "gather failed",
			"query_hashes", queryHashes,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "gather completed",
			"query_hashes", queryHashes,
			"matches", matches,
		)
	}
}

// LogCheck logs a consistency check.
func (l *Logger) LogCheck(ctx context.Context, quick bool, stats *DBStats, err error) {
	if err != nil {
		l.ErrorContext(ctx, "check failed",
			"quick", quick,
			"error", err,
		)
		return
	}
	attrs := []any{
		"quick", quick,
		"total_keys", stats.TotalKeys,
		"kcount", stats.KCount,
		"vcount", stats.VCount,
	}
	if !quick {
		attrs = append(attrs,
			"total_datasets", stats.TotalDatasets,
			"histogram", stats.Histogram.String(),
		)
	}
	l.InfoContext(ctx, "check completed", attrs...)
}

// LogInternalize logs the embedding of dataset storage.
func (l *Logger) LogInternalize(ctx context.Context, spec string, blobs int, bytes int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "internalize failed",
			"blobs", blobs,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "storage internalized",
			"spec", spec,
			"blobs", blobs,
			"bytes", bytes,
		)
	}
}
