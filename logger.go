package awooidx

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with this package's domain fields, giving
// load, search, and pointer-resolution events a consistent shape.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler. If handler is
// nil, it defaults to a text handler writing to stderr at info level.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewJSONLogger creates a Logger that emits JSON to stderr at level.
func NewJSONLogger(level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))}
}

// NewTextLogger creates a Logger that emits human-readable text to
// stderr at level.
func NewTextLogger(level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))}
}

// NoopLogger creates a Logger that discards all output.
func NoopLogger() *Logger {
	return &Logger{Logger: slog.New(slog.DiscardHandler)}
}

// LogResolve logs an activeindex pointer resolution.
func (l *Logger) LogResolve(ctx context.Context, path string, version int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "resolve failed", "error", err)
		return
	}
	l.InfoContext(ctx, "resolved active pointer", "path", path, "version", version)
}

// LogLoad logs a completed IndexLoader.Load call.
func (l *Logger) LogLoad(ctx context.Context, tagCount, denseTagCount int, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "load failed", "duration", duration, "error", err)
		return
	}
	l.InfoContext(ctx, "load completed",
		"tags", tagCount,
		"dense_tags", denseTagCount,
		"duration", duration,
	)
}

// LogSearch logs a completed Intersector.Search call.
func (l *Logger) LogSearch(ctx context.Context, queryLen, resultCount int, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed", "tags", queryLen, "duration", duration, "error", err)
		return
	}
	l.DebugContext(ctx, "search completed",
		"tags", queryLen,
		"results", resultCount,
		"duration", duration,
	)
}

// LogVerify logs a completed IndexLoader.Verify call.
func (l *Logger) LogVerify(ctx context.Context, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "verify found an error", "duration", duration, "error", err)
		return
	}
	l.InfoContext(ctx, "verify found no errors", "duration", duration)
}
