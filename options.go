package awooidx

import (
	"github.com/awooidx/awooidx/loader"
	"github.com/awooidx/awooidx/metrics"
	"github.com/awooidx/awooidx/search"
)

// engineConfig accumulates the options Open/Load apply before
// constructing the loader and Intersector underneath an Engine.
type engineConfig struct {
	loaderOpts []loader.Option
	searchOpts []search.Option
	logger     *Logger
	metrics    metrics.Collector
}

// Option configures Open/Load.
type Option func(*engineConfig)

// WithLogger sets the structured logger used to report the load phase
// and, transitively, every search against the resulting Engine. The
// default discards all output.
func WithLogger(l *Logger) Option {
	return func(c *engineConfig) {
		if l == nil {
			return
		}
		c.logger = l
		c.searchOpts = append(c.searchOpts, search.WithLogger(l.Logger))
	}
}

// WithMetrics sets the metrics collector used to report the load phase
// and every search. The default is a no-op collector.
func WithMetrics(m metrics.Collector) Option {
	return func(c *engineConfig) {
		if m == nil {
			return
		}
		c.metrics = m
		c.searchOpts = append(c.searchOpts, search.WithMetrics(m))
	}
}

// WithDenseThreshold overrides the post_count at which a tag is stored
// as a Dense bitmap rather than an Ids posting list. The default is
// loader.DefaultDenseThreshold (50,000).
func WithDenseThreshold(n int) Option {
	return func(c *engineConfig) { c.loaderOpts = append(c.loaderOpts, loader.WithDenseThreshold(n)) }
}

// WithLoadConcurrency bounds how many tags' postings are decoded
// concurrently during Load.
func WithLoadConcurrency(n int) Option {
	return func(c *engineConfig) { c.loaderOpts = append(c.loaderOpts, loader.WithConcurrency(n)) }
}

// WithRoaringCrossValidation enables an opt-in corruption check: every
// Dense tag whose tag id is a multiple of every is independently rebuilt
// as a Roaring bitmap and compared by cardinality and contents during load.
func WithRoaringCrossValidation(every int) Option {
	return func(c *engineConfig) {
		c.loaderOpts = append(c.loaderOpts, loader.WithRoaringCrossValidation(every))
	}
}

// WithDecompression enables transparent zstd/LZ4 decompression of the
// blob's bytes before the file format is parsed.
func WithDecompression(enabled bool) Option {
	return func(c *engineConfig) { c.loaderOpts = append(c.loaderOpts, loader.WithDecompression(enabled)) }
}

// WithLoadProgress registers a callback invoked after each tag is
// decoded during Load, with the number of tags done and the total.
func WithLoadProgress(fn loader.ProgressFunc) Option {
	return func(c *engineConfig) { c.loaderOpts = append(c.loaderOpts, loader.WithProgress(fn)) }
}

// WithReadRateLimit caps how many bytes per second Load pulls from a
// non-local blob store (S3, MinIO), leaving local mmap-backed reads
// unthrottled.
func WithReadRateLimit(bytesPerSec int) Option {
	return func(c *engineConfig) {
		c.loaderOpts = append(c.loaderOpts, loader.WithReadRateLimit(bytesPerSec))
	}
}
