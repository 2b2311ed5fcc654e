// Package awooidx ties blobstore, loader, index, and search together into
// a single convenience entry point: Open (or Load, for a blob a caller
// already has open) resolves an Awoo-format file into a queryable Engine.
package awooidx

import (
	"context"
	"time"

	"github.com/awooidx/awooidx/blobstore"
	"github.com/awooidx/awooidx/core"
	"github.com/awooidx/awooidx/index"
	"github.com/awooidx/awooidx/loader"
	"github.com/awooidx/awooidx/metrics"
	"github.com/awooidx/awooidx/search"
)

// Engine is a loaded index ready to answer conjunctive tag queries. It is
// immutable and safe for concurrent use by multiple goroutines once Open
// or Load returns.
type Engine struct {
	ix          *index.Index
	intersector *search.Intersector
}

// Open opens name through store and loads it into an Engine.
func Open(ctx context.Context, store blobstore.BlobStore, name string, opts ...Option) (*Engine, error) {
	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, translateError(err)
	}
	defer blob.Close()
	return Load(ctx, blob, opts...)
}

// Load builds an Engine from a blob the caller already has open.
func Load(ctx context.Context, blob blobstore.Blob, opts ...Option) (*Engine, error) {
	var cfg engineConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = NoopLogger()
	}
	if cfg.metrics == nil {
		cfg.metrics = metrics.NoopCollector{}
	}

	l := loader.New(cfg.loaderOpts...)

	start := time.Now()
	ix, err := l.Load(ctx, blob)
	duration := time.Since(start)

	tagCount, denseTagCount := 0, 0
	if ix != nil {
		tagCount, denseTagCount = ix.TagCount(), ix.DenseTagCount()
	}
	cfg.logger.LogLoad(ctx, tagCount, denseTagCount, duration, err)
	cfg.metrics.RecordLoad(tagCount, denseTagCount, duration, err)
	if err != nil {
		return nil, translateError(err)
	}

	return &Engine{
		ix:          ix,
		intersector: search.New(ix, cfg.searchOpts...),
	}, nil
}

// Search returns the sorted list of item ids tagged by every tag in
// tagIDs. See search.Intersector.Search for the exact contract.
func (e *Engine) Search(ctx context.Context, tagIDs []core.TagId) ([]core.ItemId, error) {
	result, err := e.intersector.Search(ctx, tagIDs)
	return result, translateError(err)
}

// Index returns the underlying loaded Index, for callers that need
// TagCount, MaxID, or DenseTagCount without going through Search.
func (e *Engine) Index() *index.Index {
	return e.ix
}

// Verify reads blob and returns the first error a real Load would raise,
// without materializing an Engine. Useful for offline QA of a freshly
// built file.
func Verify(ctx context.Context, blob blobstore.Blob, opts ...Option) error {
	var cfg engineConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = NoopLogger()
	}

	l := loader.New(cfg.loaderOpts...)
	start := time.Now()
	err := l.Verify(ctx, blob)
	cfg.logger.LogVerify(ctx, time.Since(start), err)
	return translateError(err)
}
