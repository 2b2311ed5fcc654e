// Package search implements the conjunctive query core: given an Index
// and a set of tag ids, return the sorted item ids tagged by every one of
// them.
package search

import (
	"context"
	"errors"
	"log/slog"
	"time"
	"unsafe"

	"github.com/awooidx/awooidx/bitmap"
	"github.com/awooidx/awooidx/core"
	"github.com/awooidx/awooidx/index"
	"github.com/awooidx/awooidx/metrics"
	"github.com/awooidx/awooidx/query"
)

// ErrEmptyQuery is returned when Search is called with no tag ids.
var ErrEmptyQuery = errors.New("search: query must contain at least one tag")

// Intersector runs conjunctive queries against one Index. It owns a pool
// of working bitmaps sized for that Index's id space, so repeated queries
// reuse working bitmaps instead of allocating new ones; each query still
// allocates its plan and its result slice.
type Intersector struct {
	ix      *index.Index
	pool    *bitmap.Pool
	logger  *slog.Logger
	metrics metrics.Collector
}

// Option configures an Intersector.
type Option func(*Intersector)

// WithLogger sets the structured logger used to report completed
// searches. The default discards all output.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Intersector) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector used to report completed
// searches. The default is a no-op collector.
func WithMetrics(m metrics.Collector) Option {
	return func(s *Intersector) {
		if m != nil {
			s.metrics = m
		}
	}
}

// New creates an Intersector over ix.
func New(ix *index.Index, opts ...Option) *Intersector {
	numWords := ix.BitmapWordCount()
	universe := uint32(numWords) * bitmap.WordBits

	s := &Intersector{
		ix:      ix,
		pool:    bitmap.NewPool(universe),
		logger:  slog.New(slog.DiscardHandler),
		metrics: metrics.NoopCollector{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search returns the sorted, deduplicated list of item ids tagged by
// every tag in tagIDs. tagIDs must contain at least one id; each must be
// < ix.TagCount(), or Search returns an *index.BadTagIDError.
//
// ctx is checked once between each folded tag, never inside a word loop,
// so cancellation costs nothing on the hot path but still takes effect
// promptly on a query over many tags. Search performs no I/O, so ctx is
// never passed to a blocking call.
func (s *Intersector) Search(ctx context.Context, tagIDs []core.TagId) ([]core.ItemId, error) {
	start := time.Now()

	if len(tagIDs) == 0 {
		return nil, ErrEmptyQuery
	}

	ordered, err := query.Plan(s.ix, tagIDs)
	if err != nil {
		return nil, err
	}

	result, seedKind, err := s.search(ctx, ordered)
	duration := time.Since(start)

	s.metrics.RecordSearch(len(tagIDs), len(result), duration, err)
	if err != nil {
		s.logger.ErrorContext(ctx, "search failed", "tags", len(tagIDs), "error", err)
	} else {
		s.logger.DebugContext(ctx, "search completed",
			"tags", len(tagIDs),
			"results", len(result),
			"seed", seedKind.String(),
			"duration", duration,
		)
	}
	return result, err
}

// search runs the unordered core algorithm against an already
// selectivity-ordered tag list, returning the result and the Kind that
// seeded the working bitmap (for logging).
func (s *Intersector) search(ctx context.Context, ordered []core.TagId) ([]core.ItemId, index.Kind, error) {
	first, err := s.ix.Get(ordered[0])
	if err != nil {
		return nil, index.Empty, err
	}
	if first.Kind == index.Empty {
		return nil, index.Empty, nil
	}

	if len(ordered) == 1 {
		return s.materializeSingle(first), first.Kind, nil
	}

	w := s.pool.Get()
	defer s.pool.Put(w)

	scratch := s.pool.Get()
	defer s.pool.Put(scratch)

	seedEntry(w, first)

	for _, tag := range ordered[1:] {
		select {
		case <-ctx.Done():
			return nil, first.Kind, ctx.Err()
		default:
		}

		e, err := s.ix.Get(tag)
		if err != nil {
			return nil, first.Kind, err
		}
		if e.Kind == index.Empty {
			return nil, first.Kind, nil
		}

		foldInto(w, scratch, e)

		if w.IsEmpty() {
			return nil, first.Kind, nil
		}
	}

	return uint32ToItemIds(w.ToSlice(nil)), first.Kind, nil
}

// materializeSingle handles the single-tag query fast path: the result is
// exactly that tag's items, already sorted.
func (s *Intersector) materializeSingle(e index.TagEntry) []core.ItemId {
	switch e.Kind {
	case index.Ids:
		out := make([]core.ItemId, len(e.Postings()))
		copy(out, e.Postings())
		return out
	case index.Dense:
		return uint32ToItemIds(e.Bitmap().ToSlice(nil))
	default:
		return nil
	}
}

// seedEntry initializes w (already Clear from the pool) from e, the first
// (most selective) tag in the plan.
func seedEntry(w *bitmap.Bitmap, e index.TagEntry) {
	switch e.Kind {
	case index.Ids:
		w.AddMany(idsToUint32(e.Postings()))
	case index.Dense:
		w.CopyFrom(e.Bitmap())
	}
}

// foldInto applies w &= items(e), using scratch as working storage when e
// is an Ids tag. Folding an Ids tag by setting its bits directly into a
// shared scratch bitmap and then AND-ing that into w is always correct,
// unlike an in-place "AND each word with a single id's bit" reduction,
// which only works when the tag has at most one id per 64-bit word.
func foldInto(w, scratch *bitmap.Bitmap, e index.TagEntry) {
	switch e.Kind {
	case index.Dense:
		w.And(e.Bitmap())
	case index.Ids:
		scratch.Clear()
		scratch.AddMany(idsToUint32(e.Postings()))
		w.And(scratch)
	}
}

// idsToUint32 reinterprets a []core.ItemId as []uint32 without copying.
// Safe because core.ItemId is defined as `type ItemId uint32`, so the two
// types share identical size, alignment, and representation.
func idsToUint32(ids []core.ItemId) []uint32 {
	if len(ids) == 0 {
		return nil
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(&ids[0])), len(ids)) //nolint:gosec
}

// uint32ToItemIds reinterprets a []uint32 as []core.ItemId without
// copying. Only safe for a freshly materialized, uniquely owned slice
// such as Bitmap.ToSlice's result; never call it on a view into data the
// caller doesn't own.
func uint32ToItemIds(ids []uint32) []core.ItemId {
	if len(ids) == 0 {
		return nil
	}
	return unsafe.Slice((*core.ItemId)(unsafe.Pointer(&ids[0])), len(ids)) //nolint:gosec
}
