// Package activeindex resolves the single mutable indirection naming
// "the index file currently in service": a JSON file or DynamoDB item
// holding a Pointer. Everything downstream of the Pointer (the index file
// itself, the Index it loads into, every query against it) is immutable;
// this package is deliberately the only place a write happens, so a new
// offline build can be promoted into service without the search core
// ever performing an update.
package activeindex

import (
	"context"
	"time"
)

// Pointer names the index file currently in service.
type Pointer struct {
	// Path is the blob name IndexLoader should open, interpreted by
	// whichever blobstore.BlobStore the caller resolved separately.
	Path string
	// Version is a monotonically increasing counter, bumped on every
	// Promote. Used to detect a stale read racing a concurrent promotion.
	Version int64
	// UpdatedAt records when this Pointer was last promoted.
	UpdatedAt time.Time
}

// Resolver reads the current Pointer.
type Resolver interface {
	Resolve(ctx context.Context) (Pointer, error)
}

// Promoter atomically replaces the current Pointer. A Promoter is also
// always a Resolver, since promoting requires reading the prior version.
type Promoter interface {
	Resolver
	Promote(ctx context.Context, path string) (Pointer, error)
}
