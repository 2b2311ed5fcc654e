// Package blobstore abstracts the byte-range-addressable source an Index
// is loaded from, so IndexLoader does not need to know whether the file
// lives on local disk, in memory, or in an object store.
package blobstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a named blob does not exist.
//
// Implementations should return an error that satisfies
// errors.Is(err, ErrNotFound).
var ErrNotFound = errors.New("blobstore: blob not found")

// BlobStore is an abstraction for reading immutable index files.
//
// There is deliberately no write path: the index is built offline and is
// immutable at query time, so every BlobStore implementation in this
// module is read-only.
type BlobStore interface {
	// Open opens a blob for reading.
	Open(ctx context.Context, name string) (Blob, error)
}

// Blob is a read-only, byte-range-addressable handle to a blob.
type Blob interface {
	// ReadAt reads len(p) bytes starting at offset off, following the
	// io.ReaderAt contract except for the added context, which backends
	// that perform network I/O use for cancellation.
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
	Close() error
	// Size returns the size of the blob in bytes.
	Size() int64
}

// Mappable is an optional interface for Blobs that can hand back their
// entire contents as a single byte slice without copying, such as a
// memory-mapped local file.
type Mappable interface {
	// Bytes returns the underlying byte slice. The slice is valid until
	// the Blob is closed.
	Bytes() ([]byte, error)
}
