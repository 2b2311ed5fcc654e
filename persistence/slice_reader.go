package persistence

import (
	"encoding/binary"
	"fmt"
	"unsafe"
)

// SliceReader provides bounds-checked reads from a byte slice, used when
// the whole index file is already available as a single []byte (a
// memory-mapped local file, or an in-memory blob): every read is a view
// into the slice rather than a copy.
type SliceReader struct {
	b   []byte
	off int
}

// NewSliceReader wraps b for bounds-checked sequential reads.
func NewSliceReader(b []byte) *SliceReader {
	return &SliceReader{b: b, off: 0}
}

// Offset returns the current read position.
func (r *SliceReader) Offset() int {
	if r == nil {
		return 0
	}
	return r.off
}

// ReadBytes returns a view of the next n bytes and advances past them.
func (r *SliceReader) ReadBytes(n int) ([]byte, error) {
	if n < 0 || r.off+n > len(r.b) {
		return nil, fmt.Errorf("%w: %d bytes at offset %d, len=%d", ErrTruncated, n, r.off, len(r.b))
	}
	out := r.b[r.off : r.off+n]
	r.off += n
	return out, nil
}

// Remaining returns a view of all unread bytes.
func (r *SliceReader) Remaining() []byte {
	if r.off >= len(r.b) {
		return nil
	}
	return r.b[r.off:]
}

// Advance skips n bytes without reading them.
func (r *SliceReader) Advance(n int) {
	r.off += n
}

// ReadHeader reads and validates the magic bytes and fixed header fields.
func (r *SliceReader) ReadHeader() (*Header, error) {
	magicBytes, err := r.ReadBytes(4)
	if err != nil {
		return nil, fmt.Errorf("%w: reading magic", ErrTruncated)
	}
	if [4]byte(magicBytes) != Magic {
		return nil, fmt.Errorf("%w: got %q", ErrInvalidMagic, magicBytes)
	}

	rest, err := r.ReadBytes(8)
	if err != nil {
		return nil, fmt.Errorf("%w: reading max_id/tag_count", ErrTruncated)
	}
	return &Header{
		MaxID:    binary.LittleEndian.Uint32(rest[0:4]),
		TagCount: binary.LittleEndian.Uint32(rest[4:8]),
	}, nil
}

// ReadUint32SliceCopy reads n little-endian uint32 values into a freshly
// allocated, owned slice.
func (r *SliceReader) ReadUint32SliceCopy(n int) ([]uint32, error) {
	if n == 0 {
		return nil, nil
	}
	bb, err := r.ReadBytes(n * 4)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, n)
	copy(unsafe.Slice((*byte)(unsafe.Pointer(&out[0])), n*4), bb) //nolint:gosec
	return out, nil
}

// ReadUint32SliceView reads n little-endian uint32 values as a zero-copy
// view into the underlying byte slice. The returned slice is valid only
// as long as the backing bytes (the mmap region, or the in-memory blob)
// are valid.
func (r *SliceReader) ReadUint32SliceView(n int) ([]uint32, error) {
	if n == 0 {
		return nil, nil
	}
	bb, err := r.ReadBytes(n * 4)
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(&bb[0])), n), nil //nolint:gosec
}
