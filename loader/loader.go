// Package loader implements IndexLoader: it turns a blobstore.Blob holding
// an Awoo-format file into a fully built, immutable *index.Index.
package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/awooidx/awooidx/bitmap"
	"github.com/awooidx/awooidx/blobstore"
	"github.com/awooidx/awooidx/core"
	"github.com/awooidx/awooidx/index"
	"github.com/awooidx/awooidx/persistence"
)

// DefaultDenseThreshold is the post_count at and above which a tag is
// stored as a Dense bitmap rather than a sorted Ids posting list.
const DefaultDenseThreshold = 50_000

// DefaultConcurrency bounds how many tags are decoded concurrently when a
// caller does not supply WithConcurrency.
const DefaultConcurrency = 8

var (
	// ErrBadMagic is returned when a file's leading bytes aren't "Awoo",
	// once any transport-level decompression has already been undone.
	ErrBadMagic = errors.New("loader: bad magic bytes")

	// ErrTruncated is returned when a file ends before a count or
	// posting region it declared is fully present.
	ErrTruncated = errors.New("loader: truncated index file")

	// ErrAllocationFailure is returned when the file's declared counts
	// would require an allocation large enough that it is treated as a
	// corrupt or hostile file rather than attempted.
	ErrAllocationFailure = errors.New("loader: refusing to allocate for implausible header counts")

	// ErrCrossValidationFailed is returned when a Dense tag's decoded
	// bitmap disagrees with an independently rebuilt roaring bitmap over
	// the same postings, indicating corruption rather than an implausible
	// header.
	ErrCrossValidationFailed = errors.New("loader: bitmap disagrees with roaring cross-validation")
)

// InvalidPostingError indicates a tag's posting list is not strictly
// increasing, or contains an id greater than the file's max_id.
type InvalidPostingError struct {
	Tag    core.TagId
	Index  int
	Value  uint32
	Bound  uint32
	Reason string
}

func (e *InvalidPostingError) Error() string {
	return fmt.Sprintf("loader: tag %d posting[%d]=%d invalid: %s (bound %d)",
		e.Tag, e.Index, e.Value, e.Reason, e.Bound)
}

// ProgressFunc is called after each tag's postings have been decoded, with
// the number of tags done and the total tag count.
type ProgressFunc func(done, total int)

type config struct {
	denseThreshold int
	concurrency    int
	decompress     bool
	roaringEvery   int // cross-validate every Nth dense tag; 0 disables
	progress       ProgressFunc
	readLimiter    *rate.Limiter
}

// Option configures a Loader.
type Option func(*config)

// WithDenseThreshold overrides the post_count at which a tag switches
// from an Ids posting list to a Dense bitmap. The default is
// DefaultDenseThreshold.
func WithDenseThreshold(n int) Option {
	return func(c *config) { c.denseThreshold = n }
}

// WithConcurrency bounds how many tags' postings are decoded concurrently.
func WithConcurrency(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithDecompression enables transparent zstd/LZ4 decompression of the
// blob's bytes before the "Awoo" magic is checked, for blob stores that
// wrap the logical file format in a compressed transport envelope.
func WithDecompression(enabled bool) Option {
	return func(c *config) { c.decompress = enabled }
}

// WithRoaringCrossValidation enables a belt-and-suspenders corruption
// check: the decoded bitmap of every Dense tag whose tag id is a multiple
// of every is independently rebuilt as a github.com/RoaringBitmap/roaring/v2
// bitmap and compared by cardinality and contents. Disabled by default since it roughly doubles
// the cost of decoding the tags it samples.
func WithRoaringCrossValidation(every int) Option {
	return func(c *config) { c.roaringEvery = every }
}

// WithProgress registers a callback invoked after each tag is decoded.
func WithProgress(fn ProgressFunc) Option {
	return func(c *config) { c.progress = fn }
}

// WithReadRateLimit caps how many bytes per second Load pulls from a
// non-mmapped blob (S3, MinIO), so loading a large index doesn't
// saturate a link shared with other traffic. Local blobs opened through
// blobstore.Mappable bypass this limiter entirely, since they're read via
// a zero-copy mapping rather than a sequence of network reads.
func WithReadRateLimit(bytesPerSec int) Option {
	return func(c *config) {
		if bytesPerSec > 0 {
			c.readLimiter = rate.NewLimiter(rate.Limit(bytesPerSec), bytesPerSec)
		}
	}
}

// Loader reads Awoo-format index files through a blobstore.Blob.
type Loader struct {
	cfg config
}

// New creates a Loader with the given options applied over sane defaults.
func New(opts ...Option) *Loader {
	l := &Loader{cfg: config{
		denseThreshold: DefaultDenseThreshold,
		concurrency:    DefaultConcurrency,
	}}
	for _, opt := range opts {
		opt(&l.cfg)
	}
	return l
}

// Load reads blob and returns a fully built Index, or the first error
// encountered. No partially built Index is ever returned: on error the
// return value is always nil.
func (l *Loader) Load(ctx context.Context, blob blobstore.Blob) (*index.Index, error) {
	return l.run(ctx, blob, false)
}

// Verify reads blob and returns the first error that a real Load would
// raise, without materializing posting lists or bitmaps. Useful for
// offline QA of a freshly built file.
func (l *Loader) Verify(ctx context.Context, blob blobstore.Blob) error {
	_, err := l.run(ctx, blob, true)
	return err
}

func (l *Loader) run(ctx context.Context, blob blobstore.Blob, verifyOnly bool) (*index.Index, error) {
	data, err := readAll(ctx, blob, l.cfg.readLimiter)
	if err != nil {
		return nil, err
	}

	if l.cfg.decompress {
		data, err = maybeDecompress(data)
		if err != nil {
			return nil, fmt.Errorf("loader: decompressing blob: %w", err)
		}
	}

	sr := persistence.NewSliceReader(data)
	header, err := sr.ReadHeader()
	if err != nil {
		return nil, translateError(err)
	}

	tagCount := int(header.TagCount)
	remaining := len(data) - sr.Offset()
	if tagCount < 0 || uint64(tagCount) > uint64(remaining)/4 {
		return nil, fmt.Errorf("%w: tag_count %d implies a post_count table larger than the remaining %d bytes",
			ErrAllocationFailure, header.TagCount, remaining)
	}

	postCounts, err := sr.ReadUint32SliceCopy(tagCount)
	if err != nil {
		return nil, translateError(err)
	}

	offsets := make([]int64, tagCount)
	base := int64(sr.Offset())
	var cursor int64
	for t, count := range postCounts {
		offsets[t] = base + cursor
		cursor += int64(count) * 4
	}
	if base+cursor != int64(len(data)) {
		return nil, fmt.Errorf("%w: postings region is %d bytes, file declares %d",
			ErrTruncated, int64(len(data))-base, cursor)
	}

	entries := make([]index.TagEntry, tagCount)
	var universe uint32
	if !verifyOnly {
		numWords := (header.MaxID + 1 + bitmap.WordBits - 1) / bitmap.WordBits
		numWords = ((numWords + bitmap.BlockWords - 1) / bitmap.BlockWords) * bitmap.BlockWords
		universe = numWords * bitmap.WordBits
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.cfg.concurrency)

	var done atomic.Int64
	for t := 0; t < tagCount; t++ {
		t := t
		count := int(postCounts[t])
		if count == 0 {
			entries[t] = index.EmptyEntry()
			if l.cfg.progress != nil {
				l.cfg.progress(int(done.Add(1)), tagCount)
			}
			continue
		}

		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			ids, err := postingsView(data, offsets[t], count)
			if err != nil {
				return translateError(err)
			}
			if err := validatePostings(core.TagId(t), ids, header.MaxID); err != nil {
				return err
			}

			if !verifyOnly {
				if count >= l.cfg.denseThreshold {
					b := bitmap.New(universe)
					b.AddMany(ids)
					if l.cfg.roaringEvery > 0 && t%l.cfg.roaringEvery == 0 {
						if err := crossValidate(b, ids); err != nil {
							return err
						}
					}
					entries[t] = index.NewDenseEntry(b, count)
				} else {
					owned := make([]uint32, len(ids))
					copy(owned, ids)
					entries[t] = index.NewIdsEntry(uint32ToItemIds(owned))
				}
			}

			if l.cfg.progress != nil {
				l.cfg.progress(int(done.Add(1)), tagCount)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if verifyOnly {
		return nil, nil
	}
	return index.New(core.ItemId(header.MaxID), entries), nil
}

// readAll returns the blob's full contents, preferring a zero-copy view
// through blobstore.Mappable when the blob supports it.
func readAll(ctx context.Context, blob blobstore.Blob, limiter *rate.Limiter) ([]byte, error) {
	if m, ok := blob.(blobstore.Mappable); ok {
		return m.Bytes()
	}
	size := blob.Size()
	buf := make([]byte, size)
	if _, err := io.ReadFull(&blobReaderAt{ctx: ctx, blob: blob, limiter: limiter}, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// blobReaderAt adapts blobstore.Blob.ReadAt to io.Reader for sequential
// whole-file reads from a non-mappable store (S3, MinIO), optionally
// throttled by limiter.
type blobReaderAt struct {
	ctx     context.Context
	blob    blobstore.Blob
	off     int64
	limiter *rate.Limiter
}

func (r *blobReaderAt) Read(p []byte) (int, error) {
	if r.limiter != nil {
		if burst := r.limiter.Burst(); len(p) > burst {
			p = p[:burst]
		}
	}
	n, err := r.blob.ReadAt(r.ctx, p, r.off)
	r.off += int64(n)
	if n > 0 && r.limiter != nil {
		if waitErr := r.limiter.WaitN(r.ctx, n); waitErr != nil {
			return n, waitErr
		}
	}
	return n, err
}

// postingsView decodes count little-endian uint32 values starting at
// offset within data, as a zero-copy view.
func postingsView(data []byte, offset int64, count int) ([]uint32, error) {
	sr := persistence.NewSliceReader(data[offset:])
	return sr.ReadUint32SliceView(count)
}

func validatePostings(tag core.TagId, ids []uint32, maxID uint32) error {
	var prev uint32
	for i, id := range ids {
		if id > maxID {
			return &InvalidPostingError{Tag: tag, Index: i, Value: id, Bound: maxID, Reason: "exceeds max_id"}
		}
		if i > 0 && id <= prev {
			return &InvalidPostingError{Tag: tag, Index: i, Value: id, Bound: prev, Reason: "not strictly increasing"}
		}
		prev = id
	}
	return nil
}

// crossValidate independently rebuilds ids as a roaring bitmap, populates
// a scratch Bitmap from it, and compares that scratch against b: a
// disagreement means the Dense tag's decoded bitmap doesn't actually
// match its own source postings.
func crossValidate(b *bitmap.Bitmap, ids []uint32) error {
	rb := roaring.BitmapOf(ids...)

	scratch := bitmap.New(b.UniverseSize())
	scratch.PopulateFromRoaring(rb)

	if b.Cardinality() != scratch.Cardinality() {
		return fmt.Errorf("%w: bitmap cardinality %d disagrees with roaring-rebuilt cardinality %d",
			ErrCrossValidationFailed, b.Cardinality(), scratch.Cardinality())
	}

	var mismatch bool
	scratch.ForEach(func(id uint32) bool {
		if !b.Contains(id) {
			mismatch = true
			return false
		}
		return true
	})
	if mismatch {
		return fmt.Errorf("%w: bitmap contents disagree with roaring-rebuilt bitmap",
			ErrCrossValidationFailed)
	}
	return nil
}

func uint32ToItemIds(ids []uint32) []core.ItemId {
	out := make([]core.ItemId, len(ids))
	for i, id := range ids {
		out[i] = core.ItemId(id)
	}
	return out
}

var (
	zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}
	lz4Magic  = []byte{0x04, 0x22, 0x4D, 0x18}
)

// maybeDecompress undoes a zstd or LZ4 frame wrapping the logical Awoo
// file, detected by magic sniffing, leaving data untouched if neither
// magic matches.
func maybeDecompress(data []byte) ([]byte, error) {
	switch {
	case bytes.HasPrefix(data, zstdMagic):
		dec, err := zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return io.ReadAll(dec)
	case bytes.HasPrefix(data, lz4Magic):
		return io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
	default:
		return data, nil
	}
}

// translateError maps persistence-level decode errors onto this package's
// exported error kinds.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrInvalidMagic) {
		return fmt.Errorf("%w: %w", ErrBadMagic, err)
	}
	if errors.Is(err, persistence.ErrTruncated) {
		return fmt.Errorf("%w: %w", ErrTruncated, err)
	}
	if errors.Is(err, persistence.ErrInvalidPosting) {
		return fmt.Errorf("%w: %w", ErrTruncated, err)
	}
	return err
}
