// Package index defines the loaded, immutable inverted index: a dense
// array of per-tag entries, each either empty, a sorted posting list, or a
// bitmap, addressed by TagId.
package index

import (
	"fmt"

	"github.com/awooidx/awooidx/bitmap"
	"github.com/awooidx/awooidx/core"
)

// Kind distinguishes the three ways a tag's item set can be stored.
type Kind uint8

const (
	// Empty tags have no items. The zero value, so a freshly allocated
	// TagEntry slice starts out all Empty without explicit initialization.
	Empty Kind = iota
	// Ids tags are stored as a sorted, strictly-increasing posting list.
	Ids
	// Dense tags are stored as a bitmap.
	Dense
)

func (k Kind) String() string {
	switch k {
	case Empty:
		return "empty"
	case Ids:
		return "ids"
	case Dense:
		return "dense"
	default:
		return "unknown"
	}
}

// TagEntry is a tagged union over the three representations a tag's item
// set can take. Only one of postings/dense is meaningful, selected by
// Kind; modeling it this way (rather than an interface{} payload) keeps
// the intersection inner loop a plain switch over Kind instead of a
// virtual call per tag.
type TagEntry struct {
	Kind     Kind
	postings []core.ItemId // valid iff Kind == Ids
	dense    *bitmap.Bitmap
	popcount int // item count; exact for Dense, len(postings) for Ids
}

// EmptyEntry returns the zero-item TagEntry.
func EmptyEntry() TagEntry {
	return TagEntry{Kind: Empty}
}

// NewIdsEntry wraps an already sorted, strictly-increasing posting list.
func NewIdsEntry(postings []core.ItemId) TagEntry {
	if len(postings) == 0 {
		return EmptyEntry()
	}
	return TagEntry{Kind: Ids, postings: postings, popcount: len(postings)}
}

// NewDenseEntry wraps a bitmap with its exact popcount. Callers pass
// popcount explicitly rather than recomputing it from b, since the loader
// already knows the tag's item count from the file's post_count table.
func NewDenseEntry(b *bitmap.Bitmap, popcount int) TagEntry {
	if popcount == 0 {
		return EmptyEntry()
	}
	return TagEntry{Kind: Dense, dense: b, popcount: popcount}
}

// Postings returns the entry's posting list. Valid only when Kind == Ids.
func (e TagEntry) Postings() []core.ItemId { return e.postings }

// Bitmap returns the entry's bitmap. Valid only when Kind == Dense.
func (e TagEntry) Bitmap() *bitmap.Bitmap { return e.dense }

// Popcount returns the tag's exact item count, which is 0 for Empty, the
// posting list length for Ids, and the bitmap's popcount for Dense. The
// QueryPlanner uses this as a selectivity estimate.
func (e TagEntry) Popcount() int { return e.popcount }

// Index is the loaded, immutable inverted index: every tag in
// [0, TagCount) resolves to exactly one TagEntry.
type Index struct {
	maxID    core.ItemId
	entries  []TagEntry
	numDense int
}

// New constructs an Index from already-built entries. Used by IndexLoader;
// exported so tests can build synthetic indexes without going through the
// file format.
func New(maxID core.ItemId, entries []TagEntry) *Index {
	numDense := 0
	for _, e := range entries {
		if e.Kind == Dense {
			numDense++
		}
	}
	return &Index{maxID: maxID, entries: entries, numDense: numDense}
}

// BadTagIDError indicates a query referenced a tag id outside
// [0, TagCount()).
type BadTagIDError struct {
	TagID    core.TagId
	TagCount int
}

func (e *BadTagIDError) Error() string {
	return fmt.Sprintf("index: tag id %d out of range [0, %d)", e.TagID, e.TagCount)
}

// Get returns the entry for tag, or an error if tag is out of range.
func (ix *Index) Get(tag core.TagId) (TagEntry, error) {
	if int(tag) >= len(ix.entries) {
		return TagEntry{}, &BadTagIDError{TagID: tag, TagCount: len(ix.entries)}
	}
	return ix.entries[tag], nil
}

// TagCount returns the number of tag slots.
func (ix *Index) TagCount() int { return len(ix.entries) }

// MaxID returns the highest item id present in the index.
func (ix *Index) MaxID() core.ItemId { return ix.maxID }

// DenseTagCount returns the number of tags stored as Dense, for
// observability.
func (ix *Index) DenseTagCount() int { return ix.numDense }

// BitmapWordCount returns the number of uint64 words a Bitmap sized for
// this index's id space would need, rounded up to the bitmap package's
// block granularity.
func (ix *Index) BitmapWordCount() int {
	numWords := (uint32(ix.maxID) + 1 + bitmap.WordBits - 1) / bitmap.WordBits
	numWords = ((numWords + bitmap.BlockWords - 1) / bitmap.BlockWords) * bitmap.BlockWords
	return int(numWords)
}
