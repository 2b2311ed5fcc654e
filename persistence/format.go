// Package persistence implements the on-disk "Awoo" index format: a
// magic header, a per-tag item-count table, and the concatenated sorted
// posting lists those counts describe.
package persistence

import "errors"

// Magic identifies an Awoo index file: ASCII "Awoo", little-endian as a
// uint32 that would print "0x6f6f7741" on a little-endian machine.
var Magic = [4]byte{'A', 'w', 'o', 'o'}

// HeaderSize is the size in bytes of the fixed portion of the header
// (magic, max_id, tag_count), before the per-tag post_count table.
const HeaderSize = 4 + 4 + 4

var (
	// ErrInvalidMagic is returned when a file's leading bytes aren't "Awoo".
	ErrInvalidMagic = errors.New("persistence: invalid magic bytes, expected \"Awoo\"")

	// ErrTruncated is returned when a file ends before a count or posting
	// region it declared is fully present.
	ErrTruncated = errors.New("persistence: truncated file")

	// ErrInvalidPosting is returned when a posting list is not strictly
	// increasing, or contains an id greater than max_id.
	ErrInvalidPosting = errors.New("persistence: invalid posting list")
)

// Header is the fixed-size prefix of an Awoo file. The variable-length
// post_count table that follows it is read separately, since its length
// depends on TagCount.
type Header struct {
	MaxID    uint32
	TagCount uint32
}
