// Package bitmap provides the word-aligned, block-tracked bitset used both
// to store a Dense tag's item set and as the per-query working bitmap the
// search package folds tags into.
//
// A Bitmap is organized into 512-bit blocks (eight uint64 words) with a
// second-level "active block" mask: one bit per block, set iff the block
// has any bit set. AND, materialization, and clearing all skip over blocks
// whose active bit is clear, so a Bitmap that is mostly empty (the common
// case for a per-query working bitmap midway through a fold) costs close
// to nothing to scan.
package bitmap

import (
	"math/bits"
	"sync"

	"github.com/awooidx/awooidx/internal/mem"
	"github.com/awooidx/awooidx/internal/simd"
)

// BlockWords is the number of uint64 words per block (512 bits = 64 bytes,
// a cache line and also the width of an AVX-512 SIMD lane).
const BlockWords = 8

// WordBits is the number of bits per word.
const WordBits = 64

// BlockBits is the number of bits per block.
const BlockBits = BlockWords * WordBits

// blocksPerMaskWord is the number of blocks tracked per activeBlocks word.
const blocksPerMaskWord = 64

// Bitmap is a bitset over the item id space [0, universeSize).
type Bitmap struct {
	words          []uint64
	activeBlocks   []uint64
	blockPopcounts []uint16
	universeSize   uint32
	cardinality    int // -1 means "needs recomputing"
	pooled         bool
}

// New creates a Bitmap large enough to hold ids in [0, universeSize).
func New(universeSize uint32) *Bitmap {
	numWords := (universeSize + WordBits - 1) / WordBits
	numWords = ((numWords + BlockWords - 1) / BlockWords) * BlockWords
	numBlocks := int(numWords / BlockWords)
	numMaskWords := (numBlocks + blocksPerMaskWord - 1) / blocksPerMaskWord

	return &Bitmap{
		words:          mem.AllocAlignedUint64(int(numWords)),
		activeBlocks:   make([]uint64, numMaskWords),
		blockPopcounts: make([]uint16, numBlocks),
		universeSize:   universeSize,
		cardinality:    0,
	}
}

//go:nosplit
func (b *Bitmap) setBlockActive(blockIdx int) {
	b.activeBlocks[blockIdx/blocksPerMaskWord] |= uint64(1) << (blockIdx % blocksPerMaskWord)
}

//go:nosplit
func (b *Bitmap) clearBlockActive(blockIdx int) {
	b.activeBlocks[blockIdx/blocksPerMaskWord] &^= uint64(1) << (blockIdx % blocksPerMaskWord)
}

//go:nosplit
func (b *Bitmap) invalidateBlockPopcount(blockIdx int) {
	b.blockPopcounts[blockIdx] = 0xFFFF
}

// Clear zeroes every set bit. Only touches active blocks, so clearing a
// sparsely populated bitmap (the common state of a pooled working bitmap
// between queries) is cheap.
func (b *Bitmap) Clear() {
	for maskIdx, mask := range b.activeBlocks {
		for mask != 0 {
			bit := bits.TrailingZeros64(mask)
			blockIdx := maskIdx*blocksPerMaskWord + bit
			start := blockIdx * BlockWords
			for i := start; i < start+BlockWords; i++ {
				b.words[i] = 0
			}
			b.blockPopcounts[blockIdx] = 0
			mask &= mask - 1
		}
		b.activeBlocks[maskIdx] = 0
	}
	b.cardinality = 0
}

// Add sets a single bit. Ids at or beyond the universe size are ignored.
func (b *Bitmap) Add(id uint32) {
	if id >= b.universeSize {
		return
	}
	wordIdx := id / WordBits
	b.words[wordIdx] |= uint64(1) << (id % WordBits)
	blockIdx := int(wordIdx / BlockWords)
	b.setBlockActive(blockIdx)
	b.invalidateBlockPopcount(blockIdx)
	b.cardinality = -1
}

// AddMany sets every id in ids, which need not be sorted. Ids at or beyond
// the universe size are ignored. This is the usual way a Dense tag's
// bitmap is populated from its decoded posting list at load time.
func (b *Bitmap) AddMany(ids []uint32) {
	if len(ids) == 0 {
		return
	}
	lastBlockIdx := -1
	for _, id := range ids {
		if id >= b.universeSize {
			continue
		}
		wordIdx := id / WordBits
		b.words[wordIdx] |= uint64(1) << (id % WordBits)
		blockIdx := int(wordIdx / BlockWords)
		if blockIdx != lastBlockIdx {
			b.setBlockActive(blockIdx)
			b.invalidateBlockPopcount(blockIdx)
			lastBlockIdx = blockIdx
		}
	}
	b.cardinality = -1
}

// Contains reports whether id is set.
func (b *Bitmap) Contains(id uint32) bool {
	if id >= b.universeSize {
		return false
	}
	return b.words[id/WordBits]&(uint64(1)<<(id%WordBits)) != 0
}

// IsEmpty reports whether no bit is set. Cheaper than Cardinality() == 0
// since it only has to find one active block, not count every bit.
func (b *Bitmap) IsEmpty() bool {
	if b.cardinality >= 0 {
		return b.cardinality == 0
	}
	for _, mask := range b.activeBlocks {
		if mask != 0 {
			return false
		}
	}
	b.cardinality = 0
	return true
}

func (b *Bitmap) computeBlockPopcount(blockIdx int) uint16 {
	if b.blockPopcounts[blockIdx] != 0xFFFF {
		return b.blockPopcounts[blockIdx]
	}
	start := blockIdx * BlockWords
	count := 0
	for i := start; i < start+BlockWords; i++ {
		count += bits.OnesCount64(b.words[i])
	}
	b.blockPopcounts[blockIdx] = uint16(count)
	return uint16(count)
}

// Cardinality returns the number of set bits, i.e. the popcount. For a
// Dense TagEntry this is the tag's item count.
func (b *Bitmap) Cardinality() int {
	if b.cardinality >= 0 {
		return b.cardinality
	}
	count := 0
	for maskIdx, mask := range b.activeBlocks {
		for mask != 0 {
			bit := bits.TrailingZeros64(mask)
			blockIdx := maskIdx*blocksPerMaskWord + bit
			count += int(b.computeBlockPopcount(blockIdx))
			mask &= mask - 1
		}
	}
	b.cardinality = count
	return count
}

// And performs in-place intersection: b = b AND other. Blocks inactive in
// either operand are skipped or cleared without touching their words,
// which is what makes repeated folds into a mostly-empty working bitmap
// cheap rather than O(universe) per fold.
func (b *Bitmap) And(other *Bitmap) {
	numMaskWords := min(len(b.activeBlocks), len(other.activeBlocks))

	for maskIdx := 0; maskIdx < numMaskWords; maskIdx++ {
		activeMask := b.activeBlocks[maskIdx] & other.activeBlocks[maskIdx]
		deadMask := b.activeBlocks[maskIdx] &^ other.activeBlocks[maskIdx]

		for deadMask != 0 {
			bit := bits.TrailingZeros64(deadMask)
			blockIdx := maskIdx*blocksPerMaskWord + bit
			start := blockIdx * BlockWords
			for i := start; i < start+BlockWords; i++ {
				b.words[i] = 0
			}
			b.blockPopcounts[blockIdx] = 0
			deadMask &= deadMask - 1
		}

		for activeMask != 0 {
			bit := bits.TrailingZeros64(activeMask)
			blockIdx := maskIdx*blocksPerMaskWord + bit
			start := blockIdx * BlockWords

			simd.AndWords(b.words[start:start+BlockWords], other.words[start:start+BlockWords])

			empty := true
			for i := start; i < start+BlockWords; i++ {
				if b.words[i] != 0 {
					empty = false
					break
				}
			}
			if empty {
				b.clearBlockActive(blockIdx)
				b.blockPopcounts[blockIdx] = 0
			} else {
				b.invalidateBlockPopcount(blockIdx)
			}

			activeMask &= activeMask - 1
		}

		b.activeBlocks[maskIdx] &= other.activeBlocks[maskIdx]
	}

	for maskIdx := numMaskWords; maskIdx < len(b.activeBlocks); maskIdx++ {
		mask := b.activeBlocks[maskIdx]
		for mask != 0 {
			bit := bits.TrailingZeros64(mask)
			blockIdx := maskIdx*blocksPerMaskWord + bit
			start := blockIdx * BlockWords
			for i := start; i < start+BlockWords; i++ {
				b.words[i] = 0
			}
			b.blockPopcounts[blockIdx] = 0
			mask &= mask - 1
		}
		b.activeBlocks[maskIdx] = 0
	}

	b.cardinality = -1
}

// ForEach calls fn once per set bit in ascending order, stopping early if
// fn returns false.
func (b *Bitmap) ForEach(fn func(uint32) bool) {
	for maskIdx, mask := range b.activeBlocks {
		for mask != 0 {
			bit := bits.TrailingZeros64(mask)
			blockIdx := maskIdx*blocksPerMaskWord + bit

			start := blockIdx * BlockWords
			baseID := uint32(start * WordBits)

			for w := start; w < start+BlockWords; w++ {
				word := b.words[w]
				for word != 0 {
					bitPos := bits.TrailingZeros64(word)
					if !fn(baseID + uint32(bitPos)) {
						return
					}
					word &= word - 1
				}
				baseID += WordBits
			}

			mask &= mask - 1
		}
	}
}

// ToSlice appends every set bit, in ascending order, to dst and returns
// the result.
func (b *Bitmap) ToSlice(dst []uint32) []uint32 {
	card := b.Cardinality()
	if cap(dst)-len(dst) < card {
		grown := make([]uint32, len(dst), len(dst)+card)
		copy(grown, dst)
		dst = grown
	}
	b.ForEach(func(id uint32) bool {
		dst = append(dst, id)
		return true
	})
	return dst
}

// CopyFrom overwrites b's contents with src's, growing b's storage if
// src's universe is larger. Used to seed the working bitmap from a Dense
// tag without mutating the tag's own storage.
func (b *Bitmap) CopyFrom(src *Bitmap) {
	if len(src.words) > len(b.words) {
		b.words = mem.AllocAlignedUint64(len(src.words))
	}
	if len(src.activeBlocks) > len(b.activeBlocks) {
		b.activeBlocks = make([]uint64, len(src.activeBlocks))
	}
	if len(src.blockPopcounts) > len(b.blockPopcounts) {
		b.blockPopcounts = make([]uint16, len(src.blockPopcounts))
	}

	n := copy(b.words, src.words)
	for i := n; i < len(b.words); i++ {
		b.words[i] = 0
	}
	nm := copy(b.activeBlocks, src.activeBlocks)
	for i := nm; i < len(b.activeBlocks); i++ {
		b.activeBlocks[i] = 0
	}
	nb := copy(b.blockPopcounts, src.blockPopcounts)
	for i := nb; i < len(b.blockPopcounts); i++ {
		b.blockPopcounts[i] = 0
	}

	if src.universeSize > b.universeSize {
		b.universeSize = src.universeSize
	}
	b.cardinality = src.cardinality
}

// UniverseSize returns the id space's exclusive upper bound.
func (b *Bitmap) UniverseSize() uint32 {
	return b.universeSize
}

// PopulateFromRoaring replaces b's contents with rb's, for cross-validating
// a Dense tag's decoded bitmap against an independently built
// github.com/RoaringBitmap/roaring/v2 bitmap during load.
func (b *Bitmap) PopulateFromRoaring(rb interface{ ToArray() []uint32 }) {
	b.Clear()
	b.AddMany(rb.ToArray())
}

// Pool is a sync.Pool of Bitmaps all sized for the same universe, used for
// the per-query working bitmap so a query neither allocates nor leaves
// bits behind for the next query to observe.
type Pool struct {
	pool         sync.Pool
	universeSize uint32
}

// NewPool creates a Pool of Bitmaps sized for ids in [0, universeSize).
func NewPool(universeSize uint32) *Pool {
	return &Pool{
		universeSize: universeSize,
		pool: sync.Pool{
			New: func() any {
				b := New(universeSize)
				b.pooled = true
				return b
			},
		},
	}
}

// Get returns a zeroed Bitmap from the pool.
func (p *Pool) Get() *Bitmap {
	return p.pool.Get().(*Bitmap)
}

// Put clears b and returns it to the pool. Put is a no-op for a Bitmap
// that did not come from a Pool, so callers may Put defensively.
func (p *Pool) Put(b *Bitmap) {
	if b == nil || !b.pooled {
		return
	}
	b.Clear()
	p.pool.Put(b)
}
