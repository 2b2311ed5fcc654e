// Package simd provides word-parallel bitwise kernels over []uint64 word
// slices: AND, ANDNOT, OR, XOR, and POPCOUNT. These back the bitmap
// package's block-level bitmap operations.
//
// # Detected Instruction Sets
//
//   - x86-64: AVX2 (with FMA), AVX-512 (F+BW)
//   - ARM64: NEON (ASIMD), SVE2
//
// Runtime CPU feature detection reports the best available ISA via
// ActiveISA; the AWOOIDX_SIMD environment variable can force a specific
// one (falling back to auto-detection if the forced ISA isn't available
// on the running CPU). The kernels themselves are pure Go today — the
// generic implementations are branch-predictable and already close to
// memory-bandwidth-bound for bitmap-sized words — but capability
// detection is wired through so an assembly kernel can be slotted in
// later without changing callers.
package simd
