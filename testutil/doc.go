// Package testutil provides testing utilities shared across the index,
// query, and search packages.
//
// This package is intended for use in tests and benchmarks only. It
// provides helpers for generating synthetic posting lists and tag
// populations, and a brute-force intersection oracle for verifying search
// results.
//
// # Synthetic Posting Lists
//
//	rng := testutil.NewRNG(seed)
//	sparse := rng.PostingList(500, maxID)        // 500 ids in [0, maxID]
//	dense := rng.DensePostingList(maxID, 0.1)    // ~10% of [0, maxID]
//
// # Skewed Tag Populations
//
//	pops := rng.ZipfTagPopulations(tagCount, maxID, 1.5)
//
// # Ground Truth
//
//	want := testutil.BruteForceIntersect(listA, listB, listC)
package testutil
