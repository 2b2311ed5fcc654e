package search

import (
	"context"
	"testing"

	"github.com/awooidx/awooidx/bitmap"
	"github.com/awooidx/awooidx/core"
	"github.com/awooidx/awooidx/index"
	"github.com/awooidx/awooidx/testutil"
	"github.com/stretchr/testify/require"
)

func denseBitmap(universe uint32, ids []uint32) *bitmap.Bitmap {
	b := bitmap.New(universe)
	b.AddMany(ids)
	return b
}

func TestSearch_SingleTag(t *testing.T) {
	ix := index.New(999, []index.TagEntry{
		index.NewIdsEntry([]core.ItemId{1, 5, 9}),
	})
	s := New(ix)

	got, err := s.Search(context.Background(), []core.TagId{0})
	require.NoError(t, err)
	require.Equal(t, []core.ItemId{1, 5, 9}, got)
}

func TestSearch_EmptyTagShortCircuits(t *testing.T) {
	ix := index.New(999, []index.TagEntry{
		index.EmptyEntry(),
		index.NewIdsEntry([]core.ItemId{1, 2, 3}),
	})
	s := New(ix)

	got, err := s.Search(context.Background(), []core.TagId{0, 1})
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestSearch_ZeroLengthQueryErrors(t *testing.T) {
	ix := index.New(999, []index.TagEntry{index.EmptyEntry()})
	s := New(ix)

	_, err := s.Search(context.Background(), nil)
	require.ErrorIs(t, err, ErrEmptyQuery)
}

func TestSearch_BadTagID(t *testing.T) {
	ix := index.New(999, []index.TagEntry{index.EmptyEntry()})
	s := New(ix)

	_, err := s.Search(context.Background(), []core.TagId{5})
	require.Error(t, err)
}

func TestSearch_DenseAndDense_MultiplesOf15(t *testing.T) {
	const universe = 1_000_001

	var threes, fives []uint32
	for i := uint32(0); i < universe; i += 3 {
		threes = append(threes, i)
	}
	for i := uint32(0); i < universe; i += 5 {
		fives = append(fives, i)
	}

	ix := index.New(universe-1, []index.TagEntry{
		index.NewDenseEntry(denseBitmap(universe, threes), len(threes)),
		index.NewDenseEntry(denseBitmap(universe, fives), len(fives)),
	})
	s := New(ix)

	got, err := s.Search(context.Background(), []core.TagId{0, 1})
	require.NoError(t, err)

	for _, id := range got {
		require.Zero(t, uint32(id)%15, "result %d is not a multiple of 15", id)
	}

	var want int
	for i := uint32(0); i < universe; i += 15 {
		want++
	}
	require.Len(t, got, want)
}

func TestSearch_DenseAndIds(t *testing.T) {
	const universe = 100_001

	var evens []uint32
	for i := uint32(0); i <= 100_000; i += 2 {
		evens = append(evens, i)
	}

	ix := index.New(100_000, []index.TagEntry{
		index.NewDenseEntry(denseBitmap(universe, evens), len(evens)),
		index.NewIdsEntry([]core.ItemId{0, 3, 4, 7, 100}),
	})
	s := New(ix)

	got, err := s.Search(context.Background(), []core.TagId{0, 1})
	require.NoError(t, err)
	require.Equal(t, []core.ItemId{0, 4, 100}, got)
}

func TestSearch_RepresentationEquivalence(t *testing.T) {
	const universe = 200_001

	rng := testutil.NewRNG(7)
	idsA := rng.PostingList(300, 200_000)
	idsB := rng.PostingList(5_000, 200_000)

	asIds := index.New(200_000, []index.TagEntry{
		index.NewIdsEntry(toItemIds(idsA)),
		index.NewIdsEntry(toItemIds(idsB)),
	})
	asDense := index.New(200_000, []index.TagEntry{
		index.NewDenseEntry(denseBitmap(universe, idsA), len(idsA)),
		index.NewDenseEntry(denseBitmap(universe, idsB), len(idsB)),
	})
	mixed := index.New(200_000, []index.TagEntry{
		index.NewIdsEntry(toItemIds(idsA)),
		index.NewDenseEntry(denseBitmap(universe, idsB), len(idsB)),
	})

	query := []core.TagId{0, 1}
	gotIds, err := New(asIds).Search(context.Background(), query)
	require.NoError(t, err)
	gotDense, err := New(asDense).Search(context.Background(), query)
	require.NoError(t, err)
	gotMixed, err := New(mixed).Search(context.Background(), query)
	require.NoError(t, err)

	require.Equal(t, gotIds, gotDense, "Ids-only and Dense-only representations must agree")
	require.Equal(t, gotIds, gotMixed, "mixed representation must agree with both pure forms")
}

func TestSearch_DuplicateTagIdempotent(t *testing.T) {
	ix := index.New(999, []index.TagEntry{
		index.NewIdsEntry([]core.ItemId{1, 2, 3}),
	})
	s := New(ix)

	once, err := s.Search(context.Background(), []core.TagId{0})
	require.NoError(t, err)
	twice, err := s.Search(context.Background(), []core.TagId{0, 0})
	require.NoError(t, err)

	require.Equal(t, once, twice)
}

func TestSearch_Monotonicity(t *testing.T) {
	rng := testutil.NewRNG(99)
	const maxID = 20_000

	a := rng.PostingList(2000, maxID)
	b := rng.PostingList(500, maxID)

	ix := index.New(maxID, []index.TagEntry{
		index.NewIdsEntry(toItemIds(a)),
		index.NewIdsEntry(toItemIds(b)),
	})
	s := New(ix)

	resultA, err := s.Search(context.Background(), []core.TagId{0})
	require.NoError(t, err)
	resultAB, err := s.Search(context.Background(), []core.TagId{0, 1})
	require.NoError(t, err)

	require.LessOrEqual(t, len(resultAB), len(resultA))

	inA := make(map[core.ItemId]bool, len(resultA))
	for _, id := range resultA {
		inA[id] = true
	}
	for _, id := range resultAB {
		require.True(t, inA[id], "result of AND query must be a subset of the single-tag result")
	}
}

func TestSearch_PermutationInvariance(t *testing.T) {
	rng := testutil.NewRNG(7)
	const maxID = 20_000

	a := rng.PostingList(3000, maxID)
	b := rng.PostingList(1500, maxID)
	c := rng.PostingList(4000, maxID)

	ix := index.New(maxID, []index.TagEntry{
		index.NewIdsEntry(toItemIds(a)),
		index.NewIdsEntry(toItemIds(b)),
		index.NewIdsEntry(toItemIds(c)),
	})
	s := New(ix)

	orderings := [][]core.TagId{
		{0, 1, 2},
		{2, 1, 0},
		{1, 2, 0},
	}

	var first []core.ItemId
	for i, order := range orderings {
		got, err := s.Search(context.Background(), order)
		require.NoError(t, err)
		if i == 0 {
			first = got
			continue
		}
		require.Equal(t, first, got)
	}
}

func TestSearch_AgainstBruteForce(t *testing.T) {
	rng := testutil.NewRNG(123)
	const maxID = 50_000

	pops := rng.AdversarialTagPopulations(6, 5000, 40000)
	entries := make([]index.TagEntry, len(pops))
	lists := make([][]uint32, len(pops))
	for i, pop := range pops {
		if pop < 1 {
			pop = 1
		}
		lists[i] = rng.PostingList(pop, maxID)
		if pop >= 5000 {
			entries[i] = index.NewDenseEntry(denseBitmap(maxID+1, lists[i]), pop)
		} else {
			entries[i] = index.NewIdsEntry(toItemIds(lists[i]))
		}
	}
	ix := index.New(maxID, entries)
	s := New(ix)

	tagIDs := make([]core.TagId, len(entries))
	for i := range tagIDs {
		tagIDs[i] = core.TagId(i)
	}

	got, err := s.Search(context.Background(), tagIDs)
	require.NoError(t, err)

	want := testutil.BruteForceIntersect(lists...)
	if len(want) == 0 {
		require.Empty(t, got)
	} else {
		require.Equal(t, toItemIds(want), got)
	}
}

func toItemIds(ids []uint32) []core.ItemId {
	out := make([]core.ItemId, len(ids))
	for i, id := range ids {
		out[i] = core.ItemId(id)
	}
	return out
}
