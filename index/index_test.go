package index

import (
	"errors"
	"testing"

	"github.com/awooidx/awooidx/bitmap"
	"github.com/awooidx/awooidx/core"
	"github.com/stretchr/testify/require"
)

func TestTagEntry_Empty(t *testing.T) {
	e := EmptyEntry()
	require.Equal(t, Empty, e.Kind)
	require.Equal(t, 0, e.Popcount())
}

func TestTagEntry_Ids(t *testing.T) {
	postings := []core.ItemId{1, 5, 9}
	e := NewIdsEntry(postings)
	require.Equal(t, Ids, e.Kind)
	require.Equal(t, 3, e.Popcount())
	require.Equal(t, postings, e.Postings())
}

func TestTagEntry_IdsEmptyCollapses(t *testing.T) {
	e := NewIdsEntry(nil)
	require.Equal(t, Empty, e.Kind)
}

func TestTagEntry_Dense(t *testing.T) {
	b := bitmap.New(1000)
	b.AddMany([]uint32{1, 2, 3})
	e := NewDenseEntry(b, 3)
	require.Equal(t, Dense, e.Kind)
	require.Equal(t, 3, e.Popcount())
	require.Same(t, b, e.Bitmap())
}

func TestIndex_GetOutOfRange(t *testing.T) {
	ix := New(100, []TagEntry{EmptyEntry(), NewIdsEntry([]core.ItemId{1})})

	_, err := ix.Get(2)
	require.Error(t, err)

	var badTag *BadTagIDError
	require.True(t, errors.As(err, &badTag))
	require.Equal(t, core.TagId(2), badTag.TagID)
}

func TestIndex_GetInRange(t *testing.T) {
	ix := New(100, []TagEntry{EmptyEntry(), NewIdsEntry([]core.ItemId{1, 2})})

	e, err := ix.Get(1)
	require.NoError(t, err)
	require.Equal(t, Ids, e.Kind)
	require.Equal(t, 2, ix.TagCount())
	require.Equal(t, core.ItemId(100), ix.MaxID())
}

func TestIndex_DenseTagCount(t *testing.T) {
	ix := New(100, []TagEntry{
		EmptyEntry(),
		NewDenseEntry(bitmap.New(1000), 5),
		NewIdsEntry([]core.ItemId{1}),
	})
	require.Equal(t, 1, ix.DenseTagCount())
}
