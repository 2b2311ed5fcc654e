package query

import (
	"testing"

	"github.com/awooidx/awooidx/bitmap"
	"github.com/awooidx/awooidx/core"
	"github.com/awooidx/awooidx/index"
	"github.com/stretchr/testify/require"
)

func buildIndex(t *testing.T) *index.Index {
	t.Helper()
	b := bitmap.New(1000)
	for i := uint32(0); i < 900; i++ {
		b.Add(i)
	}
	return index.New(999, []index.TagEntry{
		index.EmptyEntry(),                              // tag 0: size 0
		index.NewIdsEntry([]core.ItemId{1, 2, 3, 4, 5}),  // tag 1: size 5
		index.NewDenseEntry(b, 900),                      // tag 2: size 900
		index.NewIdsEntry([]core.ItemId{10, 20}),         // tag 3: size 2
	})
}

func TestPlan_OrdersBySelectivity(t *testing.T) {
	ix := buildIndex(t)

	got, err := Plan(ix, []core.TagId{2, 1, 3})
	require.NoError(t, err)
	require.Equal(t, []core.TagId{3, 1, 2}, got)
}

func TestPlan_EmptyTagSortsFirst(t *testing.T) {
	ix := buildIndex(t)

	got, err := Plan(ix, []core.TagId{2, 0, 1})
	require.NoError(t, err)
	require.Equal(t, core.TagId(0), got[0])
}

func TestPlan_DuplicateTagsPreserved(t *testing.T) {
	ix := buildIndex(t)

	got, err := Plan(ix, []core.TagId{1, 1, 3})
	require.NoError(t, err)
	require.Len(t, got, 3)

	var ones int
	for _, tag := range got {
		if tag == 1 {
			ones++
		}
	}
	require.Equal(t, 2, ones)
}

func TestPlan_DoesNotMutateInput(t *testing.T) {
	ix := buildIndex(t)
	input := []core.TagId{2, 1, 3}
	inputCopy := append([]core.TagId{}, input...)

	_, err := Plan(ix, input)
	require.NoError(t, err)
	require.Equal(t, inputCopy, input)
}

func TestPlan_BadTagID(t *testing.T) {
	ix := buildIndex(t)

	_, err := Plan(ix, []core.TagId{99})
	require.Error(t, err)
}
