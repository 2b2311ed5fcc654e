// Package query implements selectivity-ordered query planning: reordering
// a conjunctive query's tag ids so the search package's Intersector folds
// the cheapest operands first.
package query

import (
	"sort"

	"github.com/awooidx/awooidx/core"
	"github.com/awooidx/awooidx/index"
)

// Plan reorders tagIDs by ascending estimated selectivity (Empty first at
// size 0, then Ids by posting-list length, then Dense by popcount),
// returning a new slice; tagIDs is left untouched. Placing the smallest
// operand first lets the Intersector seed from the smallest candidate set
// and makes later folds mostly no-ops. Duplicate tag ids are preserved,
// since a repeated tag costs only one redundant fold and does not change
// the result.
//
// Tie-breaking among tags of equal size is unspecified beyond being
// stable: Plan uses a stable sort, so equal-size tags keep their relative
// input order.
func Plan(ix *index.Index, tagIDs []core.TagId) ([]core.TagId, error) {
	sizes := make([]int, len(tagIDs))
	for i, t := range tagIDs {
		e, err := ix.Get(t)
		if err != nil {
			return nil, err
		}
		sizes[i] = e.Popcount()
	}

	ordered := make([]core.TagId, len(tagIDs))

	idx := make([]int, len(tagIDs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return sizes[idx[i]] < sizes[idx[j]]
	})

	for pos, i := range idx {
		ordered[pos] = tagIDs[i]
	}

	return ordered, nil
}
