package awooidx

import (
	"errors"
	"fmt"

	"github.com/awooidx/awooidx/index"
	"github.com/awooidx/awooidx/loader"
	"github.com/awooidx/awooidx/search"
)

var (
	// ErrBadMagic is returned when the opened file's leading bytes
	// aren't "Awoo".
	ErrBadMagic = loader.ErrBadMagic

	// ErrTruncated is returned when the file ends before a count or
	// posting region it declared is fully present.
	ErrTruncated = loader.ErrTruncated

	// ErrAllocationFailure is returned when the file's declared counts
	// imply an allocation large enough to be treated as corrupt.
	ErrAllocationFailure = loader.ErrAllocationFailure

	// ErrCrossValidationFailed is returned when roaring cross-validation
	// (see WithRoaringCrossValidation) finds a Dense tag's bitmap
	// disagrees with an independently rebuilt roaring bitmap.
	ErrCrossValidationFailed = loader.ErrCrossValidationFailed

	// ErrEmptyQuery is returned when Search is called with no tags.
	ErrEmptyQuery = search.ErrEmptyQuery
)

// InvalidPostingError indicates a tag's posting list is not strictly
// increasing, or contains an id greater than max_id. Re-exported from
// package loader so callers of the top-level API never need to import it
// directly.
type InvalidPostingError = loader.InvalidPostingError

// BadTagIDError indicates a query referenced a tag id outside
// [0, TagCount()). Re-exported from package index.
type BadTagIDError = index.BadTagIDError

// translateError normalizes errors from the loader and search packages
// onto this package's exported kinds. Errors matching one of those kinds
// are wrapped with an "awooidx: " prefix, keeping them composable with
// errors.Is/As; any other error is returned unchanged. It is the single
// seam for this mapping, rather than scattering it across Open, Load,
// and Search.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var ip *loader.InvalidPostingError
	if errors.As(err, &ip) {
		return fmt.Errorf("awooidx: %w", err)
	}
	var bt *index.BadTagIDError
	if errors.As(err, &bt) {
		return fmt.Errorf("awooidx: %w", err)
	}

	switch {
	case errors.Is(err, loader.ErrBadMagic),
		errors.Is(err, loader.ErrTruncated),
		errors.Is(err, loader.ErrAllocationFailure),
		errors.Is(err, loader.ErrCrossValidationFailed),
		errors.Is(err, search.ErrEmptyQuery):
		return fmt.Errorf("awooidx: %w", err)
	}

	return err
}
