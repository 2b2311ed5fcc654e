package activeindex

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalFile_ResolveBeforeAnyPromotion(t *testing.T) {
	f := NewLocalFile(filepath.Join(t.TempDir(), "active.json"))

	_, err := f.Resolve(context.Background())
	require.ErrorIs(t, err, ErrNoActivePointer)
}

func TestLocalFile_PromoteThenResolve(t *testing.T) {
	f := NewLocalFile(filepath.Join(t.TempDir(), "active.json"))

	p, err := f.Promote(context.Background(), "indexes/2026-08-06.awoo")
	require.NoError(t, err)
	require.Equal(t, int64(1), p.Version)

	got, err := f.Resolve(context.Background())
	require.NoError(t, err)
	require.Equal(t, "indexes/2026-08-06.awoo", got.Path)
	require.Equal(t, int64(1), got.Version)
}

func TestLocalFile_SuccessivePromotionsBumpVersion(t *testing.T) {
	f := NewLocalFile(filepath.Join(t.TempDir(), "active.json"))

	_, err := f.Promote(context.Background(), "indexes/v1.awoo")
	require.NoError(t, err)
	second, err := f.Promote(context.Background(), "indexes/v2.awoo")
	require.NoError(t, err)

	require.Equal(t, int64(2), second.Version)
	require.Equal(t, "indexes/v2.awoo", second.Path)

	got, err := f.Resolve(context.Background())
	require.NoError(t, err)
	require.Equal(t, second.Path, got.Path)
	require.Equal(t, second.Version, got.Version)
}
