package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalBlobStore_ReadAt(t *testing.T) {
	tmpDir := t.TempDir()
	data := []byte("hello world, this is a test blob")
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "data-001.bin"), data, 0o644))

	store := NewLocalStore(tmpDir)
	ctx := context.Background()

	blob, err := store.Open(ctx, "data-001.bin")
	require.NoError(t, err)
	defer blob.Close()

	require.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, 5)
	n, err := blob.ReadAt(ctx, buf, 6) // "world"
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "world", string(buf))

	mappable, ok := blob.(Mappable)
	require.True(t, ok)
	all, err := mappable.Bytes()
	require.NoError(t, err)
	require.Equal(t, data, all)
}

func TestLocalBlobStore_NotFound(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	_, err := store.Open(context.Background(), "missing.bin")
	require.Error(t, err)
}
