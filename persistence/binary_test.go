package persistence

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriterReader_HeaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	header := &Header{MaxID: 1_000_000, TagCount: 3}
	require.NoError(t, w.WriteHeader(header))

	postCounts := []uint32{5, 0, 12}
	require.NoError(t, w.WriteUint32Slice(postCounts))

	postings := []uint32{1, 4, 9, 16, 25}
	require.NoError(t, w.WriteUint32Slice(postings))

	r := NewReader(&buf)
	got, err := r.ReadHeader()
	require.NoError(t, err)
	require.Equal(t, header, got)

	gotCounts, err := r.ReadUint32Slice(3)
	require.NoError(t, err)
	require.Equal(t, postCounts, gotCounts)

	gotPostings, err := r.ReadUint32Slice(5)
	require.NoError(t, err)
	require.Equal(t, postings, gotPostings)
}

func TestReader_BadMagic(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte("NOPE12345678")))
	_, err := r.ReadHeader()
	require.ErrorIs(t, err, ErrInvalidMagic)
}

func TestReader_Truncated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf).WriteHeader(&Header{MaxID: 1, TagCount: 1}))

	truncated := buf.Bytes()[:6]
	r := NewReader(bytes.NewReader(truncated))
	_, err := r.ReadHeader()
	require.ErrorIs(t, err, ErrTruncated)
}

func TestReader_ZeroCount(t *testing.T) {
	r := NewReader(bytes.NewReader(nil))
	got, err := r.ReadUint32Slice(0)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestSaveLoadFile(t *testing.T) {
	tmpfile := filepath.Join(t.TempDir(), "test_index.awoo")

	header := &Header{MaxID: 99, TagCount: 2}
	postCounts := []uint32{2, 1}
	postings := []uint32{3, 7, 10}

	err := SaveToFile(tmpfile, func(w io.Writer) error {
		bw := NewWriter(w)
		if err := bw.WriteHeader(header); err != nil {
			return err
		}
		if err := bw.WriteUint32Slice(postCounts); err != nil {
			return err
		}
		return bw.WriteUint32Slice(postings)
	})
	require.NoError(t, err)

	var gotHeader *Header
	var gotCounts, gotPostings []uint32
	err = LoadFromFile(tmpfile, func(r io.Reader) error {
		br := NewReader(r)
		var err error
		gotHeader, err = br.ReadHeader()
		if err != nil {
			return err
		}
		gotCounts, err = br.ReadUint32Slice(2)
		if err != nil {
			return err
		}
		gotPostings, err = br.ReadUint32Slice(3)
		return err
	})
	require.NoError(t, err)

	require.Equal(t, header, gotHeader)
	require.Equal(t, postCounts, gotCounts)
	require.Equal(t, postings, gotPostings)
}

func TestSaveToFile_AtomicOnWriteFailure(t *testing.T) {
	tmpfile := filepath.Join(t.TempDir(), "test_index.awoo")

	boom := require.New(t)
	err := SaveToFile(tmpfile, func(w io.Writer) error {
		return os.ErrClosed
	})
	boom.Error(err)

	_, statErr := os.Stat(tmpfile)
	boom.True(os.IsNotExist(statErr), "failed save must not leave a partial file behind")
}

func BenchmarkWriteUint32Slice(b *testing.B) {
	postings := make([]uint32, 1024)
	for i := range postings {
		postings[i] = uint32(i * 2)
	}

	var buf bytes.Buffer
	w := NewWriter(&buf)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf.Reset()
		_ = w.WriteUint32Slice(postings)
	}
}

func BenchmarkReadUint32Slice(b *testing.B) {
	postings := make([]uint32, 1024)
	for i := range postings {
		postings[i] = uint32(i * 2)
	}

	var buf bytes.Buffer
	_ = NewWriter(&buf).WriteUint32Slice(postings)
	data := buf.Bytes()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r := NewReader(bytes.NewReader(data))
		_, _ = r.ReadUint32Slice(1024)
	}
}
