package persistence

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"unsafe"
)

// Writer writes Awoo-format index files.
type Writer struct {
	w         io.Writer
	byteOrder binary.ByteOrder
}

// NewWriter creates a new Awoo format writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, byteOrder: binary.LittleEndian}
}

// WriteHeader writes the magic bytes followed by the fixed header fields.
func (bw *Writer) WriteHeader(h *Header) error {
	if _, err := bw.w.Write(Magic[:]); err != nil {
		return err
	}
	if err := binary.Write(bw.w, bw.byteOrder, h.MaxID); err != nil {
		return err
	}
	return binary.Write(bw.w, bw.byteOrder, h.TagCount)
}

// WriteUint32Slice writes a uint32 slice as raw little-endian bytes.
// Safety: validates alignment before the unsafe conversion.
func (bw *Writer) WriteUint32Slice(slice []uint32) error {
	if len(slice) == 0 {
		return nil
	}
	if err := validateUint32SliceAlignment(slice); err != nil {
		return err
	}
	byteSlice := unsafe.Slice((*byte)(unsafe.Pointer(&slice[0])), len(slice)*4) //nolint:gosec
	_, err := bw.w.Write(byteSlice)
	return err
}

// Reader reads Awoo-format index files sequentially from an io.Reader.
// IndexLoader itself reads through SliceReader instead, since it always
// has the whole blob in memory or mapped and benefits from SliceReader's
// zero-copy views; Reader exists as Writer's round-trip counterpart for
// sources that are only available as a stream.
type Reader struct {
	r         io.Reader
	byteOrder binary.ByteOrder
}

// NewReader creates a new Awoo format reader.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r, byteOrder: binary.LittleEndian}
}

// ReadHeader reads and validates the magic bytes, then the fixed header
// fields.
func (br *Reader) ReadHeader() (*Header, error) {
	var magic [4]byte
	if _, err := io.ReadFull(br.r, magic[:]); err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return nil, fmt.Errorf("%w: reading magic", ErrTruncated)
		}
		return nil, err
	}
	if magic != Magic {
		return nil, fmt.Errorf("%w: got %q", ErrInvalidMagic, magic[:])
	}

	var h Header
	if err := binary.Read(br.r, br.byteOrder, &h.MaxID); err != nil {
		return nil, fmt.Errorf("%w: reading max_id: %v", ErrTruncated, err)
	}
	if err := binary.Read(br.r, br.byteOrder, &h.TagCount); err != nil {
		return nil, fmt.Errorf("%w: reading tag_count: %v", ErrTruncated, err)
	}
	return &h, nil
}

// ReadUint32Slice reads count little-endian uint32 values into a freshly
// allocated slice.
func (br *Reader) ReadUint32Slice(count int) ([]uint32, error) {
	if count == 0 {
		return nil, nil
	}
	slice := make([]uint32, count)
	byteSlice := unsafe.Slice((*byte)(unsafe.Pointer(&slice[0])), count*4) //nolint:gosec
	if _, err := io.ReadFull(br.r, byteSlice); err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return nil, fmt.Errorf("%w: reading %d uint32s", ErrTruncated, count)
		}
		return nil, err
	}
	return slice, nil
}

// SaveToFile writes data to filename atomically: it writes to a temp file
// in the same directory, fsyncs it, then renames it over the target.
func SaveToFile(filename string, writeFunc func(io.Writer) error) error {
	dir := filepath.Dir(filename)
	base := filepath.Base(filename)

	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	_ = tmp.Chmod(0o644)

	buf := bufio.NewWriterSize(tmp, 256*1024)
	if err := writeFunc(buf); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpName, filename); err != nil {
		return err
	}

	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}

	tmpName = ""
	return nil
}

// LoadFromFile opens filename and runs readFunc against a buffered reader
// over it.
func LoadFromFile(filename string, readFunc func(io.Reader) error) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	buf := bufio.NewReaderSize(f, 256*1024)
	return readFunc(buf)
}
