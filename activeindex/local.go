package activeindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/awooidx/awooidx/persistence"
)

// ErrNoActivePointer is returned when the pointer file does not exist
// yet, e.g. before the first index has ever been promoted.
var ErrNoActivePointer = errors.New("activeindex: no active pointer")

type localPointer struct {
	Path      string `json:"path"`
	Version   int64  `json:"version"`
	UpdatedAt int64  `json:"updated_at_unix"`
}

// LocalFile resolves and promotes a Pointer stored as JSON in a single
// local file, written atomically (temp-file, fsync, rename) via the same
// persistence.SaveToFile helper the index file writer itself would use,
// so a reader never observes a partially written pointer.
type LocalFile struct {
	path string
	mu   sync.Mutex
}

// NewLocalFile creates a LocalFile-backed Promoter rooted at path.
func NewLocalFile(path string) *LocalFile {
	return &LocalFile{path: path}
}

// Resolve reads the current Pointer from disk.
func (f *LocalFile) Resolve(_ context.Context) (Pointer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readLocked()
}

func (f *LocalFile) readLocked() (Pointer, error) {
	var lp localPointer
	err := persistence.LoadFromFile(f.path, func(r io.Reader) error {
		return json.NewDecoder(r).Decode(&lp)
	})
	if err != nil {
		if os.IsNotExist(err) {
			return Pointer{}, ErrNoActivePointer
		}
		return Pointer{}, fmt.Errorf("activeindex: reading pointer file: %w", err)
	}
	return Pointer{Path: lp.Path, Version: lp.Version, UpdatedAt: time.Unix(lp.UpdatedAt, 0).UTC()}, nil
}

// Promote atomically writes a new Pointer naming path, bumping the
// version past whatever was previously committed.
func (f *LocalFile) Promote(_ context.Context, path string) (Pointer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	prev, err := f.readLocked()
	if err != nil && !errors.Is(err, ErrNoActivePointer) {
		return Pointer{}, err
	}

	next := Pointer{Path: path, Version: prev.Version + 1, UpdatedAt: time.Now().UTC()}
	lp := localPointer{Path: next.Path, Version: next.Version, UpdatedAt: next.UpdatedAt.Unix()}

	err = persistence.SaveToFile(f.path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(lp)
	})
	if err != nil {
		return Pointer{}, fmt.Errorf("activeindex: writing pointer file: %w", err)
	}
	return next, nil
}
