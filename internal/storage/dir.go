package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"board_mirror/internal/model"
)

// Dir implements Storage as one JSON file per thread in a directory.
type Dir struct {
	root string
}

// NewDir opens a directory store, creating root if needed.
func NewDir(root string) (*Dir, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Dir{root: root}, nil
}

// Root returns the directory holding the thread files.
func (d *Dir) Root() string {
	return d.root
}

// Close is a no-op.
func (d *Dir) Close() error {
	return nil
}

// GetThread reads the record for id.
func (d *Dir) GetThread(_ context.Context, id int64) (*model.ThreadRecord, error) {
	data, err := os.ReadFile(d.path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read thread %d: %w", id, err)
	}
	rec, err := decodeThread(data)
	if err != nil {
		return nil, fmt.Errorf("thread %d: %w", id, err)
	}
	return rec, nil
}

// PutThread replaces the record for id. The file is swapped in with a rename
// so readers see either the old or the new document.
func (d *Dir) PutThread(_ context.Context, id int64, rec *model.ThreadRecord) error {
	data, err := encodeThread(rec)
	if err != nil {
		return err
	}
	if err := WriteFileAtomic(d.path(id), data); err != nil {
		return fmt.Errorf("write thread %d: %w", id, err)
	}
	return nil
}

// CountThreads returns the number of stored thread files.
func (d *Dir) CountThreads(_ context.Context) (int, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return 0, fmt.Errorf("list storage root: %w", err)
	}
	n := 0
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), ".json")
		if !ok || e.IsDir() {
			continue
		}
		if _, err := strconv.ParseInt(name, 10, 64); err == nil {
			n++
		}
	}
	return n, nil
}

func (d *Dir) path(id int64) string {
	return filepath.Join(d.root, strconv.FormatInt(id, 10)+".json")
}

// WriteFileAtomic writes data to a temporary file next to path, syncs it and
// renames it over path.
func WriteFileAtomic(path string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
