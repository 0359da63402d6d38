// Package cursor persists the synchronization cursor shared by the catalog
// and archive passes.
package cursor

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"board_mirror/internal/model"
	"board_mirror/internal/storage"
)

// Store reads and writes the cursor.
type Store interface {
	Read() (model.SyncCursor, error)
	Write(c model.SyncCursor) error
	Update(fn func(c *model.SyncCursor)) (model.SyncCursor, error)
}

type cursorDoc struct {
	FolderPath          string `json:"folder_path"`
	CatalogModifiedDate string `json:"catalog_modified_date"`
	ArchiveModifiedDate string `json:"archive_modified_date"`
	LastArchiveElement  int64  `json:"last_archive_element"`
}

// FileStore keeps the cursor in a JSON file. Every operation holds one mutex,
// and Update holds it across its whole read-modify-write so concurrent
// passes cannot lose each other's fields.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore returns a store for the cursor file at path. The file is
// created on first write.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create cursor directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

// Read loads the cursor. A missing file yields the zero cursor.
func (s *FileStore) Read() (model.SyncCursor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// Write replaces the persisted cursor.
func (s *FileStore) Write(c model.SyncCursor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(c)
}

// Update reads the cursor, applies fn and writes the result, all under the lock.
func (s *FileStore) Update(fn func(c *model.SyncCursor)) (model.SyncCursor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.read()
	if err != nil {
		return model.SyncCursor{}, err
	}
	fn(&c)
	if err := s.write(c); err != nil {
		return model.SyncCursor{}, err
	}
	return c, nil
}

func (s *FileStore) read() (model.SyncCursor, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.SyncCursor{}, nil
		}
		return model.SyncCursor{}, fmt.Errorf("read cursor: %w", err)
	}

	var doc cursorDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return model.SyncCursor{}, fmt.Errorf("decode cursor: %w", err)
	}
	catalog, err := storage.ParseTime(doc.CatalogModifiedDate)
	if err != nil {
		return model.SyncCursor{}, fmt.Errorf("decode cursor catalog date: %w", err)
	}
	archive, err := storage.ParseTime(doc.ArchiveModifiedDate)
	if err != nil {
		return model.SyncCursor{}, fmt.Errorf("decode cursor archive date: %w", err)
	}
	return model.SyncCursor{
		CatalogModifiedAt:   catalog,
		ArchiveModifiedAt:   archive,
		LastArchiveThreadID: doc.LastArchiveElement,
		StorageRoot:         doc.FolderPath,
	}, nil
}

func (s *FileStore) write(c model.SyncCursor) error {
	data, err := json.Marshal(cursorDoc{
		FolderPath:          c.StorageRoot,
		CatalogModifiedDate: storage.FormatTime(c.CatalogModifiedAt),
		ArchiveModifiedDate: storage.FormatTime(c.ArchiveModifiedAt),
		LastArchiveElement:  c.LastArchiveThreadID,
	})
	if err != nil {
		return fmt.Errorf("encode cursor: %w", err)
	}
	if err := storage.WriteFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("write cursor: %w", err)
	}
	return nil
}
