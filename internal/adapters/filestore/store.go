// Package filestore keeps the cached location as a JSON file on disk.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/samirrijal/trainboard/internal/core/domain"
)

// FileName is the record's file name inside the store directory.
const FileName = "userLocation.json"

// Store implements ports.LocationStore.
type Store struct {
	path string
	mu   sync.Mutex
}

// New creates a store under dir. The directory is created on first Save.
func New(dir string) *Store {
	return &Store{path: filepath.Join(dir, FileName)}
}

// Path returns the file backing the store.
func (s *Store) Path() string { return s.path }

// Load returns the record, or nil when none has been saved. A corrupt file
// is reported as an error.
func (s *Store) Load(ctx context.Context) (*domain.CachedLocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	var rec domain.CachedLocation
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return &rec, nil
}

// Save replaces the record atomically.
func (s *Store) Save(ctx context.Context, rec domain.CachedLocation) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode location: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, FileName+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("rename to %s: %w", s.path, err)
	}
	return nil
}

// Ping reports whether the store directory is usable.
func (s *Store) Ping(ctx context.Context) error {
	info, err := os.Stat(filepath.Dir(s.path))
	if errors.Is(err, fs.ErrNotExist) {
		return nil // created on first Save
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", filepath.Dir(s.path))
	}
	return nil
}
