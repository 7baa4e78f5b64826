// Package fs persists the catalog as a single human-inspectable JSON
// snapshot file, rewritten wholesale on every save.
package fs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prepstack/bookshelf/pkg/bookshelf"
)

// Config options for the file snapshot store
type Config struct {
	Path string // Snapshot file path
}

// Store implements bookshelf.CatalogStore on a single JSON file.
type Store struct {
	path string
}

// New creates a new file snapshot store
func New(config Config) (*Store, error) {
	if config.Path == "" {
		return nil, errors.New("snapshot path is required")
	}
	return &Store{path: config.Path}, nil
}

// Load reads the snapshot. A missing file yields an empty catalog.
func (s *Store) Load(ctx context.Context) (bookshelf.Catalog, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return bookshelf.Catalog{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var catalog bookshelf.Catalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", s.path, err)
	}
	return catalog, nil
}

// Save overwrites the snapshot. The new content lands in a temp file first
// and is renamed into place, so the persisted file is always a complete
// snapshot even if the process dies mid-write.
func (s *Store) Save(ctx context.Context, catalog bookshelf.Catalog) error {
	data, err := json.MarshalIndent(catalog, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close snapshot: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}
