// Package memory is an in-memory catalog snapshot store, used in tests.
package memory

import (
	"context"
	"sync"

	"github.com/prepstack/bookshelf/pkg/bookshelf"
)

// Store implements bookshelf.CatalogStore in process memory.
type Store struct {
	mu       sync.Mutex
	snapshot bookshelf.Catalog
	saves    int
}

// New creates a new in-memory snapshot store
func New() *Store {
	return &Store{}
}

// Load returns a copy of the last saved snapshot, or an empty catalog.
func (s *Store) Load(ctx context.Context) (bookshelf.Catalog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snapshot == nil {
		return bookshelf.Catalog{}, nil
	}
	return s.snapshot.Clone(), nil
}

// Save replaces the snapshot with a copy of the given catalog.
func (s *Store) Save(ctx context.Context, catalog bookshelf.Catalog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot = catalog.Clone()
	s.saves++
	return nil
}

// Snapshot returns a copy of the current snapshot for assertions.
func (s *Store) Snapshot() bookshelf.Catalog {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snapshot == nil {
		return bookshelf.Catalog{}
	}
	return s.snapshot.Clone()
}

// Saves reports how many times Save ran.
func (s *Store) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
