// Package psql persists the catalog snapshot in a single Postgres row. The
// snapshot semantics are identical to the file store: Save overwrites the
// whole catalog, Load returns the last complete snapshot.
package psql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prepstack/bookshelf/pkg/bookshelf"
)

const snapshotID = 1

// Store implements bookshelf.CatalogStore on a Postgres table.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a new Postgres snapshot store and ensures its table exists.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if pool == nil {
		return nil, errors.New("connection pool is required")
	}

	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS catalog_snapshot (
			id smallint PRIMARY KEY,
			data jsonb NOT NULL,
			updated_at timestamptz NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot table: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Load reads the snapshot row. A missing row yields an empty catalog.
func (s *Store) Load(ctx context.Context) (bookshelf.Catalog, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM catalog_snapshot WHERE id = $1`, snapshotID).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return bookshelf.Catalog{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var catalog bookshelf.Catalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return catalog, nil
}

// Save upserts the snapshot row with the full catalog.
func (s *Store) Save(ctx context.Context, catalog bookshelf.Catalog) error {
	data, err := json.Marshal(catalog)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO catalog_snapshot (id, data, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		snapshotID, data)
	if err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}
