package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/trainboard/internal/core/domain"
)

// LocationKey is the row key of the cached location record.
const LocationKey = "userLocation"

// LocationRepo implements ports.LocationStore as a single row in
// location_cache.
type LocationRepo struct {
	db  *DB
	key string
}

func NewLocationRepo(db *DB) *LocationRepo {
	return &LocationRepo{db: db, key: LocationKey}
}

func (r *LocationRepo) Load(ctx context.Context) (*domain.CachedLocation, error) {
	var rec domain.CachedLocation
	err := r.db.Pool.QueryRow(ctx, `
		SELECT payload FROM location_cache WHERE key = $1
	`, r.key).Scan(&rec)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load location: %w", err)
	}
	return &rec, nil
}

func (r *LocationRepo) Save(ctx context.Context, rec domain.CachedLocation) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO location_cache (key, payload, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at
	`, r.key, rec)
	if err != nil {
		return fmt.Errorf("save location: %w", err)
	}
	return nil
}
