//go:build integration
// +build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/samirrijal/trainboard/internal/core/domain"
	"github.com/samirrijal/trainboard/internal/pkg/config"
)

// setupTestDB connects to the test database and applies the schema.
func setupTestDB(t *testing.T) *DB {
	cfg, err := config.Load("trainboard-test")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := New(ctx, cfg.Database.DSN())
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(db.Close)
	return db
}

func TestLocationRepo_RoundTrip(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLocationRepo(db)
	repo.key = "test:" + t.Name()
	ctx := context.Background()
	t.Cleanup(func() {
		db.Pool.Exec(context.Background(), `DELETE FROM location_cache WHERE key = $1`, repo.key)
	})

	rec, err := repo.Load(ctx)
	if err != nil || rec != nil {
		t.Fatalf("expected no record, got %+v (%v)", rec, err)
	}

	first := domain.NewCachedLocation(domain.Coordinate{Lat: 40.75, Lng: -73.98}, time.UnixMilli(1))
	second := domain.NewCachedLocation(domain.Coordinate{Lat: 40.76, Lng: -73.99}, time.UnixMilli(2))
	if err := repo.Save(ctx, first); err != nil {
		t.Fatal(err)
	}
	if err := repo.Save(ctx, second); err != nil {
		t.Fatal(err)
	}

	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || *got != second {
		t.Fatalf("expected %+v after upsert, got %+v", second, got)
	}
}
