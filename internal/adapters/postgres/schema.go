package postgres

import (
	"context"
	"fmt"
)

// Migrations create the location cache table. They are idempotent.
var Migrations = []struct {
	Name string
	SQL  string
}{
	{
		Name: "001_location_cache",
		SQL: `
		CREATE TABLE IF NOT EXISTS location_cache (
			key        TEXT PRIMARY KEY,
			payload    JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	},
}

// DownMigrations undo Migrations in reverse order.
var DownMigrations = []string{
	`DROP TABLE IF EXISTS location_cache`,
}

// Migrate applies every migration in order.
func (db *DB) Migrate(ctx context.Context) error {
	for _, m := range Migrations {
		if _, err := db.Pool.Exec(ctx, m.SQL); err != nil {
			return fmt.Errorf("apply %s: %w", m.Name, err)
		}
	}
	return nil
}

// Rollback drops everything Migrate created.
func (db *DB) Rollback(ctx context.Context) error {
	for _, stmt := range DownMigrations {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("rollback: %w", err)
		}
	}
	return nil
}
