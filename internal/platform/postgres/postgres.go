package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Open connects to Postgres and verifies the connection. Returns nil if the
// URL is empty (remote store not configured, local-only mode).
func Open(url string) (*sql.DB, error) {
	if url == "" {
		return nil, nil
	}

	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	return db, nil
}

// Bootstrap creates the schema if it does not exist. Idempotent; safe to run
// on every startup.
func Bootstrap(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap schema: %w", err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS user_profiles (
		user_id       TEXT PRIMARY KEY,
		dietary       TEXT[] NOT NULL DEFAULT '{}',
		allergies     TEXT[] NOT NULL DEFAULT '{}',
		cuisines      TEXT[] NOT NULL DEFAULT '{}',
		spice_level   TEXT NOT NULL DEFAULT 'medium',
		serving_size  INT  NOT NULL DEFAULT 4,
		created_at    TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS pantry_items (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		name       TEXT NOT NULL,
		quantity   DOUBLE PRECISION NOT NULL DEFAULT 1,
		unit       TEXT NOT NULL DEFAULT 'piece',
		location   TEXT NOT NULL DEFAULT 'pantry',
		category   TEXT NOT NULL DEFAULT 'other',
		expires_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL,
		UNIQUE (user_id, id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pantry_items_user ON pantry_items (user_id)`,
	`CREATE TABLE IF NOT EXISTS recipes (
		id          TEXT NOT NULL,
		user_id     TEXT NOT NULL,
		title       TEXT NOT NULL,
		ingredients JSONB NOT NULL DEFAULT '[]',
		steps       JSONB NOT NULL DEFAULT '[]',
		nutrition   JSONB NOT NULL DEFAULT '{}',
		tags        TEXT[] NOT NULL DEFAULT '{}',
		created_at  TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (user_id, id)
	)`,
	`CREATE TABLE IF NOT EXISTS recipe_ratings (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		recipe_id  TEXT NOT NULL,
		rating     INT NOT NULL,
		review     TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_recipe_ratings_user ON recipe_ratings (user_id)`,
	`CREATE TABLE IF NOT EXISTS shopping_lists (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		name       TEXT NOT NULL,
		is_active  BOOLEAN NOT NULL DEFAULT FALSE,
		items      JSONB NOT NULL DEFAULT '[]',
		total_cost DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_shopping_lists_user ON shopping_lists (user_id)`,
	`CREATE TABLE IF NOT EXISTS migration_backups (
		user_id    TEXT NOT NULL,
		ciphertext TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (user_id, created_at)
	)`,
}
