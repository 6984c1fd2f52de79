package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS images (
		id         UUID PRIMARY KEY,
		title      TEXT NOT NULL DEFAULT '',
		image_url  TEXT NOT NULL,
		source_url TEXT NOT NULL DEFAULT '',
		tags       TEXT[] NOT NULL DEFAULT '{}',
		category   TEXT NOT NULL DEFAULT '',
		scraped_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS images_image_url_key ON images (image_url)`,
	`CREATE INDEX IF NOT EXISTS images_source_url_idx ON images (source_url)`,
	`CREATE INDEX IF NOT EXISTS images_scraped_at_idx ON images (scraped_at DESC)`,
	`CREATE INDEX IF NOT EXISTS images_title_idx ON images (title)`,
	`CREATE INDEX IF NOT EXISTS images_category_idx ON images (lower(category))`,
}

// EnsureSchema creates the images table and its indexes if they are missing.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
