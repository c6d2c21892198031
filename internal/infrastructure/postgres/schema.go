package postgres

import (
	"context"
	"fmt"
)

// schema is applied at boot. Statements are idempotent; the unique indexes
// back the store-level invariants (one record per (identifier, kind), one
// row per key value).
var schema = []string{
	`CREATE TABLE IF NOT EXISTS api_keys (
		id             UUID PRIMARY KEY,
		key            TEXT NOT NULL UNIQUE,
		owner          TEXT NOT NULL,
		daily_limit    INT NOT NULL,
		used_today     INT NOT NULL DEFAULT 0,
		last_used_date TEXT,
		expires_at     TIMESTAMPTZ,
		is_admin       BOOLEAN NOT NULL DEFAULT FALSE,
		created_at     TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS cache_records (
		id         UUID PRIMARY KEY,
		identifier TEXT NOT NULL,
		kind       TEXT NOT NULL,
		bucket     TEXT NOT NULL,
		object_key TEXT NOT NULL,
		etag       TEXT NOT NULL DEFAULT '',
		file_name  TEXT NOT NULL,
		meta       JSONB NOT NULL DEFAULT '{}',
		cached_at  TIMESTAMPTZ NOT NULL,
		UNIQUE (identifier, kind)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_cache_records_identifier ON cache_records (identifier)`,
	`CREATE INDEX IF NOT EXISTS idx_api_keys_last_used_date ON api_keys (last_used_date)`,
}

// EnsureSchema creates tables and indexes if they do not exist.
func (c *Client) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := c.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
