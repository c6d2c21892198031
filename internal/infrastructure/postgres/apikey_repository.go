package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tubevault/tubevault/internal/domain/model"
	"github.com/tubevault/tubevault/internal/domain/repository"
)

// DBTX is an interface that abstracts pgxpool.Pool and pgx.Tx for testability.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// APIKeyRepository implements repository.APIKeyRepository using PostgreSQL.
type APIKeyRepository struct {
	db DBTX
}

// NewAPIKeyRepository creates a new APIKeyRepository instance.
func NewAPIKeyRepository(db DBTX) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// Create persists a new API key.
func (r *APIKeyRepository) Create(ctx context.Context, key *model.APIKey) error {
	const query = `
		INSERT INTO api_keys (id, key, owner, daily_limit, used_today, last_used_date, expires_at, is_admin, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Exec(ctx, query,
		key.ID,
		key.Key,
		key.Owner,
		key.DailyLimit,
		key.UsedToday,
		nullString(key.LastUsedDate),
		key.ExpiresAt,
		key.IsAdmin,
		key.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return repository.ErrDuplicateKey
		}
		return fmt.Errorf("failed to create api key: %w", err)
	}

	return nil
}

// GetByKey retrieves an API key by its token value.
func (r *APIKeyRepository) GetByKey(ctx context.Context, key string) (*model.APIKey, error) {
	const query = `
		SELECT id, key, owner, daily_limit, used_today, last_used_date, expires_at, is_admin, created_at
		FROM api_keys
		WHERE key = $1
	`

	k, err := scanAPIKey(r.db.QueryRow(ctx, query, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to get api key: %w", err)
	}

	return k, nil
}

// ResetDailyUsage zeroes the counter and moves the watermark to today.
// The WHERE clause makes the rollover a single atomic, idempotent update:
// concurrent callers on the same day leave the row untouched after the
// first one wins.
func (r *APIKeyRepository) ResetDailyUsage(ctx context.Context, key, today string) error {
	const query = `
		UPDATE api_keys
		SET used_today = 0, last_used_date = $2
		WHERE key = $1 AND last_used_date IS DISTINCT FROM $2
	`

	if _, err := r.db.Exec(ctx, query, key, today); err != nil {
		return fmt.Errorf("failed to reset daily usage: %w", err)
	}
	return nil
}

// ConsumeQuota increments today's counter iff it is below the daily limit.
// The conditional update is the store-level atomic check-and-increment; the
// counter is never read back and re-written by application code.
func (r *APIKeyRepository) ConsumeQuota(ctx context.Context, key string) (bool, error) {
	const query = `
		UPDATE api_keys
		SET used_today = used_today + 1
		WHERE key = $1 AND used_today < daily_limit
	`

	tag, err := r.db.Exec(ctx, query, key)
	if err != nil {
		return false, fmt.Errorf("failed to consume quota: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Delete revokes an API key.
func (r *APIKeyRepository) Delete(ctx context.Context, key string) error {
	const query = `DELETE FROM api_keys WHERE key = $1`

	tag, err := r.db.Exec(ctx, query, key)
	if err != nil {
		return fmt.Errorf("failed to delete api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrKeyNotFound
	}
	return nil
}

// Count returns the total number of keys.
func (r *APIKeyRepository) Count(ctx context.Context) (int64, error) {
	const query = `SELECT COUNT(*) FROM api_keys`

	var n int64
	if err := r.db.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count api keys: %w", err)
	}
	return n, nil
}

// UsageOn sums today's counters across keys last used on the given date.
func (r *APIKeyRepository) UsageOn(ctx context.Context, date string) (int64, error) {
	const query = `SELECT COALESCE(SUM(used_today), 0) FROM api_keys WHERE last_used_date = $1`

	var n int64
	if err := r.db.QueryRow(ctx, query, date).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to sum usage: %w", err)
	}
	return n, nil
}

// ListRecent returns up to limit keys, newest first.
func (r *APIKeyRepository) ListRecent(ctx context.Context, limit int) ([]*model.APIKey, error) {
	const query = `
		SELECT id, key, owner, daily_limit, used_today, last_used_date, expires_at, is_admin, created_at
		FROM api_keys
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}
	defer rows.Close()

	var keys []*model.APIKey
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan api key: %w", err)
		}
		keys = append(keys, k)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating api keys: %w", err)
	}

	return keys, nil
}

func scanAPIKey(row pgx.Row) (*model.APIKey, error) {
	var (
		k            model.APIKey
		lastUsedDate *string
	)

	err := row.Scan(
		&k.ID,
		&k.Key,
		&k.Owner,
		&k.DailyLimit,
		&k.UsedToday,
		&lastUsedDate,
		&k.ExpiresAt,
		&k.IsAdmin,
		&k.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastUsedDate != nil {
		k.LastUsedDate = *lastUsedDate
	}

	return &k, nil
}

// nullString returns nil for empty strings, otherwise a pointer to the string.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Compile-time verification that APIKeyRepository implements repository.APIKeyRepository.
var _ repository.APIKeyRepository = (*APIKeyRepository)(nil)
