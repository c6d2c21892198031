package repository

import (
	"context"

	"github.com/tubevault/tubevault/internal/domain/model"
)

// APIKeyRepository defines persistence for access tokens.
// Implementations should be provided by the infrastructure layer (e.g., PostgreSQL).
//
// ResetDailyUsage and ConsumeQuota must be store-level atomic operations, not
// read-modify-write in application code: concurrent requests and multiple
// processes may contend on the same key.
type APIKeyRepository interface {
	// Create persists a new API key.
	// Returns ErrDuplicateKey if the key value already exists.
	Create(ctx context.Context, key *model.APIKey) error

	// GetByKey retrieves an API key by its token value.
	// Returns ErrKeyNotFound if the key does not exist.
	GetByKey(ctx context.Context, key string) (*model.APIKey, error)

	// ResetDailyUsage zeroes the usage counter and advances the last-used
	// watermark to today, but only when the stored watermark differs.
	// Idempotent within a day.
	ResetDailyUsage(ctx context.Context, key, today string) error

	// ConsumeQuota atomically increments today's counter when it is below
	// the daily limit. Returns false when the quota is exhausted; the
	// counter is left unchanged in that case.
	ConsumeQuota(ctx context.Context, key string) (bool, error)

	// Delete revokes an API key.
	// Returns ErrKeyNotFound if the key does not exist.
	Delete(ctx context.Context, key string) error

	// Count returns the total number of keys.
	Count(ctx context.Context) (int64, error)

	// UsageOn sums the usage counters of keys last used on the given
	// canonical date.
	UsageOn(ctx context.Context, date string) (int64, error)

	// ListRecent returns up to limit keys, newest first.
	ListRecent(ctx context.Context, limit int) ([]*model.APIKey, error)
}
