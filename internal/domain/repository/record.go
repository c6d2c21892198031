package repository

import (
	"context"

	"github.com/tubevault/tubevault/internal/domain/model"
)

// CacheRecordRepository defines persistence for archived-media records.
// Implementations should be provided by the infrastructure layer (e.g., PostgreSQL).
type CacheRecordRepository interface {
	// GetByPair retrieves the record for an (identifier, kind) pair.
	// Returns ErrRecordNotFound if no record exists.
	GetByPair(ctx context.Context, identifier string, kind model.Kind) (*model.CacheRecord, error)

	// Upsert writes the record for its (identifier, kind) pair, overwriting
	// any existing record. Archival never duplicates a pair.
	Upsert(ctx context.Context, record *model.CacheRecord) error

	// Count returns the total number of archived records.
	Count(ctx context.Context) (int64, error)
}
