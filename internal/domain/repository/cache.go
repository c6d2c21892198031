package repository

import (
	"context"
	"time"

	"github.com/tubevault/tubevault/internal/domain/model"
)

// RecordCache is the shared cache layer sitting between the process-local
// map and the durable store. Implementations handle serialization
// transparently.
type RecordCache interface {
	// Get retrieves a record by pair. Returns nil, nil on cache miss.
	Get(ctx context.Context, identifier string, kind model.Kind) (*model.CacheRecord, error)

	// Set stores a record with the specified TTL.
	Set(ctx context.Context, record *model.CacheRecord, ttl time.Duration) error

	// Delete removes a record by pair. Returns nil if absent.
	Delete(ctx context.Context, identifier string, kind model.Kind) error
}
