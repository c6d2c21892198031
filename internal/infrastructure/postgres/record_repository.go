package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tubevault/tubevault/internal/domain/model"
	"github.com/tubevault/tubevault/internal/domain/repository"
)

// CacheRecordRepository implements repository.CacheRecordRepository using PostgreSQL.
type CacheRecordRepository struct {
	db DBTX
}

// NewCacheRecordRepository creates a new CacheRecordRepository instance.
func NewCacheRecordRepository(db DBTX) *CacheRecordRepository {
	return &CacheRecordRepository{db: db}
}

// GetByPair retrieves the record for an (identifier, kind) pair.
func (r *CacheRecordRepository) GetByPair(ctx context.Context, identifier string, kind model.Kind) (*model.CacheRecord, error) {
	const query = `
		SELECT id, identifier, kind, bucket, object_key, etag, file_name, meta, cached_at
		FROM cache_records
		WHERE identifier = $1 AND kind = $2
	`

	rec, err := scanCacheRecord(r.db.QueryRow(ctx, query, identifier, kind.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get cache record: %w", err)
	}

	return rec, nil
}

// Upsert writes the record for its pair, overwriting any previous archival.
func (r *CacheRecordRepository) Upsert(ctx context.Context, record *model.CacheRecord) error {
	const query = `
		INSERT INTO cache_records (id, identifier, kind, bucket, object_key, etag, file_name, meta, cached_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (identifier, kind) DO UPDATE
		SET bucket = EXCLUDED.bucket,
		    object_key = EXCLUDED.object_key,
		    etag = EXCLUDED.etag,
		    file_name = EXCLUDED.file_name,
		    meta = EXCLUDED.meta,
		    cached_at = EXCLUDED.cached_at
	`

	_, err := r.db.Exec(ctx, query,
		record.ID,
		record.Identifier,
		record.Kind.String(),
		record.Bucket,
		record.ObjectKey,
		record.ETag,
		record.FileName,
		record.Meta,
		record.CachedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert cache record: %w", err)
	}

	return nil
}

// Count returns the total number of archived records.
func (r *CacheRecordRepository) Count(ctx context.Context) (int64, error) {
	const query = `SELECT COUNT(*) FROM cache_records`

	var n int64
	if err := r.db.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cache records: %w", err)
	}
	return n, nil
}

func scanCacheRecord(row pgx.Row) (*model.CacheRecord, error) {
	var (
		rec  model.CacheRecord
		kind string
	)

	err := row.Scan(
		&rec.ID,
		&rec.Identifier,
		&kind,
		&rec.Bucket,
		&rec.ObjectKey,
		&rec.ETag,
		&rec.FileName,
		&rec.Meta,
		&rec.CachedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Kind = model.Kind(kind)
	if rec.Meta == nil {
		rec.Meta = make(map[string]string)
	}

	return &rec, nil
}

// Compile-time verification that CacheRecordRepository implements repository.CacheRecordRepository.
var _ repository.CacheRecordRepository = (*CacheRecordRepository)(nil)
