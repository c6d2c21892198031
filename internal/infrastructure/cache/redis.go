package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/tubevault/tubevault/internal/domain/model"
	"github.com/tubevault/tubevault/internal/domain/repository"
)

// recordKeyPrefix is the prefix for cache-record keys in Redis.
const recordKeyPrefix = "record:"

// recordJSON is the JSON representation of a CacheRecord for caching.
// Using an explicit struct avoids coupling to the domain model's shape.
type recordJSON struct {
	ID         string            `json:"id"`
	Identifier string            `json:"identifier"`
	Kind       string            `json:"kind"`
	Bucket     string            `json:"bucket"`
	ObjectKey  string            `json:"object_key"`
	ETag       string            `json:"etag"`
	FileName   string            `json:"file_name"`
	Meta       map[string]string `json:"meta"`
	CachedAt   string            `json:"cached_at"`
}

// RedisRecordCache implements repository.RecordCache using Redis as the
// backing store.
type RedisRecordCache struct {
	client *redis.Client
}

// NewRedisRecordCache creates a new Redis-backed record cache.
func NewRedisRecordCache(client *redis.Client) *RedisRecordCache {
	return &RedisRecordCache{client: client}
}

// Get retrieves a record from Redis.
// Returns nil, nil on cache miss.
func (c *RedisRecordCache) Get(ctx context.Context, identifier string, kind model.Kind) (*model.CacheRecord, error) {
	data, err := c.client.Get(ctx, buildKey(identifier, kind)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	record, err := deserialize(data)
	if err != nil {
		return nil, fmt.Errorf("deserialize record: %w", err)
	}

	return record, nil
}

// Set stores a record in Redis with the specified TTL.
func (c *RedisRecordCache) Set(ctx context.Context, record *model.CacheRecord, ttl time.Duration) error {
	data, err := serialize(record)
	if err != nil {
		return fmt.Errorf("serialize record: %w", err)
	}

	if err := c.client.Set(ctx, buildKey(record.Identifier, record.Kind), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Delete removes a record from Redis.
func (c *RedisRecordCache) Delete(ctx context.Context, identifier string, kind model.Kind) error {
	if err := c.client.Del(ctx, buildKey(identifier, kind)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func buildKey(identifier string, kind model.Kind) string {
	return recordKeyPrefix + model.CacheKey(identifier, kind)
}

func serialize(record *model.CacheRecord) ([]byte, error) {
	r := recordJSON{
		ID:         record.ID.String(),
		Identifier: record.Identifier,
		Kind:       string(record.Kind),
		Bucket:     record.Bucket,
		ObjectKey:  record.ObjectKey,
		ETag:       record.ETag,
		FileName:   record.FileName,
		Meta:       record.Meta,
		CachedAt:   record.CachedAt.Format(time.RFC3339Nano),
	}
	return json.Marshal(r)
}

func deserialize(data []byte) (*model.CacheRecord, error) {
	var r recordJSON
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, fmt.Errorf("parse record ID: %w", err)
	}

	cachedAt, err := time.Parse(time.RFC3339Nano, r.CachedAt)
	if err != nil {
		return nil, fmt.Errorf("parse cached_at: %w", err)
	}

	meta := r.Meta
	if meta == nil {
		meta = make(map[string]string)
	}

	return &model.CacheRecord{
		ID:         id,
		Identifier: r.Identifier,
		Kind:       model.Kind(r.Kind),
		Bucket:     r.Bucket,
		ObjectKey:  r.ObjectKey,
		ETag:       r.ETag,
		FileName:   r.FileName,
		Meta:       meta,
		CachedAt:   cachedAt,
	}, nil
}

// Compile-time verification that RedisRecordCache implements the interface.
var _ repository.RecordCache = (*RedisRecordCache)(nil)
