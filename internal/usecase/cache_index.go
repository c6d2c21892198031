package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/tubevault/tubevault/internal/domain/model"
	"github.com/tubevault/tubevault/internal/domain/repository"
	"github.com/tubevault/tubevault/internal/infrastructure/metrics"
)

// CacheIndex answers "is this pair archived?" through three layers: a
// bounded process-local LRU, an optional shared cache, and the durable
// store. Records are never invalidated, so a local hit needs no store round
// trip; concurrent misses on the same pair share one store lookup.
type CacheIndex struct {
	local  *lru.Cache[string, *model.CacheRecord]
	shared repository.RecordCache
	store  repository.CacheRecordRepository
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
}

// NewCacheIndex creates a cache index. shared may be nil when no shared
// cache is configured; localSize bounds the in-process layer.
func NewCacheIndex(store repository.CacheRecordRepository, shared repository.RecordCache, localSize int, ttl time.Duration, logger *slog.Logger) (*CacheIndex, error) {
	local, err := lru.New[string, *model.CacheRecord](localSize)
	if err != nil {
		return nil, fmt.Errorf("create local cache: %w", err)
	}
	return &CacheIndex{
		local:  local,
		shared: shared,
		store:  store,
		ttl:    ttl,
		logger: logger,
	}, nil
}

// Lookup returns the record for a pair, or nil when the pair has never been
// archived. Outer layers are filled on hits in deeper ones.
func (c *CacheIndex) Lookup(ctx context.Context, identifier string, kind model.Kind) (*model.CacheRecord, error) {
	key := model.CacheKey(identifier, kind)

	if rec, ok := c.local.Get(key); ok {
		metrics.CacheLookupsTotal.WithLabelValues(metrics.LayerLocal, metrics.LookupHit).Inc()
		return rec, nil
	}
	metrics.CacheLookupsTotal.WithLabelValues(metrics.LayerLocal, metrics.LookupMiss).Inc()

	v, err, shared := c.group.Do(key, func() (any, error) {
		return c.lookupSlow(ctx, identifier, kind)
	})
	if shared {
		metrics.SingleflightRequestsTotal.WithLabelValues(metrics.FlightShared).Inc()
	} else {
		metrics.SingleflightRequestsTotal.WithLabelValues(metrics.FlightLeader).Inc()
	}
	if err != nil {
		return nil, err
	}

	rec := v.(*model.CacheRecord)
	if rec != nil {
		c.local.Add(key, rec)
	}
	return rec, nil
}

func (c *CacheIndex) lookupSlow(ctx context.Context, identifier string, kind model.Kind) (*model.CacheRecord, error) {
	if c.shared != nil {
		rec, err := c.shared.Get(ctx, identifier, kind)
		if err != nil {
			c.logger.Warn("shared cache lookup failed", "error", err)
		} else if rec != nil {
			metrics.CacheLookupsTotal.WithLabelValues(metrics.LayerRedis, metrics.LookupHit).Inc()
			return rec, nil
		} else {
			metrics.CacheLookupsTotal.WithLabelValues(metrics.LayerRedis, metrics.LookupMiss).Inc()
		}
	}

	rec, err := c.store.GetByPair(ctx, identifier, kind)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			metrics.CacheLookupsTotal.WithLabelValues(metrics.LayerStore, metrics.LookupMiss).Inc()
			return (*model.CacheRecord)(nil), nil
		}
		return nil, fmt.Errorf("store lookup: %w", err)
	}
	metrics.CacheLookupsTotal.WithLabelValues(metrics.LayerStore, metrics.LookupHit).Inc()

	c.fillShared(ctx, rec)
	return rec, nil
}

// Publish durably records an archived pair and fills the cache layers. The
// store write is authoritative; cache fills are best-effort.
func (c *CacheIndex) Publish(ctx context.Context, rec *model.CacheRecord) error {
	if err := c.store.Upsert(ctx, rec); err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}

	c.local.Add(rec.CacheKey(), rec)
	c.fillShared(ctx, rec)
	return nil
}

func (c *CacheIndex) fillShared(ctx context.Context, rec *model.CacheRecord) {
	if c.shared == nil {
		return
	}
	if err := c.shared.Set(ctx, rec, c.ttl); err != nil {
		c.logger.Warn("shared cache fill failed", "error", err)
	}
}
