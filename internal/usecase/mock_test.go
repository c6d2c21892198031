package usecase

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/tubevault/tubevault/internal/domain/model"
	"github.com/tubevault/tubevault/internal/domain/repository"
	"github.com/tubevault/tubevault/internal/resolver"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockAPIKeyRepo struct {
	createFunc     func(ctx context.Context, key *model.APIKey) error
	getByKeyFunc   func(ctx context.Context, key string) (*model.APIKey, error)
	resetFunc      func(ctx context.Context, key, today string) error
	consumeFunc    func(ctx context.Context, key string) (bool, error)
	deleteFunc     func(ctx context.Context, key string) error
	countFunc      func(ctx context.Context) (int64, error)
	usageOnFunc    func(ctx context.Context, date string) (int64, error)
	listRecentFunc func(ctx context.Context, limit int) ([]*model.APIKey, error)
}

func (m *mockAPIKeyRepo) Create(ctx context.Context, key *model.APIKey) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, key)
	}
	return nil
}

func (m *mockAPIKeyRepo) GetByKey(ctx context.Context, key string) (*model.APIKey, error) {
	if m.getByKeyFunc != nil {
		return m.getByKeyFunc(ctx, key)
	}
	return nil, repository.ErrKeyNotFound
}

func (m *mockAPIKeyRepo) ResetDailyUsage(ctx context.Context, key, today string) error {
	if m.resetFunc != nil {
		return m.resetFunc(ctx, key, today)
	}
	return nil
}

func (m *mockAPIKeyRepo) ConsumeQuota(ctx context.Context, key string) (bool, error) {
	if m.consumeFunc != nil {
		return m.consumeFunc(ctx, key)
	}
	return true, nil
}

func (m *mockAPIKeyRepo) Delete(ctx context.Context, key string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, key)
	}
	return nil
}

func (m *mockAPIKeyRepo) Count(ctx context.Context) (int64, error) {
	if m.countFunc != nil {
		return m.countFunc(ctx)
	}
	return 0, nil
}

func (m *mockAPIKeyRepo) UsageOn(ctx context.Context, date string) (int64, error) {
	if m.usageOnFunc != nil {
		return m.usageOnFunc(ctx, date)
	}
	return 0, nil
}

func (m *mockAPIKeyRepo) ListRecent(ctx context.Context, limit int) ([]*model.APIKey, error) {
	if m.listRecentFunc != nil {
		return m.listRecentFunc(ctx, limit)
	}
	return nil, nil
}

type mockRecordRepo struct {
	getByPairFunc func(ctx context.Context, identifier string, kind model.Kind) (*model.CacheRecord, error)
	upsertFunc    func(ctx context.Context, record *model.CacheRecord) error
	countFunc     func(ctx context.Context) (int64, error)
}

func (m *mockRecordRepo) GetByPair(ctx context.Context, identifier string, kind model.Kind) (*model.CacheRecord, error) {
	if m.getByPairFunc != nil {
		return m.getByPairFunc(ctx, identifier, kind)
	}
	return nil, repository.ErrRecordNotFound
}

func (m *mockRecordRepo) Upsert(ctx context.Context, record *model.CacheRecord) error {
	if m.upsertFunc != nil {
		return m.upsertFunc(ctx, record)
	}
	return nil
}

func (m *mockRecordRepo) Count(ctx context.Context) (int64, error) {
	if m.countFunc != nil {
		return m.countFunc(ctx)
	}
	return 0, nil
}

type mockRecordCache struct {
	getFunc    func(ctx context.Context, identifier string, kind model.Kind) (*model.CacheRecord, error)
	setFunc    func(ctx context.Context, record *model.CacheRecord, ttl time.Duration) error
	deleteFunc func(ctx context.Context, identifier string, kind model.Kind) error
}

func (m *mockRecordCache) Get(ctx context.Context, identifier string, kind model.Kind) (*model.CacheRecord, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, identifier, kind)
	}
	return nil, nil
}

func (m *mockRecordCache) Set(ctx context.Context, record *model.CacheRecord, ttl time.Duration) error {
	if m.setFunc != nil {
		return m.setFunc(ctx, record, ttl)
	}
	return nil
}

func (m *mockRecordCache) Delete(ctx context.Context, identifier string, kind model.Kind) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, identifier, kind)
	}
	return nil
}

type mockBlobStorage struct {
	putFunc         func(ctx context.Context, key string, reader io.Reader, size int64, contentType, caption string) (*repository.PutResult, error)
	transferURLFunc func(ctx context.Context, key string, expiry time.Duration) (string, error)
	existsFunc      func(ctx context.Context, key string) (bool, error)
	deleteFunc      func(ctx context.Context, key string) error
}

func (m *mockBlobStorage) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType, caption string) (*repository.PutResult, error) {
	if m.putFunc != nil {
		return m.putFunc(ctx, key, reader, size, contentType, caption)
	}
	return &repository.PutResult{Bucket: "media-cache", Key: key, ETag: "etag"}, nil
}

func (m *mockBlobStorage) TransferURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if m.transferURLFunc != nil {
		return m.transferURLFunc(ctx, key, expiry)
	}
	return "https://blobs.test/" + key, nil
}

func (m *mockBlobStorage) Exists(ctx context.Context, key string) (bool, error) {
	if m.existsFunc != nil {
		return m.existsFunc(ctx, key)
	}
	return false, nil
}

func (m *mockBlobStorage) Delete(ctx context.Context, key string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, key)
	}
	return nil
}

type mockEventPublisher struct {
	publishFunc func(ctx context.Context, event repository.ArchiveEvent) error
	closeFunc   func() error
}

func (m *mockEventPublisher) PublishArchiveEvent(ctx context.Context, event repository.ArchiveEvent) error {
	if m.publishFunc != nil {
		return m.publishFunc(ctx, event)
	}
	return nil
}

func (m *mockEventPublisher) Close() error {
	if m.closeFunc != nil {
		return m.closeFunc()
	}
	return nil
}

type mockOriginResolver struct {
	fetchMetadataFunc func(ctx context.Context, referenceURL string) (*resolver.Metadata, error)
	transferURLFunc   func(ctx context.Context, resolverKey, quality string, kind model.Kind) (string, error)
}

func (m *mockOriginResolver) FetchMetadata(ctx context.Context, referenceURL string) (*resolver.Metadata, error) {
	if m.fetchMetadataFunc != nil {
		return m.fetchMetadataFunc(ctx, referenceURL)
	}
	return nil, resolver.ErrOriginUnavailable
}

func (m *mockOriginResolver) RequestTransferURL(ctx context.Context, resolverKey, quality string, kind model.Kind) (string, error) {
	if m.transferURLFunc != nil {
		return m.transferURLFunc(ctx, resolverKey, quality, kind)
	}
	return "", resolver.ErrOriginUnavailable
}

type mockDispatcher struct {
	dispatchFunc func(job ArchiveJob) bool
}

func (m *mockDispatcher) Dispatch(job ArchiveJob) bool {
	if m.dispatchFunc != nil {
		return m.dispatchFunc(job)
	}
	return true
}
