package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tubevault/tubevault/internal/domain/model"
	"github.com/tubevault/tubevault/internal/domain/repository"
)

// KeyService manages the API key lifecycle and aggregate usage stats.
type KeyService struct {
	keys      repository.APIKeyRepository
	records   repository.CacheRecordRepository
	admission *AdmissionService
	logger    *slog.Logger
}

// NewKeyService creates a key management service.
func NewKeyService(keys repository.APIKeyRepository, records repository.CacheRecordRepository, admission *AdmissionService, logger *slog.Logger) *KeyService {
	return &KeyService{
		keys:      keys,
		records:   records,
		admission: admission,
		logger:    logger,
	}
}

// CreateKey mints and persists a new API key.
func (s *KeyService) CreateKey(ctx context.Context, owner string, dailyLimit int, validFor time.Duration, isAdmin bool) (*model.APIKey, error) {
	key, err := model.NewAPIKey(owner, dailyLimit, validFor, isAdmin)
	if err != nil {
		return nil, err
	}
	if err := s.keys.Create(ctx, key); err != nil {
		return nil, fmt.Errorf("create api key: %w", err)
	}

	s.logger.Info("api key created", "owner", owner, "daily_limit", dailyLimit, "admin", isAdmin)
	return key, nil
}

// RevokeKey deletes an API key by its token value.
func (s *KeyService) RevokeKey(ctx context.Context, key string) error {
	if err := s.keys.Delete(ctx, key); err != nil {
		return err
	}
	s.logger.Info("api key revoked")
	return nil
}

// AuthenticateAdmin validates a key and requires admin privilege.
func (s *KeyService) AuthenticateAdmin(ctx context.Context, key string) (*model.APIKey, error) {
	rec, err := s.admission.Authenticate(ctx, key)
	if err != nil {
		return nil, err
	}
	if !rec.IsAdmin {
		return nil, ErrForbidden
	}
	return rec, nil
}

// Stats is an aggregate usage snapshot.
type Stats struct {
	TotalKeys       int64
	ArchivedRecords int64
	RequestsToday   int64
}

// Stats returns aggregate counters over keys and the archive.
func (s *KeyService) Stats(ctx context.Context) (*Stats, error) {
	totalKeys, err := s.keys.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count keys: %w", err)
	}

	records, err := s.records.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}

	today, err := s.keys.UsageOn(ctx, s.admission.Today())
	if err != nil {
		return nil, fmt.Errorf("sum usage: %w", err)
	}

	return &Stats{
		TotalKeys:       totalKeys,
		ArchivedRecords: records,
		RequestsToday:   today,
	}, nil
}

// ListKeys returns up to limit keys, newest first.
func (s *KeyService) ListKeys(ctx context.Context, limit int) ([]*model.APIKey, error) {
	return s.keys.ListRecent(ctx, limit)
}

// Bootstrap creates the first admin key when the key table is empty. The
// created flag is false when keys already exist.
func (s *KeyService) Bootstrap(ctx context.Context, owner string, dailyLimit int, validFor time.Duration) (*model.APIKey, bool, error) {
	count, err := s.keys.Count(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("count keys: %w", err)
	}
	if count > 0 {
		return nil, false, nil
	}

	key, err := s.CreateKey(ctx, owner, dailyLimit, validFor, true)
	if err != nil {
		return nil, false, err
	}
	return key, true, nil
}
