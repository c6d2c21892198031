package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tubevault/tubevault/internal/domain/model"
	"github.com/tubevault/tubevault/internal/domain/repository"
	"github.com/tubevault/tubevault/internal/infrastructure/metrics"
)

var (
	// ErrUnauthorized indicates the presented API key does not exist.
	ErrUnauthorized = errors.New("invalid api key")

	// ErrKeyExpired indicates the key's absolute expiry has passed.
	ErrKeyExpired = errors.New("api key expired")

	// ErrQuotaExceeded indicates today's quota for the key is exhausted.
	ErrQuotaExceeded = errors.New("daily quota exceeded")

	// ErrForbidden indicates the key is valid but lacks admin privilege.
	ErrForbidden = errors.New("admin privilege required")
)

// AdmissionService gates resolution requests on API keys and their daily
// quotas. Quota days roll over on the calendar day of the configured
// location, compared as date strings rather than time deltas.
type AdmissionService struct {
	keys   repository.APIKeyRepository
	loc    *time.Location
	now    func() time.Time
	logger *slog.Logger
}

// NewAdmissionService creates an admission service. The location bounds the
// quota day; now is injectable for tests and defaults to time.Now.
func NewAdmissionService(keys repository.APIKeyRepository, loc *time.Location, logger *slog.Logger) *AdmissionService {
	return &AdmissionService{
		keys:   keys,
		loc:    loc,
		now:    time.Now,
		logger: logger,
	}
}

// Today returns the current quota date string.
func (s *AdmissionService) Today() string {
	return s.now().In(s.loc).Format(model.DateLayout)
}

// Admit validates the key, rolls the usage counter over on a new quota day,
// and consumes one unit of today's quota. On success the returned key
// reflects state before consumption.
func (s *AdmissionService) Admit(ctx context.Context, key string) (*model.APIKey, error) {
	rec, err := s.keys.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrKeyNotFound) {
			metrics.AdmissionRejectionsTotal.WithLabelValues("unauthorized").Inc()
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("get api key: %w", err)
	}

	if rec.Expired(s.now()) {
		metrics.AdmissionRejectionsTotal.WithLabelValues("expired").Inc()
		return nil, ErrKeyExpired
	}

	today := s.Today()
	if rec.LastUsedDate != today {
		if err := s.keys.ResetDailyUsage(ctx, key, today); err != nil {
			return nil, fmt.Errorf("reset daily usage: %w", err)
		}
		rec.UsedToday = 0
		rec.LastUsedDate = today
	}

	ok, err := s.keys.ConsumeQuota(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("consume quota: %w", err)
	}
	if !ok {
		metrics.AdmissionRejectionsTotal.WithLabelValues("quota").Inc()
		s.logger.Info("quota exhausted", "owner", rec.Owner, "limit", rec.DailyLimit)
		return nil, ErrQuotaExceeded
	}

	return rec, nil
}

// Authenticate validates a key without consuming quota. Used by admin
// endpoints and status checks.
func (s *AdmissionService) Authenticate(ctx context.Context, key string) (*model.APIKey, error) {
	rec, err := s.keys.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrKeyNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("get api key: %w", err)
	}
	if rec.Expired(s.now()) {
		return nil, ErrKeyExpired
	}
	return rec, nil
}
