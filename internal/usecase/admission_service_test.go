package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tubevault/tubevault/internal/domain/model"
	"github.com/tubevault/tubevault/internal/domain/repository"
)

// quotaStore is an in-memory APIKeyRepository with real quota semantics,
// good enough to exercise rollover and exhaustion end to end.
type quotaStore struct {
	mockAPIKeyRepo
	mu  sync.Mutex
	key *model.APIKey
}

func newQuotaStore(key *model.APIKey) *quotaStore {
	s := &quotaStore{key: key}
	s.getByKeyFunc = func(_ context.Context, k string) (*model.APIKey, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if k != s.key.Key {
			return nil, repository.ErrKeyNotFound
		}
		cp := *s.key
		return &cp, nil
	}
	s.resetFunc = func(_ context.Context, _, today string) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.key.LastUsedDate != today {
			s.key.UsedToday = 0
			s.key.LastUsedDate = today
		}
		return nil
	}
	s.consumeFunc = func(_ context.Context, _ string) (bool, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.key.UsedToday >= s.key.DailyLimit {
			return false, nil
		}
		s.key.UsedToday++
		return true, nil
	}
	return s
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestAdmission(t *testing.T, repo repository.APIKeyRepository, now time.Time) *AdmissionService {
	t.Helper()
	svc := NewAdmissionService(repo, time.UTC, testLogger())
	svc.now = fixedClock(now)
	return svc
}

func TestAdmit_UnknownKey(t *testing.T) {
	svc := newTestAdmission(t, &mockAPIKeyRepo{}, time.Now())

	_, err := svc.Admit(context.Background(), "no-such-key")
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
}

func TestAdmit_ExpiredKey(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	expiry := now.Add(-time.Hour)
	key := &model.APIKey{Key: "k1", Owner: "alice", DailyLimit: 10, ExpiresAt: &expiry}

	svc := newTestAdmission(t, newQuotaStore(key), now)

	_, err := svc.Admit(context.Background(), "k1")
	if !errors.Is(err, ErrKeyExpired) {
		t.Errorf("err = %v, want ErrKeyExpired", err)
	}
}

func TestAdmit_QuotaExhaustion(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	key := &model.APIKey{Key: "k1", Owner: "alice", DailyLimit: 5}
	svc := newTestAdmission(t, newQuotaStore(key), now)

	for i := 0; i < 5; i++ {
		if _, err := svc.Admit(context.Background(), "k1"); err != nil {
			t.Fatalf("admit %d failed: %v", i+1, err)
		}
	}

	_, err := svc.Admit(context.Background(), "k1")
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Errorf("err = %v, want ErrQuotaExceeded", err)
	}
}

func TestAdmit_RolloverResetsQuota(t *testing.T) {
	day1 := time.Date(2025, 6, 1, 23, 0, 0, 0, time.UTC)
	key := &model.APIKey{Key: "k1", Owner: "alice", DailyLimit: 2}
	store := newQuotaStore(key)
	svc := newTestAdmission(t, store, day1)

	for i := 0; i < 2; i++ {
		if _, err := svc.Admit(context.Background(), "k1"); err != nil {
			t.Fatalf("admit failed: %v", err)
		}
	}
	if _, err := svc.Admit(context.Background(), "k1"); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("err = %v, want ErrQuotaExceeded", err)
	}

	// Next calendar day: the counter rolls over.
	svc.now = fixedClock(day1.Add(2 * time.Hour))
	if _, err := svc.Admit(context.Background(), "k1"); err != nil {
		t.Errorf("admit after rollover failed: %v", err)
	}
}

func TestAdmit_RolloverUsesLocation(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	// 19:00 UTC on June 1 is already June 2 in Kolkata (UTC+5:30).
	now := time.Date(2025, 6, 1, 19, 0, 0, 0, time.UTC)
	key := &model.APIKey{Key: "k1", Owner: "alice", DailyLimit: 10, LastUsedDate: "2025-06-01", UsedToday: 10}

	var resetDate string
	store := newQuotaStore(key)
	inner := store.resetFunc
	store.resetFunc = func(ctx context.Context, k, today string) error {
		resetDate = today
		return inner(ctx, k, today)
	}

	svc := NewAdmissionService(store, loc, testLogger())
	svc.now = fixedClock(now)

	if _, err := svc.Admit(context.Background(), "k1"); err != nil {
		t.Fatalf("admit failed: %v", err)
	}
	if resetDate != "2025-06-02" {
		t.Errorf("reset date = %q, want 2025-06-02", resetDate)
	}
}

func TestAuthenticate_DoesNotConsumeQuota(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	key := &model.APIKey{Key: "k1", Owner: "alice", DailyLimit: 1, UsedToday: 1, LastUsedDate: "2025-06-01"}
	svc := newTestAdmission(t, newQuotaStore(key), now)

	rec, err := svc.Authenticate(context.Background(), "k1")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if rec.Owner != "alice" {
		t.Errorf("owner = %q, want alice", rec.Owner)
	}
}
