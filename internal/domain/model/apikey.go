package model

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the canonical calendar-day format used for quota rollover.
// Rollover comparison is string equality on this form, not a time delta.
const DateLayout = "2006-01-02"

// apiKeyBytes is the entropy of a generated key before encoding.
const apiKeyBytes = 32

// APIKey is an access token gating resolution requests. UsedToday is a
// per-calendar-day counter; LastUsedDate is the watermark that triggers its
// reset on the first use of a new day.
type APIKey struct {
	ID           uuid.UUID
	Key          string
	Owner        string
	DailyLimit   int
	UsedToday    int
	LastUsedDate string
	ExpiresAt    *time.Time
	IsAdmin      bool
	CreatedAt    time.Time
}

var (
	ErrEmptyOwner        = errors.New("owner cannot be empty")
	ErrInvalidDailyLimit = errors.New("daily limit must be positive")
)

// NewAPIKey mints a key for owner. validFor of zero means the key never
// expires.
func NewAPIKey(owner string, dailyLimit int, validFor time.Duration, isAdmin bool) (*APIKey, error) {
	if owner == "" {
		return nil, ErrEmptyOwner
	}
	if dailyLimit <= 0 {
		return nil, ErrInvalidDailyLimit
	}

	key, err := GenerateKey()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var expiresAt *time.Time
	if validFor > 0 {
		t := now.Add(validFor)
		expiresAt = &t
	}

	return &APIKey{
		ID:         uuid.New(),
		Key:        key,
		Owner:      owner,
		DailyLimit: dailyLimit,
		ExpiresAt:  expiresAt,
		IsAdmin:    isAdmin,
		CreatedAt:  now,
	}, nil
}

// GenerateKey returns an unguessable opaque token: 32 random bytes,
// base64url-encoded without padding.
func GenerateKey() (string, error) {
	buf := make([]byte, apiKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Expired reports whether the key's absolute expiry has passed. Keys without
// an expiry never expire.
func (k *APIKey) Expired(now time.Time) bool {
	return k.ExpiresAt != nil && k.ExpiresAt.Before(now)
}

// Exhausted reports whether today's counter has reached the daily limit.
func (k *APIKey) Exhausted() bool {
	return k.UsedToday >= k.DailyLimit
}
