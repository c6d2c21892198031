package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tubevault/tubevault/internal/domain/model"
	"github.com/tubevault/tubevault/internal/domain/repository"
	"github.com/tubevault/tubevault/internal/usecase"
)

// KeyService is the key management surface the admin handler depends on.
type KeyService interface {
	CreateKey(ctx context.Context, owner string, dailyLimit int, validFor time.Duration, isAdmin bool) (*model.APIKey, error)
	RevokeKey(ctx context.Context, key string) error
	AuthenticateAdmin(ctx context.Context, key string) (*model.APIKey, error)
	Stats(ctx context.Context) (*usecase.Stats, error)
	ListKeys(ctx context.Context, limit int) ([]*model.APIKey, error)
}

// AdminHandler serves key management and usage stats. All routes require an
// admin key.
type AdminHandler struct {
	keys   KeyService
	logger *slog.Logger
}

// NewAdminHandler creates an admin handler.
func NewAdminHandler(keys KeyService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{keys: keys, logger: logger}
}

// RequireAdmin authenticates the admin key carried in the X-API-Key header
// or the api_key query parameter.
func (h *AdminHandler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-API-Key")
		if key == "" {
			key = r.URL.Query().Get("api_key")
		}
		if key == "" {
			Error(w, http.StatusUnauthorized, "missing_api_key", "admin api key is required")
			return
		}

		if _, err := h.keys.AuthenticateAdmin(r.Context(), key); err != nil {
			switch {
			case errors.Is(err, usecase.ErrForbidden):
				Error(w, http.StatusForbidden, "forbidden", "admin privilege required")
			case errors.Is(err, usecase.ErrUnauthorized), errors.Is(err, usecase.ErrKeyExpired):
				Error(w, http.StatusUnauthorized, "invalid_api_key", "api key not recognized")
			default:
				h.logger.Error("admin authentication failed", "error", err)
				Error(w, http.StatusInternalServerError, "internal_error", "")
			}
			return
		}
		next.ServeHTTP(w, r)
	})
}

type createKeyRequest struct {
	Owner      string `json:"owner"`
	DailyLimit int    `json:"daily_limit"`
	DaysValid  int    `json:"days_valid"`
	Admin      bool   `json:"admin"`
}

type keyResponse struct {
	Key        string `json:"key"`
	Owner      string `json:"owner"`
	DailyLimit int    `json:"daily_limit"`
	UsedToday  int    `json:"used_today"`
	Admin      bool   `json:"admin"`
	ExpiresAt  string `json:"expires_at,omitempty"`
	CreatedAt  string `json:"created_at"`
}

func toKeyResponse(k *model.APIKey) keyResponse {
	resp := keyResponse{
		Key:        k.Key,
		Owner:      k.Owner,
		DailyLimit: k.DailyLimit,
		UsedToday:  k.UsedToday,
		Admin:      k.IsAdmin,
		CreatedAt:  k.CreatedAt.Format(time.RFC3339),
	}
	if k.ExpiresAt != nil {
		resp.ExpiresAt = k.ExpiresAt.Format(time.RFC3339)
	}
	return resp
}

// CreateKey handles POST /admin/keys.
func (h *AdminHandler) CreateKey(w http.ResponseWriter, r *http.Request) {
	var req createKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid_body", "could not parse request body")
		return
	}

	validFor := time.Duration(req.DaysValid) * 24 * time.Hour
	key, err := h.keys.CreateKey(r.Context(), req.Owner, req.DailyLimit, validFor, req.Admin)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrEmptyOwner), errors.Is(err, model.ErrInvalidDailyLimit):
			Error(w, http.StatusBadRequest, "invalid_request", err.Error())
		default:
			h.logger.Error("create key failed", "error", err)
			Error(w, http.StatusInternalServerError, "internal_error", "")
		}
		return
	}

	JSON(w, http.StatusCreated, toKeyResponse(key))
}

// RevokeKey handles DELETE /admin/keys/{key}.
func (h *AdminHandler) RevokeKey(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	if err := h.keys.RevokeKey(r.Context(), key); err != nil {
		if errors.Is(err, repository.ErrKeyNotFound) {
			Error(w, http.StatusNotFound, "key_not_found", "no such api key")
			return
		}
		h.logger.Error("revoke key failed", "error", err)
		Error(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListKeys handles GET /admin/keys.
func (h *AdminHandler) ListKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.keys.ListKeys(r.Context(), 100)
	if err != nil {
		h.logger.Error("list keys failed", "error", err)
		Error(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	resp := make([]keyResponse, 0, len(keys))
	for _, k := range keys {
		resp = append(resp, toKeyResponse(k))
	}
	JSON(w, http.StatusOK, resp)
}

type statsResponse struct {
	TotalKeys       int64 `json:"total_keys"`
	ArchivedRecords int64 `json:"archived_records"`
	RequestsToday   int64 `json:"requests_today"`
}

// Stats handles GET /admin/stats.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.keys.Stats(r.Context())
	if err != nil {
		h.logger.Error("stats failed", "error", err)
		Error(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	JSON(w, http.StatusOK, statsResponse{
		TotalKeys:       stats.TotalKeys,
		ArchivedRecords: stats.ArchivedRecords,
		RequestsToday:   stats.RequestsToday,
	})
}
