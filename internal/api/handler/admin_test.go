package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tubevault/tubevault/internal/domain/model"
	"github.com/tubevault/tubevault/internal/domain/repository"
	"github.com/tubevault/tubevault/internal/usecase"
)

type mockKeyService struct {
	createFunc   func(ctx context.Context, owner string, dailyLimit int, validFor time.Duration, isAdmin bool) (*model.APIKey, error)
	revokeFunc   func(ctx context.Context, key string) error
	authFunc     func(ctx context.Context, key string) (*model.APIKey, error)
	statsFunc    func(ctx context.Context) (*usecase.Stats, error)
	listKeysFunc func(ctx context.Context, limit int) ([]*model.APIKey, error)
}

func (m *mockKeyService) CreateKey(ctx context.Context, owner string, dailyLimit int, validFor time.Duration, isAdmin bool) (*model.APIKey, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, owner, dailyLimit, validFor, isAdmin)
	}
	return &model.APIKey{Key: "new-key", Owner: owner, DailyLimit: dailyLimit, IsAdmin: isAdmin}, nil
}

func (m *mockKeyService) RevokeKey(ctx context.Context, key string) error {
	if m.revokeFunc != nil {
		return m.revokeFunc(ctx, key)
	}
	return nil
}

func (m *mockKeyService) AuthenticateAdmin(ctx context.Context, key string) (*model.APIKey, error) {
	if m.authFunc != nil {
		return m.authFunc(ctx, key)
	}
	return nil, usecase.ErrUnauthorized
}

func (m *mockKeyService) Stats(ctx context.Context) (*usecase.Stats, error) {
	if m.statsFunc != nil {
		return m.statsFunc(ctx)
	}
	return &usecase.Stats{}, nil
}

func (m *mockKeyService) ListKeys(ctx context.Context, limit int) ([]*model.APIKey, error) {
	if m.listKeysFunc != nil {
		return m.listKeysFunc(ctx, limit)
	}
	return nil, nil
}

func adminOK(ctx context.Context, key string) (*model.APIKey, error) {
	if key == "admin-key" {
		return &model.APIKey{Key: key, Owner: "root", IsAdmin: true}, nil
	}
	return nil, usecase.ErrUnauthorized
}

func adminRouter(h *AdminHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Route("/admin", func(r chi.Router) {
		r.Use(h.RequireAdmin)
		r.Post("/keys", h.CreateKey)
		r.Get("/keys", h.ListKeys)
		r.Delete("/keys/{key}", h.RevokeKey)
		r.Get("/stats", h.Stats)
	})
	return r
}

func TestRequireAdmin(t *testing.T) {
	forbidden := func(ctx context.Context, key string) (*model.APIKey, error) {
		return nil, usecase.ErrForbidden
	}

	tests := []struct {
		name   string
		header string
		query  string
		auth   func(ctx context.Context, key string) (*model.APIKey, error)
		want   int
	}{
		{"no key", "", "", adminOK, http.StatusUnauthorized},
		{"header key", "admin-key", "", adminOK, http.StatusOK},
		{"query key", "", "?api_key=admin-key", adminOK, http.StatusOK},
		{"wrong key", "nope", "", adminOK, http.StatusUnauthorized},
		{"non-admin key", "admin-key", "", forbidden, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAdminHandler(&mockKeyService{authFunc: tt.auth}, testLogger())
			r := adminRouter(h)

			req := httptest.NewRequest(http.MethodGet, "/admin/stats"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("X-API-Key", tt.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestCreateKey_Handler(t *testing.T) {
	var gotOwner string
	var gotValidFor time.Duration
	svc := &mockKeyService{
		authFunc: adminOK,
		createFunc: func(_ context.Context, owner string, dailyLimit int, validFor time.Duration, isAdmin bool) (*model.APIKey, error) {
			gotOwner = owner
			gotValidFor = validFor
			return &model.APIKey{Key: "fresh", Owner: owner, DailyLimit: dailyLimit, IsAdmin: isAdmin, CreatedAt: time.Now()}, nil
		},
	}
	h := NewAdminHandler(svc, testLogger())
	r := adminRouter(h)

	body := `{"owner":"alice","daily_limit":100,"days_valid":30}`
	req := httptest.NewRequest(http.MethodPost, "/admin/keys", strings.NewReader(body))
	req.Header.Set("X-API-Key", "admin-key")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if gotOwner != "alice" {
		t.Errorf("owner = %q", gotOwner)
	}
	if gotValidFor != 30*24*time.Hour {
		t.Errorf("validFor = %v", gotValidFor)
	}

	var resp keyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Key != "fresh" {
		t.Errorf("key = %q", resp.Key)
	}
}

func TestCreateKey_InvalidInput(t *testing.T) {
	svc := &mockKeyService{
		authFunc: adminOK,
		createFunc: func(_ context.Context, owner string, dailyLimit int, _ time.Duration, _ bool) (*model.APIKey, error) {
			return nil, model.ErrInvalidDailyLimit
		},
	}
	h := NewAdminHandler(svc, testLogger())
	r := adminRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/admin/keys", strings.NewReader(`{"owner":"alice"}`))
	req.Header.Set("X-API-Key", "admin-key")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestRevokeKey_Handler(t *testing.T) {
	var revoked string
	svc := &mockKeyService{
		authFunc: adminOK,
		revokeFunc: func(_ context.Context, key string) error {
			revoked = key
			return nil
		},
	}
	h := NewAdminHandler(svc, testLogger())
	r := adminRouter(h)

	req := httptest.NewRequest(http.MethodDelete, "/admin/keys/some-key", nil)
	req.Header.Set("X-API-Key", "admin-key")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if revoked != "some-key" {
		t.Errorf("revoked = %q", revoked)
	}
}

func TestRevokeKey_NotFound(t *testing.T) {
	svc := &mockKeyService{
		authFunc: adminOK,
		revokeFunc: func(_ context.Context, _ string) error {
			return repository.ErrKeyNotFound
		},
	}
	h := NewAdminHandler(svc, testLogger())
	r := adminRouter(h)

	req := httptest.NewRequest(http.MethodDelete, "/admin/keys/missing", nil)
	req.Header.Set("X-API-Key", "admin-key")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestStats_Handler(t *testing.T) {
	svc := &mockKeyService{
		authFunc: adminOK,
		statsFunc: func(_ context.Context) (*usecase.Stats, error) {
			return &usecase.Stats{TotalKeys: 3, ArchivedRecords: 17, RequestsToday: 42}, nil
		},
	}
	h := NewAdminHandler(svc, testLogger())
	r := adminRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	req.Header.Set("X-API-Key", "admin-key")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp statsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.TotalKeys != 3 || resp.ArchivedRecords != 17 || resp.RequestsToday != 42 {
		t.Errorf("stats = %+v", resp)
	}
}
