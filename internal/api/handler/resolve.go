package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tubevault/tubevault/internal/api/middleware"
	"github.com/tubevault/tubevault/internal/domain/model"
	"github.com/tubevault/tubevault/internal/resolver"
	"github.com/tubevault/tubevault/internal/usecase"
)

// ResolveService is the resolution entry point the handler depends on.
type ResolveService interface {
	Resolve(ctx context.Context, in usecase.ResolveInput) (*usecase.ResolveOutput, error)
}

// MediaHandler serves the public resolution endpoints.
type MediaHandler struct {
	resolve ResolveService
	logger  *slog.Logger
}

// NewMediaHandler creates a media resolution handler.
func NewMediaHandler(resolve ResolveService, logger *slog.Logger) *MediaHandler {
	return &MediaHandler{resolve: resolve, logger: logger}
}

type archiveResponse struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	ETag   string `json:"etag,omitempty"`
}

type resolveResponse struct {
	ID       string           `json:"id"`
	Title    string           `json:"title"`
	Duration string           `json:"duration"`
	Quality  string           `json:"quality"`
	Source   string           `json:"source"`
	URL      string           `json:"url"`
	Archive  *archiveResponse `json:"archive,omitempty"`
}

// Video handles GET /ytmp4.
func (h *MediaHandler) Video(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, model.KindVideo)
}

// Audio handles GET /ytmp3.
func (h *MediaHandler) Audio(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, model.KindAudio)
}

func (h *MediaHandler) handle(w http.ResponseWriter, r *http.Request, kind model.Kind) {
	q := r.URL.Query()

	reference := q.Get("url")
	if reference == "" {
		Error(w, http.StatusBadRequest, "missing_parameter", "url query parameter is required")
		return
	}
	apiKey := q.Get("api_key")
	if apiKey == "" {
		Error(w, http.StatusUnauthorized, "missing_api_key", "api_key query parameter is required")
		return
	}

	out, err := h.resolve.Resolve(r.Context(), usecase.ResolveInput{
		Reference: reference,
		APIKey:    apiKey,
		Kind:      kind,
		Quality:   q.Get("quality"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := resolveResponse{
		ID:       out.Identifier,
		Title:    out.Title,
		Duration: out.Duration,
		Quality:  out.Quality,
		Source:   out.Source,
		URL:      out.URL,
	}
	if out.Archive != nil {
		resp.Archive = &archiveResponse{
			Bucket: out.Archive.Bucket,
			Key:    out.Archive.Key,
			ETag:   out.Archive.ETag,
		}
	}
	JSON(w, http.StatusOK, resp)
}

func (h *MediaHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, usecase.ErrUnauthorized):
		Error(w, http.StatusUnauthorized, "invalid_api_key", "api key not recognized")
	case errors.Is(err, usecase.ErrKeyExpired):
		Error(w, http.StatusForbidden, "api_key_expired", "api key has expired")
	case errors.Is(err, usecase.ErrQuotaExceeded):
		Error(w, http.StatusTooManyRequests, "quota_exceeded", "daily request quota exhausted")
	case errors.Is(err, usecase.ErrInvalidReference):
		Error(w, http.StatusBadRequest, "invalid_reference", "could not recognize a media reference in url")
	case errors.Is(err, resolver.ErrOriginRejected),
		errors.Is(err, resolver.ErrOriginUnavailable),
		errors.Is(err, resolver.ErrDecodeFailed):
		h.logger.Warn("origin resolution failed",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err,
		)
		Error(w, http.StatusBadGateway, "origin_error", "upstream resolution failed")
	default:
		h.logger.Error("resolution failed",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err,
		)
		Error(w, http.StatusInternalServerError, "internal_error", "")
	}
}
