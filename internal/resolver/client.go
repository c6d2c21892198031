// Package resolver talks to the third-party origin service that turns a
// canonical media reference into downloadable renditions.
package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tubevault/tubevault/internal/domain/model"
)

var (
	// ErrOriginUnavailable indicates a transport-level failure talking to
	// the origin.
	ErrOriginUnavailable = errors.New("origin unavailable")

	// ErrOriginRejected indicates the origin answered with an explicit
	// failure flag.
	ErrOriginRejected = errors.New("origin rejected request")

	// ErrDecodeFailed indicates the origin's payload could not be decrypted
	// or parsed. Decoding fails closed rather than emitting partial data.
	ErrDecodeFailed = errors.New("origin payload decode failed")
)

// Rendition is one downloadable format advertised by the origin. Height is
// set for video renditions, Bitrate for audio renditions.
type Rendition struct {
	Kind    string `json:"type"`
	Label   string `json:"label"`
	Height  int    `json:"height"`
	Bitrate int    `json:"bitrate"`
}

// Metadata is the decrypted resolution document for one reference. Key is
// the opaque resolver token required to request a transfer URL; a document
// without it is rejected as undecodable.
type Metadata struct {
	Title         string      `json:"title"`
	DurationLabel string      `json:"durationLabel"`
	Thumbnail     string      `json:"thumbnail"`
	Key           string      `json:"key"`
	Formats       []Rendition `json:"formats"`
}

// Config holds origin client settings. Per-call timeouts are deliberately
// short: resolution must fail fast, the long bulk-transfer timeout belongs
// to the archiver.
type Config struct {
	BaseURL         string
	DefaultHost     string
	HintTimeout     time.Duration
	InfoTimeout     time.Duration
	DownloadTimeout time.Duration
}

// DefaultConfig returns the origin's public endpoints and timeouts.
func DefaultConfig() Config {
	return Config{
		BaseURL:         "https://media.savetube.me",
		DefaultHost:     "cdn1.savetube.me",
		HintTimeout:     10 * time.Second,
		InfoTimeout:     15 * time.Second,
		DownloadTimeout: 20 * time.Second,
	}
}

// Client resolves references against the origin service. It never retries:
// failures surface immediately to the orchestrator.
type Client struct {
	cfg    Config
	httpc  *http.Client
	logger *slog.Logger
}

// NewClient creates an origin resolver client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		httpc:  &http.Client{},
		logger: logger,
	}
}

type infoResponse struct {
	Status  bool   `json:"status"`
	Data    string `json:"data"`
	Message string `json:"message"`
}

type downloadResponse struct {
	Status bool `json:"status"`
	Data   struct {
		DownloadURL string `json:"downloadUrl"`
	} `json:"data"`
	Message string `json:"message"`
}

// FetchMetadata resolves a canonical reference URL to its metadata document.
func (c *Client) FetchMetadata(ctx context.Context, referenceURL string) (*Metadata, error) {
	host := c.deliveryHost(ctx)

	ctx, cancel := context.WithTimeout(ctx, c.cfg.InfoTimeout)
	defer cancel()

	var reply infoResponse
	if err := c.postJSON(ctx, endpointURL(host, "/v2/info"), map[string]string{"url": referenceURL}, &reply); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOriginUnavailable, err)
	}
	if !reply.Status {
		return nil, fmt.Errorf("%w: %s", ErrOriginRejected, originMessage(reply.Message))
	}

	plaintext, err := decryptPayload(reply.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}

	var meta Metadata
	if err := json.Unmarshal(plaintext, &meta); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	if meta.Key == "" {
		return nil, fmt.Errorf("%w: document missing resolver key", ErrDecodeFailed)
	}

	return &meta, nil
}

// RequestTransferURL asks the origin for a direct download URL for the given
// resolver key, quality and kind.
func (c *Client) RequestTransferURL(ctx context.Context, resolverKey, quality string, kind model.Kind) (string, error) {
	host := c.deliveryHost(ctx)

	ctx, cancel := context.WithTimeout(ctx, c.cfg.DownloadTimeout)
	defer cancel()

	payload := map[string]string{
		"downloadType": kind.String(),
		"quality":      quality,
		"key":          resolverKey,
	}

	var reply downloadResponse
	if err := c.postJSON(ctx, endpointURL(host, "/download"), payload, &reply); err != nil {
		return "", fmt.Errorf("%w: %v", ErrOriginUnavailable, err)
	}
	if !reply.Status || reply.Data.DownloadURL == "" {
		return "", fmt.Errorf("%w: %s", ErrOriginRejected, originMessage(reply.Message))
	}

	return reply.Data.DownloadURL, nil
}

// deliveryHost asks the origin for a content-delivery endpoint hint. Any
// failure of this sub-step falls back to the fixed default host and is never
// fatal.
func (c *Client) deliveryHost(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.HintTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/api/random-cdn", nil)
	if err != nil {
		return c.cfg.DefaultHost
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		c.logger.Debug("endpoint hint failed, using default host", "error", err)
		return c.cfg.DefaultHost
	}
	defer func() { _ = resp.Body.Close() }()

	var hint struct {
		CDN string `json:"cdn"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&hint); err != nil || hint.CDN == "" {
		return c.cfg.DefaultHost
	}
	return hint.CDN
}

func (c *Client) postJSON(ctx context.Context, url string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// endpointURL builds a delivery endpoint URL. Hints normally carry a bare
// host; a hint that already includes a scheme is used as-is.
func endpointURL(host, route string) string {
	if strings.Contains(host, "://") {
		return host + route
	}
	return "https://" + host + route
}

func originMessage(msg string) string {
	if msg == "" {
		return "no reason given"
	}
	return msg
}
