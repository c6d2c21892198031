// Package storage provides the MinIO-backed blob store that archived media
// files are uploaded into.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/tubevault/tubevault/internal/domain/repository"
)

// maxCaptionLen is the store's metadata field-length limit. Longer captions
// are truncated, never rejected.
const maxCaptionLen = 1024

// minioClient defines the MinIO operations the blob store needs.
// This abstraction allows for easier unit testing with mocks.
type minioClient interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// ClientConfig holds configuration for the MinIO client.
type ClientConfig struct {
	Endpoint       string
	PublicEndpoint string // Optional: external-facing endpoint for download URLs
	AccessKey      string
	SecretKey      string
	Bucket         string
	UseSSL         bool
}

// Client wraps a MinIO client and implements repository.BlobStorage.
type Client struct {
	client          minioClient
	presignedClient minioClient // Separate client for URLs (may use public endpoint)
	bucket          string
	publicBase      string
	probe           *http.Client
	logger          *slog.Logger
}

// NewClient creates a new MinIO-backed blob store client.
// It verifies the bucket exists during initialization to fail fast on misconfiguration.
func NewClient(ctx context.Context, cfg ClientConfig, logger *slog.Logger) (*Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	presigned := minioClient(client)
	endpoint := cfg.Endpoint
	if cfg.PublicEndpoint != "" {
		presignedClient, err := minio.New(cfg.PublicEndpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure: cfg.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create public minio client: %w", err)
		}
		presigned = presignedClient
		endpoint = cfg.PublicEndpoint
	}

	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}

	return newClientWithMinioClient(ctx, client, presigned, cfg.Bucket, scheme+"://"+endpoint, logger)
}

// newClientWithMinioClient creates a Client with given minioClient implementations.
// This is used for dependency injection in tests.
func newClientWithMinioClient(ctx context.Context, client, presigned minioClient, bucket, publicBase string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", repository.ErrBucketNotFound, bucket)
	}

	return &Client{
		client:          client,
		presignedClient: presigned,
		bucket:          bucket,
		publicBase:      publicBase,
		probe:           &http.Client{Timeout: 5 * time.Second},
		logger:          logger,
	}, nil
}

// Put stores an object with kind-appropriate content typing and the caption
// carried as object metadata, truncated to the store's field limit.
func (c *Client) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType, caption string) (*repository.PutResult, error) {
	opts := minio.PutObjectOptions{
		ContentType: contentType,
	}
	if caption != "" {
		opts.UserMetadata = map[string]string{"Caption": truncate(caption, maxCaptionLen)}
	}

	info, err := c.client.PutObject(ctx, c.bucket, key, reader, size, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to upload object: %w", err)
	}

	return &repository.PutResult{
		Bucket: c.bucket,
		Key:    info.Key,
		ETag:   info.ETag,
	}, nil
}

// TransferURL resolves a stored object to a presigned download URL. When
// presigning fails, it falls back to the raw public URL form
// {base}/{bucket}/{key}, probing it first since the raw form is only an
// assumption about the store's URL layout.
func (c *Client) TransferURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	presignedURL, err := c.presignedClient.PresignedGetObject(ctx, c.bucket, key, expiry, nil)
	if err == nil {
		return presignedURL.String(), nil
	}

	c.logger.Warn("presigned URL generation failed, using raw URL fallback",
		"object_key", key,
		"error", err,
	)

	raw := fmt.Sprintf("%s/%s/%s", c.publicBase, c.bucket, key)
	if probeErr := c.probeURL(ctx, raw); probeErr != nil {
		c.logger.Warn("raw fallback URL failed reachability probe",
			"url", raw,
			"error", probeErr,
		)
	}
	return raw, nil
}

// probeURL checks the fallback URL answers at all. Best effort: a failed
// probe is logged, not fatal, since the fallback is the last option anyway.
func (c *Client) probeURL(ctx context.Context, rawURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.probe.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("probe returned %d", resp.StatusCode)
	}
	return nil
}

// Exists checks if an object exists in the storage.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	_, err := c.client.StatObject(ctx, c.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("failed to check object existence: %w", err)
	}
	return true, nil
}

// Delete removes an object from the storage.
func (c *Client) Delete(ctx context.Context, key string) error {
	err := c.client.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// Ping verifies the MinIO connection is alive by checking bucket access.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.client.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("failed to ping minio: %w", err)
	}
	return nil
}

// Bucket returns the configured bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// Compile-time verification that Client implements repository.BlobStorage.
var _ repository.BlobStorage = (*Client)(nil)
