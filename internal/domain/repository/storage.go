package repository

import (
	"context"
	"io"
	"time"
)

// PutResult identifies an uploaded blob: the channel (bucket), the object
// reference (key) and the upload slot (etag).
type PutResult struct {
	Bucket string
	Key    string
	ETag   string
}

// BlobStorage defines the interface for durable large-object storage.
// Implementations should be provided by the infrastructure layer (e.g., MinIO, S3).
type BlobStorage interface {
	// Put stores an object under key with the given content type and a
	// caption carried as object metadata. Implementations truncate the
	// caption to the store's field-length limit.
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType, caption string) (*PutResult, error)

	// TransferURL resolves a stored object to a time-limited download URL.
	// Implementations fall back to a raw public URL form when the
	// store's location lookup fails.
	TransferURL(ctx context.Context, key string, expiry time.Duration) (string, error)

	// Exists checks if an object exists in the storage.
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes an object from the storage.
	Delete(ctx context.Context, key string) error
}
