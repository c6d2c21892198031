package repository

import (
	"context"
	"time"
)

// ArchiveEvent announces that a media file has been archived into the blob
// store and its cache record committed.
type ArchiveEvent struct {
	Identifier string    `json:"identifier"`
	Kind       string    `json:"kind"`
	Bucket     string    `json:"bucket"`
	ObjectKey  string    `json:"object_key"`
	FileName   string    `json:"file_name"`
	Size       int64     `json:"size"`
	Quality    string    `json:"quality"`
	ArchivedAt time.Time `json:"archived_at"`
}

// EventPublisher defines the interface for announcing archival completions
// to downstream consumers.
// Implementations should be provided by the infrastructure layer (e.g., RabbitMQ).
type EventPublisher interface {
	// PublishArchiveEvent sends an archive-completed event.
	PublishArchiveEvent(ctx context.Context, event ArchiveEvent) error

	// Close gracefully closes the connection to the broker.
	Close() error
}
