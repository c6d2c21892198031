package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Kind represents a media category.
type Kind string

const (
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
)

func (k Kind) IsValid() bool {
	switch k {
	case KindVideo, KindAudio:
		return true
	default:
		return false
	}
}

func (k Kind) String() string {
	return string(k)
}

// Ext returns the container extension used for archived files of this kind.
func (k Kind) Ext() string {
	if k == KindAudio {
		return "mp3"
	}
	return "mp4"
}

// ContentType returns the MIME type used when archiving files of this kind.
func (k Kind) ContentType() string {
	if k == KindAudio {
		return "audio/mpeg"
	}
	return "video/mp4"
}

// Well-known metadata keys stored on a CacheRecord.
const (
	MetaTitle     = "title"
	MetaDuration  = "duration"
	MetaQuality   = "quality"
	MetaThumbnail = "thumbnail"
)

// metaUnknown is returned for absent metadata fields.
const metaUnknown = "Unknown"

// CacheRecord describes one archived media file. At most one record exists
// per (identifier, kind) pair; a later archival overwrites the previous one.
type CacheRecord struct {
	ID         uuid.UUID
	Identifier string
	Kind       Kind
	Bucket     string
	ObjectKey  string
	ETag       string
	FileName   string
	Meta       map[string]string
	CachedAt   time.Time
}

var (
	ErrEmptyIdentifier = errors.New("identifier cannot be empty")
	ErrInvalidKind     = errors.New("kind must be video or audio")
)

// NewCacheRecord creates a CacheRecord for a freshly archived object.
func NewCacheRecord(identifier string, kind Kind, bucket, objectKey, etag, fileName string, meta map[string]string) (*CacheRecord, error) {
	if identifier == "" {
		return nil, ErrEmptyIdentifier
	}
	if !kind.IsValid() {
		return nil, ErrInvalidKind
	}
	if meta == nil {
		meta = make(map[string]string)
	}
	return &CacheRecord{
		ID:         uuid.New(),
		Identifier: identifier,
		Kind:       kind,
		Bucket:     bucket,
		ObjectKey:  objectKey,
		ETag:       etag,
		FileName:   fileName,
		Meta:       meta,
		CachedAt:   time.Now(),
	}, nil
}

// CacheKey returns the process-local cache key for this record's pair.
func (r *CacheRecord) CacheKey() string {
	return CacheKey(r.Identifier, r.Kind)
}

// CacheKey builds the key under which an (identifier, kind) pair is tracked
// in process-local state.
func CacheKey(identifier string, kind Kind) string {
	return identifier + ":" + string(kind)
}

func (r *CacheRecord) metaOr(key string) string {
	if v, ok := r.Meta[key]; ok && v != "" {
		return v
	}
	return metaUnknown
}

// Title returns the stored title, or "Unknown" when absent.
func (r *CacheRecord) Title() string { return r.metaOr(MetaTitle) }

// Duration returns the stored duration label, or "Unknown" when absent.
func (r *CacheRecord) Duration() string { return r.metaOr(MetaDuration) }

// Quality returns the stored quality descriptor, or "Unknown" when absent.
func (r *CacheRecord) Quality() string { return r.metaOr(MetaQuality) }
