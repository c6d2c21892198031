package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/tubevault/tubevault/internal/domain/model"
	"github.com/tubevault/tubevault/internal/domain/repository"
	"github.com/tubevault/tubevault/internal/infrastructure/metrics"
	"github.com/tubevault/tubevault/internal/mediaid"
	"github.com/tubevault/tubevault/internal/resolver"
)

// ErrInvalidReference indicates the request carried no recognizable media
// reference.
var ErrInvalidReference = errors.New("unrecognized media reference")

// Result sources.
const (
	SourceCache  = "cache"
	SourceOrigin = "origin"
)

// OriginResolver resolves references against the upstream origin.
type OriginResolver interface {
	FetchMetadata(ctx context.Context, referenceURL string) (*resolver.Metadata, error)
	RequestTransferURL(ctx context.Context, resolverKey, quality string, kind model.Kind) (string, error)
}

// Dispatcher schedules background archival jobs.
type Dispatcher interface {
	Dispatch(job ArchiveJob) bool
}

// ResolveInput is one resolution request.
type ResolveInput struct {
	Reference string
	APIKey    string
	Kind      model.Kind
	// Quality is the caller's preferred quality descriptor. Empty means
	// pick the configured default or the best available.
	Quality string
}

// ArchiveInfo locates the durable copy backing a cache hit.
type ArchiveInfo struct {
	Bucket string
	Key    string
	ETag   string
}

// ResolveOutput is the synchronous answer to a resolution request.
type ResolveOutput struct {
	Identifier string
	Source     string
	URL        string
	Title      string
	Duration   string
	Quality    string
	Archive    *ArchiveInfo
}

// QualityDefaults holds the per-kind fallback quality descriptors.
type QualityDefaults struct {
	Video string
	Audio string
}

func (d QualityDefaults) forKind(kind model.Kind) string {
	if kind == model.KindAudio {
		return d.Audio
	}
	return d.Video
}

// ResolveService orchestrates a resolution request: admission, cache
// lookup, origin resolution, and archival dispatch. The caller always gets
// a URL synchronously; archival of fresh resolutions happens in the
// background.
type ResolveService struct {
	admission *AdmissionService
	index     *CacheIndex
	origin    OriginResolver
	blobs     repository.BlobStorage
	archiver  Dispatcher
	defaults  QualityDefaults
	urlExpiry time.Duration
	logger    *slog.Logger
}

// NewResolveService creates a resolve service.
func NewResolveService(
	admission *AdmissionService,
	index *CacheIndex,
	origin OriginResolver,
	blobs repository.BlobStorage,
	archiver Dispatcher,
	defaults QualityDefaults,
	urlExpiry time.Duration,
	logger *slog.Logger,
) *ResolveService {
	return &ResolveService{
		admission: admission,
		index:     index,
		origin:    origin,
		blobs:     blobs,
		archiver:  archiver,
		defaults:  defaults,
		urlExpiry: urlExpiry,
		logger:    logger,
	}
}

// Resolve answers one resolution request.
func (s *ResolveService) Resolve(ctx context.Context, in ResolveInput) (*ResolveOutput, error) {
	if _, err := s.admission.Admit(ctx, in.APIKey); err != nil {
		return nil, err
	}

	id, ok := mediaid.Extract(in.Reference)
	if !ok {
		return nil, ErrInvalidReference
	}

	rec, err := s.index.Lookup(ctx, id, in.Kind)
	if err != nil {
		// A broken index must not take resolution down; fall through to
		// the origin.
		s.logger.Warn("cache lookup failed", "identifier", id, "error", err)
		rec = nil
	}

	if rec != nil {
		out, err := s.fromCache(ctx, rec)
		if err == nil {
			metrics.ResolutionsTotal.WithLabelValues(in.Kind.String(), metrics.SourceCache, metrics.StatusOK).Inc()
			return out, nil
		}
		s.logger.Warn("serving cache hit failed, resolving at origin", "identifier", id, "error", err)
	}

	out, err := s.fromOrigin(ctx, id, in)
	if err != nil {
		metrics.ResolutionsTotal.WithLabelValues(in.Kind.String(), metrics.SourceOrigin, metrics.StatusError).Inc()
		return nil, err
	}
	metrics.ResolutionsTotal.WithLabelValues(in.Kind.String(), metrics.SourceOrigin, metrics.StatusOK).Inc()
	return out, nil
}

func (s *ResolveService) fromCache(ctx context.Context, rec *model.CacheRecord) (*ResolveOutput, error) {
	url, err := s.blobs.TransferURL(ctx, rec.ObjectKey, s.urlExpiry)
	if err != nil {
		return nil, err
	}

	return &ResolveOutput{
		Identifier: rec.Identifier,
		Source:     SourceCache,
		URL:        url,
		Title:      rec.Title(),
		Duration:   rec.Duration(),
		Quality:    rec.Quality(),
		Archive: &ArchiveInfo{
			Bucket: rec.Bucket,
			Key:    rec.ObjectKey,
			ETag:   rec.ETag,
		},
	}, nil
}

func (s *ResolveService) fromOrigin(ctx context.Context, id string, in ResolveInput) (*ResolveOutput, error) {
	meta, err := s.origin.FetchMetadata(ctx, mediaid.Normalize(id))
	if err != nil {
		return nil, err
	}

	quality := s.pickQuality(meta, in.Kind, in.Quality)
	url, err := s.origin.RequestTransferURL(ctx, meta.Key, quality, in.Kind)
	if err != nil {
		return nil, err
	}

	jobMeta := map[string]string{
		model.MetaTitle:     meta.Title,
		model.MetaDuration:  meta.DurationLabel,
		model.MetaThumbnail: meta.Thumbnail,
	}
	s.archiver.Dispatch(ArchiveJob{
		Identifier:  id,
		Kind:        in.Kind,
		TransferURL: url,
		Quality:     quality,
		Meta:        jobMeta,
	})

	out := &ResolveOutput{
		Identifier: id,
		Source:     SourceOrigin,
		URL:        url,
		Title:      orUnknown(meta.Title),
		Duration:   orUnknown(meta.DurationLabel),
		Quality:    quality,
	}
	return out, nil
}

// pickQuality honors an explicitly requested quality when the origin
// advertises it, otherwise picks the best rendition and falls back to the
// configured default.
func (s *ResolveService) pickQuality(meta *resolver.Metadata, kind model.Kind, requested string) string {
	if requested != "" && resolver.HasQuality(meta, kind, requested) {
		return requested
	}
	return resolver.SelectBest(meta, kind, s.defaults.forKind(kind))
}

func orUnknown(v string) string {
	if v == "" {
		return "Unknown"
	}
	return v
}
