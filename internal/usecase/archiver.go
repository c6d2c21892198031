package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/tubevault/tubevault/internal/domain/model"
	"github.com/tubevault/tubevault/internal/domain/repository"
	"github.com/tubevault/tubevault/internal/infrastructure/metrics"
)

// ArchiveJob describes one pending archival: transfer the blob at
// TransferURL into durable storage and record the pair.
type ArchiveJob struct {
	Identifier  string
	Kind        model.Kind
	TransferURL string
	Quality     string
	Meta        map[string]string
}

// ArchiverOptions tunes the archival pipeline.
type ArchiverOptions struct {
	TempDir         string
	MaxConcurrent   int
	TransferTimeout time.Duration
	UploadTimeout   time.Duration
}

// Archiver runs archival jobs in the background. At most one job runs per
// (identifier, kind) pair at any time; a duplicate dispatch is dropped, not
// queued. Concurrency across distinct pairs is bounded by a semaphore.
type Archiver struct {
	index  *CacheIndex
	blobs  repository.BlobStorage
	events repository.EventPublisher
	opts   ArchiverOptions
	httpc  *http.Client
	logger *slog.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
	sem      chan struct{}
	wg       sync.WaitGroup
}

// NewArchiver creates an archiver. events may be nil when no event broker is
// configured.
func NewArchiver(index *CacheIndex, blobs repository.BlobStorage, events repository.EventPublisher, opts ArchiverOptions, logger *slog.Logger) *Archiver {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 1
	}
	return &Archiver{
		index:    index,
		blobs:    blobs,
		events:   events,
		opts:     opts,
		httpc:    &http.Client{},
		logger:   logger,
		inflight: make(map[string]struct{}),
		sem:      make(chan struct{}, opts.MaxConcurrent),
	}
}

// Dispatch schedules a job unless its pair is already being archived.
// Returns false when the job was dropped as a duplicate. Never blocks: the
// concurrency bound is enforced inside the worker goroutine.
func (a *Archiver) Dispatch(job ArchiveJob) bool {
	key := model.CacheKey(job.Identifier, job.Kind)

	a.mu.Lock()
	if _, busy := a.inflight[key]; busy {
		a.mu.Unlock()
		metrics.ArchiveJobsTotal.WithLabelValues(metrics.JobDuplicate).Inc()
		a.logger.Debug("archival already in flight", "identifier", job.Identifier, "kind", job.Kind)
		return false
	}
	a.inflight[key] = struct{}{}
	a.mu.Unlock()

	metrics.ArchiveJobsTotal.WithLabelValues(metrics.JobStarted).Inc()
	a.wg.Add(1)
	go a.run(job, key)
	return true
}

// Wait blocks until all in-flight jobs finish. Called during shutdown.
func (a *Archiver) Wait() {
	a.wg.Wait()
}

func (a *Archiver) run(job ArchiveJob, key string) {
	defer a.wg.Done()
	defer func() {
		a.mu.Lock()
		delete(a.inflight, key)
		a.mu.Unlock()
	}()

	a.sem <- struct{}{}
	defer func() { <-a.sem }()

	metrics.ArchiveJobsInflight.Inc()
	defer metrics.ArchiveJobsInflight.Dec()

	start := time.Now()
	if err := a.archive(job); err != nil {
		metrics.ArchiveJobsTotal.WithLabelValues(metrics.JobFailed).Inc()
		a.logger.Error("archival failed",
			"identifier", job.Identifier,
			"kind", job.Kind,
			"error", err,
		)
		return
	}

	metrics.ArchiveJobsTotal.WithLabelValues(metrics.JobCompleted).Inc()
	a.logger.Info("archival completed",
		"identifier", job.Identifier,
		"kind", job.Kind,
		"duration", time.Since(start),
	)
}

func (a *Archiver) archive(job ArchiveJob) error {
	fileName := job.Identifier + "." + job.Kind.Ext()
	objectKey := "archive/" + job.Kind.String() + "/" + fileName

	path, size, err := a.download(job)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer func() {
		if err := os.Remove(path); err != nil {
			a.logger.Warn("remove temp file", "path", path, "error", err)
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open temp file: %w", err)
	}
	defer func() { _ = f.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), a.opts.UploadTimeout)
	defer cancel()

	caption := buildCaption(job.Meta)
	put, err := a.blobs.Put(ctx, objectKey, f, size, job.Kind.ContentType(), caption)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}

	meta := make(map[string]string, len(job.Meta)+1)
	for k, v := range job.Meta {
		meta[k] = v
	}
	meta[model.MetaQuality] = job.Quality

	rec, err := model.NewCacheRecord(job.Identifier, job.Kind, put.Bucket, put.Key, put.ETag, fileName, meta)
	if err != nil {
		return fmt.Errorf("build record: %w", err)
	}

	if err := a.index.Publish(ctx, rec); err != nil {
		return fmt.Errorf("publish record: %w", err)
	}

	a.publishEvent(ctx, rec, size, job.Quality)
	return nil
}

// download streams the transfer URL to a temp file, logging progress at
// each decile when the origin advertises a length.
func (a *Archiver) download(job ArchiveJob) (string, int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), a.opts.TransferTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, job.TransferURL, nil)
	if err != nil {
		return "", 0, fmt.Errorf("build request: %w", err)
	}

	resp, err := a.httpc.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(a.opts.TempDir, 0o755); err != nil {
		return "", 0, fmt.Errorf("create temp dir: %w", err)
	}
	f, err := os.CreateTemp(a.opts.TempDir, job.Identifier+"-*."+job.Kind.Ext())
	if err != nil {
		return "", 0, fmt.Errorf("create temp file: %w", err)
	}

	pw := &progressWriter{
		w:     f,
		total: resp.ContentLength,
		log: func(pct int) {
			a.logger.Debug("transfer progress", "identifier", job.Identifier, "percent", pct)
		},
	}
	size, err := io.Copy(pw, resp.Body)
	closeErr := f.Close()
	if err != nil {
		_ = os.Remove(f.Name())
		return "", 0, fmt.Errorf("copy body: %w", err)
	}
	if closeErr != nil {
		_ = os.Remove(f.Name())
		return "", 0, fmt.Errorf("close temp file: %w", closeErr)
	}

	return f.Name(), size, nil
}

func (a *Archiver) publishEvent(ctx context.Context, rec *model.CacheRecord, size int64, quality string) {
	if a.events == nil {
		return
	}
	event := repository.ArchiveEvent{
		Identifier: rec.Identifier,
		Kind:       rec.Kind.String(),
		Bucket:     rec.Bucket,
		ObjectKey:  rec.ObjectKey,
		FileName:   rec.FileName,
		Size:       size,
		Quality:    quality,
		ArchivedAt: rec.CachedAt,
	}
	if err := a.events.PublishArchiveEvent(ctx, event); err != nil {
		a.logger.Warn("publish archive event", "error", err)
	}
}

func buildCaption(meta map[string]string) string {
	title := meta[model.MetaTitle]
	duration := meta[model.MetaDuration]
	switch {
	case title != "" && duration != "":
		return title + " (" + duration + ")"
	case title != "":
		return title
	default:
		return ""
	}
}

// progressWriter logs transfer progress at 10% steps. With an unknown total
// it stays silent.
type progressWriter struct {
	w       io.Writer
	total   int64
	written int64
	decile  int
	log     func(pct int)
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.written += int64(n)
	if p.total > 0 {
		if d := int(p.written * 10 / p.total); d > p.decile {
			p.decile = d
			p.log(d * 10)
		}
	}
	return n, err
}
