package usecase

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tubevault/tubevault/internal/domain/model"
	"github.com/tubevault/tubevault/internal/domain/repository"
)

func newTestArchiver(t *testing.T, blobs repository.BlobStorage, store repository.CacheRecordRepository, events repository.EventPublisher) *Archiver {
	t.Helper()
	idx := newTestIndex(t, store, nil)
	return NewArchiver(idx, blobs, events, ArchiverOptions{
		TempDir:         t.TempDir(),
		MaxConcurrent:   4,
		TransferTimeout: 10 * time.Second,
		UploadTimeout:   10 * time.Second,
	}, testLogger())
}

func blobServer(t *testing.T, body string, release <-chan struct{}) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if release != nil {
			<-release
		}
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestArchiver_CompletesJob(t *testing.T) {
	srv := blobServer(t, "fake media bytes", nil)

	var put struct {
		key, contentType, caption string
		size                      int64
	}
	blobs := &mockBlobStorage{
		putFunc: func(_ context.Context, key string, r io.Reader, size int64, contentType, caption string) (*repository.PutResult, error) {
			put.key, put.size, put.contentType, put.caption = key, size, contentType, caption
			_, _ = io.Copy(io.Discard, r)
			return &repository.PutResult{Bucket: "media-cache", Key: key, ETag: "e1"}, nil
		},
	}

	upserted := make(chan *model.CacheRecord, 1)
	store := &mockRecordRepo{
		upsertFunc: func(_ context.Context, rec *model.CacheRecord) error {
			upserted <- rec
			return nil
		},
	}

	published := make(chan repository.ArchiveEvent, 1)
	events := &mockEventPublisher{
		publishFunc: func(_ context.Context, ev repository.ArchiveEvent) error {
			published <- ev
			return nil
		},
	}

	a := newTestArchiver(t, blobs, store, events)

	ok := a.Dispatch(ArchiveJob{
		Identifier:  "dQw4w9WgXcQ",
		Kind:        model.KindVideo,
		TransferURL: srv.URL,
		Quality:     "720",
		Meta:        map[string]string{model.MetaTitle: "Test", model.MetaDuration: "3:32"},
	})
	if !ok {
		t.Fatal("Dispatch returned false for a fresh pair")
	}
	a.Wait()

	if put.key != "archive/video/dQw4w9WgXcQ.mp4" {
		t.Errorf("object key = %q", put.key)
	}
	if put.size != int64(len("fake media bytes")) {
		t.Errorf("size = %d, want %d", put.size, len("fake media bytes"))
	}
	if put.contentType != "video/mp4" {
		t.Errorf("content type = %q", put.contentType)
	}
	if put.caption != "Test (3:32)" {
		t.Errorf("caption = %q", put.caption)
	}

	select {
	case rec := <-upserted:
		if rec.Identifier != "dQw4w9WgXcQ" || rec.Kind != model.KindVideo {
			t.Errorf("record pair = (%s, %s)", rec.Identifier, rec.Kind)
		}
		if rec.Meta[model.MetaQuality] != "720" {
			t.Errorf("record quality = %q, want 720", rec.Meta[model.MetaQuality])
		}
	default:
		t.Fatal("record was not upserted")
	}

	select {
	case ev := <-published:
		if ev.ObjectKey != "archive/video/dQw4w9WgXcQ.mp4" {
			t.Errorf("event object key = %q", ev.ObjectKey)
		}
	default:
		t.Fatal("archive event was not published")
	}
}

func TestArchiver_DuplicateDispatchDropped(t *testing.T) {
	release := make(chan struct{})
	srv := blobServer(t, "bytes", release)

	var uploads atomic.Int32
	blobs := &mockBlobStorage{
		putFunc: func(_ context.Context, key string, r io.Reader, size int64, _, _ string) (*repository.PutResult, error) {
			uploads.Add(1)
			_, _ = io.Copy(io.Discard, r)
			return &repository.PutResult{Bucket: "media-cache", Key: key, ETag: "e1"}, nil
		},
	}
	a := newTestArchiver(t, blobs, &mockRecordRepo{}, nil)

	job := ArchiveJob{Identifier: "dQw4w9WgXcQ", Kind: model.KindVideo, TransferURL: srv.URL, Quality: "720"}

	if !a.Dispatch(job) {
		t.Fatal("first Dispatch returned false")
	}
	if a.Dispatch(job) {
		t.Error("second Dispatch should be dropped while the first is in flight")
	}

	close(release)
	a.Wait()

	if n := uploads.Load(); n != 1 {
		t.Errorf("uploads = %d, want 1", n)
	}

	// The pair is dispatchable again once the first job finished.
	if !a.Dispatch(job) {
		t.Error("Dispatch after completion returned false")
	}
	a.Wait()
}

func TestArchiver_DistinctKindsRunIndependently(t *testing.T) {
	srv := blobServer(t, "bytes", nil)
	a := newTestArchiver(t, &mockBlobStorage{}, &mockRecordRepo{}, nil)

	v := ArchiveJob{Identifier: "dQw4w9WgXcQ", Kind: model.KindVideo, TransferURL: srv.URL, Quality: "720"}
	au := ArchiveJob{Identifier: "dQw4w9WgXcQ", Kind: model.KindAudio, TransferURL: srv.URL, Quality: "320"}

	if !a.Dispatch(v) || !a.Dispatch(au) {
		t.Error("distinct kinds of one identifier should both dispatch")
	}
	a.Wait()
}

func TestArchiver_FailureClearsMarkAndTempFiles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	tempDir := t.TempDir()
	idx := newTestIndex(t, &mockRecordRepo{}, nil)
	a := NewArchiver(idx, &mockBlobStorage{}, nil, ArchiverOptions{
		TempDir:         tempDir,
		MaxConcurrent:   1,
		TransferTimeout: 10 * time.Second,
		UploadTimeout:   10 * time.Second,
	}, testLogger())

	job := ArchiveJob{Identifier: "dQw4w9WgXcQ", Kind: model.KindVideo, TransferURL: srv.URL, Quality: "720"}
	if !a.Dispatch(job) {
		t.Fatal("Dispatch returned false")
	}
	a.Wait()

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatalf("read temp dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("temp dir not cleaned up, %d entries remain", len(entries))
	}

	// Mark must be cleared so the pair can be retried.
	if !a.Dispatch(job) {
		t.Error("Dispatch after failure returned false")
	}
	a.Wait()
}
