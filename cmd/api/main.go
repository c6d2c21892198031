package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/tubevault/tubevault/internal/api/handler"
	"github.com/tubevault/tubevault/internal/api/middleware"
	"github.com/tubevault/tubevault/internal/config"
	"github.com/tubevault/tubevault/internal/domain/repository"
	"github.com/tubevault/tubevault/internal/infrastructure/cache"
	"github.com/tubevault/tubevault/internal/infrastructure/postgres"
	"github.com/tubevault/tubevault/internal/infrastructure/queue"
	"github.com/tubevault/tubevault/internal/infrastructure/storage"
	"github.com/tubevault/tubevault/internal/resolver"
	"github.com/tubevault/tubevault/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx := context.Background()

	db, err := postgres.NewClient(ctx, postgres.DefaultClientConfig(cfg.Database.DSN()))
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	keyRepo := postgres.NewAPIKeyRepository(db.Pool())
	recordRepo := postgres.NewCacheRecordRepository(db.Pool())

	blobs, err := storage.NewClient(ctx, storage.ClientConfig{
		Endpoint:       cfg.MinIO.Endpoint,
		PublicEndpoint: cfg.MinIO.PublicEndpoint,
		AccessKey:      cfg.MinIO.AccessKey,
		SecretKey:      cfg.MinIO.SecretKey,
		Bucket:         cfg.MinIO.Bucket,
		UseSSL:         cfg.MinIO.UseSSL,
	}, logger)
	if err != nil {
		return fmt.Errorf("connect to blob storage: %w", err)
	}

	var recordCache repository.RecordCache
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer func() { _ = rdb.Close() }()
		recordCache = cache.NewRedisRecordCache(rdb)
	}

	var events repository.EventPublisher
	if cfg.RabbitMQ.URL != "" {
		pub, err := queue.NewRabbitMQPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
		if err != nil {
			return fmt.Errorf("connect to rabbitmq: %w", err)
		}
		defer func() { _ = pub.Close() }()
		events = pub
	}

	loc, err := time.LoadLocation(cfg.Quota.Timezone)
	if err != nil {
		return fmt.Errorf("load quota timezone %q: %w", cfg.Quota.Timezone, err)
	}

	index, err := usecase.NewCacheIndex(recordRepo, recordCache, cfg.Archiver.LocalCacheSize, cfg.Redis.TTL, logger)
	if err != nil {
		return fmt.Errorf("create cache index: %w", err)
	}

	origin := resolver.NewClient(resolver.Config{
		BaseURL:         cfg.Resolver.BaseURL,
		DefaultHost:     cfg.Resolver.DefaultHost,
		HintTimeout:     cfg.Resolver.HintTimeout,
		InfoTimeout:     cfg.Resolver.InfoTimeout,
		DownloadTimeout: cfg.Resolver.DownloadTimeout,
	}, logger)

	archiver := usecase.NewArchiver(index, blobs, events, usecase.ArchiverOptions{
		TempDir:         cfg.Archiver.TempDir,
		MaxConcurrent:   cfg.Archiver.MaxConcurrent,
		TransferTimeout: cfg.Archiver.TransferTimeout,
		UploadTimeout:   cfg.Archiver.UploadTimeout,
	}, logger)

	admission := usecase.NewAdmissionService(keyRepo, loc, logger)
	resolve := usecase.NewResolveService(
		admission, index, origin, blobs, archiver,
		usecase.QualityDefaults{
			Video: cfg.Resolver.VideoQuality,
			Audio: cfg.Resolver.AudioQuality,
		},
		cfg.Archiver.BlobURLExpiry,
		logger,
	)
	keys := usecase.NewKeyService(keyRepo, recordRepo, admission, logger)

	if err := bootstrapAdminKey(ctx, keys, cfg.Quota, logger); err != nil {
		return err
	}

	r := setupRouter(logger, resolve, keys)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down server", slog.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	logger.Info("waiting for in-flight archival jobs")
	archiver.Wait()

	logger.Info("server stopped")
	return nil
}

// bootstrapAdminKey mints the first admin key on an empty key table and
// logs it once. There is no other way to obtain the initial credential.
func bootstrapAdminKey(ctx context.Context, keys *usecase.KeyService, cfg config.QuotaConfig, logger *slog.Logger) error {
	validFor := time.Duration(cfg.BootstrapExpiry) * 24 * time.Hour
	key, created, err := keys.Bootstrap(ctx, cfg.BootstrapOwner, cfg.BootstrapLimit, validFor)
	if err != nil {
		return fmt.Errorf("bootstrap admin key: %w", err)
	}
	if created {
		logger.Info("bootstrap admin key created",
			slog.String("owner", key.Owner),
			slog.String("key", key.Key),
		)
	}
	return nil
}

func setupRouter(logger *slog.Logger, resolve handler.ResolveService, keys handler.KeyService) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))

	r.Get("/health", handler.Health)
	r.Handle("/metrics", promhttp.Handler())

	media := handler.NewMediaHandler(resolve, logger)
	r.Get("/ytmp4", media.Video)
	r.Get("/ytmp3", media.Audio)

	admin := handler.NewAdminHandler(keys, logger)
	r.Route("/admin", func(r chi.Router) {
		r.Use(admin.RequireAdmin)
		r.Post("/keys", admin.CreateKey)
		r.Get("/keys", admin.ListKeys)
		r.Delete("/keys/{key}", admin.RevokeKey)
		r.Get("/stats", admin.Stats)
	})

	return r
}
