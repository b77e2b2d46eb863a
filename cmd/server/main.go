// Package main is the entrypoint for the ResuMatch API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anirudhmenon/resumatch/internal/api"
	"github.com/anirudhmenon/resumatch/internal/api/handler"
	mw "github.com/anirudhmenon/resumatch/internal/api/middleware"
	"github.com/anirudhmenon/resumatch/internal/cache"
	"github.com/anirudhmenon/resumatch/internal/config"
	"github.com/anirudhmenon/resumatch/internal/drive"
	"github.com/anirudhmenon/resumatch/internal/ingest"
	"github.com/anirudhmenon/resumatch/internal/scoring"
	"github.com/anirudhmenon/resumatch/internal/storage"
	"github.com/anirudhmenon/resumatch/internal/store"
	"github.com/joho/godotenv"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Local development convenience; absence of a .env file is not an error.
	_ = godotenv.Load()

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "env", cfg.Server.Env, "scoring_base_url", cfg.Scoring.BaseURL)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Create blob storage
	blobs, err := storage.NewS3Store(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("create blob storage: %w", err)
	}
	slog.Info("blob storage initialized", "bucket", cfg.Storage.Bucket)

	// 6. Create domain clients and store
	pgStore := store.NewPostgresStore(pool)
	scorer := scoring.NewHTTPClient(cfg.Scoring.BaseURL, cfg.Scoring.UploadTimeout, cfg.Scoring.DriveTimeout)
	driveClient := drive.NewGoogleClient()

	// 7. Start the ingestion dispatcher
	dispatcher := ingest.NewDispatcher(pgStore, scorer, blobs, driveClient, redisCache,
		cfg.Ingest.QueueSize, cfg.Storage.PresignTTL, cfg.Ingest.TaskTimeout)
	dispatcher.Start(ctx, cfg.Ingest.Workers)
	slog.Info("ingestion dispatcher started", "workers", cfg.Ingest.Workers)

	// 8. Build router with dependencies
	deps := api.Dependencies{
		RateLimit: mw.NewRateLimit(redisCache, cfg.Server.RateLimitPerMin),

		HealthHandler:       handler.NewHealthHandler(pgStore, redisCache),
		UploadIngestHandler: handler.NewUploadIngestHandler(dispatcher),
		DriveIngestHandler:  handler.NewDriveIngestHandler(dispatcher),
		ListJobsHandler:     handler.NewListJobsHandler(pgStore),
		GetJobHandler:       handler.NewGetJobHandler(pgStore, redisCache),
		HistoryHandler:      handler.NewHistoryHandler(pgStore),
		ResetHandler:        handler.NewResetHandler(dispatcher),
	}

	router := api.NewRouter(deps)

	// 9. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
