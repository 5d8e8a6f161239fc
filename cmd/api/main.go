package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/hszk-dev/mediavault/internal/api/handler"
	"github.com/hszk-dev/mediavault/internal/api/middleware"
	"github.com/hszk-dev/mediavault/internal/config"
	"github.com/hszk-dev/mediavault/internal/infrastructure/cache"
	"github.com/hszk-dev/mediavault/internal/infrastructure/localfs"
	"github.com/hszk-dev/mediavault/internal/infrastructure/postgres"
	"github.com/hszk-dev/mediavault/internal/infrastructure/queue"
	"github.com/hszk-dev/mediavault/internal/infrastructure/storage"
	"github.com/hszk-dev/mediavault/internal/stream"
	"github.com/hszk-dev/mediavault/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	pgClient, err := postgres.NewClient(ctx, postgres.DefaultClientConfig(cfg.Database.DSN()))
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer pgClient.Close()
	logger.Info("connected to PostgreSQL")

	store, err := storage.NewStore(storage.StoreConfig{
		AccountID:        cfg.Storage.AccountID,
		AccessKeyID:      cfg.Storage.AccessKeyID,
		SecretAccessKey:  cfg.Storage.SecretAccessKey,
		Bucket:           cfg.Storage.Bucket,
		EndpointTemplate: cfg.Storage.EndpointTemplate,
		PublicBaseURL:    cfg.Storage.PublicBaseURL,
		UseSSL:           cfg.Storage.UseSSL,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize object storage: %w", err)
	}

	queueClient, err := queue.NewClient(ctx, queue.DefaultClientConfig(cfg.RabbitMQ.URL()), logger)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	defer queueClient.Close()
	logger.Info("connected to RabbitMQ")

	// The signed-URL cache is an optimization. A dead Redis degrades to
	// presigning every request instead of refusing to start.
	var urlCache cache.SignedURLCache
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, signed URL caching disabled", "error", err)
	} else {
		urlCache = cache.NewRedisSignedURLCache(redisClient)
		logger.Info("connected to Redis")
	}

	videoRepo := postgres.NewVideoRepository(pgClient.Pool())
	mediaSvc := usecase.NewMediaService(videoRepo, store, queueClient, logger)
	watchSvc := usecase.NewWatchService(videoRepo, store, urlCache, usecase.WatchServiceConfig{
		SignedURLTTL: cfg.Media.SignedURLTTL,
		CacheTTL:     cfg.Media.URLCacheTTL,
	}, logger)

	localStore := localfs.NewStore(cfg.Legacy.UploadsRoot, logger)
	objectStreamer := stream.NewStreamer(store, logger)
	localStreamer := stream.NewStreamer(localStore, logger)

	videoHandler := handler.NewVideoHandler(mediaSvc, watchSvc, objectStreamer, localStreamer, cfg.Media.MaxUploadSize)

	r := setupRouter(logger, videoHandler)

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

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func setupRouter(logger *slog.Logger, videoHandler *handler.VideoHandler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))

	r.Get("/health", handler.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/videos", func(r chi.Router) {
			r.Post("/", videoHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", videoHandler.Get)
				r.Get("/watch", videoHandler.Watch)
				r.Get("/stream", videoHandler.Stream)
				r.Put("/file", videoHandler.Replace)
				r.Delete("/", videoHandler.Delete)
			})
		})
	})

	return r
}
