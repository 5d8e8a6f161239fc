package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/hszk-dev/mediavault/internal/config"
	"github.com/hszk-dev/mediavault/internal/domain/repository"
	"github.com/hszk-dev/mediavault/internal/infrastructure/postgres"
	"github.com/hszk-dev/mediavault/internal/infrastructure/queue"
	"github.com/hszk-dev/mediavault/internal/infrastructure/storage"
	"github.com/hszk-dev/mediavault/internal/transcoder"
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

	if err := os.MkdirAll(cfg.Worker.TempDir, 0755); err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}

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
	if err := store.Ping(ctx); err != nil {
		return fmt.Errorf("object storage unreachable: %w", err)
	}
	logger.Info("connected to object storage")

	queueClient, err := queue.NewClient(ctx, queue.DefaultClientConfig(cfg.RabbitMQ.URL()), logger)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	defer queueClient.Close()
	logger.Info("connected to RabbitMQ")

	ffmpegCfg := transcoder.DefaultFFmpegConfig()
	ffmpegCfg.TempDir = cfg.Worker.TempDir
	ffmpegCfg.Timeout = cfg.Worker.ConvertTimeout
	converter := transcoder.NewFFmpegConverter(ffmpegCfg)
	if !converter.IsAvailable(ctx) {
		logger.Warn("ffmpeg not found on PATH, conversions will fail")
	}

	videoRepo := postgres.NewVideoRepository(pgClient.Pool())
	convertSvc := usecase.NewConvertService(videoRepo, store, converter, usecase.ConvertServiceConfig{
		MaxRetries: cfg.Worker.MaxRetries,
	}, logger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Track in-flight tasks so shutdown can drain them.
	var wg sync.WaitGroup

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting worker, consuming convert tasks")
		err := queueClient.ConsumeConvertTasks(ctx, func(task repository.ConvertTask) error {
			wg.Add(1)
			defer wg.Done()

			logger.Info("processing task",
				slog.String("video_id", task.VideoID.String()),
				slog.String("source_key", task.SourceKey),
				slog.Int("retry_count", task.RetryCount),
			)

			if err := convertSvc.ProcessTask(ctx, task); err != nil {
				logger.Error("task processing failed",
					slog.String("video_id", task.VideoID.String()),
					slog.Int("retry_count", task.RetryCount),
					slog.String("error", err.Error()),
				)
				return err
			}

			logger.Info("task completed",
				slog.String("video_id", task.VideoID.String()),
			)
			return nil
		})
		if err != nil && ctx.Err() == nil {
			errCh <- fmt.Errorf("consumer error: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down worker", slog.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
	defer shutdownCancel()

	// Stop consuming, then drain in-flight tasks.
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("all in-flight tasks completed")
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timeout exceeded, some tasks may not have completed")
	}

	logger.Info("worker stopped")
	return nil
}
