package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/hszk-dev/mediavault/internal/domain/model"
	"github.com/hszk-dev/mediavault/internal/domain/repository"
	"github.com/hszk-dev/mediavault/internal/objectkey"
	"github.com/hszk-dev/mediavault/internal/transcoder"
)

// DefaultMaxRetries is the default maximum number of retry attempts before a
// task is marked as permanently failed.
const DefaultMaxRetries = 3

// ConvertServiceConfig holds configuration for ConvertService.
type ConvertServiceConfig struct {
	// MaxRetries is the maximum number of retry attempts before marking
	// the video as failed.
	MaxRetries int
}

// DefaultConvertServiceConfig returns the default configuration.
func DefaultConvertServiceConfig() ConvertServiceConfig {
	return ConvertServiceConfig{
		MaxRetries: DefaultMaxRetries,
	}
}

// ConvertService defines the interface for container conversion processing.
type ConvertService interface {
	// ProcessTask handles a conversion task from the message queue.
	// Returns nil on success or permanent failure (the message is acked).
	// Returns an error for transient failures that should trigger a retry.
	ProcessTask(ctx context.Context, task repository.ConvertTask) error
}

type convertService struct {
	repo      repository.VideoRepository
	storage   repository.ObjectStorage
	converter transcoder.Converter
	logger    *slog.Logger

	maxRetries int
}

// NewConvertService creates a new ConvertService instance.
func NewConvertService(
	repo repository.VideoRepository,
	storage repository.ObjectStorage,
	converter transcoder.Converter,
	cfg ConvertServiceConfig,
	logger *slog.Logger,
) ConvertService {
	if logger == nil {
		logger = slog.Default()
	}
	return &convertService{
		repo:       repo,
		storage:    storage,
		converter:  converter,
		logger:     logger,
		maxRetries: cfg.MaxRetries,
	}
}

// ProcessTask handles a conversion task. It downloads the staged original,
// normalizes the container, stores the MP4 under a fresh key, and flips the
// video to READY. Encoder failures are permanent; infrastructure failures
// return an error to retry through the queue.
func (s *convertService) ProcessTask(ctx context.Context, task repository.ConvertTask) error {
	if task.RetryCount >= s.maxRetries {
		if err := s.markVideoFailed(ctx, task.VideoID); err != nil {
			s.logger.Error("failed to mark video as failed",
				"video_id", task.VideoID,
				"retry_count", task.RetryCount,
				"error", err,
			)
			// Still ack the message. The video stays in PROCESSING,
			// which an operator can resolve; an endlessly redelivered
			// poison message cannot.
		}
		return nil
	}

	input, err := s.downloadSource(ctx, task.SourceKey)
	if err != nil {
		return fmt.Errorf("download source: %w", err)
	}

	output, err := s.converter.Convert(ctx, input, task.OriginalFilename)
	if err != nil {
		if errors.Is(err, transcoder.ErrConversionNotNeeded) {
			// The staged object is already playable; promote it as-is.
			return s.markVideoReady(ctx, task.VideoID, task.SourceKey, task.SourceKey)
		}

		var convErr *transcoder.ConversionError
		if errors.As(err, &convErr) {
			// Deterministic encoder failure: retrying the same bytes
			// produces the same result, so fail the video now.
			s.logger.Error("conversion failed permanently",
				"video_id", task.VideoID,
				"source_key", task.SourceKey,
				"error", convErr.Err,
				"stderr", convErr.Stderr,
			)
			if err := s.markVideoFailed(ctx, task.VideoID); err != nil {
				return fmt.Errorf("mark video failed: %w", err)
			}
			s.storage.Delete(ctx, task.SourceKey)
			return nil
		}

		return fmt.Errorf("convert: %w", err)
	}

	key, err := s.storage.Put(ctx, objectkey.NamespaceVideos, mp4Filename(task.OriginalFilename), bytes.NewReader(output), int64(len(output)), "video/mp4")
	if err != nil {
		return fmt.Errorf("store converted output: %w", err)
	}

	if err := s.markVideoReady(ctx, task.VideoID, key.String(), task.SourceKey); err != nil {
		return fmt.Errorf("update video status: %w", err)
	}

	return nil
}

// downloadSource fetches the staged original into memory.
func (s *convertService) downloadSource(ctx context.Context, sourceKey string) ([]byte, error) {
	read, err := s.storage.GetRange(ctx, sourceKey, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = read.Body.Close() }()

	data, err := io.ReadAll(read.Body)
	if err != nil {
		return nil, fmt.Errorf("read source body: %w", err)
	}
	return data, nil
}

// markVideoReady points the video at its final key, flips it to READY, and
// drops the staged original when the final key differs from it.
func (s *convertService) markVideoReady(ctx context.Context, videoID uuid.UUID, fileKey, sourceKey string) error {
	video, err := s.repo.GetByID(ctx, videoID)
	if err != nil {
		return fmt.Errorf("get video: %w", err)
	}

	if video.Status != model.StatusProcessing {
		// Stale task for a slot that moved on, e.g. the file was
		// replaced while this task waited in the queue. Drop the
		// output so it doesn't orphan in the bucket.
		if fileKey != sourceKey && fileKey != video.FileKey {
			s.storage.Delete(ctx, fileKey)
		}
		return nil
	}

	video.SetFileKey(fileKey)
	if err := video.TransitionTo(model.StatusReady); err != nil {
		return fmt.Errorf("transition to ready: %w", err)
	}

	if err := s.repo.Update(ctx, video); err != nil {
		return fmt.Errorf("update video: %w", err)
	}

	if fileKey != sourceKey {
		s.storage.Delete(ctx, sourceKey)
	}

	return nil
}

// markVideoFailed flips the video to FAILED if it is still PROCESSING.
func (s *convertService) markVideoFailed(ctx context.Context, videoID uuid.UUID) error {
	video, err := s.repo.GetByID(ctx, videoID)
	if err != nil {
		return fmt.Errorf("get video: %w", err)
	}

	if video.Status != model.StatusProcessing {
		return nil
	}

	if err := video.TransitionTo(model.StatusFailed); err != nil {
		return fmt.Errorf("transition to failed: %w", err)
	}

	if err := s.repo.Update(ctx, video); err != nil {
		return fmt.Errorf("update video: %w", err)
	}

	return nil
}
