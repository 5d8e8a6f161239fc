package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/hszk-dev/mediavault/internal/domain/model"
	"github.com/hszk-dev/mediavault/internal/domain/repository"
	"github.com/hszk-dev/mediavault/internal/objectkey"
	"github.com/hszk-dev/mediavault/internal/transcoder"
)

// ErrNoFile is returned when an upload request carries no file content.
var ErrNoFile = errors.New("no file provided")

// UploadInput contains the input parameters for an uploaded media file.
type UploadInput struct {
	Filename    string
	Content     io.Reader
	Size        int64
	ContentType string
}

// CreateVideoInput contains the input parameters for creating a video.
type CreateVideoInput struct {
	Title string
	File  UploadInput
}

// MediaService defines the interface for video metadata and file operations.
type MediaService interface {
	// CreateVideo stores the uploaded file and persists the video metadata.
	// Convertible containers are staged and queued for conversion; the
	// returned video is then in PROCESSING. Everything else is stored
	// as-is and returned READY.
	CreateVideo(ctx context.Context, input CreateVideoInput) (*model.Video, error)

	// GetVideo retrieves video information by ID.
	GetVideo(ctx context.Context, videoID uuid.UUID) (*model.Video, error)

	// ReplaceFile swaps the video's media file for a new upload. The prior
	// object is deleted best-effort before the new key is persisted.
	ReplaceFile(ctx context.Context, videoID uuid.UUID, file UploadInput) (*model.Video, error)

	// DeleteVideo removes the video row and best-effort deletes its
	// stored objects.
	DeleteVideo(ctx context.Context, videoID uuid.UUID) error

	// RecordView bumps the view counter at playback start. Best-effort:
	// failures are logged and never surfaced to the caller.
	RecordView(ctx context.Context, videoID uuid.UUID) error
}

type mediaService struct {
	repo    repository.VideoRepository
	storage repository.ObjectStorage
	queue   repository.MessageQueue
	logger  *slog.Logger
}

// NewMediaService creates a new MediaService instance.
func NewMediaService(
	repo repository.VideoRepository,
	storage repository.ObjectStorage,
	queue repository.MessageQueue,
	logger *slog.Logger,
) MediaService {
	if logger == nil {
		logger = slog.Default()
	}
	return &mediaService{
		repo:    repo,
		storage: storage,
		queue:   queue,
		logger:  logger,
	}
}

// CreateVideo stores the uploaded file and persists video metadata.
func (s *mediaService) CreateVideo(ctx context.Context, input CreateVideoInput) (*model.Video, error) {
	if input.File.Content == nil {
		return nil, ErrNoFile
	}

	status := model.StatusReady
	if transcoder.NeedsConversion(input.File.Filename) {
		status = model.StatusProcessing
	}

	video, err := model.NewVideo(input.Title, status)
	if err != nil {
		return nil, err
	}

	key, err := s.storage.Put(ctx, objectkey.NamespaceVideos, input.File.Filename, input.File.Content, input.File.Size, input.File.ContentType)
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}
	video.SetFileKey(key.String())

	if err := s.repo.Create(ctx, video); err != nil {
		// The stored object is now orphaned; clean it up best-effort.
		s.storage.Delete(ctx, key.String())
		return nil, fmt.Errorf("create video: %w", err)
	}

	if status == model.StatusProcessing {
		task := repository.ConvertTask{
			VideoID:          video.ID,
			SourceKey:        key.String(),
			OriginalFilename: input.File.Filename,
		}
		if err := s.queue.PublishConvertTask(ctx, task); err != nil {
			return nil, fmt.Errorf("publish convert task: %w", err)
		}
	}

	return video, nil
}

// GetVideo retrieves video information by ID.
func (s *mediaService) GetVideo(ctx context.Context, videoID uuid.UUID) (*model.Video, error) {
	return s.repo.GetByID(ctx, videoID)
}

// ReplaceFile swaps the video's media file for a new upload.
func (s *mediaService) ReplaceFile(ctx context.Context, videoID uuid.UUID, file UploadInput) (*model.Video, error) {
	if file.Content == nil {
		return nil, ErrNoFile
	}

	video, err := s.repo.GetByID(ctx, videoID)
	if err != nil {
		return nil, err
	}

	key, err := s.storage.Put(ctx, objectkey.NamespaceVideos, file.Filename, file.Content, file.Size, file.ContentType)
	if err != nil {
		return nil, fmt.Errorf("store replacement: %w", err)
	}

	// Drop the prior object before the new key is persisted. Idempotent
	// and best-effort, so a half-replaced slot never strands the request.
	if video.FileKey != "" {
		s.storage.Delete(ctx, video.FileKey)
	}

	needsConversion := transcoder.NeedsConversion(file.Filename)
	if needsConversion && video.Status != model.StatusProcessing {
		if err := video.TransitionTo(model.StatusProcessing); err != nil {
			return nil, err
		}
	}
	if !needsConversion {
		// Replacement resets the lifecycle regardless of prior state.
		video.Status = model.StatusReady
	}
	video.SetFileKey(key.String())

	if err := s.repo.Update(ctx, video); err != nil {
		return nil, fmt.Errorf("update video: %w", err)
	}

	if needsConversion {
		task := repository.ConvertTask{
			VideoID:          video.ID,
			SourceKey:        key.String(),
			OriginalFilename: file.Filename,
		}
		if err := s.queue.PublishConvertTask(ctx, task); err != nil {
			return nil, fmt.Errorf("publish convert task: %w", err)
		}
	}

	return video, nil
}

// DeleteVideo removes the video row and its stored objects.
func (s *mediaService) DeleteVideo(ctx context.Context, videoID uuid.UUID) error {
	video, err := s.repo.GetByID(ctx, videoID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, videoID); err != nil {
		return fmt.Errorf("delete video: %w", err)
	}

	// Object cleanup after the row is gone; a leaked object is recoverable,
	// a dangling row pointing at a deleted object is not.
	if video.FileKey != "" {
		s.storage.Delete(ctx, video.FileKey)
	}
	if video.ThumbnailKey != "" {
		s.storage.Delete(ctx, video.ThumbnailKey)
	}

	return nil
}

// RecordView bumps the view counter. Failures are logged, never surfaced.
func (s *mediaService) RecordView(ctx context.Context, videoID uuid.UUID) error {
	if err := s.repo.IncrementViewCount(ctx, videoID); err != nil {
		if !errors.Is(err, repository.ErrVideoNotFound) {
			s.logger.Warn("failed to record view",
				"video_id", videoID,
				"error", err,
			)
		}
		return nil
	}
	return nil
}

// mp4Filename swaps the extension of a filename for .mp4, used when the
// worker re-homes converted output.
func mp4Filename(original string) string {
	if idx := strings.LastIndex(original, "."); idx > 0 {
		return original[:idx] + ".mp4"
	}
	return original + ".mp4"
}
