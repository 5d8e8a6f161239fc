package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/hszk-dev/mediavault/internal/domain/model"
)

// VideoRepository defines the interface for video persistence operations.
// Implementations should be provided by the infrastructure layer (e.g., PostgreSQL).
type VideoRepository interface {
	// Create persists a new video entity.
	Create(ctx context.Context, video *model.Video) error

	// GetByID retrieves a video by its unique identifier.
	// Returns nil and ErrVideoNotFound if the video does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Video, error)

	// Update persists changes to an existing video entity.
	// Returns ErrVideoNotFound if the video does not exist.
	Update(ctx context.Context, video *model.Video) error

	// UpdateStatus updates only the status field of a video.
	// Returns ErrVideoNotFound if the video does not exist.
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.Status) error

	// IncrementViewCount atomically bumps the view counter by one.
	// Fired at the start of playback; callers treat failures as best-effort.
	IncrementViewCount(ctx context.Context, id uuid.UUID) error

	// Delete removes the video row.
	// Returns ErrVideoNotFound if the video does not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}
