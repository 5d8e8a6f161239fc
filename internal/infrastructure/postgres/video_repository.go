package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hszk-dev/mediavault/internal/domain/model"
	"github.com/hszk-dev/mediavault/internal/domain/repository"
)

// DBTX is an interface that abstracts pgxpool.Pool and pgx.Tx for testability.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// VideoRepository implements repository.VideoRepository using PostgreSQL.
type VideoRepository struct {
	db DBTX
}

// NewVideoRepository creates a new VideoRepository instance.
func NewVideoRepository(db DBTX) *VideoRepository {
	return &VideoRepository{db: db}
}

// Create persists a new video entity.
func (r *VideoRepository) Create(ctx context.Context, video *model.Video) error {
	const query = `
		INSERT INTO videos (id, title, file_key, thumbnail_key, status, view_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Exec(ctx, query,
		video.ID,
		video.Title,
		nullString(video.FileKey),
		nullString(video.ThumbnailKey),
		video.Status.String(),
		video.ViewCount,
		video.CreatedAt,
		video.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return repository.ErrDuplicateVideo
		}
		return fmt.Errorf("failed to create video: %w", err)
	}

	return nil
}

// GetByID retrieves a video by its unique identifier.
func (r *VideoRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Video, error) {
	const query = `
		SELECT id, title, file_key, thumbnail_key, status, view_count, created_at, updated_at
		FROM videos
		WHERE id = $1
	`

	video, err := r.scanVideo(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrVideoNotFound
		}
		return nil, fmt.Errorf("failed to get video by ID: %w", err)
	}

	return video, nil
}

// Update persists changes to an existing video entity.
func (r *VideoRepository) Update(ctx context.Context, video *model.Video) error {
	const query = `
		UPDATE videos
		SET title = $2, file_key = $3, thumbnail_key = $4, status = $5, updated_at = $6
		WHERE id = $1
	`

	video.UpdatedAt = time.Now()

	tag, err := r.db.Exec(ctx, query,
		video.ID,
		video.Title,
		nullString(video.FileKey),
		nullString(video.ThumbnailKey),
		video.Status.String(),
		video.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update video: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return repository.ErrVideoNotFound
	}

	return nil
}

// UpdateStatus updates only the status field of a video.
func (r *VideoRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.Status) error {
	const query = `
		UPDATE videos
		SET status = $2, updated_at = $3
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, id, status.String(), time.Now())
	if err != nil {
		return fmt.Errorf("failed to update video status: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return repository.ErrVideoNotFound
	}

	return nil
}

// IncrementViewCount atomically bumps the view counter by one.
func (r *VideoRepository) IncrementViewCount(ctx context.Context, id uuid.UUID) error {
	const query = `
		UPDATE videos
		SET view_count = view_count + 1
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to increment view count: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return repository.ErrVideoNotFound
	}

	return nil
}

// Delete removes the video row.
func (r *VideoRepository) Delete(ctx context.Context, id uuid.UUID) error {
	const query = `
		DELETE FROM videos
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete video: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return repository.ErrVideoNotFound
	}

	return nil
}

// scanVideo scans a single row into a Video model.
func (r *VideoRepository) scanVideo(row pgx.Row) (*model.Video, error) {
	var (
		video        model.Video
		status       string
		fileKey      *string
		thumbnailKey *string
	)

	err := row.Scan(
		&video.ID,
		&video.Title,
		&fileKey,
		&thumbnailKey,
		&status,
		&video.ViewCount,
		&video.CreatedAt,
		&video.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	video.Status = model.Status(status)
	if fileKey != nil {
		video.FileKey = *fileKey
	}
	if thumbnailKey != nil {
		video.ThumbnailKey = *thumbnailKey
	}

	return &video, nil
}

// nullString returns nil for empty strings, otherwise returns a pointer to the string.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Compile-time verification that VideoRepository implements repository.VideoRepository.
var _ repository.VideoRepository = (*VideoRepository)(nil)
