package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hszk-dev/mediavault/internal/domain/model"
	"github.com/hszk-dev/mediavault/internal/domain/repository"
	"github.com/hszk-dev/mediavault/internal/objectkey"
	"github.com/hszk-dev/mediavault/internal/stream"
	"github.com/hszk-dev/mediavault/internal/usecase"
)

// DefaultMaxUploadSize caps multipart uploads at 2 GiB.
const DefaultMaxUploadSize = 2 << 30

type VideoResponse struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Status       string `json:"status"`
	FileKey      string `json:"file_key,omitempty"`
	ThumbnailKey string `json:"thumbnail_key,omitempty"`
	ViewCount    int64  `json:"view_count"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

type WatchResponse struct {
	URL       string `json:"url"`
	ExpiresIn int64  `json:"expires_in"`
}

// VideoHandler handles video-related HTTP requests.
type VideoHandler struct {
	media usecase.MediaService
	watch usecase.WatchService

	// objectStreamer serves canonical keys and stored URLs from the
	// object store; localStreamer serves legacy pre-migration files
	// straight off disk.
	objectStreamer *stream.Streamer
	localStreamer  *stream.Streamer

	maxUploadSize int64
}

// NewVideoHandler creates a new VideoHandler.
func NewVideoHandler(
	media usecase.MediaService,
	watch usecase.WatchService,
	objectStreamer *stream.Streamer,
	localStreamer *stream.Streamer,
	maxUploadSize int64,
) *VideoHandler {
	if maxUploadSize <= 0 {
		maxUploadSize = DefaultMaxUploadSize
	}
	return &VideoHandler{
		media:          media,
		watch:          watch,
		objectStreamer: objectStreamer,
		localStreamer:  localStreamer,
		maxUploadSize:  maxUploadSize,
	}
}

// Create handles POST /v1/videos.
// Expects a multipart form with a "title" field and a "file" part.
func (h *VideoHandler) Create(w http.ResponseWriter, r *http.Request) {
	upload, title, ok := h.parseUpload(w, r, true)
	if !ok {
		return
	}
	defer upload.close()

	video, err := h.media.CreateVideo(r.Context(), usecase.CreateVideoInput{
		Title: title,
		File:  upload.input,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	JSON(w, http.StatusCreated, toVideoResponse(video))
}

// Get handles GET /v1/videos/{id}.
func (h *VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	videoID, ok := videoIDParam(w, r)
	if !ok {
		return
	}

	video, err := h.media.GetVideo(r.Context(), videoID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	JSON(w, http.StatusOK, toVideoResponse(video))
}

// Watch handles GET /v1/videos/{id}/watch.
// Returns a signed playback URL rather than the bytes themselves.
func (h *VideoHandler) Watch(w http.ResponseWriter, r *http.Request) {
	videoID, ok := videoIDParam(w, r)
	if !ok {
		return
	}

	grant, err := h.watch.WatchVideo(r.Context(), videoID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	JSON(w, http.StatusOK, WatchResponse{
		URL:       grant.URL,
		ExpiresIn: grant.ExpiresIn,
	})
}

// Stream handles GET /v1/videos/{id}/stream.
// Proxies the media bytes with byte-range support. Playback starts (a full
// request or a range starting at zero) bump the view counter.
func (h *VideoHandler) Stream(w http.ResponseWriter, r *http.Request) {
	videoID, ok := videoIDParam(w, r)
	if !ok {
		return
	}

	video, err := h.media.GetVideo(r.Context(), videoID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	if !video.IsReady() || video.FileKey == "" {
		Error(w, http.StatusConflict, "video_not_ready", "Video is not ready for playback")
		return
	}

	onStart := func(ctx context.Context) error {
		return h.media.RecordView(ctx, videoID)
	}

	res := objectkey.Resolve(video.FileKey)
	if res.Kind == objectkey.KindLegacyLocal && h.localStreamer != nil {
		h.localStreamer.Serve(r.Context(), w, res.LocalPath, r.Header.Get("Range"), onStart)
		return
	}
	h.objectStreamer.Serve(r.Context(), w, video.FileKey, r.Header.Get("Range"), onStart)
}

// Replace handles PUT /v1/videos/{id}/file.
func (h *VideoHandler) Replace(w http.ResponseWriter, r *http.Request) {
	videoID, ok := videoIDParam(w, r)
	if !ok {
		return
	}

	upload, _, ok := h.parseUpload(w, r, false)
	if !ok {
		return
	}
	defer upload.close()

	video, err := h.media.ReplaceFile(r.Context(), videoID, upload.input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	JSON(w, http.StatusOK, toVideoResponse(video))
}

// Delete handles DELETE /v1/videos/{id}.
func (h *VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	videoID, ok := videoIDParam(w, r)
	if !ok {
		return
	}

	if err := h.media.DeleteVideo(r.Context(), videoID); err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type parsedUpload struct {
	input usecase.UploadInput
	close func()
}

// parseUpload extracts the uploaded file (and optionally the title) from a
// multipart form, enforcing the configured size cap.
func (h *VideoHandler) parseUpload(w http.ResponseWriter, r *http.Request, wantTitle bool) (parsedUpload, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			Error(w, http.StatusRequestEntityTooLarge, "file_too_large", "Uploaded file exceeds the size limit")
		} else {
			Error(w, http.StatusBadRequest, "invalid_file", "A multipart \"file\" part is required")
		}
		return parsedUpload{}, "", false
	}

	title := ""
	if wantTitle {
		title = r.FormValue("title")
		if title == "" {
			_ = file.Close()
			Error(w, http.StatusBadRequest, "invalid_title", "Title is required")
			return parsedUpload{}, "", false
		}
	}

	return parsedUpload{
		input: usecase.UploadInput{
			Filename:    header.Filename,
			Content:     file,
			Size:        header.Size,
			ContentType: header.Header.Get("Content-Type"),
		},
		close: func() { _ = file.Close() },
	}, title, true
}

func videoIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	videoID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid_video_id", "Video ID must be a valid UUID")
		return uuid.Nil, false
	}
	return videoID, true
}

func (h *VideoHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrVideoNotFound):
		Error(w, http.StatusNotFound, "video_not_found", "Video not found")
	case errors.Is(err, model.ErrEmptyTitle):
		Error(w, http.StatusBadRequest, "invalid_title", "Title cannot be empty")
	case errors.Is(err, model.ErrTitleTooLong):
		Error(w, http.StatusBadRequest, "invalid_title", "Title exceeds maximum length")
	case errors.Is(err, usecase.ErrNoFile):
		Error(w, http.StatusBadRequest, "invalid_file", "A file is required")
	case errors.Is(err, usecase.ErrVideoNotReady):
		Error(w, http.StatusConflict, "video_not_ready", "Video is not ready for playback")
	case errors.Is(err, repository.ErrStorageUnavailable):
		Error(w, http.StatusServiceUnavailable, "storage_unavailable", "Object storage is not configured or unreachable")
	default:
		Error(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

func toVideoResponse(v *model.Video) VideoResponse {
	return VideoResponse{
		ID:           v.ID.String(),
		Title:        v.Title,
		Status:       v.Status.String(),
		FileKey:      v.FileKey,
		ThumbnailKey: v.ThumbnailKey,
		ViewCount:    v.ViewCount,
		CreatedAt:    v.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:    v.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
