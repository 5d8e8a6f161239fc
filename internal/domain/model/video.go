package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status represents the delivery state of a video's media file.
type Status string

const (
	// StatusProcessing means the uploaded container is being converted.
	StatusProcessing Status = "PROCESSING"
	// StatusReady means the stored object is playable as-is.
	StatusReady Status = "READY"
	// StatusFailed means conversion failed and the slot needs a re-upload.
	StatusFailed Status = "FAILED"
)

// Valid status transitions:
// PROCESSING -> READY | FAILED
// READY      -> PROCESSING (file replaced with a convertible container)
// FAILED     -> PROCESSING (re-upload)
var validTransitions = map[Status][]Status{
	StatusProcessing: {StatusReady, StatusFailed},
	StatusReady:      {StatusProcessing},
	StatusFailed:     {StatusProcessing},
}

func (s Status) IsValid() bool {
	switch s {
	case StatusProcessing, StatusReady, StatusFailed:
		return true
	default:
		return false
	}
}

func (s Status) CanTransitionTo(next Status) bool {
	allowed, exists := validTransitions[s]
	if !exists {
		return false
	}
	for _, status := range allowed {
		if status == next {
			return true
		}
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// Video represents a video entity in the domain. FileKey and ThumbnailKey
// hold stored references: usually canonical object keys, but historically
// also full bucket URLs or legacy local paths. They must always pass through
// objectkey.Resolve before reaching the object store.
type Video struct {
	ID           uuid.UUID
	Title        string
	FileKey      string
	ThumbnailKey string
	Status       Status
	ViewCount    int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

var (
	ErrEmptyTitle        = errors.New("title cannot be empty")
	ErrTitleTooLong      = errors.New("title exceeds maximum length of 255 characters")
	ErrInvalidTransition = errors.New("invalid status transition")
)

const maxTitleLength = 255

// NewVideo creates a new Video in the given initial status.
func NewVideo(title string, status Status) (*Video, error) {
	if title == "" {
		return nil, ErrEmptyTitle
	}
	if len(title) > maxTitleLength {
		return nil, ErrTitleTooLong
	}
	if !status.IsValid() {
		return nil, ErrInvalidTransition
	}

	now := time.Now()
	return &Video{
		ID:        uuid.New(),
		Title:     title,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// TransitionTo attempts to change the video status.
// Returns error if the transition is not allowed.
func (v *Video) TransitionTo(next Status) error {
	if !next.IsValid() {
		return ErrInvalidTransition
	}
	if !v.Status.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	v.Status = next
	v.UpdatedAt = time.Now()
	return nil
}

// SetFileKey records the canonical object key after an upload completes.
func (v *Video) SetFileKey(key string) {
	v.FileKey = key
	v.UpdatedAt = time.Now()
}

// SetThumbnailKey records the canonical thumbnail object key.
func (v *Video) SetThumbnailKey(key string) {
	v.ThumbnailKey = key
	v.UpdatedAt = time.Now()
}

// IsReady returns true if the video is playable.
func (v *Video) IsReady() bool {
	return v.Status == StatusReady
}
