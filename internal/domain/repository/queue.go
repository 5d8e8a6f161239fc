package repository

import (
	"context"

	"github.com/google/uuid"
)

// ConvertTask represents a container-conversion job message. SourceKey points
// at the staged original upload; the worker replaces it with a normalized MP4.
type ConvertTask struct {
	VideoID          uuid.UUID `json:"video_id"`
	SourceKey        string    `json:"source_key"`
	OriginalFilename string    `json:"original_filename"`
	RetryCount       int       `json:"retry_count"`
}

// MessageQueue defines the interface for message queue operations.
// Implementations should be provided by the infrastructure layer (e.g., RabbitMQ).
type MessageQueue interface {
	// PublishConvertTask sends a conversion task to the queue.
	// Used by the API server when an upload needs container normalization.
	PublishConvertTask(ctx context.Context, task ConvertTask) error

	// ConsumeConvertTasks starts consuming conversion tasks from the queue.
	// The handler function is called for each received task; a non-nil
	// return requeues the task. Used by the worker service.
	ConsumeConvertTasks(ctx context.Context, handler func(task ConvertTask) error) error

	// Close gracefully closes the connection to the message queue.
	Close() error
}
