package transcoder

import (
	"context"
	"errors"
	"fmt"
)

// ErrConversionNotNeeded signals that the source container is already
// web-compatible and the caller should use the original bytes as-is.
// It is a routing signal, not a failure.
var ErrConversionNotNeeded = errors.New("conversion not needed")

// ConversionError is returned when the encoder subprocess fails, or exits
// cleanly without producing output. Stderr carries the encoder's diagnostic
// stream for operator visibility.
type ConversionError struct {
	Stderr string
	Err    error
}

func (e *ConversionError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("conversion failed: %v: %s", e.Err, e.Stderr)
	}
	return fmt.Sprintf("conversion failed: %v", e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// Converter defines the interface for container normalization.
// Implementations convert legacy/incompatible containers into a single
// broadly-compatible target format.
type Converter interface {
	// Convert normalizes the input into an H.264/AAC MP4. Returns
	// ErrConversionNotNeeded without creating any temporary files when the
	// source extension is outside the conversion set. The returned buffer
	// is independently owned, never a view into input.
	Convert(ctx context.Context, input []byte, originalFilename string) ([]byte, error)

	// IsAvailable reports whether the encoder binary answers a version
	// query. Diagnostics only; it never gates a conversion attempt.
	IsAvailable(ctx context.Context) bool
}
