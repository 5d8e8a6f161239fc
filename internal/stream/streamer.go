package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hszk-dev/mediavault/internal/domain/repository"
	"github.com/hszk-dev/mediavault/internal/infrastructure/metrics"
)

// ObjectSource is the subset of storage operations the streamer needs.
// Both the bucket-backed object store and the legacy local-uploads store
// satisfy it.
type ObjectSource interface {
	Stat(ctx context.Context, ref string) (repository.ObjectInfo, error)
	GetRange(ctx context.Context, ref string, br *repository.ByteRange) (*repository.RangeRead, error)
}

// StartHook is fired once per logical start of playback: a request with no
// Range header, or a range starting at byte zero. It runs detached from the
// request; failures are logged and never propagated.
type StartHook func(ctx context.Context) error

// Streamer serves one stored object per call with byte-range support.
// It is stateless and safe for concurrent use.
type Streamer struct {
	source ObjectSource
	logger *slog.Logger
}

// NewStreamer creates a Streamer reading from the given source.
func NewStreamer(source ObjectSource, logger *slog.Logger) *Streamer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Streamer{source: source, logger: logger}
}

// Serve writes the referenced object to w, honoring rangeHeader.
//
// Response shapes:
//   - no (or unparseable) range: 200 with Content-Length and Accept-Ranges
//   - valid range: 206 with Content-Range bytes <s>-<e>/<size>
//   - invalid range: 416, raised before any object fetch
//   - missing object: 404
//
// Once headers are flushed the status is immutable: a mid-stream read error
// can only abort the connection and log.
func (s *Streamer) Serve(ctx context.Context, w http.ResponseWriter, ref, rangeHeader string, onStart StartHook) {
	info, err := s.source.Stat(ctx, ref)
	if err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			metrics.StreamResponsesTotal.WithLabelValues("404").Inc()
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		s.logger.Error("stream stat failed", slog.String("ref", ref), slog.String("error", err.Error()))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	br, err := ParseRange(rangeHeader, info.Size)
	if err != nil {
		// Invalid ranges never reach the storage endpoint.
		metrics.StreamResponsesTotal.WithLabelValues("416").Inc()
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", info.Size))
		http.Error(w, http.StatusText(http.StatusRequestedRangeNotSatisfiable), http.StatusRequestedRangeNotSatisfiable)
		return
	}

	if onStart != nil && (br == nil || br.Start == 0) {
		s.fireStartHook(ctx, ref, onStart)
	}

	rr, err := s.source.GetRange(ctx, ref, br)
	if err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			metrics.StreamResponsesTotal.WithLabelValues("404").Inc()
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		s.logger.Error("stream fetch failed", slog.String("ref", ref), slog.String("error", err.Error()))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	defer rr.Body.Close()

	h := w.Header()
	h.Set("Accept-Ranges", "bytes")
	if rr.ContentType != "" {
		h.Set("Content-Type", rr.ContentType)
	}

	if br != nil {
		h.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", rr.Range.Start, rr.Range.End, rr.TotalSize))
		h.Set("Content-Length", strconv.FormatUint(rr.Range.Length(), 10))
		w.WriteHeader(http.StatusPartialContent)
		metrics.StreamResponsesTotal.WithLabelValues("206").Inc()
	} else {
		h.Set("Content-Length", strconv.FormatInt(rr.TotalSize, 10))
		w.WriteHeader(http.StatusOK)
		metrics.StreamResponsesTotal.WithLabelValues("200").Inc()
	}

	// Pipe without buffering. Headers are already flushed, so a failure here
	// (client disconnect, storage read error) cannot change the status.
	written, err := io.Copy(w, rr.Body)
	metrics.StreamBytesTotal.Add(float64(written))
	if err != nil {
		s.logger.Warn("stream aborted mid-transfer",
			slog.String("ref", ref),
			slog.Int64("bytes_written", written),
			slog.String("error", err.Error()),
		)
	}
}

// fireStartHook runs the playback-start side effect in a detached goroutine.
// The hook outlives the request on purpose: the response must not wait on it,
// and a client disconnect must not cancel it.
func (s *Streamer) fireStartHook(ctx context.Context, ref string, onStart StartHook) {
	detached := context.WithoutCancel(ctx)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("playback start hook panicked", slog.Any("panic", rec))
			}
		}()
		if err := onStart(detached); err != nil {
			s.logger.Warn("playback start hook failed",
				slog.String("ref", ref),
				slog.String("error", err.Error()),
			)
		}
	}()
}
