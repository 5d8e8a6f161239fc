package transcoder

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hszk-dev/mediavault/internal/infrastructure/metrics"
)

// convertibleExtensions is the fixed set of legacy containers that need
// normalization before they play in browsers and on mobile.
var convertibleExtensions = map[string]bool{
	".mov": true,
	".avi": true,
	".mkv": true,
	".wmv": true,
}

// NeedsConversion reports whether the file's container is in the
// conversion set, identified by extension.
func NeedsConversion(filename string) bool {
	return convertibleExtensions[strings.ToLower(filepath.Ext(filename))]
}

// FFmpegConfig holds configuration for the FFmpeg converter.
type FFmpegConfig struct {
	// FFmpegPath is the path to the ffmpeg binary.
	// If empty, "ffmpeg" will be used (assumes it's in PATH).
	FFmpegPath string

	// TempDir is where per-conversion input/output files live. They exist
	// only for the duration of one Convert call.
	TempDir string

	// CRF is the x264 constant rate factor (quality). Default: 23.
	CRF int

	// Preset controls the encoding speed/quality tradeoff.
	// Default: fast
	Preset string

	// AudioBitrate is the AAC bitrate. Default: 128k.
	AudioBitrate string

	// Timeout bounds one conversion; the subprocess is killed when it
	// elapses and temp files are still removed. Default: 10m.
	Timeout time.Duration
}

// DefaultFFmpegConfig returns an FFmpegConfig with production-ready defaults.
func DefaultFFmpegConfig() FFmpegConfig {
	return FFmpegConfig{
		FFmpegPath:   "ffmpeg",
		TempDir:      os.TempDir(),
		CRF:          23,
		Preset:       "fast",
		AudioBitrate: "128k",
		Timeout:      10 * time.Minute,
	}
}

// FFmpegConverter implements Converter using the FFmpeg CLI.
type FFmpegConverter struct {
	config FFmpegConfig
}

// Compile-time verification that FFmpegConverter implements Converter.
var _ Converter = (*FFmpegConverter)(nil)

// NewFFmpegConverter creates a new FFmpeg-based converter.
func NewFFmpegConverter(cfg FFmpegConfig) *FFmpegConverter {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	if cfg.CRF == 0 {
		cfg.CRF = 23
	}
	if cfg.Preset == "" {
		cfg.Preset = "fast"
	}
	if cfg.AudioBitrate == "" {
		cfg.AudioBitrate = "128k"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Minute
	}
	return &FFmpegConverter{config: cfg}
}

// Convert normalizes a legacy container into an H.264/AAC MP4 with the moov
// atom relocated to the front for streaming-friendly playback.
//
// Both temporary files are removed on every exit path. Repeated leaks of
// multi-hundred-MB temp files on a long-running worker are a resource
// exhaustion risk, so cleanup is unconditional.
func (c *FFmpegConverter) Convert(ctx context.Context, input []byte, originalFilename string) ([]byte, error) {
	ext := strings.ToLower(filepath.Ext(originalFilename))
	if !convertibleExtensions[ext] {
		metrics.ConversionsTotal.WithLabelValues(metrics.ConversionNotNeeded).Inc()
		return nil, ErrConversionNotNeeded
	}

	inputPath, err := c.writeTemp("convert-in-*"+ext, input)
	if err != nil {
		return nil, fmt.Errorf("write input temp file: %w", err)
	}
	defer os.Remove(inputPath)

	outputPath, err := c.writeTemp("convert-out-*.mp4", nil)
	if err != nil {
		return nil, fmt.Errorf("create output temp file: %w", err)
	}
	defer os.Remove(outputPath)

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.config.FFmpegPath, c.buildArgs(inputPath, outputPath)...)
	cmd.Stdout = nil // FFmpeg reports progress on stderr
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		metrics.ConversionsTotal.WithLabelValues(metrics.ConversionFailed).Inc()
		if ctx.Err() != nil {
			return nil, &ConversionError{Stderr: stderr.String(), Err: fmt.Errorf("encoder cancelled: %w", ctx.Err())}
		}
		return nil, &ConversionError{Stderr: stderr.String(), Err: err}
	}

	// An encoder that exits 0 but writes nothing is a known silent-failure
	// mode; treat it as a failure, never a success.
	info, err := os.Stat(outputPath)
	if err != nil || info.Size() == 0 {
		metrics.ConversionsTotal.WithLabelValues(metrics.ConversionFailed).Inc()
		return nil, &ConversionError{Stderr: stderr.String(), Err: fmt.Errorf("encoder exited cleanly but produced no output")}
	}

	converted, err := os.ReadFile(outputPath)
	if err != nil {
		metrics.ConversionsTotal.WithLabelValues(metrics.ConversionFailed).Inc()
		return nil, fmt.Errorf("read converted output: %w", err)
	}

	metrics.ConversionsTotal.WithLabelValues(metrics.ConversionSuccess).Inc()
	return converted, nil
}

// IsAvailable checks that the encoder binary responds to a version query.
func (c *FFmpegConverter) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.config.FFmpegPath, "-version")
	cmd.Stdout = nil
	cmd.Stderr = nil
	return cmd.Run() == nil
}

// writeTemp creates a uniquely-named file in the configured temp directory.
func (c *FFmpegConverter) writeTemp(pattern string, data []byte) (string, error) {
	f, err := os.CreateTemp(c.config.TempDir, pattern)
	if err != nil {
		return "", err
	}
	if data != nil {
		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
			return "", err
		}
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// buildArgs constructs the fixed FFmpeg argument list: H.264 video at a
// constant quality, AAC audio, moov atom up front, pixel format pinned for
// broad decoder compatibility.
func (c *FFmpegConverter) buildArgs(inputPath, outputPath string) []string {
	return []string{
		"-i", inputPath,
		"-c:v", "libx264",
		"-crf", strconv.Itoa(c.config.CRF),
		"-preset", c.config.Preset,
		"-c:a", "aac",
		"-b:a", c.config.AudioBitrate,
		"-movflags", "+faststart",
		"-pix_fmt", "yuv420p",
		"-y", // Overwrite output files without asking
		outputPath,
	}
}
