// Package localfs serves media that predates object storage and still lives
// under the legacy local uploads directory. References reach it through
// objectkey.Resolve classifying them as KindLegacyLocal.
package localfs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/hszk-dev/mediavault/internal/domain/repository"
)

// Store reads legacy media files relative to the uploads root.
// It is read-mostly: new media always goes to object storage, the only write
// operation is removing a legacy file once its slot is replaced.
type Store struct {
	root   string
	logger *slog.Logger
}

// NewStore creates a legacy uploads store rooted at root.
func NewStore(root string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{root: root, logger: logger}
}

// safePath joins the relative legacy path to the root, rejecting traversal
// outside it.
func (s *Store) safePath(rel string) (string, error) {
	full := filepath.Join(s.root, filepath.FromSlash(rel))
	if !strings.HasPrefix(full, filepath.Clean(s.root)+string(os.PathSeparator)) {
		return "", fmt.Errorf("path escapes uploads root: %s", rel)
	}
	return full, nil
}

// Stat returns metadata for a legacy file.
// Returns repository.ErrObjectNotFound when the file is absent.
func (s *Store) Stat(ctx context.Context, rel string) (repository.ObjectInfo, error) {
	full, err := s.safePath(rel)
	if err != nil {
		return repository.ObjectInfo{}, err
	}

	info, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return repository.ObjectInfo{}, repository.ErrObjectNotFound
		}
		return repository.ObjectInfo{}, fmt.Errorf("stat legacy file: %w", err)
	}
	if info.IsDir() {
		return repository.ObjectInfo{}, repository.ErrObjectNotFound
	}

	return repository.ObjectInfo{
		Key:          rel,
		Size:         info.Size(),
		ContentType:  contentTypeFor(rel),
		LastModified: info.ModTime(),
	}, nil
}

// GetRange opens a legacy file, optionally limited to a pre-validated byte
// range.
func (s *Store) GetRange(ctx context.Context, rel string, br *repository.ByteRange) (*repository.RangeRead, error) {
	info, err := s.Stat(ctx, rel)
	if err != nil {
		return nil, err
	}

	full, err := s.safePath(rel)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, repository.ErrObjectNotFound
		}
		return nil, fmt.Errorf("open legacy file: %w", err)
	}

	effective := repository.ByteRange{Start: 0, End: uint64(info.Size) - 1}
	if info.Size == 0 {
		effective = repository.ByteRange{}
	}
	var body io.ReadCloser = f
	if br != nil {
		if br.Start > br.End || br.End >= uint64(info.Size) {
			_ = f.Close()
			return nil, fmt.Errorf("byte range out of bounds: bytes=%d-%d against size %d", br.Start, br.End, info.Size)
		}
		effective = *br
		body = &sectionReadCloser{
			SectionReader: io.NewSectionReader(f, int64(br.Start), int64(br.Length())),
			file:          f,
		}
	}

	return &repository.RangeRead{
		Body:        body,
		Range:       effective,
		TotalSize:   info.Size,
		ContentType: info.ContentType,
	}, nil
}

// Remove deletes a legacy file, best-effort. Missing files and failures are
// logged and swallowed so slot replacement never blocks on legacy cleanup.
func (s *Store) Remove(ctx context.Context, rel string) {
	full, err := s.safePath(rel)
	if err != nil {
		s.logger.Warn("legacy remove rejected", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("legacy remove failed", slog.String("path", rel), slog.String("error", err.Error()))
	}
}

// sectionReadCloser couples a section reader with closing the backing file.
type sectionReadCloser struct {
	*io.SectionReader
	file *os.File
}

func (s *sectionReadCloser) Close() error {
	return s.file.Close()
}

func contentTypeFor(rel string) string {
	if ct := mime.TypeByExtension(filepath.Ext(rel)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
