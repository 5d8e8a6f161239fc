package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/hszk-dev/mediavault/internal/domain/model"
	"github.com/hszk-dev/mediavault/internal/domain/repository"
	"github.com/hszk-dev/mediavault/internal/infrastructure/cache"
	"github.com/hszk-dev/mediavault/internal/infrastructure/metrics"
	"github.com/hszk-dev/mediavault/internal/objectkey"
)

// ErrVideoNotReady is returned when playback is requested for a video whose
// media file is still converting or failed conversion.
var ErrVideoNotReady = errors.New("video is not ready for playback")

// WatchGrant is the playback authorization handed to clients: a signed URL
// plus the remaining validity window in seconds.
type WatchGrant struct {
	URL       string
	ExpiresIn int64
}

// WatchServiceConfig holds configuration for WatchService.
type WatchServiceConfig struct {
	// SignedURLTTL is the validity window requested from the object store.
	SignedURLTTL time.Duration
	// CacheTTL is how long issued grants are cached. It must stay safely
	// below SignedURLTTL so a cached grant is never already expired.
	CacheTTL time.Duration
}

// DefaultWatchServiceConfig returns the default configuration.
// Grants live an hour; cached copies are dropped at half that so clients
// always receive at least thirty minutes of validity.
func DefaultWatchServiceConfig() WatchServiceConfig {
	return WatchServiceConfig{
		SignedURLTTL: time.Hour,
		CacheTTL:     30 * time.Minute,
	}
}

// WatchService issues playback grants for ready videos.
type WatchService interface {
	// WatchVideo returns a signed playback URL for the video's media file.
	WatchVideo(ctx context.Context, videoID uuid.UUID) (WatchGrant, error)
}

type watchService struct {
	repo    repository.VideoRepository
	storage repository.ObjectStorage
	cache   cache.SignedURLCache
	sfGroup singleflight.Group
	logger  *slog.Logger

	signedURLTTL time.Duration
	cacheTTL     time.Duration
}

// NewWatchService creates a new WatchService instance.
func NewWatchService(
	repo repository.VideoRepository,
	storage repository.ObjectStorage,
	urlCache cache.SignedURLCache,
	cfg WatchServiceConfig,
	logger *slog.Logger,
) WatchService {
	if logger == nil {
		logger = slog.Default()
	}
	return &watchService{
		repo:         repo,
		storage:      storage,
		cache:        urlCache,
		logger:       logger,
		signedURLTTL: cfg.SignedURLTTL,
		cacheTTL:     cfg.CacheTTL,
	}
}

// WatchVideo returns a signed playback URL for the video's media file.
// Concurrent requests for the same object are coalesced with singleflight
// so a hot video presigns at most once per cache window.
func (s *watchService) WatchVideo(ctx context.Context, videoID uuid.UUID) (WatchGrant, error) {
	video, err := s.repo.GetByID(ctx, videoID)
	if err != nil {
		return WatchGrant{}, err
	}

	if video.Status != model.StatusReady || video.FileKey == "" {
		return WatchGrant{}, ErrVideoNotReady
	}

	// Cache and coalesce on the canonical key, not the stored reference:
	// legacy URL references and repaired keys must share one cache slot.
	key := objectkey.ResolveKey(video.FileKey)

	result, err, shared := s.sfGroup.Do(key, func() (any, error) {
		return s.grantWithCache(ctx, key, video.FileKey)
	})
	if shared {
		metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightShared).Inc()
	} else {
		metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightInitiated).Inc()
	}
	if err != nil {
		return WatchGrant{}, err
	}

	grant := result.(repository.SignedURLGrant)
	expiresIn := grant.ExpiresAt - time.Now().Unix()
	if expiresIn < 0 {
		expiresIn = 0
	}
	return WatchGrant{URL: grant.URL, ExpiresIn: expiresIn}, nil
}

// grantWithCache implements the cache-aside pattern for signed URL grants.
func (s *watchService) grantWithCache(ctx context.Context, key, ref string) (repository.SignedURLGrant, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, key)
		switch {
		case err != nil:
			metrics.SignedURLCacheTotal.WithLabelValues(metrics.CacheError).Inc()
			s.logger.Warn("signed URL cache get failed, presigning directly",
				"key", key,
				"error", err,
			)
		case cached != nil:
			metrics.SignedURLCacheTotal.WithLabelValues(metrics.CacheHit).Inc()
			return *cached, nil
		default:
			metrics.SignedURLCacheTotal.WithLabelValues(metrics.CacheMiss).Inc()
		}
	}

	grant, err := s.storage.SignedURL(ctx, ref, s.signedURLTTL)
	if err != nil {
		return repository.SignedURLGrant{}, fmt.Errorf("sign playback URL: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, grant, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache signed URL grant",
				"key", key,
				"error", err,
			)
		}
	}

	return grant, nil
}
