package cache

import (
	"context"
	"time"

	"github.com/hszk-dev/mediavault/internal/domain/repository"
)

// SignedURLCache caches issued signed-URL grants per canonical object key so
// hot objects don't presign on every watch request. Implementations must use
// TTLs safely below the grant expiry: serving a cached grant that the storage
// endpoint already rejects is worse than a cache miss.
type SignedURLCache interface {
	// Get retrieves a cached grant for the canonical key.
	// Returns nil, nil on cache miss.
	Get(ctx context.Context, key string) (*repository.SignedURLGrant, error)

	// Set stores a grant with the specified TTL.
	Set(ctx context.Context, key string, grant repository.SignedURLGrant, ttl time.Duration) error

	// Delete drops the cached grant for a key, e.g. when the slot's media
	// is replaced. Returns nil if the key was not cached.
	Delete(ctx context.Context, key string) error
}
