package repository

import (
	"context"
	"io"
	"time"

	"github.com/hszk-dev/mediavault/internal/objectkey"
)

// ByteRange is an inclusive byte interval within an object.
// Invariant: Start <= End < total object size; validated before any
// storage call is issued.
type ByteRange struct {
	Start uint64
	End   uint64
}

// Length returns the number of bytes covered by the range.
func (r ByteRange) Length() uint64 {
	return r.End - r.Start + 1
}

// ObjectInfo contains metadata about a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// SignedURLGrant is a time-limited pre-authenticated read URL. Expiry is
// enforced entirely by the storage endpoint; the grant is never tracked
// after issuance.
type SignedURLGrant struct {
	URL       string
	ExpiresAt int64 // unix seconds
}

// RangeRead is the result of a ranged object fetch. Body is the live byte
// stream for exactly Range; the caller owns closing it.
type RangeRead struct {
	Body        io.ReadCloser
	Range       ByteRange
	TotalSize   int64
	ContentType string
}

// ObjectStorage defines the interface for object storage operations.
// Implementations resolve stored references through objectkey.Resolve before
// touching the storage endpoint, and check credential configuration before
// any network call.
type ObjectStorage interface {
	// Put stores the content under a freshly generated key in the given
	// namespace and returns the canonical key. originalFilename only
	// contributes its extension to the generated object name.
	Put(ctx context.Context, ns objectkey.Namespace, originalFilename string, r io.Reader, size int64, contentType string) (objectkey.ObjectKey, error)

	// Delete removes the object a stored reference points at. Deletion is
	// idempotent and best-effort: a missing object and any backend error
	// are logged and swallowed so cleanup never blocks the caller's
	// primary operation.
	Delete(ctx context.Context, ref string)

	// Exists reports whether the referenced object is present. Backend
	// errors are logged and reported as absence, never surfaced.
	Exists(ctx context.Context, ref string) bool

	// Stat fetches object metadata. Returns ErrObjectNotFound when absent.
	Stat(ctx context.Context, ref string) (ObjectInfo, error)

	// SignedURL mints a time-limited read URL for the referenced object.
	// A non-positive ttl falls back to the default of one hour.
	SignedURL(ctx context.Context, ref string, ttl time.Duration) (SignedURLGrant, error)

	// PublicURL builds a non-signed URL from the configured public base.
	// Returns ErrPublicURLUnavailable when no public base is configured.
	PublicURL(ref string) (string, error)

	// GetRange fetches the referenced object, optionally limited to a
	// pre-validated byte range. A nil br fetches the full object.
	GetRange(ctx context.Context, ref string, br *ByteRange) (*RangeRead, error)
}
