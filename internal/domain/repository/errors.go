package repository

import "errors"

var (
	// ErrVideoNotFound is returned when a video cannot be found.
	ErrVideoNotFound = errors.New("video not found")

	// ErrDuplicateVideo is returned when attempting to create a video that already exists.
	ErrDuplicateVideo = errors.New("video already exists")

	// ErrObjectNotFound is returned when a HEAD/GET targets a key that does
	// not exist in the bucket.
	ErrObjectNotFound = errors.New("object not found")

	// ErrStorageUnavailable is returned when the object store has no or
	// partial credentials configured. It is checked before any network call
	// and indicates a deployment defect, never a transient condition.
	ErrStorageUnavailable = errors.New("object storage is not configured")

	// ErrPublicURLUnavailable is returned when a public (non-signed) URL is
	// requested but no public base URL is configured.
	ErrPublicURLUnavailable = errors.New("public base URL is not configured")

	// ErrBucketNotFound is returned when the configured bucket does not exist.
	ErrBucketNotFound = errors.New("bucket not found")
)
