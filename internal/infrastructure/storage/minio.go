package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hszk-dev/mediavault/internal/domain/repository"
	"github.com/hszk-dev/mediavault/internal/infrastructure/metrics"
	"github.com/hszk-dev/mediavault/internal/objectkey"
)

// DefaultSignedURLTTL is used when callers pass a non-positive TTL.
const DefaultSignedURLTTL = time.Hour

// ErrInvalidRange is returned by GetRange when pre-parsed bounds do not fit
// the object. Range parsing itself lives in the stream package; this is the
// last-line check before a ranged storage call.
var ErrInvalidRange = errors.New("byte range out of bounds")

// objectReader abstracts minio.Object for testability.
// *minio.Object satisfies this interface.
type objectReader interface {
	io.ReadCloser
	Stat() (minio.ObjectInfo, error)
}

// minioClient defines the interface for MinIO operations.
// This abstraction allows for easier unit testing with mocks.
type minioClient interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (objectReader, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error)
	BucketExists(ctx context.Context, bucketName string) (bool, error)
}

// minioClientAdapter wraps *minio.Client to implement minioClient.
// Needed because *minio.Client.GetObject returns *minio.Object,
// but our interface returns objectReader for testability.
type minioClientAdapter struct {
	client *minio.Client
}

func (a *minioClientAdapter) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	return a.client.PutObject(ctx, bucketName, objectName, reader, objectSize, opts)
}

func (a *minioClientAdapter) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (objectReader, error) {
	return a.client.GetObject(ctx, bucketName, objectName, opts)
}

func (a *minioClientAdapter) RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error {
	return a.client.RemoveObject(ctx, bucketName, objectName, opts)
}

func (a *minioClientAdapter) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	return a.client.StatObject(ctx, bucketName, objectName, opts)
}

func (a *minioClientAdapter) PresignedGetObject(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error) {
	return a.client.PresignedGetObject(ctx, bucketName, objectName, expiry, reqParams)
}

func (a *minioClientAdapter) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	return a.client.BucketExists(ctx, bucketName)
}

// StoreConfig holds configuration for the object store. The store is
// considered configured only when AccountID, AccessKeyID and SecretAccessKey
// are all present; methods surface ErrStorageUnavailable otherwise without
// touching the network.
type StoreConfig struct {
	AccountID        string
	AccessKeyID      string
	SecretAccessKey  string
	Bucket           string
	EndpointTemplate string // e.g. "%s.r2.cloudflarestorage.com", filled with AccountID
	PublicBaseURL    string // optional; required only for PublicURL
	UseSSL           bool
}

// Configured reports whether all mandatory credentials are present.
func (c StoreConfig) Configured() bool {
	return c.AccountID != "" && c.AccessKeyID != "" && c.SecretAccessKey != ""
}

// Endpoint renders the storage endpoint host from the template.
func (c StoreConfig) Endpoint() string {
	tmpl := c.EndpointTemplate
	if tmpl == "" {
		tmpl = "%s.r2.cloudflarestorage.com"
	}
	return fmt.Sprintf(tmpl, c.AccountID)
}

// Store implements repository.ObjectStorage on an S3-compatible endpoint.
// The underlying client is created once and is safe for concurrent use.
type Store struct {
	client        minioClient
	bucket        string
	publicBaseURL string
	configured    bool
	logger        *slog.Logger
}

// Compile-time verification that Store implements repository.ObjectStorage.
var _ repository.ObjectStorage = (*Store)(nil)

// NewStore creates the object store. Missing credentials do not fail
// construction: the store is created unconfigured and every operation
// surfaces ErrStorageUnavailable at call time, which keeps deployments
// without media storage bootable for non-media traffic.
func NewStore(cfg StoreConfig, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		bucket:        cfg.Bucket,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		configured:    cfg.Configured(),
		logger:        logger,
	}
	if !s.configured {
		logger.Warn("object storage credentials missing, store is disabled")
		return s, nil
	}

	client, err := minio.New(cfg.Endpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	s.client = &minioClientAdapter{client: client}
	return s, nil
}

// newStoreWithClient creates a Store with a given minioClient implementation.
// This is used for dependency injection in tests.
func newStoreWithClient(client minioClient, bucket, publicBaseURL string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		client:        client,
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		configured:    client != nil,
		logger:        logger,
	}
}

// Ping verifies the storage connection by checking bucket access.
func (s *Store) Ping(ctx context.Context) error {
	if !s.configured {
		return repository.ErrStorageUnavailable
	}
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("ping storage: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", repository.ErrBucketNotFound, s.bucket)
	}
	return nil
}

// Put stores content under a freshly generated key and returns that key.
func (s *Store) Put(ctx context.Context, ns objectkey.Namespace, originalFilename string, r io.Reader, size int64, contentType string) (objectkey.ObjectKey, error) {
	if !s.configured {
		return objectkey.ObjectKey{}, repository.ErrStorageUnavailable
	}

	key := objectkey.BuildKey(ns, objectkey.GenerateFilename(originalFilename, ""))

	_, err := s.client.PutObject(ctx, s.bucket, key.String(), r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		metrics.StorageOperationsTotal.WithLabelValues(metrics.StorageOpPut, metrics.StatusError).Inc()
		return objectkey.ObjectKey{}, fmt.Errorf("put object: %w", err)
	}

	metrics.StorageOperationsTotal.WithLabelValues(metrics.StorageOpPut, metrics.StatusSuccess).Inc()
	return key, nil
}

// Delete removes the referenced object, best-effort. Callers routinely call
// it speculatively when swapping media, so a missing object is not an error
// and backend failures only get logged.
func (s *Store) Delete(ctx context.Context, ref string) {
	if !s.configured {
		s.logger.Warn("delete skipped, storage not configured", slog.String("ref", ref))
		return
	}

	key := objectkey.ResolveKey(ref)
	err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	if err != nil && minio.ToErrorResponse(err).Code != "NoSuchKey" {
		metrics.StorageOperationsTotal.WithLabelValues(metrics.StorageOpDelete, metrics.StatusError).Inc()
		s.logger.Warn("object delete failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return
	}
	metrics.StorageOperationsTotal.WithLabelValues(metrics.StorageOpDelete, metrics.StatusSuccess).Inc()
}

// Exists reports whether the referenced object is present in the bucket.
func (s *Store) Exists(ctx context.Context, ref string) bool {
	if !s.configured {
		return false
	}

	key := objectkey.ResolveKey(ref)
	_, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code != "NoSuchKey" {
			s.logger.Warn("object existence check failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
		return false
	}
	return true
}

// Stat fetches object metadata.
func (s *Store) Stat(ctx context.Context, ref string) (repository.ObjectInfo, error) {
	if !s.configured {
		return repository.ObjectInfo{}, repository.ErrStorageUnavailable
	}

	key := objectkey.ResolveKey(ref)
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			metrics.StorageOperationsTotal.WithLabelValues(metrics.StorageOpStat, metrics.StatusNotFound).Inc()
			return repository.ObjectInfo{}, repository.ErrObjectNotFound
		}
		metrics.StorageOperationsTotal.WithLabelValues(metrics.StorageOpStat, metrics.StatusError).Inc()
		return repository.ObjectInfo{}, fmt.Errorf("stat object: %w", err)
	}

	metrics.StorageOperationsTotal.WithLabelValues(metrics.StorageOpStat, metrics.StatusSuccess).Inc()
	return repository.ObjectInfo{
		Key:          key,
		Size:         info.Size,
		ContentType:  info.ContentType,
		LastModified: info.LastModified,
	}, nil
}

// SignedURL mints a time-limited read URL for the referenced object.
func (s *Store) SignedURL(ctx context.Context, ref string, ttl time.Duration) (repository.SignedURLGrant, error) {
	if !s.configured {
		return repository.SignedURLGrant{}, repository.ErrStorageUnavailable
	}
	if ttl <= 0 {
		ttl = DefaultSignedURLTTL
	}

	key := objectkey.ResolveKey(ref)
	signed, err := s.client.PresignedGetObject(ctx, s.bucket, key, ttl, nil)
	if err != nil {
		metrics.StorageOperationsTotal.WithLabelValues(metrics.StorageOpSignedURL, metrics.StatusError).Inc()
		return repository.SignedURLGrant{}, fmt.Errorf("presign object: %w", err)
	}

	metrics.StorageOperationsTotal.WithLabelValues(metrics.StorageOpSignedURL, metrics.StatusSuccess).Inc()
	return repository.SignedURLGrant{
		URL:       signed.String(),
		ExpiresAt: time.Now().Add(ttl).Unix(),
	}, nil
}

// PublicURL builds a non-signed URL from the configured public base.
func (s *Store) PublicURL(ref string) (string, error) {
	if s.publicBaseURL == "" {
		return "", repository.ErrPublicURLUnavailable
	}
	return s.publicBaseURL + "/" + objectkey.ResolveKey(ref), nil
}

// GetRange fetches the referenced object, optionally limited to a byte range.
// Bounds are validated against the object size before the ranged read is
// issued; an out-of-bounds range never reaches the storage endpoint.
func (s *Store) GetRange(ctx context.Context, ref string, br *repository.ByteRange) (*repository.RangeRead, error) {
	if !s.configured {
		return nil, repository.ErrStorageUnavailable
	}

	info, err := s.Stat(ctx, ref)
	if err != nil {
		return nil, err
	}

	effective := repository.ByteRange{Start: 0, End: uint64(info.Size) - 1}
	if info.Size == 0 {
		effective = repository.ByteRange{}
	}
	opts := minio.GetObjectOptions{}
	if br != nil {
		if br.Start > br.End || br.End >= uint64(info.Size) {
			return nil, fmt.Errorf("%w: bytes=%d-%d against size %d", ErrInvalidRange, br.Start, br.End, info.Size)
		}
		effective = *br
		if err := opts.SetRange(int64(br.Start), int64(br.End)); err != nil {
			return nil, fmt.Errorf("set range: %w", err)
		}
	}

	key := objectkey.ResolveKey(ref)
	obj, err := s.client.GetObject(ctx, s.bucket, key, opts)
	if err != nil {
		metrics.StorageOperationsTotal.WithLabelValues(metrics.StorageOpGet, metrics.StatusError).Inc()
		return nil, fmt.Errorf("get object: %w", err)
	}

	metrics.StorageOperationsTotal.WithLabelValues(metrics.StorageOpGet, metrics.StatusSuccess).Inc()
	return &repository.RangeRead{
		Body:        obj,
		Range:       effective,
		TotalSize:   info.Size,
		ContentType: info.ContentType,
	}, nil
}
