package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/url"
	"regexp"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/hszk-dev/mediavault/internal/domain/repository"
	"github.com/hszk-dev/mediavault/internal/objectkey"
)

// mockObjectReader implements objectReader for testing.
type mockObjectReader struct {
	data   []byte
	offset int
	closed bool
}

func (m *mockObjectReader) Read(p []byte) (int, error) {
	if m.offset >= len(m.data) {
		return 0, io.EOF
	}
	n := copy(p, m.data[m.offset:])
	m.offset += n
	return n, nil
}

func (m *mockObjectReader) Close() error {
	m.closed = true
	return nil
}

func (m *mockObjectReader) Stat() (minio.ObjectInfo, error) {
	return minio.ObjectInfo{Size: int64(len(m.data))}, nil
}

// mockMinioClient implements minioClient for testing. Calls counts the
// invocations per method so tests can assert that no network call happened.
type mockMinioClient struct {
	putObjectFunc          func(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	getObjectFunc          func(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (objectReader, error)
	removeObjectFunc       func(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	statObjectFunc         func(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	presignedGetObjectFunc func(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error)

	calls map[string]int
}

func newMockMinioClient() *mockMinioClient {
	return &mockMinioClient{calls: map[string]int{}}
}

func (m *mockMinioClient) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	m.calls["PutObject"]++
	if m.putObjectFunc != nil {
		return m.putObjectFunc(ctx, bucketName, objectName, reader, objectSize, opts)
	}
	return minio.UploadInfo{}, nil
}

func (m *mockMinioClient) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (objectReader, error) {
	m.calls["GetObject"]++
	if m.getObjectFunc != nil {
		return m.getObjectFunc(ctx, bucketName, objectName, opts)
	}
	return &mockObjectReader{}, nil
}

func (m *mockMinioClient) RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error {
	m.calls["RemoveObject"]++
	if m.removeObjectFunc != nil {
		return m.removeObjectFunc(ctx, bucketName, objectName, opts)
	}
	return nil
}

func (m *mockMinioClient) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	m.calls["StatObject"]++
	if m.statObjectFunc != nil {
		return m.statObjectFunc(ctx, bucketName, objectName, opts)
	}
	return minio.ObjectInfo{}, nil
}

func (m *mockMinioClient) PresignedGetObject(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error) {
	m.calls["PresignedGetObject"]++
	if m.presignedGetObjectFunc != nil {
		return m.presignedGetObjectFunc(ctx, bucketName, objectName, expiry, reqParams)
	}
	return url.Parse("https://storage.example.com/" + objectName + "?signed=1")
}

func (m *mockMinioClient) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	m.calls["BucketExists"]++
	return true, nil
}

func noSuchKey() error {
	return minio.ErrorResponse{Code: "NoSuchKey", Message: "The specified key does not exist."}
}

func TestStoreConfigured(t *testing.T) {
	tests := []struct {
		name string
		cfg  StoreConfig
		want bool
	}{
		{
			name: "all credentials present",
			cfg:  StoreConfig{AccountID: "acct", AccessKeyID: "ak", SecretAccessKey: "sk"},
			want: true,
		},
		{"missing account", StoreConfig{AccessKeyID: "ak", SecretAccessKey: "sk"}, false},
		{"missing access key", StoreConfig{AccountID: "acct", SecretAccessKey: "sk"}, false},
		{"missing secret", StoreConfig{AccountID: "acct", AccessKeyID: "ak"}, false},
		{"empty", StoreConfig{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.Configured(); got != tt.want {
				t.Errorf("Configured() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStoreConfigEndpoint(t *testing.T) {
	cfg := StoreConfig{AccountID: "acct123"}
	if got := cfg.Endpoint(); got != "acct123.r2.cloudflarestorage.com" {
		t.Errorf("Endpoint() = %q", got)
	}

	cfg.EndpointTemplate = "%s.storage.example.com"
	if got := cfg.Endpoint(); got != "acct123.storage.example.com" {
		t.Errorf("Endpoint() with template = %q", got)
	}
}

func TestUnconfiguredStoreFailsBeforeNetwork(t *testing.T) {
	store, err := NewStore(StoreConfig{Bucket: "media"}, nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	ctx := context.Background()

	if _, err := store.Put(ctx, objectkey.NamespaceVideos, "a.mp4", bytes.NewReader(nil), 0, "video/mp4"); !errors.Is(err, repository.ErrStorageUnavailable) {
		t.Errorf("Put err = %v, want ErrStorageUnavailable", err)
	}
	if _, err := store.SignedURL(ctx, "videos/a.mp4", time.Hour); !errors.Is(err, repository.ErrStorageUnavailable) {
		t.Errorf("SignedURL err = %v, want ErrStorageUnavailable", err)
	}
	if _, err := store.Stat(ctx, "videos/a.mp4"); !errors.Is(err, repository.ErrStorageUnavailable) {
		t.Errorf("Stat err = %v, want ErrStorageUnavailable", err)
	}
	if _, err := store.GetRange(ctx, "videos/a.mp4", nil); !errors.Is(err, repository.ErrStorageUnavailable) {
		t.Errorf("GetRange err = %v, want ErrStorageUnavailable", err)
	}
	if store.Exists(ctx, "videos/a.mp4") {
		t.Error("Exists on unconfigured store should be false")
	}
	// Must not panic.
	store.Delete(ctx, "videos/a.mp4")
}

func TestStorePut(t *testing.T) {
	mock := newMockMinioClient()
	var gotKey string
	mock.putObjectFunc = func(ctx context.Context, bucket, objectName string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
		gotKey = objectName
		if opts.ContentType != "video/mp4" {
			t.Errorf("content type = %q", opts.ContentType)
		}
		return minio.UploadInfo{Key: objectName}, nil
	}
	store := newStoreWithClient(mock, "media", "", nil)

	key, err := store.Put(context.Background(), objectkey.NamespaceVideos, "clip.mov", bytes.NewReader([]byte("data")), 4, "video/mp4")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	keyPattern := regexp.MustCompile(`^videos/[0-9]+-[0-9]+\.mov$`)
	if !keyPattern.MatchString(key.String()) {
		t.Errorf("key %q does not match expected shape", key)
	}
	if gotKey != key.String() {
		t.Errorf("stored under %q, returned %q", gotKey, key)
	}
}

func TestStoreDeleteIsIdempotent(t *testing.T) {
	t.Run("missing object is swallowed", func(t *testing.T) {
		mock := newMockMinioClient()
		mock.removeObjectFunc = func(ctx context.Context, bucket, objectName string, opts minio.RemoveObjectOptions) error {
			return noSuchKey()
		}
		store := newStoreWithClient(mock, "media", "", nil)

		store.Delete(context.Background(), "videos/gone.mp4")

		if mock.calls["RemoveObject"] != 1 {
			t.Errorf("RemoveObject calls = %d", mock.calls["RemoveObject"])
		}
	})

	t.Run("backend error is swallowed", func(t *testing.T) {
		mock := newMockMinioClient()
		mock.removeObjectFunc = func(ctx context.Context, bucket, objectName string, opts minio.RemoveObjectOptions) error {
			return errors.New("connection refused")
		}
		store := newStoreWithClient(mock, "media", "", nil)

		store.Delete(context.Background(), "videos/a.mp4")
	})

	t.Run("reference is resolved before delete", func(t *testing.T) {
		mock := newMockMinioClient()
		var gotKey string
		mock.removeObjectFunc = func(ctx context.Context, bucket, objectName string, opts minio.RemoveObjectOptions) error {
			gotKey = objectName
			return nil
		}
		store := newStoreWithClient(mock, "media", "", nil)

		store.Delete(context.Background(), "https://host/bucket/videos/a.mp4?sig=x")

		if gotKey != "videos/a.mp4" {
			t.Errorf("deleted key = %q, want videos/a.mp4", gotKey)
		}
	})
}

func TestStoreExists(t *testing.T) {
	tests := []struct {
		name    string
		statErr error
		want    bool
	}{
		{"present", nil, true},
		{"missing", noSuchKey(), false},
		{"backend error", errors.New("timeout"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMockMinioClient()
			mock.statObjectFunc = func(ctx context.Context, bucket, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
				return minio.ObjectInfo{}, tt.statErr
			}
			store := newStoreWithClient(mock, "media", "", nil)

			if got := store.Exists(context.Background(), "videos/a.mp4"); got != tt.want {
				t.Errorf("Exists = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStoreStat(t *testing.T) {
	t.Run("missing object", func(t *testing.T) {
		mock := newMockMinioClient()
		mock.statObjectFunc = func(ctx context.Context, bucket, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
			return minio.ObjectInfo{}, noSuchKey()
		}
		store := newStoreWithClient(mock, "media", "", nil)

		_, err := store.Stat(context.Background(), "videos/gone.mp4")
		if !errors.Is(err, repository.ErrObjectNotFound) {
			t.Errorf("err = %v, want ErrObjectNotFound", err)
		}
	})

	t.Run("metadata returned", func(t *testing.T) {
		now := time.Now()
		mock := newMockMinioClient()
		mock.statObjectFunc = func(ctx context.Context, bucket, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
			return minio.ObjectInfo{Size: 1000, ContentType: "video/mp4", LastModified: now}, nil
		}
		store := newStoreWithClient(mock, "media", "", nil)

		info, err := store.Stat(context.Background(), "video-steps/s.jpg")
		if err != nil {
			t.Fatalf("Stat: %v", err)
		}
		if info.Size != 1000 || info.ContentType != "video/mp4" {
			t.Errorf("info = %+v", info)
		}
		// The historical key repair applies on the way in.
		if info.Key != "videos/video-steps/s.jpg" {
			t.Errorf("resolved key = %q", info.Key)
		}
	})
}

func TestStoreSignedURL(t *testing.T) {
	mock := newMockMinioClient()
	var gotExpiry time.Duration
	mock.presignedGetObjectFunc = func(ctx context.Context, bucket, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error) {
		gotExpiry = expiry
		return url.Parse("https://storage.example.com/" + objectName + "?signed=1")
	}
	store := newStoreWithClient(mock, "media", "", nil)

	before := time.Now().Add(DefaultSignedURLTTL).Unix()
	grant, err := store.SignedURL(context.Background(), "videos/a.mp4", 0)
	if err != nil {
		t.Fatalf("SignedURL: %v", err)
	}

	if gotExpiry != DefaultSignedURLTTL {
		t.Errorf("expiry = %v, want default %v", gotExpiry, DefaultSignedURLTTL)
	}
	if grant.URL == "" {
		t.Error("empty grant URL")
	}
	if grant.ExpiresAt < before {
		t.Errorf("ExpiresAt = %d, want >= %d", grant.ExpiresAt, before)
	}
}

func TestStorePublicURL(t *testing.T) {
	t.Run("no public base configured", func(t *testing.T) {
		store := newStoreWithClient(newMockMinioClient(), "media", "", nil)
		if _, err := store.PublicURL("videos/a.mp4"); !errors.Is(err, repository.ErrPublicURLUnavailable) {
			t.Errorf("err = %v, want ErrPublicURLUnavailable", err)
		}
	})

	t.Run("joined with resolved key", func(t *testing.T) {
		store := newStoreWithClient(newMockMinioClient(), "media", "https://cdn.example.com/", nil)
		got, err := store.PublicURL("video-steps/s.jpg")
		if err != nil {
			t.Fatalf("PublicURL: %v", err)
		}
		if got != "https://cdn.example.com/videos/video-steps/s.jpg" {
			t.Errorf("url = %q", got)
		}
	})
}

func TestStoreGetRange(t *testing.T) {
	newStore := func(size int64) (*Store, *mockMinioClient) {
		mock := newMockMinioClient()
		mock.statObjectFunc = func(ctx context.Context, bucket, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
			return minio.ObjectInfo{Size: size, ContentType: "video/mp4"}, nil
		}
		return newStoreWithClient(mock, "media", "", nil), mock
	}

	t.Run("full object", func(t *testing.T) {
		store, _ := newStore(1000)
		rr, err := store.GetRange(context.Background(), "videos/a.mp4", nil)
		if err != nil {
			t.Fatalf("GetRange: %v", err)
		}
		defer rr.Body.Close()

		if rr.Range.Start != 0 || rr.Range.End != 999 {
			t.Errorf("range = %+v", rr.Range)
		}
		if rr.TotalSize != 1000 || rr.ContentType != "video/mp4" {
			t.Errorf("size=%d type=%q", rr.TotalSize, rr.ContentType)
		}
	})

	t.Run("partial object", func(t *testing.T) {
		store, _ := newStore(1000)
		rr, err := store.GetRange(context.Background(), "videos/a.mp4", &repository.ByteRange{Start: 0, End: 499})
		if err != nil {
			t.Fatalf("GetRange: %v", err)
		}
		defer rr.Body.Close()

		if rr.Range.Start != 0 || rr.Range.End != 499 {
			t.Errorf("range = %+v", rr.Range)
		}
		if rr.Range.Length() != 500 {
			t.Errorf("length = %d", rr.Range.Length())
		}
	})

	t.Run("out of bounds rejected before fetch", func(t *testing.T) {
		store, mock := newStore(1000)
		_, err := store.GetRange(context.Background(), "videos/a.mp4", &repository.ByteRange{Start: 1000, End: 1001})
		if !errors.Is(err, ErrInvalidRange) {
			t.Fatalf("err = %v, want ErrInvalidRange", err)
		}
		if mock.calls["GetObject"] != 0 {
			t.Errorf("GetObject calls = %d, want 0", mock.calls["GetObject"])
		}
	})

	t.Run("inverted range rejected", func(t *testing.T) {
		store, mock := newStore(1000)
		_, err := store.GetRange(context.Background(), "videos/a.mp4", &repository.ByteRange{Start: 500, End: 100})
		if !errors.Is(err, ErrInvalidRange) {
			t.Fatalf("err = %v, want ErrInvalidRange", err)
		}
		if mock.calls["GetObject"] != 0 {
			t.Errorf("GetObject calls = %d, want 0", mock.calls["GetObject"])
		}
	})

	t.Run("missing object", func(t *testing.T) {
		mock := newMockMinioClient()
		mock.statObjectFunc = func(ctx context.Context, bucket, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
			return minio.ObjectInfo{}, noSuchKey()
		}
		store := newStoreWithClient(mock, "media", "", nil)

		_, err := store.GetRange(context.Background(), "videos/gone.mp4", nil)
		if !errors.Is(err, repository.ErrObjectNotFound) {
			t.Errorf("err = %v, want ErrObjectNotFound", err)
		}
	})
}
