package usecase

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/hszk-dev/mediavault/internal/domain/model"
	"github.com/hszk-dev/mediavault/internal/domain/repository"
	"github.com/hszk-dev/mediavault/internal/objectkey"
)

// mockVideoRepository provides a configurable mock for VideoRepository.
type mockVideoRepository struct {
	createFn             func(ctx context.Context, video *model.Video) error
	getByIDFn            func(ctx context.Context, id uuid.UUID) (*model.Video, error)
	updateFn             func(ctx context.Context, video *model.Video) error
	updateStatusFn       func(ctx context.Context, id uuid.UUID, status model.Status) error
	incrementViewCountFn func(ctx context.Context, id uuid.UUID) error
	deleteFn             func(ctx context.Context, id uuid.UUID) error
}

func (m *mockVideoRepository) Create(ctx context.Context, video *model.Video) error {
	if m.createFn != nil {
		return m.createFn(ctx, video)
	}
	return nil
}

func (m *mockVideoRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Video, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, repository.ErrVideoNotFound
}

func (m *mockVideoRepository) Update(ctx context.Context, video *model.Video) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, video)
	}
	return nil
}

func (m *mockVideoRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.Status) error {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, id, status)
	}
	return nil
}

func (m *mockVideoRepository) IncrementViewCount(ctx context.Context, id uuid.UUID) error {
	if m.incrementViewCountFn != nil {
		return m.incrementViewCountFn(ctx, id)
	}
	return nil
}

func (m *mockVideoRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

// mockObjectStorage provides a configurable mock for ObjectStorage.
type mockObjectStorage struct {
	putFn       func(ctx context.Context, ns objectkey.Namespace, originalFilename string, r io.Reader, size int64, contentType string) (objectkey.ObjectKey, error)
	deleteFn    func(ctx context.Context, ref string)
	existsFn    func(ctx context.Context, ref string) bool
	statFn      func(ctx context.Context, ref string) (repository.ObjectInfo, error)
	signedURLFn func(ctx context.Context, ref string, ttl time.Duration) (repository.SignedURLGrant, error)
	publicURLFn func(ref string) (string, error)
	getRangeFn  func(ctx context.Context, ref string, br *repository.ByteRange) (*repository.RangeRead, error)

	deleted []string
}

func (m *mockObjectStorage) Put(ctx context.Context, ns objectkey.Namespace, originalFilename string, r io.Reader, size int64, contentType string) (objectkey.ObjectKey, error) {
	if m.putFn != nil {
		return m.putFn(ctx, ns, originalFilename, r, size, contentType)
	}
	return objectkey.BuildKey(ns, "generated-"+originalFilename), nil
}

func (m *mockObjectStorage) Delete(ctx context.Context, ref string) {
	m.deleted = append(m.deleted, ref)
	if m.deleteFn != nil {
		m.deleteFn(ctx, ref)
	}
}

func (m *mockObjectStorage) Exists(ctx context.Context, ref string) bool {
	if m.existsFn != nil {
		return m.existsFn(ctx, ref)
	}
	return false
}

func (m *mockObjectStorage) Stat(ctx context.Context, ref string) (repository.ObjectInfo, error) {
	if m.statFn != nil {
		return m.statFn(ctx, ref)
	}
	return repository.ObjectInfo{}, repository.ErrObjectNotFound
}

func (m *mockObjectStorage) SignedURL(ctx context.Context, ref string, ttl time.Duration) (repository.SignedURLGrant, error) {
	if m.signedURLFn != nil {
		return m.signedURLFn(ctx, ref, ttl)
	}
	return repository.SignedURLGrant{
		URL:       "https://signed.example.com/" + ref,
		ExpiresAt: time.Now().Add(ttl).Unix(),
	}, nil
}

func (m *mockObjectStorage) PublicURL(ref string) (string, error) {
	if m.publicURLFn != nil {
		return m.publicURLFn(ref)
	}
	return "https://public.example.com/" + ref, nil
}

func (m *mockObjectStorage) GetRange(ctx context.Context, ref string, br *repository.ByteRange) (*repository.RangeRead, error) {
	if m.getRangeFn != nil {
		return m.getRangeFn(ctx, ref, br)
	}
	return nil, repository.ErrObjectNotFound
}

// mockMessageQueue provides a configurable mock for MessageQueue.
type mockMessageQueue struct {
	publishConvertTaskFn  func(ctx context.Context, task repository.ConvertTask) error
	consumeConvertTasksFn func(ctx context.Context, handler func(task repository.ConvertTask) error) error

	published []repository.ConvertTask
}

func (m *mockMessageQueue) PublishConvertTask(ctx context.Context, task repository.ConvertTask) error {
	if m.publishConvertTaskFn != nil {
		if err := m.publishConvertTaskFn(ctx, task); err != nil {
			return err
		}
	}
	m.published = append(m.published, task)
	return nil
}

func (m *mockMessageQueue) ConsumeConvertTasks(ctx context.Context, handler func(task repository.ConvertTask) error) error {
	if m.consumeConvertTasksFn != nil {
		return m.consumeConvertTasksFn(ctx, handler)
	}
	return nil
}

func (m *mockMessageQueue) Close() error {
	return nil
}

// mockConverter provides a configurable mock for transcoder.Converter.
type mockConverter struct {
	convertFn     func(ctx context.Context, input []byte, originalFilename string) ([]byte, error)
	isAvailableFn func(ctx context.Context) bool
}

func (m *mockConverter) Convert(ctx context.Context, input []byte, originalFilename string) ([]byte, error) {
	if m.convertFn != nil {
		return m.convertFn(ctx, input, originalFilename)
	}
	return []byte("converted"), nil
}

func (m *mockConverter) IsAvailable(ctx context.Context) bool {
	if m.isAvailableFn != nil {
		return m.isAvailableFn(ctx)
	}
	return true
}

// mockSignedURLCache provides a configurable in-memory SignedURLCache.
type mockSignedURLCache struct {
	getFn    func(ctx context.Context, key string) (*repository.SignedURLGrant, error)
	setFn    func(ctx context.Context, key string, grant repository.SignedURLGrant, ttl time.Duration) error
	deleteFn func(ctx context.Context, key string) error

	store map[string]repository.SignedURLGrant
}

func (m *mockSignedURLCache) Get(ctx context.Context, key string) (*repository.SignedURLGrant, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	if grant, ok := m.store[key]; ok {
		return &grant, nil
	}
	return nil, nil
}

func (m *mockSignedURLCache) Set(ctx context.Context, key string, grant repository.SignedURLGrant, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, grant, ttl)
	}
	if m.store == nil {
		m.store = make(map[string]repository.SignedURLGrant)
	}
	m.store[key] = grant
	return nil
}

func (m *mockSignedURLCache) Delete(ctx context.Context, key string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, key)
	}
	delete(m.store, key)
	return nil
}
