package storage

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/photomapper/internal/common"
	"github.com/joseph-ayodele/photomapper/internal/media"
)

func TestFSStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewFSStore(t.TempDir(), nil)
	require.NoError(t, err)

	key := ObjectKey(uuid.New(), "beach.jpg")
	info, err := s.Put(ctx, key, []byte("jpeg"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, key, info.Name)
	assert.Equal(t, uint64(4), info.Size)

	data, got, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(data))
	assert.Equal(t, "image/jpeg", got.ContentType)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, key, list[0].Name)

	require.NoError(t, s.Delete(ctx, key))
	_, err = s.GetInfo(ctx, key)
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, key), common.ErrNotFound)
}

func TestFSStore_RejectsEscapingNames(t *testing.T) {
	s, err := NewFSStore(t.TempDir(), nil)
	require.NoError(t, err)
	for _, name := range []string{"", "../x.jpg", "/etc/passwd"} {
		_, err := s.Put(context.Background(), name, []byte("x"), "image/jpeg")
		assert.Error(t, err, name)
	}
}

func TestObjectKey(t *testing.T) {
	id := uuid.MustParse("0b9b0d2e-64c5-4a8f-9bd5-1f0f5b1a2c3d")
	assert.Equal(t, "photos/0b9b0d2e-64c5-4a8f-9bd5-1f0f5b1a2c3d/IMG_1-thumb.jpg", ObjectKey(id, "nested/IMG_1-thumb.jpg"))
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), common.StorageConfig{Backend: "s3"}, nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

// stallingStore never finishes a put and ignores its context.
type stallingStore struct {
	FSStore
	release chan struct{}
	puts    atomic.Int32
}

func (s *stallingStore) Put(context.Context, string, []byte, string) (*ObjectInfo, error) {
	s.puts.Add(1)
	<-s.release
	return &ObjectInfo{}, nil
}

func TestUploader_Timeout(t *testing.T) {
	store := &stallingStore{release: make(chan struct{})}
	defer close(store.release)

	u := NewUploader(store, 20*time.Millisecond, nil)
	asset := &media.Asset{Name: "a.jpg", MIME: "image/jpeg", Data: []byte("x")}

	start := time.Now()
	_, err := u.Upload(context.Background(), "photos/a.jpg", asset)
	assert.ErrorIs(t, err, common.ErrUploadTimeout)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, int32(1), store.puts.Load())
}

func TestUploader_Success(t *testing.T) {
	s, err := NewFSStore(t.TempDir(), nil)
	require.NoError(t, err)
	u := NewUploader(s, 0, nil)
	assert.Equal(t, DefaultUploadTimeout, u.timeout)

	info, err := u.Upload(context.Background(), "photos/x/a.jpg", &media.Asset{Name: "a.jpg", MIME: "image/jpeg", Data: []byte("abc")})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), info.Size)
}

func TestUploader_CallerCancel(t *testing.T) {
	store := &stallingStore{release: make(chan struct{})}
	defer close(store.release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewUploader(store, time.Minute, nil).Upload(ctx, "k", &media.Asset{Data: []byte("x")})
	assert.ErrorIs(t, err, context.Canceled)
}
