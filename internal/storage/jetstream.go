package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/joseph-ayodele/photomapper/internal/common"
)

// JetStreamStore implements ObjectStore using a NATS JetStream object store bucket.
type JetStreamStore struct {
	conn       *nats.Conn
	js         jetstream.JetStream
	store      jetstream.ObjectStore
	bucketName string
	logger     *slog.Logger
}

// NewJetStreamStore connects to NATS and binds (or creates) the bucket.
func NewJetStreamStore(ctx context.Context, natsURL, bucketName string, logger *slog.Logger) (*JetStreamStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := nats.Connect(natsURL, nats.Name("photomapper"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}
	s := &JetStreamStore{conn: conn, js: js, bucketName: bucketName, logger: logger}
	if err := s.init(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	logger.Info("object store ready", "backend", "jetstream", "bucket", bucketName, "url", natsURL)
	return s, nil
}

func (s *JetStreamStore) init(ctx context.Context) error {
	store, err := s.js.ObjectStore(ctx, s.bucketName)
	if err == nil {
		s.store = store
		return nil
	}
	store, err = s.js.CreateObjectStore(ctx, jetstream.ObjectStoreConfig{
		Bucket:      s.bucketName,
		Description: "Normalized photos and thumbnails",
	})
	if err != nil {
		return fmt.Errorf("failed to create object store bucket: %w", err)
	}
	s.store = store
	return nil
}

func (s *JetStreamStore) Put(ctx context.Context, name string, data []byte, contentType string) (*ObjectInfo, error) {
	meta := jetstream.ObjectMeta{
		Name:    name,
		Headers: nats.Header{"Content-Type": []string{contentType}},
	}
	info, err := s.store.Put(ctx, meta, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to store object: %w", err)
	}
	return &ObjectInfo{Name: info.Name, Size: info.Size, ContentType: contentType, ModTime: info.ModTime}, nil
}

func (s *JetStreamStore) Get(ctx context.Context, name string) ([]byte, *ObjectInfo, error) {
	result, err := s.store.Get(ctx, name)
	if err != nil {
		return nil, nil, notFound(name, err)
	}
	defer result.Close()

	data, err := io.ReadAll(result)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read object data: %w", err)
	}
	info, err := result.Info()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get object info: %w", err)
	}
	return data, fromJetStream(info), nil
}

func (s *JetStreamStore) Delete(ctx context.Context, name string) error {
	if err := s.store.Delete(ctx, name); err != nil {
		return notFound(name, err)
	}
	return nil
}

func (s *JetStreamStore) List(ctx context.Context) ([]*ObjectInfo, error) {
	infos, err := s.store.List(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoObjectsFound) {
			return []*ObjectInfo{}, nil
		}
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}
	objects := make([]*ObjectInfo, 0, len(infos))
	for _, info := range infos {
		objects = append(objects, fromJetStream(info))
	}
	return objects, nil
}

func (s *JetStreamStore) GetInfo(ctx context.Context, name string) (*ObjectInfo, error) {
	info, err := s.store.GetInfo(ctx, name)
	if err != nil {
		return nil, notFound(name, err)
	}
	return fromJetStream(info), nil
}

// IsConnected returns whether the NATS connection is active.
func (s *JetStreamStore) IsConnected() bool {
	return s.conn != nil && s.conn.IsConnected()
}

func (s *JetStreamStore) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	return nil
}

func fromJetStream(info *jetstream.ObjectInfo) *ObjectInfo {
	return &ObjectInfo{
		Name:        info.Name,
		Size:        info.Size,
		ContentType: contentType(info.Headers),
		ModTime:     info.ModTime,
	}
}

func contentType(headers nats.Header) string {
	if headers != nil {
		if ct := headers.Get("Content-Type"); ct != "" {
			return ct
		}
	}
	return "application/octet-stream"
}

func notFound(name string, err error) error {
	if errors.Is(err, jetstream.ErrObjectNotFound) {
		return fmt.Errorf("%w: object %s", common.ErrNotFound, name)
	}
	return fmt.Errorf("object %s: %w", name, err)
}
