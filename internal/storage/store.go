package storage

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/photomapper/internal/common"
)

// ObjectStore is the blob side of the hosted backend.
type ObjectStore interface {
	Put(ctx context.Context, name string, data []byte, contentType string) (*ObjectInfo, error)
	Get(ctx context.Context, name string) ([]byte, *ObjectInfo, error)
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]*ObjectInfo, error)
	GetInfo(ctx context.Context, name string) (*ObjectInfo, error)
	Close() error
}

// ObjectInfo represents metadata about a stored object.
type ObjectInfo struct {
	Name        string
	Size        uint64
	ContentType string
	ModTime     time.Time
}

// ObjectKey places every artifact of one photo under a common prefix.
func ObjectKey(photoID uuid.UUID, fileName string) string {
	return path.Join("photos", photoID.String(), path.Base(fileName))
}

func unsafeKey(name string) error {
	return fmt.Errorf("invalid object name %q", name)
}

// Open builds the configured backend.
func Open(ctx context.Context, cfg common.StorageConfig, logger *slog.Logger) (ObjectStore, error) {
	switch cfg.Backend {
	case "", "fs":
		return NewFSStore(cfg.Dir, logger)
	case "jetstream":
		return NewJetStreamStore(ctx, cfg.NATSURL, cfg.Bucket, logger)
	default:
		return nil, fmt.Errorf("%w: unknown storage backend %q", common.ErrInvalidInput, cfg.Backend)
	}
}
