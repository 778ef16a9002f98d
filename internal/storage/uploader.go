package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/photomapper/internal/common"
	"github.com/joseph-ayodele/photomapper/internal/media"
)

const DefaultUploadTimeout = 30 * time.Second

// Uploader pushes assets to a store, failing any single call that outlives the timeout.
type Uploader struct {
	store   ObjectStore
	timeout time.Duration
	logger  *slog.Logger
}

func NewUploader(store ObjectStore, timeout time.Duration, logger *slog.Logger) *Uploader {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultUploadTimeout
	}
	return &Uploader{store: store, timeout: timeout, logger: logger}
}

type putResult struct {
	info *ObjectInfo
	err  error
}

// Upload stores asset under key. The timeout holds even against a store that
// ignores its context: the call returns ErrUploadTimeout and the put is abandoned.
func (u *Uploader) Upload(ctx context.Context, key string, asset *media.Asset) (*ObjectInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	start := time.Now()
	done := make(chan putResult, 1)
	go func() {
		info, err := u.store.Put(ctx, key, asset.Data, asset.MIME)
		done <- putResult{info, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			if errors.Is(r.err, context.DeadlineExceeded) {
				return nil, u.timedOut(key)
			}
			return nil, fmt.Errorf("upload %s: %w", key, r.err)
		}
		u.logger.Debug("upload ok", "key", key, "bytes", len(asset.Data), "duration_ms", time.Since(start).Milliseconds())
		return r.info, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, u.timedOut(key)
		}
		return nil, ctx.Err()
	}
}

func (u *Uploader) timedOut(key string) error {
	u.logger.Warn("upload timed out", "key", key, "timeout", u.timeout)
	return fmt.Errorf("%w: %s after %s", common.ErrUploadTimeout, key, u.timeout)
}
