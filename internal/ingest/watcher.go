package ingest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
)

type WatchConfig struct {
	Roots       []string      // directories to watch (recursive)
	InitialScan bool          // if true, walk roots and emit existing files as the first batch
	Debounce    time.Duration // a burst of events ends after this much quiet
}

// StartWatcher emits one sorted []string per burst of file activity under the
// roots. A burst is what a camera sync or a multi-file copy produces; each one
// becomes one selection downstream.
func StartWatcher(ctx context.Context, cfg WatchConfig, logger *slog.Logger) (<-chan []string, <-chan error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Roots) == 0 {
		logger.Error("watcher start failed: no roots provided")
		return nil, nil, errors.New("no roots provided")
	}
	batchCh := make(chan []string, 16)
	errCh := make(chan error, 1)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("failed to create fsnotify watcher", "error", err)
		return nil, nil, err
	}

	var initial []string
	addDir := func(root string) error {
		return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				return w.Add(path)
			}
			if cfg.InitialScan && allowedPath(path) {
				initial = append(initial, path)
			}
			return nil
		})
	}
	for _, r := range cfg.Roots {
		if err := addDir(r); err != nil {
			logger.Error("failed to add root directory", "root", r, "error", err)
			_ = w.Close()
			return nil, nil, err
		}
	}
	if len(initial) > 0 {
		sort.Strings(initial)
		batchCh <- initial
	}
	logger.Info("watching drop folders", "roots", cfg.Roots, "initial", len(initial), "debounce", cfg.Debounce)

	go func() {
		defer close(errCh)
		defer close(batchCh)
		defer func() {
			if err := w.Close(); err != nil {
				logger.Warn("failed to close watcher", "error", err)
			}
		}()

		pending := map[string]struct{}{}
		var timer *time.Timer
		var fire <-chan time.Time

		flush := func() {
			if len(pending) == 0 {
				return
			}
			batch := make([]string, 0, len(pending))
			for p := range pending {
				// renamed away or deleted during the burst
				if _, err := os.Stat(p); err == nil {
					batch = append(batch, p)
				}
			}
			clear(pending)
			if len(batch) == 0 {
				return
			}
			sort.Strings(batch)
			select {
			case batchCh <- batch:
			case <-ctx.Done():
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if e.Op&fsnotify.Create == fsnotify.Create {
					if st, err := os.Stat(e.Name); err == nil && st.IsDir() {
						if err := w.Add(e.Name); err != nil {
							logger.Warn("failed to add new directory to watcher", "path", e.Name, "error", err)
						}
						continue
					}
				}
				if !allowedPath(e.Name) || e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
					continue
				}
				pending[e.Name] = struct{}{}
				if cfg.Debounce <= 0 {
					flush()
					continue
				}
				if timer == nil {
					timer = time.NewTimer(cfg.Debounce)
				} else {
					timer.Reset(cfg.Debounce)
				}
				fire = timer.C
			case <-fire:
				fire = nil
				flush()
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("watcher error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return batchCh, errCh, nil
}
