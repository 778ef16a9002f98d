package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/photomapper/constants"
	"github.com/joseph-ayodele/photomapper/internal/common"
)

// FSStore keeps objects as plain files under a root directory.
// Content type is derived from the extension on read.
type FSStore struct {
	root   string
	logger *slog.Logger
}

func NewFSStore(root string, logger *slog.Logger) (*FSStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("%w: storage dir is required", common.ErrInvalidInput)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FSStore{root: abs, logger: logger}, nil
}

func (s *FSStore) path(name string) (string, error) {
	clean := filepath.FromSlash(name)
	if name == "" || !filepath.IsLocal(clean) {
		return "", unsafeKey(name)
	}
	return filepath.Join(s.root, clean), nil
}

func (s *FSStore) Put(ctx context.Context, name string, data []byte, contentType string) (*ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create object dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("failed to store object: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to store object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to store object: %w", err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return nil, fmt.Errorf("failed to store object: %w", err)
	}

	s.logger.Debug("object stored", "name", name, "bytes", len(data))
	info, err := s.GetInfo(ctx, name)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		info.ContentType = contentType
	}
	return info, nil
}

func (s *FSStore) Get(ctx context.Context, name string) ([]byte, *ObjectInfo, error) {
	info, err := s.GetInfo(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	p, _ := s.path(name)
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read object data: %w", err)
	}
	return data, info, nil
}

func (s *FSStore) Delete(ctx context.Context, name string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: object %s", common.ErrNotFound, name)
		}
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

func (s *FSStore) List(ctx context.Context) ([]*ObjectInfo, error) {
	objects := []*ObjectInfo{}
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".upload-") {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		st, err := d.Info()
		if err != nil {
			return err
		}
		objects = append(objects, infoFromStat(filepath.ToSlash(rel), st))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}
	return objects, nil
}

func (s *FSStore) GetInfo(ctx context.Context, name string) (*ObjectInfo, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}
	st, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: object %s", common.ErrNotFound, name)
		}
		return nil, fmt.Errorf("failed to get object info: %w", err)
	}
	return infoFromStat(name, st), nil
}

func (s *FSStore) Close() error { return nil }

func infoFromStat(name string, st fs.FileInfo) *ObjectInfo {
	ct := constants.MimeForExt(filepath.Ext(name))
	if ct == "" {
		ct = "application/octet-stream"
	}
	return &ObjectInfo{
		Name:        name,
		Size:        uint64(st.Size()),
		ContentType: ct,
		ModTime:     st.ModTime(),
	}
}
