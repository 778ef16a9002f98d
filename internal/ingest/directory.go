package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// ScanDirectory walks root and returns every allowed image path, sorted.
// Hidden files and directories are skipped when skipHidden is set.
func ScanDirectory(ctx context.Context, root string, skipHidden bool) ([]string, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root_path is required")
	}

	var paths []string
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return paths, stats, fmt.Errorf("walk: %w", err)
	}
	sort.Strings(paths)
	return paths, stats, nil
}
