package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
}

func TestScanDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.HEIC"), 10)
	writeFile(t, filepath.Join(root, "a.jpg"), 10)
	writeFile(t, filepath.Join(root, "notes.txt"), 10)
	writeFile(t, filepath.Join(root, ".hidden", "c.png"), 10)
	writeFile(t, filepath.Join(root, "trip", "d.webp"), 10)

	paths, stats, err := ScanDirectory(context.Background(), root, true)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a.jpg"),
		filepath.Join(root, "b.HEIC"),
		filepath.Join(root, "trip", "d.webp"),
	}, paths)
	assert.Equal(t, uint32(3), stats.Matched)

	paths, _, err = ScanDirectory(context.Background(), root, false)
	require.NoError(t, err)
	assert.Len(t, paths, 4)

	_, _, err = ScanDirectory(context.Background(), " ", false)
	assert.Error(t, err)
}

func TestSelectionFromPaths(t *testing.T) {
	root := t.TempDir()
	full := filepath.Join(root, "IMG_1.jpg")
	writeFile(t, full, 20_000)

	sel := SelectionFromPaths([]string{full, filepath.Join(root, "vanished.jpg")})
	assert.True(t, sel.Multiple)
	require.Len(t, sel.Files, 2)
	assert.Equal(t, "IMG_1.jpg", sel.Files[0].Name)
	assert.Equal(t, "", sel.Files[0].Type)
	assert.Equal(t, int64(20_000), sel.Files[0].Size)
	assert.Zero(t, sel.Files[1].Size)

	data, err := sel.Files[0].ReadAll()
	require.NoError(t, err)
	assert.Len(t, data, 20_000)
}

func TestStartWatcher_InitialScanAndBurst(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "existing.jpg"), 10)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	batches, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{root}, InitialScan: true, Debounce: 100 * time.Millisecond}, nil)
	require.NoError(t, err)

	select {
	case b := <-batches:
		assert.Equal(t, []string{filepath.Join(root, "existing.jpg")}, b)
	case <-time.After(2 * time.Second):
		t.Fatal("no initial batch")
	}

	writeFile(t, filepath.Join(root, "one.jpg"), 10)
	writeFile(t, filepath.Join(root, "two.heic"), 10)
	writeFile(t, filepath.Join(root, "ignored.txt"), 10)

	select {
	case b := <-batches:
		assert.Equal(t, []string{filepath.Join(root, "one.jpg"), filepath.Join(root, "two.heic")}, b)
	case <-time.After(5 * time.Second):
		t.Fatal("no burst batch")
	}

	cancel()
	for range batches {
	}
}

func TestStartWatcher_NoRoots(t *testing.T) {
	_, _, err := StartWatcher(context.Background(), WatchConfig{}, nil)
	assert.Error(t, err)
}
