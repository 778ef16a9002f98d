package ingest

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/photomapper/internal/media"
	"github.com/joseph-ayodele/photomapper/internal/picker"
)

// DirStats summarizes a directory scan.
type DirStats struct {
	Scanned uint32
	Matched uint32
	Failed  uint32
}

// SelectionFromPaths turns files on disk into a picker selection. Declared
// type is left empty, as a drop folder carries none; size and mtime come from
// stat so a file still being written trips the picker's minimum-size gate.
func SelectionFromPaths(paths []string) picker.Selection {
	sel := picker.Selection{Multiple: true, Files: make([]media.SourceFile, 0, len(paths))}
	for _, p := range paths {
		f, err := media.SourceFileFromPath(p, "")
		if err != nil {
			f = media.NewLazySourceFile(filepath.Base(p), "", 0, time.Time{}, opener(p))
		}
		sel.Files = append(sel.Files, f)
	}
	return sel
}

func opener(path string) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) { return os.Open(path) }
}
