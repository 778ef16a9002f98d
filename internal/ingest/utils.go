package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/photomapper/constants"
)

// AllowedExt checks if a file extension is in the drop-folder set.
func AllowedExt(ext string) bool {
	return constants.IsAllowedExt(ext)
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".")
}

func allowedPath(path string) bool {
	return !IsHidden(path) && AllowedExt(filepath.Ext(path))
}
