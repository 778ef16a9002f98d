package picker

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/photomapper/internal/common"
	"github.com/joseph-ayodele/photomapper/internal/media"
)

//go:embed manifest.schema.json
var manifestSchemaJSON []byte

// Manifest describes a selection whose declared metadata travels apart from
// the bytes, the way a mobile picker reports it.
type Manifest struct {
	Multiple bool           `json:"multiple"`
	Files    []ManifestFile `json:"files"`
}

type ManifestFile struct {
	Path     string    `json:"path"`
	Name     string    `json:"name,omitempty"`
	Type     string    `json:"type,omitempty"`
	Size     *int64    `json:"size,omitempty"`
	Modified time.Time `json:"modified,omitempty"`
}

var compileManifestSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("manifest.schema.json", bytes.NewReader(manifestSchemaJSON)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	return compiler.Compile("manifest.schema.json")
})

// LoadManifest reads a manifest file; relative paths resolve against its directory.
func LoadManifest(path string) (Selection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Selection{}, fmt.Errorf("read manifest: %w", err)
	}
	return ParseManifest(data, filepath.Dir(path))
}

// ParseManifest validates data against the manifest schema and builds a
// Selection whose file bytes are read lazily. A missing size is taken from
// the file on disk; a declared size is kept as-is even if the file disagrees.
func ParseManifest(data []byte, baseDir string) (Selection, error) {
	schema, err := compileManifestSchema()
	if err != nil {
		return Selection{}, fmt.Errorf("compile schema: %w", err)
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Selection{}, fmt.Errorf("%w: manifest is not JSON: %w", common.ErrInvalidInput, err)
	}
	if err := schema.Validate(raw); err != nil {
		return Selection{}, fmt.Errorf("%w: manifest does not match schema: %w", common.ErrInvalidInput, err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Selection{}, fmt.Errorf("%w: decode manifest: %w", common.ErrInvalidInput, err)
	}

	sel := Selection{Multiple: m.Multiple, Files: make([]media.SourceFile, 0, len(m.Files))}
	for _, mf := range m.Files {
		p := mf.Path
		if !filepath.IsAbs(p) && baseDir != "" {
			p = filepath.Join(baseDir, p)
		}
		name := mf.Name
		if name == "" {
			name = filepath.Base(p)
		}

		var size int64
		modTime := mf.Modified
		if mf.Size != nil {
			size = *mf.Size
		}
		if mf.Size == nil || modTime.IsZero() {
			if st, err := os.Stat(p); err == nil {
				if mf.Size == nil {
					size = st.Size()
				}
				if modTime.IsZero() {
					modTime = st.ModTime()
				}
			}
		}

		sel.Files = append(sel.Files, media.NewLazySourceFile(name, mf.Type, size, modTime, func() (io.ReadCloser, error) {
			return os.Open(p)
		}))
	}
	return sel, nil
}
