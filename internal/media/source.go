package media

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/photomapper/constants"
)

var errNoData = errors.New("source file has no data")

// SourceFile is a user-selected file as reported by a picker surface.
// Type and Size are what the surface declared; neither is trusted.
type SourceFile struct {
	Name    string
	Type    string
	Size    int64
	ModTime time.Time

	open func() (io.ReadCloser, error)
}

// NewSourceFile wraps in-memory bytes. Size is taken from len(data).
func NewSourceFile(name, mimeType string, data []byte, modTime time.Time) SourceFile {
	return SourceFile{
		Name:    name,
		Type:    mimeType,
		Size:    int64(len(data)),
		ModTime: modTime,
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// NewLazySourceFile describes a file whose bytes are fetched on demand.
// The declared size is kept as given even if the bytes disagree.
func NewLazySourceFile(name, mimeType string, size int64, modTime time.Time, open func() (io.ReadCloser, error)) SourceFile {
	return SourceFile{Name: name, Type: mimeType, Size: size, ModTime: modTime, open: open}
}

// SourceFileFromPath stats path and returns a lazily read SourceFile.
func SourceFileFromPath(path, mimeType string) (SourceFile, error) {
	st, err := os.Stat(path)
	if err != nil {
		return SourceFile{}, err
	}
	if st.IsDir() {
		return SourceFile{}, fmt.Errorf("%s is a directory", path)
	}
	return NewLazySourceFile(filepath.Base(path), mimeType, st.Size(), st.ModTime(), func() (io.ReadCloser, error) {
		return os.Open(path)
	}), nil
}

func (f SourceFile) Open() (io.ReadCloser, error) {
	if f.open == nil {
		return nil, errNoData
	}
	return f.open()
}

// ReadAll returns the full contents.
func (f SourceFile) ReadAll() ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Head returns up to n leading bytes. A short file is not an error.
func (f SourceFile) Head(n int) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	buf := make([]byte, n)
	read, err := io.ReadFull(rc, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf[:read], nil
}

// Ext is the lowercased extension without the dot.
func (f SourceFile) Ext() string {
	return constants.NormalizeExt(filepath.Ext(f.Name))
}

// Asset is a normalized JPEG ready for upload. The pipeline does not keep it.
type Asset struct {
	Name    string
	MIME    string
	Data    []byte
	Width   int
	Height  int
	ModTime time.Time
}

func (a *Asset) Size() int64 {
	return int64(len(a.Data))
}

// AsSource lets an asset flow into the next stage as a SourceFile.
func (a *Asset) AsSource() SourceFile {
	return NewSourceFile(a.Name, a.MIME, a.Data, a.ModTime)
}

// JPEGName strips the extension from name and appends ".jpg".
func JPEGName(name string) string {
	return baseName(name) + constants.JPEGExt
}

// ThumbName is JPEGName with the thumbnail suffix before the extension.
func ThumbName(name string) string {
	return baseName(name) + constants.ThumbSuffix + constants.JPEGExt
}

func baseName(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "image"
	}
	return base
}
