package media

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joseph-ayodele/photomapper/constants"
	"github.com/joseph-ayodele/photomapper/internal/common"
)

// DefaultHEICQuality is the JPEG quality used when converting HEIC/HEIF.
const DefaultHEICQuality = 0.9

// Decoder turns HEIC/HEIF bytes into JPEG bytes at the given quality in (0,1].
type Decoder interface {
	DecodeToJPEG(ctx context.Context, data []byte, quality float64) ([]byte, error)
}

// DecoderFunc adapts a function to Decoder.
type DecoderFunc func(ctx context.Context, data []byte, quality float64) ([]byte, error)

func (f DecoderFunc) DecodeToJPEG(ctx context.Context, data []byte, quality float64) ([]byte, error) {
	return f(ctx, data, quality)
}

// CommandDecoder shells out to heif-convert, magick or sips.
// When cacheDir is set, outputs are kept at {cacheDir}/{sha256}-q{quality}.jpg and reused.
type CommandDecoder struct {
	tool     string
	runner   Runner
	cacheDir string
	logger   *slog.Logger
}

func NewCommandDecoder(tool, cacheDir string, logger *slog.Logger) *CommandDecoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandDecoder{
		tool:     tool,
		runner:   ExecRunner{Logger: logger},
		cacheDir: cacheDir,
		logger:   logger,
	}
}

// WithRunner swaps the command runner (tests).
func (d *CommandDecoder) WithRunner(r Runner) *CommandDecoder {
	d.runner = r
	return d
}

func (d *CommandDecoder) DecodeToJPEG(ctx context.Context, data []byte, quality float64) ([]byte, error) {
	q := qualityPercent(quality, DefaultHEICQuality)

	var cached string
	if d.cacheDir != "" {
		sum := sha256.Sum256(data)
		cached = filepath.Join(d.cacheDir, hex.EncodeToString(sum[:])+"-q"+strconv.Itoa(q)+".jpg")
		if out, err := os.ReadFile(cached); err == nil && isJPEG(out) {
			d.logger.Debug("using cached heic->jpeg", "cache", cached)
			return out, nil
		}
	}

	tmpDir, err := os.MkdirTemp("", "pm-heic-*")
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	in := filepath.Join(tmpDir, "source.heic")
	out := filepath.Join(tmpDir, "converted.jpg")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, err
	}

	var args []string
	switch d.tool {
	case "heif-convert":
		args = []string{"-q", strconv.Itoa(q), in, out}
	case "magick":
		args = []string{in, "-quality", strconv.Itoa(q), out}
	case "sips":
		args = []string{"-s", "format", "jpeg", "-s", "formatOptions", strconv.Itoa(q), in, "--out", out}
	default:
		return nil, fmt.Errorf("HEIC not supported: converter must be one of: heif-convert | magick | sips (got %q)", d.tool)
	}
	if _, errb, err := d.runner.Run(ctx, d.tool, args...); err != nil {
		return nil, fmt.Errorf("%s failed: %w: %s", d.tool, err, truncate(string(errb), 512))
	}

	jpg, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("HEIC conversion produced no output: %w", err)
	}

	if cached != "" {
		d.persist(cached, jpg)
	}
	return jpg, nil
}

// persist writes through a temp file so concurrent readers never see a partial JPEG.
func (d *CommandDecoder) persist(path string, data []byte) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		d.logger.Warn("heic cache dir unavailable", "dir", filepath.Dir(path), "error", err)
		return
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".heic-*")
	if err != nil {
		d.logger.Warn("heic cache write failed", "cache", path, "error", err)
		return
	}
	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if werr != nil || cerr != nil {
		_ = os.Remove(tmp.Name())
		d.logger.Warn("heic cache write failed", "cache", path, "write_error", werr, "close_error", cerr)
		return
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		d.logger.Warn("heic cache rename failed", "cache", path, "error", err)
		return
	}
	d.logger.Debug("cached heic->jpeg", "cache", path)
}

// HEICConverter produces the primary JPEG for HEIC/HEIF sources.
// Failures are returned as common.ErrConversionFailed; callers must not upload the source.
type HEICConverter struct {
	decoder Decoder
	quality float64
	logger  *slog.Logger
	now     func() time.Time
}

func NewHEICConverter(decoder Decoder, quality float64, logger *slog.Logger) *HEICConverter {
	if logger == nil {
		logger = slog.Default()
	}
	if quality <= 0 || quality > 1 {
		quality = DefaultHEICQuality
	}
	return &HEICConverter{decoder: decoder, quality: quality, logger: logger, now: time.Now}
}

// Convert always decodes f as HEIC/HEIF.
func (c *HEICConverter) Convert(ctx context.Context, f SourceFile) (*Asset, error) {
	start := time.Now()
	if c.decoder == nil {
		return nil, fmt.Errorf("%w: %s: no HEIC decoder configured", common.ErrConversionFailed, f.Name)
	}
	data, err := f.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read: %w", common.ErrConversionFailed, f.Name, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s: empty file", common.ErrConversionFailed, f.Name)
	}

	out, err := c.decoder.DecodeToJPEG(ctx, data, c.quality)
	if err != nil {
		c.logger.Error("heic conversion failed", "file_name", f.Name, "error", err)
		return nil, fmt.Errorf("%w: %s: %w", common.ErrConversionFailed, f.Name, err)
	}
	if !isJPEG(out) {
		c.logger.Error("heic decoder returned non-jpeg output", "file_name", f.Name, "bytes", len(out))
		return nil, fmt.Errorf("%w: %s: decoder output is not JPEG", common.ErrConversionFailed, f.Name)
	}

	asset := &Asset{
		Name:    JPEGName(f.Name),
		MIME:    constants.MimeJPEG,
		Data:    out,
		ModTime: c.now(),
	}
	c.logger.Debug("heic converted",
		"file_name", f.Name,
		"output_name", asset.Name,
		"in_bytes", len(data),
		"out_bytes", len(out),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return asset, nil
}

// Prepare converts HEIC sources and passes every other file through untouched.
func (c *HEICConverter) Prepare(ctx context.Context, f SourceFile, cls Classification) (SourceFile, error) {
	if !cls.IsHEIC {
		return f, nil
	}
	asset, err := c.Convert(ctx, f)
	if err != nil {
		return SourceFile{}, err
	}
	return asset.AsSource(), nil
}
