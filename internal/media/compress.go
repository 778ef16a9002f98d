package media

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/photomapper/constants"
	"github.com/joseph-ayodele/photomapper/internal/common"
)

const (
	DefaultMaxDimension = 1600
	DefaultJPEGQuality  = 0.8
)

// Compressor downsizes any decodable raster to a bounded JPEG.
type Compressor struct {
	maxDimension int
	maxPixels    int64
	quality      float64
	logger       *slog.Logger
	now          func() time.Time
}

// NewCompressor falls back to 1600px / 0.8 for out-of-range arguments.
func NewCompressor(maxDimension int, quality float64, logger *slog.Logger) *Compressor {
	if logger == nil {
		logger = slog.Default()
	}
	if maxDimension <= 0 {
		maxDimension = DefaultMaxDimension
	}
	if quality <= 0 || quality > 1 {
		quality = DefaultJPEGQuality
	}
	return &Compressor{maxDimension: maxDimension, maxPixels: DefaultMaxPixels, quality: quality, logger: logger, now: time.Now}
}

// WithMaxPixels sets the header pixel budget; n <= 0 restores DefaultMaxPixels.
func (c *Compressor) WithMaxPixels(n int64) *Compressor {
	if n <= 0 {
		n = DefaultMaxPixels
	}
	c.maxPixels = n
	return c
}

// Compress decodes f, scales it by min(1, max/longest side) and re-encodes as JPEG.
// Decode problems come back as common.ErrDecodeFailed.
func (c *Compressor) Compress(ctx context.Context, f SourceFile) (*Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	data, err := f.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read: %w", common.ErrDecodeFailed, f.Name, err)
	}
	if err := checkPixels(data, f.Type, c.maxPixels); err != nil {
		c.logger.Warn("raster over pixel budget", "file_name", f.Name, "bytes", len(data), "error", err)
		return nil, fmt.Errorf("%w: %s: %w", common.ErrDecodeFailed, f.Name, err)
	}
	img, err := decodeRegistered(data, f.Type)
	if err != nil {
		c.logger.Error("raster decode failed", "file_name", f.Name, "declared_type", f.Type, "bytes", len(data), "error", err)
		return nil, fmt.Errorf("%w: %s: %w", common.ErrDecodeFailed, f.Name, err)
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("%w: %s: zero-dimension image", common.ErrDecodeFailed, f.Name)
	}

	w, h := ScaledSize(b.Dx(), b.Dy(), c.maxDimension)
	canvas := render(img, w, h)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out, err := encodeJPEG(canvas, c.quality, DefaultJPEGQuality)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("image compressed",
		"file_name", f.Name,
		"in_w", b.Dx(), "in_h", b.Dy(),
		"out_w", w, "out_h", h,
		"in_bytes", len(data), "out_bytes", len(out),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &Asset{
		Name:    JPEGName(f.Name),
		MIME:    constants.MimeJPEG,
		Data:    out,
		Width:   w,
		Height:  h,
		ModTime: c.now(),
	}, nil
}
