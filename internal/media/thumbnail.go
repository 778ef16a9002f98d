package media

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/photomapper/constants"
)

// ThumbnailOptions bound the preview size and JPEG quality.
type ThumbnailOptions struct {
	MaxSide   int
	Quality   float64
	MaxPixels int64
}

func DefaultThumbnailOptions() ThumbnailOptions {
	return ThumbnailOptions{MaxSide: 1280, Quality: 0.8, MaxPixels: DefaultMaxPixels}
}

// Thumbnailer makes best-effort previews. Generate never returns an error:
// every failure path ends in (nil, false) so a batch keeps going without a preview.
type Thumbnailer struct {
	sniffer  *Sniffer
	heic     Decoder
	primary  ImageDecoder
	fallback ImageDecoder
	opts     ThumbnailOptions
	logger   *slog.Logger
	now      func() time.Time
}

// NewThumbnailer wires its own HEIC decoder; it shares no state with HEICConverter.
func NewThumbnailer(sniffer *Sniffer, heic Decoder, opts ThumbnailOptions, logger *slog.Logger) *Thumbnailer {
	if logger == nil {
		logger = slog.Default()
	}
	if sniffer == nil {
		sniffer = NewSniffer(logger)
	}
	def := DefaultThumbnailOptions()
	if opts.MaxSide <= 0 {
		opts.MaxSide = def.MaxSide
	}
	if opts.Quality <= 0 || opts.Quality > 1 {
		opts.Quality = def.Quality
	}
	if opts.MaxPixels <= 0 {
		opts.MaxPixels = def.MaxPixels
	}
	return &Thumbnailer{
		sniffer:  sniffer,
		heic:     heic,
		primary:  decodeRegistered,
		fallback: decodeByMIME,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// WithDecoders replaces the primary and fallback bitmap decoders.
func (t *Thumbnailer) WithDecoders(primary, fallback ImageDecoder) *Thumbnailer {
	t.primary = primary
	t.fallback = fallback
	return t
}

// Generate returns a "-thumb.jpg" preview, or ok=false when none can be made.
func (t *Thumbnailer) Generate(ctx context.Context, f SourceFile) (thumb *Asset, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Warn("thumbnail panicked", "file_name", f.Name, "panic", r)
			thumb, ok = nil, false
		}
	}()

	if constants.IsRawExt(f.Ext()) || constants.IsRawMime(f.Type) {
		t.logger.Debug("thumbnail skipped for raw format", "file_name", f.Name, "declared_type", f.Type)
		return nil, false
	}
	if ctx.Err() != nil {
		return nil, false
	}

	data, err := f.ReadAll()
	if err != nil || len(data) == 0 {
		t.logger.Debug("thumbnail source unreadable", "file_name", f.Name, "error", err)
		return nil, false
	}

	cls := t.sniffer.Classify(f)
	mime := cls.MIME
	if cls.IsHEIC {
		if t.heic == nil {
			return nil, false
		}
		jpg, err := t.heic.DecodeToJPEG(ctx, data, t.opts.Quality)
		if err != nil || !isJPEG(jpg) {
			t.logger.Debug("thumbnail heic conversion failed", "file_name", f.Name, "error", err)
			return nil, false
		}
		data, mime = jpg, constants.MimeJPEG
	}

	// Header check first: running out of memory is fatal and recover cannot see it.
	if err := checkPixels(data, mime, t.opts.MaxPixels); err != nil {
		t.logger.Warn("thumbnail source over pixel budget", "file_name", f.Name, "error", err)
		return nil, false
	}

	img, err := t.primary(data, mime)
	if err != nil || img == nil {
		t.logger.Debug("thumbnail primary decode failed, trying fallback", "file_name", f.Name, "mime", mime, "error", err)
		if t.fallback == nil {
			return nil, false
		}
		img, err = t.fallback(data, mime)
		if err != nil || img == nil {
			t.logger.Debug("thumbnail fallback decode failed", "file_name", f.Name, "error", err)
			return nil, false
		}
	}

	b := img.Bounds()
	if b.Empty() {
		return nil, false
	}
	w, h := ScaledSize(b.Dx(), b.Dy(), t.opts.MaxSide)
	out, err := encodeJPEG(render(img, w, h), t.opts.Quality, DefaultThumbnailOptions().Quality)
	if err != nil {
		return nil, false
	}
	return &Asset{
		Name:    ThumbName(f.Name),
		MIME:    constants.MimeJPEG,
		Data:    out,
		Width:   w,
		Height:  h,
		ModTime: t.now(),
	}, true
}
