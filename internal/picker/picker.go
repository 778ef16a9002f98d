package picker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/photomapper/internal/common"
	"github.com/joseph-ayodele/photomapper/internal/media"
)

// DefaultMinFileSize is the smallest declared size treated as fully materialized.
// Mobile camera pickers sometimes report a handle before its bytes exist; this
// threshold is a heuristic for that race, not a detection mechanism.
const DefaultMinFileSize int64 = 10 * 1024

// Selection is one pick from a file-selection surface.
type Selection struct {
	Files    []media.SourceFile
	Multiple bool
}

// Effective is the part of the selection that gets processed: everything in
// multi-select mode, only the first file otherwise.
func (s Selection) Effective() []media.SourceFile {
	if !s.Multiple && len(s.Files) > 1 {
		return s.Files[:1]
	}
	return s.Files
}

// Delivery pairs an upload-ready file with the file the user picked. They are
// the same value unless the pick was HEIC and got converted.
type Delivery struct {
	File   media.SourceFile
	Source media.SourceFile
}

// DeliverFunc receives the files that made it through conversion, in selection order.
type DeliverFunc func(ctx context.Context, files []Delivery) error

// Failure records a file dropped from the batch.
type Failure struct {
	File  string
	Err   error
	Alert Alert
}

type Result struct {
	Selected  int
	Delivered []Delivery
	Failures  []Failure
}

// Adapter turns a raw selection into a list of upload-ready files.
type Adapter struct {
	sniffer   *media.Sniffer
	converter *media.HEICConverter
	notifier  Notifier
	debug     *DebugLog
	minSize   int64
	logger    *slog.Logger
}

type Option func(*Adapter)

func WithNotifier(n Notifier) Option {
	return func(a *Adapter) {
		if n != nil {
			a.notifier = n
		}
	}
}

func WithDebugLog(d *DebugLog) Option {
	return func(a *Adapter) { a.debug = d }
}

// WithMinFileSize overrides the gate threshold; zero disables the gate.
func WithMinFileSize(n int64) Option {
	return func(a *Adapter) {
		if n >= 0 {
			a.minSize = n
		}
	}
}

func WithSniffer(s *media.Sniffer) Option {
	return func(a *Adapter) {
		if s != nil {
			a.sniffer = s
		}
	}
}

func NewAdapter(converter *media.HEICConverter, logger *slog.Logger, opts ...Option) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Adapter{
		converter: converter,
		minSize:   DefaultMinFileSize,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.sniffer == nil {
		a.sniffer = media.NewSniffer(logger)
	}
	if a.notifier == nil {
		a.notifier = LogNotifier{Logger: logger}
	}
	return a
}

// Handle runs the selection through the gate and the per-file sniff/convert
// stages, then hands the survivors to deliver. An invalid selection discards
// the whole batch and returns common.ErrSelectionInvalid; per-file failures are
// alerted and recorded in the Result. deliver is not called when nothing survived.
func (a *Adapter) Handle(ctx context.Context, sel Selection, deliver DeliverFunc) (*Result, error) {
	for i, f := range sel.Files {
		a.debug.Add(StageRawSelection, "#%d name=%q type=%q size=%d", i, f.Name, f.Type, f.Size)
	}
	files := sel.Effective()
	if len(files) < len(sel.Files) {
		a.logger.Debug("single selection received multiple files, keeping the first", "count", len(sel.Files))
	}

	res := &Result{Selected: len(files)}
	if err := a.gate(ctx, files); err != nil {
		return res, err
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		out, err := a.prepare(ctx, f)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return res, err
			}
			a.logger.Error("file conversion failed", "file_name", f.Name, "error", err)
			alert := AlertFor(f, err)
			res.Failures = append(res.Failures, Failure{File: f.Name, Err: err, Alert: alert})
			a.notifier.Alert(ctx, alert)
			continue
		}
		a.debug.Add(StagePostConversion, "name=%q type=%q size=%d", out.Name, out.Type, out.Size)
		res.Delivered = append(res.Delivered, Delivery{File: out, Source: f})
	}

	a.debug.Add(StagePassThrough, "delivering %d of %d files", len(res.Delivered), len(files))
	if len(res.Delivered) == 0 || deliver == nil {
		return res, nil
	}
	if err := deliver(ctx, res.Delivered); err != nil {
		return res, fmt.Errorf("deliver: %w", err)
	}
	return res, nil
}

func (a *Adapter) gate(ctx context.Context, files []media.SourceFile) error {
	if len(files) == 0 {
		a.notifier.Retry(ctx, "No photos were selected. Please try again.")
		return fmt.Errorf("%w: no files selected", common.ErrSelectionInvalid)
	}
	for _, f := range files {
		if !strings.HasPrefix(f.Type, "image/") {
			a.logger.Debug("declared type is not an image", "file_name", f.Name, "declared_type", f.Type)
		}
		if a.minSize > 0 && f.Size < a.minSize {
			a.notifier.Retry(ctx, fmt.Sprintf("%q has not finished loading. Wait a moment and select it again.", f.Name))
			a.logger.Warn("selection discarded: file below minimum size",
				"file_name", f.Name, "size", f.Size, "min_size", a.minSize, "declared_type", f.Type)
			return fmt.Errorf("%w: %s is %d bytes, below %d", common.ErrSelectionInvalid, f.Name, f.Size, a.minSize)
		}
	}
	return nil
}

func (a *Adapter) prepare(ctx context.Context, f media.SourceFile) (media.SourceFile, error) {
	cls := a.sniffer.Classify(f)
	if !cls.IsHEIC {
		return f, nil
	}
	if a.converter == nil {
		return media.SourceFile{}, fmt.Errorf("%w: %s: no HEIC converter configured", common.ErrConversionFailed, f.Name)
	}
	return a.converter.Prepare(ctx, f, cls)
}

// AlertFor names the likely cause of err and what the user can do about it.
func AlertFor(f media.SourceFile, err error) Alert {
	a := Alert{File: f.Name}
	switch {
	case errors.Is(err, common.ErrConversionFailed):
		a.Message = fmt.Sprintf("%s is a HEIC photo that could not be converted. The format may be unsupported or the photo has not fully loaded.", f.Name)
		a.Suggestion = "Wait a few seconds and try again, or pick the photo from Files instead of the camera roll."
	case errors.Is(err, common.ErrDecodeFailed):
		a.Message = fmt.Sprintf("%s could not be read as an image. The format may be unsupported or the file is incomplete.", f.Name)
		a.Suggestion = "Export the photo as JPEG or PNG and select it again."
	case errors.Is(err, common.ErrUploadTimeout):
		a.Message = fmt.Sprintf("%s took too long to upload.", f.Name)
		a.Suggestion = "Check your connection and try again."
	default:
		a.Message = fmt.Sprintf("%s could not be processed.", f.Name)
		a.Suggestion = "Try again or choose a different photo."
	}
	return a
}
