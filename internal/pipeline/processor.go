package pipeline

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/photomapper/constants"
	"github.com/joseph-ayodele/photomapper/internal/common"
	"github.com/joseph-ayodele/photomapper/internal/entity"
	"github.com/joseph-ayodele/photomapper/internal/media"
	"github.com/joseph-ayodele/photomapper/internal/picker"
	"github.com/joseph-ayodele/photomapper/internal/repository"
	"github.com/joseph-ayodele/photomapper/internal/storage"
)

// Processor is the upload caller: it takes what the picker delivers, compresses
// it, makes a thumbnail when possible, uploads both and records the photo.
// Files go through one at a time so only one full bitmap is alive at once.
type Processor struct {
	Logger     *slog.Logger
	Picker     *picker.Adapter
	Compressor *media.Compressor
	Thumbs     *media.Thumbnailer
	Uploader   *storage.Uploader
	Photos     repository.PhotoRepository
	Notifier   picker.Notifier

	now func() time.Time
}

// NewProcessor wires the stages. thumbs and photos may be nil.
func NewProcessor(logger *slog.Logger, adapter *picker.Adapter, compressor *media.Compressor, thumbs *media.Thumbnailer,
	uploader *storage.Uploader, photos repository.PhotoRepository, notifier picker.Notifier) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = picker.LogNotifier{Logger: logger}
	}
	return &Processor{
		Logger:     logger,
		Picker:     adapter,
		Compressor: compressor,
		Thumbs:     thumbs,
		Uploader:   uploader,
		Photos:     photos,
		Notifier:   notifier,
		now:        time.Now,
	}
}

// ProcessBatch runs one selection end to end. A rejected selection returns the
// report (every file SKIPPED) together with common.ErrSelectionInvalid. Per-file
// failures never fail the batch; they show up as FAILED rows and alerts.
func (p *Processor) ProcessBatch(ctx context.Context, sel picker.Selection) (*BatchReport, error) {
	report := &BatchReport{BatchID: uuid.New(), StartedAt: p.now()}
	ctx = common.WithBatchID(ctx, report.BatchID.String())
	logger := p.Logger.With("batch_id", report.BatchID)
	logger.Info("processor.batch.start", "files", len(sel.Files), "multiple", sel.Multiple)

	res, err := p.Picker.Handle(ctx, sel, func(ctx context.Context, files []picker.Delivery) error {
		for _, d := range files {
			if err := ctx.Err(); err != nil {
				return err
			}
			fr := p.processOne(ctx, logger, report.BatchID, d)
			if fr.Status == constants.FileStatusFailed {
				alert := picker.AlertFor(d.File, fr.err)
				report.Alerts = append(report.Alerts, alert)
				p.Notifier.Alert(ctx, alert)
			}
			report.Files = append(report.Files, fr.FileReport)
		}
		return nil
	})
	if res != nil {
		report.Selected = res.Selected
		for _, fail := range res.Failures {
			report.Alerts = append(report.Alerts, fail.Alert)
			report.Files = append(report.Files, FileReport{
				Source: fail.File,
				Status: constants.FileStatusFailed,
				Error:  fail.Err.Error(),
			})
		}
	}
	report.FinishedAt = p.now()

	if errors.Is(err, common.ErrSelectionInvalid) {
		report.Rejected = err.Error()
		for _, f := range sel.Effective() {
			report.Files = append(report.Files, FileReport{Source: f.Name, Status: constants.FileStatusSkipped})
		}
		logger.Warn("processor.batch.rejected", "error", err)
		return report, err
	}
	if err != nil {
		logger.Error("processor.batch.failed", "error", err)
		return report, err
	}

	logger.Info("processor.batch.ok",
		"selected", report.Selected,
		"uploaded", report.Count(constants.FileStatusUploaded),
		"duplicate", report.Count(constants.FileStatusDuplicate),
		"failed", report.Count(constants.FileStatusFailed),
		"duration_ms", report.Duration().Milliseconds(),
	)
	return report, nil
}

type fileResult struct {
	FileReport
	err error
}

// processOne compresses and uploads d.File. The thumbnail is generated from
// d.Source so a HEIC pick gets its own conversion attempt.
func (p *Processor) processOne(ctx context.Context, logger *slog.Logger, batchID uuid.UUID, d picker.Delivery) fileResult {
	f := d.File
	fail := func(r FileReport, err error) fileResult {
		r.Status = constants.FileStatusFailed
		r.Error = err.Error()
		return fileResult{FileReport: r, err: err}
	}
	fr := FileReport{Source: f.Name}

	asset, err := p.Compressor.Compress(ctx, f)
	if err != nil {
		logger.Error("processor.compress.failed", "file_name", f.Name, "error", err)
		return fail(fr, err)
	}
	fr.FileName, fr.Width, fr.Height, fr.Bytes = asset.Name, asset.Width, asset.Height, asset.Size()

	sum := sha256.Sum256(asset.Data)
	if p.Photos != nil {
		existing, err := p.Photos.GetByHash(ctx, sum[:])
		if err == nil {
			logger.Info("processor.dedup", "file_name", f.Name, "photo_id", existing.ID)
			fr.Status, fr.PhotoID, fr.ObjectKey, fr.ThumbKey = constants.FileStatusDuplicate, existing.ID, existing.ObjectKey, existing.ThumbKey
			return fileResult{FileReport: fr}
		}
		if !errors.Is(err, common.ErrNotFound) {
			return fail(fr, fmt.Errorf("lookup by hash: %w", err))
		}
	}

	photoID := uuid.New()
	fr.PhotoID = photoID
	fr.ObjectKey = storage.ObjectKey(photoID, asset.Name)
	if _, err := p.Uploader.Upload(ctx, fr.ObjectKey, asset); err != nil {
		logger.Error("processor.upload.failed", "file_name", f.Name, "key", fr.ObjectKey, "error", err)
		fr.ObjectKey = ""
		return fail(fr, err)
	}

	// The thumbnail is optional; any failure just leaves ThumbKey empty.
	if p.Thumbs != nil {
		if thumb, ok := p.Thumbs.Generate(ctx, d.Source); ok {
			key := storage.ObjectKey(photoID, thumb.Name)
			if _, err := p.Uploader.Upload(ctx, key, thumb); err != nil {
				logger.Warn("processor.thumbnail.upload_failed", "file_name", f.Name, "error", err)
			} else {
				fr.ThumbKey = key
			}
		}
	}

	if p.Photos != nil {
		row := &entity.Photo{
			ID:          photoID,
			BatchID:     batchID,
			SourceName:  f.Name,
			FileName:    asset.Name,
			ObjectKey:   fr.ObjectKey,
			ThumbKey:    fr.ThumbKey,
			ContentHash: sum[:],
			SizeBytes:   asset.Size(),
			Width:       asset.Width,
			Height:      asset.Height,
			Status:      string(constants.FileStatusUploaded),
			CreatedAt:   p.now(),
		}
		saved, dedup, err := p.Photos.UpsertByHash(ctx, row)
		if err != nil {
			return fail(fr, fmt.Errorf("record photo: %w", err))
		}
		if dedup {
			fr.Status, fr.PhotoID = constants.FileStatusDuplicate, saved.ID
			return fileResult{FileReport: fr}
		}
	}

	fr.Status = constants.FileStatusUploaded
	logger.Info("processor.file.ok", "file_name", f.Name, "key", fr.ObjectKey, "thumbnail", fr.ThumbKey != "", "bytes", fr.Bytes)
	return fileResult{FileReport: fr}
}
