package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/photomapper/internal/common"
	"github.com/joseph-ayodele/photomapper/internal/export"
	"github.com/joseph-ayodele/photomapper/internal/media"
	"github.com/joseph-ayodele/photomapper/internal/picker"
	"github.com/joseph-ayodele/photomapper/internal/pipeline"
	"github.com/joseph-ayodele/photomapper/internal/repository"
	"github.com/joseph-ayodele/photomapper/internal/server"
	"github.com/joseph-ayodele/photomapper/internal/storage"
)

// App holds every wired component a command needs.
type App struct {
	DB        *repository.DB
	Photos    repository.PhotoRepository
	Store     storage.ObjectStore
	Sniffer   *media.Sniffer
	Converter *media.HEICConverter
	Processor *pipeline.Processor
	Exports   *export.Service
	Media     *server.MediaService
	Debug     *picker.DebugLog
	Notes     *picker.Collector

	logger *slog.Logger
}

type Options struct {
	// InMemory swaps the configured database for a private SQLite one.
	InMemory bool
	// Decoder overrides the external HEIC tool, mainly for tests.
	Decoder media.Decoder
}

// Build opens the database and object store and wires the pipeline on top.
func Build(ctx context.Context, cfg *common.Config, opts Options, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{logger: logger}

	dbCfg := repository.ConfigFrom(cfg.Database)
	if opts.InMemory {
		dbCfg = repository.Config{Driver: repository.DriverSQLite}
	}
	db, err := repository.Open(ctx, dbCfg, logger)
	if err != nil {
		return nil, err
	}
	a.DB = db
	if err := repository.HealthCheck(ctx, db, dbCfg.DialTimeout, logger); err != nil {
		a.Close()
		return nil, err
	}
	if err := repository.Migrate(ctx, db); err != nil {
		a.Close()
		return nil, err
	}
	a.Photos = repository.NewPhotoRepository(db, logger)

	store, err := storage.Open(ctx, cfg.Storage, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open object store: %w", err)
	}
	a.Store = store

	decoder := opts.Decoder
	if decoder == nil {
		decoder = media.NewCommandDecoder(cfg.Media.HeicConverter, cfg.Media.ArtifactCacheDir, logger)
	}
	a.Sniffer = media.NewSniffer(logger)
	a.Converter = media.NewHEICConverter(decoder, cfg.Media.HeicQuality, logger)
	compressor := media.NewCompressor(cfg.Media.MaxDimension, cfg.Media.JPEGQuality, logger).
		WithMaxPixels(cfg.Media.MaxPixels)
	thumbs := media.NewThumbnailer(a.Sniffer, decoder, media.ThumbnailOptions{
		MaxSide:   cfg.Media.ThumbMaxSide,
		Quality:   cfg.Media.ThumbQuality,
		MaxPixels: cfg.Media.MaxPixels,
	}, logger)

	a.Debug = picker.NewDebugLog(logger)
	a.Notes = &picker.Collector{Next: picker.LogNotifier{Logger: logger}}
	adapter := picker.NewAdapter(a.Converter, logger,
		picker.WithSniffer(a.Sniffer),
		picker.WithNotifier(a.Notes),
		picker.WithDebugLog(a.Debug),
		picker.WithMinFileSize(cfg.Media.MinFileSize),
	)
	uploader := storage.NewUploader(store, cfg.Storage.UploadTimeout, logger)
	a.Processor = pipeline.NewProcessor(logger, adapter, compressor, thumbs, uploader, a.Photos, a.Notes)
	a.Exports = export.NewService(a.Photos, logger)
	a.Media = server.NewMediaService(a.Sniffer, a.Converter, compressor, thumbs, a.Exports, logger)
	return a, nil
}

func (a *App) Close() {
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.logger.Error("failed to close object store", "error", err)
		}
	}
	a.DB.Close(a.logger)
}
