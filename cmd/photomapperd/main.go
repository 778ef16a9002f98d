package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/photomapper/internal/app"
	"github.com/joseph-ayodele/photomapper/internal/async"
	"github.com/joseph-ayodele/photomapper/internal/common"
	"github.com/joseph-ayodele/photomapper/internal/ingest"
	"github.com/joseph-ayodele/photomapper/internal/pipeline"
	"github.com/joseph-ayodele/photomapper/internal/server"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}
	addr := cfg.Server.GRPCAddr
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, app.Options{}, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", addr, "error", err)
		os.Exit(1)
	}
	grpcServer, healthServer := server.NewGRPCServer(a.Media, logger)

	queue := async.NewBatchQueue(a.Processor, logger,
		async.WithQueueSize(cfg.Ingest.QueueSize),
		async.WithProcessTimeout(cfg.Ingest.ProcessTimeout),
		async.WithOnReport(func(job async.Job, report *pipeline.BatchReport, err error) {
			// one worker, so the panel and alerts belong to this job only
			defer a.Debug.Reset()
			defer a.Notes.Reset()
			if report == nil {
				return
			}
			logger.Info("batch summary",
				"job_id", job.ID,
				"source", job.Source,
				"batch_id", report.BatchID,
				"selected", report.Selected,
				"alerts", len(report.Alerts),
				"rejected", report.Rejected != "",
			)
		}),
	)

	if len(cfg.Ingest.DropDirs) > 0 {
		batches, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
			Roots:       cfg.Ingest.DropDirs,
			InitialScan: true,
			Debounce:    cfg.Ingest.Debounce,
		}, logger)
		if err != nil {
			logger.Error("failed to watch drop folders", "dirs", cfg.Ingest.DropDirs, "error", err)
			os.Exit(1)
		}
		go func() {
			for err := range errs {
				logger.Warn("drop folder watcher error", "error", err)
			}
		}()
		go func() {
			for paths := range batches {
				job := async.Job{
					ID:          uuid.New(),
					Selection:   ingest.SelectionFromPaths(paths),
					Source:      "drop-folder",
					SubmittedAt: time.Now(),
				}
				if err := queue.Enqueue(ctx, job); err != nil {
					logger.Warn("dropped batch", "files", len(paths), "error", err)
				}
			}
		}()
	}

	logger.Info("photomapperd listening", "addr", addr, "storage", cfg.Storage.Backend, "drop_dirs", cfg.Ingest.DropDirs)
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC serve error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	healthServer.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	queue.Shutdown(shutdownCtx)
	grpcServer.GracefulStop()
}
