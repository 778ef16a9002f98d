package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/photomapper/constants"
	"github.com/joseph-ayodele/photomapper/internal/app"
	"github.com/joseph-ayodele/photomapper/internal/common"
	"github.com/joseph-ayodele/photomapper/internal/ingest"
	"github.com/joseph-ayodele/photomapper/internal/picker"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		dir      = flag.String("dir", "", "directory of photos to normalize")
		manifest = flag.String("manifest", "", "JSON selection manifest (alternative to --dir)")
		inmem    = flag.Bool("inmem", false, "use in-memory SQLite database")
		report   = flag.String("report", "", "write an XLSX batch report to this path")
		multiple = flag.Bool("multiple", true, "treat --dir as a multi-file selection (false keeps only the first file)")
		debug    = flag.Bool("debug", false, "print the picker debug log")
	)
	flag.Parse()

	if (*dir == "") == (*manifest == "") {
		printError("Error: exactly one of --dir or --manifest is required\n")
		os.Exit(1)
	}

	_ = godotenv.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if *inmem {
		cfg.Database.Driver = "sqlite"
	}
	if err := cfg.Validate(); err != nil {
		printError("Error: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var sel picker.Selection
	if *manifest != "" {
		s, err := picker.LoadManifest(*manifest)
		if err != nil {
			printError("Error: %v\n", err)
			os.Exit(1)
		}
		sel = s
	} else {
		paths, stats, err := ingest.ScanDirectory(ctx, *dir, true)
		if err != nil {
			printError("Error: %v\n", err)
			os.Exit(1)
		}
		logger.Info("scanned directory", "dir", *dir, "scanned", stats.Scanned, "matched", stats.Matched)
		sel = ingest.SelectionFromPaths(paths)
		sel.Multiple = *multiple
	}

	a, err := app.Build(ctx, cfg, app.Options{InMemory: *inmem}, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	rep, err := a.Processor.ProcessBatch(ctx, sel)
	if err != nil && !errors.Is(err, common.ErrSelectionInvalid) {
		logger.Error("batch failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("batch %s: selected=%d uploaded=%d duplicate=%d failed=%d skipped=%d in %s\n",
		rep.BatchID, rep.Selected,
		rep.Count(constants.FileStatusUploaded),
		rep.Count(constants.FileStatusDuplicate),
		rep.Count(constants.FileStatusFailed),
		rep.Count(constants.FileStatusSkipped),
		rep.Duration().Round(1e6),
	)
	if rep.Rejected != "" {
		fmt.Printf("selection rejected: %s\n", rep.Rejected)
	}
	for _, al := range rep.Alerts {
		fmt.Printf("  ! %s: %s %s\n", al.File, al.Message, al.Suggestion)
	}
	if *debug {
		for _, e := range a.Debug.Entries() {
			fmt.Printf("  [%s] %s\n", e.Stage, e.Message)
		}
	}

	if *report != "" {
		xlsx, err := a.Exports.BatchReportXLSX(rep)
		if err != nil {
			logger.Error("failed to build report", "error", err)
			os.Exit(1)
		}
		if err := os.MkdirAll(filepath.Dir(*report), 0o755); err != nil {
			logger.Error("failed to create report dir", "error", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*report, xlsx, 0o644); err != nil {
			logger.Error("failed to write report", "path", *report, "error", err)
			os.Exit(1)
		}
		fmt.Printf("report written to %s\n", *report)
	}

	if rep.Rejected != "" {
		os.Exit(3)
	}
}
