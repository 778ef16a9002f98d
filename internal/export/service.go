package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/photomapper/internal/pipeline"
	"github.com/joseph-ayodele/photomapper/internal/repository"
)

const (
	filesSheet  = "Files"
	alertsSheet = "Alerts"
)

// Service produces XLSX bytes describing processed batches.
type Service struct {
	photos repository.PhotoRepository
	logger *slog.Logger
}

func NewService(photos repository.PhotoRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{photos: photos, logger: logger}
}

// BatchReportXLSX renders a report straight from ProcessBatch, including
// failed and skipped files that never reached the database.
func (s *Service) BatchReportXLSX(report *pipeline.BatchReport) ([]byte, error) {
	start := time.Now()
	f := excelize.NewFile()
	defer f.Close()

	if err := useSheet(f, filesSheet); err != nil {
		return nil, err
	}
	writeRow(f, filesSheet, 1, "Source", "Status", "File Name", "Width", "Height", "Bytes", "Object Key", "Thumbnail Key", "Error")
	for i, r := range report.Files {
		writeRow(f, filesSheet, i+2, r.Source, string(r.Status), r.FileName, r.Width, r.Height, r.Bytes, r.ObjectKey, r.ThumbKey, truncate(r.Error, 200))
	}
	_ = f.SetColWidth(filesSheet, "A", "A", 28)
	_ = f.SetColWidth(filesSheet, "B", "B", 12)
	_ = f.SetColWidth(filesSheet, "C", "C", 28)
	_ = f.SetColWidth(filesSheet, "G", "H", 60)
	_ = f.SetColWidth(filesSheet, "I", "I", 48)

	if _, err := f.NewSheet(alertsSheet); err != nil {
		return nil, err
	}
	writeRow(f, alertsSheet, 1, "File", "Message", "Suggestion")
	for i, a := range report.Alerts {
		writeRow(f, alertsSheet, i+2, a.File, a.Message, a.Suggestion)
	}
	_ = f.SetColWidth(alertsSheet, "A", "A", 28)
	_ = f.SetColWidth(alertsSheet, "B", "C", 80)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.xlsx.ok",
		"batch_id", report.BatchID.String(),
		"rows", len(report.Files),
		"alerts", len(report.Alerts),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// ExportBatchXLSX lists the photos stored for batchID.
func (s *Service) ExportBatchXLSX(ctx context.Context, batchID uuid.UUID) ([]byte, error) {
	start := time.Now()
	rows, err := s.photos.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("query photos: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := useSheet(f, filesSheet); err != nil {
		return nil, err
	}
	writeRow(f, filesSheet, 1, "Photo ID", "Created", "Source", "File Name", "Width", "Height", "Bytes", "Object Key", "Thumbnail Key")
	for i, p := range rows {
		writeRow(f, filesSheet, i+2, p.ID.String(), p.CreatedAt.UTC().Format(time.RFC3339), p.SourceName, p.FileName,
			p.Width, p.Height, p.SizeBytes, p.ObjectKey, p.ThumbKey)
	}
	_ = f.SetColWidth(filesSheet, "A", "A", 38)
	_ = f.SetColWidth(filesSheet, "B", "B", 22)
	_ = f.SetColWidth(filesSheet, "C", "D", 28)
	_ = f.SetColWidth(filesSheet, "H", "I", 60)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.xlsx.ok",
		"batch_id", batchID.String(),
		"rows", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// useSheet renames the default sheet and makes it active.
func useSheet(f *excelize.File, name string) error {
	if err := f.SetSheetName("Sheet1", name); err != nil {
		return err
	}
	index, err := f.GetSheetIndex(name)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values ...any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

// truncate caps s at n characters, never splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	if n == 1 {
		return string(r[:1])
	}
	return string(r[:n-1]) + "…"
}
