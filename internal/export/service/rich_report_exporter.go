package service

import (
	"fmt"
	"github.com/Avi18971911/Tally/internal/export/model"
	"go.uber.org/zap"
	"os"
	"path/filepath"
	"time"
)

// RichReportExporter persists a RichReport as a workbook with one sheet per table.
type RichReportExporter struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewRichReportExporter(logger *zap.Logger) *RichReportExporter {
	return &RichReportExporter{logger: logger, now: time.Now}
}

// ReportPath names a report Log_Analysis_<YYYYmmdd_HHMMSS>.xlsx inside dir.
func (e *RichReportExporter) ReportPath(dir string) string {
	return filepath.Join(dir, fmt.Sprintf("Log_Analysis_%s.xlsx", e.now().Format("20060102_150405")))
}

// Write saves report to path. On error a partially written file may remain.
func (e *RichReportExporter) Write(path string, report model.RichReport) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	err := writeWorkbook(path, func(wb *workbook) error {
		if err := writeLogSheet(wb, AllLogsSheet, report.AllLogs); err != nil {
			return err
		}

		summary := make([][]interface{}, 0, len(report.Summary)+1)
		summary = append(summary, []interface{}{"Keyword", "Occurrences"})
		for _, count := range report.Summary {
			summary = append(summary, []interface{}{count.Keyword, count.Occurrences})
		}
		if err := wb.addSheet(SummarySheet); err != nil {
			return err
		}
		if err := wb.writeRows(SummarySheet, summary); err != nil {
			return err
		}

		for _, sheet := range report.KeywordSheets {
			if err := writeLogSheet(wb, sheet.Label, sheet.Rows); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	e.logger.Info(
		"Wrote rich report",
		zap.String("path", path),
		zap.Int("records", len(report.AllLogs)),
		zap.Int("keyword_sheets", len(report.KeywordSheets)),
	)
	return nil
}

func writeLogSheet(wb *workbook, name string, rows []model.ReportRow) error {
	if err := wb.addSheet(name); err != nil {
		return err
	}
	cells := make([][]interface{}, 0, len(rows)+1)
	cells = append(cells, []interface{}{"Time", "Log Entry"})
	for _, row := range rows {
		if row.Separator {
			cells = append(cells, nil)
			continue
		}
		cells = append(cells, []interface{}{row.Time, row.LogEntry})
	}
	return wb.writeRows(name, cells)
}
