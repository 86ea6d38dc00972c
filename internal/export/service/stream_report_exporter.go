package service

import (
	"bufio"
	"context"
	"fmt"
	exportModel "github.com/Avi18971911/Tally/internal/export/model"
	"github.com/Avi18971911/Tally/internal/ingest/model"
	"go.uber.org/zap"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	companionTimeFormat = "2006-01-02 15:04:05"
	maxCompanionLineLen = 1024 * 1024
)

var companionHeader = []interface{}{"Timestamp", "Log Entry", "Highlighted"}

// StreamReportExporter appends each batch to a plain-text log and regenerates the
// companion workbook from the whole text file.
type StreamReportExporter struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewStreamReportExporter(logger *zap.Logger) *StreamReportExporter {
	return &StreamReportExporter{logger: logger, now: time.Now}
}

// CompanionPath returns the workbook path paired with a text log path.
func CompanionPath(textPath string) string {
	if strings.HasSuffix(textPath, ".txt") {
		return strings.TrimSuffix(textPath, ".txt") + ".xlsx"
	}
	return textPath + ".xlsx"
}

func (e *StreamReportExporter) ExportBatch(
	ctx context.Context,
	target ExportTarget,
	records []model.LogRecord,
) error {
	if len(records) == 0 {
		return nil
	}
	if err := e.appendText(target.OutputPath, records); err != nil {
		e.logger.Error(
			"Failed to append batch to text log",
			zap.String("source_id", target.SourceId),
			zap.String("path", target.OutputPath),
			zap.Error(err),
		)
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	rows, err := e.CompanionRows(target.OutputPath, target.Tagger)
	if err != nil {
		return err
	}
	companionPath := CompanionPath(target.OutputPath)
	if err := writeCompanion(companionPath, rows); err != nil {
		e.logger.Error(
			"Failed to regenerate companion workbook",
			zap.String("source_id", target.SourceId),
			zap.String("path", companionPath),
			zap.Error(err),
		)
		return err
	}
	e.logger.Info(
		"Exported batch",
		zap.String("source_id", target.SourceId),
		zap.Int("batch_size", len(records)),
		zap.Int("total_rows", len(rows)),
	)
	return nil
}

func (e *StreamReportExporter) appendText(path string, records []model.LogRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open text log %s: %w", path, err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, record := range records {
		if _, err := writer.WriteString(record.Message + "\n"); err != nil {
			return fmt.Errorf("failed to write text log %s: %w", path, err)
		}
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush text log %s: %w", path, err)
	}
	return nil
}

// CompanionRows reads every line of the text log and tags it with the current keyword set.
// Every row carries the regeneration time, since the text log holds no timestamps.
func (e *StreamReportExporter) CompanionRows(path string, tagger Tagger) ([]exportModel.CompanionRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open text log %s: %w", path, err)
	}
	defer file.Close()

	stamp := e.now().Format(companionTimeFormat)
	var rows []exportModel.CompanionRow
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), maxCompanionLineLen)
	for scanner.Scan() {
		entry := strings.TrimSpace(scanner.Text())
		highlighted := "No"
		if tagger != nil && len(tagger.Match(entry)) > 0 {
			highlighted = "Yes"
		}
		rows = append(rows, exportModel.CompanionRow{
			Timestamp:   stamp,
			LogEntry:    entry,
			Highlighted: highlighted,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read text log %s: %w", path, err)
	}
	return rows, nil
}

func writeCompanion(path string, rows []exportModel.CompanionRow) error {
	const sheet = "Logs"
	return writeWorkbook(path, func(wb *workbook) error {
		if err := wb.addSheet(sheet); err != nil {
			return err
		}
		cells := make([][]interface{}, 0, len(rows)+1)
		cells = append(cells, companionHeader)
		for _, row := range rows {
			cells = append(cells, []interface{}{row.Timestamp, row.LogEntry, row.Highlighted})
		}
		return wb.writeRows(sheet, cells)
	})
}
