package service

import (
	"context"
	"errors"
	exportModel "github.com/Avi18971911/Tally/internal/export/model"
	"github.com/Avi18971911/Tally/internal/ingest/model"
	keywordService "github.com/Avi18971911/Tally/internal/keyword/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStreamExporter() *StreamReportExporter {
	exporter := NewStreamReportExporter(zap.NewNop())
	exporter.now = func() time.Time { return time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC) }
	return exporter
}

func TestCompanionPath(t *testing.T) {
	t.Run("should swap the txt extension for xlsx", func(t *testing.T) {
		assert.Equal(t, "/tmp/device.xlsx", CompanionPath("/tmp/device.txt"))
	})

	t.Run("should append xlsx when there is no txt extension", func(t *testing.T) {
		assert.Equal(t, "/tmp/device.log.xlsx", CompanionPath("/tmp/device.log"))
	})
}

func TestStreamReportExporter_ExportBatch(t *testing.T) {
	matcher := keywordService.NewKeywordMatcher(keywordService.BuiltinKeywords, nil, nil, zap.NewNop())

	t.Run("should append batches and regenerate the companion from the whole file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "device.txt")
		exporter := newTestStreamExporter()
		target := ExportTarget{SourceId: "dev", OutputPath: path, Tagger: matcher}

		require.NoError(t, exporter.ExportBatch(context.Background(), target, recordsWithMessages("boot ok", "ERROR x")))
		require.NoError(t, exporter.ExportBatch(context.Background(), target, recordsWithMessages("  link warning  ")))

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "boot ok\nERROR x\n  link warning  \n", string(content))

		rows, err := exporter.CompanionRows(path, matcher)
		require.NoError(t, err)
		assert.Equal(t, []exportModel.CompanionRow{
			{Timestamp: "2024-05-01 09:30:00", LogEntry: "boot ok", Highlighted: "No"},
			{Timestamp: "2024-05-01 09:30:00", LogEntry: "ERROR x", Highlighted: "Yes"},
			{Timestamp: "2024-05-01 09:30:00", LogEntry: "link warning", Highlighted: "Yes"},
		}, rows)

		file, err := excelize.OpenFile(CompanionPath(path))
		require.NoError(t, err)
		defer file.Close()
		sheets := file.GetSheetList()
		require.Len(t, sheets, 1)
		header, err := file.GetCellValue(sheets[0], "C1")
		require.NoError(t, err)
		assert.Equal(t, "Highlighted", header)
		last, err := file.GetCellValue(sheets[0], "B4")
		require.NoError(t, err)
		assert.Equal(t, "link warning", last)
	})

	t.Run("should do nothing for an empty batch", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "device.txt")
		exporter := newTestStreamExporter()

		require.NoError(t, exporter.ExportBatch(context.Background(), ExportTarget{OutputPath: path}, nil))
		_, err := os.Stat(path)
		assert.True(t, os.IsNotExist(err))
	})
}

type recordingSink struct {
	batches [][]model.LogRecord
	err     error
}

func (r *recordingSink) ExportBatch(_ context.Context, _ ExportTarget, records []model.LogRecord) error {
	r.batches = append(r.batches, records)
	return r.err
}

func TestMultiBatchSink(t *testing.T) {
	t.Run("should deliver the batch to every sink even when one fails", func(t *testing.T) {
		failure := errors.New("boom")
		first := &recordingSink{err: failure}
		second := &recordingSink{}
		sink := NewMultiBatchSink(first, second)

		err := sink.ExportBatch(context.Background(), ExportTarget{}, recordsWithMessages("a"))

		assert.ErrorIs(t, err, failure)
		assert.Len(t, first.batches, 1)
		assert.Len(t, second.batches, 1)
	})
}
