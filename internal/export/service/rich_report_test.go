package service

import (
	"github.com/Avi18971911/Tally/internal/export/model"
	ingestModel "github.com/Avi18971911/Tally/internal/ingest/model"
	"github.com/Avi18971911/Tally/internal/ingest/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"path/filepath"
	"testing"
	"time"
)

func parseLines(t *testing.T, lines ...string) []ingestModel.LogRecord {
	t.Helper()
	p := parser.NewFileReplayParser()
	var records []ingestModel.LogRecord
	for _, line := range lines {
		record, ok := p.Parse(ingestModel.RawLine{Text: line, SourceId: "file"})
		if ok {
			records = append(records, record)
		}
	}
	return records
}

func recordsWithMessages(messages ...string) []ingestModel.LogRecord {
	base := time.Date(0, 1, 1, 10, 0, 0, 0, time.UTC)
	records := make([]ingestModel.LogRecord, len(messages))
	for i, message := range messages {
		records[i] = ingestModel.LogRecord{
			SequenceIndex: int64(i),
			SourceId:      "file",
			Timestamp:     base.Add(time.Duration(i) * time.Second),
			Message:       message,
		}
	}
	return records
}

func TestBuildRichReport(t *testing.T) {
	keywords := []string{"ERROR", "FAIL", "WARNING", "timeout"}

	t.Run("should summarise a replayed file and drop malformed lines", func(t *testing.T) {
		records := parseLines(t,
			"10:00:00.000000 system boot",
			"10:00:01.500000 ERROR disk failure",
			"badline",
			"10:00:02.000000 WARNING low memory",
		)
		require.Len(t, records, 3)

		report := BuildRichReport(records, keywords, DefaultReportOptions())

		assert.Equal(t, []model.ReportRow{
			{Time: "10:00:00.000000", LogEntry: "system boot"},
			{Time: "10:00:01.500000", LogEntry: "ERROR disk failure"},
			{Time: "10:00:02.000000", LogEntry: "WARNING low memory"},
		}, report.AllLogs)
		assert.Equal(t, []model.KeywordCount{
			{Keyword: "ERROR", Occurrences: 1},
			{Keyword: "FAIL", Occurrences: 1},
			{Keyword: "WARNING", Occurrences: 1},
			{Keyword: "timeout", Occurrences: 0},
		}, report.Summary)

		labels := make([]string, len(report.KeywordSheets))
		for i, sheet := range report.KeywordSheets {
			labels[i] = sheet.Label
		}
		assert.Equal(t, []string{"ERROR", "FAIL", "WARNING"}, labels)
		assert.Len(t, report.KeywordSheets[0].Rows, 3)
	})

	t.Run("should separate context windows with exactly one blank row", func(t *testing.T) {
		records := recordsWithMessages("a ERROR", "b", "c", "d", "e", "f", "g ERROR")
		report := BuildRichReport(records, []string{"ERROR"}, DefaultReportOptions())

		require.Len(t, report.KeywordSheets, 1)
		rows := report.KeywordSheets[0].Rows
		// [0,2] then separator then [4,6]
		require.Len(t, rows, 7)
		assert.Equal(t, "a ERROR", rows[0].LogEntry)
		assert.Equal(t, "c", rows[2].LogEntry)
		assert.True(t, rows[3].Separator)
		assert.Equal(t, "e", rows[4].LogEntry)
		assert.Equal(t, "g ERROR", rows[6].LogEntry)
		assert.False(t, rows[6].Separator)
	})

	t.Run("should repeat overlapping windows without merging them", func(t *testing.T) {
		records := recordsWithMessages("x", "ERROR one", "ERROR two", "y")
		report := BuildRichReport(records, []string{"ERROR"}, DefaultReportOptions())

		rows := report.KeywordSheets[0].Rows
		// [0,3] separator [0,3]
		require.Len(t, rows, 9)
		assert.True(t, rows[4].Separator)
		assert.Equal(t, rows[0], rows[5])
	})

	t.Run("should re-tag at build time using the keywords passed in", func(t *testing.T) {
		records := recordsWithMessages("connection timeout", "ok")
		records[0] = records[0].WithMatches(nil)

		report := BuildRichReport(records, []string{"TIMEOUT"}, DefaultReportOptions())

		assert.Equal(t, 1, report.Summary[0].Occurrences)
		require.Len(t, report.KeywordSheets, 1)
		assert.Equal(t, "TIMEOUT", report.KeywordSheets[0].Keyword)
	})

	t.Run("should order rows by sequence index", func(t *testing.T) {
		records := recordsWithMessages("first", "second")
		records[0], records[1] = records[1], records[0]

		report := BuildRichReport(records, nil, DefaultReportOptions())

		assert.Equal(t, "first", report.AllLogs[0].LogEntry)
		assert.Empty(t, report.Summary)
		assert.Empty(t, report.KeywordSheets)
	})
}

func TestFormatTimestamp(t *testing.T) {
	t.Run("should render time of day only when the record has no date", func(t *testing.T) {
		record := ingestModel.LogRecord{Timestamp: time.Date(0, 1, 1, 8, 5, 3, 120000000, time.UTC)}
		assert.Equal(t, "08:05:03.120000", FormatTimestamp(record))
	})

	t.Run("should include the date for wall-clock records", func(t *testing.T) {
		record := ingestModel.LogRecord{Timestamp: time.Date(2024, 3, 9, 8, 5, 3, 0, time.UTC)}
		assert.Equal(t, "2024-03-09 08:05:03.000000", FormatTimestamp(record))
	})
}

func TestRichReportExporter_Write(t *testing.T) {
	t.Run("should write all logs, summary and keyword sheets", func(t *testing.T) {
		dir := t.TempDir()
		exporter := NewRichReportExporter(zap.NewNop())
		exporter.now = func() time.Time { return time.Date(2024, 5, 1, 13, 4, 5, 0, time.UTC) }

		records := parseLines(t,
			"10:00:00.000000 system boot",
			"10:00:01.500000 ERROR disk failure",
		)
		report := BuildRichReport(records, []string{"ERROR", "timeout"}, DefaultReportOptions())
		path := exporter.ReportPath(dir)
		assert.Equal(t, filepath.Join(dir, "Log_Analysis_20240501_130405.xlsx"), path)

		require.NoError(t, exporter.Write(path, report))

		file, err := excelize.OpenFile(path)
		require.NoError(t, err)
		defer file.Close()

		assert.Equal(t, []string{AllLogsSheet, SummarySheet, "ERROR"}, file.GetSheetList())

		header, err := file.GetCellValue(AllLogsSheet, "B1")
		require.NoError(t, err)
		assert.Equal(t, "Log Entry", header)
		entry, err := file.GetCellValue(AllLogsSheet, "B3")
		require.NoError(t, err)
		assert.Equal(t, "ERROR disk failure", entry)

		keyword, err := file.GetCellValue(SummarySheet, "A3")
		require.NoError(t, err)
		assert.Equal(t, "timeout", keyword)
		count, err := file.GetCellValue(SummarySheet, "B3")
		require.NoError(t, err)
		assert.Equal(t, "0", count)
	})
}
