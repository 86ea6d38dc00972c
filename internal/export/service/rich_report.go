package service

import (
	"github.com/Avi18971911/Tally/internal/export/model"
	ingestModel "github.com/Avi18971911/Tally/internal/ingest/model"
	keywordService "github.com/Avi18971911/Tally/internal/keyword/service"
	"sort"
)

const (
	timeOfDayFormat = "15:04:05.000000"
	dateTimeFormat  = "2006-01-02 15:04:05.000000"
)

type ReportOptions struct {
	ContextRadius  int
	LabelMaxLength int
}

func DefaultReportOptions() ReportOptions {
	return ReportOptions{ContextRadius: DefaultContextRadius, LabelMaxLength: DefaultLabelMaxLength}
}

// BuildRichReport recomputes keyword matches against keywords, so edits made after
// ingestion are reflected in the report.
func BuildRichReport(records []ingestModel.LogRecord, keywords []string, opts ReportOptions) model.RichReport {
	ordered := make([]ingestModel.LogRecord, len(records))
	copy(ordered, records)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].SequenceIndex < ordered[j].SequenceIndex
	})

	report := model.RichReport{
		AllLogs: make([]model.ReportRow, len(ordered)),
		Summary: make([]model.KeywordCount, len(keywords)),
	}
	for i, record := range ordered {
		report.AllLogs[i] = toReportRow(record)
	}

	labels := AllocateSheetLabels(keywords, opts.LabelMaxLength)
	for k, keyword := range keywords {
		var matches []int
		for i, record := range ordered {
			if keywordService.ContainsFold(record.Message, keyword) {
				matches = append(matches, i)
			}
		}
		report.Summary[k] = model.KeywordCount{Keyword: keyword, Occurrences: len(matches)}
		if len(matches) == 0 {
			continue
		}
		report.KeywordSheets = append(report.KeywordSheets, model.KeywordSheet{
			Keyword: keyword,
			Label:   labels[k],
			Rows:    contextRows(ordered, matches, opts.ContextRadius),
		})
	}
	return report
}

// contextRows emits one full window per match with a single separator between windows.
// Overlapping windows are not merged.
func contextRows(records []ingestModel.LogRecord, matches []int, radius int) []model.ReportRow {
	var rows []model.ReportRow
	for n, index := range matches {
		if n > 0 {
			rows = append(rows, model.ReportRow{Separator: true})
		}
		window := ContextWindow(index, len(records), radius)
		for i := window.Start; i <= window.End; i++ {
			rows = append(rows, toReportRow(records[i]))
		}
	}
	return rows
}

func toReportRow(record ingestModel.LogRecord) model.ReportRow {
	return model.ReportRow{
		Time:     FormatTimestamp(record),
		LogEntry: record.Message,
	}
}

func FormatTimestamp(record ingestModel.LogRecord) string {
	if record.HasDate() {
		return record.Timestamp.Format(dateTimeFormat)
	}
	return record.Timestamp.Format(timeOfDayFormat)
}
