package model

// ReportRow is one Time / Log Entry row. Separator rows have Separator set and empty fields.
type ReportRow struct {
	Time      string `json:"time"`
	LogEntry  string `json:"log_entry"`
	Separator bool   `json:"separator,omitempty"`
}

type KeywordCount struct {
	Keyword     string `json:"keyword"`
	Occurrences int    `json:"occurrences"`
}

type KeywordSheet struct {
	Keyword string      `json:"keyword"`
	Label   string      `json:"label"`
	Rows    []ReportRow `json:"rows"`
}

// RichReport is the full file-replay report: every record, per-keyword counts and
// per-keyword context excerpts.
type RichReport struct {
	AllLogs       []ReportRow    `json:"all_logs"`
	Summary       []KeywordCount `json:"summary"`
	KeywordSheets []KeywordSheet `json:"keyword_sheets"`
}

// CompanionRow is one row of the table regenerated next to a streaming text log.
type CompanionRow struct {
	Timestamp   string `json:"timestamp"`
	LogEntry    string `json:"log_entry"`
	Highlighted string `json:"highlighted"`
}
