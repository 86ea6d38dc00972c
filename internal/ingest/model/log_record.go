package model

import "time"

type SourceKind string

const (
	FileReplayKind SourceKind = "file_replay"
	DeviceKind     SourceKind = "device"
	OtlpKind       SourceKind = "otlp"
)

// RawLine is one line of text as produced by a StreamSource, before parsing.
type RawLine struct {
	Text       string    `json:"text"`
	SourceId   string    `json:"source_id"`
	ReceivedAt time.Time `json:"received_at"`
}

// LogRecord is never mutated after the matcher has tagged it.
type LogRecord struct {
	SequenceIndex   int64     `json:"sequence_index"`
	SourceId        string    `json:"source_id"`
	Timestamp       time.Time `json:"timestamp"`
	Message         string    `json:"message"`
	MatchedKeywords []string  `json:"matched_keywords"`
}

// WithMatches returns a copy of the record carrying the given keyword tags.
func (r LogRecord) WithMatches(keywords []string) LogRecord {
	matched := make([]string, len(keywords))
	copy(matched, keywords)
	r.MatchedKeywords = matched
	return r
}

func (r LogRecord) Highlighted() bool {
	return len(r.MatchedKeywords) > 0
}

// HasDate is false for records whose timestamp was parsed from a bare time of day.
func (r LogRecord) HasDate() bool {
	return r.Timestamp.Year() != 0
}
