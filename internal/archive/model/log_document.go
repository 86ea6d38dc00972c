package model

import "time"

// LogDocument is an exported streaming record as stored in the search index. Id is
// the document _id and is left out of the stored source.
type LogDocument struct {
	Id              string    `json:"id,omitempty"`
	SourceId        string    `json:"source_id"`
	SequenceIndex   int64     `json:"sequence_index"`
	Timestamp       time.Time `json:"timestamp"`
	ExportedAt      time.Time `json:"exported_at"`
	Message         string    `json:"message"`
	MatchedKeywords []string  `json:"matched_keywords"`
	Highlighted     bool      `json:"highlighted"`
}
