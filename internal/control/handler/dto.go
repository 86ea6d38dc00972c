package handler

import (
	"github.com/Avi18971911/Tally/internal/ingest/model"
	"time"
)

type LoadFileRequest struct {
	SourceId string `json:"source_id"`
	Path     string `json:"path"`
}

type KeywordRequest struct {
	SourceId string `json:"source_id"`
	Keyword  string `json:"keyword"`
}

type CommandRequest struct {
	Command string `json:"command"`
}

type KeywordsResponse struct {
	Keywords []string `json:"keywords"`
}

type PortsResponse struct {
	Ports []string `json:"ports"`
}

type CountResponse struct {
	SourceId string `json:"source_id"`
	Count    int64  `json:"count"`
}

type RecordDTO struct {
	SequenceIndex   int64     `json:"sequence_index"`
	Timestamp       time.Time `json:"timestamp"`
	Message         string    `json:"message"`
	MatchedKeywords []string  `json:"matched_keywords"`
	Highlighted     bool      `json:"highlighted"`
}

type RecordsResponse struct {
	SourceId string      `json:"source_id"`
	Records  []RecordDTO `json:"records"`
}

func toRecordDTOs(records []model.LogRecord) []RecordDTO {
	dtos := make([]RecordDTO, len(records))
	for i, record := range records {
		matched := record.MatchedKeywords
		if matched == nil {
			matched = []string{}
		}
		dtos[i] = RecordDTO{
			SequenceIndex:   record.SequenceIndex,
			Timestamp:       record.Timestamp,
			Message:         record.Message,
			MatchedKeywords: matched,
			Highlighted:     record.Highlighted(),
		}
	}
	return dtos
}
