package event_bus

import "github.com/Avi18971911/Tally/internal/ingest/model"

const (
	RecordsIngestedTopic = "records_ingested"
	BatchExportedTopic   = "batch_exported"
	SourceStoppedTopic   = "source_stopped"
)

// RecordsIngested carries records in arrival order. Replace drops what subscribers hold
// for the source before Records are applied.
type RecordsIngested struct {
	SourceId string            `json:"source_id"`
	Records  []model.LogRecord `json:"records"`
	Replace  bool              `json:"replace,omitempty"`
}

type BatchExported struct {
	SourceId   string `json:"source_id"`
	OutputPath string `json:"output_path"`
	Size       int    `json:"size"`
	Error      string `json:"error,omitempty"`
}

type SourceStopped struct {
	SourceId string `json:"source_id"`
	Reason   string `json:"reason"`
	Error    string `json:"error,omitempty"`
}
