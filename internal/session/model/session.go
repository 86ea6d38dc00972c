package model

import ingestModel "github.com/Avi18971911/Tally/internal/ingest/model"

type KeywordScope string

const (
	// GlobalScope shares one keyword set between every source.
	GlobalScope KeywordScope = "global"
	// PerSourceScope gives each source its own keyword set.
	PerSourceScope KeywordScope = "per_source"
)

type SourceState string

const (
	Loaded  SourceState = "loaded"
	Running SourceState = "running"
	Stopped SourceState = "stopped"
)

// DeviceRequest starts a device configuration.
type DeviceRequest struct {
	Id         string `json:"id"`
	Port       string `json:"port"`
	BaudRate   int    `json:"baud_rate"`
	OutputPath string `json:"output_path"`
	Command    string `json:"command,omitempty"`
}

type SourceInfo struct {
	Id         string                 `json:"id"`
	Kind       ingestModel.SourceKind `json:"kind"`
	State      SourceState            `json:"state"`
	Path       string                 `json:"path,omitempty"`
	Port       string                 `json:"port,omitempty"`
	BaudRate   int                    `json:"baud_rate,omitempty"`
	OutputPath string                 `json:"output_path,omitempty"`
	Buffered   int                    `json:"buffered"`
	Ingested   int64                  `json:"ingested"`
	Discarded  int64                  `json:"discarded,omitempty"`
	StopReason string                 `json:"stop_reason,omitempty"`
	StopError  string                 `json:"stop_error,omitempty"`
}

type ExportResult struct {
	SourceId string `json:"source_id"`
	Path     string `json:"path"`
	Records  int    `json:"records"`
}
