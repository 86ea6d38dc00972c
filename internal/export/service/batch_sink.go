package service

import (
	"context"
	"errors"
	"github.com/Avi18971911/Tally/internal/ingest/model"
)

// Tagger is the subset of the keyword matcher needed to highlight rows at export time.
type Tagger interface {
	Match(text string) []string
}

// ExportTarget identifies where a streaming source's batches are persisted.
type ExportTarget struct {
	SourceId   string
	OutputPath string
	Tagger     Tagger
}

// BatchSink receives each detached batch exactly once.
type BatchSink interface {
	ExportBatch(ctx context.Context, target ExportTarget, records []model.LogRecord) error
}

// MultiBatchSink fans a batch out to every sink. All sinks are attempted even when one fails.
type MultiBatchSink struct {
	sinks []BatchSink
}

func NewMultiBatchSink(sinks ...BatchSink) *MultiBatchSink {
	return &MultiBatchSink{sinks: sinks}
}

func (m *MultiBatchSink) ExportBatch(
	ctx context.Context,
	target ExportTarget,
	records []model.LogRecord,
) error {
	var errs []error
	for _, sink := range m.sinks {
		if err := sink.ExportBatch(ctx, target, records); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
