package service

import (
	"context"
	"fmt"
	exportService "github.com/Avi18971911/Tally/internal/export/service"
	"github.com/Avi18971911/Tally/internal/ingest/model"
	"github.com/Avi18971911/Tally/internal/ingest/parser"
	sessionModel "github.com/Avi18971911/Tally/internal/session/model"
	"github.com/Avi18971911/Tally/internal/source"
	"go.uber.org/zap"
)

// LoadFile replays path into the file source sourceId, replacing any batch it held.
// On failure nothing of the partial read is kept and the previous batch stays in place.
func (s *SessionImpl) LoadFile(ctx context.Context, sourceId string, path string) (sessionModel.SourceInfo, error) {
	if sourceId == "" {
		sourceId = DefaultFileSourceId
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return sessionModel.SourceInfo{}, ErrSessionClosed
	}
	existing := s.sources[sourceId]
	s.mu.Unlock()
	if existing != nil && existing.kind() != model.FileReplayKind {
		return sessionModel.SourceInfo{}, fmt.Errorf("%w: %s", ErrSourceExists, sourceId)
	}

	matcher := s.newMatcher()
	if existing != nil {
		matcher = existing.matcher
	}
	entry := newHoldingEntry(sourceId, source.NewFileReplaySource(sourceId, path), path, matcher)
	records, err := s.replay(ctx, entry)
	if err != nil {
		s.logger.Error(
			"Failed to load log file",
			zap.String("source_id", sourceId),
			zap.String("path", path),
			zap.Error(err),
		)
		return sessionModel.SourceInfo{}, err
	}
	entry.acc.Replace(records)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return sessionModel.SourceInfo{}, ErrSessionClosed
	}
	if current, ok := s.sources[sourceId]; ok && current.kind() != model.FileReplayKind {
		s.mu.Unlock()
		return sessionModel.SourceInfo{}, fmt.Errorf("%w: %s", ErrSourceExists, sourceId)
	}
	s.sources[sourceId] = entry
	s.mu.Unlock()

	s.publishRecords(sourceId, records, true)
	s.logger.Info(
		"Loaded log file",
		zap.String("source_id", sourceId),
		zap.String("path", path),
		zap.Int("records", len(records)),
		zap.Int64("discarded", entry.discarded.Load()),
	)
	return entry.info(), nil
}

// Reload re-reads a restartable source from the start.
func (s *SessionImpl) Reload(ctx context.Context, sourceId string) (sessionModel.SourceInfo, error) {
	entry, err := s.lookup(sourceId)
	if err != nil {
		return sessionModel.SourceInfo{}, err
	}
	if !entry.src.Restartable() {
		return sessionModel.SourceInfo{}, fmt.Errorf("%w: %s", ErrNotRestartable, sourceId)
	}
	return s.LoadFile(ctx, sourceId, entry.path)
}

func (s *SessionImpl) replay(ctx context.Context, entry *sourceEntry) ([]model.LogRecord, error) {
	p := parser.NewFileReplayParser()
	var records []model.LogRecord
	stop := entry.src.Stream(ctx, func(line model.RawLine) {
		record, ok := p.Parse(line)
		if !ok {
			entry.discarded.Add(1)
			return
		}
		records = append(records, record.WithMatches(entry.matcher.Match(record.Message)))
	})
	switch stop.Reason {
	case source.StopReasonEndOfStream:
		if discarded := entry.discarded.Load(); discarded > 0 {
			s.logger.Debug("Skipped malformed lines", zap.String("source_id", entry.id), zap.Int64("count", discarded))
		}
		return records, nil
	case source.StopReasonCancelled:
		return nil, fmt.Errorf("load of %s cancelled: %w", entry.path, ctx.Err())
	default:
		return nil, stop.Err
	}
}

// exportFile builds the rich report from the whole batch, re-tagged with the current keywords.
func (s *SessionImpl) exportFile(entry *sourceEntry) (sessionModel.ExportResult, error) {
	records := entry.acc.Snapshot()
	report := exportService.BuildRichReport(records, entry.matcher.Keywords(), s.opts.Report)
	path := s.deps.RichReport.ReportPath(s.opts.OutputDir)
	if err := s.deps.RichReport.Write(path, report); err != nil {
		s.logger.Error("Failed to write rich report", zap.String("source_id", entry.id), zap.Error(err))
		return sessionModel.ExportResult{}, fmt.Errorf("failed to export %s: %w", entry.id, err)
	}
	return sessionModel.ExportResult{SourceId: entry.id, Path: path, Records: len(records)}, nil
}
