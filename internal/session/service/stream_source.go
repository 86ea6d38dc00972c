package service

import (
	"context"
	"fmt"
	"github.com/Avi18971911/Tally/internal/batch"
	"github.com/Avi18971911/Tally/internal/event_bus"
	exportService "github.com/Avi18971911/Tally/internal/export/service"
	"github.com/Avi18971911/Tally/internal/ingest/model"
	"github.com/Avi18971911/Tally/internal/ingest/parser"
	keywordService "github.com/Avi18971911/Tally/internal/keyword/service"
	sessionModel "github.com/Avi18971911/Tally/internal/session/model"
	"github.com/Avi18971911/Tally/internal/source"
	"go.uber.org/zap"
	"path/filepath"
	"strings"
)

// StartDevice opens a device channel and starts its read loop in the background. A stopped
// device with the same id is replaced; a running one is a conflict.
func (s *SessionImpl) StartDevice(ctx context.Context, req sessionModel.DeviceRequest) (sessionModel.SourceInfo, error) {
	req.Id = strings.TrimSpace(req.Id)
	req.Port = strings.TrimSpace(req.Port)
	if req.Port == "" {
		return sessionModel.SourceInfo{}, fmt.Errorf("%w: port is required", ErrInvalidDevice)
	}
	if req.BaudRate <= 0 {
		return sessionModel.SourceInfo{}, fmt.Errorf("%w: baud rate must be positive", ErrInvalidDevice)
	}
	if req.Id == "" {
		req.Id = newSourceId("device")
	}
	if req.OutputPath == "" {
		req.OutputPath = s.defaultOutputPath(req.Id)
	}

	matcher, previous, err := s.prepareStreaming(req.Id, req.OutputPath)
	if err != nil {
		return sessionModel.SourceInfo{}, err
	}

	device := source.NewDeviceStreamSource(
		req.Id,
		source.DeviceConfig{Port: req.Port, BaudRate: req.BaudRate},
		s.deps.OpenPort,
		s.logger,
	)
	if err := device.Open(); err != nil {
		return sessionModel.SourceInfo{}, err
	}
	if req.Command != "" {
		if err := device.SendCommand(req.Command); err != nil {
			device.Close()
			return sessionModel.SourceInfo{}, err
		}
	}

	entry := s.newStreamingEntry(req.Id, device, req.OutputPath, matcher)
	entry.device = device
	if err := s.register(ctx, entry, previous); err != nil {
		entry.cancel()
		device.Close()
		return sessionModel.SourceInfo{}, err
	}
	s.run(entry)
	return entry.info(), nil
}

// Attach registers an already constructed streaming source, such as the OTLP receiver.
func (s *SessionImpl) Attach(src source.StreamSource, outputPath string) (sessionModel.SourceInfo, error) {
	if outputPath == "" {
		outputPath = s.defaultOutputPath(src.Id())
	}
	matcher, previous, err := s.prepareStreaming(src.Id(), outputPath)
	if err != nil {
		return sessionModel.SourceInfo{}, err
	}
	entry := s.newStreamingEntry(src.Id(), src, outputPath, matcher)
	if err := s.register(context.Background(), entry, previous); err != nil {
		entry.cancel()
		return sessionModel.SourceInfo{}, err
	}
	s.run(entry)
	return entry.info(), nil
}

func (s *SessionImpl) prepareStreaming(
	sourceId string,
	outputPath string,
) (keywordService.KeywordMatcher, *sourceEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, nil, ErrSessionClosed
	}
	if err := s.outputConflictLocked(sourceId, outputPath); err != nil {
		return nil, nil, err
	}
	existing, ok := s.sources[sourceId]
	if !ok {
		return s.newMatcher(), nil, nil
	}
	if !existing.streaming() || existing.running() {
		return nil, nil, fmt.Errorf("%w: %s", ErrSourceExists, sourceId)
	}
	return existing.matcher, existing, nil
}

// register stores entry, retiring the stopped entry it replaces.
func (s *SessionImpl) register(ctx context.Context, entry *sourceEntry, previous *sourceEntry) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if current, ok := s.sources[entry.id]; ok && current != previous {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSourceExists, entry.id)
	}
	if err := s.outputConflictLocked(entry.id, entry.outputPath); err != nil {
		s.mu.Unlock()
		return err
	}
	s.sources[entry.id] = entry
	s.mu.Unlock()

	if previous != nil {
		if err := s.retire(ctx, previous); err != nil {
			s.logger.Warn("Failed to retire replaced source", zap.String("source_id", entry.id), zap.Error(err))
		}
		s.publishRecords(entry.id, nil, true)
	}
	return nil
}

// newStreamingEntry builds an entry that can be cancelled as soon as it is registered,
// even before its loop is running.
func (s *SessionImpl) newStreamingEntry(
	id string,
	src source.StreamSource,
	outputPath string,
	matcher keywordService.KeywordMatcher,
) *sourceEntry {
	runCtx, cancel := context.WithCancel(s.ctx)
	entry := &sourceEntry{
		id:         id,
		src:        src,
		outputPath: outputPath,
		matcher:    matcher,
		parser:     parser.NewStreamingParser(),
		state:      sessionModel.Running,
		runCtx:     runCtx,
		cancel:     cancel,
		loopDone:   make(chan struct{}),
		jobs:       make(chan exportJob, exportQueueSize),
		workerDone: make(chan struct{}),
	}
	entry.acc = batch.NewAccumulator(s.threshold(), func(records []model.LogRecord) {
		if err := entry.enqueue(exportJob{records: records}); err != nil {
			s.logger.Error(
				"Dropped batch for retired source",
				zap.String("source_id", id),
				zap.Int("size", len(records)),
				zap.Error(err),
			)
		}
	})
	return entry
}

// outputConflictLocked rejects a text log already written by another running source, since two
// export workers appending to one file would interleave batches. s.mu must be held.
func (s *SessionImpl) outputConflictLocked(sourceId string, outputPath string) error {
	for id, other := range s.sources {
		if id != sourceId && other.streaming() && other.running() && samePath(other.outputPath, outputPath) {
			return fmt.Errorf("%w: %s is written by %s", ErrOutputInUse, outputPath, id)
		}
	}
	return nil
}

func samePath(a string, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}

func (s *SessionImpl) threshold() int {
	if s.opts.Threshold > 0 {
		return s.opts.Threshold
	}
	return batch.DefaultThreshold
}

func (s *SessionImpl) run(entry *sourceEntry) {
	go s.exportWorker(entry)
	go func() {
		defer close(entry.loopDone)
		defer entry.cancel()
		stop := entry.src.Stream(entry.runCtx, func(line model.RawLine) {
			s.ingest(entry, line)
		})
		entry.finish(stop)

		fields := []zap.Field{zap.String("source_id", entry.id), zap.String("reason", string(stop.Reason))}
		event := event_bus.SourceStopped{SourceId: entry.id, Reason: string(stop.Reason)}
		if stop.Err != nil {
			event.Error = stop.Err.Error()
			s.logger.Error("Source stopped with a fault", append(fields, zap.Error(stop.Err))...)
		} else {
			s.logger.Info("Source stopped", fields...)
		}
		if err := s.stopBus.Publish(event_bus.SourceStoppedTopic, event); err != nil {
			s.logger.Error("Failed to publish source stop", zap.String("source_id", entry.id), zap.Error(err))
		}
	}()
}

func (s *SessionImpl) ingest(entry *sourceEntry, line model.RawLine) {
	record, ok := entry.parser.Parse(line)
	if !ok {
		entry.discarded.Add(1)
		return
	}
	record = record.WithMatches(entry.matcher.Match(record.Message))
	s.publishRecords(entry.id, []model.LogRecord{record}, false)
	entry.acc.Append(record)
}

// exportWorker is the only writer of a streaming source's outputs, so batches land in order.
func (s *SessionImpl) exportWorker(entry *sourceEntry) {
	defer close(entry.workerDone)
	for job := range entry.jobs {
		err := s.exportStream(entry, job.records)
		if job.reply != nil {
			job.reply <- err
		}
	}
}

func (s *SessionImpl) exportStream(entry *sourceEntry, records []model.LogRecord) error {
	target := exportService.ExportTarget{
		SourceId:   entry.id,
		OutputPath: entry.outputPath,
		Tagger:     entry.matcher,
	}
	err := s.deps.BatchSink.ExportBatch(context.Background(), target, records)
	event := event_bus.BatchExported{SourceId: entry.id, OutputPath: entry.outputPath, Size: len(records)}
	if err != nil {
		event.Error = err.Error()
		s.logger.Error("Failed to export batch", zap.String("source_id", entry.id), zap.Error(err))
	}
	if publishErr := s.exportBus.Publish(event_bus.BatchExportedTopic, event); publishErr != nil {
		s.logger.Error("Failed to publish export", zap.String("source_id", entry.id), zap.Error(publishErr))
	}
	return err
}

// Export writes a file source's rich report, or flushes a streaming source's partial batch.
func (s *SessionImpl) Export(ctx context.Context, sourceId string) (sessionModel.ExportResult, error) {
	entry, err := s.lookup(sourceId)
	if err != nil {
		return sessionModel.ExportResult{}, err
	}
	if !entry.streaming() {
		return s.exportFile(entry)
	}

	records := entry.acc.Take()
	result := sessionModel.ExportResult{SourceId: entry.id, Path: entry.outputPath, Records: len(records)}
	if len(records) == 0 {
		return result, nil
	}
	reply := make(chan error, 1)
	if err := entry.enqueue(exportJob{records: records, reply: reply}); err != nil {
		return sessionModel.ExportResult{}, fmt.Errorf("%w: %s", err, sourceId)
	}
	select {
	case err := <-reply:
		if err != nil {
			return sessionModel.ExportResult{}, fmt.Errorf("failed to export %s: %w", sourceId, err)
		}
		return result, nil
	case <-ctx.Done():
		return sessionModel.ExportResult{}, ctx.Err()
	}
}

// StopDevice cancels a running streaming source and waits for its loop to exit.
func (s *SessionImpl) StopDevice(ctx context.Context, sourceId string) (sessionModel.SourceInfo, error) {
	entry, err := s.lookup(sourceId)
	if err != nil {
		return sessionModel.SourceInfo{}, err
	}
	if !entry.streaming() {
		return sessionModel.SourceInfo{}, fmt.Errorf("%w: %s", ErrWrongSourceKind, sourceId)
	}
	if !entry.running() {
		return sessionModel.SourceInfo{}, fmt.Errorf("%w: %s", ErrSourceClosed, sourceId)
	}
	entry.cancel()
	select {
	case <-entry.loopDone:
		return entry.info(), nil
	case <-ctx.Done():
		return sessionModel.SourceInfo{}, ctx.Err()
	}
}

func (s *SessionImpl) SendCommand(sourceId string, command string) error {
	entry, err := s.lookup(sourceId)
	if err != nil {
		return err
	}
	if entry.device == nil {
		return fmt.Errorf("%w: %s", ErrWrongSourceKind, sourceId)
	}
	if !entry.running() {
		return fmt.Errorf("%w: %s", ErrSourceClosed, sourceId)
	}
	if err := entry.device.SendCommand(command); err != nil {
		return fmt.Errorf("failed to send command to %s: %w", sourceId, err)
	}
	s.logger.Info("Sent command", zap.String("source_id", sourceId), zap.String("command", command))
	return nil
}
