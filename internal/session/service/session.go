package service

import (
	"context"
	"errors"
	"fmt"
	"github.com/Avi18971911/Tally/internal/batch"
	"github.com/Avi18971911/Tally/internal/display"
	"github.com/Avi18971911/Tally/internal/event_bus"
	exportModel "github.com/Avi18971911/Tally/internal/export/model"
	exportService "github.com/Avi18971911/Tally/internal/export/service"
	"github.com/Avi18971911/Tally/internal/ingest/model"
	keywordService "github.com/Avi18971911/Tally/internal/keyword/service"
	sessionModel "github.com/Avi18971911/Tally/internal/session/model"
	"github.com/Avi18971911/Tally/internal/source"
	"github.com/asaskevich/EventBus"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

var (
	ErrSourceNotFound  = errors.New("source not found")
	ErrSourceExists    = errors.New("source already exists")
	ErrSourceClosed    = errors.New("source is closed")
	ErrNotRestartable  = source.ErrNotRestartable
	ErrWrongSourceKind = errors.New("operation not supported by this kind of source")
	ErrInvalidDevice   = errors.New("invalid device configuration")
	ErrSessionClosed   = errors.New("session is closed")
	ErrOutputInUse     = errors.New("output path is used by another running source")
)

const (
	DefaultFileSourceId = "file"
	fileEventChunk      = 256
	exportQueueSize     = 16
)

type Options struct {
	OutputDir      string
	Threshold      int
	Report         exportService.ReportOptions
	KeywordScope   sessionModel.KeywordScope
	Keywords       []string
	RecentCapacity int
}

type RichReportWriter interface {
	ReportPath(dir string) string
	Write(path string, report exportModel.RichReport) error
}

// Dependencies are the collaborators a Session delegates to. Nil fields get defaults,
// except RichReport and BatchSink which are required.
type Dependencies struct {
	RichReport RichReportWriter
	BatchSink  exportService.BatchSink
	Cache      keywordService.MatchCache
	Bus        EventBus.Bus
	OpenPort   source.PortOpener
	ListPorts  func() ([]string, error)
}

// Session is the command interface: one operation per user action.
type Session interface {
	LoadFile(ctx context.Context, sourceId string, path string) (sessionModel.SourceInfo, error)
	Reload(ctx context.Context, sourceId string) (sessionModel.SourceInfo, error)
	AddKeyword(sourceId string, keyword string) error
	RemoveKeyword(sourceId string, keyword string) error
	Keywords(sourceId string) ([]string, error)
	StartDevice(ctx context.Context, req sessionModel.DeviceRequest) (sessionModel.SourceInfo, error)
	Attach(src source.StreamSource, outputPath string) (sessionModel.SourceInfo, error)
	StopDevice(ctx context.Context, sourceId string) (sessionModel.SourceInfo, error)
	SendCommand(sourceId string, command string) error
	Export(ctx context.Context, sourceId string) (sessionModel.ExportResult, error)
	ListPorts() ([]string, error)
	Records(sourceId string, filter string) ([]model.LogRecord, error)
	Sources() []sessionModel.SourceInfo
	Source(sourceId string) (sessionModel.SourceInfo, error)
	Reset(ctx context.Context) error
	Close(ctx context.Context) error
}

type SessionImpl struct {
	mu         sync.Mutex
	sources    map[string]*sourceEntry
	closed     bool
	opts       Options
	deps       Dependencies
	template   *keywordService.KeywordMatcherImpl
	recent     *display.RecentRecordsImpl
	bus        EventBus.Bus
	recordsBus event_bus.TallyEventBus[event_bus.RecordsIngested, event_bus.RecordsIngested]
	exportBus  event_bus.TallyEventBus[event_bus.BatchExported, event_bus.BatchExported]
	stopBus    event_bus.TallyEventBus[event_bus.SourceStopped, event_bus.SourceStopped]
	ctx        context.Context
	cancel     context.CancelFunc
	logger     *zap.Logger
}

func NewSession(opts Options, deps Dependencies, logger *zap.Logger) (*SessionImpl, error) {
	if deps.RichReport == nil || deps.BatchSink == nil {
		return nil, fmt.Errorf("session requires a rich report writer and a batch sink")
	}
	if opts.KeywordScope == "" {
		opts.KeywordScope = sessionModel.GlobalScope
	}
	if deps.Bus == nil {
		deps.Bus = EventBus.New()
	}
	if deps.OpenPort == nil {
		deps.OpenPort = source.OpenSerialPort
	}
	if deps.ListPorts == nil {
		deps.ListPorts = source.ListPorts
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &SessionImpl{
		sources:    make(map[string]*sourceEntry),
		opts:       opts,
		deps:       deps,
		template:   keywordService.NewKeywordMatcher(keywordService.BuiltinKeywords, opts.Keywords, deps.Cache, logger),
		recent:     display.NewRecentRecords(opts.RecentCapacity, logger),
		bus:        deps.Bus,
		recordsBus: event_bus.NewTallyEventBus[event_bus.RecordsIngested, event_bus.RecordsIngested](deps.Bus, logger),
		exportBus:  event_bus.NewTallyEventBus[event_bus.BatchExported, event_bus.BatchExported](deps.Bus, logger),
		stopBus:    event_bus.NewTallyEventBus[event_bus.SourceStopped, event_bus.SourceStopped](deps.Bus, logger),
		ctx:        ctx,
		cancel:     cancel,
		logger:     logger,
	}
	if err := s.recent.Attach(s.recordsBus); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to attach display: %w", err)
	}
	return s, nil
}

// Bus exposes the session's event bus so other collaborators can subscribe.
func (s *SessionImpl) Bus() EventBus.Bus {
	return s.bus
}

func (s *SessionImpl) lookup(sourceId string) (*sourceEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	entry, ok := s.sources[sourceId]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, sourceId)
	}
	return entry, nil
}

// newMatcher returns the shared set in global scope, or a fresh set seeded from the
// template's user keywords in per-source scope.
func (s *SessionImpl) newMatcher() keywordService.KeywordMatcher {
	if s.opts.KeywordScope != sessionModel.PerSourceScope {
		return s.template
	}
	return keywordService.NewKeywordMatcher(
		keywordService.BuiltinKeywords,
		s.template.UserKeywords(),
		s.deps.Cache,
		s.logger,
	)
}

// matcherFor resolves the keyword set a keyword command applies to. In per-source scope
// an empty source id addresses the template that seeds new sources.
func (s *SessionImpl) matcherFor(sourceId string) (keywordService.KeywordMatcher, error) {
	if s.opts.KeywordScope != sessionModel.PerSourceScope || sourceId == "" {
		return s.template, nil
	}
	entry, err := s.lookup(sourceId)
	if err != nil {
		return nil, err
	}
	return entry.matcher, nil
}

func (s *SessionImpl) AddKeyword(sourceId string, keyword string) error {
	matcher, err := s.matcherFor(sourceId)
	if err != nil {
		return err
	}
	if err := matcher.Add(keyword); err != nil {
		return err
	}
	s.logger.Info("Added keyword", zap.String("source_id", sourceId), zap.String("keyword", keyword))
	return nil
}

func (s *SessionImpl) RemoveKeyword(sourceId string, keyword string) error {
	matcher, err := s.matcherFor(sourceId)
	if err != nil {
		return err
	}
	if err := matcher.Remove(keyword); err != nil {
		return err
	}
	s.logger.Info("Removed keyword", zap.String("source_id", sourceId), zap.String("keyword", keyword))
	return nil
}

func (s *SessionImpl) Keywords(sourceId string) ([]string, error) {
	matcher, err := s.matcherFor(sourceId)
	if err != nil {
		return nil, err
	}
	return matcher.Keywords(), nil
}

func (s *SessionImpl) ListPorts() ([]string, error) {
	return s.deps.ListPorts()
}

func (s *SessionImpl) Records(sourceId string, filter string) ([]model.LogRecord, error) {
	if _, err := s.lookup(sourceId); err != nil {
		return nil, err
	}
	return s.recent.Records(sourceId, strings.TrimSpace(filter)), nil
}

func (s *SessionImpl) Sources() []sessionModel.SourceInfo {
	s.mu.Lock()
	entries := make([]*sourceEntry, 0, len(s.sources))
	for _, entry := range s.sources {
		entries = append(entries, entry)
	}
	s.mu.Unlock()

	infos := make([]sessionModel.SourceInfo, len(entries))
	for i, entry := range entries {
		infos[i] = entry.info()
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Id < infos[j].Id })
	return infos
}

func (s *SessionImpl) Source(sourceId string) (sessionModel.SourceInfo, error) {
	entry, err := s.lookup(sourceId)
	if err != nil {
		return sessionModel.SourceInfo{}, err
	}
	return entry.info(), nil
}

// Reset stops every source and forgets them. Keyword edits survive.
func (s *SessionImpl) Reset(ctx context.Context) error {
	s.mu.Lock()
	entries := make([]*sourceEntry, 0, len(s.sources))
	for _, entry := range s.sources {
		entries = append(entries, entry)
	}
	s.sources = make(map[string]*sourceEntry)
	s.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, entry := range entries {
		entry := entry
		g.Go(func() error {
			return s.retire(gctx, entry)
		})
	}
	err := g.Wait()
	for _, entry := range entries {
		s.publishRecords(entry.id, nil, true)
	}
	s.bus.WaitAsync()
	if err != nil {
		return fmt.Errorf("failed to stop all sources: %w", err)
	}
	s.logger.Info("Session reset", zap.Int("sources", len(entries)))
	return nil
}

func (s *SessionImpl) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	err := s.Reset(ctx)
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
	s.bus.WaitAsync()
	return err
}

// retire cancels a source's loop, waits for it, queues the partial batch and then drains
// the export worker, so no ingested record is dropped with the entry.
func (s *SessionImpl) retire(ctx context.Context, entry *sourceEntry) error {
	if !entry.streaming() {
		return nil
	}
	entry.cancel()
	select {
	case <-entry.loopDone:
	case <-ctx.Done():
		return fmt.Errorf("timed out stopping %s: %w", entry.id, ctx.Err())
	}
	if partial := entry.acc.Take(); len(partial) > 0 {
		if err := entry.enqueue(exportJob{records: partial}); err != nil {
			s.logger.Error(
				"Dropped partial batch of retired source",
				zap.String("source_id", entry.id),
				zap.Int("size", len(partial)),
				zap.Error(err),
			)
		}
	}
	entry.closeJobs()
	select {
	case <-entry.workerDone:
	case <-ctx.Done():
		return fmt.Errorf("timed out draining exports of %s: %w", entry.id, ctx.Err())
	}
	return nil
}

// publishRecords feeds subscribers in chunks. With replace set, the first event tells them
// to drop what they hold for the source, even when records is empty.
func (s *SessionImpl) publishRecords(sourceId string, records []model.LogRecord, replace bool) {
	for start := 0; start < len(records) || (replace && start == 0); start += fileEventChunk {
		end := min(start+fileEventChunk, len(records))
		err := s.recordsBus.Publish(event_bus.RecordsIngestedTopic, event_bus.RecordsIngested{
			SourceId: sourceId,
			Records:  records[start:end],
			Replace:  replace && start == 0,
		})
		if err != nil {
			s.logger.Error("Failed to publish records", zap.String("source_id", sourceId), zap.Error(err))
			return
		}
	}
}

func newSourceId(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}

func (s *SessionImpl) defaultOutputPath(sourceId string) string {
	return filepath.Join(s.opts.OutputDir, sourceId+".txt")
}

func newHoldingEntry(id string, src source.StreamSource, path string, matcher keywordService.KeywordMatcher) *sourceEntry {
	return &sourceEntry{
		id:      id,
		src:     src,
		path:    path,
		matcher: matcher,
		acc:     batch.NewHoldingAccumulator(),
		state:   sessionModel.Loaded,
	}
}
