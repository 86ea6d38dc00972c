package service

import (
	"context"
	"github.com/Avi18971911/Tally/internal/batch"
	"github.com/Avi18971911/Tally/internal/ingest/model"
	"github.com/Avi18971911/Tally/internal/ingest/parser"
	keywordService "github.com/Avi18971911/Tally/internal/keyword/service"
	sessionModel "github.com/Avi18971911/Tally/internal/session/model"
	"github.com/Avi18971911/Tally/internal/source"
	"sync"
	"sync/atomic"
)

type exportJob struct {
	records []model.LogRecord
	reply   chan error
}

// sourceEntry is one registered source with its batch, keyword set and, for streaming
// sources, the read loop and the export worker that serialises writes to its output.
type sourceEntry struct {
	id         string
	src        source.StreamSource
	device     *source.DeviceStreamSource
	path       string
	outputPath string
	matcher    keywordService.KeywordMatcher
	parser     parser.LineParser
	acc        *batch.AccumulatorImpl
	discarded  atomic.Int64

	mu    sync.Mutex
	state sessionModel.SourceState
	stop  source.Stop

	runCtx     context.Context
	cancel     context.CancelFunc
	loopDone   chan struct{}
	jobsMu     sync.RWMutex
	jobsClosed bool
	jobs       chan exportJob
	workerDone chan struct{}
}

func (e *sourceEntry) kind() model.SourceKind {
	return e.src.Kind()
}

func (e *sourceEntry) streaming() bool {
	return e.jobs != nil
}

func (e *sourceEntry) running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state == sessionModel.Running
}

func (e *sourceEntry) finish(stop source.Stop) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = sessionModel.Stopped
	e.stop = stop
}

// enqueue hands a batch to the export worker. It fails once the worker has been retired.
func (e *sourceEntry) enqueue(job exportJob) error {
	e.jobsMu.RLock()
	defer e.jobsMu.RUnlock()
	if e.jobsClosed {
		return ErrSourceClosed
	}
	e.jobs <- job
	return nil
}

func (e *sourceEntry) closeJobs() {
	e.jobsMu.Lock()
	defer e.jobsMu.Unlock()
	if e.jobsClosed {
		return
	}
	e.jobsClosed = true
	close(e.jobs)
}

func (e *sourceEntry) info() sessionModel.SourceInfo {
	e.mu.Lock()
	state, stop := e.state, e.stop
	e.mu.Unlock()

	info := sessionModel.SourceInfo{
		Id:         e.id,
		Kind:       e.kind(),
		State:      state,
		Path:       e.path,
		OutputPath: e.outputPath,
		Buffered:   e.acc.Len(),
		Ingested:   e.acc.Ingested(),
		Discarded:  e.discarded.Load(),
		StopReason: string(stop.Reason),
	}
	if stop.Err != nil {
		info.StopError = stop.Err.Error()
	}
	if e.device != nil {
		config := e.device.Config()
		info.Port = config.Port
		info.BaudRate = config.BaudRate
	}
	return info
}
