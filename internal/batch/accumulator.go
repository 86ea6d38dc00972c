package batch

import (
	"github.com/Avi18971911/Tally/internal/ingest/model"
	"sync"
)

// DefaultThreshold is the record count at which a streaming batch is exported.
const DefaultThreshold = 60

// FlushFunc receives a batch that was detached from the accumulator. It owns the slice.
type FlushFunc func(records []model.LogRecord)

// Accumulator buffers tagged records for one source.
type Accumulator interface {
	Append(record model.LogRecord)
	// Flush detaches the current batch, hands it to the flush callback and returns it.
	Flush() []model.LogRecord
	// Take detaches the current batch without invoking the flush callback.
	Take() []model.LogRecord
	// Snapshot copies the current batch without clearing it.
	Snapshot() []model.LogRecord
	// Replace swaps the whole batch, used when a file source is reloaded.
	Replace(records []model.LogRecord)
	Len() int
	Ingested() int64
}

// AccumulatorImpl exports automatically once threshold records are buffered.
// A threshold of zero or less disables automatic export.
type AccumulatorImpl struct {
	mu        sync.Mutex
	records   []model.LogRecord
	threshold int
	ingested  int64
	flush     FlushFunc
}

func NewAccumulator(threshold int, flush FlushFunc) *AccumulatorImpl {
	return &AccumulatorImpl{
		records:   []model.LogRecord{},
		threshold: threshold,
		flush:     flush,
	}
}

// NewHoldingAccumulator never exports on its own; the caller requests exports explicitly.
func NewHoldingAccumulator() *AccumulatorImpl {
	return NewAccumulator(0, nil)
}

func (a *AccumulatorImpl) Append(record model.LogRecord) {
	a.mu.Lock()
	a.records = append(a.records, record)
	a.ingested++
	var ready []model.LogRecord
	if a.threshold > 0 && len(a.records) >= a.threshold {
		ready = a.detachLocked()
	}
	a.mu.Unlock()

	if ready != nil && a.flush != nil {
		a.flush(ready)
	}
}

func (a *AccumulatorImpl) Flush() []model.LogRecord {
	a.mu.Lock()
	ready := a.detachLocked()
	a.mu.Unlock()

	if len(ready) > 0 && a.flush != nil {
		a.flush(ready)
	}
	return ready
}

func (a *AccumulatorImpl) Take() []model.LogRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.detachLocked()
}

func (a *AccumulatorImpl) Snapshot() []model.LogRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	dup := make([]model.LogRecord, len(a.records))
	copy(dup, a.records)
	return dup
}

func (a *AccumulatorImpl) Replace(records []model.LogRecord) {
	dup := make([]model.LogRecord, len(records))
	copy(dup, records)
	a.mu.Lock()
	a.records = dup
	a.ingested = int64(len(dup))
	a.mu.Unlock()
}

func (a *AccumulatorImpl) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.records)
}

// Ingested is the total number of records ever appended since the last Replace.
func (a *AccumulatorImpl) Ingested() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ingested
}

func (a *AccumulatorImpl) detachLocked() []model.LogRecord {
	ready := a.records
	a.records = []model.LogRecord{}
	return ready
}
