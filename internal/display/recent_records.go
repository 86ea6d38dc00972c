package display

import (
	"github.com/Avi18971911/Tally/internal/event_bus"
	"github.com/Avi18971911/Tally/internal/ingest/model"
	keywordService "github.com/Avi18971911/Tally/internal/keyword/service"
	"go.uber.org/zap"
	"sync"
)

const DefaultCapacity = 500

// RecentRecords keeps the last records seen per source for a display collaborator.
type RecentRecords interface {
	// Records returns the retained records of a source, oldest first. A non-empty filter keeps
	// only records containing it case-insensitively.
	Records(sourceId string, filter string) []model.LogRecord
	Forget(sourceId string)
}

type RecentRecordsImpl struct {
	mu       sync.RWMutex
	rings    map[string]*ring
	capacity int
	logger   *zap.Logger
}

func NewRecentRecords(capacity int, logger *zap.Logger) *RecentRecordsImpl {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &RecentRecordsImpl{
		rings:    make(map[string]*ring),
		capacity: capacity,
		logger:   logger,
	}
}

// Attach feeds the view from ingested-record events.
func (rr *RecentRecordsImpl) Attach(
	bus event_bus.TallyEventBus[event_bus.RecordsIngested, event_bus.RecordsIngested],
) error {
	return bus.Subscribe(event_bus.RecordsIngestedTopic, func(input event_bus.RecordsIngested) error {
		if input.Replace {
			rr.Forget(input.SourceId)
		}
		if len(input.Records) > 0 {
			rr.Add(input.SourceId, input.Records)
		}
		return nil
	}, true)
}

func (rr *RecentRecordsImpl) Add(sourceId string, records []model.LogRecord) {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	r, ok := rr.rings[sourceId]
	if !ok {
		r = newRing(rr.capacity)
		rr.rings[sourceId] = r
	}
	for _, record := range records {
		r.push(record)
	}
}

func (rr *RecentRecordsImpl) Records(sourceId string, filter string) []model.LogRecord {
	rr.mu.RLock()
	defer rr.mu.RUnlock()
	r, ok := rr.rings[sourceId]
	if !ok {
		return []model.LogRecord{}
	}
	records := r.ordered()
	if filter == "" {
		return records
	}
	filtered := make([]model.LogRecord, 0, len(records))
	for _, record := range records {
		if keywordService.ContainsFold(record.Message, filter) {
			filtered = append(filtered, record)
		}
	}
	return filtered
}

func (rr *RecentRecordsImpl) Forget(sourceId string) {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	delete(rr.rings, sourceId)
}

type ring struct {
	items []model.LogRecord
	next  int
	count int
}

func newRing(capacity int) *ring {
	return &ring{items: make([]model.LogRecord, capacity)}
}

func (r *ring) push(record model.LogRecord) {
	r.items[r.next] = record
	r.next = (r.next + 1) % len(r.items)
	if r.count < len(r.items) {
		r.count++
	}
}

func (r *ring) ordered() []model.LogRecord {
	out := make([]model.LogRecord, r.count)
	if r.count < len(r.items) {
		copy(out, r.items[:r.count])
		return out
	}
	for i := 0; i < r.count; i++ {
		out[i] = r.items[(r.next+i)%len(r.items)]
	}
	return out
}
