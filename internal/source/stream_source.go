package source

import (
	"context"
	"errors"
	"github.com/Avi18971911/Tally/internal/ingest/model"
)

var (
	ErrNotRestartable = errors.New("source cannot be restarted")
	ErrPortNotOpen    = errors.New("port is not open")
)

type StopReason string

const (
	// StopReasonCancelled means the caller stopped the source.
	StopReasonCancelled StopReason = "cancelled"
	// StopReasonEndOfStream means the source ran out of data.
	StopReasonEndOfStream StopReason = "end_of_stream"
	// StopReasonError means the source failed; Stop.Err carries the cause.
	StopReasonError StopReason = "error"
)

// Stop reports why a StreamSource returned.
type Stop struct {
	Reason StopReason
	Err    error
}

func (s Stop) Faulted() bool {
	return s.Reason == StopReasonError
}

// StreamSource produces raw lines in order until it runs out, fails or is cancelled.
type StreamSource interface {
	Id() string
	Kind() model.SourceKind
	Restartable() bool
	// Stream blocks, calling emit for every line, and returns once the source stops.
	Stream(ctx context.Context, emit func(line model.RawLine)) Stop
}

func stopFromContext(ctx context.Context, err error) Stop {
	if ctx.Err() != nil {
		return Stop{Reason: StopReasonCancelled}
	}
	return Stop{Reason: StopReasonError, Err: err}
}
