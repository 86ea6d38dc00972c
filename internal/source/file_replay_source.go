package source

import (
	"bufio"
	"context"
	"fmt"
	"github.com/Avi18971911/Tally/internal/ingest/model"
	"os"
	"time"
)

const maxReplayLineLen = 1024 * 1024

// FileReplaySource reads a log file from the start every time it is streamed.
type FileReplaySource struct {
	id   string
	path string
	now  func() time.Time
}

func NewFileReplaySource(id string, path string) *FileReplaySource {
	return &FileReplaySource{id: id, path: path, now: time.Now}
}

func (f *FileReplaySource) Id() string {
	return f.id
}

func (f *FileReplaySource) Kind() model.SourceKind {
	return model.FileReplayKind
}

func (f *FileReplaySource) Restartable() bool {
	return true
}

func (f *FileReplaySource) Path() string {
	return f.path
}

func (f *FileReplaySource) Stream(ctx context.Context, emit func(line model.RawLine)) Stop {
	file, err := os.Open(f.path)
	if err != nil {
		return Stop{Reason: StopReasonError, Err: fmt.Errorf("failed to open log file %s: %w", f.path, err)}
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), maxReplayLineLen)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return Stop{Reason: StopReasonCancelled}
		}
		emit(model.RawLine{Text: scanner.Text(), SourceId: f.id, ReceivedAt: f.now()})
	}
	if err := scanner.Err(); err != nil {
		return Stop{Reason: StopReasonError, Err: fmt.Errorf("failed to read log file %s: %w", f.path, err)}
	}
	return Stop{Reason: StopReasonEndOfStream}
}
