package parser

import (
	"github.com/Avi18971911/Tally/internal/ingest/model"
	"strings"
	"sync/atomic"
	"time"
	"unicode"
)

// TimeOfDayLayout is the shape of the leading token of a replayed log line, HH:MM:SS.ffffff.
const TimeOfDayLayout = "15:04:05.000000"

const maxFractionDigits = 6

// LineParser turns a raw line into a LogRecord. The boolean is false when the
// line is discarded.
type LineParser interface {
	Parse(line model.RawLine) (model.LogRecord, bool)
}

// FileReplayParser splits "<time-of-day> <message>" lines and drops anything else.
type FileReplayParser struct {
	next atomic.Int64
}

func NewFileReplayParser() *FileReplayParser {
	return &FileReplayParser{}
}

func (p *FileReplayParser) Parse(line model.RawLine) (model.LogRecord, bool) {
	timestamp, message, ok := SplitTimestampedLine(line.Text)
	if !ok {
		return model.LogRecord{}, false
	}
	return model.LogRecord{
		SequenceIndex: p.next.Add(1) - 1,
		SourceId:      line.SourceId,
		Timestamp:     timestamp,
		Message:       message,
	}, true
}

// StreamingParser accepts every line and stamps it with its arrival time.
type StreamingParser struct {
	next atomic.Int64
	now  func() time.Time
}

func NewStreamingParser() *StreamingParser {
	return &StreamingParser{now: time.Now}
}

func (p *StreamingParser) Parse(line model.RawLine) (model.LogRecord, bool) {
	arrival := line.ReceivedAt
	if arrival.IsZero() {
		arrival = p.now()
	}
	return model.LogRecord{
		SequenceIndex: p.next.Add(1) - 1,
		SourceId:      line.SourceId,
		Timestamp:     arrival,
		Message:       CleanStreamLine(line.Text),
	}, true
}

// SplitTimestampedLine separates the leading time-of-day token from the message.
// Both outer whitespace and the whitespace run between the two tokens are dropped.
func SplitTimestampedLine(line string) (time.Time, string, bool) {
	trimmed := strings.TrimSpace(line)
	cut := strings.IndexFunc(trimmed, unicode.IsSpace)
	if cut <= 0 {
		return time.Time{}, "", false
	}
	token := trimmed[:cut]
	message := strings.TrimLeftFunc(trimmed[cut:], unicode.IsSpace)
	if message == "" {
		return time.Time{}, "", false
	}
	timestamp, err := ParseTimeOfDay(token)
	if err != nil {
		return time.Time{}, "", false
	}
	return timestamp, message, true
}

// ParseTimeOfDay parses HH:MM:SS.f with one to six fractional digits.
func ParseTimeOfDay(token string) (time.Time, error) {
	dot := strings.LastIndexByte(token, '.')
	if dot < 0 {
		return time.Time{}, &time.ParseError{Layout: TimeOfDayLayout, Value: token, Message: ": missing fractional seconds"}
	}
	fraction := token[dot+1:]
	if len(fraction) == 0 || len(fraction) > maxFractionDigits || strings.IndexFunc(fraction, notDigit) >= 0 {
		return time.Time{}, &time.ParseError{Layout: TimeOfDayLayout, Value: token, Message: ": bad fractional seconds"}
	}
	return time.Parse("15:04:05", token)
}

// CleanStreamLine strips the line terminator and any bytes that are not valid UTF-8.
func CleanStreamLine(text string) string {
	text = strings.TrimRight(text, "\r\n")
	return strings.ToValidUTF8(text, "")
}

func notDigit(r rune) bool {
	return r < '0' || r > '9'
}
