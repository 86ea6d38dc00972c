package source

import (
	"context"
	"github.com/Avi18971911/Tally/internal/ingest/model"
	protoLogs "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	v1 "go.opentelemetry.io/proto/otlp/logs/v1"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"sync/atomic"
	"time"
)

const otlpQueueSize = 1024

// OtlpLogSource receives OTLP log exports over gRPC and streams each record body as a line.
// Exports are refused while the source is not streaming.
type OtlpLogSource struct {
	protoLogs.UnimplementedLogsServiceServer
	id        string
	lines     chan model.RawLine
	streaming atomic.Bool
	logger    *zap.Logger
}

func NewOtlpLogSource(id string, logger *zap.Logger) *OtlpLogSource {
	logger.Info("Creating new OtlpLogSource", zap.String("source_id", id))
	return &OtlpLogSource{
		id:     id,
		lines:  make(chan model.RawLine, otlpQueueSize),
		logger: logger,
	}
}

func (o *OtlpLogSource) Id() string {
	return o.id
}

func (o *OtlpLogSource) Kind() model.SourceKind {
	return model.OtlpKind
}

func (o *OtlpLogSource) Restartable() bool {
	return false
}

func (o *OtlpLogSource) Export(
	ctx context.Context,
	req *protoLogs.ExportLogsServiceRequest,
) (*protoLogs.ExportLogsServiceResponse, error) {
	if !o.streaming.Load() {
		return nil, status.Error(codes.Unavailable, "log source is not streaming")
	}
	for _, resourceLogs := range req.ResourceLogs {
		for _, scopeLog := range resourceLogs.ScopeLogs {
			for _, log := range scopeLog.LogRecords {
				line := o.toRawLine(log)
				select {
				case o.lines <- line:
				case <-ctx.Done():
					return nil, status.FromContextError(ctx.Err()).Err()
				}
			}
		}
	}
	return &protoLogs.ExportLogsServiceResponse{}, nil
}

func (o *OtlpLogSource) toRawLine(log *v1.LogRecord) model.RawLine {
	receivedAt := time.Now()
	if log.TimeUnixNano != 0 {
		receivedAt = time.Unix(0, int64(log.TimeUnixNano))
	} else if log.ObservedTimeUnixNano != 0 {
		receivedAt = time.Unix(0, int64(log.ObservedTimeUnixNano))
	}
	return model.RawLine{
		Text:       log.Body.GetStringValue(),
		SourceId:   o.id,
		ReceivedAt: receivedAt,
	}
}

func (o *OtlpLogSource) Stream(ctx context.Context, emit func(line model.RawLine)) Stop {
	if !o.streaming.CompareAndSwap(false, true) {
		return Stop{Reason: StopReasonError, Err: ErrNotRestartable}
	}
	defer o.streaming.Store(false)
	for {
		select {
		case line := <-o.lines:
			emit(line)
		case <-ctx.Done():
			return Stop{Reason: StopReasonCancelled}
		}
	}
}
