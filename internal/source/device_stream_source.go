package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"github.com/Avi18971911/Tally/internal/ingest/model"
	"go.uber.org/zap"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

type DeviceConfig struct {
	Port     string
	BaudRate int
}

// DeviceStreamSource reads newline-terminated lines from a device channel until the
// channel closes, fails or the stream context is cancelled. It runs at most once.
type DeviceStreamSource struct {
	id      string
	config  DeviceConfig
	opener  PortOpener
	mu      sync.Mutex
	port    Port
	started atomic.Bool
	closed  atomic.Bool
	now     func() time.Time
	logger  *zap.Logger
}

func NewDeviceStreamSource(
	id string,
	config DeviceConfig,
	opener PortOpener,
	logger *zap.Logger,
) *DeviceStreamSource {
	if opener == nil {
		opener = OpenSerialPort
	}
	return &DeviceStreamSource{
		id:     id,
		config: config,
		opener: opener,
		now:    time.Now,
		logger: logger,
	}
}

func (d *DeviceStreamSource) Id() string {
	return d.id
}

func (d *DeviceStreamSource) Kind() model.SourceKind {
	return model.DeviceKind
}

func (d *DeviceStreamSource) Restartable() bool {
	return false
}

func (d *DeviceStreamSource) Config() DeviceConfig {
	return d.config
}

// Open opens the channel ahead of Stream so that an unavailable port is reported to
// the caller before any background loop starts.
func (d *DeviceStreamSource) Open() error {
	if d.closed.Load() {
		return ErrNotRestartable
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.port != nil {
		return nil
	}
	port, err := d.opener(d.config.Port, d.config.BaudRate)
	if err != nil {
		return err
	}
	d.port = port
	d.logger.Info(
		"Opened device channel",
		zap.String("source_id", d.id),
		zap.String("port", d.config.Port),
		zap.Int("baud_rate", d.config.BaudRate),
	)
	return nil
}

func (d *DeviceStreamSource) Stream(ctx context.Context, emit func(line model.RawLine)) Stop {
	if !d.started.CompareAndSwap(false, true) {
		return Stop{Reason: StopReasonError, Err: ErrNotRestartable}
	}
	if err := d.Open(); err != nil {
		d.closed.Store(true)
		return Stop{Reason: StopReasonError, Err: err}
	}

	d.mu.Lock()
	port := d.port
	d.mu.Unlock()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			d.Close()
		case <-done:
		}
	}()

	reader := bufio.NewReader(port)
	for {
		text, err := reader.ReadString('\n')
		if text != "" {
			emit(model.RawLine{Text: text, SourceId: d.id, ReceivedAt: d.now()})
		}
		if err != nil {
			d.Close()
			stop := d.stopFor(ctx, err)
			d.logger.Info(
				"Device read loop stopped",
				zap.String("source_id", d.id),
				zap.String("reason", string(stop.Reason)),
				zap.Error(stop.Err),
			)
			return stop
		}
	}
}

func (d *DeviceStreamSource) stopFor(ctx context.Context, err error) Stop {
	if ctx.Err() != nil {
		return Stop{Reason: StopReasonCancelled}
	}
	if errors.Is(err, io.EOF) {
		return Stop{Reason: StopReasonEndOfStream}
	}
	return stopFromContext(ctx, fmt.Errorf("failed to read from %s: %w", d.config.Port, err))
}

// SendCommand writes command followed by a newline to the open channel.
func (d *DeviceStreamSource) SendCommand(command string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.port == nil || d.closed.Load() {
		return ErrPortNotOpen
	}
	if _, err := d.port.Write([]byte(command + "\n")); err != nil {
		return fmt.Errorf("failed to write command to %s: %w", d.config.Port, err)
	}
	return nil
}

// Close releases the channel. Any blocked read returns and the source is finished.
func (d *DeviceStreamSource) Close() error {
	d.closed.Store(true)
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.port == nil {
		return nil
	}
	err := d.port.Close()
	d.port = nil
	if err != nil {
		return fmt.Errorf("failed to close %s: %w", d.config.Port, err)
	}
	return nil
}
