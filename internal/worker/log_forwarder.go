package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/giftcard-platform/internal/config"
	"github.com/spec-kit/giftcard-platform/internal/events"
	"github.com/spec-kit/giftcard-platform/internal/observability"
)

// logRecord is the body accepted by the log service's POST /logs.
type logRecord struct {
	Service string         `json:"service"`
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// LogForwarder logs every published event locally and, when a log service URL
// is configured, ships it there from a background goroutine. Publishing never
// blocks: when the buffer is full the entry is dropped and counted.
type LogForwarder struct {
	service string
	url     string
	timeout time.Duration
	logger  *zap.Logger
	metrics *observability.Metrics

	mu      sync.Mutex
	stopped bool
	queue   chan logRecord
	wg      sync.WaitGroup
}

// errForwarderStopped is returned for events published after Stop.
var errForwarderStopped = errors.New("log forwarder stopped")

// NewLogForwarder builds a forwarder for the named service.
func NewLogForwarder(service string, cfg config.LogSinkConfig, logger *zap.Logger, metrics *observability.Metrics) *LogForwarder {
	size := cfg.BufferSize
	if size <= 0 {
		size = 256
	}
	url := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	return &LogForwarder{
		service: service,
		url:     url,
		timeout: cfg.Timeout(),
		logger:  logger,
		metrics: metrics,
		queue:   make(chan logRecord, size),
	}
}

// RegisterHandlers subscribes the forwarder to every event type.
func (f *LogForwarder) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	dispatcher.Subscribe(events.AllEvents, f.handle)
}

// Start launches the delivery goroutine. It is a no-op without a URL.
func (f *LogForwarder) Start() {
	if f.url == "" {
		return
	}
	f.wg.Add(1)
	go f.run()
}

// Stop closes the queue and waits for buffered entries to be delivered or
// until ctx is done. Events handled afterwards are logged but not shipped.
func (f *LogForwarder) Stop(ctx context.Context) {
	f.mu.Lock()
	if !f.stopped {
		f.stopped = true
		close(f.queue)
	}
	f.mu.Unlock()
	done := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		f.logger.Warn("log forwarder stopped before draining", zap.Int("pending", len(f.queue)))
	}
}

func (f *LogForwarder) handle(_ context.Context, event events.Event) error {
	level := "info"
	if event.Type == events.EventLoginFailed {
		level = "warn"
	}
	f.logger.Info("session event",
		zap.String("event", string(event.Type)),
		zap.String("account_id", event.AccountID),
		zap.Any("payload", event.Payload))

	if f.url == "" {
		return nil
	}
	record := logRecord{
		Service: f.service,
		Level:   level,
		Message: string(event.Type),
		Meta: map[string]any{
			"event_id":   event.ID,
			"account_id": event.AccountID,
			"payload":    event.Payload,
			"timestamp":  event.Timestamp,
		},
	}
	return f.enqueue(record)
}

func (f *LogForwarder) enqueue(record logRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopped {
		f.metrics.RecordForwardDropped()
		return fmt.Errorf("%w, dropped %s", errForwarderStopped, record.Message)
	}
	select {
	case f.queue <- record:
		return nil
	default:
		f.metrics.RecordForwardDropped()
		return fmt.Errorf("log forward buffer full, dropped %s", record.Message)
	}
}

func (f *LogForwarder) run() {
	defer f.wg.Done()
	for record := range f.queue {
		if err := f.send(record); err != nil {
			f.metrics.RecordForwardDropped()
			f.logger.Warn("log forward failed", zap.String("message", record.Message), zap.Error(err))
		}
	}
}

func (f *LogForwarder) send(record logRecord) error {
	agent := fiber.Post(f.url + "/logs")
	agent.JSON(record)
	agent.Timeout(f.timeout)
	if err := agent.Parse(); err != nil {
		return err
	}
	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return errs[0]
	}
	if code >= fiber.StatusBadRequest {
		return fmt.Errorf("log service returned %d: %s", code, body)
	}
	return nil
}
