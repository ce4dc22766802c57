package metrics

import (
	"context"
	"log/slog"
	"time"
)

type EventType string

const (
	EventRequestCompleted    EventType = "request_completed"
	EventBreakerRejected     EventType = "breaker_rejected"
	EventBreakerStateChanged EventType = "breaker_state_changed"
	EventHealthChanged       EventType = "health_changed"
)

type MetricEvent struct {
	Type       EventType
	Timestamp  time.Time
	Route      string
	Backend    string
	Duration   time.Duration
	StatusCode int
	Healthy    bool
	Open       bool
}

// Collector consumes events off the request path and folds them into
// Metrics and, when configured, the Prometheus exporter.
type Collector struct {
	eventCh  chan MetricEvent
	metrics  *Metrics
	exporter *Exporter
	logger   *slog.Logger
}

func NewCollector(bufferSize int, logger *slog.Logger, exporter *Exporter) *Collector {
	return &Collector{
		eventCh:  make(chan MetricEvent, bufferSize),
		metrics:  NewMetrics(),
		exporter: exporter,
		logger:   logger,
	}
}

// Emit queues an event without blocking. Events are dropped when the buffer
// is full. A nil Collector ignores all events.
func (c *Collector) Emit(event MetricEvent) {
	if c == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case c.eventCh <- event:
	default:
		c.logger.Debug("Metrics buffer full, dropping event", slog.String("type", string(event.Type)))
	}
}

// Run processes events until ctx is cancelled, then drains what is buffered.
func (c *Collector) Run(ctx context.Context) error {
	c.logger.Info("Metrics collector started")
	defer c.logger.Info("Metrics collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			c.drain()
			return nil
		}
	}
}

func (c *Collector) processEvent(event MetricEvent) {
	switch event.Type {
	case EventRequestCompleted:
		c.metrics.RecordRequest(event.Route, event.Duration, event.StatusCode)
		c.exporter.observeRequest(event.Route, event.Duration, event.StatusCode)

	case EventBreakerRejected:
		c.metrics.RecordRejection(event.Route)
		c.exporter.observeRejection(event.Route)

	case EventBreakerStateChanged:
		c.metrics.UpdateBreakerState(event.Route, event.Open)
		c.exporter.observeBreakerState(event.Route, event.Open)

	case EventHealthChanged:
		c.metrics.UpdateHealthStatus(event.Backend, event.Healthy)
		c.exporter.observeHealth(event.Backend, event.Healthy)
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}

func (c *Collector) Snapshot() Snapshot {
	return c.metrics.Snapshot()
}
