package http

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/bizrank/review-service/internal/http/ratelimit"
)

// EventKind is the type of a provider metric event
type EventKind string

const (
	EventRequest EventKind = "request"
	EventSuccess EventKind = "success"
	EventError   EventKind = "error"
)

// MetricEvent describes one provider call attempt
type MetricEvent struct {
	Endpoint string
	Kind     EventKind
	Status   int
	Class    ratelimit.ErrorClass
	Latency  time.Duration
	Attempt  int
}

// MetricSink receives provider metric events
type MetricSink interface {
	Record(event MetricEvent)
}

// NopSink discards events
type NopSink struct{}

// Record implements MetricSink
func (NopSink) Record(MetricEvent) {}

var (
	// providerRequests counts provider call attempts by endpoint and outcome.
	providerRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "provider_requests_total",
		Help: "Total number of provider request attempts by endpoint and outcome",
	}, []string{"endpoint", "outcome"})

	// providerErrors counts failed attempts by error class.
	providerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "provider_errors_total",
		Help: "Total number of failed provider requests by error class",
	}, []string{"endpoint", "class"})

	// providerLatency tracks provider response latency.
	providerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "provider_request_duration_seconds",
		Help:    "Provider request latency",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"endpoint"})

	// providerMetricsDropped counts events dropped by a full dispatcher.
	providerMetricsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "provider_metric_events_dropped_total",
		Help: "Metric events dropped because the dispatcher buffer was full",
	})
)

// PrometheusSink records events into prometheus collectors
type PrometheusSink struct{}

// Record implements MetricSink
func (PrometheusSink) Record(e MetricEvent) {
	providerRequests.WithLabelValues(e.Endpoint, string(e.Kind)).Inc()
	if e.Kind == EventError {
		providerErrors.WithLabelValues(e.Endpoint, string(e.Class)).Inc()
	}
	if e.Kind != EventRequest {
		providerLatency.WithLabelValues(e.Endpoint).Observe(e.Latency.Seconds())
	}
}

// AsyncSink forwards events to an inner sink from a background goroutine.
// Record never blocks: events are dropped when the buffer is full and a
// panicking inner sink is recovered.
type AsyncSink struct {
	inner  MetricSink
	events chan MetricEvent
	done   chan struct{}
	once   sync.Once
	logger zerolog.Logger
}

// NewAsyncSink starts a dispatcher with the given buffer size
func NewAsyncSink(inner MetricSink, buffer int, logger *zerolog.Logger) *AsyncSink {
	if buffer < 1 {
		buffer = 256
	}
	l := zerolog.Nop()
	if logger != nil {
		l = *logger
	}
	s := &AsyncSink{
		inner:  inner,
		events: make(chan MetricEvent, buffer),
		done:   make(chan struct{}),
		logger: l,
	}
	go s.run()
	return s
}

// Record implements MetricSink
func (s *AsyncSink) Record(e MetricEvent) {
	defer func() {
		// send on closed channel after Close
		_ = recover()
	}()
	select {
	case s.events <- e:
	default:
		providerMetricsDropped.Inc()
	}
}

// Close stops the dispatcher after draining buffered events
func (s *AsyncSink) Close() {
	s.once.Do(func() {
		close(s.events)
		<-s.done
	})
}

func (s *AsyncSink) run() {
	defer close(s.done)
	for e := range s.events {
		s.deliver(e)
	}
}

func (s *AsyncSink) deliver(e MetricEvent) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Msg("Metric sink panicked")
		}
	}()
	s.inner.Record(e)
}
