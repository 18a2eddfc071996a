package middleware

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/livehooks/internal/errors"
)

// MetricsConfig configures the Prometheus metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "livehooks").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for event duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "livehooks",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the server's Prometheus collectors.
type Metrics struct {
	eventsTotal    *prometheus.CounterVec
	eventDuration  *prometheus.HistogramVec
	eventErrors    *prometheus.CounterVec
	activeSockets  prometheus.Gauge
	csrfRejections prometheus.Counter
	execsTotal     *prometheus.CounterVec
}

// NewMetrics registers the collectors.
//
// Metrics collected:
//   - livehooks_events_total: events by name and status
//   - livehooks_event_duration_seconds: event handling duration
//   - livehooks_event_errors_total: failed events by name and error category
//   - livehooks_active_sockets: open live connections
//   - livehooks_csrf_rejections_total: socket handshakes refused for a bad token
//   - livehooks_execs_total: remote-exec requests broadcast, by method
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		eventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "events_total",
			Help:        "Total number of live events processed",
			ConstLabels: config.ConstLabels,
		}, []string{"event", "status"}),

		eventDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "event_duration_seconds",
			Help:        "Event processing duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"event"}),

		eventErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "event_errors_total",
			Help:        "Total number of event processing errors",
			ConstLabels: config.ConstLabels,
		}, []string{"event", "error_type"}),

		activeSockets: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "active_sockets",
			Help:        "Number of open live connections",
			ConstLabels: config.ConstLabels,
		}),

		csrfRejections: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "csrf_rejections_total",
			Help:        "Socket handshakes rejected for a missing or invalid CSRF token",
			ConstLabels: config.ConstLabels,
		}),

		execsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "execs_total",
			Help:        "Remote-exec requests broadcast to clients",
			ConstLabels: config.ConstLabels,
		}, []string{"method"}),
	}
}

// Middleware records count, duration and errors of every event.
func (m *Metrics) Middleware() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, ev *Event) error {
			name := ev.Name()
			start := time.Now()

			err := next(ctx, ev)

			m.eventDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
			status := "success"
			if err != nil {
				status = "error"
				m.eventErrors.WithLabelValues(name, categorizeError(err)).Inc()
			}
			m.eventsTotal.WithLabelValues(name, status).Inc()
			return err
		}
	}
}

// categorizeError keeps error labels low-cardinality.
func categorizeError(err error) string {
	var le *errors.LiveError
	switch {
	case stderrors.As(err, &le) && le.Category != "":
		return string(le.Category)
	case stderrors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case stderrors.Is(err, context.Canceled):
		return "canceled"
	}
	return "internal"
}

// SocketOpened records a new live connection.
func (m *Metrics) SocketOpened() {
	m.activeSockets.Inc()
}

// SocketClosed records a closed live connection.
func (m *Metrics) SocketClosed() {
	m.activeSockets.Dec()
}

// CSRFRejected records a refused handshake.
func (m *Metrics) CSRFRejected() {
	m.csrfRejections.Inc()
}

// ExecBroadcast records a remote-exec request sent to clients.
func (m *Metrics) ExecBroadcast(method string) {
	m.execsTotal.WithLabelValues(method).Inc()
}
