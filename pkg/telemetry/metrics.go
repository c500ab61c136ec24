package telemetry

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
)

// Result label values for store operations. Failed operations use the
// error class instead (not_found, constraint, locked, internal).
const (
	ResultOK = "ok"
)

// Metrics provides Prometheus metrics for the record store.
type Metrics struct {
	config MetricsConfig

	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	columnsAdded      *prometheus.CounterVec
	demoRowsPurged    *prometheus.CounterVec
	eventsPublished   *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
// A disabled configuration yields a Metrics whose Record methods do nothing.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_operations_total",
				Help:      "Total number of record store operations by result",
			},
			[]string{"entity", "operation", "result"},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_operation_duration_seconds",
				Help:      "Duration of record store operations in seconds",
				Buckets:   buckets,
			},
			[]string{"entity", "operation"},
		),
		columnsAdded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "schema_columns_added_total",
				Help:      "Columns added by additive schema migration",
			},
			[]string{"table", "column"},
		),
		demoRowsPurged: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "demo_rows_purged_total",
				Help:      "Demo rows removed by the startup purge",
			},
			[]string{"table"},
		),
		eventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_published_total",
				Help:      "Record change events published",
			},
			[]string{"type"},
		),
	}

	registry.MustRegister(
		m.operations,
		m.operationDuration,
		m.columnsAdded,
		m.demoRowsPurged,
		m.eventsPublished,
	)

	return m, nil
}

// RecordOperation records one store operation with its result and duration.
func (m *Metrics) RecordOperation(entity, operation, result string, duration time.Duration) {
	if m.operations == nil {
		return
	}
	m.operations.WithLabelValues(entity, operation, result).Inc()
	m.operationDuration.WithLabelValues(entity, operation).Observe(duration.Seconds())
}

// RecordColumnAdded counts a column added by schema evolution.
func (m *Metrics) RecordColumnAdded(table, column string) {
	if m.columnsAdded == nil {
		return
	}
	m.columnsAdded.WithLabelValues(table, column).Inc()
}

// RecordDemoRowsPurged adds n purged demo rows for table.
func (m *Metrics) RecordDemoRowsPurged(table string, n int64) {
	if m.demoRowsPurged == nil || n <= 0 {
		return
	}
	m.demoRowsPurged.WithLabelValues(table).Add(float64(n))
}

// RecordEventPublished counts a published event by type.
func (m *Metrics) RecordEventPublished(eventType string) {
	if m.eventsPublished == nil {
		return
	}
	m.eventsPublished.WithLabelValues(eventType).Inc()
}

// Registry returns the underlying registry, nil when metrics are disabled.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// WriteText writes every gathered metric family to w in the Prometheus text
// exposition format. The CLI uses it to dump metrics when a command exits.
func (m *Metrics) WriteText(w io.Writer) error {
	if m.registry == nil {
		return nil
	}

	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("failed to encode metric family %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
