package telemetry

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/trace"
)

// Telemetry bundles the logger, tracer, metrics and event publisher.
type Telemetry struct {
	Logger  *Logger
	Tracer  *Tracer
	Metrics *Metrics
	Events  *EventPublisher
	Config  *Config
}

// telemetryContextKey is the context key for telemetry instances.
type telemetryContextKey struct{}

// NewTelemetry creates a new telemetry instance from configuration.
func NewTelemetry(cfg *Config) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	tracer, err := NewTracer(cfg.Tracing, cfg.ServiceName, cfg.ServiceVersion, cfg.Environment)
	if err != nil {
		return nil, err
	}

	metrics, err := NewMetrics(cfg.Metrics)
	if err != nil {
		return nil, err
	}

	events, err := NewEventPublisher(cfg.Events)
	if err != nil {
		return nil, err
	}

	return &Telemetry{
		Logger:  logger,
		Tracer:  tracer,
		Metrics: metrics,
		Events:  events,
		Config:  cfg,
	}, nil
}

// WithContext adds the telemetry instance and its logger to the context.
func (t *Telemetry) WithContext(ctx context.Context) context.Context {
	ctx = context.WithValue(ctx, telemetryContextKey{}, t)
	ctx = t.Logger.WithContext(ctx)
	return ctx
}

// FromTelemetryContext retrieves the telemetry instance from the context.
// If no telemetry is found, it returns nil.
func FromTelemetryContext(ctx context.Context) *Telemetry {
	if t, ok := ctx.Value(telemetryContextKey{}).(*Telemetry); ok {
		return t
	}
	return nil
}

// Shutdown stops the event publisher, then the tracer.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if err := t.Events.Shutdown(ctx); err != nil {
		return err
	}
	return t.Tracer.Shutdown(ctx)
}

// classified is implemented by errors that carry a store error class.
type classified interface {
	ErrorClass() string
}

// resultOf maps an operation error to a metric result label.
func resultOf(err error) string {
	if err == nil {
		return ResultOK
	}
	var c classified
	if errors.As(err, &c) {
		return c.ErrorClass()
	}
	return "internal"
}

// RecordStoreOperation runs fn inside a store span and records its result and
// duration. A not_found result does not mark the span as failed. Without
// telemetry in ctx, fn runs unobserved.
func RecordStoreOperation(ctx context.Context, entity, operation string, fn func(ctx context.Context) error) error {
	tel := FromTelemetryContext(ctx)
	if tel == nil {
		return fn(ctx)
	}

	var span trace.Span
	ctx, span = tel.Tracer.StartStoreSpan(ctx, entity, operation)
	defer span.End()

	timer := NewTimer()
	err := fn(ctx)
	duration := timer.Duration()

	result := resultOf(err)
	tel.Metrics.RecordOperation(entity, operation, result, duration)

	switch result {
	case ResultOK:
		RecordSuccess(span)
	case "not_found":
		span.SetAttributes(AttrErrorClass.String(result))
	default:
		span.SetAttributes(AttrErrorClass.String(result))
		RecordError(span, err)
		logger := tel.Logger.NewComponentLogger("stores").
			WithEntity(entity).
			WithField("operation", operation).
			WithError(err)
		// Only internal failures are logged at error level.
		if result == "internal" {
			logger.Error("store operation failed")
		} else {
			logger.Debug("store operation failed")
		}
	}

	return err
}

// RecordSchemaColumnAdded counts a column added during schema evolution.
func RecordSchemaColumnAdded(ctx context.Context, table, column string) {
	if tel := FromTelemetryContext(ctx); tel != nil {
		tel.Metrics.RecordColumnAdded(table, column)
	}
}

// RecordDemoPurge records n demo rows removed from table and publishes a
// demo.purged event when n is positive.
func RecordDemoPurge(ctx context.Context, table string, n int64) {
	tel := FromTelemetryContext(ctx)
	if tel == nil || n <= 0 {
		return
	}
	tel.Metrics.RecordDemoRowsPurged(table, n)
	if !tel.Events.Enabled() {
		return
	}
	if err := tel.Events.PublishDemoPurged(table, n); err != nil {
		tel.Logger.WithError(err).Warn("failed to publish demo purge event")
		return
	}
	tel.Metrics.RecordEventPublished(EventTypeDemoPurged)
}

// PublishRecordChanged publishes a record change event through the telemetry
// in ctx, if any. Publish failures are logged, never returned.
func PublishRecordChanged(ctx context.Context, eventType, entity string, id int64) {
	tel := FromTelemetryContext(ctx)
	if tel == nil || !tel.Events.Enabled() {
		return
	}
	if err := tel.Events.PublishRecordChanged(eventType, entity, id); err != nil {
		tel.Logger.WithEntity(entity).WithRecordID(id).WithError(err).
			Warn("failed to publish record event")
		return
	}
	tel.Metrics.RecordEventPublished(eventType)
}
