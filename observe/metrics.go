package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric names.
const (
	MetricCallTotal          = "shora.call.total"
	MetricCallErrors         = "shora.call.errors"
	MetricCallDuration       = "shora.call.duration_ms"
	MetricRetryAttempts      = "shora.retry.attempts"
	MetricCircuitTransitions = "shora.circuit.transitions"
	MetricVaultOperations    = "shora.vault.operations"
)

// Metrics records client and vault metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordCall records one API call (after retries) with its duration and outcome.
	RecordCall(ctx context.Context, meta CallMeta, duration time.Duration, err error)

	// RecordRetry records a retry of a call in group.
	RecordRetry(ctx context.Context, group string, attempt int)

	// RecordCircuitTransition records a breaker state change.
	RecordCircuitTransition(ctx context.Context, group, from, to string)

	// RecordVaultOperation records an audited vault action.
	RecordVaultOperation(ctx context.Context, action, status string)
}

type metricsImpl struct {
	callTotal    metric.Int64Counter
	callErrors   metric.Int64Counter
	callDuration metric.Float64Histogram
	retries      metric.Int64Counter
	transitions  metric.Int64Counter
	vaultOps     metric.Int64Counter
}

// NewMetrics creates Metrics backed by meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	m := &metricsImpl{}
	var err error

	if m.callTotal, err = meter.Int64Counter(MetricCallTotal,
		metric.WithDescription("Total number of Shora API calls"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, err
	}
	if m.callErrors, err = meter.Int64Counter(MetricCallErrors,
		metric.WithDescription("Total number of failed Shora API calls"),
		metric.WithUnit("{error}"),
	); err != nil {
		return nil, err
	}
	if m.callDuration, err = meter.Float64Histogram(MetricCallDuration,
		metric.WithDescription("Shora API call duration including retries, in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if m.retries, err = meter.Int64Counter(MetricRetryAttempts,
		metric.WithDescription("Retries of Shora API calls"),
		metric.WithUnit("{retry}"),
	); err != nil {
		return nil, err
	}
	if m.transitions, err = meter.Int64Counter(MetricCircuitTransitions,
		metric.WithDescription("Circuit breaker state transitions"),
		metric.WithUnit("{transition}"),
	); err != nil {
		return nil, err
	}
	if m.vaultOps, err = meter.Int64Counter(MetricVaultOperations,
		metric.WithDescription("Audited token vault operations"),
		metric.WithUnit("{operation}"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *metricsImpl) RecordCall(ctx context.Context, meta CallMeta, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{attribute.String("shora.group", meta.Group)}
	if meta.Operation != "" {
		attrs = append(attrs, attribute.String("shora.operation", meta.Operation))
	}
	opt := metric.WithAttributes(attrs...)

	m.callTotal.Add(ctx, 1, opt)
	if err != nil {
		m.callErrors.Add(ctx, 1, opt)
	}
	m.callDuration.Record(ctx, float64(duration.Milliseconds()), opt)
}

func (m *metricsImpl) RecordRetry(ctx context.Context, group string, attempt int) {
	m.retries.Add(ctx, 1, metric.WithAttributes(
		attribute.String("shora.group", group),
		attribute.Int("shora.retry.attempt", attempt),
	))
}

func (m *metricsImpl) RecordCircuitTransition(ctx context.Context, group, from, to string) {
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("shora.group", group),
		attribute.String("shora.circuit.from", from),
		attribute.String("shora.circuit.to", to),
	))
}

func (m *metricsImpl) RecordVaultOperation(ctx context.Context, action, status string) {
	m.vaultOps.Add(ctx, 1, metric.WithAttributes(
		attribute.String("shora.vault.action", action),
		attribute.String("shora.vault.status", status),
	))
}

// NopMetrics returns a Metrics that records nothing.
func NopMetrics() Metrics {
	return nopMetrics{}
}

type nopMetrics struct{}

func (nopMetrics) RecordCall(context.Context, CallMeta, time.Duration, error) {
}

func (nopMetrics) RecordRetry(context.Context, string, int) {
}

func (nopMetrics) RecordCircuitTransition(context.Context, string, string, string) {
}

func (nopMetrics) RecordVaultOperation(context.Context, string, string) {
}
