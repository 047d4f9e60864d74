package observe

import (
	"context"
	"time"
)

// CallFunc is the signature of an instrumented API call.
type CallFunc func(ctx context.Context, meta CallMeta) error

// Middleware wraps API calls with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: Wrap() returns a thread-safe CallFunc.
//   - Context: the span context is passed to the wrapped call.
//   - Errors: errors from the wrapped call are recorded and propagated unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware. Nil components are replaced by no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = NopTracer()
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{tracer: tracer, metrics: metrics, logger: logger}
}

// MiddlewareFromObserver builds a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

// Metrics returns the middleware's metrics recorder.
func (m *Middleware) Metrics() Metrics { return m.metrics }

// Logger returns the middleware's logger.
func (m *Middleware) Logger() Logger { return m.logger }

// Wrap wraps fn with a span, call metrics and a completion log line.
func (m *Middleware) Wrap(fn CallFunc) CallFunc {
	return func(ctx context.Context, meta CallMeta) error {
		ctx, span := m.tracer.StartSpan(ctx, meta)
		start := time.Now()

		err := fn(ctx, meta)

		duration := time.Since(start)
		m.tracer.EndSpan(span, err)
		m.metrics.RecordCall(ctx, meta, duration, err)

		fields := []Field{
			{Key: "group", Value: meta.Group},
			{Key: "operation", Value: meta.Operation},
			{Key: "method", Value: meta.Method},
			{Key: "path", Value: meta.Path},
			{Key: "duration_ms", Value: float64(duration.Milliseconds())},
		}
		if err != nil {
			fields = append(fields, Field{Key: "error", Value: err.Error()})
			m.logger.Error(ctx, "shora call failed", fields...)
		} else {
			m.logger.Debug(ctx, "shora call completed", fields...)
		}

		return err
	}
}
