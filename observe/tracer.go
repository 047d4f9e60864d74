package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// CallMeta describes one outbound API call for telemetry purposes.
type CallMeta struct {
	Group     string // endpoint group, e.g. "payments" (required)
	Operation string // logical operation, e.g. "create_session"
	Method    string // HTTP method
	Path      string // request path without query
	TenantID  string
}

// SpanName returns the span name for this call.
// Format: shora.<group>.<operation> or shora.<group>
func (m CallMeta) SpanName() string {
	if m.Operation != "" {
		return "shora." + m.Group + "." + m.Operation
	}
	return "shora." + m.Group
}

func (m CallMeta) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("shora.group", m.Group),
	}
	if m.Operation != "" {
		attrs = append(attrs, attribute.String("shora.operation", m.Operation))
	}
	if m.Method != "" {
		attrs = append(attrs, attribute.String("http.request.method", m.Method))
	}
	if m.Path != "" {
		attrs = append(attrs, attribute.String("url.path", m.Path))
	}
	if m.TenantID != "" {
		attrs = append(attrs, attribute.String("shora.tenant_id", m.TenantID))
	}
	return attrs
}

// Tracer wraps OpenTelemetry tracing with call-specific span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a client span for an API call.
	StartSpan(ctx context.Context, meta CallMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	if t == nil {
		return NopTracer()
	}
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartSpan(ctx context.Context, meta CallMeta) (context.Context, trace.Span) {
	attrs := append(meta.attributes(), attribute.Bool("shora.error", false))
	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("shora.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// NopTracer returns a tracer that records nothing.
func NopTracer() Tracer {
	return &noopTracer{noop: tracenoop.NewTracerProvider().Tracer("noop")}
}

type noopTracer struct {
	noop trace.Tracer
}

func (t *noopTracer) StartSpan(ctx context.Context, meta CallMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, err error) {
	span.End()
}
