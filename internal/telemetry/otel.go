package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// otelTracer adapts an OpenTelemetry trace.Tracer to the Tracer interface,
// so the compiler's pass driver and emitter can emit spans against any
// OTel-compatible backend the host process has configured.
type otelTracer struct {
	tracer trace.Tracer
}

type otelSpan struct {
	span trace.Span
}

// NewOTel wraps an OpenTelemetry tracer obtained from the host process
// (typically otel.Tracer("graphc")) as a Tracer.
func NewOTel(tracer trace.Tracer) Tracer {
	return &otelTracer{tracer: tracer}
}

func (t *otelTracer) StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, Span) {
	cfg := &SpanConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	var attrs []attribute.KeyValue
	for k, v := range cfg.Attributes {
		attrs = append(attrs, attribute.String(k, fmt.Sprintf("%v", v)))
	}

	ctx, span := t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, &otelSpan{span: span}
}

func (t *otelTracer) Shutdown(ctx context.Context) error { return nil }

func (t *otelTracer) IsEnabled() bool { return true }

func (s *otelSpan) SetAttributes(attrs ...Attribute) {
	otelAttrs := make([]attribute.KeyValue, 0, len(attrs))
	for _, a := range attrs {
		otelAttrs = append(otelAttrs, attribute.String(a.Key, fmt.Sprintf("%v", a.Value)))
	}
	s.span.SetAttributes(otelAttrs...)
}

func (s *otelSpan) SetStatus(status Status, description string) {
	if status.Code == StatusError.Code {
		s.span.SetAttributes(attribute.String("error", description))
	}
}

func (s *otelSpan) RecordError(err error) {
	s.span.SetAttributes(attribute.String("error.message", err.Error()))
}

func (s *otelSpan) End() { s.span.End() }
