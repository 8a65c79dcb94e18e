package obs

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// WithTrace tags log with the trace and span of ctx, when there is one.
func WithTrace(ctx context.Context, log *zap.Logger) *zap.Logger {
	if log == nil {
		return nil
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return log
	}
	return log.With(
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	)
}

// Span starts name on the tracer for component and returns a logger bound to
// the new span. The attributes go on the span only.
func Span(ctx context.Context, log *zap.Logger, component, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span, *zap.Logger) {
	ctx, span := otel.Tracer(component).Start(ctx, name, trace.WithAttributes(attrs...))
	if log == nil {
		log = zap.NewNop()
	}
	return ctx, span, WithTrace(ctx, log)
}
