package obs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithTrace_NoSpan(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	l := zap.New(core)

	WithTrace(context.Background(), l).Info("hello")
	assert.Empty(t, logs.All()[0].ContextMap()["trace_id"])
	assert.Nil(t, WithTrace(context.Background(), nil))
}

func TestSpan_BindsLogger(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	core, logs := observer.New(zap.InfoLevel)
	ctx, span := tp.Tracer("test").Start(context.Background(), "parent")
	defer span.End()

	_, child, log := Span(ctx, zap.New(core), "scheduler", "scheduler.recipient", attribute.Int64("recipient.id", 7))
	defer child.End()
	log.Info("run")

	fields := logs.All()[0].ContextMap()
	sc := trace.SpanContextFromContext(ctx)
	assert.Equal(t, sc.TraceID().String(), fields["trace_id"])
}
