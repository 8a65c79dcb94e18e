package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestHeaderCarrier_SetReplaces(t *testing.T) {
	var hs []kafka.Header
	c := headerCarrier{hs: &hs}
	c.Set("a", "1")
	c.Set("b", "2")
	c.Set("a", "3")

	require.Len(t, hs, 2)
	assert.Equal(t, "3", c.Get("a"))
	assert.Equal(t, "", c.Get("missing"))
	assert.ElementsMatch(t, []string{"a", "b"}, c.Keys())
}

func TestHeaders_CarryEventAndTrace(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	tid, _ := trace.TraceIDFromHex("0af7651916cd43dd8448eb211c80319c")
	sid, _ := trace.SpanIDFromHex("b7ad6b7169203331")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: tid, SpanID: sid, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	hs := outgoingHeaders(ctx, EventNotificationCreated)
	assert.Equal(t, EventNotificationCreated, headerValue(hs, HeaderEvent))
	assert.NotEmpty(t, headerValue(hs, "traceparent"))

	got := trace.SpanContextFromContext(incomingContext(context.Background(), hs))
	assert.Equal(t, tid, got.TraceID())
	assert.True(t, got.IsRemote())
}

func TestProtoHandler_Malformed(t *testing.T) {
	called := false
	h := ProtoHandler(
		func() *structpb.Struct { return &structpb.Struct{} },
		func(context.Context, []byte, *structpb.Struct) error { called = true; return nil },
	)

	err := h(context.Background(), nil, nil)
	assert.ErrorIs(t, err, ErrMalformed)

	err = h(context.Background(), nil, []byte{0xff, 0xff, 0xff})
	assert.ErrorIs(t, err, ErrMalformed)
	assert.False(t, called)
}

func TestProtoHandler_PassesHandlerError(t *testing.T) {
	boom := errors.New("boom")
	h := ProtoHandler(
		func() *structpb.Struct { return &structpb.Struct{} },
		func(_ context.Context, key []byte, s *structpb.Struct) error {
			assert.Equal(t, "7", string(key))
			assert.Equal(t, "x", s.Fields["k"].GetStringValue())
			return boom
		},
	)
	s, err := structpb.NewStruct(map[string]any{"k": "x"})
	require.NoError(t, err)
	v, err := proto.Marshal(s)
	require.NoError(t, err)

	err = h(context.Background(), []byte("7"), v)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrMalformed)
}
