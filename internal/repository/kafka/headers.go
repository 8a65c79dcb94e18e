package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
)

// HeaderEvent names the event carried by a message so consumers can route
// without decoding the value.
const HeaderEvent = "studiobell-event"

// headerCarrier adapts kafka headers to the OTel propagation API. Set
// replaces an existing key instead of appending a duplicate.
type headerCarrier struct{ hs *[]kafka.Header }

func (c headerCarrier) Get(k string) string {
	for _, h := range *c.hs {
		if h.Key == k {
			return string(h.Value)
		}
	}
	return ""
}

func (c headerCarrier) Set(k, v string) {
	for i := range *c.hs {
		if (*c.hs)[i].Key == k {
			(*c.hs)[i].Value = []byte(v)
			return
		}
	}
	*c.hs = append(*c.hs, kafka.Header{Key: k, Value: []byte(v)})
}

func (c headerCarrier) Keys() []string {
	ks := make([]string, 0, len(*c.hs))
	for _, h := range *c.hs {
		ks = append(ks, h.Key)
	}
	return ks
}

func outgoingHeaders(ctx context.Context, event string) []kafka.Header {
	hs := make([]kafka.Header, 0, 4)
	if event != "" {
		hs = append(hs, kafka.Header{Key: HeaderEvent, Value: []byte(event)})
	}
	otel.GetTextMapPropagator().Inject(ctx, headerCarrier{hs: &hs})
	return hs
}

func incomingContext(ctx context.Context, hs []kafka.Header) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, headerCarrier{hs: &hs})
}

func headerValue(hs []kafka.Header, k string) string {
	return headerCarrier{hs: &hs}.Get(k)
}
