package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/NordCoder/Studiobell/internal/domain/kafka"
	"github.com/NordCoder/Studiobell/internal/domain/notification"
	"github.com/NordCoder/Studiobell/internal/domain/outbox"
	"github.com/NordCoder/Studiobell/internal/obs/retry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var (
	outboxHandlerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "outbox_handler_latency_seconds",
		Help:    "Latency of outbox handlers including retries.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
	outboxHandlerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_handler_errors_total",
		Help: "Errors in outbox handlers (after retries).",
	}, []string{"kind"})
)

func instrument(kind string, h outbox.KindHandler, pol retry.Policy) outbox.KindHandler {
	tr := otel.Tracer("outbox.handler")
	if pol.Name == "" {
		pol.Name = "outbox_" + kind
	}
	return func(ctx context.Context, data []byte) error {
		ctx, span := tr.Start(ctx, "outbox.handle")
		span.SetAttributes(attribute.String("outbox.kind", kind))
		defer span.End()

		start := time.Now()
		err := retry.Do(ctx, func() error { return h(ctx, data) }, pol)
		outboxHandlerLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			outboxHandlerErrors.WithLabelValues(kind).Inc()
		}
		return err
	}
}

// EncodeNotificationCreated is the outbox payload written next to a new notification.
func EncodeNotificationCreated(n *notification.Notification) ([]byte, error) {
	b, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("marshal notification-created payload: %w", err)
	}
	return b, nil
}

func MakeGlobalOutboxHandler(pub kafka.NotificationEvents, pol retry.Policy) outbox.GlobalHandler {
	return func(kind outbox.Kind) (outbox.KindHandler, error) {
		switch kind {
		case outbox.KindNotificationCreated:
			base := func(ctx context.Context, data []byte) error {
				var n notification.Notification
				if err := json.Unmarshal(data, &n); err != nil {
					return retry.Permanent(fmt.Errorf("unmarshal notification-created payload: %w", err))
				}
				return pub.PublishNotificationCreated(ctx, &n)
			}
			return instrument(string(kind), base, pol), nil
		default:
			return nil, fmt.Errorf("unsupported outbox kind %q", kind)
		}
	}
}
