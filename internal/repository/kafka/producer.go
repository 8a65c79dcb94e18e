package kafka

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
)

var mPublished = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "studiobell_kafka_published_total",
	Help: "Change-stream messages written, by event and result.",
}, []string{"event", "result"})

type Producer struct {
	w     *kafka.Writer
	topic string
	log   *zap.Logger
}

// NewProducer writes keyed messages with a hash balancer, so every message of
// one key lands on one partition. The topic is created ahead of time by
// EnsureTopic; writes never auto-create it.
func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 10 * time.Millisecond,
		},
		topic: topic,
		log:   zap.L().With(zap.String("component", "kafka.producer"), zap.String("topic", topic)),
	}
}

func (p *Producer) WithLogger(l *zap.Logger) *Producer {
	if l == nil {
		return p
	}
	cp := *p
	cp.log = l.With(zap.String("component", "kafka.producer"), zap.String("topic", p.topic))
	return &cp
}

// PublishProto marshals m and writes it with the event header and the
// current trace context.
func (p *Producer) PublishProto(ctx context.Context, event string, key []byte, m proto.Message) error {
	value, err := proto.Marshal(m)
	if err != nil {
		mPublished.WithLabelValues(event, "encode_error").Inc()
		return fmt.Errorf("marshal %s: %w", event, err)
	}

	ctx, span := otel.Tracer("kafka.producer").Start(ctx, "kafka.produce "+p.topic,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingDestinationName(p.topic),
			semconv.MessagingOperationPublish,
		),
	)
	defer span.End()

	msg := kafka.Message{Key: key, Value: value, Headers: outgoingHeaders(ctx, event)}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "write failed")
		mPublished.WithLabelValues(event, "error").Inc()
		p.log.Warn("kafka write failed", zap.String("event", event), zap.ByteString("key", key), zap.Error(err))
		return fmt.Errorf("write %s: %w", event, err)
	}
	mPublished.WithLabelValues(event, "ok").Inc()
	p.log.Debug("message published", zap.String("event", event), zap.ByteString("key", key), zap.Int("value_len", len(value)))
	return nil
}

func (p *Producer) Close() error { return p.w.Close() }

func KeyFromInt64(id int64) []byte { return []byte(strconv.FormatInt(id, 10)) }
