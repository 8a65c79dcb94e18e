package kafka

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Handler func(ctx context.Context, key, value []byte) error

var mConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "studiobell_kafka_consumed_total",
	Help: "Messages handled by the change-stream consumer, by result.",
}, []string{"topic", "result"})

// messageReader is the part of *kafka.Reader the consume loop drives.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader messageReader
	log    *zap.Logger
	cfg    *ConsumerConfig
}

type ConsumerConfig struct {
	Brokers       []string
	GroupID       string
	Topic         string
	FromBeginning bool
	Logger        *zap.Logger

	// MaxWait bounds how long a fetch waits for data. Notifications are
	// latency sensitive, so it stays well under a second.
	MaxWait time.Duration

	Partitions        int
	ReplicationFactor int
}

func NewConsumer(cfg *ConsumerConfig) *Consumer {
	if cfg.Logger == nil {
		cfg.Logger = zap.L()
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = 250 * time.Millisecond
	}

	start := kafka.LastOffset
	if cfg.FromBeginning {
		start = kafka.FirstOffset
	}

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:               cfg.Brokers,
		GroupID:               cfg.GroupID,
		Topic:                 cfg.Topic,
		StartOffset:           start,
		WatchPartitionChanges: true,

		MinBytes:          1,
		MaxBytes:          1e6,
		MaxWait:           cfg.MaxWait,
		SessionTimeout:    10 * time.Second,
		RebalanceTimeout:  15 * time.Second,
		HeartbeatInterval: 3 * time.Second,
	})

	return &Consumer{reader: r, log: consumerLog(cfg.Logger, cfg), cfg: cfg}
}

func consumerLog(l *zap.Logger, cfg *ConsumerConfig) *zap.Logger {
	return l.With(
		zap.String("component", "kafka.consumer"),
		zap.String("topic", cfg.Topic),
		zap.String("group", cfg.GroupID),
	)
}

func (c *Consumer) WithLogger(l *zap.Logger) *Consumer {
	if l == nil {
		return c
	}
	cp := *c
	cp.log = consumerLog(l, c.cfg)
	return &cp
}

// Consume fetches until ctx is done and commits each message h accepts. A
// message h rejects is logged and not committed, but the next commit on that
// partition moves past it, so it is not delivered again. Handlers that need
// another attempt must retry before returning.
func (c *Consumer) Consume(ctx context.Context, h Handler) error {
	log := c.log
	log.Info("consumer started")

	backoff := 200 * time.Millisecond
	const maxBackoff = 5 * time.Second

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("consumer stopped")
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				log.Debug("fetch EOF; retry", zap.Duration("backoff", backoff))
			} else {
				log.Warn("fetch failed; retry", zap.Error(err), zap.Duration("backoff", backoff))
			}
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}
		backoff = 200 * time.Millisecond

		if err := c.handle(ctx, msg, h); err != nil {
			mConsumed.WithLabelValues(c.cfg.Topic, "error").Inc()
			log.Error("handler error", zap.Int("partition", msg.Partition), zap.Int64("offset", msg.Offset), zap.Error(err))
			continue
		}
		mConsumed.WithLabelValues(c.cfg.Topic, "ok").Inc()

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn("commit failed; will retry later", zap.Error(err))
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// handle runs h under a consumer span that continues the producer's trace.
func (c *Consumer) handle(ctx context.Context, msg kafka.Message, h Handler) error {
	mctx, span := otel.Tracer("kafka.consumer").Start(incomingContext(ctx, msg.Headers), "kafka.consume "+c.cfg.Topic,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingDestinationName(c.cfg.Topic),
			semconv.MessagingOperationReceive,
			attribute.Int("messaging.kafka.partition", msg.Partition),
			attribute.String("studiobell.event", headerValue(msg.Headers, HeaderEvent)),
		),
	)
	defer span.End()

	err := h(mctx, msg.Key, msg.Value)
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (c *Consumer) Close() error { return c.reader.Close() }
