package retry

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// DefaultKafkaPolicy is used when the outbox publishes to the change stream.
// Broker errors are retried; permanent errors and cancellation are not.
func DefaultKafkaPolicy(log *zap.Logger) Policy {
	if log == nil {
		log = zap.NewNop()
	}
	return Policy{
		Name:     "kafka_publish",
		Attempts: 6,
		Backoff:  ExpoJitter{Base: 200 * time.Millisecond, Max: 30 * time.Second, Jitter: 0.2},
		Retryable: func(err error) bool {
			return err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		},
		OnAttempt: func(i int, err error) {
			log.Warn("publish attempt failed", zap.Int("attempt", i+1), zap.Error(err))
		},
		OnExhaust: func(err error) {
			if !errors.Is(err, context.Canceled) {
				log.Error("publish gave up", zap.Bool("permanent", IsPermanent(err)), zap.Error(err))
			}
		},
	}
}
