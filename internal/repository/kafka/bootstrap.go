package kafka

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// BootstrapConsumer makes sure the change-stream topic exists with leaders
// before the reader joins its group. A consumer started against a missing
// topic would sit in a rebalance loop and deliver nothing.
func BootstrapConsumer(ctx context.Context, cfg *ConsumerConfig, logger *zap.Logger) (*Consumer, error) {
	if err := EnsureTopic(ctx, cfg.Brokers, TopicSpec{
		Name:              cfg.Topic,
		NumPartitions:     cfg.Partitions,
		ReplicationFactor: cfg.ReplicationFactor,
		MaxWait:           15 * time.Second,
	}, logger); err != nil {
		return nil, fmt.Errorf("bootstrap consumer %s: %w", cfg.Topic, err)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger
	}
	return NewConsumer(cfg), nil
}
