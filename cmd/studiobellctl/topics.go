package main

import (
	"context"
	"fmt"
	"time"

	kafkaRepo "github.com/NordCoder/Studiobell/internal/repository/kafka"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newTopicsCommand(opts *rootOptions) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "topics",
		Short: "Create the notification change-stream topic and wait for leaders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, l, err := opts.load()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			spec := cfg.Kafka.TopicSpec()
			spec.MaxWait = timeout
			if err := kafkaRepo.EnsureTopic(ctx, cfg.Kafka.Brokers, spec, l); err != nil {
				return fmt.Errorf("ensure topic %q: %w", spec.Name, err)
			}
			l.Info("topic ready", zap.String("topic", spec.Name), zap.Int("partitions", spec.NumPartitions))
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 60*time.Second, "how long to wait for the brokers")
	return cmd
}
