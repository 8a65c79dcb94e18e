package main

import (
	config "github.com/NordCoder/Studiobell/internal/config/scheduler"
	"github.com/NordCoder/Studiobell/internal/obs"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type rootOptions struct {
	ConfigPath string
}

func (o *rootOptions) load() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, nil, err
	}
	cfg.App.Name = "ctl"
	l, err := obs.NewLogger(cfg.Log.AsLoggerConfig(cfg.App))
	if err != nil {
		return nil, nil, err
	}
	return cfg, l, nil
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "studiobellctl",
		Short:         "Studiobell maintenance commands",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "config/scheduler.yaml", "path to config file")

	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newSweepCommand(opts))
	cmd.AddCommand(newTopicsCommand(opts))
	cmd.AddCommand(newEvaluateCommand())
	return cmd
}
