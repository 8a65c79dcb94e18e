package main

import (
	"github.com/NordCoder/Studiobell/internal/domain/notification"
	"github.com/NordCoder/Studiobell/internal/domain/outbox"
	pg "github.com/NordCoder/Studiobell/internal/repository/postgres"
	"github.com/NordCoder/Studiobell/internal/services/inbox"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newSweepCommand is meant for a daily cron. It removes read notifications past
// retention and delivered outbox rows of the same age.
func newSweepCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete read notifications older than the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, l, err := opts.load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			loc, _ := cfg.App.Location()

			db, err := pg.NewDB(ctx, cfg.DB)
			if err != nil {
				return err
			}
			defer db.Close()

			clock := notification.SystemClock{Loc: loc}
			outboxRepo := pg.NewOutboxRepo(db)
			store := inbox.New(pg.NewNotificationRepo(db), outboxRepo, pg.NewTransactor(db, l), clock, l,
				inbox.WithRetention(cfg.Inbox.Retention))

			if _, err := store.SweepExpired(ctx); err != nil {
				return err
			}
			var purger outbox.Purger = outboxRepo
			purged, err := purger.Purge(ctx, clock.Now().Add(-cfg.Inbox.Retention))
			if err != nil {
				return err
			}
			l.Info("outbox purged", zap.Int64("deleted", purged))
			return nil
		},
	}
}
