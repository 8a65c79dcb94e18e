package main

import (
	"fmt"

	"github.com/NordCoder/Studiobell/migrations"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	var down bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, l, err := opts.load()
			if err != nil {
				return err
			}
			db, err := goose.OpenDBWithDriver("pgx", cfg.DB.DSN)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer db.Close()

			if down {
				if err := migrations.Down(cmd.Context(), db); err != nil {
					return err
				}
				l.Info("migrations: down OK")
				return nil
			}
			if err := migrations.Up(cmd.Context(), db); err != nil {
				return err
			}
			l.Info("migrations: up OK", zap.String("db", "postgres"))
			return nil
		},
	}
	cmd.Flags().BoolVar(&down, "down", false, "roll back the latest migration instead")
	return cmd
}
