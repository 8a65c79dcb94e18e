package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/NordCoder/Studiobell/internal/domain/entity"
	"github.com/NordCoder/Studiobell/internal/domain/signal"
	"github.com/NordCoder/Studiobell/internal/signals"
	"github.com/spf13/cobra"
)

type entityBadges struct {
	Kind   entity.Kind    `json:"kind"`
	ID     int64          `json:"id"`
	Badges []signal.Badge `json:"badges"`
}

type evaluation struct {
	Now      time.Time             `json:"now"`
	Entities []entityBadges        `json:"entities"`
	Alerts   []signal.AlertSummary `json:"alerts"`
}

func newEvaluateCommand() *cobra.Command {
	var (
		at string
		tz string
	)
	cmd := &cobra.Command{
		Use:   "evaluate <collections.json>",
		Short: "Print badges and alerts for a snapshot file",
		Long: `Reads one recipient's entities as JSON (quotes, invoices, payments,
contracts, jobs, leads) and prints the badges of every entity that has any
together with the dashboard alerts. "-" reads stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := time.LoadLocation(tz)
			if err != nil {
				return fmt.Errorf("timezone: %w", err)
			}
			now := time.Now().In(loc)
			if at != "" {
				if now, err = time.ParseInLocation(time.RFC3339, at, loc); err != nil {
					return fmt.Errorf("--at: %w", err)
				}
			}

			in := cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			return runEvaluate(in, cmd.OutOrStdout(), now)
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "evaluation instant, RFC3339 (default now)")
	cmd.Flags().StringVar(&tz, "tz", "UTC", "time zone that defines calendar days")
	return cmd
}

func runEvaluate(r io.Reader, w io.Writer, now time.Time) error {
	var c entity.Collections
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return fmt.Errorf("decode collections: %w", err)
	}

	out := evaluation{Now: now, Entities: []entityBadges{}}
	for _, s := range snapshots(&c) {
		if b := signals.Evaluate(s, now); len(b) > 0 {
			out.Entities = append(out.Entities, entityBadges{Kind: s.Kind(), ID: s.EntityID(), Badges: b})
		}
	}
	out.Alerts = signals.Aggregate(&c, now)
	if out.Alerts == nil {
		out.Alerts = []signal.AlertSummary{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func snapshots(c *entity.Collections) []entity.Snapshot {
	var out []entity.Snapshot
	for _, x := range c.Quotes {
		out = append(out, x)
	}
	for _, x := range c.Invoices {
		out = append(out, x)
	}
	for _, x := range c.Payments {
		out = append(out, x)
	}
	for _, x := range c.Contracts {
		out = append(out, x)
	}
	for _, x := range c.Jobs {
		out = append(out, x)
	}
	for _, x := range c.Leads {
		out = append(out, x)
	}
	return out
}
