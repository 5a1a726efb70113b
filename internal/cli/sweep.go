package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/supperr-coder/dexscreener-monitor-bot/internal/app"
)

var (
	sweepOlderThan time.Duration
	sweepDryRun    bool
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Prune price history beyond the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.SweepOptions{
			OlderThan: sweepOlderThan,
			DryRun:    sweepDryRun,
		}

		return getApp().Sweep(cmd.Context(), opts)
	},
}

func init() {
	sweepCmd.Flags().DurationVar(&sweepOlderThan, "older-than", 0, "Prune points older than this (defaults to config retention window)")
	sweepCmd.Flags().BoolVar(&sweepDryRun, "dry-run", false, "Count matching rows without deleting")
}
