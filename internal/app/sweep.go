package app

import (
	"context"
	"fmt"
	"os"
	"time"
)

// Sweep prunes price history older than the requested horizon. With DryRun
// it only reports how many rows a real sweep would delete.
func (a *App) Sweep(ctx context.Context, opts SweepOptions) error {
	olderThan := opts.OlderThan
	if olderThan <= 0 {
		olderThan = a.Config.Retention.Window
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	cutoff := time.Now().UTC().Add(-olderThan)

	if opts.DryRun {
		a.Logger.Warn().Msg("dry-run：不会删除数据")
		count, err := store.CountPricesBefore(ctx, cutoff)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "%d price points older than %s\n", count, cutoff.Format(time.RFC3339))
		return nil
	}

	deleted, err := store.DeletePricesBefore(ctx, cutoff)
	if err != nil {
		return err
	}

	a.Logger.Info().Int64("deleted", deleted).Time("cutoff", cutoff).Msg("清理完成")
	fmt.Fprintf(os.Stdout, "deleted %d price points older than %s\n", deleted, cutoff.Format(time.RFC3339))
	return nil
}
