package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/supperr-coder/dexscreener-monitor-bot/internal/config"
	"github.com/supperr-coder/dexscreener-monitor-bot/internal/scheduler"
	"github.com/supperr-coder/dexscreener-monitor-bot/internal/storage"
)

// Sweeper prunes price history that has aged out of the retention window.
type Sweeper struct {
	store  storage.PriceStore
	cfg    config.RetentionConfig
	logger zerolog.Logger
}

// New constructs a Sweeper.
func New(store storage.PriceStore, cfg config.RetentionConfig, logger zerolog.Logger) *Sweeper {
	return &Sweeper{
		store:  store,
		cfg:    cfg,
		logger: logger.With().Str("component", "sweeper").Logger(),
	}
}

// Run blocks, sweeping on the configured cadence until ctx is cancelled.
// A failed sweep is logged and retried on the next cadence.
func (s *Sweeper) Run(ctx context.Context) error {
	sched := scheduler.New(scheduler.Options{
		Interval:     s.cfg.SweepInterval,
		StartupDelay: s.cfg.StartupDelay,
	}, s.logger)
	return sched.Run(ctx, s.Sweep)
}

// Sweep removes every price point older than the retention window measured
// back from now.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) error {
	cutoff := now.Add(-s.cfg.Window)
	deleted, err := s.store.DeletePricesBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune prices: %w", err)
	}
	if deleted > 0 {
		s.logger.Info().Int64("deleted", deleted).Time("cutoff", cutoff).Msg("pruned price history")
	} else {
		s.logger.Debug().Time("cutoff", cutoff).Msg("nothing to prune")
	}
	return nil
}
