package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/supperr-coder/dexscreener-monitor-bot/internal/alerting"
	"github.com/supperr-coder/dexscreener-monitor-bot/internal/storage"
)

// task polls one token for one chat. It owns its comparison baseline;
// everything else it borrows from the scheduler.
type task struct {
	subID     int64
	key       identity
	threshold decimal.Decimal
	prev      *decimal.Decimal
	stopCh    chan struct{}
	sched     *Scheduler
	logger    zerolog.Logger
}

// run drives the poll loop. The first tick fires immediately; later ticks
// follow the configured interval. The loop exits on cancellation or when a
// tick reports a fatal condition, in which case the task deregisters itself.
// Cancellation never interrupts a tick that already started.
func (t *task) run(ctx context.Context) {
	var delay time.Duration
	for {
		timer := time.NewTimer(delay)
		select {
		case <-t.stopCh:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			timer.Stop()
		}

		if fatal := t.tick(ctx); fatal {
			t.sched.removeTask(t.key, t)
			return
		}

		delay = t.sched.cfg.Interval
	}
}

// tick performs one poll-compare-store cycle. The returned bool reports a
// fatal condition: the chat has been told and the task must deschedule.
func (t *task) tick(ctx context.Context) bool {
	pairs, err := t.sched.fetcher.FetchPairs(ctx, t.key.chainID, t.key.tokenAddress)
	if err != nil {
		t.fail(ctx, fmt.Errorf("fetch pairs: %w", err))
		return true
	}
	if len(pairs) == 0 {
		t.logger.Warn().Msg("no pairs found, stopping monitor")
		t.notify(ctx, alerting.NoPairs(t.key.tokenAddress))
		return true
	}

	// The first pair is the authoritative quote.
	pair := pairs[0]
	symbol := pair.BaseToken.Symbol
	label := symbol
	if label == "" {
		label = "?"
	}

	if pair.PriceUSD == nil {
		t.logger.Warn().Msg("pair carries no USD price, stopping monitor")
		t.notify(ctx, alerting.NoPrice(label))
		return true
	}

	price, err := decimal.NewFromString(*pair.PriceUSD)
	if err != nil {
		t.fail(ctx, fmt.Errorf("parse priceUsd %q: %w", *pair.PriceUSD, err))
		return true
	}

	bucket := BucketTime(t.sched.now(), t.sched.cfg.BucketSeconds)

	if t.prev == nil {
		t.notify(ctx, alerting.FirstSample(label, bucket, price))
	} else if pct := ChangePct(*t.prev, price); pct.Abs().GreaterThanOrEqual(t.threshold) {
		t.logger.Info().
			Str("pct", pct.String()).
			Str("price_usd", price.String()).
			Time("bucket", bucket).
			Msg("threshold crossed")
		t.notify(ctx, alerting.ThresholdAlert(label, pct, bucket, price))
	}

	// The in-memory baseline tracks the latest observation even when the
	// write below fails; after a restart the stored baseline takes over.
	observed := price
	t.prev = &observed

	rec := storage.TickRecord{
		SubscriptionID: t.subID,
		ChainID:        t.key.chainID,
		TokenAddress:   t.key.tokenAddress,
		Bucket:         bucket,
		PriceUSD:       price,
		Symbol:         symbol,
	}
	if err := t.sched.recorder.RecordTick(ctx, rec); err != nil {
		t.logger.Error().Err(err).Time("bucket", bucket).Msg("failed to record tick")
	}

	return false
}

// fail tells the chat that monitoring stopped because of err.
func (t *task) fail(ctx context.Context, err error) {
	t.logger.Error().Err(err).Msg("monitoring stopped")
	t.notify(ctx, alerting.MonitorFailed(t.key.tokenAddress, err))
}

// notify delivers a chat message; delivery failures only get logged.
func (t *task) notify(ctx context.Context, text string) {
	if err := t.sched.notifier.SendText(ctx, t.key.chatID, text); err != nil {
		t.logger.Error().Err(err).Msg("failed to deliver telegram message")
	}
}

// ChangePct returns the percentage change from prev to cur rounded to two
// decimals. A zero baseline divides by a tiny epsilon instead of exploding.
func ChangePct(prev, cur decimal.Decimal) decimal.Decimal {
	denom := prev
	if denom.IsZero() {
		denom = decimal.NewFromFloat(1e-9)
	}
	return cur.Sub(prev).Div(denom).Mul(decimal.NewFromInt(100)).Round(2)
}
