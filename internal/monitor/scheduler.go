package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/supperr-coder/dexscreener-monitor-bot/internal/alerting"
	"github.com/supperr-coder/dexscreener-monitor-bot/internal/config"
	"github.com/supperr-coder/dexscreener-monitor-bot/internal/fetcher"
	"github.com/supperr-coder/dexscreener-monitor-bot/internal/storage"
)

// identity keys one monitor per chat, chain and token.
type identity struct {
	chatID       int64
	chainID      string
	tokenAddress string
}

// Scheduler owns the set of running monitor tasks. All task bookkeeping goes
// through its mutex; tasks themselves only call back in to deregister.
type Scheduler struct {
	cfg      config.MonitorConfig
	fetcher  fetcher.PairFetcher
	subs     storage.SubscriptionStore
	recorder storage.TickRecorder
	notifier alerting.Notifier
	logger   zerolog.Logger
	now      func() time.Time

	// runCtx bounds every task goroutine; Stop is the orderly path.
	runCtx context.Context

	mu    sync.Mutex
	tasks map[identity]*task
	wg    sync.WaitGroup
}

// New constructs a Scheduler. ctx bounds the lifetime of every task it
// starts.
func New(ctx context.Context, cfg config.MonitorConfig, f fetcher.PairFetcher, subs storage.SubscriptionStore, recorder storage.TickRecorder, notifier alerting.Notifier, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		fetcher:  f,
		subs:     subs,
		recorder: recorder,
		notifier: notifier,
		logger:   logger.With().Str("component", "monitor").Logger(),
		now:      func() time.Time { return time.Now().UTC() },
		runCtx:   ctx,
		tasks:    make(map[identity]*task),
	}
}

// Subscribe persists an active subscription and (re)starts its monitor task.
// The durable row is written first; nothing is scheduled when that write
// fails. A repeated subscribe refreshes the threshold and restarts the task
// with a clean baseline.
func (s *Scheduler) Subscribe(ctx context.Context, chatID int64, chainID, tokenAddress string, thresholdPct float64) (int64, error) {
	id, err := s.subs.UpsertActiveSubscription(ctx, storage.Subscription{
		ChatID:       chatID,
		ChainID:      chainID,
		TokenAddress: tokenAddress,
		ThresholdPct: thresholdPct,
	})
	if err != nil {
		return 0, err
	}

	key := identity{chatID: chatID, chainID: chainID, tokenAddress: tokenAddress}
	s.startTask(id, key, thresholdPct, nil)

	s.logger.Info().
		Int64("subscription_id", id).
		Int64("chat_id", chatID).
		Str("chain_id", chainID).
		Str("token", tokenAddress).
		Float64("threshold_pct", thresholdPct).
		Msg("monitor started")
	return id, nil
}

// Unsubscribe deactivates the stored subscription and cancels its task.
// Returns false when neither a stored row nor a running task existed.
func (s *Scheduler) Unsubscribe(ctx context.Context, chatID int64, chainID, tokenAddress string) (bool, error) {
	deactivated, err := s.subs.DeactivateSubscription(ctx, chatID, chainID, tokenAddress)
	if err != nil {
		return false, err
	}

	key := identity{chatID: chatID, chainID: chainID, tokenAddress: tokenAddress}
	s.mu.Lock()
	t, running := s.tasks[key]
	if running {
		delete(s.tasks, key)
	}
	s.mu.Unlock()
	if running {
		close(t.stopCh)
	}

	if deactivated || running {
		s.logger.Info().
			Int64("chat_id", chatID).
			Str("chain_id", chainID).
			Str("token", tokenAddress).
			Msg("monitor stopped")
		return true, nil
	}
	return false, nil
}

// RebuildFromStore starts a task for every active subscription, seeding each
// with its persisted baseline so a restart does not repeat the first
// informational message. Safe to call on a scheduler that already runs
// tasks: existing ones are replaced.
func (s *Scheduler) RebuildFromStore(ctx context.Context) (int, error) {
	subs, err := s.subs.ListActiveSubscriptions(ctx)
	if err != nil {
		return 0, err
	}

	for _, sub := range subs {
		key := identity{chatID: sub.ChatID, chainID: sub.ChainID, tokenAddress: sub.TokenAddress}
		s.startTask(sub.ID, key, sub.ThresholdPct, sub.PrevPriceUSD)
	}

	s.logger.Info().Int("count", len(subs)).Msg("rescheduled active monitors from store")
	return len(subs), nil
}

// Stop cancels every task and waits for in-flight ticks to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	for key, t := range s.tasks {
		close(t.stopCh)
		delete(s.tasks, key)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// ActiveCount reports how many tasks are currently scheduled.
func (s *Scheduler) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

func (s *Scheduler) startTask(subID int64, key identity, thresholdPct float64, prev *decimal.Decimal) {
	t := &task{
		subID:     subID,
		key:       key,
		threshold: decimal.NewFromFloat(thresholdPct),
		prev:      prev,
		stopCh:    make(chan struct{}),
		sched:     s,
		logger: s.logger.With().
			Int64("subscription_id", subID).
			Str("chain_id", key.chainID).
			Str("token", key.tokenAddress).
			Logger(),
	}

	s.mu.Lock()
	if old, ok := s.tasks[key]; ok {
		close(old.stopCh)
	}
	s.tasks[key] = t
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		t.run(s.runCtx)
	}()
}

// removeTask deregisters a task that stopped itself. The pointer compare
// keeps a replacement task registered under the same identity alive.
func (s *Scheduler) removeTask(key identity, t *task) {
	s.mu.Lock()
	if cur, ok := s.tasks[key]; ok && cur == t {
		delete(s.tasks, key)
	}
	s.mu.Unlock()
}
