package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/supperr-coder/dexscreener-monitor-bot/internal/alerting"
	"github.com/supperr-coder/dexscreener-monitor-bot/internal/config"
	"github.com/supperr-coder/dexscreener-monitor-bot/internal/fetcher"
	"github.com/supperr-coder/dexscreener-monitor-bot/internal/monitor"
	"github.com/supperr-coder/dexscreener-monitor-bot/internal/storage"
	"github.com/supperr-coder/dexscreener-monitor-bot/internal/sweeper"
	"github.com/supperr-coder/dexscreener-monitor-bot/internal/telegram"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newFetcher() fetcher.PairFetcher {
	return fetcher.NewDexScreener(fetcher.DexScreenerOptions{
		BaseURL:   a.Config.Quote.BaseURL,
		Timeout:   a.Config.Quote.RequestTimeout,
		UserAgent: a.Config.Quote.UserAgent,
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	cfg := a.Config.Telegram
	return alerting.NewTelegramNotifier(cfg.BotToken, cfg.APIBase, cfg.RequestTimeout, a.Logger)
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	pool, err := storage.NewPool(ctx, a.Config.Database, a.Logger)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// Run executes the long-running monitoring service: the Telegram command
// loop, one polling task per active subscription, and the retention sweeper.
func (a *App) Run(ctx context.Context) error {
	if a.Config.Telegram.BotToken == "" {
		return errors.New("telegram.bot_token is required")
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	notifier := a.newNotifier()
	quotes := a.newFetcher()

	sched := monitor.New(ctx, a.Config.Monitor, quotes, store, store, notifier, a.Logger)
	defer sched.Stop()

	if _, err := sched.RebuildFromStore(ctx); err != nil {
		return fmt.Errorf("rebuild monitors: %w", err)
	}

	go sweeper.New(store, a.Config.Retention, a.Logger).Run(ctx)

	client := telegram.NewClient(a.Config.Telegram, a.Logger)
	// Pending updates piled up while the bot was down would replay stale
	// commands; drop them along with any configured webhook.
	if err := client.DeleteWebhook(ctx, true); err != nil {
		a.Logger.Warn().Err(err).Msg("failed to delete webhook")
	}

	bot := telegram.NewBot(client, notifier, sched, store, store, store, a.Config.Monitor, a.Logger)

	a.Logger.Info().Msg("starting monitoring service")
	err = bot.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("monitoring service stopped")
	return nil
}

// ExportOptions hold parameters for exporting historical price points.
type ExportOptions struct {
	Chain     string
	Token     string
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// SweepOptions configure the one-off retention sweep.
type SweepOptions struct {
	OlderThan time.Duration
	DryRun    bool
}

// SimulateOptions configure the alert simulation.
type SimulateOptions struct {
	Symbol       string
	PrevPrice    decimal.Decimal
	Price        decimal.Decimal
	ThresholdPct float64
	ChatID       int64
}
