package telegram

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/supperr-coder/dexscreener-monitor-bot/internal/alerting"
	"github.com/supperr-coder/dexscreener-monitor-bot/internal/chart"
	"github.com/supperr-coder/dexscreener-monitor-bot/internal/config"
	"github.com/supperr-coder/dexscreener-monitor-bot/internal/monitor"
	"github.com/supperr-coder/dexscreener-monitor-bot/internal/storage"
)

const pollRetryDelay = 3 * time.Second

// Bot glues the Telegram command transport to the monitor scheduler.
type Bot struct {
	client   *Client
	notifier alerting.Notifier
	sched    *monitor.Scheduler
	chats    storage.ChatStore
	tokens   storage.TokenStore
	prices   storage.PriceStore
	cfg      config.MonitorConfig
	logger   zerolog.Logger
}

// NewBot wires the command handlers.
func NewBot(client *Client, notifier alerting.Notifier, sched *monitor.Scheduler, chats storage.ChatStore, tokens storage.TokenStore, prices storage.PriceStore, cfg config.MonitorConfig, logger zerolog.Logger) *Bot {
	return &Bot{
		client:   client,
		notifier: notifier,
		sched:    sched,
		chats:    chats,
		tokens:   tokens,
		prices:   prices,
		cfg:      cfg,
		logger:   logger.With().Str("component", "bot").Logger(),
	}
}

// Run polls for updates and dispatches commands until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	var offset int64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		updates, err := b.client.GetUpdates(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.logger.Error().Err(err).Msg("getUpdates failed")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(pollRetryDelay):
			}
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			b.handleUpdate(ctx, upd)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, upd Update) {
	if upd.Message == nil || upd.Message.Text == "" {
		return
	}
	msg := upd.Message

	command, args := splitCommand(msg.Text)
	if command == "" {
		return
	}

	b.logger.Debug().Str("command", command).Int64("chat_id", msg.Chat.ID).Msg("dispatching command")

	switch command {
	case "start":
		b.handleStart(ctx, msg)
	case "monitor":
		b.handleMonitor(ctx, msg, args)
	case "stop":
		b.handleStop(ctx, msg, args)
	case "chart":
		b.handleChart(ctx, msg, args)
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *Message) {
	b.reply(ctx, msg.Chat.ID, alerting.StartHelp())
}

func (b *Bot) handleMonitor(ctx context.Context, msg *Message, args []string) {
	if len(args) == 0 {
		b.reply(ctx, msg.Chat.ID, "Usage: /monitor <tokenAddress> [threshold(%)] [chain]")
		return
	}

	req, err := parseMonitorArgs(args, b.cfg.DefaultThresholdPct, b.cfg.DefaultChain)
	if err != nil {
		b.reply(ctx, msg.Chat.ID, fmt.Sprintf("❌ %v", err))
		return
	}

	// Chat and token rows are advisory; failures must not block the monitor.
	if err := b.chats.UpsertChat(ctx, storage.Chat{
		ID:       msg.Chat.ID,
		Type:     msg.Chat.Type,
		Title:    msg.Chat.Title,
		Username: msg.Chat.Username,
	}); err != nil {
		b.logger.Warn().Err(err).Int64("chat_id", msg.Chat.ID).Msg("failed to upsert chat")
	}
	if err := b.tokens.EnsureToken(ctx, req.chainID, req.tokenAddress); err != nil {
		b.logger.Warn().Err(err).Msg("failed to ensure token row")
	}

	if _, err := b.sched.Subscribe(ctx, msg.Chat.ID, req.chainID, req.tokenAddress, req.thresholdPct); err != nil {
		b.logger.Error().Err(err).Msg("subscribe failed")
		b.reply(ctx, msg.Chat.ID, alerting.SubscribeFailed(req.tokenAddress, err))
		return
	}

	b.reply(ctx, msg.Chat.ID, alerting.MonitorStarted(req.tokenAddress, req.chainID, req.thresholdPct))
}

func (b *Bot) handleStop(ctx context.Context, msg *Message, args []string) {
	if len(args) == 0 {
		b.reply(ctx, msg.Chat.ID, "Usage: /stop <tokenAddress>")
		return
	}

	token, chain, err := parseStopArgs(args, b.cfg.DefaultChain)
	if err != nil {
		b.reply(ctx, msg.Chat.ID, fmt.Sprintf("❌ %v", err))
		return
	}

	ok, err := b.sched.Unsubscribe(ctx, msg.Chat.ID, chain, token)
	if err != nil {
		b.logger.Error().Err(err).Msg("unsubscribe failed")
		b.reply(ctx, msg.Chat.ID, alerting.UnsubscribeFailed(token, err))
		return
	}
	if !ok {
		b.reply(ctx, msg.Chat.ID, alerting.NoActiveMonitor(token))
		return
	}
	b.reply(ctx, msg.Chat.ID, alerting.MonitorStopped(token))
}

func (b *Bot) handleChart(ctx context.Context, msg *Message, args []string) {
	if len(args) == 0 {
		b.reply(ctx, msg.Chat.ID, "Usage: /chart <tokenAddress> [hours] [chain]")
		return
	}

	token, hours, chain := parseChartArgs(args, b.cfg.DefaultChain)
	normalized, err := NormalizeTokenAddress(chain, token)
	if err != nil {
		b.reply(ctx, msg.Chat.ID, fmt.Sprintf("❌ %v", err))
		return
	}

	since := time.Now().UTC().Add(-time.Duration(hours * float64(time.Hour)))
	points, err := b.prices.ListPricesSince(ctx, chain, normalized, since)
	if err != nil {
		b.logger.Error().Err(err).Msg("failed to load price history")
		return
	}
	if len(points) == 0 {
		b.reply(ctx, msg.Chat.ID, alerting.ChartEmpty())
		return
	}

	symbol, err := b.tokens.TokenSymbol(ctx, chain, normalized)
	if err != nil {
		b.logger.Warn().Err(err).Msg("failed to load token symbol")
	}
	name := alerting.TokenLabel(symbol, normalized)
	span := points[len(points)-1].Bucket.Sub(points[0].Bucket)

	png, err := chart.RenderPNG(points, alerting.ChartTitle(name, chain, span))
	if err != nil {
		if errors.Is(err, chart.ErrNotEnoughData) {
			b.reply(ctx, msg.Chat.ID, alerting.ChartEmpty())
			return
		}
		b.logger.Error().Err(err).Msg("failed to render chart")
		return
	}

	caption := alerting.ChartCaption(name, chain, len(points), span)
	if err := b.notifier.SendImage(ctx, msg.Chat.ID, png, caption); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", msg.Chat.ID).Msg("failed to send chart")
	}
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	if err := b.notifier.SendText(ctx, chatID, text); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("failed to send reply")
	}
}
