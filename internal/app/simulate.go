package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/supperr-coder/dexscreener-monitor-bot/internal/alerting"
	"github.com/supperr-coder/dexscreener-monitor-bot/internal/monitor"
)

// SimulateAlert 用给定的前后价格走一遍阈值判定与消息渲染, 不接数据库。
// 指定 --chat-id 时消息会真实发往 Telegram。
func (a *App) SimulateAlert(ctx context.Context, opts SimulateOptions) error {
	if opts.ThresholdPct <= 0 {
		return errors.New("--threshold 必须大于 0")
	}

	pct := monitor.ChangePct(opts.PrevPrice, opts.Price)
	threshold := decimal.NewFromFloat(opts.ThresholdPct)
	now := time.Now().UTC()

	if pct.Abs().LessThan(threshold) {
		a.Logger.Info().Str("pct", pct.String()).Msg("变化未达阈值, 不会触发告警")
		fmt.Fprintf(os.Stdout, "no alert: |%s%%| < %s%%\n", pct.StringFixed(2), threshold.String())
		return nil
	}

	text := alerting.ThresholdAlert(opts.Symbol, pct, now, opts.Price)
	fmt.Fprintln(os.Stdout, text)

	if opts.ChatID != 0 {
		if a.Config.Telegram.BotToken == "" {
			return errors.New("telegram.bot_token is required to send")
		}
		return a.newNotifier().SendText(ctx, opts.ChatID, text)
	}
	return nil
}
