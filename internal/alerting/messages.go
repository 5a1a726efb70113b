package alerting

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

const tsLayout = "2006-01-02 15:04:05"

// FirstSample renders the informational message for a monitor's first
// successful observation.
func FirstSample(symbol string, bucket time.Time, price decimal.Decimal) string {
	return fmt.Sprintf("📊 %s/USD (%s UTC): $%s", symbol, bucket.UTC().Format(tsLayout), price.String())
}

// ThresholdAlert renders the price movement alert.
func ThresholdAlert(symbol string, pct decimal.Decimal, bucket time.Time, price decimal.Decimal) string {
	return fmt.Sprintf("⚡ %s/USD: %s%% | (%s UTC): $%s", symbol, pct.StringFixed(2), bucket.UTC().Format(tsLayout), price.String())
}

// NoPairs renders the fatal notice for a token without tradeable pairs.
func NoPairs(tokenAddress string) string {
	return fmt.Sprintf("❌ No pairs found for %s. Stopping.", tokenAddress)
}

// NoPrice renders the fatal notice for a pair without a USD price.
func NoPrice(symbol string) string {
	return fmt.Sprintf("⚠️ No priceUsd for %s. Stopping.", symbol)
}

// MonitorFailed renders the fatal notice for an errored monitor tick.
func MonitorFailed(tokenAddress string, err error) string {
	return fmt.Sprintf("❌ Monitoring stopped for %s (%v)", tokenAddress, err)
}

// MonitorStarted confirms a new or refreshed monitor.
func MonitorStarted(tokenAddress, chainID string, thresholdPct float64) string {
	return fmt.Sprintf("✅ Started monitoring %s (chain=%s, threshold=%s%%).",
		tokenAddress, chainID, strconv.FormatFloat(thresholdPct, 'g', -1, 64))
}

// SubscribeFailed reports that a monitor could not be persisted.
func SubscribeFailed(tokenAddress string, err error) string {
	return fmt.Sprintf("❌ Could not start monitoring %s (%v)", tokenAddress, err)
}

// MonitorStopped confirms a stopped monitor.
func MonitorStopped(tokenAddress string) string {
	return fmt.Sprintf("🛑 Stopped monitoring %s.", tokenAddress)
}

// UnsubscribeFailed reports that a monitor could not be deactivated.
func UnsubscribeFailed(tokenAddress string, err error) string {
	return fmt.Sprintf("❌ Could not stop monitoring %s (%v)", tokenAddress, err)
}

// NoActiveMonitor tells the user there was nothing to stop.
func NoActiveMonitor(tokenAddress string) string {
	return fmt.Sprintf("ℹ️ No active monitor for %s.", tokenAddress)
}

// ChartEmpty tells the user no history exists in the requested window.
func ChartEmpty() string {
	return "No price data yet for that token in the selected window."
}

// ChartTitle renders the headline drawn above a price chart.
func ChartTitle(name, chainID string, span time.Duration) string {
	h := int(span / time.Hour)
	m := int(span/time.Minute) % 60
	return fmt.Sprintf("%s on %s — past %dh %dm", name, chainID, h, m)
}

// ChartCaption renders the photo caption attached to a price chart.
func ChartCaption(name, chainID string, points int, span time.Duration) string {
	h := int(span / time.Hour)
	m := int(span/time.Minute) % 60
	return fmt.Sprintf("%s (%s) — %d points • past %dh %dm", name, chainID, points, h, m)
}

// TokenLabel prefers the symbol and falls back to a shortened address.
func TokenLabel(symbol, tokenAddress string) string {
	if symbol != "" {
		return symbol
	}
	if len(tokenAddress) > 10 {
		return tokenAddress[:6] + "…" + tokenAddress[len(tokenAddress)-4:]
	}
	return tokenAddress
}

// StartHelp renders the /start usage summary.
func StartHelp() string {
	return "Send /monitor <tokenAddress> [threshold(%)] [chain]\n" +
		"Example: /monitor 7S2... 5 solana\n" +
		"Use /stop <tokenAddress> to stop.\n" +
		"Use /chart <tokenAddress> [hours] [chain] to view a line chart."
}
