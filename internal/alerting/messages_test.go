package alerting

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestFirstSampleRendering(t *testing.T) {
	bucket := time.Date(2024, 5, 1, 12, 0, 5, 0, time.UTC)
	got := FirstSample("WIF", bucket, decimal.RequireFromString("2.41"))
	want := "📊 WIF/USD (2024-05-01 12:00:05 UTC): $2.41"
	if got != want {
		t.Fatalf("首条消息文案不正确:\n got: %s\nwant: %s", got, want)
	}
}

func TestThresholdAlertRendering(t *testing.T) {
	bucket := time.Date(2024, 5, 1, 12, 0, 5, 0, time.UTC)
	got := ThresholdAlert("WIF", decimal.NewFromFloat(-6.25), bucket, decimal.RequireFromString("2.41"))
	want := "⚡ WIF/USD: -6.25% | (2024-05-01 12:00:05 UTC): $2.41"
	if got != want {
		t.Fatalf("告警文案不正确:\n got: %s\nwant: %s", got, want)
	}
}

func TestMonitorStartedFormatsThreshold(t *testing.T) {
	got := MonitorStarted("tok", "solana", 2.5)
	want := "✅ Started monitoring tok (chain=solana, threshold=2.5%)."
	if got != want {
		t.Fatalf("启动文案不正确: %s", got)
	}
	if !strings.Contains(MonitorStarted("tok", "solana", 3), "threshold=3%") {
		t.Fatalf("整数阈值不应带小数尾巴: %s", MonitorStarted("tok", "solana", 3))
	}
}

func TestTokenLabelFallsBackToShortAddress(t *testing.T) {
	addr := "7S2fEFvce6tGFJLLw9HK6PsW1ERFKKLgHnAAAVVVbonk"
	label := TokenLabel("", addr)
	if !strings.HasPrefix(label, addr[:6]) || !strings.HasSuffix(label, addr[len(addr)-4:]) {
		t.Fatalf("标签应为缩短地址, 实际 %s", label)
	}
	if TokenLabel("WIF", addr) != "WIF" {
		t.Fatalf("有符号时应直接用符号")
	}
	if TokenLabel("", "short") != "short" {
		t.Fatalf("短地址应原样返回")
	}
}

func TestChartCaption(t *testing.T) {
	span := 2*time.Hour + 5*time.Minute
	got := ChartCaption("WIF", "solana", 120, span)
	want := "WIF (solana) — 120 points • past 2h 5m"
	if got != want {
		t.Fatalf("caption 不正确: %s", got)
	}
}
