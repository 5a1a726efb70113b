package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/supperr-coder/dexscreener-monitor-bot/internal/alerting"
	"github.com/supperr-coder/dexscreener-monitor-bot/internal/config"
	"github.com/supperr-coder/dexscreener-monitor-bot/internal/fetcher"
	"github.com/supperr-coder/dexscreener-monitor-bot/internal/monitor"
	"github.com/supperr-coder/dexscreener-monitor-bot/internal/storage"
)

type stubFetcher struct {
	mu    sync.Mutex
	pairs []fetcher.Pair
}

var _ fetcher.PairFetcher = (*stubFetcher)(nil)

func (s *stubFetcher) FetchPairs(_ context.Context, _, _ string) ([]fetcher.Pair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pairs, nil
}

func (s *stubFetcher) setPrice(price string) {
	p := price
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pairs = []fetcher.Pair{{ChainID: "solana", BaseToken: fetcher.Token{Symbol: "WIF"}, PriceUSD: &p}}
}

// memStore 以内存 map 充当全部仓储接口, 供命令处理测试使用。
type memStore struct {
	mu     sync.Mutex
	nextID int64
	active map[string]int64
	chats  int
	points []storage.PricePoint
	symbol string
}

var (
	_ storage.SubscriptionStore = (*memStore)(nil)
	_ storage.TickRecorder      = (*memStore)(nil)
	_ storage.ChatStore         = (*memStore)(nil)
	_ storage.TokenStore        = (*memStore)(nil)
	_ storage.PriceStore        = (*memStore)(nil)
)

func newMemStore() *memStore {
	return &memStore{active: make(map[string]int64)}
}

func subKey(chatID int64, chainID, tokenAddress string) string {
	return fmt.Sprintf("%d/%s/%s", chatID, chainID, tokenAddress)
}

func (m *memStore) UpsertActiveSubscription(_ context.Context, sub storage.Subscription) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := subKey(sub.ChatID, sub.ChainID, sub.TokenAddress)
	if id, ok := m.active[key]; ok {
		return id, nil
	}
	m.nextID++
	m.active[key] = m.nextID
	return m.nextID, nil
}

func (m *memStore) DeactivateSubscription(_ context.Context, chatID int64, chainID, tokenAddress string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := subKey(chatID, chainID, tokenAddress)
	if _, ok := m.active[key]; !ok {
		return false, nil
	}
	delete(m.active, key)
	return true, nil
}

func (m *memStore) ListActiveSubscriptions(_ context.Context) ([]storage.Subscription, error) {
	return nil, nil
}

func (m *memStore) UpdateSubscriptionPrev(_ context.Context, _ int64, _ decimal.Decimal, _ time.Time) error {
	return nil
}

func (m *memStore) RecordTick(_ context.Context, _ storage.TickRecord) error { return nil }

func (m *memStore) UpsertChat(_ context.Context, _ storage.Chat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chats++
	return nil
}

func (m *memStore) UpsertToken(_ context.Context, _, _, _ string) error { return nil }

func (m *memStore) EnsureToken(_ context.Context, _, _ string) error { return nil }

func (m *memStore) TokenSymbol(_ context.Context, _, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.symbol, nil
}

func (m *memStore) ListPricesSince(_ context.Context, _, _ string, since time.Time) ([]storage.PricePoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []storage.PricePoint
	for _, p := range m.points {
		if !p.Bucket.Before(since) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) DeletePricesBefore(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func (m *memStore) CountPricesBefore(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func (m *memStore) chatCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.chats
}

func (m *memStore) setPoints(points []storage.PricePoint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.points = points
}

type botNotifier struct {
	mu    sync.Mutex
	texts []string
	imgs  []string
}

var _ alerting.Notifier = (*botNotifier)(nil)

func (n *botNotifier) SendText(_ context.Context, _ int64, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.texts = append(n.texts, text)
	return nil
}

func (n *botNotifier) SendImage(_ context.Context, _ int64, image []byte, caption string) error {
	if len(image) == 0 {
		return errors.New("空图片")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.imgs = append(n.imgs, caption)
	return nil
}

func (n *botNotifier) snapshot() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.texts...)
}

func (n *botNotifier) captions() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.imgs...)
}

func containsExact(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}

type botFixture struct {
	bot      *Bot
	sched    *monitor.Scheduler
	store    *memStore
	notifier *botNotifier
	fetch    *stubFetcher
}

func newBotFixture(t *testing.T) *botFixture {
	t.Helper()
	fx := &botFixture{
		store:    newMemStore(),
		notifier: &botNotifier{},
		fetch:    &stubFetcher{},
	}
	fx.fetch.setPrice("2.41")
	cfg := config.MonitorConfig{
		Interval:            time.Hour,
		BucketSeconds:       5,
		DefaultThresholdPct: 3,
		DefaultChain:        "solana",
	}
	fx.sched = monitor.New(context.Background(), cfg, fx.fetch, fx.store, fx.store, fx.notifier, zerolog.Nop())
	fx.bot = NewBot(nil, fx.notifier, fx.sched, fx.store, fx.store, fx.store, cfg, zerolog.Nop())
	return fx
}

func (fx *botFixture) dispatch(text string) {
	fx.bot.handleUpdate(context.Background(), Update{UpdateID: 1, Message: &Message{
		MessageID: 1,
		Chat:      Chat{ID: 42, Type: "private", Username: "alice"},
		Text:      text,
	}})
}

func TestHandleStartSendsHelp(t *testing.T) {
	fx := newBotFixture(t)
	fx.dispatch("/start")

	snap := fx.notifier.snapshot()
	if len(snap) != 1 || !strings.Contains(snap[0], "/monitor <tokenAddress>") {
		t.Fatalf("应发送帮助文本, 实际 %#v", snap)
	}
}

func TestHandleMonitorStartsMonitor(t *testing.T) {
	fx := newBotFixture(t)
	defer fx.sched.Stop()

	fx.dispatch("/monitor tok 5")

	if !containsExact(fx.notifier.snapshot(), "✅ Started monitoring tok (chain=solana, threshold=5%).") {
		t.Fatalf("应确认启动, 实际 %#v", fx.notifier.snapshot())
	}
	if fx.sched.ActiveCount() != 1 {
		t.Fatalf("应有一个监控任务, 实际 %d", fx.sched.ActiveCount())
	}
	if fx.store.chatCount() != 1 {
		t.Fatalf("应登记 chat, 实际 %d", fx.store.chatCount())
	}
}

func TestHandleMonitorRejectsBadAddress(t *testing.T) {
	fx := newBotFixture(t)

	fx.dispatch("/monitor nope 5 ethereum")

	snap := fx.notifier.snapshot()
	if len(snap) != 1 || !strings.Contains(snap[0], "not a valid ethereum token address") {
		t.Fatalf("应拒绝非法地址, 实际 %#v", snap)
	}
	if fx.sched.ActiveCount() != 0 {
		t.Fatalf("不应启动任务, 实际 %d", fx.sched.ActiveCount())
	}
}

func TestHandleStopStopsMonitor(t *testing.T) {
	fx := newBotFixture(t)
	defer fx.sched.Stop()

	fx.dispatch("/monitor tok 5")
	fx.dispatch("/stop tok")

	if !containsExact(fx.notifier.snapshot(), "🛑 Stopped monitoring tok.") {
		t.Fatalf("应确认停止, 实际 %#v", fx.notifier.snapshot())
	}
	if fx.sched.ActiveCount() != 0 {
		t.Fatalf("任务应被移除, 实际 %d", fx.sched.ActiveCount())
	}
}

func TestHandleStopWithoutMonitor(t *testing.T) {
	fx := newBotFixture(t)

	fx.dispatch("/stop tok")

	if !containsExact(fx.notifier.snapshot(), "ℹ️ No active monitor for tok.") {
		t.Fatalf("应提示无监控, 实际 %#v", fx.notifier.snapshot())
	}
}

func TestHandleChartSendsImage(t *testing.T) {
	fx := newBotFixture(t)
	base := time.Now().UTC().Add(-time.Hour)
	fx.store.setPoints([]storage.PricePoint{
		{ChainID: "solana", TokenAddress: "tok", Bucket: base, PriceUSD: decimal.RequireFromString("2.41")},
		{ChainID: "solana", TokenAddress: "tok", Bucket: base.Add(5 * time.Minute), PriceUSD: decimal.RequireFromString("2.43")},
	})
	fx.store.symbol = "WIF"

	fx.dispatch("/chart tok")

	caps := fx.notifier.captions()
	if len(caps) != 1 {
		t.Fatalf("应发送一张图表, 实际 %#v", caps)
	}
	if !strings.Contains(caps[0], "WIF (solana) — 2 points") {
		t.Fatalf("caption 不正确: %s", caps[0])
	}
}

func TestHandleChartEmptyHistory(t *testing.T) {
	fx := newBotFixture(t)

	fx.dispatch("/chart tok")

	if !containsExact(fx.notifier.snapshot(), "No price data yet for that token in the selected window.") {
		t.Fatalf("应提示无数据, 实际 %#v", fx.notifier.snapshot())
	}
}

func TestRunDispatchesAndAdvancesOffset(t *testing.T) {
	var (
		mu      sync.Mutex
		offsets []int64
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/getUpdates") {
			t.Errorf("意外的请求路径: %s", r.URL.Path)
		}
		var req struct {
			Offset int64 `json:"offset"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		mu.Lock()
		offsets = append(offsets, req.Offset)
		first := len(offsets) == 1
		mu.Unlock()

		if first {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"ok": true,
				"result": []map[string]any{{
					"update_id": 10,
					"message": map[string]any{
						"message_id": 1,
						"chat":       map[string]any{"id": 42, "type": "private"},
						"text":       "/start",
					},
				}},
			})
			return
		}
		time.Sleep(20 * time.Millisecond)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": []any{}})
	}))
	defer srv.Close()

	fx := newBotFixture(t)
	fx.bot.client = NewClient(config.TelegramConfig{
		BotToken:    "test-token",
		APIBase:     srv.URL,
		PollTimeout: time.Second,
	}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- fx.bot.Run(ctx) }()

	polled := func() int {
		mu.Lock()
		defer mu.Unlock()
		return len(offsets)
	}
	deadline := time.Now().Add(2 * time.Second)
	for polled() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("等待第二次 getUpdates 超时")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if snap := fx.notifier.snapshot(); len(snap) != 1 || !strings.Contains(snap[0], "/monitor <tokenAddress>") {
		t.Fatalf("应回复 /start 帮助, 实际 %#v", snap)
	}
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run 应随上下文取消退出, 实际 %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(offsets) < 2 || offsets[1] != 11 {
		t.Fatalf("offset 应推进到 11, 实际 %v", offsets)
	}
}
