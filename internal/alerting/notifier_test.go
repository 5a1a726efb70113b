package alerting

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestTelegramSendTextSuccess(t *testing.T) {
	received := make(map[string]any)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "sendMessage") {
			t.Fatalf("路径应包含 sendMessage, 实际 %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("解析请求体失败: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", srv.URL, time.Second, testLogger())
	if err := notifier.SendText(context.Background(), 42, "hello"); err != nil {
		t.Fatalf("SendText 应成功: %v", err)
	}

	if received["chat_id"] != float64(42) {
		t.Fatalf("chat_id 不正确: %#v", received)
	}
	if received["text"] != "hello" {
		t.Fatalf("text 不正确: %#v", received)
	}
}

func TestTelegramSendTextError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", srv.URL, time.Second, testLogger())
	if err := notifier.SendText(context.Background(), 42, "hello"); err == nil {
		t.Fatal("ok=false 应报错")
	}
}

func TestTelegramSendImageMultipart(t *testing.T) {
	var (
		gotPath    string
		gotChatID  string
		gotCaption string
		gotPhoto   []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("解析 multipart 失败: %v", err)
		}
		gotChatID = r.FormValue("chat_id")
		gotCaption = r.FormValue("caption")
		file, _, err := r.FormFile("photo")
		if err != nil {
			t.Fatalf("缺少 photo 字段: %v", err)
		}
		defer file.Close()
		gotPhoto, _ = io.ReadAll(file)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", srv.URL, time.Second, testLogger())
	if err := notifier.SendImage(context.Background(), 7, []byte{0x89, 'P', 'N', 'G'}, "cap"); err != nil {
		t.Fatalf("SendImage 应成功: %v", err)
	}

	if !strings.Contains(gotPath, "sendPhoto") {
		t.Fatalf("路径应包含 sendPhoto, 实际 %s", gotPath)
	}
	if gotChatID != "7" {
		t.Fatalf("chat_id 不正确: %s", gotChatID)
	}
	if gotCaption != "cap" {
		t.Fatalf("caption 不正确: %s", gotCaption)
	}
	if len(gotPhoto) != 4 {
		t.Fatalf("photo 内容不完整: %d 字节", len(gotPhoto))
	}
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
