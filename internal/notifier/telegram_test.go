package notifier

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNotifySendsFormPayload(t *testing.T) {
	var gotPath, gotChat, gotText, gotMode string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotChat = r.PostFormValue("chat_id")
		gotText = r.PostFormValue("text")
		gotMode = r.PostFormValue("parse_mode")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tg := NewTelegram("token-123", "chat-456", "")
	tg.apiBase = srv.URL

	if err := tg.Notify("<b>hello</b>"); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if gotPath != "/bottoken-123/sendMessage" {
		t.Errorf("path = %q", gotPath)
	}
	if gotChat != "chat-456" || gotText != "<b>hello</b>" || gotMode != "HTML" {
		t.Errorf("form = chat %q, text %q, mode %q", gotChat, gotText, gotMode)
	}
}

func TestNotifyReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"ok":false,"description":"bot was blocked"}`))
	}))
	defer srv.Close()

	tg := NewTelegram("token", "chat", "")
	tg.apiBase = srv.URL

	err := tg.Notify("hi")
	if err == nil {
		t.Fatal("expected error for non-200 response")
	}
	if !strings.Contains(err.Error(), "403") {
		t.Errorf("error should carry the status code: %v", err)
	}
}

func TestFormatters(t *testing.T) {
	drained := FormatDrained("sk-abcd********1234", 0)
	if !strings.Contains(drained, "sk-abcd********1234") || !strings.Contains(drained, "0.0000") {
		t.Errorf("unexpected drained message: %q", drained)
	}

	burn := FormatFastBurn("sk-abcd********1234", 3.25, "~2h0m")
	if !strings.Contains(burn, "3.25%/h") || !strings.Contains(burn, "~2h0m") {
		t.Errorf("unexpected fast burn message: %q", burn)
	}
}
