package notifier

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const telegramAPIBase = "https://api.telegram.org"

// Telegram sends alerts via the Telegram Bot API.
type Telegram struct {
	BotToken string
	ChatID   string
	Client   *http.Client

	apiBase string
}

// NewTelegram creates a notifier with optional proxy support.
func NewTelegram(botToken, chatID, proxyURL string) *Telegram {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &Telegram{
		BotToken: botToken,
		ChatID:   chatID,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		apiBase: telegramAPIBase,
	}
}

// Notify delivers one message to the configured chat as HTML.
func (t *Telegram) Notify(text string) error {
	form := url.Values{
		"chat_id":    {t.ChatID},
		"text":       {text},
		"parse_mode": {"HTML"},
	}
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.BotToken)

	resp, err := t.Client.PostForm(endpoint, form)
	if err != nil {
		return fmt.Errorf("post alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("alert rejected: status %d: %s", resp.StatusCode, detail)
	}
	return nil
}

// FormatDrained renders the alert sent when a key's balance reaches zero
// and tracking is auto-retired.
func FormatDrained(maskedKey string, balance float64) string {
	return fmt.Sprintf("🪫 <b>Key drained</b>\n\n%s\nBalance: %.4f\nTracking disabled.", maskedKey, balance)
}

// FormatFastBurn renders the alert sent when a key crosses the very-fast
// burn threshold.
func FormatFastBurn(maskedKey string, hourlyPercent float64, eta string) string {
	return fmt.Sprintf("🔥 <b>Fast burn</b>\n\n%s\nBurn: %.2f%%/h\nETA: %s", maskedKey, hourlyPercent, eta)
}
