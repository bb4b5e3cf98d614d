package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const (
	defaultCooldown = 30 * time.Second
	defaultAPIBase  = "https://api.telegram.org"
	requestTimeout  = 10 * time.Second
)

type Config struct {
	BotToken string
	ChatID   string
	Cooldown time.Duration
	// APIBase overrides the Telegram API endpoint, mainly for tests.
	APIBase string
	Log     *slog.Logger
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

// Notifier pushes fire alerts to a Telegram chat. Without credentials
// it stays disabled and every send is a silent no-op, so deployments
// that skip the integration run unchanged.
type Notifier struct {
	botToken string
	chatID   string
	cooldown time.Duration
	apiBase  string
	client   *http.Client
	log      *slog.Logger

	mu        sync.Mutex
	lastAlert time.Time
}

func New(cfg Config) *Notifier {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = defaultCooldown
	}
	if cfg.APIBase == "" {
		cfg.APIBase = defaultAPIBase
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}

	n := &Notifier{
		botToken: cfg.BotToken,
		chatID:   cfg.ChatID,
		cooldown: cfg.Cooldown,
		apiBase:  cfg.APIBase,
		client:   &http.Client{Timeout: requestTimeout},
		log:      cfg.Log.With("component", "alert_notifier"),
	}
	if !n.Enabled() {
		n.log.Warn("telegram alerts disabled, credentials not configured")
	}
	return n
}

func (n *Notifier) Enabled() bool {
	return n.botToken != "" && n.chatID != ""
}

// Send pushes one alert message. Sends inside the cooldown window are
// dropped, not queued. The window opens at the attempt, so a failing
// API is not hammered either.
func (n *Notifier) Send(ctx context.Context, text string) error {
	if !n.Enabled() {
		return nil
	}

	n.mu.Lock()
	now := time.Now()
	if now.Sub(n.lastAlert) < n.cooldown {
		n.mu.Unlock()
		n.log.Debug("alert suppressed by cooldown")
		return nil
	}
	n.lastAlert = now
	n.mu.Unlock()

	payload, err := json.Marshal(sendMessageRequest{ChatID: n.chatID, Text: text})
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create alert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("alert request failed with status %d: %s", resp.StatusCode, string(body))
	}

	n.log.Info("alert sent", "chat_id", n.chatID)
	return nil
}
