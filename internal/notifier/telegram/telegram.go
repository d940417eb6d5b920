package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/notifier"
)

const defaultAPIBase = "https://api.telegram.org"

// Telegram implements the Notifier interface for Telegram Bot API
type Telegram struct {
	botToken string
	chatID   string
	apiBase  string
	client   *http.Client
}

// New creates a new Telegram notifier
func New(botToken, chatID string) *Telegram {
	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		apiBase:  defaultAPIBase,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (t *Telegram) Name() string {
	return "telegram"
}

func (t *Telegram) Init(cfg notifier.Config) error {
	if token, ok := notifier.StringParam(cfg.Params, "bot_token"); ok {
		t.botToken = token
	}
	if chatID, ok := notifier.StringParam(cfg.Params, "chat_id"); ok {
		t.chatID = chatID
	}
	if base, ok := notifier.StringParam(cfg.Params, "api_base"); ok {
		t.apiBase = base
	}

	if t.botToken == "" {
		return fmt.Errorf("telegram: bot_token is required")
	}
	if t.chatID == "" {
		return fmt.Errorf("telegram: chat_id is required")
	}
	if t.apiBase == "" {
		t.apiBase = defaultAPIBase
	}
	if t.client == nil {
		t.client = &http.Client{Timeout: 30 * time.Second}
	}

	return nil
}

func (t *Telegram) Notify(ctx context.Context, summary notifier.RunSummary) error {
	return t.sendMessage(ctx, t.formatSummary(summary))
}

func (t *Telegram) formatSummary(s notifier.RunSummary) string {
	var sb strings.Builder

	if s.Failed() {
		sb.WriteString(fmt.Sprintf("❌ *%s* run failed\n", s.Project))
		sb.WriteString(fmt.Sprintf("💥 Error: %s\n", s.Err))
	} else {
		emoji := "📈"
		if s.TotalReturn < 0 {
			emoji = "📉"
		}
		sb.WriteString(fmt.Sprintf("%s *%s* run finished\n", emoji, s.Project))
		sb.WriteString(fmt.Sprintf("📊 Return: %.2f%% | Sharpe: %s\n", s.TotalReturn*100, notifier.FormatRatio(s.Sharpe)))
		sb.WriteString(fmt.Sprintf("🔻 Max drawdown: %.2f%%\n", s.MaxDrawdown*100))
		sb.WriteString(fmt.Sprintf("🔄 Rebalances: %d over %d periods, %d assets\n", s.Rebalances, s.Periods, s.Assets))
		if s.Overlaps > 0 {
			sb.WriteString(fmt.Sprintf("⚠️ Basket overlaps: %d\n", s.Overlaps))
		}
	}

	if s.Source != "" {
		sb.WriteString(fmt.Sprintf("🗂 Source: %s\n", s.Source))
	}
	if s.RunDir != "" {
		sb.WriteString(fmt.Sprintf("📁 %s\n", s.RunDir))
	}
	sb.WriteString(fmt.Sprintf("⏰ Time: %s", s.Finished.Format("2006-01-02 15:04:05")))

	return sb.String()
}

func (t *Telegram) sendMessage(ctx context.Context, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.botToken)

	payload := map[string]any{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var result map[string]any
		json.NewDecoder(resp.Body).Decode(&result)
		return fmt.Errorf("telegram: API error (status %d): %v", resp.StatusCode, result)
	}

	return nil
}
