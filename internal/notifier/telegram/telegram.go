// Package telegram implements a Telegram Bot API notifier
package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/newthinker/premia/internal/notifier"
	"github.com/newthinker/premia/internal/provider"
)

const defaultBaseURL = "https://api.telegram.org"

// Telegram sends run reports through the Bot API
type Telegram struct {
	botToken string
	chatID   string
	baseURL  string
	client   *provider.HTTPClient
}

// New creates a new Telegram notifier. An empty baseURL uses the public API.
func New(botToken, chatID, baseURL string) (*Telegram, error) {
	if botToken == "" {
		return nil, fmt.Errorf("telegram: bot_token is required")
	}
	if chatID == "" {
		return nil, fmt.Errorf("telegram: chat_id is required")
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client: provider.NewHTTPClient(
			provider.WithTimeout(30*time.Second),
			provider.WithRateLimit(1),
			provider.WithRetries(2, time.Second),
		),
	}, nil
}

func (t *Telegram) Name() string {
	return "telegram"
}

func (t *Telegram) Notify(ctx context.Context, report notifier.Report) error {
	return t.sendMessage(ctx, formatReport(report))
}

func formatReport(r notifier.Report) string {
	var sb strings.Builder

	statusEmoji := "✅"
	switch r.Status {
	case "partial":
		statusEmoji = "⚠️"
	case "empty":
		statusEmoji = "⏸️"
	}
	sb.WriteString(fmt.Sprintf("%s *%s*\n", statusEmoji, r.Title()))
	sb.WriteString(fmt.Sprintf("📊 %d candidates, %d excluded\n", r.Candidates, r.Excluded))

	for i, c := range r.Top {
		sb.WriteString(fmt.Sprintf("\n%d. *%s* %s %.2f exp %s (%d DTE)\n",
			i+1, c.Underlying, strings.ToUpper(string(c.OptionType)), c.Strike,
			c.Expiration.Format(time.DateOnly), c.DTE))
		if c.AnnualizedYield != nil {
			sb.WriteString(fmt.Sprintf("💰 Yield: %.1f%%  ", *c.AnnualizedYield*100))
		}
		sb.WriteString(fmt.Sprintf("🎯 Score: %.1f\n", c.Score))
		if c.WhyRankedHigh != "" {
			sb.WriteString(fmt.Sprintf("💡 %s\n", c.WhyRankedHigh))
		}
	}

	if len(r.Picks) > 0 {
		sb.WriteString("\n📌 Picks:\n")
		for _, p := range r.Picks {
			sb.WriteString(fmt.Sprintf("• %s %s %s", p.Symbol, p.Strategy, p.Term))
			if p.Strike != nil {
				sb.WriteString(fmt.Sprintf(" %.2f", *p.Strike))
			}
			sb.WriteString(fmt.Sprintf(": %s\n", p.Reason))
		}
	}

	if len(r.Errors) > 0 {
		sb.WriteString(fmt.Sprintf("\n❗ %d provider errors:\n", len(r.Errors)))
		for _, e := range r.Errors {
			sb.WriteString(fmt.Sprintf("• %s %s: %s\n", e.Symbol, e.Stage, e.Code))
		}
	}

	if r.Digest != "" {
		sb.WriteString("\n" + r.Digest + "\n")
	}
	return sb.String()
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (t *Telegram) sendMessage(ctx context.Context, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)

	var resp sendMessageResponse
	err := t.client.PostJSON(ctx, url, sendMessageRequest{
		ChatID:    t.chatID,
		Text:      text,
		ParseMode: "Markdown",
	}, &resp)
	if err != nil {
		return fmt.Errorf("telegram: failed to send message: %w", err)
	}
	if !resp.OK {
		return fmt.Errorf("telegram: API error: %s", resp.Description)
	}
	return nil
}
