// Package webhook implements an HTTP webhook notifier
package webhook

import (
	"context"
	"fmt"
	"time"

	"github.com/newthinker/premia/internal/notifier"
	"github.com/newthinker/premia/internal/provider"
)

// Webhook posts run reports as JSON
type Webhook struct {
	url    string
	client *provider.HTTPClient
}

// New creates a new Webhook notifier; every header is sent with each post
func New(url string, headers map[string]string) (*Webhook, error) {
	if url == "" {
		return nil, fmt.Errorf("webhook: url is required")
	}
	opts := []provider.HTTPOption{
		provider.WithTimeout(30 * time.Second),
		provider.WithRateLimit(0),
		provider.WithRetries(2, time.Second),
	}
	for k, v := range headers {
		opts = append(opts, provider.WithHeader(k, v))
	}
	return &Webhook{
		url:    url,
		client: provider.NewHTTPClient(opts...),
	}, nil
}

func (w *Webhook) Name() string { return "webhook" }

type payload struct {
	Type  string `json:"type"`
	Title string `json:"title"`
	notifier.Report
}

func (w *Webhook) Notify(ctx context.Context, report notifier.Report) error {
	body := payload{Type: "screen_report", Title: report.Title(), Report: report}
	if err := w.client.PostJSON(ctx, w.url, body, nil); err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	return nil
}
