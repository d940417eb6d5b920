// Package webhook implements an HTTP webhook notifier
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/notifier"
)

// Webhook implements the Notifier interface for HTTP webhooks
type Webhook struct {
	url     string
	headers map[string]string
	client  *http.Client
}

// New creates a new Webhook notifier
func New(url string, headers map[string]string) *Webhook {
	return &Webhook{
		url:     url,
		headers: headers,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (w *Webhook) Name() string { return "webhook" }

func (w *Webhook) Init(cfg notifier.Config) error {
	if url, ok := notifier.StringParam(cfg.Params, "url"); ok {
		w.url = url
	}
	if headers, ok := notifier.StringMapParam(cfg.Params, "headers"); ok {
		w.headers = headers
	}

	if w.url == "" {
		return fmt.Errorf("webhook: url is required")
	}

	if w.client == nil {
		w.client = &http.Client{Timeout: 30 * time.Second}
	}

	return nil
}

func (w *Webhook) Notify(ctx context.Context, summary notifier.RunSummary) error {
	return w.post(ctx, summaryToPayload(summary))
}

func summaryToPayload(s notifier.RunSummary) map[string]any {
	payload := map[string]any{
		"type":     "run",
		"status":   "success",
		"headline": s.Headline(),
		"run_id":   s.RunID,
		"project":  s.Project,
		"run_dir":  s.RunDir,
		"revision": s.Revision,
		"source":   s.Source,
		"finished": s.Finished.Format(time.RFC3339),
	}
	if s.Failed() {
		payload["status"] = "error"
		payload["error"] = s.Err
		return payload
	}

	payload["assets"] = s.Assets
	payload["periods"] = s.Periods
	payload["rebalances"] = s.Rebalances
	payload["overlaps"] = s.Overlaps
	payload["total_return"] = s.TotalReturn
	payload["max_drawdown"] = s.MaxDrawdown
	payload["total_cost"] = s.TotalCost
	// JSON has no NaN
	if math.IsNaN(s.Sharpe) {
		payload["sharpe"] = nil
	} else {
		payload["sharpe"] = s.Sharpe
	}
	return payload
}

func (w *Webhook) post(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("webhook: failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: server returned %d", resp.StatusCode)
	}

	return nil
}
