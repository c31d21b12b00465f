// Package notifications posts run digests to a chat webhook. Slack and
// Discord payloads differ; the URL decides which shape is sent.
package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"trade-analytics-lab/internal/httputil"
	"trade-analytics-lab/internal/metrics"
)

type Sender struct {
	webhookURL string
	botName    string
	httpClient *http.Client
	retry      httputil.RetryConfig
}

func NewSender(webhookURL, botName string) *Sender {
	if botName == "" {
		botName = "TradeAnalytics"
	}
	return &Sender{
		webhookURL: webhookURL,
		botName:    botName,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retry: httputil.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   1 * time.Second,
			MaxDelay:    5 * time.Second,
		},
	}
}

// Send posts msg to the configured webhook. A sender with no URL logs the
// message and returns nil, so callers do not have to branch on Enabled.
func (s *Sender) Send(ctx context.Context, msg string) error {
	formatted := fmt.Sprintf("[%s] %s", s.botName, msg)
	slog.Info("notification", "message", formatted)

	if s.webhookURL == "" {
		return nil
	}

	body, err := json.Marshal(s.formatPayload(formatted))
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := httputil.Do(ctx, s.httpClient, s.retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	resp.Body.Close()
	return nil
}

func (s *Sender) formatPayload(msg string) map[string]string {
	if strings.Contains(s.webhookURL, "discord") {
		return map[string]string{
			"content":  msg,
			"username": s.botName,
		}
	}
	return map[string]string{
		"text":     fmt.Sprintf("`%s`", msg),
		"username": s.botName,
	}
}

func (s *Sender) Enabled() bool {
	return s.webhookURL != ""
}

// Digest renders a one-line run summary suitable for a chat message.
// overall may be nil when no metrics were computed for the run.
func Digest(title, snapshot string, accepted, rejected int, overall *metrics.MetricSet) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: snapshot %s, %d accepted, %d rejected", title, snapshot, accepted, rejected)
	if overall != nil {
		winPct := overall.WinRate.Mul(decimal.NewFromInt(100))
		fmt.Fprintf(&b, ", %d closed / %d open, net PnL %s, win rate %s%%",
			overall.ClosedTrades, overall.OpenPositions, overall.NetPnL.String(), winPct.StringFixed(2))
	}
	return b.String()
}
