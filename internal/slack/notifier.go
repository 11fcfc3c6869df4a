package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/momentum-leads/momentum-codex/internal/resilience"
)

// Notifier sends deal notifications to a Slack incoming webhook. A Notifier
// with an empty webhook URL is a no-op, so callers never need to nil-check.
type Notifier struct {
	webhookURL string
	httpClient *http.Client
}

// NewNotifier creates a notifier for the given incoming webhook URL.
func NewNotifier(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		httpClient: resilience.NewHTTPClient(10 * time.Second),
	}
}

// Enabled reports whether a webhook URL is configured.
func (n *Notifier) Enabled() bool {
	return n.webhookURL != ""
}

type message struct {
	Text   string `json:"text"`
	Blocks any    `json:"blocks,omitempty"`
}

// Send posts a text message to the webhook. Disabled notifiers return nil
// immediately.
func (n *Notifier) Send(ctx context.Context, text string) error {
	if !n.Enabled() {
		slog.Debug("Slack notifier disabled, dropping message")
		return nil
	}

	payload, err := json.Marshal(message{Text: text})
	if err != nil {
		return fmt.Errorf("failed to encode slack message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("slack webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("slack webhook error: status %d, body: %s", resp.StatusCode, string(body))
	}
	return nil
}

// FormatNewDealMessage renders the message posted when a deal is booked.
func FormatNewDealMessage(dealName string, amount *float64, owner, source string) string {
	amountText := "N/A"
	if amount != nil {
		amountText = fmt.Sprintf("$%.2f", *amount)
	}
	return fmt.Sprintf("New deal booked: %s (%s) by %s via %s.", dealName, amountText, owner, source)
}

// FormatStageChangeMessage renders the message posted when a deal changes stage.
func FormatStageChangeMessage(dealName, stage string) string {
	return fmt.Sprintf("Deal '%s' moved to stage %s.", dealName, stage)
}
