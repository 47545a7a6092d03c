package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bnema/modal-accounts-cli/internal/domain"
	"github.com/bnema/modal-accounts-cli/internal/ports"
)

const webhookTimeout = 10 * time.Second

type webhookPayload struct {
	Kind     string    `json:"kind"`
	Title    string    `json:"title"`
	Message  string    `json:"message"`
	Account  string    `json:"account,omitempty"`
	Terminal bool      `json:"terminal"`
	SentAt   time.Time `json:"sent_at"`
}

// WebhookNotifier POSTs each notification as JSON to a single URL.
type WebhookNotifier struct {
	url        string
	httpClient *http.Client
	clock      ports.Clock
}

var _ ports.Notifier = (*WebhookNotifier)(nil)

func NewWebhookNotifier(url string, clock ports.Clock) *WebhookNotifier {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &WebhookNotifier{
		url:        url,
		httpClient: &http.Client{Timeout: webhookTimeout},
		clock:      clock,
	}
}

func (n *WebhookNotifier) Notify(ctx context.Context, notification domain.Notification) error {
	body, err := json.Marshal(webhookPayload{
		Kind:     string(notification.Kind),
		Title:    notification.Title,
		Message:  notification.Message,
		Account:  notification.Username,
		Terminal: notification.Terminal(),
		SentAt:   n.clock.Now(),
	})
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, domain.Truncate(string(snippet), 200))
	}

	return nil
}
