package orders

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// WebhookNotifier posts order events to a supplier-facing endpoint.
type WebhookNotifier struct {
	httpClient *resty.Client
	url        string
}

// NewWebhookNotifier builds a resty-backed notifier for url.
func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	restyClient := resty.New()
	restyClient.
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "stockroom-orders").
		SetTimeout(timeout)
	return &WebhookNotifier{httpClient: restyClient, url: url}
}

type webhookPayload struct {
	Event  string    `json:"event"`
	SentAt time.Time `json:"sentAt"`
	Order  Order     `json:"order"`
}

type webhookError struct {
	Error string `json:"error"`
}

// Notify delivers one event. Any non-2xx answer is an error.
func (n *WebhookNotifier) Notify(ctx context.Context, event string, order Order) error {
	apiErr := new(webhookError)
	resp, err := n.httpClient.R().
		SetContext(ctx).
		SetBody(webhookPayload{Event: event, SentAt: time.Now().UTC(), Order: order}).
		SetError(apiErr).
		Post(n.url)
	if err != nil {
		return fmt.Errorf("post order webhook: %w", err)
	}
	if resp.StatusCode() >= http.StatusMultipleChoices {
		return fmt.Errorf("order webhook error: code=%d, message=%s", resp.StatusCode(), apiErr.Error)
	}
	return nil
}
