package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/formula-trader/internal/domain"
)

// WebhookNotifier posts trade events to a webhook URL. Notification is
// fire-and-forget: failures are logged and never block or fail the
// trading cycle that produced the event.
type WebhookNotifier struct {
	url    string
	client *http.Client
	log    zerolog.Logger
}

// NewWebhookNotifier creates a webhook notifier. An empty URL yields a
// notifier that only logs events, which is what research mode uses.
func NewWebhookNotifier(url string, log zerolog.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log.With().Str("component", "notifier").Logger(),
	}
}

// Notify delivers one trade event. Errors are swallowed after logging.
func (n *WebhookNotifier) Notify(event domain.TradeEvent) {
	n.log.Info().
		Str("kind", string(event.Kind)).
		Str("symbol", event.Symbol).
		Int64("quantity", event.Quantity).
		Float64("price", event.Price).
		Msg("Trade notification")

	if n.url == "" {
		return
	}

	if err := n.post(event); err != nil {
		n.log.Warn().Err(err).Str("symbol", event.Symbol).Msg("Failed to deliver notification")
	}
}

func (n *WebhookNotifier) post(event domain.TradeEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	resp, err := n.client.Post(n.url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to post event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}
