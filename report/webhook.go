package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// webhookPayload is the JSON body posted per notification.
type webhookPayload struct {
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Link     string `json:"link,omitempty"`
}

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// WebhookSink posts notifications to an HTTP endpoint as JSON. Delivery
// failures are logged and dropped; a down webhook never blocks a swap.
type WebhookSink struct {
	url    string
	client *http.Client
	logger Logger
}

// NewWebhookSink builds a sink for the given endpoint.
func NewWebhookSink(url string, logger Logger) *WebhookSink {
	return &WebhookSink{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

func (s *WebhookSink) Notify(severity, message, link string) {
	body, err := json.Marshal(webhookPayload{Severity: severity, Message: message, Link: link})
	if err != nil {
		s.logger.Warn("webhook payload marshal failed", "error", err)
		return
	}

	resp, err := s.client.Post(s.url, "application/json", bytes.NewReader(body))
	if err != nil {
		s.logger.Warn("webhook delivery failed", "error", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		s.logger.Warn("webhook delivery rejected", "error", fmt.Sprintf("status code %d", resp.StatusCode))
	}
}

// SlogNotifier writes notifications to the structured log. Used when no
// webhook is configured.
type SlogNotifier struct {
	Logger Logger
}

func (n SlogNotifier) Notify(severity, message, link string) {
	if severity == SeverityError {
		n.Logger.Error(message, "link", link)
		return
	}
	n.Logger.Info(message, "link", link)
}
