// Package notify delivers advertisement episode notifications to the
// configured channels: an HTTP webhook and the JSON-lines event log.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/vizmute/vizmute/internal/util"
)

const (
	webhookTimeout   = 10 * time.Second
	webhookRetries   = 3
	initialRetryWait = 1 * time.Second
	maxRetryWait     = 30 * time.Second
)

// WebhookPayload represents the data sent to webhook endpoints.
type WebhookPayload struct {
	Event     string `json:"event"`
	Title     string `json:"title,omitempty"`
	Artist    string `json:"artist,omitempty"`
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp"`
}

// SendAdWebhook notifies the configured webhook of an advertisement event.
func SendAdWebhook(webhookURL, event, title, artist string) error {
	return sendWebhook(webhookURL, &WebhookPayload{
		Event:     event,
		Title:     title,
		Artist:    artist,
		Timestamp: timestampUTC(),
	})
}

// SendTestWebhook sends a test webhook notification.
func SendTestWebhook(webhookURL string) error {
	if webhookURL == "" {
		return fmt.Errorf("webhook URL not configured")
	}
	return sendWebhook(webhookURL, &WebhookPayload{
		Event:     "test",
		Message:   "This is a test notification from the visualizer",
		Timestamp: timestampUTC(),
	})
}

// sendWebhook delivers a notification, retrying transient failures.
func sendWebhook(webhookURL string, payload *WebhookPayload) error {
	if !util.IsConfigured(webhookURL) {
		return nil // Silently skip if not configured
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return util.WrapError("marshal payload", err)
	}

	client := &http.Client{Timeout: webhookTimeout}
	backoff := util.NewBackoff(initialRetryWait, maxRetryWait)

	var lastErr error
	for attempt := 0; attempt < webhookRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(backoff.Next())
		}

		resp, err := client.Post(webhookURL, "application/json", bytes.NewReader(jsonData))
		if err != nil {
			lastErr = util.WrapError("send webhook request", err)
			continue
		}
		_ = resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		lastErr = fmt.Errorf("webhook returned status %d", resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return lastErr // Client errors will not improve with retries
		}
	}
	return lastErr
}

func timestampUTC() string {
	return time.Now().UTC().Format(time.RFC3339)
}
