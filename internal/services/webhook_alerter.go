package services

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"fulfillment-api/pkg/logging"
)

// WebhookAlerter pushes fulfillment events to an operations endpoint.
type WebhookAlerter struct {
	httpClient *http.Client
	url        string
	secret     string
}

// NewWebhookAlerter creates an alerter; returns nil when no URL is
// configured.
func NewWebhookAlerter(url, secret string) *WebhookAlerter {
	if url == "" {
		return nil
	}
	return &WebhookAlerter{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		url:    url,
		secret: secret,
	}
}

// WebhookPayload is the body posted to the operations endpoint. It
// identifies the affected service and user but never carries
// credential secrets.
type WebhookPayload struct {
	Event     string `json:"event"`
	ServiceID string `json:"service_id"`
	UserID    string `json:"user_id"`
	Timestamp string `json:"timestamp"`
}

// Alert sends the event asynchronously with retries. Callers never
// block on or fail from delivery.
func (wa *WebhookAlerter) Alert(event, serviceID, userID string) {
	payload := WebhookPayload{
		Event:     event,
		ServiceID: serviceID,
		UserID:    userID,
		Timestamp: time.Now().Format(time.RFC3339),
	}
	go wa.sendWithRetry(payload)
}

// sendWithRetry sends webhook with retry mechanism
// Retry schedule: 1s, 5s, 30s (3 attempts total)
func (wa *WebhookAlerter) sendWithRetry(payload WebhookPayload) {
	retryDelays := []time.Duration{1 * time.Second, 5 * time.Second, 30 * time.Second}
	maxRetries := len(retryDelays)

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := wa.send(payload)
		if err == nil {
			logging.Infof("Webhook alert sent - event: %s, service: %s, attempt: %d",
				payload.Event, payload.ServiceID, attempt+1)
			return
		}

		logging.Errorf("Webhook alert failed - event: %s, service: %s, attempt: %d, error: %v",
			payload.Event, payload.ServiceID, attempt+1, err)

		if attempt < maxRetries-1 {
			time.Sleep(retryDelays[attempt])
		}
	}

	logging.Errorf("Webhook alert failed after %d attempts - event: %s, service: %s",
		maxRetries, payload.Event, payload.ServiceID)
}

// send posts a single webhook request
func (wa *WebhookAlerter) send(payload WebhookPayload) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequest("POST", wa.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Fulfillment-Webhook/1.0")

	if wa.secret != "" {
		req.Header.Set("X-Fulfillment-Signature", wa.sign(jsonData))
	}

	resp, err := wa.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return nil
}

// sign generates the HMAC-SHA256 signature for a webhook body
func (wa *WebhookAlerter) sign(payload []byte) string {
	h := hmac.New(sha256.New, []byte(wa.secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
