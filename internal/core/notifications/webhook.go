package notifications

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	SignatureHeader = "X-GoVend-Signature"
	userAgent       = "GoVend-Webhook/1.0"
)

// Event is the envelope every webhook carries.
type Event struct {
	Type      string    `json:"event"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a signature produced by Sign.
func Verify(body []byte, secret, signature string) bool {
	expected := Sign(body, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Sender posts signed JSON payloads.
type Sender struct {
	Client *http.Client
	Secret string
}

func NewSender(secret string) *Sender {
	// Don't let slow receivers block the worker
	return &Sender{Client: &http.Client{Timeout: 5 * time.Second}, Secret: secret}
}

// SendWebhook sends the JSON payload to url
func (s *Sender) SendWebhook(ctx context.Context, url string, payload any) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if s.Secret != "" {
		req.Header.Set(SignatureHeader, Sign(jsonData, s.Secret))
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return fmt.Errorf("webhook receiver returned error: %d", resp.StatusCode)
}
