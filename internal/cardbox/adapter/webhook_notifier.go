package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/cardbox-io/cardbox/internal/auth"
	"github.com/cardbox-io/cardbox/internal/domain"
)

// SignatureHeader carries the hex HMAC-SHA256 of the request body so the
// receiving SMS gateway can authenticate deliveries.
const SignatureHeader = "X-Cardbox-Signature"

// httpDoer is the subset of *http.Client the webhook notifier uses.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

var _ auth.Notifier = (*WebhookNotifier)(nil)

// WebhookNotifier delivers OTP codes by POSTing them to an external SMS
// gateway. Each request body is signed with a shared secret so the
// gateway can reject forged deliveries.
type WebhookNotifier struct {
	client httpDoer
	url    string
	secret domain.SecretBytes
}

// NewWebhookNotifier creates a WebhookNotifier that posts to url, signing
// bodies with secret.
func NewWebhookNotifier(client httpDoer, url string, secret domain.SecretBytes) *WebhookNotifier {
	return &WebhookNotifier{client: client, url: url, secret: secret}
}

type webhookPayload struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// SendOTP posts the code to the gateway. Any non-2xx response counts as
// a delivery failure; the caller decides whether that matters.
func (n *WebhookNotifier) SendOTP(ctx context.Context, phone, otp string) error {
	body, err := json.Marshal(webhookPayload{
		Phone:   phone,
		Message: fmt.Sprintf("Your cardbox verification code is: %s", otp),
	})
	if err != nil {
		return fmt.Errorf("webhook notifier: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook notifier: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, auth.Sign(body, n.secret.Expose()))

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook notifier: send otp to %s: %w", maskPhone(phone), err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook notifier: send otp to %s: gateway returned %d",
			maskPhone(phone), resp.StatusCode)
	}
	return nil
}
