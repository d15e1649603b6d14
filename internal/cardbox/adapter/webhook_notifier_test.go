package adapter

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardbox-io/cardbox/internal/auth"
	"github.com/cardbox-io/cardbox/internal/domain"
)

func TestWebhookNotifier_SignsRequestBody(t *testing.T) {
	secret := domain.SecretBytes("webhook-secret")

	var gotBody []byte
	var gotSignature string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error
		gotBody, err = io.ReadAll(r.Body)
		require.NoError(t, err)
		gotSignature = r.Header.Get(SignatureHeader)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.Client(), srv.URL, secret)
	err := n.SendOTP(context.Background(), "+15550001111", "123456")
	require.NoError(t, err)

	assert.Contains(t, string(gotBody), "123456")
	assert.Contains(t, string(gotBody), "+15550001111")
	assert.True(t, auth.VerifySignature(gotBody, secret.Expose(), gotSignature),
		"the gateway must be able to verify the delivery")
}

func TestWebhookNotifier_GatewayErrorIsDeliveryFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.Client(), srv.URL, domain.SecretBytes("s"))
	err := n.SendOTP(context.Background(), "+15550001111", "123456")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "+15550001111", "errors carry masked phones only")
}
