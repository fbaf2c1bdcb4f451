package payment

import (
	"context"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signFor(secret, data string) string {
	sum := sha1.Sum([]byte(secret + data + secret))
	return base64.StdEncoding.EncodeToString(sum[:])
}

func encodeWebhook(t *testing.T, payload map[string]string) string {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(raw)
}

func TestVerifyWebhook(t *testing.T) {
	client := NewEpointClient("https://epoint.test/api/1", "pub", testSecret, "https://app.test")

	data := encodeWebhook(t, map[string]string{
		"order_id":    "order-1",
		"transaction": "te-123",
		"status":      "success",
	})

	event, err := client.VerifyWebhook(data, signFor(testSecret, data))
	require.NoError(t, err)
	assert.Equal(t, "order-1", event.OrderID)
	assert.Equal(t, "te-123", event.TransactionID)
	assert.Equal(t, StatusCompleted, event.Status)
	assert.Equal(t, "success", event.RawStatus)
}

func TestVerifyWebhookBadSignature(t *testing.T) {
	client := NewEpointClient("https://epoint.test/api/1", "pub", testSecret, "https://app.test")

	data := encodeWebhook(t, map[string]string{
		"order_id":    "order-1",
		"transaction": "te-123",
		"status":      "success",
	})

	_, err := client.VerifyWebhook(data, signFor("wrong-secret", data))
	assert.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestVerifyWebhookMissingFields(t *testing.T) {
	client := NewEpointClient("https://epoint.test/api/1", "pub", testSecret, "https://app.test")

	data := encodeWebhook(t, map[string]string{
		"order_id": "order-1",
		"status":   "success",
	})

	_, err := client.VerifyWebhook(data, signFor(testSecret, data))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrSignatureInvalid)
}

func TestVerifyWebhookStatusNormalization(t *testing.T) {
	client := NewEpointClient("https://epoint.test/api/1", "pub", testSecret, "https://app.test")

	for raw, want := range map[string]Status{
		"success":   StatusCompleted,
		"completed": StatusCompleted,
		"failed":    StatusFailed,
		"error":     StatusFailed,
		"declined":  StatusFailed,
		"new":       StatusPending,
	} {
		data := encodeWebhook(t, map[string]string{
			"order_id":    "order-1",
			"transaction": "te-123",
			"status":      raw,
		})
		event, err := client.VerifyWebhook(data, signFor(testSecret, data))
		require.NoError(t, err, "status %q", raw)
		assert.Equal(t, want, event.Status, "status %q", raw)
	}
}

func TestCreateIntent(t *testing.T) {
	var gotPayload map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/request", r.URL.Path)
		require.NoError(t, r.ParseForm())

		data := r.FormValue("data")
		signature := r.FormValue("signature")
		require.NotEmpty(t, data)
		require.Equal(t, signFor(testSecret, data), signature)

		decoded, err := base64.StdEncoding.DecodeString(data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(decoded, &gotPayload))

		json.NewEncoder(w).Encode(map[string]string{
			"status":       "success",
			"transaction":  "te-456",
			"redirect_url": "https://epoint.test/pay/te-456",
		})
	}))
	defer srv.Close()

	client := NewEpointClient(srv.URL, "pub-key", testSecret, "https://app.test")
	intent, err := client.CreateIntent(context.Background(), IntentRequest{
		Amount:      decimal.RequireFromString("39.00"),
		Currency:    "AZN",
		OrderID:     "order-9",
		Description: "Pro plan subscription",
	})
	require.NoError(t, err)

	assert.Equal(t, "te-456", intent.TransactionID)
	assert.Equal(t, "https://epoint.test/pay/te-456", intent.RedirectURL)

	assert.Equal(t, "pub-key", gotPayload["public_key"])
	assert.Equal(t, "39.00", gotPayload["amount"])
	assert.Equal(t, "AZN", gotPayload["currency"])
	assert.Equal(t, "order-9", gotPayload["order_id"])
	assert.Equal(t, "https://app.test/checkout/success", gotPayload["success_redirect_url"])
	assert.Equal(t, "https://app.test/checkout/cancel", gotPayload["error_redirect_url"])
}

func TestCreateIntentProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"status":  "error",
			"message": "invalid merchant",
		})
	}))
	defer srv.Close()

	client := NewEpointClient(srv.URL, "pub-key", testSecret, "https://app.test")
	_, err := client.CreateIntent(context.Background(), IntentRequest{
		Amount:   decimal.RequireFromString("10.00"),
		Currency: "AZN",
		OrderID:  "order-9",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid merchant")
}

func TestQueryStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/get-status", r.URL.Path)
		require.NoError(t, r.ParseForm())

		decoded, err := base64.StdEncoding.DecodeString(r.FormValue("data"))
		require.NoError(t, err)
		var payload map[string]string
		require.NoError(t, json.Unmarshal(decoded, &payload))
		require.Equal(t, "te-456", payload["transaction_id"])

		json.NewEncoder(w).Encode(map[string]string{"status": "completed"})
	}))
	defer srv.Close()

	client := NewEpointClient(srv.URL, "pub-key", testSecret, "https://app.test")
	status, err := client.QueryStatus(context.Background(), "te-456")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, status)
}

func TestMockGatewayRoundTrip(t *testing.T) {
	mock := NewMockGateway("https://app.test/", testSecret)

	intent, err := mock.CreateIntent(context.Background(), IntentRequest{
		Amount:   decimal.RequireFromString("19.00"),
		Currency: "AZN",
		OrderID:  "order-7",
	})
	require.NoError(t, err)
	assert.Equal(t, "EPOINT_MOCK_order-7", intent.TransactionID)
	assert.Contains(t, intent.RedirectURL, "https://app.test/checkout/success")

	status, err := mock.QueryStatus(context.Background(), intent.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, status)

	// The mock verifies webhooks with the real signature scheme.
	data := encodeWebhook(t, map[string]string{
		"order_id":    "order-7",
		"transaction": intent.TransactionID,
		"status":      "success",
	})
	event, err := mock.VerifyWebhook(data, signFor(testSecret, data))
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, event.Status)

	_, err = mock.VerifyWebhook(data, "forged")
	assert.ErrorIs(t, err, ErrSignatureInvalid)
}
