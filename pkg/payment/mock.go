package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// MockGateway replaces the real provider for local development and tests.
// Intents succeed immediately and QueryStatus always reports completed, so
// checkout flows settle without leaving the process.
type MockGateway struct {
	frontendURL string
	secretKey   string
}

func NewMockGateway(frontendURL, secretKey string) *MockGateway {
	return &MockGateway{
		frontendURL: strings.TrimRight(frontendURL, "/"),
		secretKey:   secretKey,
	}
}

func (m *MockGateway) CreateIntent(_ context.Context, req IntentRequest) (*Intent, error) {
	txID := "EPOINT_MOCK_" + req.OrderID
	return &Intent{
		TransactionID: txID,
		RedirectURL:   fmt.Sprintf("%s/checkout/success?transaction_id=%s&mock=true", m.frontendURL, txID),
		RawResponse:   fmt.Sprintf(`{"status":"success","transaction":"%s","mock":true}`, txID),
	}, nil
}

func (m *MockGateway) QueryStatus(_ context.Context, _ string) (Status, error) {
	return StatusCompleted, nil
}

// VerifyWebhook applies the same signature scheme as the real client so
// webhook handling stays honest in test mode.
func (m *MockGateway) VerifyWebhook(data, signature string) (*WebhookEvent, error) {
	sum := sha1.Sum([]byte(m.secretKey + data + m.secretKey))
	expected := base64.StdEncoding.EncodeToString(sum[:])
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return nil, ErrSignatureInvalid
	}

	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("mock gateway: decoding webhook data: %w", err)
	}
	var payload webhookPayload
	if err := json.Unmarshal(decoded, &payload); err != nil {
		return nil, fmt.Errorf("mock gateway: parsing webhook data: %w", err)
	}
	if payload.OrderID == "" || payload.Transaction == "" || payload.Status == "" {
		return nil, fmt.Errorf("mock gateway: webhook data missing required fields")
	}
	return &WebhookEvent{
		OrderID:       payload.OrderID,
		TransactionID: payload.Transaction,
		Status:        normalizeStatus(payload.Status),
		RawStatus:     payload.Status,
	}, nil
}
