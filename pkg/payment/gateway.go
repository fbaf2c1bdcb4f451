// Package payment abstracts the payment provider behind the Gateway
// interface. The production implementation speaks the E-point API; the mock
// implementation is selected by configuration for local and test runs.
package payment

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// Status is a normalized gateway payment status.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// ErrSignatureInvalid means a webhook payload failed signature
// verification. Callers must reject the payload and never process it.
var ErrSignatureInvalid = errors.New("webhook signature verification failed")

// IntentRequest asks the gateway to open a checkout for one payment.
type IntentRequest struct {
	Amount      decimal.Decimal
	Currency    string
	OrderID     string
	Description string
}

// Intent is the gateway's handle for a created payment.
type Intent struct {
	TransactionID string
	RedirectURL   string
	RawResponse   string
}

// WebhookEvent is a verified, decoded gateway callback.
type WebhookEvent struct {
	OrderID       string
	TransactionID string
	Status        Status
	RawStatus     string
}

type Gateway interface {
	// CreateIntent registers the payment with the provider and returns the
	// transaction handle plus the checkout redirect URL.
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)

	// QueryStatus asks the provider for the current state of a transaction.
	QueryStatus(ctx context.Context, transactionID string) (Status, error)

	// VerifyWebhook checks the payload signature and decodes the callback
	// fields. Returns ErrSignatureInvalid on a bad signature.
	VerifyWebhook(data, signature string) (*WebhookEvent, error)
}

// normalizeStatus maps provider status strings onto Status. The provider
// reports "success" in webhooks but "completed" from the status endpoint.
func normalizeStatus(raw string) Status {
	switch raw {
	case "success", "completed":
		return StatusCompleted
	case "failed", "error", "declined":
		return StatusFailed
	default:
		return StatusPending
	}
}
