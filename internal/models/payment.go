package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentKind string

const (
	PaymentSubscription PaymentKind = "subscription"
	PaymentTopup        PaymentKind = "topup"
)

type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentProcessing PaymentStatus = "processing"
	PaymentCompleted  PaymentStatus = "completed"
	PaymentFailed     PaymentStatus = "failed"
	PaymentCancelled  PaymentStatus = "cancelled"
	PaymentRefunded   PaymentStatus = "refunded"
)

// Terminal reports whether no further gateway-driven transition applies.
// Cancelled and refunded are administrative overrides and can be forced
// from any state.
func (s PaymentStatus) Terminal() bool {
	switch s {
	case PaymentCompleted, PaymentFailed, PaymentCancelled, PaymentRefunded:
		return true
	}
	return false
}

// Payment is one monetary transaction. The fee columns are computed once at
// creation from the then-current commission and tax rates; the rates are
// captured on the row so later rate changes never alter historical payments.
type Payment struct {
	ID     uint          `json:"id" gorm:"primaryKey"`
	UserID uint          `json:"user_id" gorm:"not null;index:idx_payments_user_status"`
	Kind   PaymentKind   `json:"kind" gorm:"not null;index:idx_payments_kind_status"`
	Status PaymentStatus `json:"status" gorm:"not null;default:'pending';index:idx_payments_user_status;index:idx_payments_kind_status"`

	SubscriptionID   *uint `json:"subscription_id"`
	CreditPurchaseID *uint `json:"credit_purchase_id"`

	Amount   decimal.Decimal `json:"amount" gorm:"type:decimal(10,2);not null"`
	Currency string          `json:"currency" gorm:"not null;default:'AZN'"`

	Commission     decimal.Decimal `json:"commission" gorm:"type:decimal(10,2)"`
	CommissionRate decimal.Decimal `json:"commission_rate" gorm:"type:decimal(5,4)"`
	GatewayAmount  decimal.Decimal `json:"gateway_amount" gorm:"type:decimal(10,2)"`
	Tax            decimal.Decimal `json:"tax" gorm:"type:decimal(10,2)"`
	TaxRate        decimal.Decimal `json:"tax_rate" gorm:"type:decimal(5,4)"`
	NetAmount      decimal.Decimal `json:"net_amount" gorm:"type:decimal(10,2)"`

	OrderID              string `json:"order_id" gorm:"unique;not null"`
	GatewayTransactionID string `json:"gateway_transaction_id" gorm:"index"`
	GatewayResponse      string `json:"gateway_response" gorm:"type:text"`
	CheckoutURL          string `json:"checkout_url" gorm:"type:text"`
	Notes                string `json:"notes"`

	CreatedAt   time.Time  `json:"created_at" gorm:"index"`
	ProcessedAt *time.Time `json:"processed_at"`
	CompletedAt *time.Time `json:"completed_at"`
}
