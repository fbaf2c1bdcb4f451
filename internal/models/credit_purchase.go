package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PurchaseStatus string

const (
	PurchasePending   PurchaseStatus = "pending"
	PurchaseCompleted PurchaseStatus = "completed"
	PurchaseFailed    PurchaseStatus = "failed"
	PurchaseCancelled PurchaseStatus = "cancelled"
)

// CreditPurchase is a top-up request. Completing it adds TotalCredits to the
// balance cumulatively, unlike subscription renewal which resets it.
type CreditPurchase struct {
	ID               uint            `json:"id" gorm:"primaryKey"`
	UserID           uint            `json:"user_id" gorm:"not null;index:idx_purchases_user_status"`
	Package          string          `json:"package" gorm:"not null"`
	Status           PurchaseStatus  `json:"status" gorm:"not null;default:'pending';index:idx_purchases_user_status"`
	CreditsPurchased int             `json:"credits_purchased" gorm:"not null"`
	BonusCredits     int             `json:"bonus_credits" gorm:"not null;default:0"`
	TotalCredits     int             `json:"total_credits" gorm:"not null"`
	Price            decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	Currency         string          `json:"currency" gorm:"not null;default:'AZN'"`
	CreatedAt        time.Time       `json:"created_at"`
	CompletedAt      *time.Time      `json:"completed_at"`
}
