package models

import "time"

type SubscriptionStatus string

const (
	SubscriptionPending   SubscriptionStatus = "pending"
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionPastDue   SubscriptionStatus = "past_due"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionExpired   SubscriptionStatus = "expired"
)

func (s SubscriptionStatus) Terminal() bool {
	return s == SubscriptionCancelled || s == SubscriptionExpired
}

// Subscription is the one-per-account monthly package. Activation and
// renewal overwrite the account balance with the plan's monthly credits:
// unused credits are forfeited (no rollover).
type Subscription struct {
	ID            uint               `json:"id" gorm:"primaryKey"`
	UserID        uint               `json:"user_id" gorm:"uniqueIndex;not null"`
	Plan          string             `json:"plan" gorm:"not null"`
	Status        SubscriptionStatus `json:"status" gorm:"not null;default:'pending';index"`
	AutoRenew     bool               `json:"auto_renew" gorm:"not null;default:true"`
	PeriodStart   *time.Time         `json:"period_start"`
	PeriodEnd     *time.Time         `json:"period_end" gorm:"index"`
	CancelledAt   *time.Time         `json:"cancelled_at"`
	LastRenewedAt *time.Time         `json:"last_renewed_at"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

func (s *Subscription) IsActive(now time.Time) bool {
	return s.Status == SubscriptionActive && s.PeriodEnd != nil && s.PeriodEnd.After(now)
}
