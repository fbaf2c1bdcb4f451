package models

import "time"

// HoldStatus is the lifecycle of a credit hold. A hold's credits were
// already subtracted from the balance when it was created: confirming it
// only marks finality, releasing it puts the credits back.
type HoldStatus string

const (
	HoldOpen      HoldStatus = "hold"
	HoldConfirmed HoldStatus = "confirmed"
	HoldReleased  HoldStatus = "released"
)

func (s HoldStatus) Terminal() bool {
	return s == HoldConfirmed || s == HoldReleased
}

type CreditHold struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	UserID       uint           `json:"user_id" gorm:"not null;index:idx_holds_user_status"`
	Kind         GenerationKind `json:"kind" gorm:"not null"`
	GenerationID uint           `json:"generation_id" gorm:"not null;index"`
	CreditsHeld  int            `json:"credits_held" gorm:"not null"`
	Status       HoldStatus     `json:"status" gorm:"not null;default:'hold';index:idx_holds_user_status"`
	CreatedAt    time.Time      `json:"created_at"`
	ConfirmedAt  *time.Time     `json:"confirmed_at"`
	ReleasedAt   *time.Time     `json:"released_at"`
}
