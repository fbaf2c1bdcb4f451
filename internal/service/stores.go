package service

import (
	"time"

	"github.com/vidora/vidora-backend/internal/models"
)

// Store interfaces are declared here, on the consumer side. The gorm
// implementations live in internal/repository; tests substitute in-memory
// fakes.

type UserStore interface {
	GetByID(id uint) (*models.User, error)
	AddCredits(userID uint, amount int) error
	SetCredits(userID uint, amount int) error
}

type LedgerStore interface {
	AvailableBalance(userID uint) (balance int, held int, err error)
	PlaceHold(userID uint, kind models.GenerationKind, generationID uint, amount int, now time.Time) (*models.CreditHold, error)
	GetHold(id uint) (*models.CreditHold, error)
	ConfirmHold(id uint, now time.Time) (*models.CreditHold, bool, error)
	ReleaseHold(id uint, now time.Time) (*models.CreditHold, bool, error)
}

type PaymentStore interface {
	Create(payment *models.Payment) error
	GetByID(id uint) (*models.Payment, error)
	GetByOrderID(orderID string) (*models.Payment, error)
	Update(payment *models.Payment) error
	GetUserPayments(userID uint) ([]models.Payment, error)
	Settle(id uint, fn func(tx SettlementStores, p *models.Payment) error) error
}

// SettlementStores is the store set visible inside one settlement
// transaction opened by PaymentStore.Settle. The payment row stays locked
// for the duration of fn, so concurrent settlements of the same payment
// serialize, and every write in fn commits or rolls back together.
type SettlementStores struct {
	Payments      PaymentStore
	Users         UserStore
	Subscriptions SubscriptionStore
	Purchases     PurchaseStore
}

type SubscriptionStore interface {
	Create(sub *models.Subscription) error
	GetByID(id uint) (*models.Subscription, error)
	GetByUserID(userID uint) (*models.Subscription, error)
	Update(sub *models.Subscription) error
	DueForRenewal(now time.Time) ([]models.Subscription, error)
	HardCancel(userID uint, now time.Time) (*models.Subscription, error)
}

type PurchaseStore interface {
	Create(purchase *models.CreditPurchase) error
	GetByID(id uint) (*models.CreditPurchase, error)
	Update(purchase *models.CreditPurchase) error
	GetUserPurchases(userID uint) ([]models.CreditPurchase, error)
}

type GenerationStore interface {
	Create(gen *models.Generation) error
	GetByID(id uint) (*models.Generation, error)
	Update(gen *models.Generation) error
	GetUserGenerations(userID uint) ([]models.Generation, error)
}

// Mailer sends transactional billing mail. Implemented by pkg/email; a nil
// Mailer disables sending.
type Mailer interface {
	SendPaymentReceipt(to, kind, amount, currency, orderID string) error
	SendPastDueNotice(to, plan string) error
}
