package repository

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vidora/vidora-backend/internal/models"
	"github.com/vidora/vidora-backend/internal/service"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{
		db: db,
	}
}

func (r *PaymentRepository) Create(payment *models.Payment) error {
	return r.db.Create(payment).Error
}

func (r *PaymentRepository) GetByID(id uint) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.First(&payment, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrNotFound
	}
	return &payment, err
}

func (r *PaymentRepository) GetByOrderID(orderID string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.Where("order_id = ?", orderID).First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrNotFound
	}
	return &payment, err
}

func (r *PaymentRepository) Update(payment *models.Payment) error {
	return r.db.Save(payment).Error
}

// Settle runs fn in one transaction holding a FOR UPDATE lock on the
// payment row. Concurrent settlements of the same payment serialize on the
// lock; fn sees the status left by whichever settlement committed before it.
func (r *PaymentRepository) Settle(id uint, fn func(tx service.SettlementStores, p *models.Payment) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var p models.Payment
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ErrNotFound
		}
		if err != nil {
			return err
		}
		return fn(service.SettlementStores{
			Payments:      NewPaymentRepository(tx),
			Users:         NewUserRepository(tx),
			Subscriptions: NewSubscriptionRepository(tx),
			Purchases:     NewCreditPurchaseRepository(tx),
		}, &p)
	})
}

func (r *PaymentRepository) GetUserPayments(userID uint) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&payments).Error
	return payments, err
}
