package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/vidora/vidora-backend/internal/models"
)

type CreditPurchaseRepository struct {
	db *gorm.DB
}

func NewCreditPurchaseRepository(db *gorm.DB) *CreditPurchaseRepository {
	return &CreditPurchaseRepository{
		db: db,
	}
}

func (r *CreditPurchaseRepository) Create(purchase *models.CreditPurchase) error {
	return r.db.Create(purchase).Error
}

func (r *CreditPurchaseRepository) GetByID(id uint) (*models.CreditPurchase, error) {
	var purchase models.CreditPurchase
	err := r.db.First(&purchase, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrNotFound
	}
	return &purchase, err
}

func (r *CreditPurchaseRepository) Update(purchase *models.CreditPurchase) error {
	return r.db.Save(purchase).Error
}

func (r *CreditPurchaseRepository) GetUserPurchases(userID uint) ([]models.CreditPurchase, error) {
	var purchases []models.CreditPurchase
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&purchases).Error
	return purchases, err
}
