package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vidora/vidora-backend/internal/models"
)

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{
		db: db,
	}
}

func (r *SubscriptionRepository) Create(sub *models.Subscription) error {
	return r.db.Create(sub).Error
}

func (r *SubscriptionRepository) GetByID(id uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.First(&sub, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrNotFound
	}
	return &sub, err
}

func (r *SubscriptionRepository) GetByUserID(userID uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.Where("user_id = ?", userID).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrNotFound
	}
	return &sub, err
}

func (r *SubscriptionRepository) Update(sub *models.Subscription) error {
	return r.db.Save(sub).Error
}

// DueForRenewal returns live subscriptions whose period has elapsed.
func (r *SubscriptionRepository) DueForRenewal(now time.Time) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.Where("status IN ? AND period_end <= ?",
		[]models.SubscriptionStatus{models.SubscriptionActive, models.SubscriptionPastDue}, now).
		Find(&subs).Error
	return subs, err
}

// HardCancel tears down a user's subscription in one transaction: the
// subscription becomes cancelled, the balance goes to zero, open holds are
// marked released without re-crediting, and pending top-up purchases are
// cancelled. Committed or not at all.
func (r *SubscriptionRepository) HardCancel(userID uint, now time.Time) (*models.Subscription, error) {
	var sub models.Subscription

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).First(&sub).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.ErrNotFound
			}
			return err
		}

		sub.Status = models.SubscriptionCancelled
		sub.AutoRenew = false
		sub.CancelledAt = &now
		if err := tx.Save(&sub).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.User{}).
			Where("id = ?", userID).
			Update("credits", 0).Error; err != nil {
			return err
		}

		// Released without re-credit: the balance is already zero and the
		// held credits die with it.
		if err := tx.Model(&models.CreditHold{}).
			Where("user_id = ? AND status = ?", userID, models.HoldOpen).
			Updates(map[string]any{
				"status":      models.HoldReleased,
				"released_at": now,
			}).Error; err != nil {
			return err
		}

		return tx.Model(&models.CreditPurchase{}).
			Where("user_id = ? AND status = ?", userID, models.PurchasePending).
			Update("status", models.PurchaseCancelled).Error
	})
	if err != nil {
		return nil, err
	}

	return &sub, nil
}
