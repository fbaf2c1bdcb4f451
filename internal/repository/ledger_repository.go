package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vidora/vidora-backend/internal/models"
)

// LedgerRepository owns the balance/hold invariant: a hold's credits are
// subtracted from the balance in the same transaction that creates the
// hold, under a row lock on the user, so two concurrent holds cannot both
// observe a balance that permits them.
type LedgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{
		db: db,
	}
}

// AvailableBalance returns the stored balance and the sum of open holds.
// The balance is already net of the holds; the held sum is informational.
func (r *LedgerRepository) AvailableBalance(userID uint) (int, int, error) {
	var user models.User
	if err := r.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, 0, models.ErrNotFound
		}
		return 0, 0, err
	}

	var held int64
	err := r.db.Model(&models.CreditHold{}).
		Where("user_id = ? AND status = ?", userID, models.HoldOpen).
		Select("COALESCE(SUM(credits_held), 0)").
		Scan(&held).Error
	if err != nil {
		return 0, 0, err
	}

	return user.Credits, int(held), nil
}

// PlaceHold checks available balance, decrements the stored balance and
// creates the hold in one transaction. Returns InsufficientCreditsError
// without mutating anything when the available balance does not cover the
// amount.
func (r *LedgerRepository) PlaceHold(userID uint, kind models.GenerationKind, generationID uint, amount int, now time.Time) (*models.CreditHold, error) {
	var hold *models.CreditHold

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.ErrNotFound
			}
			return err
		}

		// The stored balance is already net of open holds, so it alone
		// decides whether the hold fits.
		if user.Credits < amount {
			return &models.InsufficientCreditsError{Required: amount, Available: user.Credits}
		}

		if err := tx.Model(&models.User{}).
			Where("id = ?", userID).
			Update("credits", gorm.Expr("credits - ?", amount)).Error; err != nil {
			return err
		}

		h := &models.CreditHold{
			UserID:       userID,
			Kind:         kind,
			GenerationID: generationID,
			CreditsHeld:  amount,
			Status:       models.HoldOpen,
			CreatedAt:    now,
		}
		if err := tx.Create(h).Error; err != nil {
			return err
		}
		hold = h
		return nil
	})

	return hold, err
}

func (r *LedgerRepository) GetHold(id uint) (*models.CreditHold, error) {
	var hold models.CreditHold
	err := r.db.First(&hold, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrNotFound
	}
	return &hold, err
}

// ConfirmHold marks an open hold as confirmed. The balance does not change:
// the deduction already happened at placement. The second return value is
// false when the hold was already resolved and nothing was done.
func (r *LedgerRepository) ConfirmHold(id uint, now time.Time) (*models.CreditHold, bool, error) {
	var hold models.CreditHold
	resolved := false

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&hold, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.ErrNotFound
			}
			return err
		}
		if hold.Status != models.HoldOpen {
			return nil
		}

		hold.Status = models.HoldConfirmed
		hold.ConfirmedAt = &now
		if err := tx.Save(&hold).Error; err != nil {
			return err
		}
		resolved = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return &hold, resolved, nil
}

// ReleaseHold marks an open hold as released and returns its credits to the
// balance in the same transaction. The second return value is false when
// the hold was already resolved and nothing was done.
func (r *LedgerRepository) ReleaseHold(id uint, now time.Time) (*models.CreditHold, bool, error) {
	var hold models.CreditHold
	resolved := false

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&hold, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.ErrNotFound
			}
			return err
		}
		if hold.Status != models.HoldOpen {
			return nil
		}

		hold.Status = models.HoldReleased
		hold.ReleasedAt = &now
		if err := tx.Save(&hold).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).
			Where("id = ?", hold.UserID).
			Update("credits", gorm.Expr("credits + ?", hold.CreditsHeld)).Error; err != nil {
			return err
		}
		resolved = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return &hold, resolved, nil
}
