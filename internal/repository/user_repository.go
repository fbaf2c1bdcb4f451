package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/vidora/vidora-backend/internal/models"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{
		db: db,
	}
}

func (r *UserRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrNotFound
	}
	return &user, err
}

func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrNotFound
	}
	return &user, err
}

func (r *UserRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

// AddCredits increments the balance atomically in the database.
func (r *UserRepository) AddCredits(userID uint, amount int) error {
	return r.db.Model(&models.User{}).
		Where("id = ?", userID).
		Update("credits", gorm.Expr("credits + ?", amount)).Error
}

// SetCredits overwrites the balance. Used by subscription activation and
// renewal, which reset rather than accumulate.
func (r *UserRepository) SetCredits(userID uint, amount int) error {
	return r.db.Model(&models.User{}).
		Where("id = ?", userID).
		Update("credits", amount).Error
}
