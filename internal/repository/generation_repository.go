package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/vidora/vidora-backend/internal/models"
)

type GenerationRepository struct {
	db *gorm.DB
}

func NewGenerationRepository(db *gorm.DB) *GenerationRepository {
	return &GenerationRepository{
		db: db,
	}
}

func (r *GenerationRepository) Create(gen *models.Generation) error {
	return r.db.Create(gen).Error
}

func (r *GenerationRepository) GetByID(id uint) (*models.Generation, error) {
	var gen models.Generation
	err := r.db.First(&gen, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrNotFound
	}
	return &gen, err
}

func (r *GenerationRepository) Update(gen *models.Generation) error {
	return r.db.Save(gen).Error
}

func (r *GenerationRepository) GetUserGenerations(userID uint) ([]models.Generation, error) {
	var gens []models.Generation
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&gens).Error
	return gens, err
}
