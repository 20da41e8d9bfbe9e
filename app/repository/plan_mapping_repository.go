package repository

import (
	"github.com/hauswerk/hauswerk/app/models"
	"gorm.io/gorm"
)

type planMappingRepository struct {
	db *gorm.DB
}

// NewPlanMappingRepository creates a plan mapping repository backed by GORM.
func NewPlanMappingRepository(db *gorm.DB) PlanMappingRepository {
	return &planMappingRepository{db: db}
}

func (r *planMappingRepository) FindActiveByPriceID(provider, priceID string) (*models.PlanMapping, error) {
	var m models.PlanMapping
	err := r.db.
		Where("provider = ? AND price_id = ? AND is_active = ?", provider, priceID, true).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}
