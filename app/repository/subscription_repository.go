package repository

import (
	"github.com/hauswerk/hauswerk/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a subscription repository backed by GORM.
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

// Upsert creates or overwrites the subscription row keyed by the unique
// external subscription ID, so handlers stay idempotent under redelivery.
func (r *subscriptionRepository) Upsert(sub *models.UserSubscription) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "external_subscription_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"user_id",
			"external_customer_id",
			"tier",
			"billing_cycle",
			"status",
			"current_period_start",
			"current_period_end",
			"cancel_at_period_end",
			"canceled_at",
			"price_id",
			"updated_at",
		}),
	}).Create(sub).Error; err != nil {
		return err
	}

	// Ensure ID is populated after upsert.
	return r.db.Where("external_subscription_id = ?", sub.ExternalSubscriptionID).
		First(sub).Error
}

func (r *subscriptionRepository) Save(sub *models.UserSubscription) error {
	return r.db.Save(sub).Error
}

func (r *subscriptionRepository) GetByExternalSubscriptionID(externalSubscriptionID string) (*models.UserSubscription, error) {
	var sub models.UserSubscription
	err := r.db.Where("external_subscription_id = ?", externalSubscriptionID).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// GetLatestByExternalCustomerID is the fallback match for events that arrive
// before the subscription ID has been seen (checkout completes first).
func (r *subscriptionRepository) GetLatestByExternalCustomerID(externalCustomerID string) (*models.UserSubscription, error) {
	var sub models.UserSubscription
	err := r.db.Where("external_customer_id = ?", externalCustomerID).
		Order("created_at DESC").First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepository) ListByUserID(userID string) ([]models.UserSubscription, error) {
	var subs []models.UserSubscription
	err := r.db.Where("user_id = ?", userID).Find(&subs).Error
	return subs, err
}
