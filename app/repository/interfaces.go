package repository

import (
	"github.com/hauswerk/hauswerk/app/models"
	"gorm.io/gorm"
)

// WebhookEventRepository defines the interface for idempotency-ledger operations.
// CreateIfNotExists is the atomic reserve step: under concurrent deliveries of
// the same external event ID exactly one caller observes created=true.
type WebhookEventRepository interface {
	CreateIfNotExists(event *models.WebhookEvent) (created bool, stored *models.WebhookEvent, err error)
	MarkProcessing(id uint) error
	MarkOutcome(id uint, status, errorMessage string) error
	GetByID(id uint) (*models.WebhookEvent, error)
	ListByStatus(status string, limit int) ([]models.WebhookEvent, error)
	ListRecent(limit int) ([]models.WebhookEvent, error)
	CountByStatus(status string) (int64, error)
}

// SubscriptionRepository defines the interface for subscription state operations.
type SubscriptionRepository interface {
	Upsert(sub *models.UserSubscription) error
	Save(sub *models.UserSubscription) error
	GetByExternalSubscriptionID(externalSubscriptionID string) (*models.UserSubscription, error)
	GetLatestByExternalCustomerID(externalCustomerID string) (*models.UserSubscription, error)
	ListByUserID(userID string) ([]models.UserSubscription, error)
}

// TransactionRepository defines the interface for the append-only financial ledger.
type TransactionRepository interface {
	Create(txn *models.Transaction) error
	ListByUserID(userID string, offset, limit int) ([]models.Transaction, error)
	Count() (int64, error)
}

// PlanMappingRepository resolves provider price IDs to internal tiers.
type PlanMappingRepository interface {
	FindActiveByPriceID(provider, priceID string) (*models.PlanMapping, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	WebhookEvent WebhookEventRepository
	Subscription SubscriptionRepository
	Transaction  TransactionRepository
	PlanMapping  PlanMappingRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		WebhookEvent: NewWebhookEventRepository(db),
		Subscription: NewSubscriptionRepository(db),
		Transaction:  NewTransactionRepository(db),
		PlanMapping:  NewPlanMappingRepository(db),
	}
}
