package repository

import (
	"time"

	"github.com/hauswerk/hauswerk/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type webhookEventRepository struct {
	db *gorm.DB
}

// NewWebhookEventRepository creates a webhook event repository backed by GORM.
func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &webhookEventRepository{db: db}
}

// CreateIfNotExists inserts the event unless a row with the same
// (source, external_event_id) already exists. The unique index makes the
// check-and-insert a single atomic statement; RowsAffected tells us whether
// this caller won the insert.
func (r *webhookEventRepository) CreateIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "source"},
			{Name: "external_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.WebhookEvent
	if err := r.db.Where("source = ? AND external_event_id = ?", event.Source, event.ExternalEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *webhookEventRepository) MarkProcessing(id uint) error {
	return r.db.Model(&models.WebhookEvent{}).Where("id = ?", id).
		Update("status", models.WebhookStatusProcessing).Error
}

func (r *webhookEventRepository) MarkOutcome(id uint, status, errorMessage string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"status":          status,
		"error_message":   errorMessage,
		"attempts":        gorm.Expr("attempts + 1"),
		"last_attempt_at": &now,
	}
	return r.db.Model(&models.WebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}

func (r *webhookEventRepository) GetByID(id uint) (*models.WebhookEvent, error) {
	var event models.WebhookEvent
	if err := r.db.First(&event, id).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *webhookEventRepository) ListByStatus(status string, limit int) ([]models.WebhookEvent, error) {
	var events []models.WebhookEvent
	err := r.db.Where("status = ?", status).
		Order("created_at DESC").Limit(limit).Find(&events).Error
	return events, err
}

func (r *webhookEventRepository) ListRecent(limit int) ([]models.WebhookEvent, error) {
	var events []models.WebhookEvent
	err := r.db.Order("created_at DESC").Limit(limit).Find(&events).Error
	return events, err
}

func (r *webhookEventRepository) CountByStatus(status string) (int64, error) {
	var count int64
	err := r.db.Model(&models.WebhookEvent{}).Where("status = ?", status).Count(&count).Error
	return count, err
}
