package models

import "time"

// Payment provider constants used across payment-related models.
const (
	PaymentProviderStripe = "stripe"
)

const (
	WebhookStatusReceived   = "received"
	WebhookStatusProcessing = "processing"
	WebhookStatusProcessed  = "processed"
	WebhookStatusFailed     = "failed"
)

// WebhookEvent is the idempotency ledger: one row per provider event ID ever
// received, kept forever as an audit trail. The unique index on
// (source, external_event_id) is what makes concurrent redeliveries safe.
type WebhookEvent struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Source          string     `gorm:"type:varchar(20);not null;index:ux_webhook_events_source_event,unique,priority:1;index" json:"source"`
	ExternalEventID string     `gorm:"type:varchar(191);not null;index:ux_webhook_events_source_event,unique,priority:2" json:"external_event_id"`
	EventType       string     `gorm:"type:varchar(100);not null;index" json:"event_type"`
	PayloadSnapshot string     `gorm:"type:longtext;not null" json:"payload_snapshot"`
	Status          string     `gorm:"type:varchar(20);not null;default:'processing';index" json:"status"`
	Attempts        int        `gorm:"not null;default:0" json:"attempts"`
	LastAttemptAt   *time.Time `gorm:"type:timestamp;default:null" json:"last_attempt_at,omitempty"`
	ErrorMessage    string     `gorm:"type:text" json:"error_message"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
