package models

import "time"

const (
	TransactionTypeSubscription        = "subscription"
	TransactionTypeSubscriptionRenewal = "subscription_renewal"
	TransactionTypeOneTime             = "one_time"
)

const (
	TransactionStatusSucceeded = "succeeded"
)

// Transaction is an append-only ledger entry for money that actually moved.
// Failed payments never produce a row here, only a subscription status change.
// Rows are never updated or deleted after creation.
type Transaction struct {
	ID                      uint      `gorm:"primaryKey" json:"id"`
	Reference               string    `gorm:"type:varchar(36);not null;uniqueIndex:ux_transactions_reference" json:"reference"`
	UserID                  string    `gorm:"type:varchar(64);not null;index" json:"user_id"`
	AmountTotal             int64     `gorm:"not null;default:0" json:"amount_total"` // minor currency units
	Currency                string    `gorm:"type:varchar(3);not null;default:'eur'" json:"currency"`
	Status                  string    `gorm:"type:varchar(20);not null;default:'succeeded'" json:"status"`
	Type                    string    `gorm:"type:varchar(32);not null;index" json:"type"`
	LinkedSubscriptionID    *uint     `gorm:"default:null;index" json:"linked_subscription_id,omitempty"`
	ExternalInvoiceID       string    `gorm:"type:varchar(191);not null;default:''" json:"external_invoice_id"`
	ExternalPaymentIntentID string    `gorm:"type:varchar(191);not null;default:''" json:"external_payment_intent_id"`
	Metadata                string    `gorm:"type:longtext" json:"metadata"`
	CreatedAt               time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
