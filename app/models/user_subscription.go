package models

import "time"

const (
	BillingCycleMonthly = "monthly"
	BillingCycleYearly  = "yearly"
	BillingCycleUnknown = "unknown"
)

const (
	SubscriptionStatusActive            = "active"
	SubscriptionStatusTrialing          = "trialing"
	SubscriptionStatusPastDue           = "past_due"
	SubscriptionStatusCanceled          = "canceled"
	SubscriptionStatusUnpaid            = "unpaid"
	SubscriptionStatusIncomplete        = "incomplete"
	SubscriptionStatusIncompleteExpired = "incomplete_expired"
)

// UserSubscription mirrors the provider-side subscription state for a user.
// Rows are never deleted: cancellation is a status transition, and a user who
// resubscribes under a new external ID accumulates a new row.
type UserSubscription struct {
	ID                     uint       `gorm:"primaryKey" json:"id"`
	UserID                 string     `gorm:"type:varchar(64);not null;index" json:"user_id"`
	ExternalCustomerID     string     `gorm:"type:varchar(191);not null;default:'';index" json:"external_customer_id"`
	ExternalSubscriptionID string     `gorm:"type:varchar(191);not null;uniqueIndex:ux_user_subscriptions_external_sub" json:"external_subscription_id"`
	Tier                   string     `gorm:"type:varchar(50);not null;default:'free';index" json:"tier"`
	BillingCycle           string     `gorm:"type:varchar(16);not null;default:'unknown'" json:"billing_cycle"`
	Status                 string     `gorm:"type:varchar(32);not null;default:'active';index" json:"status"`
	CurrentPeriodStart     *time.Time `gorm:"type:timestamp;default:null" json:"current_period_start,omitempty"`
	CurrentPeriodEnd       *time.Time `gorm:"type:timestamp;default:null" json:"current_period_end,omitempty"`
	CancelAtPeriodEnd      bool       `gorm:"default:false" json:"cancel_at_period_end"`
	CanceledAt             *time.Time `gorm:"type:timestamp;default:null" json:"canceled_at,omitempty"`
	PriceID                string     `gorm:"type:varchar(191);not null;default:''" json:"price_id"`
	CreatedAt              time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsTerminal reports whether no further provider transitions are expected.
// A later event for the same external ID still overwrites the state.
func (s *UserSubscription) IsTerminal() bool {
	return s.Status == SubscriptionStatusCanceled || s.Status == SubscriptionStatusIncompleteExpired
}
