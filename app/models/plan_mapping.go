package models

import "time"

// PlanMapping maps provider price IDs to internal tiers. Subscription
// lifecycle events often carry only a price ID, so this table is how the
// reconciler resolves tier changes made in the provider dashboard.
type PlanMapping struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Provider     string    `gorm:"type:varchar(20);not null;index:ux_plan_mappings_price,unique,priority:1;index" json:"provider"`
	PriceID      string    `gorm:"type:varchar(191);not null;index:ux_plan_mappings_price,unique,priority:2" json:"price_id"`
	Tier         string    `gorm:"type:varchar(50);not null;default:'free';index" json:"tier"`
	BillingCycle string    `gorm:"type:varchar(16);not null;default:'unknown'" json:"billing_cycle"`
	IsActive     bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
