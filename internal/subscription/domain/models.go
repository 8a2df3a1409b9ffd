// Package domain holds the subscription-status mirror reconciled from
// payment processor webhooks. Each row is the processor's current snapshot
// for one subscription; webhooks may arrive duplicated or out of order.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	StatusActive   = "active"
	StatusPastDue  = "past_due"
	StatusCanceled = "canceled"
)

type SubscriptionRecord struct {
	ID                     snowflake.ID `gorm:"primaryKey"`
	ProviderSubscriptionID string       `gorm:"type:text;not null;uniqueIndex:ux_subscription_records_provider_id"`
	Provider               string       `gorm:"type:text;not null"`
	UserID                 string       `gorm:"type:text;not null;index"`
	CustomerID             string       `gorm:"type:text"`
	Status                 string       `gorm:"type:text;not null"`
	PlanName               string       `gorm:"type:text"`
	PlanType               string       `gorm:"type:text"`
	UserType               string       `gorm:"type:text"`
	Amount                 int64        `gorm:"not null"`
	Currency               string       `gorm:"type:text"`
	BillingPeriod          string       `gorm:"type:text"`
	StartDate              time.Time
	EndDate                time.Time
	CreatedAt              time.Time `gorm:"not null"`
	UpdatedAt              time.Time `gorm:"not null"`
}

// TableName sets the database table name.
func (SubscriptionRecord) TableName() string { return "subscription_records" }
