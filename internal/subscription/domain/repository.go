package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	// Upsert writes the processor's snapshot, last-write-wins on status and
	// period fields. The provider subscription ID is the conflict key.
	Upsert(ctx context.Context, db *gorm.DB, record *SubscriptionRecord) error
	// UpsertFromCheckout inserts the row when absent but on conflict only
	// moves the status; checkout sessions carry no plan or period fields and
	// must not overwrite an earlier snapshot with zero values.
	UpsertFromCheckout(ctx context.Context, db *gorm.DB, record *SubscriptionRecord) error
	FindByProviderSubscriptionID(ctx context.Context, db *gorm.DB, providerSubscriptionID string) (*SubscriptionRecord, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, providerSubscriptionID, status string) (int64, error)
	ListByUser(ctx context.Context, db *gorm.DB, userID string) ([]SubscriptionRecord, error)
}
