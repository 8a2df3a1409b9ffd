package repository

import (
	"context"

	"github.com/maidlink/paycore/internal/subscription/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository { return &repo{} }

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, record *domain.SubscriptionRecord) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "provider_subscription_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status",
			"plan_name",
			"plan_type",
			"user_type",
			"amount",
			"currency",
			"billing_period",
			"start_date",
			"end_date",
			"updated_at",
		}),
	}).Create(record).Error
}

func (r *repo) UpsertFromCheckout(ctx context.Context, db *gorm.DB, record *domain.SubscriptionRecord) error {
	// A checkout session carries no plan or period snapshot. When the
	// subscription event already landed, only the status may move so a late
	// checkout cannot wipe the snapshot fields.
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "provider_subscription_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status",
			"updated_at",
		}),
	}).Create(record).Error
}

func (r *repo) FindByProviderSubscriptionID(ctx context.Context, db *gorm.DB, providerSubscriptionID string) (*domain.SubscriptionRecord, error) {
	var record domain.SubscriptionRecord
	err := db.WithContext(ctx).
		Where("provider_subscription_id = ?", providerSubscriptionID).
		Take(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, providerSubscriptionID, status string) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.SubscriptionRecord{}).
		Where("provider_subscription_id = ?", providerSubscriptionID).
		Update("status", status)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repo) ListByUser(ctx context.Context, db *gorm.DB, userID string) ([]domain.SubscriptionRecord, error) {
	var records []domain.SubscriptionRecord
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
