package repository

import (
	"context"
	"time"

	"github.com/maidlink/paycore/internal/payment/domain"
	"github.com/maidlink/paycore/pkg/db"
	"gorm.io/gorm"
)

type eventRepo struct{}

func Provide() domain.EventRepository { return &eventRepo{} }

func (r *eventRepo) Insert(ctx context.Context, tx *gorm.DB, record *domain.EventRecord) (bool, error) {
	err := tx.WithContext(ctx).Create(record).Error
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *eventRepo) FindByProviderEventID(ctx context.Context, tx *gorm.DB, provider, providerEventID string) (*domain.EventRecord, error) {
	var record domain.EventRecord
	err := tx.WithContext(ctx).
		Where("provider = ? AND provider_event_id = ?", provider, providerEventID).
		Take(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *eventRepo) MarkProcessed(ctx context.Context, tx *gorm.DB, id int64, processedAt time.Time) error {
	return tx.WithContext(ctx).
		Model(&domain.EventRecord{}).
		Where("id = ?", id).
		Update("processed_at", processedAt).Error
}
