package repository

import (
	"context"
	"time"

	"github.com/maidlink/paycore/internal/idempotency/domain"
	"github.com/maidlink/paycore/pkg/db"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository { return &repo{} }

func (r *repo) Insert(ctx context.Context, tx *gorm.DB, record *domain.IdempotencyRecord) (bool, error) {
	err := tx.WithContext(ctx).Create(record).Error
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *repo) FindByKey(ctx context.Context, tx *gorm.DB, key string) (*domain.IdempotencyRecord, error) {
	var record domain.IdempotencyRecord
	err := tx.WithContext(ctx).
		Where("key = ?", key).
		Take(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *repo) UpdateStatus(ctx context.Context, tx *gorm.DB, key string, status domain.Status, externalPaymentRef *string, result map[string]any, updatedAt time.Time) (int64, error) {
	updates := map[string]any{
		"status":     status,
		"updated_at": updatedAt,
	}
	if externalPaymentRef != nil {
		updates["external_payment_ref"] = *externalPaymentRef
	}
	if result != nil {
		updates["result"] = datatypes.JSONMap(result)
	}

	// Terminal rows are immutable; the WHERE clause enforces it at the row
	// level so concurrent completions cannot clobber each other.
	res := tx.WithContext(ctx).
		Model(&domain.IdempotencyRecord{}).
		Where("key = ? AND status NOT IN ?", key, []domain.Status{
			domain.StatusCompleted,
			domain.StatusFailed,
		}).
		Updates(updates)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repo) DeleteOlderThan(ctx context.Context, tx *gorm.DB, before time.Time) (int64, error) {
	res := tx.WithContext(ctx).
		Where("created_at < ?", before).
		Delete(&domain.IdempotencyRecord{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repo) DeleteOlderThanForUser(ctx context.Context, tx *gorm.DB, userID string, before time.Time) (int64, error) {
	res := tx.WithContext(ctx).
		Where("user_id = ? AND created_at < ?", userID, before).
		Delete(&domain.IdempotencyRecord{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
