package repository

import (
	"context"

	"github.com/maidlink/paycore/internal/contactfee/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository { return &repo{} }

func (r *repo) FindByPair(ctx context.Context, db *gorm.DB, sponsorID, maidID string) (*domain.ContactFee, error) {
	var fee domain.ContactFee
	err := db.WithContext(ctx).
		Where("sponsor_id = ? AND maid_id = ?", sponsorID, maidID).
		Take(&fee).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &fee, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, fee *domain.ContactFee) error {
	return db.WithContext(ctx).Create(fee).Error
}
