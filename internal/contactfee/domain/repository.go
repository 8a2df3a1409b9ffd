package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	FindByPair(ctx context.Context, db *gorm.DB, sponsorID, maidID string) (*ContactFee, error)
	// Insert creates the fee row; a unique conflict on the pair surfaces as a
	// duplicate-key error for the caller to interpret.
	Insert(ctx context.Context, db *gorm.DB, fee *ContactFee) error
}
