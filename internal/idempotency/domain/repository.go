package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	// Insert creates the row and reports whether it was created. A unique
	// conflict on the key returns (false, nil); the caller re-reads.
	Insert(ctx context.Context, db *gorm.DB, record *IdempotencyRecord) (bool, error)
	FindByKey(ctx context.Context, db *gorm.DB, key string) (*IdempotencyRecord, error)
	// UpdateStatus transitions a non-terminal row and reports affected rows.
	UpdateStatus(ctx context.Context, db *gorm.DB, key string, status Status, externalPaymentRef *string, result map[string]any, updatedAt time.Time) (int64, error)
	DeleteOlderThan(ctx context.Context, db *gorm.DB, before time.Time) (int64, error)
	DeleteOlderThanForUser(ctx context.Context, db *gorm.DB, userID string, before time.Time) (int64, error)
}
