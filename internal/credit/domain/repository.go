package domain

import (
	"context"

	"gorm.io/gorm"
)

// Repository operates on balances and transactions. Methods take the handle
// explicitly so callers can compose them inside a single database transaction.
type Repository interface {
	UpsertZero(ctx context.Context, db *gorm.DB, userID string) error
	Increment(ctx context.Context, db *gorm.DB, userID string, amount int64) error
	// DecrementIfSufficient subtracts amount only when balance >= amount and
	// returns the number of affected rows. Zero rows means insufficient funds.
	DecrementIfSufficient(ctx context.Context, db *gorm.DB, userID string, amount int64) (int64, error)
	FindBalance(ctx context.Context, db *gorm.DB, userID string) (*CreditBalance, error)
	InsertTransaction(ctx context.Context, db *gorm.DB, txn *CreditTransaction) error
	FindTransactionByRef(ctx context.Context, db *gorm.DB, ref string) (*CreditTransaction, error)
	ListTransactions(ctx context.Context, db *gorm.DB, userID string, afterID int64, limit int) ([]CreditTransaction, error)
	SumTransactions(ctx context.Context, db *gorm.DB, userID string) (int64, error)
}
