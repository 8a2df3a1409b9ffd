package repository

import (
	"context"
	"time"

	"github.com/maidlink/paycore/internal/credit/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) UpsertZero(ctx context.Context, db *gorm.DB, userID string) error {
	now := time.Now().UTC()
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(&domain.CreditBalance{
			UserID:    userID,
			Balance:   0,
			CreatedAt: now,
			UpdatedAt: now,
		}).Error
}

func (r *repo) Increment(ctx context.Context, db *gorm.DB, userID string, amount int64) error {
	return db.WithContext(ctx).Exec(
		`UPDATE credit_balances
		 SET balance = balance + ?, updated_at = ?
		 WHERE user_id = ?`,
		amount,
		time.Now().UTC(),
		userID,
	).Error
}

func (r *repo) DecrementIfSufficient(ctx context.Context, db *gorm.DB, userID string, amount int64) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE credit_balances
		 SET balance = balance - ?, updated_at = ?
		 WHERE user_id = ? AND balance >= ?`,
		amount,
		time.Now().UTC(),
		userID,
		amount,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repo) FindBalance(ctx context.Context, db *gorm.DB, userID string) (*domain.CreditBalance, error) {
	var rows []domain.CreditBalance
	err := db.WithContext(ctx).Raw(
		`SELECT user_id, balance, created_at, updated_at
		 FROM credit_balances WHERE user_id = ?`,
		userID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *repo) InsertTransaction(ctx context.Context, db *gorm.DB, txn *domain.CreditTransaction) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO credit_transactions (
			id, user_id, amount, type, description, external_payment_ref, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		txn.ID,
		txn.UserID,
		txn.Amount,
		txn.Type,
		txn.Description,
		txn.ExternalPaymentRef,
		txn.CreatedAt,
	).Error
}

func (r *repo) FindTransactionByRef(ctx context.Context, db *gorm.DB, ref string) (*domain.CreditTransaction, error) {
	var rows []domain.CreditTransaction
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, amount, type, description, external_payment_ref, created_at
		 FROM credit_transactions WHERE external_payment_ref = ?`,
		ref,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *repo) ListTransactions(ctx context.Context, db *gorm.DB, userID string, afterID int64, limit int) ([]domain.CreditTransaction, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.CreditTransaction{}).
		Where("user_id = ?", userID).
		Order("id DESC").
		Limit(limit)
	if afterID > 0 {
		stmt = stmt.Where("id < ?", afterID)
	}

	var items []domain.CreditTransaction
	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) SumTransactions(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var sum *int64
	err := db.WithContext(ctx).Raw(
		`SELECT SUM(amount) FROM credit_transactions WHERE user_id = ?`,
		userID,
	).Scan(&sum).Error
	if err != nil {
		return 0, err
	}
	if sum == nil {
		return 0, nil
	}
	return *sum, nil
}
