// Package domain contains persistence models for credit balances and the
// append-only transaction ledger.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// TransactionType classifies a balance-affecting event.
type TransactionType string

const (
	TransactionTypePurchase TransactionType = "purchase"
	TransactionTypeCharge   TransactionType = "charge"
	TransactionTypeGrant    TransactionType = "grant"
)

// CreditBalance is the per-user credit balance. Balance is never negative;
// decrements are conditional at the database level.
type CreditBalance struct {
	UserID    string    `gorm:"type:text;primaryKey"`
	Balance   int64     `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (CreditBalance) TableName() string { return "credit_balances" }

// CreditTransaction is one row per balance-affecting event. Rows are never
// updated or deleted; the sum of a user's rows equals the current balance.
// ExternalPaymentRef carries the processor's payment intent ID and is unique
// when present, which makes credit grants exactly-once across the callable
// and webhook paths.
type CreditTransaction struct {
	ID                 snowflake.ID    `gorm:"primaryKey"`
	UserID             string          `gorm:"type:text;not null;index"`
	Amount             int64           `gorm:"not null"`
	Type               TransactionType `gorm:"type:text;not null"`
	Description        string          `gorm:"type:text;not null"`
	ExternalPaymentRef *string         `gorm:"type:text;uniqueIndex:ux_credit_transactions_payment_ref"`
	CreatedAt          time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (CreditTransaction) TableName() string { return "credit_transactions" }
