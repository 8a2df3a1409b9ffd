// Package domain contains the durable idempotency ledger for financial
// operations. A record exists per derived key; once an operation completes,
// replays return the stored result instead of re-executing the side effect.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Status is the operation state machine: pending → processing → {completed|failed}.
// Terminal states never regress.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status accepts no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Operation tags the financial operation a record guards.
type Operation string

const (
	OperationPurchaseCredits  Operation = "purchase_credits"
	OperationChargeContactFee Operation = "charge_contact_fee"
)

// IdempotencyRecord is one row per guarded operation attempt.
type IdempotencyRecord struct {
	ID                 snowflake.ID      `gorm:"primaryKey"`
	Key                string            `gorm:"type:text;not null;uniqueIndex:ux_idempotency_records_key"`
	UserID             string            `gorm:"type:text;not null;index"`
	Operation          Operation         `gorm:"type:text;not null"`
	Amount             int64             `gorm:"not null"`
	Status             Status            `gorm:"type:text;not null"`
	Result             datatypes.JSONMap `gorm:"type:jsonb"`
	ExternalPaymentRef *string           `gorm:"type:text"`
	CreatedAt          time.Time         `gorm:"not null"`
	UpdatedAt          time.Time         `gorm:"not null"`
}

// TableName sets the database table name.
func (IdempotencyRecord) TableName() string { return "idempotency_records" }
