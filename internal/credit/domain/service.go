package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	// Grant credits the user's balance and writes the paired transaction row
	// in one database transaction. When ExternalPaymentRef is set and a
	// transaction with that reference already exists, the grant is treated as
	// already applied and the stored outcome is returned.
	Grant(ctx context.Context, req GrantRequest) (*GrantResponse, error)
	Balance(ctx context.Context, userID string) (int64, error)
	Statement(ctx context.Context, req StatementRequest) (*StatementResponse, error)
}

type GrantRequest struct {
	UserID             string
	Amount             int64
	Type               TransactionType
	Description        string
	ExternalPaymentRef *string
}

type GrantResponse struct {
	Balance        int64
	TransactionID  string
	AlreadyApplied bool
}

type StatementRequest struct {
	UserID    string
	PageToken string
	PageSize  int
}

type TransactionView struct {
	ID                 string          `json:"id"`
	Amount             int64           `json:"amount"`
	Type               TransactionType `json:"type"`
	Description        string          `json:"description"`
	ExternalPaymentRef *string         `json:"external_payment_ref,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
}

type StatementResponse struct {
	Transactions  []TransactionView `json:"transactions"`
	NextPageToken string            `json:"next_page_token,omitempty"`
	HasMore       bool              `json:"has_more"`
}

var (
	ErrInvalidUser         = errors.New("invalid_user")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInvalidType         = errors.New("invalid_transaction_type")
	ErrInsufficientCredits = errors.New("insufficient_credits")
	ErrAlreadyApplied      = errors.New("already_applied")
)
