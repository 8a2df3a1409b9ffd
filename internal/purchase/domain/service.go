// Package domain defines the credit purchase flow: start a hosted checkout
// at the payment processor, then complete by crediting the balance exactly
// once per payment, whichever of the callable or webhook paths lands first.
package domain

import (
	"context"
	"errors"

	paymentdomain "github.com/maidlink/paycore/internal/payment/domain"
)

type Service interface {
	// Start opens a hosted checkout session. No balance change happens here.
	Start(ctx context.Context, req StartRequest) (*StartResponse, error)
	// Complete is the callable completion path; the caller must own the
	// purchase.
	Complete(ctx context.Context, req CompleteRequest) (*CompleteResponse, error)
	// CompleteFromEvent is the webhook completion path. Events that are not
	// credit purchases are ignored.
	CompleteFromEvent(ctx context.Context, event *paymentdomain.WebhookEvent) error
}

type StartRequest struct {
	UserID string
	// PackageCode selects a configured credit package. When empty,
	// CreditsAmount and CostCents describe a free-form purchase.
	PackageCode   string
	CreditsAmount int64
	CostCents     int64
	// IdempotencyToken is a client-supplied discriminator; a retry with the
	// same token resumes the same purchase instead of opening a second
	// session. Generated server-side when absent.
	IdempotencyToken string
}

type StartResponse struct {
	Success        bool   `json:"success"`
	CheckoutURL    string `json:"checkout_url"`
	SessionID      string `json:"session_id"`
	IdempotencyKey string `json:"idempotency_key"`
}

type CompleteRequest struct {
	UserID          string
	IdempotencyKey  string
	PaymentIntentID string
}

type CompleteResponse struct {
	Success          bool   `json:"success"`
	AlreadyProcessed bool   `json:"already_processed,omitempty"`
	CreditsBalance   int64  `json:"credits_balance"`
	TransactionID    string `json:"transaction_id,omitempty"`
}

var (
	ErrInvalidUser      = errors.New("invalid_user")
	ErrInvalidPackage   = errors.New("invalid_package")
	ErrInvalidAmount    = errors.New("invalid_amount")
	ErrInvalidIntent    = errors.New("invalid_intent")
	ErrPermissionDenied = errors.New("permission_denied")
)
