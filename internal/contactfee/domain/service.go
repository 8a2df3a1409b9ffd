// Package domain defines the contact-fee charger: a sponsor pays a one-time
// credit fee to contact a maid profile, at most once per pair.
package domain

import (
	"context"
	"errors"
)

type Service interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResponse, error)
}

type ChargeRequest struct {
	SponsorID string
	MaidID    string
	// CreditsAmount defaults to 1 when zero.
	CreditsAmount  int64
	ContactMessage string
}

// ChargeResponse carries business outcomes as fields. AlreadyContacted and
// InsufficientCredits are not errors; callers branch on them.
type ChargeResponse struct {
	Success             bool   `json:"success"`
	AlreadyContacted    bool   `json:"already_contacted,omitempty"`
	InsufficientCredits bool   `json:"insufficient_credits,omitempty"`
	NewBalance          int64  `json:"new_balance,omitempty"`
	TransactionID       string `json:"transaction_id,omitempty"`
}

var (
	ErrInvalidSponsor = errors.New("invalid_sponsor")
	ErrInvalidMaid    = errors.New("invalid_maid")
	ErrInvalidAmount  = errors.New("invalid_amount")
)
