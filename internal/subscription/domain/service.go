package domain

import (
	"context"
	"errors"

	paymentdomain "github.com/maidlink/paycore/internal/payment/domain"
)

type Service interface {
	// ApplyEvent reconciles one processor event into the subscription mirror.
	// Safe to call again with the same event.
	ApplyEvent(ctx context.Context, event *paymentdomain.WebhookEvent) error
	ListForUser(ctx context.Context, userID string) ([]SubscriptionRecord, error)
}

var (
	ErrInvalidUser  = errors.New("invalid_user")
	ErrInvalidEvent = errors.New("invalid_event")
)
