package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/maidlink/paycore/internal/clock"
	paymentdomain "github.com/maidlink/paycore/internal/payment/domain"
	"github.com/maidlink/paycore/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	GenID   *snowflake.Node
	Repo    domain.Repository
	Gateway paymentdomain.Gateway
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	genID   *snowflake.Node
	repo    domain.Repository
	gateway paymentdomain.Gateway
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("subscription.service"),
		clock:   p.Clock,
		genID:   p.GenID,
		repo:    p.Repo,
		gateway: p.Gateway,
	}
}

func (s *Service) ApplyEvent(ctx context.Context, event *paymentdomain.WebhookEvent) error {
	if event == nil {
		return domain.ErrInvalidEvent
	}

	switch event.Kind {
	case paymentdomain.EventSubscriptionCreated, paymentdomain.EventSubscriptionUpdated:
		return s.applySnapshot(ctx, event, "")
	case paymentdomain.EventSubscriptionDeleted:
		// Cancellation keeps the row; only the status moves to terminal.
		return s.applySnapshot(ctx, event, domain.StatusCanceled)
	case paymentdomain.EventCheckoutSessionCompleted:
		return s.applyCheckout(ctx, event)
	case paymentdomain.EventInvoicePaid:
		return s.applyInvoiceStatus(ctx, event, domain.StatusActive)
	case paymentdomain.EventInvoicePaymentFailed:
		return s.applyInvoiceStatus(ctx, event, domain.StatusPastDue)
	default:
		return nil
	}
}

func (s *Service) applySnapshot(ctx context.Context, event *paymentdomain.WebhookEvent, statusOverride string) error {
	subscription := event.Subscription
	if subscription == nil || strings.TrimSpace(subscription.ID) == "" {
		return domain.ErrInvalidEvent
	}

	userID, err := s.resolveUserID(ctx, subscription.Metadata, subscription.CustomerID)
	if err != nil {
		return err
	}

	status := subscription.Status
	if statusOverride != "" {
		status = statusOverride
	}

	now := s.clock.Now().UTC()
	record := &domain.SubscriptionRecord{
		ID:                     s.genID.Generate(),
		ProviderSubscriptionID: subscription.ID,
		Provider:               event.Provider,
		UserID:                 userID,
		CustomerID:             subscription.CustomerID,
		Status:                 status,
		PlanName:               subscription.PlanName,
		PlanType:               subscription.PlanType,
		UserType:               subscription.Metadata["user_type"],
		Amount:                 subscription.Amount,
		Currency:               subscription.Currency,
		BillingPeriod:          subscription.BillingInterval,
		StartDate:              subscription.CurrentPeriodStart,
		EndDate:                subscription.CurrentPeriodEnd,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if err := s.repo.Upsert(ctx, s.db, record); err != nil {
		return err
	}

	s.log.Info("subscription reconciled",
		zap.String("provider_subscription_id", subscription.ID),
		zap.String("user_id", userID),
		zap.String("status", status),
	)
	return nil
}

func (s *Service) applyCheckout(ctx context.Context, event *paymentdomain.WebhookEvent) error {
	session := event.CheckoutSession
	if session == nil {
		return domain.ErrInvalidEvent
	}
	if strings.TrimSpace(session.SubscriptionID) == "" {
		// Payment-mode checkouts belong to the credit purchase flow.
		return nil
	}

	userID, err := s.resolveUserID(ctx, session.Metadata, session.CustomerID)
	if err != nil {
		return err
	}

	now := s.clock.Now().UTC()
	record := &domain.SubscriptionRecord{
		ID:                     s.genID.Generate(),
		ProviderSubscriptionID: session.SubscriptionID,
		Provider:               event.Provider,
		UserID:                 userID,
		CustomerID:             session.CustomerID,
		Status:                 domain.StatusActive,
		PlanName:               session.Metadata["plan_name"],
		PlanType:               session.Metadata["plan_type"],
		UserType:               session.Metadata["user_type"],
		Amount:                 session.AmountTotal,
		Currency:               session.Currency,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	return s.repo.UpsertFromCheckout(ctx, s.db, record)
}

func (s *Service) applyInvoiceStatus(ctx context.Context, event *paymentdomain.WebhookEvent, status string) error {
	invoice := event.Invoice
	if invoice == nil {
		return domain.ErrInvalidEvent
	}
	if strings.TrimSpace(invoice.SubscriptionID) == "" {
		return nil
	}

	affected, err := s.repo.UpdateStatus(ctx, s.db, invoice.SubscriptionID, status)
	if err != nil {
		return err
	}
	if affected == 0 {
		// The invoice beat the subscription event here. The snapshot event
		// will create the row with the processor's current status.
		s.log.Info("invoice event for unknown subscription",
			zap.String("provider_subscription_id", invoice.SubscriptionID),
			zap.String("status", status),
		)
	}
	return nil
}

// resolveUserID reads the marketplace user ID from event metadata, falling
// back to the processor's customer record when the event omits it.
func (s *Service) resolveUserID(ctx context.Context, metadata map[string]string, customerID string) (string, error) {
	if userID := strings.TrimSpace(metadata["user_id"]); userID != "" {
		return userID, nil
	}
	if strings.TrimSpace(customerID) == "" {
		return "", domain.ErrInvalidUser
	}
	customer, err := s.gateway.RetrieveCustomer(ctx, customerID)
	if err != nil {
		return "", err
	}
	if userID := strings.TrimSpace(customer.Metadata["user_id"]); userID != "" {
		return userID, nil
	}
	return "", domain.ErrInvalidUser
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]domain.SubscriptionRecord, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.ErrInvalidUser
	}
	return s.repo.ListByUser(ctx, s.db, userID)
}
