package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/maidlink/paycore/internal/config"
	creditdomain "github.com/maidlink/paycore/internal/credit/domain"
	idemdomain "github.com/maidlink/paycore/internal/idempotency/domain"
	"github.com/maidlink/paycore/internal/observability/metrics"
	paymentdomain "github.com/maidlink/paycore/internal/payment/domain"
	"github.com/maidlink/paycore/internal/purchase/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const purchaseTypeCredits = "credits"

type Params struct {
	fx.In

	Config      config.Config
	Log         *zap.Logger
	Catalog     *config.PackageCatalog
	Gateway     paymentdomain.Gateway
	Idempotency idemdomain.Service
	Credits     creditdomain.Service
	Metrics     *metrics.Metrics
}

type Service struct {
	cfg         config.Config
	log         *zap.Logger
	catalog     *config.PackageCatalog
	gateway     paymentdomain.Gateway
	idempotency idemdomain.Service
	credits     creditdomain.Service
	metrics     *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		cfg:         p.Config,
		log:         p.Log.Named("purchase.service"),
		catalog:     p.Catalog,
		gateway:     p.Gateway,
		idempotency: p.Idempotency,
		credits:     p.Credits,
		metrics:     p.Metrics,
	}
}

func (s *Service) Start(ctx context.Context, req domain.StartRequest) (*domain.StartResponse, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return nil, domain.ErrInvalidUser
	}

	credits, costCents, currency, productName, err := s.resolvePackage(req)
	if err != nil {
		return nil, err
	}

	token := strings.TrimSpace(req.IdempotencyToken)
	if token == "" {
		token = uuid.NewString()
	}
	// The key is derived before the session exists so it can ride along in
	// the session metadata and come back on the webhook.
	key := idemdomain.DeriveKey(userID, idemdomain.OperationPurchaseCredits, credits, token)

	session, err := s.gateway.CreateCheckoutSession(ctx, paymentdomain.CheckoutParams{
		AmountCents: costCents,
		Currency:    currency,
		ProductName: productName,
		Quantity:    1,
		SuccessURL:  s.cfg.Stripe.SuccessURL,
		CancelURL:   s.cfg.Stripe.CancelURL,
		Metadata: map[string]string{
			"user_id":         userID,
			"credits_amount":  strconv.FormatInt(credits, 10),
			"purchase_type":   purchaseTypeCredits,
			"idempotency_key": key,
		},
		IdempotencyKey: token,
	})
	if err != nil {
		return nil, err
	}

	ensured, err := s.idempotency.Ensure(ctx, idemdomain.EnsureRequest{
		UserID:    userID,
		Operation: idemdomain.OperationPurchaseCredits,
		Amount:    credits,
		Key:       key,
	})
	if err != nil {
		return nil, err
	}
	if ensured.IsDuplicate {
		s.log.Info("purchase start replayed",
			zap.String("user_id", userID),
			zap.String("key", key),
			zap.String("status", string(ensured.Status)),
		)
	}

	return &domain.StartResponse{
		Success:        true,
		CheckoutURL:    session.URL,
		SessionID:      session.ID,
		IdempotencyKey: key,
	}, nil
}

func (s *Service) resolvePackage(req domain.StartRequest) (credits, costCents int64, currency, productName string, err error) {
	if code := strings.TrimSpace(req.PackageCode); code != "" {
		pkg := s.catalog.Find(code)
		if pkg == nil {
			return 0, 0, "", "", domain.ErrInvalidPackage
		}
		return pkg.Credits, pkg.CostUSD, pkg.Currency, pkg.Code + " credit package", nil
	}
	if req.CreditsAmount <= 0 || req.CostCents <= 0 {
		return 0, 0, "", "", domain.ErrInvalidAmount
	}
	return req.CreditsAmount, req.CostCents, "usd",
		strconv.FormatInt(req.CreditsAmount, 10) + " contact credits", nil
}

func (s *Service) Complete(ctx context.Context, req domain.CompleteRequest) (*domain.CompleteResponse, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return nil, domain.ErrInvalidUser
	}
	intentID := strings.TrimSpace(req.PaymentIntentID)
	if intentID == "" {
		return nil, domain.ErrInvalidIntent
	}

	intent, err := s.gateway.RetrievePaymentIntent(ctx, intentID)
	if err != nil {
		return nil, err
	}
	return s.completeIntent(ctx, userID, strings.TrimSpace(req.IdempotencyKey), intent, false)
}

func (s *Service) CompleteFromEvent(ctx context.Context, event *paymentdomain.WebhookEvent) error {
	if event == nil {
		return nil
	}

	var intent *paymentdomain.PaymentIntent
	switch event.Kind {
	case paymentdomain.EventPaymentIntentSucceeded:
		intent = event.PaymentIntent
	case paymentdomain.EventCheckoutSessionCompleted:
		session := event.CheckoutSession
		if session == nil || session.Metadata["purchase_type"] != purchaseTypeCredits {
			return nil
		}
		if session.PaymentIntentID == "" {
			return nil
		}
		retrieved, err := s.gateway.RetrievePaymentIntent(ctx, session.PaymentIntentID)
		if err != nil {
			return err
		}
		// The session carries the metadata when the intent does not.
		if retrieved.Metadata == nil {
			retrieved.Metadata = session.Metadata
		}
		intent = retrieved
	default:
		return nil
	}

	if intent == nil || intent.Metadata["purchase_type"] != purchaseTypeCredits {
		return nil
	}

	userID := strings.TrimSpace(intent.Metadata["user_id"])
	if userID == "" {
		return domain.ErrInvalidUser
	}
	_, err := s.completeIntent(ctx, userID, intent.Metadata["idempotency_key"], intent, true)
	return err
}

// completeIntent is the shared completion core. The credits amount comes from
// the processor's metadata, never from the client; the unique external
// payment reference on the transaction log makes the grant exactly-once
// across the callable and webhook paths.
func (s *Service) completeIntent(
	ctx context.Context,
	userID string,
	key string,
	intent *paymentdomain.PaymentIntent,
	internal bool,
) (*domain.CompleteResponse, error) {
	if intent.Status != "succeeded" {
		s.failLedger(ctx, userID, key, intent.ID, paymentdomain.ErrIntentNotSucceeded.Error(), internal)
		return nil, paymentdomain.ErrIntentNotSucceeded
	}

	metaUser := strings.TrimSpace(intent.Metadata["user_id"])
	if metaUser == "" {
		return nil, domain.ErrInvalidIntent
	}
	if !internal && metaUser != userID {
		return nil, domain.ErrPermissionDenied
	}

	credits, err := strconv.ParseInt(strings.TrimSpace(intent.Metadata["credits_amount"]), 10, 64)
	if err != nil || credits <= 0 {
		s.failLedger(ctx, metaUser, key, intent.ID, "invalid_credits_amount", internal)
		return nil, domain.ErrInvalidIntent
	}

	ref := intent.ID
	grant, err := s.credits.Grant(ctx, creditdomain.GrantRequest{
		UserID:             metaUser,
		Amount:             credits,
		Type:               creditdomain.TransactionTypePurchase,
		Description:        "Credit purchase",
		ExternalPaymentRef: &ref,
	})
	if err != nil {
		s.failLedger(ctx, metaUser, key, intent.ID, err.Error(), internal)
		return nil, err
	}

	if key != "" {
		updateErr := s.idempotency.UpdateStatus(ctx, idemdomain.UpdateStatusRequest{
			UserID:             metaUser,
			Key:                key,
			Status:             idemdomain.StatusCompleted,
			ExternalPaymentRef: &ref,
			Result: map[string]any{
				"credits_balance": grant.Balance,
				"transaction_id":  grant.TransactionID,
			},
			Internal: internal,
		})
		if updateErr != nil && !errors.Is(updateErr, idemdomain.ErrNotFound) {
			s.log.Warn("purchase ledger update failed",
				zap.String("key", key),
				zap.Error(updateErr),
			)
		}
	}

	if !grant.AlreadyApplied {
		s.metrics.RecordCreditGrant(ctx, "purchase", credits)
		s.log.Info("credit purchase completed",
			zap.String("user_id", metaUser),
			zap.String("payment_intent_id", intent.ID),
			zap.Int64("credits", credits),
		)
	}

	return &domain.CompleteResponse{
		Success:          true,
		AlreadyProcessed: grant.AlreadyApplied,
		CreditsBalance:   grant.Balance,
		TransactionID:    grant.TransactionID,
	}, nil
}

func (s *Service) failLedger(ctx context.Context, userID, key, intentID, reason string, internal bool) {
	if key == "" {
		return
	}
	ref := intentID
	err := s.idempotency.UpdateStatus(ctx, idemdomain.UpdateStatusRequest{
		UserID:             userID,
		Key:                key,
		Status:             idemdomain.StatusFailed,
		ExternalPaymentRef: &ref,
		Result:             map[string]any{"error": reason},
		Internal:           internal,
	})
	if err != nil && !errors.Is(err, idemdomain.ErrNotFound) && !errors.Is(err, idemdomain.ErrInvalidStatus) {
		s.log.Warn("purchase ledger fail-mark failed",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}
