// Package webhook ingests signed payment processor deliveries, dedupes
// redeliveries through the payment_events table, and fans the parsed event
// out to the purchase and subscription services.
package webhook

import (
	"context"
	"errors"
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/maidlink/paycore/internal/clock"
	"github.com/maidlink/paycore/internal/observability/metrics"
	"github.com/maidlink/paycore/internal/payment/domain"
	"github.com/maidlink/paycore/internal/payment/stripe"
	purchasedomain "github.com/maidlink/paycore/internal/purchase/domain"
	subscriptiondomain "github.com/maidlink/paycore/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	Clock         clock.Clock
	GenID         *snowflake.Node
	Verifier      *stripe.Verifier
	Events        domain.EventRepository
	Purchases     purchasedomain.Service
	Subscriptions subscriptiondomain.Service
	Metrics       *metrics.Metrics
}

type Processor struct {
	db            *gorm.DB
	log           *zap.Logger
	clock         clock.Clock
	genID         *snowflake.Node
	verifier      *stripe.Verifier
	events        domain.EventRepository
	purchases     purchasedomain.Service
	subscriptions subscriptiondomain.Service
	metrics       *metrics.Metrics
}

func New(p Params) *Processor {
	return &Processor{
		db:            p.DB,
		log:           p.Log.Named("payment.webhook"),
		clock:         p.Clock,
		genID:         p.GenID,
		verifier:      p.Verifier,
		events:        p.Events,
		purchases:     p.Purchases,
		subscriptions: p.Subscriptions,
		metrics:       p.Metrics,
	}
}

// HandleStripe runs the full ingestion pipeline for one delivery. It returns
// ErrInvalidSignature for rejected deliveries; any error after verification
// is a processing error the transport layer still acknowledges.
func (p *Processor) HandleStripe(ctx context.Context, payload []byte, headers http.Header) error {
	if err := p.verifier.Verify(payload, headers); err != nil {
		p.metrics.RecordPaymentEvent(ctx, "unknown", "rejected")
		return domain.ErrInvalidSignature
	}

	event, err := stripe.ParseEvent(payload)
	if err != nil {
		if errors.Is(err, domain.ErrEventIgnored) {
			p.metrics.RecordPaymentEvent(ctx, "unhandled", "ignored")
			p.log.Debug("unhandled event type ignored")
			return nil
		}
		p.metrics.RecordPaymentEvent(ctx, "unknown", "invalid")
		return err
	}

	now := p.clock.Now().UTC()
	record := &domain.EventRecord{
		ID:              p.genID.Generate(),
		Provider:        event.Provider,
		ProviderEventID: event.ProviderEventID,
		EventType:       string(event.Kind),
		Payload:         datatypes.JSON(payload),
		ReceivedAt:      now,
	}
	created, err := p.events.Insert(ctx, p.db, record)
	if err != nil {
		return err
	}
	if !created {
		existing, err := p.events.FindByProviderEventID(ctx, p.db, event.Provider, event.ProviderEventID)
		if err != nil {
			return err
		}
		if existing == nil || existing.ProcessedAt != nil {
			p.metrics.RecordPaymentEvent(ctx, string(event.Kind), "duplicate")
			p.log.Info("duplicate delivery ignored",
				zap.String("provider_event_id", event.ProviderEventID),
			)
			return nil
		}
		// Stored but never marked processed: a handler crashed mid-flight.
		// Re-drive it; every downstream step is replay-safe.
		record = existing
	}

	if err := p.dispatch(ctx, event); err != nil {
		p.metrics.RecordPaymentEvent(ctx, string(event.Kind), "error")
		p.log.Error("event processing failed",
			zap.String("provider_event_id", event.ProviderEventID),
			zap.String("event_type", string(event.Kind)),
			zap.Error(err),
		)
		return err
	}

	if err := p.events.MarkProcessed(ctx, p.db, int64(record.ID), p.clock.Now().UTC()); err != nil {
		return err
	}
	p.metrics.RecordPaymentEvent(ctx, string(event.Kind), "processed")
	return nil
}

func (p *Processor) dispatch(ctx context.Context, event *domain.WebhookEvent) error {
	if err := p.purchases.CompleteFromEvent(ctx, event); err != nil {
		return err
	}
	return p.subscriptions.ApplyEvent(ctx, event)
}
