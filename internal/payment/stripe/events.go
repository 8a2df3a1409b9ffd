package stripe

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/maidlink/paycore/internal/payment/domain"
)

type stripeEvent struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Created int64           `json:"created"`
	Data    stripeEventData `json:"data"`
}

type stripeEventData struct {
	Object json.RawMessage `json:"object"`
}

type stripeCheckoutSession struct {
	ID            string            `json:"id"`
	Mode          string            `json:"mode"`
	Customer      string            `json:"customer"`
	Subscription  string            `json:"subscription"`
	PaymentIntent string            `json:"payment_intent"`
	AmountTotal   int64             `json:"amount_total"`
	Currency      string            `json:"currency"`
	Metadata      map[string]string `json:"metadata"`
}

type stripePaymentIntent struct {
	ID       string            `json:"id"`
	Status   string            `json:"status"`
	Customer string            `json:"customer"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Metadata map[string]string `json:"metadata"`
}

type stripeSubscription struct {
	ID                 string            `json:"id"`
	Customer           string            `json:"customer"`
	Status             string            `json:"status"`
	CurrentPeriodStart int64             `json:"current_period_start"`
	CurrentPeriodEnd   int64             `json:"current_period_end"`
	Metadata           map[string]string `json:"metadata"`
	Items              stripeItemList    `json:"items"`
}

type stripeItemList struct {
	Data []stripeSubscriptionItem `json:"data"`
}

type stripeSubscriptionItem struct {
	Price stripePrice `json:"price"`
}

type stripePrice struct {
	UnitAmount int64             `json:"unit_amount"`
	Currency   string            `json:"currency"`
	Nickname   string            `json:"nickname"`
	Recurring  stripeRecurring   `json:"recurring"`
	Metadata   map[string]string `json:"metadata"`
}

type stripeRecurring struct {
	Interval string `json:"interval"`
}

type stripeInvoice struct {
	ID           string `json:"id"`
	Customer     string `json:"customer"`
	Subscription string `json:"subscription"`
	AmountPaid   int64  `json:"amount_paid"`
	AmountDue    int64  `json:"amount_due"`
	Currency     string `json:"currency"`
}

type stripeCustomer struct {
	ID       string            `json:"id"`
	Email    string            `json:"email"`
	Metadata map[string]string `json:"metadata"`
}

// ParseEvent maps a raw delivery onto the handled event union. Unhandled
// event types return ErrEventIgnored so the caller can log and drop them.
func ParseEvent(payload []byte) (*domain.WebhookEvent, error) {
	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(event.ID) == "" {
		return nil, domain.ErrInvalidEvent
	}

	parsed := &domain.WebhookEvent{
		Provider:        "stripe",
		ProviderEventID: event.ID,
		OccurredAt:      eventTime(event.Created),
		RawPayload:      payload,
	}

	switch domain.EventKind(strings.TrimSpace(event.Type)) {
	case domain.EventCheckoutSessionCompleted:
		parsed.Kind = domain.EventCheckoutSessionCompleted
		session, err := parseCheckoutSession(event.Data.Object)
		if err != nil {
			return nil, err
		}
		parsed.CheckoutSession = session
	case domain.EventPaymentIntentSucceeded:
		parsed.Kind = domain.EventPaymentIntentSucceeded
		intent, err := parsePaymentIntent(event.Data.Object)
		if err != nil {
			return nil, err
		}
		parsed.PaymentIntent = intent
	case domain.EventSubscriptionCreated, domain.EventSubscriptionUpdated, domain.EventSubscriptionDeleted:
		parsed.Kind = domain.EventKind(event.Type)
		subscription, err := parseSubscription(event.Data.Object)
		if err != nil {
			return nil, err
		}
		parsed.Subscription = subscription
	case domain.EventInvoicePaid, domain.EventInvoicePaymentFailed:
		parsed.Kind = domain.EventKind(event.Type)
		invoice, err := parseInvoice(event.Data.Object)
		if err != nil {
			return nil, err
		}
		parsed.Invoice = invoice
	default:
		return nil, domain.ErrEventIgnored
	}

	return parsed, nil
}

func parseCheckoutSession(raw json.RawMessage) (*domain.CheckoutSession, error) {
	var session stripeCheckoutSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(session.ID) == "" {
		return nil, domain.ErrInvalidEvent
	}
	return &domain.CheckoutSession{
		ID:              session.ID,
		Mode:            session.Mode,
		CustomerID:      session.Customer,
		SubscriptionID:  session.Subscription,
		PaymentIntentID: session.PaymentIntent,
		AmountTotal:     session.AmountTotal,
		Currency:        strings.ToUpper(strings.TrimSpace(session.Currency)),
		Metadata:        session.Metadata,
	}, nil
}

func parsePaymentIntent(raw json.RawMessage) (*domain.PaymentIntent, error) {
	var intent stripePaymentIntent
	if err := json.Unmarshal(raw, &intent); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(intent.ID) == "" {
		return nil, domain.ErrInvalidEvent
	}
	return toDomainIntent(intent), nil
}

func toDomainIntent(intent stripePaymentIntent) *domain.PaymentIntent {
	return &domain.PaymentIntent{
		ID:         intent.ID,
		Status:     strings.TrimSpace(intent.Status),
		CustomerID: intent.Customer,
		Amount:     intent.Amount,
		Currency:   strings.ToUpper(strings.TrimSpace(intent.Currency)),
		Metadata:   intent.Metadata,
	}
}

func parseSubscription(raw json.RawMessage) (*domain.Subscription, error) {
	var subscription stripeSubscription
	if err := json.Unmarshal(raw, &subscription); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(subscription.ID) == "" {
		return nil, domain.ErrInvalidEvent
	}

	result := &domain.Subscription{
		ID:                 subscription.ID,
		CustomerID:         subscription.Customer,
		Status:             strings.TrimSpace(subscription.Status),
		CurrentPeriodStart: eventTime(subscription.CurrentPeriodStart),
		CurrentPeriodEnd:   eventTime(subscription.CurrentPeriodEnd),
		Metadata:           subscription.Metadata,
	}
	if len(subscription.Items.Data) > 0 {
		price := subscription.Items.Data[0].Price
		result.PlanName = strings.TrimSpace(price.Nickname)
		if result.PlanName == "" {
			result.PlanName = price.Metadata["plan_name"]
		}
		result.PlanType = price.Metadata["plan_type"]
		result.Amount = price.UnitAmount
		result.Currency = strings.ToUpper(strings.TrimSpace(price.Currency))
		result.BillingInterval = price.Recurring.Interval
	}
	return result, nil
}

func parseInvoice(raw json.RawMessage) (*domain.Invoice, error) {
	var invoice stripeInvoice
	if err := json.Unmarshal(raw, &invoice); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(invoice.ID) == "" {
		return nil, domain.ErrInvalidEvent
	}
	return &domain.Invoice{
		ID:             invoice.ID,
		CustomerID:     invoice.Customer,
		SubscriptionID: invoice.Subscription,
		AmountPaid:     invoice.AmountPaid,
		AmountDue:      invoice.AmountDue,
		Currency:       strings.ToUpper(strings.TrimSpace(invoice.Currency)),
	}, nil
}

func eventTime(unix int64) time.Time {
	if unix == 0 {
		return time.Time{}
	}
	return time.Unix(unix, 0).UTC()
}
