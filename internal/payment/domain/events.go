package domain

import "time"

// EventKind enumerates the processor event types this service acts on.
// Anything else is logged and ignored at the parse step.
type EventKind string

const (
	EventCheckoutSessionCompleted EventKind = "checkout.session.completed"
	EventSubscriptionCreated      EventKind = "customer.subscription.created"
	EventSubscriptionUpdated      EventKind = "customer.subscription.updated"
	EventSubscriptionDeleted      EventKind = "customer.subscription.deleted"
	EventInvoicePaid              EventKind = "invoice.paid"
	EventInvoicePaymentFailed     EventKind = "invoice.payment_failed"
	EventPaymentIntentSucceeded   EventKind = "payment_intent.succeeded"
)

// WebhookEvent is the parsed form of a processor delivery. Exactly one of the
// object pointers matching Kind is set.
type WebhookEvent struct {
	Provider        string
	ProviderEventID string
	Kind            EventKind
	OccurredAt      time.Time
	RawPayload      []byte

	CheckoutSession *CheckoutSession
	PaymentIntent   *PaymentIntent
	Subscription    *Subscription
	Invoice         *Invoice
}

type CheckoutSession struct {
	ID              string
	Mode            string
	CustomerID      string
	SubscriptionID  string
	PaymentIntentID string
	AmountTotal     int64
	Currency        string
	Metadata        map[string]string
}

type PaymentIntent struct {
	ID         string
	Status     string
	CustomerID string
	Amount     int64
	Currency   string
	Metadata   map[string]string
}

type Subscription struct {
	ID                 string
	CustomerID         string
	Status             string
	PlanName           string
	PlanType           string
	Amount             int64
	Currency           string
	BillingInterval    string
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	Metadata           map[string]string
}

type Invoice struct {
	ID             string
	CustomerID     string
	SubscriptionID string
	AmountPaid     int64
	AmountDue      int64
	Currency       string
}

// Customer is the processor's customer object, fetched when event metadata
// lacks the marketplace user ID.
type Customer struct {
	ID       string
	Email    string
	Metadata map[string]string
}
