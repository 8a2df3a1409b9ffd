package domain

import "context"

// Gateway is the outbound payment processor API surface. Metadata on
// sessions and intents is the channel that carries the marketplace user ID
// and credit amount across the asynchronous boundary.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSessionResult, error)
	RetrievePaymentIntent(ctx context.Context, intentID string) (*PaymentIntent, error)
	RetrieveCustomer(ctx context.Context, customerID string) (*Customer, error)
}

type CheckoutParams struct {
	AmountCents int64
	Currency    string
	ProductName string
	Quantity    int64
	SuccessURL  string
	CancelURL   string
	Metadata    map[string]string
	// IdempotencyKey is forwarded to the processor so a retried create does
	// not open a second session.
	IdempotencyKey string
}

type CheckoutSessionResult struct {
	ID  string
	URL string
}
