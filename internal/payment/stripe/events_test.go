package stripe_test

import (
	"testing"
	"time"

	"github.com/maidlink/paycore/internal/payment/domain"
	"github.com/maidlink/paycore/internal/payment/stripe"
	"github.com/stretchr/testify/require"
)

func TestParseEvent(t *testing.T) {
	payload := []byte(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"created": 1772366400,
		"data": {"object": {
			"id": "cs_1",
			"mode": "payment",
			"payment_intent": "pi_1",
			"amount_total": 999,
			"currency": "usd",
			"metadata": {"user_id": "sponsor-1", "purchase_type": "credits"}
		}}
	}`)

	event, err := stripe.ParseEvent(payload)
	require.NoError(t, err)
	require.Equal(t, domain.EventCheckoutSessionCompleted, event.Kind)
	require.Equal(t, "stripe", event.Provider)
	require.Equal(t, "evt_1", event.ProviderEventID)
	require.NotNil(t, event.CheckoutSession)
	require.Equal(t, "pi_1", event.CheckoutSession.PaymentIntentID)
	require.Equal(t, "USD", event.CheckoutSession.Currency)
	require.Equal(t, "sponsor-1", event.CheckoutSession.Metadata["user_id"])

	_, err = stripe.ParseEvent([]byte(`{"id":"evt_2","type":"charge.refunded","data":{"object":{}}}`))
	require.ErrorIs(t, err, domain.ErrEventIgnored)

	_, err = stripe.ParseEvent([]byte(`not json`))
	require.ErrorIs(t, err, domain.ErrInvalidPayload)

	_, err = stripe.ParseEvent([]byte(`{"type":"invoice.paid","data":{"object":{"id":"in_1"}}}`))
	require.ErrorIs(t, err, domain.ErrInvalidEvent)
}

func TestParseSubscriptionEvent(t *testing.T) {
	payload := []byte(`{
		"id": "evt_3",
		"type": "customer.subscription.updated",
		"data": {"object": {
			"id": "sub_1",
			"customer": "cus_1",
			"status": "past_due",
			"current_period_start": 1772366400,
			"current_period_end": 1774958400,
			"items": {"data": [{"price": {
				"unit_amount": 2900,
				"currency": "usd",
				"nickname": "pro",
				"recurring": {"interval": "month"},
				"metadata": {"plan_type": "sponsor"}
			}}]}
		}}
	}`)

	event, err := stripe.ParseEvent(payload)
	require.NoError(t, err)
	require.Equal(t, domain.EventSubscriptionUpdated, event.Kind)
	sub := event.Subscription
	require.NotNil(t, sub)
	require.Equal(t, "past_due", sub.Status)
	require.Equal(t, "pro", sub.PlanName)
	require.Equal(t, "sponsor", sub.PlanType)
	require.EqualValues(t, 2900, sub.Amount)
	require.Equal(t, "month", sub.BillingInterval)
	require.Equal(t, time.Unix(1772366400, 0).UTC(), sub.CurrentPeriodStart)
}
