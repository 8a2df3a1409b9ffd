package stripe_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/maidlink/paycore/internal/clock"
	"github.com/maidlink/paycore/internal/payment/domain"
	"github.com/maidlink/paycore/internal/payment/stripe"
	"github.com/stretchr/testify/require"
)

func headersWith(value string) http.Header {
	headers := http.Header{}
	headers.Set("Stripe-Signature", value)
	return headers
}

func TestVerify(t *testing.T) {
	secret := "whsec_test"
	payload := []byte(`{"id":"evt_1","type":"invoice.paid"}`)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	verifier := stripe.NewVerifier(secret, clock.NewFakeClock(now))

	err := verifier.Verify(payload, headersWith(stripe.SignPayload(secret, payload, now)))
	require.NoError(t, err)

	// Small skew within tolerance still verifies.
	err = verifier.Verify(payload, headersWith(stripe.SignPayload(secret, payload, now.Add(-2*time.Minute))))
	require.NoError(t, err)
}

func TestVerifyRejects(t *testing.T) {
	secret := "whsec_test"
	payload := []byte(`{"id":"evt_1"}`)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	verifier := stripe.NewVerifier(secret, clock.NewFakeClock(now))

	cases := map[string]string{
		"wrong secret":      stripe.SignPayload("whsec_other", payload, now),
		"stale timestamp":   stripe.SignPayload(secret, payload, now.Add(-6*time.Minute)),
		"future timestamp":  stripe.SignPayload(secret, payload, now.Add(6*time.Minute)),
		"garbage header":    "not-a-signature",
		"missing signature": "t=1772366400",
	}
	for name, header := range cases {
		err := verifier.Verify(payload, headersWith(header))
		require.ErrorIs(t, err, domain.ErrInvalidSignature, name)
	}

	// Tampered payload fails against a valid header.
	header := stripe.SignPayload(secret, payload, now)
	err := verifier.Verify([]byte(`{"id":"evt_2"}`), headersWith(header))
	require.ErrorIs(t, err, domain.ErrInvalidSignature)

	// A verifier without a configured secret never accepts.
	unconfigured := stripe.NewVerifier("", clock.NewFakeClock(now))
	err = unconfigured.Verify(payload, headersWith(header))
	require.ErrorIs(t, err, domain.ErrInvalidConfig)
}
