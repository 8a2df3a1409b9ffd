package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/maidlink/paycore/internal/config"
	"github.com/maidlink/paycore/internal/payment/domain"
)

const apiBase = "https://api.stripe.com"

type stripeErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

type stripeCheckoutSessionResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Client talks to the Stripe REST API with form-encoded requests. It
// implements domain.Gateway.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewClient(cfg config.Config) *Client {
	return &Client{
		apiKey:  strings.TrimSpace(cfg.Stripe.APIKey),
		baseURL: apiBase,
		client:  &http.Client{Timeout: 12 * time.Second},
	}
}

// NewClientWithBase is for tests pointing at a local httptest server.
func NewClientWithBase(apiKey, baseURL string) *Client {
	return &Client{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 12 * time.Second},
	}
}

func (c *Client) CreateCheckoutSession(ctx context.Context, params domain.CheckoutParams) (*domain.CheckoutSessionResult, error) {
	quantity := params.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	values := url.Values{}
	values.Set("mode", "payment")
	values.Set("success_url", params.SuccessURL)
	values.Set("cancel_url", params.CancelURL)
	values.Set("line_items[0][quantity]", strconv.FormatInt(quantity, 10))
	values.Set("line_items[0][price_data][currency]", strings.ToLower(params.Currency))
	values.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(params.AmountCents, 10))
	values.Set("line_items[0][price_data][product_data][name]", params.ProductName)
	for key, value := range params.Metadata {
		values.Set("metadata["+key+"]", value)
		values.Set("payment_intent_data[metadata]["+key+"]", value)
	}

	var session stripeCheckoutSessionResponse
	if err := c.doRequest(ctx, http.MethodPost, "/v1/checkout/sessions", values, params.IdempotencyKey, &session); err != nil {
		return nil, err
	}
	if session.ID == "" || session.URL == "" {
		return nil, errors.New("stripe_response_invalid")
	}
	return &domain.CheckoutSessionResult{ID: session.ID, URL: session.URL}, nil
}

func (c *Client) RetrievePaymentIntent(ctx context.Context, intentID string) (*domain.PaymentIntent, error) {
	intentID = strings.TrimSpace(intentID)
	if intentID == "" {
		return nil, domain.ErrInvalidEvent
	}
	var intent stripePaymentIntent
	if err := c.doRequest(ctx, http.MethodGet, "/v1/payment_intents/"+intentID, nil, "", &intent); err != nil {
		return nil, err
	}
	if intent.ID == "" {
		return nil, errors.New("stripe_response_invalid")
	}
	return toDomainIntent(intent), nil
}

func (c *Client) RetrieveCustomer(ctx context.Context, customerID string) (*domain.Customer, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, domain.ErrInvalidEvent
	}
	var customer stripeCustomer
	if err := c.doRequest(ctx, http.MethodGet, "/v1/customers/"+customerID, nil, "", &customer); err != nil {
		return nil, err
	}
	if customer.ID == "" {
		return nil, errors.New("stripe_response_invalid")
	}
	return &domain.Customer{
		ID:       customer.ID,
		Email:    customer.Email,
		Metadata: customer.Metadata,
	}, nil
}

func (c *Client) doRequest(
	ctx context.Context,
	method string,
	path string,
	values url.Values,
	idempotencyKey string,
	out any,
) error {
	if c.apiKey == "" {
		return domain.ErrInvalidConfig
	}
	var bodyReader *strings.Reader
	if values != nil {
		bodyReader = strings.NewReader(values.Encode())
	} else {
		bodyReader = strings.NewReader("")
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if values != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var stripeErr stripeErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&stripeErr); err != nil {
			return errors.New("stripe_request_failed")
		}
		message := strings.TrimSpace(stripeErr.Error.Message)
		if message == "" {
			message = "stripe_request_failed"
		}
		return errors.New(message)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
