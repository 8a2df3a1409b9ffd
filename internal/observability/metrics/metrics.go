package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	paymentEvents     metric.Int64Counter
	creditGrants      metric.Int64Counter
	contactFees       metric.Int64Counter
	insufficientFunds metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "paycore"
	}
	meter := provider.Meter(name)

	paymentEvents, err := meter.Int64Counter("paycore_payment_events_total")
	if err != nil {
		return nil, err
	}
	creditGrants, err := meter.Int64Counter("paycore_credit_grants_total")
	if err != nil {
		return nil, err
	}
	contactFees, err := meter.Int64Counter("paycore_contact_fees_total")
	if err != nil {
		return nil, err
	}
	insufficientFunds, err := meter.Int64Counter("paycore_insufficient_credits_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		paymentEvents:     paymentEvents,
		creditGrants:      creditGrants,
		contactFees:       contactFees,
		insufficientFunds: insufficientFunds,
	}, nil
}

// RecordPaymentEvent counts processed webhook events by type and outcome.
func (m *Metrics) RecordPaymentEvent(ctx context.Context, eventType, outcome string) {
	if m == nil {
		return
	}
	m.paymentEvents.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_type", strings.TrimSpace(eventType)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	))
}

// RecordCreditGrant counts completed credit grants by source.
func (m *Metrics) RecordCreditGrant(ctx context.Context, source string, credits int64) {
	if m == nil {
		return
	}
	m.creditGrants.Add(ctx, credits, metric.WithAttributes(
		attribute.String("source", strings.TrimSpace(source)),
	))
}

// RecordContactFee counts successful contact-fee charges.
func (m *Metrics) RecordContactFee(ctx context.Context) {
	if m == nil {
		return
	}
	m.contactFees.Add(ctx, 1)
}

// RecordInsufficientCredits counts rejected charges.
func (m *Metrics) RecordInsufficientCredits(ctx context.Context) {
	if m == nil {
		return
	}
	m.insufficientFunds.Add(ctx, 1)
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	ctx := context.Background()
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "", "grpc":
		return otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(endpoint),
			otlpmetricgrpc.WithInsecure(),
		)
	case "http", "http/protobuf":
		return otlpmetrichttp.New(ctx,
			otlpmetrichttp.WithEndpoint(endpoint),
			otlpmetrichttp.WithInsecure(),
		)
	default:
		return nil, fmt.Errorf("unsupported otlp protocol %q", protocol)
	}
}
