package payment

import (
	"github.com/maidlink/paycore/internal/clock"
	"github.com/maidlink/paycore/internal/config"
	"github.com/maidlink/paycore/internal/payment/domain"
	"github.com/maidlink/paycore/internal/payment/repository"
	"github.com/maidlink/paycore/internal/payment/stripe"
	"github.com/maidlink/paycore/internal/payment/webhook"
	"go.uber.org/fx"
)

var Module = fx.Module("payment",
	fx.Provide(repository.Provide),
	fx.Provide(func(cfg config.Config, clk clock.Clock) *stripe.Verifier {
		return stripe.NewVerifier(cfg.Stripe.WebhookSecret, clk)
	}),
	fx.Provide(func(cfg config.Config) domain.Gateway {
		return stripe.NewClient(cfg)
	}),
	fx.Provide(webhook.New),
)
