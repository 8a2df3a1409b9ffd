package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/maidlink/paycore/internal/config"
	contactfeedomain "github.com/maidlink/paycore/internal/contactfee/domain"
	creditdomain "github.com/maidlink/paycore/internal/credit/domain"
	idemdomain "github.com/maidlink/paycore/internal/idempotency/domain"
	"github.com/maidlink/paycore/internal/observability"
	obsmiddleware "github.com/maidlink/paycore/internal/observability/logger"
	obsmetrics "github.com/maidlink/paycore/internal/observability/metrics"
	obstracing "github.com/maidlink/paycore/internal/observability/tracing"
	"github.com/maidlink/paycore/internal/payment/webhook"
	purchasedomain "github.com/maidlink/paycore/internal/purchase/domain"
	subscriptiondomain "github.com/maidlink/paycore/internal/subscription/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug: obsCfg.Debug(),
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	db              *gorm.DB
	catalog         *config.PackageCatalog
	creditSvc       creditdomain.Service
	contactFeeSvc   contactfeedomain.Service
	purchaseSvc     purchasedomain.Service
	idempotencySvc  idemdomain.Service
	subscriptionSvc subscriptiondomain.Service
	webhooks        *webhook.Processor
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	DB              *gorm.DB
	Catalog         *config.PackageCatalog
	CreditSvc       creditdomain.Service
	ContactFeeSvc   contactfeedomain.Service
	PurchaseSvc     purchasedomain.Service
	IdempotencySvc  idemdomain.Service
	SubscriptionSvc subscriptiondomain.Service
	Webhooks        *webhook.Processor
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		db:              p.DB,
		catalog:         p.Catalog,
		creditSvc:       p.CreditSvc,
		contactFeeSvc:   p.ContactFeeSvc,
		purchaseSvc:     p.PurchaseSvc,
		idempotencySvc:  p.IdempotencySvc,
		subscriptionSvc: p.SubscriptionSvc,
		webhooks:        p.Webhooks,
	}

	svc.registerAPIRoutes()
	svc.registerWebhookRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1")

	// -------- Credits --------
	v1.GET("/credits/balance", s.UserRequired(), s.GetCreditBalance)
	v1.GET("/credits/transactions", s.UserRequired(), s.ListCreditTransactions)

	// -------- Contact fees --------
	v1.POST("/contacts/charge", s.UserRequired(), s.ChargeContactFee)

	// -------- Credit purchases --------
	v1.GET("/credits/packages", s.ListCreditPackages)
	v1.POST("/purchases", s.UserRequired(), s.StartPurchase)
	v1.POST("/purchases/complete", s.UserRequired(), s.CompletePurchase)

	// -------- Idempotency ledger --------
	v1.POST("/idempotency/ensure", s.UserRequired(), s.EnsureIdempotency)
	v1.POST("/idempotency/status", s.UserRequired(), s.UpdateIdempotencyStatus)
	v1.POST("/idempotency/cleanup", s.UserRequired(), s.CleanupIdempotency)

	// -------- Subscriptions --------
	v1.GET("/subscriptions", s.UserRequired(), s.ListSubscriptions)

	// -------- Admin --------
	v1.POST("/admin/credits/grant", s.AdminRequired(), s.AdminGrantCredits)
}

func (s *Server) registerWebhookRoutes() {
	s.engine.POST("/webhooks/payments/stripe", s.HandleStripeWebhook)
}
