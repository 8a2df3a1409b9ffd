package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	purchasedomain "github.com/maidlink/paycore/internal/purchase/domain"
)

func (s *Server) ListCreditPackages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"packages": s.catalog.All()})
}

type startPurchaseRequest struct {
	PackageCode      string `json:"package_code"`
	CreditsAmount    int64  `json:"credits_amount"`
	CostCents        int64  `json:"cost_cents"`
	IdempotencyToken string `json:"idempotency_token"`
}

func (s *Server) StartPurchase(c *gin.Context) {
	caller, err := callerFrom(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req startPurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.purchaseSvc.Start(c.Request.Context(), purchasedomain.StartRequest{
		UserID:           caller.UserID,
		PackageCode:      req.PackageCode,
		CreditsAmount:    req.CreditsAmount,
		CostCents:        req.CostCents,
		IdempotencyToken: req.IdempotencyToken,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

type completePurchaseRequest struct {
	IdempotencyKey  string `json:"idempotency_key"`
	PaymentIntentID string `json:"payment_intent_id" binding:"required"`
}

func (s *Server) CompletePurchase(c *gin.Context) {
	caller, err := callerFrom(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req completePurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.purchaseSvc.Complete(c.Request.Context(), purchasedomain.CompleteRequest{
		UserID:          caller.UserID,
		IdempotencyKey:  req.IdempotencyKey,
		PaymentIntentID: req.PaymentIntentID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
