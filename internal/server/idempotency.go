package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	idemdomain "github.com/maidlink/paycore/internal/idempotency/domain"
)

type ensureIdempotencyRequest struct {
	Operation string `json:"operation" binding:"required"`
	Amount    int64  `json:"amount"`
	Context   string `json:"context"`
}

// EnsureIdempotency lets a client reserve (or look up) the ledger row for an
// operation before executing it. The caller identity is the record owner.
func (s *Server) EnsureIdempotency(c *gin.Context) {
	caller, err := callerFrom(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req ensureIdempotencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.idempotencySvc.Ensure(c.Request.Context(), idemdomain.EnsureRequest{
		UserID:    caller.UserID,
		Operation: idemdomain.Operation(req.Operation),
		Amount:    req.Amount,
		Context:   req.Context,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"key":             result.Key,
		"is_duplicate":    result.IsDuplicate,
		"status":          result.Status,
		"existing_result": result.ExistingResult,
	})
}

type updateIdempotencyStatusRequest struct {
	Key                string         `json:"key" binding:"required"`
	Status             string         `json:"status" binding:"required"`
	ExternalPaymentRef *string        `json:"external_payment_ref"`
	Result             map[string]any `json:"result"`
}

// UpdateIdempotencyStatus transitions the caller's own ledger record. The
// webhook path uses the service directly with internal trust; this endpoint
// never does.
func (s *Server) UpdateIdempotencyStatus(c *gin.Context) {
	caller, err := callerFrom(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req updateIdempotencyStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err = s.idempotencySvc.UpdateStatus(c.Request.Context(), idemdomain.UpdateStatusRequest{
		UserID:             caller.UserID,
		Key:                req.Key,
		Status:             idemdomain.Status(req.Status),
		ExternalPaymentRef: req.ExternalPaymentRef,
		Result:             req.Result,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

type cleanupIdempotencyRequest struct {
	MaxAgeHours int `json:"max_age_hours" binding:"required"`
}

// CleanupIdempotency removes the caller's expired ledger rows. The global
// sweep is the scheduler's job; this is the per-user callable variant.
func (s *Server) CleanupIdempotency(c *gin.Context) {
	caller, err := callerFrom(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req cleanupIdempotencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	removed, err := s.idempotencySvc.CleanupExpiredForUser(c.Request.Context(), caller.UserID, req.MaxAgeHours)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"removed": removed,
	})
}
