package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	creditdomain "github.com/maidlink/paycore/internal/credit/domain"
)

func (s *Server) GetCreditBalance(c *gin.Context) {
	caller, err := callerFrom(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	balance, err := s.creditSvc.Balance(c.Request.Context(), caller.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id": caller.UserID,
		"balance": balance,
	})
}

func (s *Server) ListCreditTransactions(c *gin.Context) {
	caller, err := callerFrom(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var query struct {
		PageSize  int    `form:"page_size"`
		PageToken string `form:"page_token"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	statement, err := s.creditSvc.Statement(c.Request.Context(), creditdomain.StatementRequest{
		UserID:    caller.UserID,
		PageSize:  query.PageSize,
		PageToken: query.PageToken,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, statement)
}

type adminGrantRequest struct {
	UserID      string `json:"user_id" binding:"required"`
	Amount      int64  `json:"amount" binding:"required"`
	Description string `json:"description"`
}

// AdminGrantCredits writes goodwill credits through the same grant path the
// purchase flow uses, so the transaction log stays the single audit trail.
func (s *Server) AdminGrantCredits(c *gin.Context) {
	var req adminGrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.creditSvc.Grant(c.Request.Context(), creditdomain.GrantRequest{
		UserID:      req.UserID,
		Amount:      req.Amount,
		Type:        creditdomain.TransactionTypeGrant,
		Description: req.Description,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"balance":        resp.Balance,
		"transaction_id": resp.TransactionID,
	})
}
