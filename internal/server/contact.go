package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	contactfeedomain "github.com/maidlink/paycore/internal/contactfee/domain"
)

type chargeContactFeeRequest struct {
	MaidID         string `json:"maid_id" binding:"required"`
	CreditsAmount  int64  `json:"credits_amount"`
	ContactMessage string `json:"contact_message"`
}

func (s *Server) ChargeContactFee(c *gin.Context) {
	caller, err := callerFrom(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req chargeContactFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.contactFeeSvc.Charge(c.Request.Context(), contactfeedomain.ChargeRequest{
		SponsorID:      caller.UserID,
		MaidID:         req.MaidID,
		CreditsAmount:  req.CreditsAmount,
		ContactMessage: req.ContactMessage,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
