package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/maidlink/paycore/internal/payment/domain"
)

// HandleStripeWebhook verifies and processes one delivery. An invalid
// signature is the only 4xx; processing errors after verification are
// acknowledged with 200 and a warning body so the processor does not build
// a redelivery storm. The failure is logged server-side for replay.
func (s *Server) HandleStripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err = s.webhooks.HandleStripe(c.Request.Context(), payload, c.Request.Header)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrInvalidSignature) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "accepted",
			"warning": "processing failed, event recorded for replay",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
