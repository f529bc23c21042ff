package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// maxWebhookBody bounds webhook payload reads. Stripe events are a few KB.
const maxWebhookBody = 1 << 20

func (s *Server) HandleBillingWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if _, err := s.reconciler.HandleWebhook(c.Request.Context(), payload, c.Request.Header); err != nil {
		AbortWithError(c, err)
		return
	}

	// Every handled delivery is acknowledged identically. The provider
	// only needs to know it should not redeliver.
	c.JSON(http.StatusOK, gin.H{"received": true})
}
