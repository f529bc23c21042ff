package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	usagedomain "github.com/elevenplus/tutor/internal/usage/domain"
)

type checkUsageResponse struct {
	Allowed   bool   `json:"allowed"`
	Remaining int    `json:"remaining"`
	Limit     int    `json:"limit"`
	Reason    string `json:"reason,omitempty"`
}

type consumeUsageResponse struct {
	Success   bool `json:"success"`
	Remaining int  `json:"remaining"`
	Limit     int  `json:"limit"`
}

type consumeDeniedResponse struct {
	Error     string `json:"error"`
	Allowed   bool   `json:"allowed"`
	Remaining int    `json:"remaining"`
	Limit     int    `json:"limit"`
}

func (s *Server) CheckUsage(c *gin.Context) {
	decision, err := s.usageSvc.Check(c.Request.Context(), s.identityKey(c), s.identityEmail(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, checkUsageResponse{
		Allowed:   decision.Allowed,
		Remaining: decision.Remaining,
		Limit:     decision.Limit,
		Reason:    decision.Reason,
	})
}

func (s *Server) ConsumeUsage(c *gin.Context) {
	decision, err := s.usageSvc.Consume(c.Request.Context(), s.identityKey(c), s.identityEmail(c))
	if err != nil {
		// Exhaustion is an expected outcome with its own response shape,
		// not an error for the shared mapper.
		if errors.Is(err, usagedomain.ErrQuotaExhausted) {
			c.JSON(http.StatusTooManyRequests, consumeDeniedResponse{
				Error:     decision.Reason,
				Allowed:   false,
				Remaining: 0,
				Limit:     decision.Limit,
			})
			return
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, consumeUsageResponse{
		Success:   true,
		Remaining: decision.Remaining,
		Limit:     decision.Limit,
	})
}
