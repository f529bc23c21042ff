package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	contextIdentityKey = "identity_key"
	contextEmailKey    = "identity_email"
)

// AuthRequired verifies the bearer token and stores the caller identity on
// the request context for the handlers beneath it.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(token) == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		id, err := s.verifier.Verify(strings.TrimSpace(token))
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(contextIdentityKey, id.Key)
		c.Set(contextEmailKey, id.Email)
		c.Next()
	}
}

// ConsumeRateLimit smooths request bursts per caller. A redis outage fails
// open; the daily quota downstream still bounds total usage.
func (s *Server) ConsumeRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.consumeLimiter == nil {
			c.Next()
			return
		}

		result, err := s.consumeLimiter.Allow(c.Request.Context(), s.identityKey(c))
		if err != nil {
			c.Next()
			return
		}
		if !result.Allowed {
			s.obsMetrics.RecordRateLimitDenied(c.Request.Context(), c.FullPath())
			retryAfter := int(result.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many requests",
			})
			return
		}
		c.Next()
	}
}

func (s *Server) identityKey(c *gin.Context) string {
	return c.GetString(contextIdentityKey)
}

func (s *Server) identityEmail(c *gin.Context) string {
	return c.GetString(contextEmailKey)
}
