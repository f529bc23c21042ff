package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) CreateCheckout(c *gin.Context) {
	session, err := s.checkoutSvc.CreateCheckoutSession(c.Request.Context(), s.identityKey(c), s.identityEmail(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

func (s *Server) CreatePortal(c *gin.Context) {
	session, err := s.checkoutSvc.CreatePortalSession(c.Request.Context(), s.identityKey(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}
