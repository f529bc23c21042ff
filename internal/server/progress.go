package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) GetProgress(c *gin.Context) {
	summary, err := s.progressSvc.Summary(c.Request.Context(), s.identityKey(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}
