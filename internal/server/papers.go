package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	mockexamdomain "github.com/elevenplus/tutor/internal/mockexam/domain"
)

type markPaperCompletedRequest struct {
	PaperID string `json:"paper_id"`
	Score   *int   `json:"score,omitempty"`
}

func (s *Server) MarkPaperCompleted(c *gin.Context) {
	var req markPaperCompletedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.PaperID) == "" {
		AbortWithError(c, newValidationError("paper_id", "required", "paper_id is required"))
		return
	}

	paper, err := s.mockexamSvc.MarkCompleted(c.Request.Context(), s.identityKey(c), mockexamdomain.MarkCompletedRequest{
		PaperID: req.PaperID,
		Score:   req.Score,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, paper)
}

func (s *Server) ListCompletedPapers(c *gin.Context) {
	papers, err := s.mockexamSvc.ListCompleted(c.Request.Context(), s.identityKey(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"papers": papers})
}
