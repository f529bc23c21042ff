package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	mockexamdomain "github.com/elevenplus/tutor/internal/mockexam/domain"
)

type startExamSessionRequest struct {
	PaperID         string `json:"paper_id"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
}

type finishExamSessionRequest struct {
	Score *int `json:"score,omitempty"`
}

type examSessionResponse struct {
	mockexamdomain.ExamSession
	RemainingSeconds int `json:"remaining_seconds"`
}

func (s *Server) StartExamSession(c *gin.Context) {
	var req startExamSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	session, err := s.examSessions.Start(s.identityKey(c), req.PaperID, time.Duration(req.DurationMinutes)*time.Minute)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, s.sessionResponse(session))
}

func (s *Server) GetExamSession(c *gin.Context) {
	session, err := s.examSessions.Get(s.identityKey(c), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, s.sessionResponse(session))
}

func (s *Server) FinishExamSession(c *gin.Context) {
	var req finishExamSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	// Bootstrap the profile up front so the completion record below
	// cannot fail once the session is closed.
	if _, err := s.profileSvc.EnsureProfile(c.Request.Context(), s.identityKey(c), s.identityEmail(c)); err != nil {
		AbortWithError(c, err)
		return
	}

	session, err := s.examSessions.Finish(s.identityKey(c), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if _, err := s.mockexamSvc.MarkCompleted(c.Request.Context(), s.identityKey(c), mockexamdomain.MarkCompletedRequest{
		PaperID: session.PaperID,
		Score:   req.Score,
	}); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, s.sessionResponse(session))
}

func (s *Server) sessionResponse(session mockexamdomain.ExamSession) examSessionResponse {
	return examSessionResponse{
		ExamSession:      session,
		RemainingSeconds: int(session.Remaining(s.clock.Now()).Seconds()),
	}
}
