package server

import (
	"net/http"
	"strings"

	assessmentdomain "github.com/citypermits/tripermit/internal/assessment/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) ListAssessments(c *gin.Context) {
	var req assessmentdomain.ListAssessmentRequest
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := assessmentdomain.AssessmentStatus(raw)
		req.Status = &status
	}

	resp, err := s.assessmentSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetAssessment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	resp, err := s.assessmentSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateAssessment(c *gin.Context) {
	var req assessmentdomain.CreateAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.assessmentSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// RecalculateAssessment re-derives penalty lines as of now. Reads stay cheap
// because penalties are recomputed here and by the daily sweep, not on read.
func (s *Server) RecalculateAssessment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	resp, err := s.assessmentSvc.RecalculatePenalties(c.Request.Context(), id, s.now())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
