package server

import (
	"net/http"
	"strings"

	applicationdomain "github.com/citypermits/tripermit/internal/application/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) SubmitApplication(c *gin.Context) {
	var req applicationdomain.SubmitApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.applicationSvc.Submit(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListApplications(c *gin.Context) {
	var status *applicationdomain.ApplicationStatus
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		st := applicationdomain.ApplicationStatus(raw)
		status = &st
	}

	resp, err := s.applicationSvc.List(c.Request.Context(), status)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetApplication(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	resp, err := s.applicationSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type reviewRemarksRequest struct {
	Remarks string `json:"remarks"`
}

func (s *Server) ReviewApplication(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	resp, err := s.applicationSvc.StartReview(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ApproveApplication(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	resp, err := s.applicationSvc.Approve(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RejectApplication(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req reviewRemarksRequest
	_ = c.ShouldBindJSON(&req)

	resp, err := s.applicationSvc.Reject(c.Request.Context(), id, req.Remarks)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ReturnApplication(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req reviewRemarksRequest
	_ = c.ShouldBindJSON(&req)

	resp, err := s.applicationSvc.Return(c.Request.Context(), id, req.Remarks)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ResubmitApplication(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	resp, err := s.applicationSvc.Resubmit(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CompleteApplication(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	resp, err := s.applicationSvc.Complete(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CancelApplication(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	resp, err := s.applicationSvc.Cancel(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
