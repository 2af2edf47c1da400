package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

type fileComplaintRequest struct {
	FranchiseID snowflake.ID `json:"franchise_id"`
	Subject     string       `json:"subject"`
	Details     string       `json:"details"`
}

func (s *Server) FileComplaint(c *gin.Context) {
	var req fileComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if strings.TrimSpace(req.Subject) == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.complaintSvc.File(c.Request.Context(), req.FranchiseID, req.Subject, req.Details)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ResolveComplaint(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := s.complaintSvc.Resolve(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"resolved": true}})
}

func (s *Server) ListFranchiseComplaints(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	resp, err := s.complaintSvc.ListByFranchise(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
