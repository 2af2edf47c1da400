package server

import (
	"net/http"

	referencedomain "github.com/citypermits/tripermit/internal/reference/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) ListOperators(c *gin.Context) {
	resp, err := s.referenceSvc.ListOperators(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateOperator(c *gin.Context) {
	var req referencedomain.Operator
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.referenceSvc.CreateOperator(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListUnits(c *gin.Context) {
	resp, err := s.referenceSvc.ListUnits(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateUnit(c *gin.Context) {
	var req referencedomain.Unit
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.referenceSvc.CreateUnit(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListZones(c *gin.Context) {
	resp, err := s.referenceSvc.ListZones(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateZone(c *gin.Context) {
	var req referencedomain.Zone
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.referenceSvc.CreateZone(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
