package server

import (
	"net/http"
	"strings"

	particulardomain "github.com/citypermits/tripermit/internal/particular/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) ListParticulars(c *gin.Context) {
	group := strings.TrimSpace(c.Query("group"))
	if group != "" {
		resp, err := s.particularSvc.ListByGroup(c.Request.Context(), particulardomain.ParticularGroup(group))
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": resp})
		return
	}

	resp, err := s.particularSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetParticular(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	resp, err := s.particularSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateParticular(c *gin.Context) {
	var req particulardomain.CreateParticularRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.particularSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateParticular(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req particulardomain.UpdateParticularRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.particularSvc.Update(c.Request.Context(), id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteParticular(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := s.particularSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": true}})
}
