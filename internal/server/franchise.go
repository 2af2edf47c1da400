package server

import (
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	franchisedomain "github.com/citypermits/tripermit/internal/franchise/domain"
	"github.com/gin-gonic/gin"
)

type registerFranchiseRequest struct {
	ZoneID     snowflake.ID `json:"zone_id"`
	OperatorID snowflake.ID `json:"operator_id"`
	UnitID     snowflake.ID `json:"unit_id"`
	DateIssued time.Time    `json:"date_issued"`
}

func (s *Server) RegisterFranchise(c *gin.Context) {
	var req registerFranchiseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if req.DateIssued.IsZero() {
		req.DateIssued = s.now()
	}

	resp, err := s.franchiseSvc.Register(c.Request.Context(), franchisedomain.RegisterFranchiseRequest{
		ZoneID:     req.ZoneID,
		OperatorID: req.OperatorID,
		UnitID:     req.UnitID,
		DateIssued: req.DateIssued,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListFranchises(c *gin.Context) {
	resp, err := s.franchiseSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetFranchise(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	resp, err := s.franchiseSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetFranchiseStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	status, err := s.franchiseSvc.DeriveStatus(c.Request.Context(), id, s.now())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"status": status}})
}

func (s *Server) ListOwnershipHistory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	resp, err := s.franchiseSvc.OwnershipHistory(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListUnitHistory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	resp, err := s.franchiseSvc.UnitHistory(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type transferOwnershipRequest struct {
	NewOperatorID snowflake.ID `json:"new_operator_id"`
	Date          time.Time    `json:"date"`
	Remarks       string       `json:"remarks"`
}

// TransferOwnership is the direct admin path; the usual route is approval of
// a change_of_owner application.
func (s *Server) TransferOwnership(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req transferOwnershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if req.Date.IsZero() {
		req.Date = s.now()
	}

	resp, err := s.franchiseSvc.TransferOwnership(c.Request.Context(), id, req.NewOperatorID, req.Date, req.Remarks)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type changeUnitRequest struct {
	NewUnitID snowflake.ID `json:"new_unit_id"`
	Date      time.Time    `json:"date"`
	Remarks   string       `json:"remarks"`
}

func (s *Server) ChangeActiveUnit(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req changeUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if req.Date.IsZero() {
		req.Date = s.now()
	}

	resp, err := s.franchiseSvc.ChangeActiveUnit(c.Request.Context(), id, req.NewUnitID, req.Date, req.Remarks)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CheckFranchiseConsistency(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := s.franchiseSvc.CheckConsistency(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"consistent": true}})
}
