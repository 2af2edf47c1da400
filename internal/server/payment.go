package server

import (
	"net/http"

	paymentdomain "github.com/citypermits/tripermit/internal/payment/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) RecordPayment(c *gin.Context) {
	var req paymentdomain.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.paymentSvc.Record(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListAssessmentPayments(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	payments, err := s.paymentSvc.ListByAssessment(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	balance, err := s.paymentSvc.Balance(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"payments": payments,
		"balance":  balance,
	}})
}
