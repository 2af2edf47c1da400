package server

import (
	"errors"
	"net/http"

	applicationdomain "github.com/citypermits/tripermit/internal/application/domain"
	assessmentdomain "github.com/citypermits/tripermit/internal/assessment/domain"
	complaintdomain "github.com/citypermits/tripermit/internal/complaint/domain"
	"github.com/citypermits/tripermit/internal/fiscal"
	franchisedomain "github.com/citypermits/tripermit/internal/franchise/domain"
	particulardomain "github.com/citypermits/tripermit/internal/particular/domain"
	paymentdomain "github.com/citypermits/tripermit/internal/payment/domain"
	referencedomain "github.com/citypermits/tripermit/internal/reference/domain"
	settingsdomain "github.com/citypermits/tripermit/internal/settings/domain"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrInvalidRequest = errors.New("invalid_request")
	ErrInternal       = errors.New("internal_error")
)

// ErrorHandlingMiddleware translates errors attached to the gin context into a
// JSON error body. Handlers abort with AbortWithError and never write error
// bodies themselves.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, applicationdomain.ErrInvalidTransition),
		errors.Is(err, franchisedomain.ErrNoOpTransfer),
		errors.Is(err, franchisedomain.ErrNoOpUnitChange):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case errors.Is(err, applicationdomain.ErrComplianceBlocked):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "compliance_blocked",
			Message: err.Error(),
		}
	case errors.Is(err, particulardomain.ErrDuplicateCode):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	case errors.Is(err, franchisedomain.ErrLedgerInconsistent):
		return http.StatusInternalServerError, errorPayload{
			Type:    "ledger_inconsistent",
			Message: err.Error(),
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound) ||
		errors.Is(err, applicationdomain.ErrNotFound) ||
		errors.Is(err, assessmentdomain.ErrNotFound) ||
		errors.Is(err, complaintdomain.ErrNotFound) ||
		errors.Is(err, franchisedomain.ErrNotFound) ||
		errors.Is(err, particulardomain.ErrNotFound) ||
		errors.Is(err, paymentdomain.ErrAssessmentNotFound) ||
		errors.Is(err, referencedomain.ErrNotFound)
}

func isValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, applicationdomain.ErrInvalidType) ||
		errors.Is(err, applicationdomain.ErrMissingFranchise) ||
		errors.Is(err, applicationdomain.ErrMissingProposedRef) ||
		errors.Is(err, assessmentdomain.ErrNoLines) ||
		errors.Is(err, assessmentdomain.ErrInvalidQuantity) ||
		errors.Is(err, assessmentdomain.ErrInvalidDueDate) ||
		errors.Is(err, assessmentdomain.ErrUnknownItem) ||
		errors.Is(err, particulardomain.ErrInvalidGroup) ||
		errors.Is(err, particulardomain.ErrImmutableField) ||
		errors.Is(err, particulardomain.ErrProtectedParticular) ||
		errors.Is(err, paymentdomain.ErrInvalidAmount) ||
		errors.Is(err, paymentdomain.ErrMissingPayee) ||
		errors.Is(err, settingsdomain.ErrInvalidRate) ||
		errors.Is(err, fiscal.ErrInvalidFiscalConfig)
}
