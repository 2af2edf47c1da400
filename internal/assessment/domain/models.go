// Package domain contains the billing models: an assessment header plus its
// particular line items. The line items are the source of truth for money;
// the header total is a cache that must equal their sum after every mutation.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// AssessmentStatus represents assessment lifecycle states.
type AssessmentStatus string

const (
	StatusPending AssessmentStatus = "pending"
	StatusOverdue AssessmentStatus = "overdue"
	StatusPaid    AssessmentStatus = "paid"
)

// ValidStatus reports whether s is a known assessment status.
func ValidStatus(s AssessmentStatus) bool {
	switch s {
	case StatusPending, StatusOverdue, StatusPaid:
		return true
	}
	return false
}

// Assessment is a bill raised against an application. Amounts are centavos.
type Assessment struct {
	ID             snowflake.ID     `gorm:"primaryKey" json:"id"`
	ApplicationID  *snowflake.ID    `gorm:"index" json:"application_id"`
	AssessmentDate time.Time        `gorm:"not null" json:"assessment_date"`
	AssessmentDue  time.Time        `gorm:"not null" json:"assessment_due"`
	TotalAmountDue int64            `gorm:"not null;default:0" json:"total_amount_due"`
	Status         AssessmentStatus `gorm:"type:text;not null;default:'pending'" json:"status"`
	Remarks        string           `gorm:"type:text" json:"remarks"`
	CreatedAt      time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Assessment) TableName() string { return "assessments" }

// AssessmentParticular is one line on an assessment.
type AssessmentParticular struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	AssessmentID snowflake.ID `gorm:"not null;index" json:"assessment_id"`
	ParticularID snowflake.ID `gorm:"not null;index" json:"particular_id"`
	Quantity     int64        `gorm:"not null;default:1" json:"quantity"`
	Subtotal     int64        `gorm:"not null;default:0" json:"subtotal"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (AssessmentParticular) TableName() string { return "assessment_particulars" }

// LineInput pairs a catalog particular with a billed quantity.
type LineInput struct {
	ParticularID snowflake.ID `json:"particular_id"`
	Quantity     int64        `json:"quantity"`
}

type CreateAssessmentRequest struct {
	ApplicationID  *snowflake.ID `json:"application_id"`
	AssessmentDate time.Time     `json:"assessment_date"`
	AssessmentDue  time.Time     `json:"assessment_due"`
	Remarks        string        `json:"remarks"`
	Lines          []LineInput   `json:"lines"`
}

type ListAssessmentRequest struct {
	Status        *AssessmentStatus
	ApplicationID *snowflake.ID
}

// AssessmentDetail is an assessment with its line items loaded.
type AssessmentDetail struct {
	Assessment
	Lines []AssessmentParticular `json:"lines"`
}

type Service interface {
	Create(ctx context.Context, req CreateAssessmentRequest) (AssessmentDetail, error)
	GetByID(ctx context.Context, id snowflake.ID) (AssessmentDetail, error)
	List(ctx context.Context, req ListAssessmentRequest) ([]Assessment, error)
	// RecalculatePenalties re-derives surcharge and interest lines from the
	// assessment's base items and now. Idempotent for a fixed now.
	RecalculatePenalties(ctx context.Context, id snowflake.ID, now time.Time) (AssessmentDetail, error)
	// ListOpenIDs returns assessments that are not yet paid, for the daily
	// penalty sweep.
	ListOpenIDs(ctx context.Context, limit int) ([]snowflake.ID, error)
}

var (
	ErrNotFound         = errors.New("assessment_not_found")
	ErrNoLines          = errors.New("assessment_requires_lines")
	ErrInvalidQuantity  = errors.New("invalid_line_quantity")
	ErrInvalidDueDate   = errors.New("due_date_before_assessment_date")
	ErrUnknownItem      = errors.New("unknown_particular")
	ErrInvalidRates     = errors.New("invalid_penalty_rates")
	ErrMissingSystemRow = errors.New("missing_system_particular")
)
