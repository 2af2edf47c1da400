// Package domain contains permit applications and their workflow state
// machine. Approval is the only state that may mutate the franchise ledger or
// raise an assessment.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// ApplicationType is the kind of request being processed.
type ApplicationType string

const (
	TypeNewFranchise  ApplicationType = "new_franchise"
	TypeRenewal       ApplicationType = "renewal"
	TypeChangeOfOwner ApplicationType = "change_of_owner"
	TypeChangeOfUnit  ApplicationType = "change_of_unit"
)

// ValidType reports whether t is a known application type.
func ValidType(t ApplicationType) bool {
	switch t {
	case TypeNewFranchise, TypeRenewal, TypeChangeOfOwner, TypeChangeOfUnit:
		return true
	}
	return false
}

// ApplicationStatus is a workflow state.
type ApplicationStatus string

const (
	StatusPending     ApplicationStatus = "pending"
	StatusUnderReview ApplicationStatus = "under_review"
	StatusApproved    ApplicationStatus = "approved"
	StatusRejected    ApplicationStatus = "rejected"
	StatusReturned    ApplicationStatus = "returned"
	StatusCompleted   ApplicationStatus = "completed"
	StatusCancelled   ApplicationStatus = "cancelled"
)

// transitions is the closed workflow graph.
var transitions = map[ApplicationStatus][]ApplicationStatus{
	StatusPending:     {StatusUnderReview, StatusCancelled},
	StatusUnderReview: {StatusApproved, StatusRejected, StatusReturned},
	StatusReturned:    {StatusPending, StatusCancelled},
	StatusApproved:    {StatusCompleted},
}

// CanTransition reports whether the workflow allows moving from one status to
// another.
func CanTransition(from, to ApplicationStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Application is a workflow request. Applicant fields are a snapshot taken at
// submission, kept even if the operator record later changes.
type Application struct {
	ID                 snowflake.ID      `gorm:"primaryKey" json:"id"`
	ReferenceNumber    string            `gorm:"type:text;not null;uniqueIndex" json:"reference_number"`
	FranchiseID        *snowflake.ID     `gorm:"index" json:"franchise_id"`
	ZoneID             snowflake.ID      `gorm:"index" json:"zone_id"`
	Type               ApplicationType   `gorm:"type:text;not null" json:"type"`
	Status             ApplicationStatus `gorm:"type:text;not null;default:'pending'" json:"status"`
	Remarks            string            `gorm:"type:text" json:"remarks"`
	ProposedOperatorID *snowflake.ID     `gorm:"index" json:"proposed_operator_id"`
	ProposedUnitID     *snowflake.ID     `gorm:"index" json:"proposed_unit_id"`
	FirstName          string            `gorm:"type:text" json:"first_name"`
	MiddleName         string            `gorm:"type:text" json:"middle_name"`
	LastName           string            `gorm:"type:text" json:"last_name"`
	ContactNumber      string            `gorm:"type:text" json:"contact_number"`
	Email              string            `gorm:"type:text" json:"email"`
	TINNumber          string            `gorm:"type:text" json:"tin_number"`
	StreetAddress      string            `gorm:"type:text" json:"street_address"`
	Barangay           string            `gorm:"type:text" json:"barangay"`
	City               string            `gorm:"type:text" json:"city"`
	SubmittedAt        time.Time         `gorm:"not null" json:"submitted_at"`
	ReviewedAt         *time.Time        `gorm:"" json:"reviewed_at"`
	Metadata           datatypes.JSONMap `gorm:"type:jsonb" json:"metadata"`
	CreatedAt          time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Application) TableName() string { return "applications" }

type SubmitApplicationRequest struct {
	Type               ApplicationType `json:"type"`
	FranchiseID        *snowflake.ID   `json:"franchise_id"`
	ZoneID             snowflake.ID    `json:"zone_id"`
	ProposedOperatorID *snowflake.ID   `json:"proposed_operator_id"`
	ProposedUnitID     *snowflake.ID   `json:"proposed_unit_id"`
	Remarks            string          `json:"remarks"`
	FirstName          string          `json:"first_name"`
	MiddleName         string          `json:"middle_name"`
	LastName           string          `json:"last_name"`
	ContactNumber      string          `json:"contact_number"`
	Email              string          `json:"email"`
	TINNumber          string          `json:"tin_number"`
	StreetAddress      string          `json:"street_address"`
	Barangay           string          `json:"barangay"`
	City               string          `json:"city"`

	// ReferenceCycle overrides the cycle segment of the reference number.
	// The auto-renewal sweep sets it to the fiscal window label; walk-in
	// submissions leave it empty and get the submission year.
	ReferenceCycle string `json:"-"`
}

type Service interface {
	Submit(ctx context.Context, req SubmitApplicationRequest) (Application, error)
	GetByID(ctx context.Context, id snowflake.ID) (Application, error)
	List(ctx context.Context, status *ApplicationStatus) ([]Application, error)
	StartReview(ctx context.Context, id snowflake.ID) (Application, error)
	// Approve moves the application to approved and performs the type's side
	// effects: ledger append for ownership/unit changes, renewal assessment
	// for renewals. Renewals are blocked while too many complaints are open.
	Approve(ctx context.Context, id snowflake.ID) (Application, error)
	Reject(ctx context.Context, id snowflake.ID, remarks string) (Application, error)
	Return(ctx context.Context, id snowflake.ID, remarks string) (Application, error)
	Resubmit(ctx context.Context, id snowflake.ID) (Application, error)
	Complete(ctx context.Context, id snowflake.ID) (Application, error)
	Cancel(ctx context.Context, id snowflake.ID) (Application, error)
}

var (
	ErrNotFound           = errors.New("application_not_found")
	ErrInvalidType        = errors.New("invalid_application_type")
	ErrInvalidTransition  = errors.New("invalid_application_transition")
	ErrComplianceBlocked  = errors.New("renewal_blocked_by_complaints")
	ErrMissingFranchise   = errors.New("application_missing_franchise")
	ErrMissingProposedRef = errors.New("application_missing_proposed_reference")
)
