// Package domain contains payment events posted against assessments. A
// payment snapshots the payee at the time of posting and is never mutated.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Payment is an immutable payment event. AssessmentID is nullable so walk-in
// payments without a bill can still be receipted. Amounts are centavos.
type Payment struct {
	ID                 snowflake.ID  `gorm:"primaryKey" json:"id"`
	AssessmentID       *snowflake.ID `gorm:"index" json:"assessment_id"`
	AmountPaid         int64         `gorm:"not null" json:"amount_paid"`
	PayeeFirstName     string        `gorm:"type:text;not null" json:"payee_first_name"`
	PayeeMiddleName    string        `gorm:"type:text" json:"payee_middle_name"`
	PayeeLastName      string        `gorm:"type:text;not null" json:"payee_last_name"`
	PayeeContactNumber string        `gorm:"type:text" json:"payee_contact_number"`
	PayeeStreetAddress string        `gorm:"type:text" json:"payee_street_address"`
	PayeeBarangay      string        `gorm:"type:text;not null" json:"payee_barangay"`
	PayeeCity          string        `gorm:"type:text" json:"payee_city"`
	ReceivedAt         time.Time     `gorm:"not null" json:"received_at"`
	CreatedAt          time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Payment) TableName() string { return "payments" }

type RecordPaymentRequest struct {
	AssessmentID       *snowflake.ID `json:"assessment_id"`
	AmountPaid         int64         `json:"amount_paid"`
	PayeeFirstName     string        `json:"payee_first_name"`
	PayeeMiddleName    string        `json:"payee_middle_name"`
	PayeeLastName      string        `json:"payee_last_name"`
	PayeeContactNumber string        `json:"payee_contact_number"`
	PayeeStreetAddress string        `json:"payee_street_address"`
	PayeeBarangay      string        `json:"payee_barangay"`
	PayeeCity          string        `json:"payee_city"`
}

type Service interface {
	Record(ctx context.Context, req RecordPaymentRequest) (Payment, error)
	ListByAssessment(ctx context.Context, assessmentID snowflake.ID) ([]Payment, error)
	// Balance returns total due minus total paid for an assessment.
	Balance(ctx context.Context, assessmentID snowflake.ID) (int64, error)
}

var (
	ErrInvalidAmount      = errors.New("invalid_payment_amount")
	ErrMissingPayee       = errors.New("missing_payee_details")
	ErrAssessmentNotFound = errors.New("payment_assessment_not_found")
)
