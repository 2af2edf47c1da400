// Package domain contains the franchise entity and its append-only ownership
// and unit histories. The franchise carries one current pointer per history;
// the pointer always references a history-row id and is only moved inside the
// same transaction that appends the row.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// FranchiseStatus is the derived lifecycle state, never stored.
type FranchiseStatus string

const (
	StatusRenewed        FranchiseStatus = "renewed"
	StatusPendingRenewal FranchiseStatus = "pending_renewal"
	StatusTerminated     FranchiseStatus = "terminated"
)

// TerminationAge is how long a franchise may go without reissuance before it
// is considered terminated.
const TerminationAge = 3

// Franchise is the permit entity.
type Franchise struct {
	ID           snowflake.ID  `gorm:"primaryKey" json:"id"`
	ZoneID       snowflake.ID  `gorm:"not null;index" json:"zone_id"`
	DateIssued   time.Time     `gorm:"not null" json:"date_issued"`
	QRCode       string        `gorm:"type:text" json:"qr_code"`
	OwnershipID  *snowflake.ID `gorm:"index" json:"ownership_id"`
	ActiveUnitID *snowflake.ID `gorm:"index" json:"active_unit_id"`
	CreatedAt    time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Franchise) TableName() string { return "franchises" }

// Ownership is an immutable ownership-history row. PreviousOperatorID is nil
// only on a franchise's first record.
type Ownership struct {
	ID                 snowflake.ID  `gorm:"primaryKey" json:"id"`
	FranchiseID        snowflake.ID  `gorm:"not null;index" json:"franchise_id"`
	NewOperatorID      snowflake.ID  `gorm:"not null;index" json:"new_operator_id"`
	PreviousOperatorID *snowflake.ID `gorm:"index" json:"previous_operator_id"`
	DateTransferred    time.Time     `gorm:"not null" json:"date_transferred"`
	Remarks            string        `gorm:"type:text" json:"remarks"`
	CreatedAt          time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Ownership) TableName() string { return "ownerships" }

// ActiveUnit is an immutable unit-history row.
type ActiveUnit struct {
	ID             snowflake.ID  `gorm:"primaryKey" json:"id"`
	FranchiseID    snowflake.ID  `gorm:"not null;index" json:"franchise_id"`
	NewUnitID      snowflake.ID  `gorm:"not null;index" json:"new_unit_id"`
	PreviousUnitID *snowflake.ID `gorm:"index" json:"previous_unit_id"`
	DateChanged    time.Time     `gorm:"not null" json:"date_changed"`
	Remarks        string        `gorm:"type:text" json:"remarks"`
	CreatedAt      time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (ActiveUnit) TableName() string { return "active_units" }

type RegisterFranchiseRequest struct {
	ZoneID     snowflake.ID `json:"zone_id"`
	OperatorID snowflake.ID `json:"operator_id"`
	UnitID     snowflake.ID `json:"unit_id"`
	DateIssued time.Time    `json:"date_issued"`
}

// FranchiseDetail resolves the franchise with its current pointers.
type FranchiseDetail struct {
	Franchise
	CurrentOwnership  *Ownership  `json:"current_ownership"`
	CurrentActiveUnit *ActiveUnit `json:"current_active_unit"`
}

type Service interface {
	Register(ctx context.Context, req RegisterFranchiseRequest) (FranchiseDetail, error)
	GetByID(ctx context.Context, id snowflake.ID) (FranchiseDetail, error)
	List(ctx context.Context) ([]Franchise, error)
	TransferOwnership(ctx context.Context, franchiseID, newOperatorID snowflake.ID, date time.Time, remarks string) (Ownership, error)
	ChangeActiveUnit(ctx context.Context, franchiseID, newUnitID snowflake.ID, date time.Time, remarks string) (ActiveUnit, error)
	OwnershipHistory(ctx context.Context, franchiseID snowflake.ID) ([]Ownership, error)
	UnitHistory(ctx context.Context, franchiseID snowflake.ID) ([]ActiveUnit, error)
	// DeriveStatus computes the lifecycle status from applications and issue
	// age. A renewal in flight always wins over the age check.
	DeriveStatus(ctx context.Context, franchiseID snowflake.ID, now time.Time) (FranchiseStatus, error)
	// CheckConsistency verifies the current pointers resolve to the latest
	// history rows of this franchise. A mismatch is fatal, never repaired.
	CheckConsistency(ctx context.Context, franchiseID snowflake.ID) error
	// ListNonCompliant returns franchises without a renewal application filed
	// in the given calendar year, excluding terminated ones.
	ListNonCompliant(ctx context.Context, year int, now time.Time) ([]Franchise, error)
}

var (
	ErrNotFound           = errors.New("franchise_not_found")
	ErrNoOpTransfer       = errors.New("operator_already_owns_franchise")
	ErrNoOpUnitChange     = errors.New("unit_already_active")
	ErrLedgerInconsistent = errors.New("franchise_ledger_inconsistent")
	ErrMissingOwnership   = errors.New("franchise_missing_ownership")
)
