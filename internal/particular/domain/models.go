// Package domain contains the fee catalog used to assemble assessments.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// ParticularGroup buckets fees by the application type they bill for.
type ParticularGroup string

const (
	GroupRenewal       ParticularGroup = "renewal"
	GroupChangeOfUnit  ParticularGroup = "change_of_unit"
	GroupChangeOfOwner ParticularGroup = "change_of_owner"
	GroupPenalty       ParticularGroup = "penalty"
	GroupNone          ParticularGroup = "none"
)

// ValidGroup reports whether g is a known fee group.
func ValidGroup(g ParticularGroup) bool {
	switch g {
	case GroupRenewal, GroupChangeOfUnit, GroupChangeOfOwner, GroupPenalty, GroupNone:
		return true
	}
	return false
}

// System particular codes. These two rows are seeded once and back the
// penalty recalculation; their code and amount are never user-editable.
const (
	CodeSurcharge = "surcharge"
	CodeInterest  = "interest"
)

// Particular is a fee definition. Amount is in centavos.
type Particular struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"type:text;not null" json:"name"`
	Code        *string         `gorm:"type:text;uniqueIndex" json:"code"`
	Description string          `gorm:"type:text" json:"description"`
	Amount      int64           `gorm:"not null;default:0" json:"amount"`
	Group       ParticularGroup `gorm:"type:text;not null;default:'none'" json:"group"`
	IsSystem    bool            `gorm:"not null;default:false" json:"is_system"`
	CreatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Particular) TableName() string { return "particulars" }

type CreateParticularRequest struct {
	Name        string          `json:"name"`
	Code        *string         `json:"code"`
	Description string          `json:"description"`
	Amount      int64           `json:"amount"`
	Group       ParticularGroup `json:"group"`
}

type UpdateParticularRequest struct {
	Name        *string          `json:"name"`
	Code        *string          `json:"code"`
	Description *string          `json:"description"`
	Amount      *int64           `json:"amount"`
	Group       *ParticularGroup `json:"group"`
}

type Service interface {
	List(ctx context.Context) ([]Particular, error)
	ListByGroup(ctx context.Context, group ParticularGroup) ([]Particular, error)
	GetByID(ctx context.Context, id snowflake.ID) (Particular, error)
	GetByCode(ctx context.Context, code string) (Particular, error)
	Create(ctx context.Context, req CreateParticularRequest) (Particular, error)
	Update(ctx context.Context, id snowflake.ID, req UpdateParticularRequest) (Particular, error)
	Delete(ctx context.Context, id snowflake.ID) error
}

var (
	ErrNotFound            = errors.New("particular_not_found")
	ErrInvalidGroup        = errors.New("invalid_particular_group")
	ErrInvalidAmount       = errors.New("invalid_particular_amount")
	ErrImmutableField      = errors.New("immutable_particular_field")
	ErrProtectedParticular = errors.New("protected_particular")
	ErrDuplicateCode       = errors.New("duplicate_particular_code")
)
