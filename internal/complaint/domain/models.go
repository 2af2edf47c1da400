// Package domain contains complaints filed against a franchise. Open
// complaints gate renewal approval.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type ComplaintStatus string

const (
	StatusOpen     ComplaintStatus = "open"
	StatusResolved ComplaintStatus = "resolved"
)

type Complaint struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	FranchiseID snowflake.ID    `gorm:"not null;index" json:"franchise_id"`
	Subject     string          `gorm:"type:text;not null" json:"subject"`
	Details     string          `gorm:"type:text" json:"details"`
	Status      ComplaintStatus `gorm:"type:text;not null;default:'open'" json:"status"`
	CreatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Complaint) TableName() string { return "complaints" }

type Service interface {
	File(ctx context.Context, franchiseID snowflake.ID, subject, details string) (Complaint, error)
	Resolve(ctx context.Context, id snowflake.ID) error
	ListByFranchise(ctx context.Context, franchiseID snowflake.ID) ([]Complaint, error)
	CountUnresolved(ctx context.Context, franchiseID snowflake.ID) (int64, error)
}

var ErrNotFound = errors.New("complaint_not_found")
