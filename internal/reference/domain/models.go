// Package domain contains the reference entities the franchise ledger points
// at: operators, tricycle units, and zones.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Operator is a franchise owner of record.
type Operator struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	FirstName     string       `gorm:"type:text;not null" json:"first_name"`
	MiddleName    string       `gorm:"type:text" json:"middle_name"`
	LastName      string       `gorm:"type:text;not null" json:"last_name"`
	ContactNumber string       `gorm:"type:text" json:"contact_number"`
	Email         string       `gorm:"type:text" json:"email"`
	TINNumber     string       `gorm:"type:text" json:"tin_number"`
	StreetAddress string       `gorm:"type:text" json:"street_address"`
	Barangay      string       `gorm:"type:text" json:"barangay"`
	City          string       `gorm:"type:text" json:"city"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Operator) TableName() string { return "operators" }

// Unit is a registered tricycle.
type Unit struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	Make          string       `gorm:"type:text" json:"make"`
	PlateNumber   string       `gorm:"type:text;uniqueIndex" json:"plate_number"`
	MotorNumber   string       `gorm:"type:text" json:"motor_number"`
	ChassisNumber string       `gorm:"type:text" json:"chassis_number"`
	YearModel     int          `gorm:"" json:"year_model"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Unit) TableName() string { return "units" }

// Zone is an operating zone.
type Zone struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	Name        string       `gorm:"type:text;not null;uniqueIndex" json:"name"`
	Description string       `gorm:"type:text" json:"description"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Zone) TableName() string { return "zones" }

type Service interface {
	GetOperator(ctx context.Context, id snowflake.ID) (Operator, error)
	ListOperators(ctx context.Context) ([]Operator, error)
	CreateOperator(ctx context.Context, op Operator) (Operator, error)
	GetUnit(ctx context.Context, id snowflake.ID) (Unit, error)
	ListUnits(ctx context.Context) ([]Unit, error)
	CreateUnit(ctx context.Context, unit Unit) (Unit, error)
	GetZone(ctx context.Context, id snowflake.ID) (Zone, error)
	ListZones(ctx context.Context) ([]Zone, error)
	CreateZone(ctx context.Context, zone Zone) (Zone, error)
}

var ErrNotFound = errors.New("reference_not_found")
