// Package domain contains the persisted system configuration for permit
// administration.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// SystemSetting is the single row of administrator-managed business settings:
// the fiscal calendar and the penalty rates driving assessments.
type SystemSetting struct {
	ID                           snowflake.ID   `gorm:"primaryKey" json:"id"`
	FiscalYearEnd                string         `gorm:"type:text;not null;default:'12-31'" json:"fiscal_year_end"`
	SurchargeRatePercent         int64          `gorm:"not null;default:25" json:"surcharge_rate_percent"`
	InterestRatePercent          int64          `gorm:"not null;default:2" json:"interest_rate_percent"`
	UnresolvedComplaintThreshold int            `gorm:"not null;default:3" json:"unresolved_complaint_threshold"`
	Ordinances                   datatypes.JSON `gorm:"type:jsonb" json:"ordinances"`
	FAQs                         datatypes.JSON `gorm:"type:jsonb" json:"faqs"`
	CreatedAt                    time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt                    time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (SystemSetting) TableName() string { return "system_settings" }

type UpdateSettingsRequest struct {
	FiscalYearEnd                *string         `json:"fiscal_year_end"`
	SurchargeRatePercent         *int64          `json:"surcharge_rate_percent"`
	InterestRatePercent          *int64          `json:"interest_rate_percent"`
	UnresolvedComplaintThreshold *int            `json:"unresolved_complaint_threshold"`
	Ordinances                   *datatypes.JSON `json:"ordinances"`
	FAQs                         *datatypes.JSON `json:"faqs"`
}

type Service interface {
	Get(ctx context.Context) (SystemSetting, error)
	Update(ctx context.Context, req UpdateSettingsRequest) (SystemSetting, error)
}

var (
	ErrSettingsNotSeeded = errors.New("settings_not_seeded")
	ErrInvalidRate       = errors.New("invalid_rate")
)
