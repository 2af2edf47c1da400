package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/citypermits/tripermit/internal/fiscal"
	"github.com/citypermits/tripermit/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// refDate anchors fiscal year-end validation; any mid-year date works.
var refDate = time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewService(p Params) domain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("settings.service"),
	}
}

func (s *Service) Get(ctx context.Context) (domain.SystemSetting, error) {
	var setting domain.SystemSetting
	err := s.db.WithContext(ctx).Order("id").First(&setting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.SystemSetting{}, domain.ErrSettingsNotSeeded
		}
		return domain.SystemSetting{}, err
	}
	return setting, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateSettingsRequest) (domain.SystemSetting, error) {
	if req.SurchargeRatePercent != nil && *req.SurchargeRatePercent < 0 {
		return domain.SystemSetting{}, fmt.Errorf("%w: surcharge %d", domain.ErrInvalidRate, *req.SurchargeRatePercent)
	}
	if req.InterestRatePercent != nil && *req.InterestRatePercent < 0 {
		return domain.SystemSetting{}, fmt.Errorf("%w: interest %d", domain.ErrInvalidRate, *req.InterestRatePercent)
	}
	if req.FiscalYearEnd != nil {
		// Validate against an arbitrary reference year before persisting.
		if _, err := fiscal.CurrentWindow(refDate, *req.FiscalYearEnd); err != nil {
			return domain.SystemSetting{}, err
		}
	}

	var updated domain.SystemSetting
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var setting domain.SystemSetting
		if err := tx.Order("id").First(&setting).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrSettingsNotSeeded
			}
			return err
		}

		fields := map[string]any{}
		if req.FiscalYearEnd != nil {
			fields["fiscal_year_end"] = *req.FiscalYearEnd
		}
		if req.SurchargeRatePercent != nil {
			fields["surcharge_rate_percent"] = *req.SurchargeRatePercent
		}
		if req.InterestRatePercent != nil {
			fields["interest_rate_percent"] = *req.InterestRatePercent
		}
		if req.UnresolvedComplaintThreshold != nil {
			fields["unresolved_complaint_threshold"] = *req.UnresolvedComplaintThreshold
		}
		if req.Ordinances != nil {
			fields["ordinances"] = *req.Ordinances
		}
		if req.FAQs != nil {
			fields["faqs"] = *req.FAQs
		}
		if len(fields) == 0 {
			updated = setting
			return nil
		}

		if err := tx.Model(&domain.SystemSetting{}).Where("id = ?", setting.ID).Updates(fields).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", setting.ID).First(&updated).Error
	})
	if err != nil {
		return domain.SystemSetting{}, err
	}

	s.log.Info("system settings updated")
	return updated, nil
}
