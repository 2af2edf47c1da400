package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	assessmentdomain "github.com/citypermits/tripermit/internal/assessment/domain"
	"github.com/citypermits/tripermit/internal/clock"
	"github.com/citypermits/tripermit/internal/observability"
	particulardomain "github.com/citypermits/tripermit/internal/particular/domain"
	settingsdomain "github.com/citypermits/tripermit/internal/settings/domain"
	"github.com/citypermits/tripermit/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	SettingsSvc settingsdomain.Service
	Metrics     *observability.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	settingsSvc settingsdomain.Service
	metrics     *observability.Metrics
}

func NewService(p Params) assessmentdomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("assessment.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		settingsSvc: p.SettingsSvc,
		metrics:     p.Metrics,
	}
}

func isPenaltyItem(p particulardomain.Particular) bool {
	return p.Code != nil && (*p.Code == particulardomain.CodeSurcharge || *p.Code == particulardomain.CodeInterest)
}

func (s *Service) Create(ctx context.Context, req assessmentdomain.CreateAssessmentRequest) (assessmentdomain.AssessmentDetail, error) {
	if len(req.Lines) == 0 {
		return assessmentdomain.AssessmentDetail{}, assessmentdomain.ErrNoLines
	}
	// A due date in the past is legal: late filings (auto-renewal after the
	// fiscal deadline) are billed against the deadline they missed.
	if req.AssessmentDue.IsZero() {
		return assessmentdomain.AssessmentDetail{}, assessmentdomain.ErrInvalidDueDate
	}
	for _, line := range req.Lines {
		if line.Quantity < 1 {
			return assessmentdomain.AssessmentDetail{}, fmt.Errorf("%w: %d", assessmentdomain.ErrInvalidQuantity, line.Quantity)
		}
	}

	setting, err := s.settingsSvc.Get(ctx)
	if err != nil {
		return assessmentdomain.AssessmentDetail{}, err
	}

	now := s.clock.Now()
	var id snowflake.ID
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		assessment := assessmentdomain.Assessment{
			ID:             s.genID.Generate(),
			ApplicationID:  req.ApplicationID,
			AssessmentDate: req.AssessmentDate,
			AssessmentDue:  req.AssessmentDue,
			Status:         assessmentdomain.StatusPending,
			Remarks:        req.Remarks,
		}
		id = assessment.ID

		var total int64
		lines := make([]assessmentdomain.AssessmentParticular, 0, len(req.Lines))
		for _, input := range req.Lines {
			var item particulardomain.Particular
			if err := tx.Where("id = ?", input.ParticularID).First(&item).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: %s", assessmentdomain.ErrUnknownItem, input.ParticularID)
				}
				return err
			}
			subtotal := item.Amount * input.Quantity
			total += subtotal
			lines = append(lines, assessmentdomain.AssessmentParticular{
				ID:           s.genID.Generate(),
				AssessmentID: assessment.ID,
				ParticularID: item.ID,
				Quantity:     input.Quantity,
				Subtotal:     subtotal,
			})
		}
		assessment.TotalAmountDue = total

		if err := tx.Create(&assessment).Error; err != nil {
			return err
		}
		if err := tx.Create(&lines).Error; err != nil {
			return err
		}

		// An assessment created after its own due date must already carry
		// penalties instead of waiting for the next sweep.
		return s.recalculateTx(ctx, tx, assessment.ID, now, setting)
	})
	if err != nil {
		return assessmentdomain.AssessmentDetail{}, err
	}

	return s.GetByID(ctx, id)
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (assessmentdomain.AssessmentDetail, error) {
	var assessment assessmentdomain.Assessment
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&assessment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return assessmentdomain.AssessmentDetail{}, assessmentdomain.ErrNotFound
		}
		return assessmentdomain.AssessmentDetail{}, err
	}

	var lines []assessmentdomain.AssessmentParticular
	if err := s.db.WithContext(ctx).
		Where("assessment_id = ?", id).
		Order("id").
		Find(&lines).Error; err != nil {
		return assessmentdomain.AssessmentDetail{}, err
	}

	return assessmentdomain.AssessmentDetail{Assessment: assessment, Lines: lines}, nil
}

func (s *Service) List(ctx context.Context, req assessmentdomain.ListAssessmentRequest) ([]assessmentdomain.Assessment, error) {
	query := s.db.WithContext(ctx).Model(&assessmentdomain.Assessment{})
	if req.Status != nil {
		query = query.Where("status = ?", *req.Status)
	}
	if req.ApplicationID != nil {
		query = query.Where("application_id = ?", *req.ApplicationID)
	}

	var items []assessmentdomain.Assessment
	if err := query.Order("created_at DESC, id DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Service) ListOpenIDs(ctx context.Context, limit int) ([]snowflake.ID, error) {
	query := s.db.WithContext(ctx).
		Model(&assessmentdomain.Assessment{}).
		Where("status IN ?", []assessmentdomain.AssessmentStatus{assessmentdomain.StatusPending, assessmentdomain.StatusOverdue}).
		Order("id")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var ids []snowflake.ID
	if err := query.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Service) RecalculatePenalties(ctx context.Context, id snowflake.ID, now time.Time) (assessmentdomain.AssessmentDetail, error) {
	setting, err := s.settingsSvc.Get(ctx)
	if err != nil {
		return assessmentdomain.AssessmentDetail{}, err
	}

	start := time.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.recalculateTx(ctx, tx, id, now, setting)
	})
	if s.metrics != nil {
		s.metrics.ObserveRecalcDuration(time.Since(start))
	}
	if err != nil {
		return assessmentdomain.AssessmentDetail{}, err
	}

	return s.GetByID(ctx, id)
}

// recalculateTx holds the core algorithm. It locks the assessment row so the
// recalculation serializes with payment posting, discards any stored penalty
// lines, and re-derives them from the base items and now. Re-running with the
// same now leaves the stored state unchanged.
func (s *Service) recalculateTx(ctx context.Context, tx *gorm.DB, id snowflake.ID, now time.Time, setting settingsdomain.SystemSetting) error {
	if setting.SurchargeRatePercent < 0 || setting.InterestRatePercent < 0 {
		return assessmentdomain.ErrInvalidRates
	}

	assessment, err := lockAssessment(ctx, tx, id)
	if err != nil {
		return err
	}
	if assessment == nil {
		return assessmentdomain.ErrNotFound
	}
	if assessment.Status == assessmentdomain.StatusPaid {
		return nil
	}

	var lines []assessmentdomain.AssessmentParticular
	if err := tx.WithContext(ctx).
		Where("assessment_id = ?", id).
		Order("id").
		Find(&lines).Error; err != nil {
		return err
	}

	particularIDs := make([]snowflake.ID, 0, len(lines))
	for _, line := range lines {
		particularIDs = append(particularIDs, line.ParticularID)
	}
	var catalog []particulardomain.Particular
	if len(particularIDs) > 0 {
		if err := tx.WithContext(ctx).
			Where("id IN ?", particularIDs).
			Find(&catalog).Error; err != nil {
			return err
		}
	}
	byID := make(map[snowflake.ID]particulardomain.Particular, len(catalog))
	for _, p := range catalog {
		byID[p.ID] = p
	}

	var baseTotal, renewalBasis int64
	var penaltyRowIDs []snowflake.ID
	for _, line := range lines {
		p := byID[line.ParticularID]
		if isPenaltyItem(p) {
			penaltyRowIDs = append(penaltyRowIDs, line.ID)
			continue
		}
		baseTotal += line.Subtotal
		if p.Group == particulardomain.GroupRenewal {
			renewalBasis += line.Subtotal
		}
	}

	// Penalty lines are always recomputed from scratch, never accumulated.
	if len(penaltyRowIDs) > 0 {
		if err := tx.WithContext(ctx).
			Where("id IN ?", penaltyRowIDs).
			Delete(&assessmentdomain.AssessmentParticular{}).Error; err != nil {
			return err
		}
	}

	overdue := now.After(assessment.AssessmentDue)
	status := assessmentdomain.StatusPending
	if overdue {
		status = assessmentdomain.StatusOverdue
	}
	total := baseTotal

	result := computePenalty(renewalBasis, assessment.AssessmentDue, now, penaltyRates{
		SurchargePercent: setting.SurchargeRatePercent,
		InterestPercent:  setting.InterestRatePercent,
	})
	if result.MonthsDelayed > 0 {
		surchargeID, interestID, err := systemParticularIDs(ctx, tx)
		if err != nil {
			return err
		}
		penaltyLines := []assessmentdomain.AssessmentParticular{
			{
				ID:           s.genID.Generate(),
				AssessmentID: id,
				ParticularID: surchargeID,
				Quantity:     result.YearsDelayed,
				Subtotal:     result.SurchargeAmount,
			},
			{
				ID:           s.genID.Generate(),
				AssessmentID: id,
				ParticularID: interestID,
				Quantity:     result.MonthsDelayed,
				Subtotal:     result.InterestAmount,
			},
		}
		if err := tx.WithContext(ctx).Create(&penaltyLines).Error; err != nil {
			return err
		}
		total += result.SurchargeAmount + result.InterestAmount
	}

	if s.metrics != nil && result.MonthsDelayed > 0 {
		s.metrics.IncPenaltyApplied()
	}

	return tx.WithContext(ctx).
		Model(&assessmentdomain.Assessment{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"total_amount_due": total,
			"status":           status,
			"updated_at":       now.UTC(),
		}).Error
}

func lockAssessment(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*assessmentdomain.Assessment, error) {
	var assessment assessmentdomain.Assessment
	err := db.LockForUpdate(tx.WithContext(ctx)).
		Where("id = ?", id).
		Take(&assessment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &assessment, nil
}

func systemParticularIDs(ctx context.Context, tx *gorm.DB) (surcharge, interest snowflake.ID, err error) {
	var rows []particulardomain.Particular
	if err = tx.WithContext(ctx).
		Where("code IN ?", []string{particulardomain.CodeSurcharge, particulardomain.CodeInterest}).
		Find(&rows).Error; err != nil {
		return 0, 0, err
	}
	for _, row := range rows {
		switch *row.Code {
		case particulardomain.CodeSurcharge:
			surcharge = row.ID
		case particulardomain.CodeInterest:
			interest = row.ID
		}
	}
	if surcharge == 0 || interest == 0 {
		return 0, 0, assessmentdomain.ErrMissingSystemRow
	}
	return surcharge, interest, nil
}
