package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/citypermits/tripermit/internal/application/domain"
	assessmentdomain "github.com/citypermits/tripermit/internal/assessment/domain"
	"github.com/citypermits/tripermit/internal/clock"
	complaintdomain "github.com/citypermits/tripermit/internal/complaint/domain"
	"github.com/citypermits/tripermit/internal/fiscal"
	franchisedomain "github.com/citypermits/tripermit/internal/franchise/domain"
	particulardomain "github.com/citypermits/tripermit/internal/particular/domain"
	settingsdomain "github.com/citypermits/tripermit/internal/settings/domain"
	"github.com/citypermits/tripermit/pkg/db"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Clock         clock.Clock
	FranchiseSvc  franchisedomain.Service
	AssessmentSvc assessmentdomain.Service
	ParticularSvc particulardomain.Service
	ComplaintSvc  complaintdomain.Service
	SettingsSvc   settingsdomain.Service
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	clock         clock.Clock
	franchiseSvc  franchisedomain.Service
	assessmentSvc assessmentdomain.Service
	particularSvc particulardomain.Service
	complaintSvc  complaintdomain.Service
	settingsSvc   settingsdomain.Service
}

func NewService(p Params) domain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("application.service"),
		genID:         p.GenID,
		clock:         p.Clock,
		franchiseSvc:  p.FranchiseSvc,
		assessmentSvc: p.AssessmentSvc,
		particularSvc: p.ParticularSvc,
		complaintSvc:  p.ComplaintSvc,
		settingsSvc:   p.SettingsSvc,
	}
}

func (s *Service) Submit(ctx context.Context, req domain.SubmitApplicationRequest) (domain.Application, error) {
	if !domain.ValidType(req.Type) {
		return domain.Application{}, domain.ErrInvalidType
	}
	switch req.Type {
	case domain.TypeRenewal:
		if req.FranchiseID == nil {
			return domain.Application{}, domain.ErrMissingFranchise
		}
	case domain.TypeChangeOfOwner:
		if req.FranchiseID == nil {
			return domain.Application{}, domain.ErrMissingFranchise
		}
		if req.ProposedOperatorID == nil {
			return domain.Application{}, domain.ErrMissingProposedRef
		}
	case domain.TypeChangeOfUnit:
		if req.FranchiseID == nil {
			return domain.Application{}, domain.ErrMissingFranchise
		}
		if req.ProposedUnitID == nil {
			return domain.Application{}, domain.ErrMissingProposedRef
		}
	case domain.TypeNewFranchise:
		if req.ProposedOperatorID == nil || req.ProposedUnitID == nil {
			return domain.Application{}, domain.ErrMissingProposedRef
		}
	}

	now := s.clock.Now()
	cycle := req.ReferenceCycle
	if cycle == "" {
		cycle = now.Format("2006")
	}
	app := domain.Application{
		ID:                 s.genID.Generate(),
		ReferenceNumber:    referenceNumber(cycle),
		FranchiseID:        req.FranchiseID,
		ZoneID:             req.ZoneID,
		Type:               req.Type,
		Status:             domain.StatusPending,
		Remarks:            req.Remarks,
		ProposedOperatorID: req.ProposedOperatorID,
		ProposedUnitID:     req.ProposedUnitID,
		FirstName:          req.FirstName,
		MiddleName:         req.MiddleName,
		LastName:           req.LastName,
		ContactNumber:      req.ContactNumber,
		Email:              req.Email,
		TINNumber:          req.TINNumber,
		StreetAddress:      req.StreetAddress,
		Barangay:           req.Barangay,
		City:               req.City,
		SubmittedAt:        now,
	}
	if err := s.db.WithContext(ctx).Create(&app).Error; err != nil {
		return domain.Application{}, err
	}
	s.log.Info("application submitted",
		zap.String("application_id", app.ID.String()),
		zap.String("reference_number", app.ReferenceNumber),
		zap.String("type", string(app.Type)))
	return app, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (domain.Application, error) {
	var app domain.Application
	err := s.db.WithContext(ctx).First(&app, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Application{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Application{}, err
	}
	return app, nil
}

func (s *Service) List(ctx context.Context, status *domain.ApplicationStatus) ([]domain.Application, error) {
	q := s.db.WithContext(ctx).Model(&domain.Application{}).Order("submitted_at DESC")
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	var apps []domain.Application
	if err := q.Find(&apps).Error; err != nil {
		return nil, err
	}
	return apps, nil
}

func (s *Service) StartReview(ctx context.Context, id snowflake.ID) (domain.Application, error) {
	return s.transition(ctx, id, domain.StatusUnderReview, "")
}

func (s *Service) Reject(ctx context.Context, id snowflake.ID, remarks string) (domain.Application, error) {
	return s.transition(ctx, id, domain.StatusRejected, remarks)
}

func (s *Service) Return(ctx context.Context, id snowflake.ID, remarks string) (domain.Application, error) {
	return s.transition(ctx, id, domain.StatusReturned, remarks)
}

func (s *Service) Resubmit(ctx context.Context, id snowflake.ID) (domain.Application, error) {
	return s.transition(ctx, id, domain.StatusPending, "")
}

func (s *Service) Complete(ctx context.Context, id snowflake.ID) (domain.Application, error) {
	return s.transition(ctx, id, domain.StatusCompleted, "")
}

func (s *Service) Cancel(ctx context.Context, id snowflake.ID) (domain.Application, error) {
	return s.transition(ctx, id, domain.StatusCancelled, "")
}

// Approve runs the side effects for the application's type, then records the
// transition. Side effects run outside the status update so a ledger append or
// assessment is never rolled back by a later status write failure; the reverse
// gap is logged.
func (s *Service) Approve(ctx context.Context, id snowflake.ID) (domain.Application, error) {
	app, err := s.GetByID(ctx, id)
	if err != nil {
		return domain.Application{}, err
	}
	if !domain.CanTransition(app.Status, domain.StatusApproved) {
		return domain.Application{}, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, app.Status, domain.StatusApproved)
	}

	now := s.clock.Now()
	switch app.Type {
	case domain.TypeRenewal:
		if err := s.approveRenewal(ctx, app, now); err != nil {
			return domain.Application{}, err
		}
	case domain.TypeChangeOfOwner:
		if app.FranchiseID == nil {
			return domain.Application{}, domain.ErrMissingFranchise
		}
		if app.ProposedOperatorID == nil {
			return domain.Application{}, domain.ErrMissingProposedRef
		}
		if _, err := s.franchiseSvc.TransferOwnership(ctx, *app.FranchiseID, *app.ProposedOperatorID, now, app.Remarks); err != nil {
			return domain.Application{}, err
		}
		if err := s.createFeeAssessment(ctx, app, particulardomain.GroupChangeOfOwner, now); err != nil {
			return domain.Application{}, err
		}
	case domain.TypeChangeOfUnit:
		if app.FranchiseID == nil {
			return domain.Application{}, domain.ErrMissingFranchise
		}
		if app.ProposedUnitID == nil {
			return domain.Application{}, domain.ErrMissingProposedRef
		}
		if _, err := s.franchiseSvc.ChangeActiveUnit(ctx, *app.FranchiseID, *app.ProposedUnitID, now, app.Remarks); err != nil {
			return domain.Application{}, err
		}
		if err := s.createFeeAssessment(ctx, app, particulardomain.GroupChangeOfUnit, now); err != nil {
			return domain.Application{}, err
		}
	case domain.TypeNewFranchise:
		if app.ProposedOperatorID == nil || app.ProposedUnitID == nil {
			return domain.Application{}, domain.ErrMissingProposedRef
		}
		detail, err := s.franchiseSvc.Register(ctx, franchisedomain.RegisterFranchiseRequest{
			ZoneID:     app.ZoneID,
			OperatorID: *app.ProposedOperatorID,
			UnitID:     *app.ProposedUnitID,
			DateIssued: now,
		})
		if err != nil {
			return domain.Application{}, err
		}
		app.FranchiseID = &detail.ID
		if err := s.db.WithContext(ctx).Model(&domain.Application{}).
			Where("id = ?", app.ID).
			Update("franchise_id", detail.ID).Error; err != nil {
			s.log.Error("franchise registered but application link failed",
				zap.String("application_id", app.ID.String()),
				zap.String("franchise_id", detail.ID.String()),
				zap.Error(err))
			return domain.Application{}, err
		}
	}

	return s.transition(ctx, id, domain.StatusApproved, "")
}

// approveRenewal enforces the complaint gate and raises the renewal fee
// assessment due at the fiscal deadline.
func (s *Service) approveRenewal(ctx context.Context, app domain.Application, now time.Time) error {
	if app.FranchiseID == nil {
		return domain.ErrMissingFranchise
	}
	settings, err := s.settingsSvc.Get(ctx)
	if err != nil {
		return err
	}
	unresolved, err := s.complaintSvc.CountUnresolved(ctx, *app.FranchiseID)
	if err != nil {
		return err
	}
	if unresolved > int64(settings.UnresolvedComplaintThreshold) {
		return fmt.Errorf("%w: %d unresolved", domain.ErrComplianceBlocked, unresolved)
	}
	return s.createFeeAssessment(ctx, app, particulardomain.GroupRenewal, now)
}

// createFeeAssessment bills every particular of the group at quantity 1, due
// at the current fiscal deadline. Groups with no configured fees bill nothing.
func (s *Service) createFeeAssessment(ctx context.Context, app domain.Application, group particulardomain.ParticularGroup, now time.Time) error {
	fees, err := s.particularSvc.ListByGroup(ctx, group)
	if err != nil {
		return err
	}
	if len(fees) == 0 {
		s.log.Warn("no fees configured for group, skipping assessment",
			zap.String("application_id", app.ID.String()),
			zap.String("group", string(group)))
		return nil
	}
	settings, err := s.settingsSvc.Get(ctx)
	if err != nil {
		return err
	}
	window, err := fiscal.CurrentWindow(now, settings.FiscalYearEnd)
	if err != nil {
		return err
	}
	lines := make([]assessmentdomain.LineInput, 0, len(fees))
	for _, fee := range fees {
		lines = append(lines, assessmentdomain.LineInput{ParticularID: fee.ID, Quantity: 1})
	}
	_, err = s.assessmentSvc.Create(ctx, assessmentdomain.CreateAssessmentRequest{
		ApplicationID:  &app.ID,
		AssessmentDate: now,
		AssessmentDue:  window.Deadline,
		Remarks:        fmt.Sprintf("%s fees for %s", group, app.ReferenceNumber),
		Lines:          lines,
	})
	return err
}

func (s *Service) transition(ctx context.Context, id snowflake.ID, to domain.ApplicationStatus, remarks string) (domain.Application, error) {
	var app domain.Application
	now := s.clock.Now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lockErr := db.LockForUpdate(tx).Where("id = ?", id).Take(&app).Error
		if errors.Is(lockErr, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		if lockErr != nil {
			return lockErr
		}
		if !domain.CanTransition(app.Status, to) {
			return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, app.Status, to)
		}
		updates := map[string]any{
			"status":     to,
			"updated_at": now,
		}
		if remarks != "" {
			updates["remarks"] = remarks
		}
		if to == domain.StatusApproved || to == domain.StatusRejected || to == domain.StatusReturned {
			updates["reviewed_at"] = now
		}
		if err := tx.Model(&domain.Application{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}
		app.Status = to
		app.UpdatedAt = now
		if remarks != "" {
			app.Remarks = remarks
		}
		return nil
	})
	if err != nil {
		return domain.Application{}, err
	}
	s.log.Info("application transitioned",
		zap.String("application_id", app.ID.String()),
		zap.String("status", string(app.Status)))
	return app, nil
}

// referenceNumber yields a human-facing tracking code, unique per submission.
// The cycle segment is the submission year for walk-in filings and the fiscal
// window label for auto-filed renewals.
func referenceNumber(cycle string) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return fmt.Sprintf("APP-%s-%s", cycle, suffix)
}
