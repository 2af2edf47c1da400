// Package scheduler runs the recurring sweeps: the yearly auto-renewal sweep
// that files renewal applications for franchises that have not renewed, and
// the daily penalty sweep that re-derives surcharge and interest on every
// open assessment.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	applicationdomain "github.com/citypermits/tripermit/internal/application/domain"
	assessmentdomain "github.com/citypermits/tripermit/internal/assessment/domain"
	"github.com/citypermits/tripermit/internal/clock"
	"github.com/citypermits/tripermit/internal/fiscal"
	franchisedomain "github.com/citypermits/tripermit/internal/franchise/domain"
	"github.com/citypermits/tripermit/internal/observability"
	particulardomain "github.com/citypermits/tripermit/internal/particular/domain"
	referencedomain "github.com/citypermits/tripermit/internal/reference/domain"
	settingsdomain "github.com/citypermits/tripermit/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("scheduler_invalid_config")

type Params struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	Clock          clock.Clock
	ApplicationSvc applicationdomain.Service
	AssessmentSvc  assessmentdomain.Service
	FranchiseSvc   franchisedomain.Service
	ParticularSvc  particulardomain.Service
	ReferenceSvc   referencedomain.Service
	SettingsSvc    settingsdomain.Service
	Metrics        *observability.Metrics `optional:"true"`
	Config         Config                 `optional:"true"`
}

type Scheduler struct {
	db             *gorm.DB
	log            *zap.Logger
	cfg            Config
	clock          clock.Clock
	applicationSvc applicationdomain.Service
	assessmentSvc  assessmentdomain.Service
	franchiseSvc   franchisedomain.Service
	particularSvc  particulardomain.Service
	referenceSvc   referencedomain.Service
	settingsSvc    settingsdomain.Service
	metrics        *observability.Metrics
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.Clock == nil || p.ApplicationSvc == nil ||
		p.AssessmentSvc == nil || p.FranchiseSvc == nil || p.ParticularSvc == nil ||
		p.ReferenceSvc == nil || p.SettingsSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:             p.DB,
		log:            p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:            p.Config.withDefaults(),
		clock:          p.Clock,
		applicationSvc: p.ApplicationSvc,
		assessmentSvc:  p.AssessmentSvc,
		franchiseSvc:   p.FranchiseSvc,
		particularSvc:  p.ParticularSvc,
		referenceSvc:   p.ReferenceSvc,
		settingsSvc:    p.SettingsSvc,
		metrics:        p.Metrics,
	}, nil
}

func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) error) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	if s.metrics != nil {
		s.metrics.IncJobRun(name)
	}
	err := fn(ctx)
	if s.metrics != nil {
		s.metrics.ObserveJobDuration(name, time.Since(start))
	}
	if err == nil {
		return nil
	}
	if s.metrics != nil {
		s.metrics.IncJobError(name)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.log.Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", s.cfg.JobTimeout),
			zap.Error(err))
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(ctx context.Context) error {
	var errs []error
	if err := s.runJob(ctx, "auto_renewal_sweep", s.RunAutoRenewalSweep); err != nil {
		errs = append(errs, err)
	}
	if err := s.runJob(ctx, "penalty_sweep", s.RunPenaltySweep); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunAutoRenewalSweep files a renewal application for every franchise that
// missed the fiscal deadline. It is a no-op until the deadline passes; after
// that, each synthesized application gets a renewal fee assessment due at the
// deadline it missed, so penalties accrue from day one. Failures are isolated
// per franchise.
func (s *Scheduler) RunAutoRenewalSweep(ctx context.Context) error {
	now := s.clock.Now()
	settings, err := s.settingsSvc.Get(ctx)
	if err != nil {
		return err
	}
	window, err := fiscal.CurrentWindow(now, settings.FiscalYearEnd)
	if err != nil {
		return err
	}
	if !now.After(window.Deadline) {
		s.log.Info("deadline not reached, skipping sweep",
			zap.String("job", "auto_renewal_sweep"),
			zap.Time("deadline", window.Deadline))
		return nil
	}

	franchises, err := s.franchiseSvc.ListNonCompliant(ctx, now.Year(), now)
	if err != nil {
		return err
	}
	log := s.log.With(zap.String("job", "auto_renewal_sweep"), zap.String("window", window.Label))
	log.Info("sweep started", zap.Int("candidates", len(franchises)))

	var filed int
	for _, franchise := range franchises {
		if filed >= s.cfg.BatchSize {
			log.Info("batch size reached, remaining franchises deferred to next run")
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.fileRenewal(ctx, franchise, window); err != nil {
			if s.metrics != nil {
				s.metrics.IncJobItemError("auto_renewal_sweep")
			}
			log.Error("renewal filing failed",
				zap.String("franchise_id", franchise.ID.String()),
				zap.Error(err))
			continue
		}
		filed++
	}
	log.Info("sweep finished", zap.Int("filed", filed))
	return nil
}

// fileRenewal submits the renewal application with the current owner's
// snapshot and raises the renewal fee assessment against it.
func (s *Scheduler) fileRenewal(ctx context.Context, franchise franchisedomain.Franchise, window fiscal.Window) error {
	if franchise.OwnershipID == nil {
		return franchisedomain.ErrMissingOwnership
	}
	detail, err := s.franchiseSvc.GetByID(ctx, franchise.ID)
	if err != nil {
		return err
	}
	if detail.CurrentOwnership == nil {
		return franchisedomain.ErrMissingOwnership
	}
	operator, err := s.referenceSvc.GetOperator(ctx, detail.CurrentOwnership.NewOperatorID)
	if err != nil {
		return err
	}

	franchiseID := franchise.ID
	app, err := s.applicationSvc.Submit(ctx, applicationdomain.SubmitApplicationRequest{
		Type:           applicationdomain.TypeRenewal,
		FranchiseID:    &franchiseID,
		ZoneID:         franchise.ZoneID,
		Remarks:        fmt.Sprintf("auto-filed for fiscal year %s", window.Label),
		ReferenceCycle: window.Label,
		FirstName:      operator.FirstName,
		MiddleName:     operator.MiddleName,
		LastName:       operator.LastName,
		ContactNumber:  operator.ContactNumber,
		Email:          operator.Email,
		TINNumber:      operator.TINNumber,
		StreetAddress:  operator.StreetAddress,
		Barangay:       operator.Barangay,
		City:           operator.City,
	})
	if err != nil {
		return err
	}
	return s.createRenewalAssessment(ctx, app, window)
}

func (s *Scheduler) createRenewalAssessment(ctx context.Context, app applicationdomain.Application, window fiscal.Window) error {
	fees, err := s.particularSvc.ListByGroup(ctx, particulardomain.GroupRenewal)
	if err != nil {
		return err
	}
	lines := make([]assessmentdomain.LineInput, 0, len(fees))
	for _, fee := range fees {
		lines = append(lines, assessmentdomain.LineInput{ParticularID: fee.ID, Quantity: 1})
	}
	if len(lines) == 0 {
		s.log.Warn("no renewal fees configured, skipping assessment",
			zap.String("application_id", app.ID.String()))
		return nil
	}
	_, err = s.assessmentSvc.Create(ctx, assessmentdomain.CreateAssessmentRequest{
		ApplicationID:  &app.ID,
		AssessmentDate: s.clock.Now(),
		AssessmentDue:  window.Deadline,
		Remarks:        fmt.Sprintf("renewal fees for %s", app.ReferenceNumber),
		Lines:          lines,
	})
	return err
}

// RunPenaltySweep re-derives penalties on every open assessment so lateness
// is reflected without waiting for a read. Failures are isolated per
// assessment.
func (s *Scheduler) RunPenaltySweep(ctx context.Context) error {
	now := s.clock.Now()
	ids, err := s.assessmentSvc.ListOpenIDs(ctx, s.cfg.BatchSize)
	if err != nil {
		return err
	}
	log := s.log.With(zap.String("job", "penalty_sweep"))
	log.Info("sweep started", zap.Int("open_assessments", len(ids)))

	var updated int
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := s.assessmentSvc.RecalculatePenalties(ctx, id, now); err != nil {
			if s.metrics != nil {
				s.metrics.IncJobItemError("penalty_sweep")
			}
			log.Error("penalty recalculation failed",
				zap.String("assessment_id", id.String()),
				zap.Error(err))
			continue
		}
		updated++
	}
	log.Info("sweep finished", zap.Int("updated", updated))
	return nil
}
