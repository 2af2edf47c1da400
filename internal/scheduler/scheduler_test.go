package scheduler

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	applicationdomain "github.com/citypermits/tripermit/internal/application/domain"
	applicationservice "github.com/citypermits/tripermit/internal/application/service"
	assessmentdomain "github.com/citypermits/tripermit/internal/assessment/domain"
	assessmentservice "github.com/citypermits/tripermit/internal/assessment/service"
	"github.com/citypermits/tripermit/internal/clock"
	complaintdomain "github.com/citypermits/tripermit/internal/complaint/domain"
	complaintservice "github.com/citypermits/tripermit/internal/complaint/service"
	franchisedomain "github.com/citypermits/tripermit/internal/franchise/domain"
	franchiseservice "github.com/citypermits/tripermit/internal/franchise/service"
	particulardomain "github.com/citypermits/tripermit/internal/particular/domain"
	particularservice "github.com/citypermits/tripermit/internal/particular/service"
	referencedomain "github.com/citypermits/tripermit/internal/reference/domain"
	referenceservice "github.com/citypermits/tripermit/internal/reference/service"
	settingsdomain "github.com/citypermits/tripermit/internal/settings/domain"
	settingsservice "github.com/citypermits/tripermit/internal/settings/service"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type sweepEnv struct {
	db            *gorm.DB
	node          *snowflake.Node
	clock         *clock.FakeClock
	sched         *Scheduler
	franchiseSvc  franchisedomain.Service
	assessmentSvc assessmentdomain.Service
	referenceSvc  referencedomain.Service

	renewalFee particulardomain.Particular
}

func newSweepEnv(t *testing.T, cfg Config) *sweepEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&settingsdomain.SystemSetting{},
		&particulardomain.Particular{},
		&referencedomain.Operator{},
		&franchisedomain.Franchise{},
		&franchisedomain.Ownership{},
		&franchisedomain.ActiveUnit{},
		&applicationdomain.Application{},
		&assessmentdomain.Assessment{},
		&assessmentdomain.AssessmentParticular{},
		&complaintdomain.Complaint{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	// June 1 with a March 27 fiscal year end: the deadline has already
	// passed, so the renewal sweep is live.
	fake := clock.NewFakeClock(time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC))
	logger := zap.NewNop()

	require.NoError(t, db.Create(&settingsdomain.SystemSetting{
		ID:                           node.Generate(),
		FiscalYearEnd:                "03-27",
		SurchargeRatePercent:         25,
		InterestRatePercent:          2,
		UnresolvedComplaintThreshold: 3,
	}).Error)
	surchargeCode := particulardomain.CodeSurcharge
	interestCode := particulardomain.CodeInterest
	require.NoError(t, db.Create(&particulardomain.Particular{
		ID: node.Generate(), Name: "Surcharge", Code: &surchargeCode,
		Group: particulardomain.GroupPenalty, IsSystem: true,
	}).Error)
	require.NoError(t, db.Create(&particulardomain.Particular{
		ID: node.Generate(), Name: "Interest", Code: &interestCode,
		Group: particulardomain.GroupPenalty, IsSystem: true,
	}).Error)
	e := &sweepEnv{db: db, node: node, clock: fake}
	e.renewalFee = particulardomain.Particular{
		ID: node.Generate(), Name: "Franchise Renewal Fee",
		Amount: 100_000, Group: particulardomain.GroupRenewal,
	}
	require.NoError(t, db.Create(&e.renewalFee).Error)

	settingsSvc := settingsservice.NewService(settingsservice.Params{DB: db, Log: logger})
	particularSvc := particularservice.NewService(particularservice.Params{DB: db, Log: logger, GenID: node})
	complaintSvc := complaintservice.NewService(complaintservice.Params{DB: db, Log: logger, GenID: node})
	referenceSvc := referenceservice.NewService(referenceservice.Params{DB: db, Log: logger, GenID: node})
	franchiseSvc := franchiseservice.NewService(franchiseservice.Params{DB: db, Log: logger, GenID: node})
	assessmentSvc := assessmentservice.NewService(assessmentservice.Params{
		DB: db, Log: logger, GenID: node, Clock: fake, SettingsSvc: settingsSvc,
	})
	applicationSvc := applicationservice.NewService(applicationservice.Params{
		DB: db, Log: logger, GenID: node, Clock: fake,
		FranchiseSvc: franchiseSvc, AssessmentSvc: assessmentSvc,
		ParticularSvc: particularSvc, ComplaintSvc: complaintSvc, SettingsSvc: settingsSvc,
	})

	sched, err := New(Params{
		DB:             db,
		Log:            logger,
		Clock:          fake,
		ApplicationSvc: applicationSvc,
		AssessmentSvc:  assessmentSvc,
		FranchiseSvc:   franchiseSvc,
		ParticularSvc:  particularSvc,
		ReferenceSvc:   referenceSvc,
		SettingsSvc:    settingsSvc,
		Config:         cfg,
	})
	require.NoError(t, err)

	e.sched = sched
	e.franchiseSvc = franchiseSvc
	e.assessmentSvc = assessmentSvc
	e.referenceSvc = referenceSvc
	return e
}

// registerFranchise creates an operator record and a franchise owned by it.
func (e *sweepEnv) registerFranchise(t *testing.T) franchisedomain.FranchiseDetail {
	t.Helper()
	operator, err := e.referenceSvc.CreateOperator(context.Background(), referencedomain.Operator{
		FirstName: "Juan",
		LastName:  "Dela Cruz",
		Barangay:  "Poblacion",
	})
	require.NoError(t, err)
	detail, err := e.franchiseSvc.Register(context.Background(), franchisedomain.RegisterFranchiseRequest{
		ZoneID:     e.node.Generate(),
		OperatorID: operator.ID,
		UnitID:     e.node.Generate(),
		DateIssued: time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return detail
}

func TestScheduler_New_RequiresDependencies(t *testing.T) {
	_, err := New(Params{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestScheduler_AutoRenewalSweep_FilesApplicationAndAssessment(t *testing.T) {
	e := newSweepEnv(t, Config{})
	franchise := e.registerFranchise(t)
	ctx := context.Background()

	require.NoError(t, e.sched.RunAutoRenewalSweep(ctx))

	var apps []applicationdomain.Application
	require.NoError(t, e.db.Where("franchise_id = ?", franchise.ID).Find(&apps).Error)
	require.Len(t, apps, 1)
	app := apps[0]
	assert.Equal(t, applicationdomain.TypeRenewal, app.Type)
	assert.Equal(t, applicationdomain.StatusPending, app.Status)
	assert.Equal(t, "auto-filed for fiscal year 2025-2026", app.Remarks)
	// Auto-filed references carry the fiscal window label, not the year.
	assert.True(t, strings.HasPrefix(app.ReferenceNumber, "APP-2025-2026-"), app.ReferenceNumber)
	// Applicant snapshot comes from the current owner of record.
	assert.Equal(t, "Juan", app.FirstName)
	assert.Equal(t, "Dela Cruz", app.LastName)

	// The bill lands overdue with penalties already derived: the due date is
	// the deadline the franchise missed, two-and-a-bit months ago.
	var assessments []assessmentdomain.Assessment
	require.NoError(t, e.db.Where("application_id = ?", app.ID).Find(&assessments).Error)
	require.Len(t, assessments, 1)
	got := assessments[0]
	assert.Equal(t, time.March, got.AssessmentDue.Month())
	assert.Equal(t, 27, got.AssessmentDue.Day())
	assert.Equal(t, assessmentdomain.StatusOverdue, got.Status)
	// 100000 base + 25000 surcharge (1 year) + 6000 interest (3 months)
	assert.Equal(t, int64(131_000), got.TotalAmountDue)
	var lineCount int64
	require.NoError(t, e.db.Model(&assessmentdomain.AssessmentParticular{}).
		Where("assessment_id = ?", got.ID).Count(&lineCount).Error)
	assert.Equal(t, int64(3), lineCount)
}

func TestScheduler_AutoRenewalSweep_BeforeDeadlineNoOp(t *testing.T) {
	e := newSweepEnv(t, Config{})
	e.registerFranchise(t)

	// Deadline is March 27; on February 1 nobody is late yet.
	e.clock.Set(time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, e.sched.RunAutoRenewalSweep(context.Background()))

	var count int64
	require.NoError(t, e.db.Model(&applicationdomain.Application{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestScheduler_AutoRenewalSweep_SkipsAlreadyFiled(t *testing.T) {
	e := newSweepEnv(t, Config{})
	franchise := e.registerFranchise(t)
	ctx := context.Background()

	require.NoError(t, e.sched.RunAutoRenewalSweep(ctx))
	// Align created_at with the fake clock so the compliance check sees
	// the filing in the current year.
	require.NoError(t, e.db.Model(&applicationdomain.Application{}).
		Where("franchise_id = ?", franchise.ID).
		Update("created_at", e.clock.Now()).Error)

	require.NoError(t, e.sched.RunAutoRenewalSweep(ctx))

	var count int64
	require.NoError(t, e.db.Model(&applicationdomain.Application{}).
		Where("franchise_id = ?", franchise.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestScheduler_AutoRenewalSweep_IsolatesFailures(t *testing.T) {
	e := newSweepEnv(t, Config{})
	ctx := context.Background()

	// First franchise points at an operator with no record, second is intact.
	broken := e.registerFranchise(t)
	require.NoError(t, e.db.Exec(
		`DELETE FROM operators WHERE id = (SELECT new_operator_id FROM ownerships WHERE franchise_id = ?)`,
		broken.ID,
	).Error)
	good := e.registerFranchise(t)

	require.NoError(t, e.sched.RunAutoRenewalSweep(ctx))

	var brokenCount, goodCount int64
	require.NoError(t, e.db.Model(&applicationdomain.Application{}).
		Where("franchise_id = ?", broken.ID).Count(&brokenCount).Error)
	require.NoError(t, e.db.Model(&applicationdomain.Application{}).
		Where("franchise_id = ?", good.ID).Count(&goodCount).Error)
	assert.Zero(t, brokenCount)
	assert.Equal(t, int64(1), goodCount)
}

func TestScheduler_AutoRenewalSweep_HonorsBatchSize(t *testing.T) {
	e := newSweepEnv(t, Config{BatchSize: 1})
	e.registerFranchise(t)
	e.registerFranchise(t)

	require.NoError(t, e.sched.RunAutoRenewalSweep(context.Background()))

	var count int64
	require.NoError(t, e.db.Model(&applicationdomain.Application{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestScheduler_PenaltySweep_AppliesPenalties(t *testing.T) {
	e := newSweepEnv(t, Config{})
	ctx := context.Background()

	detail, err := e.assessmentSvc.Create(ctx, assessmentdomain.CreateAssessmentRequest{
		AssessmentDate: e.clock.Now(),
		AssessmentDue:  time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC),
		Lines: []assessmentdomain.LineInput{
			{ParticularID: e.renewalFee.ID, Quantity: 1},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, assessmentdomain.StatusPending, detail.Status)
	assert.Equal(t, int64(100_000), detail.TotalAmountDue)

	// Three and a half months past due: 4 months interest, 1 year surcharge.
	e.clock.Set(time.Date(2025, time.October, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, e.sched.RunPenaltySweep(ctx))

	got, err := e.assessmentSvc.GetByID(ctx, detail.ID)
	require.NoError(t, err)
	assert.Equal(t, assessmentdomain.StatusOverdue, got.Status)
	// 100000 base + 25000 surcharge + 8000 interest
	assert.Equal(t, int64(133_000), got.TotalAmountDue)
	assert.Len(t, got.Lines, 3)
}

func TestScheduler_PenaltySweep_LeavesPaidAlone(t *testing.T) {
	e := newSweepEnv(t, Config{})
	ctx := context.Background()

	detail, err := e.assessmentSvc.Create(ctx, assessmentdomain.CreateAssessmentRequest{
		AssessmentDate: e.clock.Now(),
		AssessmentDue:  time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC),
		Lines: []assessmentdomain.LineInput{
			{ParticularID: e.renewalFee.ID, Quantity: 1},
		},
	})
	require.NoError(t, err)
	require.NoError(t, e.db.Model(&assessmentdomain.Assessment{}).
		Where("id = ?", detail.ID).
		Update("status", assessmentdomain.StatusPaid).Error)

	e.clock.Set(time.Date(2025, time.October, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, e.sched.RunPenaltySweep(ctx))

	got, err := e.assessmentSvc.GetByID(ctx, detail.ID)
	require.NoError(t, err)
	assert.Equal(t, assessmentdomain.StatusPaid, got.Status)
	assert.Equal(t, int64(100_000), got.TotalAmountDue)
}

func TestScheduler_RunOnce_RunsBothSweeps(t *testing.T) {
	e := newSweepEnv(t, Config{})
	e.registerFranchise(t)

	require.NoError(t, e.sched.RunOnce(context.Background()))

	var appCount int64
	require.NoError(t, e.db.Model(&applicationdomain.Application{}).Count(&appCount).Error)
	assert.Equal(t, int64(1), appCount)
}
