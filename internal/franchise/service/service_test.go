package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	applicationdomain "github.com/citypermits/tripermit/internal/application/domain"
	"github.com/citypermits/tripermit/internal/franchise/domain"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&domain.Franchise{},
		&domain.Ownership{},
		&domain.ActiveUnit{},
		&applicationdomain.Application{},
	))
	return db
}

func newService(t *testing.T) (domain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()
	db := openTestDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	svc := NewService(Params{DB: db, Log: zap.NewNop(), GenID: node})
	return svc, db, node
}

func register(t *testing.T, svc domain.Service, node *snowflake.Node, issued time.Time) domain.FranchiseDetail {
	t.Helper()
	detail, err := svc.Register(context.Background(), domain.RegisterFranchiseRequest{
		ZoneID:     node.Generate(),
		OperatorID: node.Generate(),
		UnitID:     node.Generate(),
		DateIssued: issued,
	})
	require.NoError(t, err)
	return detail
}

func TestFranchise_Register_WiresPointers(t *testing.T) {
	svc, _, node := newService(t)
	issued := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)

	detail := register(t, svc, node, issued)

	require.NotNil(t, detail.OwnershipID)
	require.NotNil(t, detail.ActiveUnitID)
	require.NotNil(t, detail.CurrentOwnership)
	require.NotNil(t, detail.CurrentActiveUnit)
	assert.Equal(t, *detail.OwnershipID, detail.CurrentOwnership.ID)
	assert.Equal(t, *detail.ActiveUnitID, detail.CurrentActiveUnit.ID)
	assert.Nil(t, detail.CurrentOwnership.PreviousOperatorID)
	assert.Nil(t, detail.CurrentActiveUnit.PreviousUnitID)
	assert.NotEmpty(t, detail.QRCode)

	require.NoError(t, svc.CheckConsistency(context.Background(), detail.ID))
}

func TestFranchise_TransferOwnership_AppendsAndMovesPointer(t *testing.T) {
	svc, _, node := newService(t)
	issued := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	detail := register(t, svc, node, issued)
	firstOperator := detail.CurrentOwnership.NewOperatorID

	newOperator := node.Generate()
	created, err := svc.TransferOwnership(context.Background(), detail.ID, newOperator, issued.AddDate(1, 0, 0), "sold")
	require.NoError(t, err)

	assert.Equal(t, newOperator, created.NewOperatorID)
	require.NotNil(t, created.PreviousOperatorID)
	assert.Equal(t, firstOperator, *created.PreviousOperatorID)

	after, err := svc.GetByID(context.Background(), detail.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, *after.OwnershipID)

	history, err := svc.OwnershipHistory(context.Background(), detail.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, created.ID, history[0].ID)

	require.NoError(t, svc.CheckConsistency(context.Background(), detail.ID))
}

func TestFranchise_TransferOwnership_NoOp(t *testing.T) {
	svc, _, node := newService(t)
	detail := register(t, svc, node, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC))

	_, err := svc.TransferOwnership(context.Background(), detail.ID,
		detail.CurrentOwnership.NewOperatorID, time.Now().UTC(), "same owner")
	assert.ErrorIs(t, err, domain.ErrNoOpTransfer)

	history, err := svc.OwnershipHistory(context.Background(), detail.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1, "rejected transfer must not append history")
}

func TestFranchise_ChangeActiveUnit_NoOp(t *testing.T) {
	svc, _, node := newService(t)
	detail := register(t, svc, node, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC))

	_, err := svc.ChangeActiveUnit(context.Background(), detail.ID,
		detail.CurrentActiveUnit.NewUnitID, time.Now().UTC(), "same unit")
	assert.ErrorIs(t, err, domain.ErrNoOpUnitChange)
}

func TestFranchise_ChangeActiveUnit_Appends(t *testing.T) {
	svc, _, node := newService(t)
	issued := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	detail := register(t, svc, node, issued)
	firstUnit := detail.CurrentActiveUnit.NewUnitID

	newUnit := node.Generate()
	created, err := svc.ChangeActiveUnit(context.Background(), detail.ID, newUnit, issued.AddDate(0, 6, 0), "replacement")
	require.NoError(t, err)
	require.NotNil(t, created.PreviousUnitID)
	assert.Equal(t, firstUnit, *created.PreviousUnitID)

	history, err := svc.UnitHistory(context.Background(), detail.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.NoError(t, svc.CheckConsistency(context.Background(), detail.ID))
}

func TestFranchise_CheckConsistency_DetectsStalePointer(t *testing.T) {
	svc, db, node := newService(t)
	issued := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	detail := register(t, svc, node, issued)
	_, err := svc.TransferOwnership(context.Background(), detail.ID, node.Generate(), issued.AddDate(1, 0, 0), "sold")
	require.NoError(t, err)

	// Force the pointer back to the older history row.
	require.NoError(t, db.Model(&domain.Franchise{}).
		Where("id = ?", detail.ID).
		Update("ownership_id", *detail.OwnershipID).Error)

	err = svc.CheckConsistency(context.Background(), detail.ID)
	assert.ErrorIs(t, err, domain.ErrLedgerInconsistent)
}

func TestFranchise_DeriveStatus_Precedence(t *testing.T) {
	svc, db, node := newService(t)
	issued := time.Date(2022, time.January, 1, 0, 0, 0, 0, time.UTC)
	detail := register(t, svc, node, issued)

	// Older than three years with no renewal in flight: terminated.
	now := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	status, err := svc.DeriveStatus(context.Background(), detail.ID, now)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusTerminated, status)

	// A pending renewal wins over the age check.
	franchiseID := detail.ID
	require.NoError(t, db.Create(&applicationdomain.Application{
		ID:              node.Generate(),
		ReferenceNumber: "APP-TEST-0001",
		FranchiseID:     &franchiseID,
		Type:            applicationdomain.TypeRenewal,
		Status:          applicationdomain.StatusPending,
		SubmittedAt:     now,
	}).Error)
	status, err = svc.DeriveStatus(context.Background(), detail.ID, now)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPendingRenewal, status)

	// A terminal renewal no longer counts.
	require.NoError(t, db.Model(&applicationdomain.Application{}).
		Where("franchise_id = ?", detail.ID).
		Update("status", applicationdomain.StatusCompleted).Error)
	status, err = svc.DeriveStatus(context.Background(), detail.ID, now)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusTerminated, status)
}

func TestFranchise_DeriveStatus_RenewedWithinWindow(t *testing.T) {
	svc, _, node := newService(t)
	issued := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	detail := register(t, svc, node, issued)

	status, err := svc.DeriveStatus(context.Background(), detail.ID, issued.AddDate(2, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRenewed, status)

	// Exactly three years after issue is terminated, not renewed.
	status, err = svc.DeriveStatus(context.Background(), detail.ID, issued.AddDate(3, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusTerminated, status)
}

func TestFranchise_ListNonCompliant(t *testing.T) {
	svc, db, node := newService(t)
	issued := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	compliant := register(t, svc, node, issued)
	lapsed := register(t, svc, node, issued)
	terminated := register(t, svc, node, time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC))

	now := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	compliantID := compliant.ID
	require.NoError(t, db.Create(&applicationdomain.Application{
		ID:              node.Generate(),
		ReferenceNumber: "APP-TEST-0002",
		FranchiseID:     &compliantID,
		Type:            applicationdomain.TypeRenewal,
		Status:          applicationdomain.StatusCompleted,
		SubmittedAt:     now.AddDate(0, -1, 0),
		CreatedAt:       now.AddDate(0, -1, 0),
	}).Error)

	got, err := svc.ListNonCompliant(context.Background(), now.Year(), now)
	require.NoError(t, err)

	ids := make([]snowflake.ID, 0, len(got))
	for _, franchise := range got {
		ids = append(ids, franchise.ID)
	}
	assert.Contains(t, ids, lapsed.ID, "franchise without a renewal this year is non-compliant")
	assert.NotContains(t, ids, compliant.ID, "franchise with a renewal this year is compliant")
	assert.NotContains(t, ids, terminated.ID, "terminated franchises are not swept")
}
