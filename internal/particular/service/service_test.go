package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/citypermits/tripermit/internal/particular/domain"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newService(t *testing.T) (domain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Particular{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	svc := NewService(Params{DB: db, Log: zap.NewNop(), GenID: node})
	return svc, db, node
}

func seedSystemRow(t *testing.T, db *gorm.DB, node *snowflake.Node) domain.Particular {
	t.Helper()
	code := domain.CodeSurcharge
	row := domain.Particular{
		ID:       node.Generate(),
		Name:     "Surcharge",
		Code:     &code,
		Group:    domain.GroupPenalty,
		IsSystem: true,
	}
	require.NoError(t, db.Create(&row).Error)
	return row
}

func TestParticular_Create(t *testing.T) {
	svc, _, _ := newService(t)

	got, err := svc.Create(context.Background(), domain.CreateParticularRequest{
		Name:   "Franchise Renewal Fee",
		Amount: 100_000,
		Group:  domain.GroupRenewal,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.GroupRenewal, got.Group)
	assert.False(t, got.IsSystem)

	fetched, err := svc.GetByID(context.Background(), got.ID)
	require.NoError(t, err)
	assert.Equal(t, got.ID, fetched.ID)
}

func TestParticular_Create_DefaultsGroup(t *testing.T) {
	svc, _, _ := newService(t)

	got, err := svc.Create(context.Background(), domain.CreateParticularRequest{Name: "Sticker"})
	require.NoError(t, err)
	assert.Equal(t, domain.GroupNone, got.Group)
}

func TestParticular_Create_Invalid(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.Create(context.Background(), domain.CreateParticularRequest{Name: "x", Amount: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = svc.Create(context.Background(), domain.CreateParticularRequest{Name: "x", Group: "bogus"})
	assert.ErrorIs(t, err, domain.ErrInvalidGroup)
}

func TestParticular_Update_SystemRowImmutableFields(t *testing.T) {
	svc, db, node := newService(t)
	row := seedSystemRow(t, db, node)

	amount := int64(999)
	_, err := svc.Update(context.Background(), row.ID, domain.UpdateParticularRequest{Amount: &amount})
	assert.ErrorIs(t, err, domain.ErrImmutableField)

	code := "other"
	_, err = svc.Update(context.Background(), row.ID, domain.UpdateParticularRequest{Code: &code})
	assert.ErrorIs(t, err, domain.ErrImmutableField)

	group := domain.GroupRenewal
	_, err = svc.Update(context.Background(), row.ID, domain.UpdateParticularRequest{Group: &group})
	assert.ErrorIs(t, err, domain.ErrImmutableField)

	// Cosmetic fields stay editable on system rows.
	name := "Late Payment Surcharge"
	got, err := svc.Update(context.Background(), row.ID, domain.UpdateParticularRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, got.Name)
	assert.True(t, got.IsSystem)
}

func TestParticular_Delete_ProtectsSystemRows(t *testing.T) {
	svc, db, node := newService(t)
	row := seedSystemRow(t, db, node)

	err := svc.Delete(context.Background(), row.ID)
	assert.ErrorIs(t, err, domain.ErrProtectedParticular)

	_, err = svc.GetByID(context.Background(), row.ID)
	assert.NoError(t, err)
}

func TestParticular_Delete(t *testing.T) {
	svc, _, _ := newService(t)
	got, err := svc.Create(context.Background(), domain.CreateParticularRequest{Name: "Sticker", Amount: 500})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), got.ID))

	_, err = svc.GetByID(context.Background(), got.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestParticular_ListByGroup(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.Create(context.Background(), domain.CreateParticularRequest{Name: "Renewal", Amount: 100, Group: domain.GroupRenewal})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), domain.CreateParticularRequest{Name: "Sticker", Amount: 50})
	require.NoError(t, err)

	renewal, err := svc.ListByGroup(context.Background(), domain.GroupRenewal)
	require.NoError(t, err)
	assert.Len(t, renewal, 1)

	_, err = svc.ListByGroup(context.Background(), "bogus")
	assert.ErrorIs(t, err, domain.ErrInvalidGroup)
}
