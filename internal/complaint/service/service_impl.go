package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/citypermits/tripermit/internal/complaint/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("complaint.service"),
		genID: p.GenID,
	}
}

func (s *Service) File(ctx context.Context, franchiseID snowflake.ID, subject, details string) (domain.Complaint, error) {
	complaint := domain.Complaint{
		ID:          s.genID.Generate(),
		FranchiseID: franchiseID,
		Subject:     subject,
		Details:     details,
		Status:      domain.StatusOpen,
	}
	if err := s.db.WithContext(ctx).Create(&complaint).Error; err != nil {
		return domain.Complaint{}, err
	}
	return complaint, nil
}

func (s *Service) Resolve(ctx context.Context, id snowflake.ID) error {
	result := s.db.WithContext(ctx).
		Model(&domain.Complaint{}).
		Where("id = ?", id).
		Update("status", domain.StatusResolved)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Service) ListByFranchise(ctx context.Context, franchiseID snowflake.ID) ([]domain.Complaint, error) {
	var items []domain.Complaint
	err := s.db.WithContext(ctx).
		Where("franchise_id = ?", franchiseID).
		Order("created_at DESC").
		Find(&items).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return items, nil
}

func (s *Service) CountUnresolved(ctx context.Context, franchiseID snowflake.ID) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&domain.Complaint{}).
		Where("franchise_id = ? AND status != ?", franchiseID, domain.StatusResolved).
		Count(&count).Error
	return count, err
}
