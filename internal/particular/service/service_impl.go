package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/citypermits/tripermit/internal/particular/domain"
	"github.com/citypermits/tripermit/pkg/db"
	"github.com/citypermits/tripermit/pkg/repository"
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
	repo  repository.Repository[domain.Particular]
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("particular.service"),
		genID: p.GenID,
		repo:  repository.ProvideStore[domain.Particular](p.DB),
	}
}

func (s *Service) List(ctx context.Context) ([]domain.Particular, error) {
	items, err := s.repo.Find(ctx, &domain.Particular{})
	if err != nil {
		return nil, err
	}
	return deref(items), nil
}

func (s *Service) ListByGroup(ctx context.Context, group domain.ParticularGroup) ([]domain.Particular, error) {
	if !domain.ValidGroup(group) {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidGroup, group)
	}
	items, err := s.repo.Find(ctx, &domain.Particular{Group: group})
	if err != nil {
		return nil, err
	}
	return deref(items), nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (domain.Particular, error) {
	item, err := s.repo.FindOne(ctx, &domain.Particular{ID: id})
	if err != nil {
		return domain.Particular{}, err
	}
	if item == nil {
		return domain.Particular{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) GetByCode(ctx context.Context, code string) (domain.Particular, error) {
	item, err := s.repo.FindOne(ctx, &domain.Particular{Code: &code})
	if err != nil {
		return domain.Particular{}, err
	}
	if item == nil {
		return domain.Particular{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) Create(ctx context.Context, req domain.CreateParticularRequest) (domain.Particular, error) {
	if req.Amount < 0 {
		return domain.Particular{}, domain.ErrInvalidAmount
	}
	group := req.Group
	if group == "" {
		group = domain.GroupNone
	}
	if !domain.ValidGroup(group) {
		return domain.Particular{}, fmt.Errorf("%w: %q", domain.ErrInvalidGroup, group)
	}

	item := domain.Particular{
		ID:          s.genID.Generate(),
		Name:        req.Name,
		Code:        req.Code,
		Description: req.Description,
		Amount:      req.Amount,
		Group:       group,
	}
	if err := s.repo.Create(ctx, &item); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Particular{}, domain.ErrDuplicateCode
		}
		return domain.Particular{}, err
	}
	return item, nil
}

func (s *Service) Update(ctx context.Context, id snowflake.ID, req domain.UpdateParticularRequest) (domain.Particular, error) {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return domain.Particular{}, err
	}

	if current.IsSystem {
		if req.Amount != nil && *req.Amount != current.Amount {
			return domain.Particular{}, fmt.Errorf("%w: amount", domain.ErrImmutableField)
		}
		if req.Code != nil && (current.Code == nil || *req.Code != *current.Code) {
			return domain.Particular{}, fmt.Errorf("%w: code", domain.ErrImmutableField)
		}
		if req.Group != nil && *req.Group != current.Group {
			return domain.Particular{}, fmt.Errorf("%w: group", domain.ErrImmutableField)
		}
	}

	fields := map[string]any{}
	if req.Name != nil {
		fields["name"] = *req.Name
	}
	if req.Code != nil {
		fields["code"] = *req.Code
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.Amount != nil {
		if *req.Amount < 0 {
			return domain.Particular{}, domain.ErrInvalidAmount
		}
		fields["amount"] = *req.Amount
	}
	if req.Group != nil {
		if !domain.ValidGroup(*req.Group) {
			return domain.Particular{}, fmt.Errorf("%w: %q", domain.ErrInvalidGroup, *req.Group)
		}
		fields["group"] = *req.Group
	}
	if len(fields) == 0 {
		return current, nil
	}

	if err := s.repo.Update(ctx, id.String(), fields); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Particular{}, domain.ErrDuplicateCode
		}
		return domain.Particular{}, err
	}
	return s.GetByID(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id snowflake.ID) error {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if current.IsSystem {
		return domain.ErrProtectedParticular
	}
	return s.repo.Delete(ctx, id.String())
}

func deref(items []*domain.Particular) []domain.Particular {
	out := make([]domain.Particular, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, *item)
	}
	return out
}
