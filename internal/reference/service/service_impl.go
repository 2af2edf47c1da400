package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/citypermits/tripermit/internal/reference/domain"
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
	log       *zap.Logger
	genID     *snowflake.Node
	operators repository.Repository[domain.Operator]
	units     repository.Repository[domain.Unit]
	zones     repository.Repository[domain.Zone]
}

func NewService(p Params) domain.Service {
	return &Service{
		log:       p.Log.Named("reference.service"),
		genID:     p.GenID,
		operators: repository.ProvideStore[domain.Operator](p.DB),
		units:     repository.ProvideStore[domain.Unit](p.DB),
		zones:     repository.ProvideStore[domain.Zone](p.DB),
	}
}

func (s *Service) GetOperator(ctx context.Context, id snowflake.ID) (domain.Operator, error) {
	item, err := s.operators.FindOne(ctx, &domain.Operator{ID: id})
	if err != nil {
		return domain.Operator{}, err
	}
	if item == nil {
		return domain.Operator{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) ListOperators(ctx context.Context) ([]domain.Operator, error) {
	items, err := s.operators.Find(ctx, &domain.Operator{})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Operator, 0, len(items))
	for _, item := range items {
		out = append(out, *item)
	}
	return out, nil
}

func (s *Service) CreateOperator(ctx context.Context, op domain.Operator) (domain.Operator, error) {
	op.ID = s.genID.Generate()
	if err := s.operators.Create(ctx, &op); err != nil {
		return domain.Operator{}, err
	}
	return op, nil
}

func (s *Service) GetUnit(ctx context.Context, id snowflake.ID) (domain.Unit, error) {
	item, err := s.units.FindOne(ctx, &domain.Unit{ID: id})
	if err != nil {
		return domain.Unit{}, err
	}
	if item == nil {
		return domain.Unit{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) ListUnits(ctx context.Context) ([]domain.Unit, error) {
	items, err := s.units.Find(ctx, &domain.Unit{})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Unit, 0, len(items))
	for _, item := range items {
		out = append(out, *item)
	}
	return out, nil
}

func (s *Service) CreateUnit(ctx context.Context, unit domain.Unit) (domain.Unit, error) {
	unit.ID = s.genID.Generate()
	if err := s.units.Create(ctx, &unit); err != nil {
		return domain.Unit{}, err
	}
	return unit, nil
}

func (s *Service) GetZone(ctx context.Context, id snowflake.ID) (domain.Zone, error) {
	item, err := s.zones.FindOne(ctx, &domain.Zone{ID: id})
	if err != nil {
		return domain.Zone{}, err
	}
	if item == nil {
		return domain.Zone{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) ListZones(ctx context.Context) ([]domain.Zone, error) {
	items, err := s.zones.Find(ctx, &domain.Zone{})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Zone, 0, len(items))
	for _, item := range items {
		out = append(out, *item)
	}
	return out, nil
}

func (s *Service) CreateZone(ctx context.Context, zone domain.Zone) (domain.Zone, error) {
	zone.ID = s.genID.Generate()
	if err := s.zones.Create(ctx, &zone); err != nil {
		return domain.Zone{}, err
	}
	return zone, nil
}
