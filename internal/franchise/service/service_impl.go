package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	applicationdomain "github.com/citypermits/tripermit/internal/application/domain"
	"github.com/citypermits/tripermit/internal/franchise/domain"
	"github.com/citypermits/tripermit/pkg/db"
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
		log:   p.Log.Named("franchise.service"),
		genID: p.GenID,
	}
}

func (s *Service) Register(ctx context.Context, req domain.RegisterFranchiseRequest) (domain.FranchiseDetail, error) {
	var id snowflake.ID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		franchise := domain.Franchise{
			ID:         s.genID.Generate(),
			ZoneID:     req.ZoneID,
			DateIssued: req.DateIssued,
		}
		id = franchise.ID
		if err := tx.Create(&franchise).Error; err != nil {
			return err
		}

		ownership := domain.Ownership{
			ID:              s.genID.Generate(),
			FranchiseID:     franchise.ID,
			NewOperatorID:   req.OperatorID,
			DateTransferred: req.DateIssued,
			Remarks:         "Initial ownership",
		}
		if err := tx.Create(&ownership).Error; err != nil {
			return err
		}

		activeUnit := domain.ActiveUnit{
			ID:          s.genID.Generate(),
			FranchiseID: franchise.ID,
			NewUnitID:   req.UnitID,
			DateChanged: req.DateIssued,
			Remarks:     "Initial unit",
		}
		if err := tx.Create(&activeUnit).Error; err != nil {
			return err
		}

		return tx.Model(&domain.Franchise{}).
			Where("id = ?", franchise.ID).
			Updates(map[string]any{
				"ownership_id":   ownership.ID,
				"active_unit_id": activeUnit.ID,
				"qr_code":        fmt.Sprintf("qr-%s", franchise.ID),
			}).Error
	})
	if err != nil {
		return domain.FranchiseDetail{}, err
	}

	return s.GetByID(ctx, id)
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (domain.FranchiseDetail, error) {
	var franchise domain.Franchise
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&franchise).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.FranchiseDetail{}, domain.ErrNotFound
		}
		return domain.FranchiseDetail{}, err
	}

	detail := domain.FranchiseDetail{Franchise: franchise}
	if franchise.OwnershipID != nil {
		var ownership domain.Ownership
		if err := s.db.WithContext(ctx).Where("id = ?", *franchise.OwnershipID).First(&ownership).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.FranchiseDetail{}, fmt.Errorf("%w: ownership pointer %s dangling", domain.ErrLedgerInconsistent, *franchise.OwnershipID)
			}
			return domain.FranchiseDetail{}, err
		}
		detail.CurrentOwnership = &ownership
	}
	if franchise.ActiveUnitID != nil {
		var activeUnit domain.ActiveUnit
		if err := s.db.WithContext(ctx).Where("id = ?", *franchise.ActiveUnitID).First(&activeUnit).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.FranchiseDetail{}, fmt.Errorf("%w: active unit pointer %s dangling", domain.ErrLedgerInconsistent, *franchise.ActiveUnitID)
			}
			return domain.FranchiseDetail{}, err
		}
		detail.CurrentActiveUnit = &activeUnit
	}
	return detail, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Franchise, error) {
	var items []domain.Franchise
	err := s.db.WithContext(ctx).Order("id").Find(&items).Error
	return items, err
}

func (s *Service) TransferOwnership(ctx context.Context, franchiseID, newOperatorID snowflake.ID, date time.Time, remarks string) (domain.Ownership, error) {
	var created domain.Ownership
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		franchise, err := lockFranchise(ctx, tx, franchiseID)
		if err != nil {
			return err
		}
		if franchise == nil {
			return domain.ErrNotFound
		}

		var previous *snowflake.ID
		if franchise.OwnershipID != nil {
			var current domain.Ownership
			if err := tx.Where("id = ?", *franchise.OwnershipID).First(&current).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: ownership pointer %s dangling", domain.ErrLedgerInconsistent, *franchise.OwnershipID)
				}
				return err
			}
			if current.NewOperatorID == newOperatorID {
				return domain.ErrNoOpTransfer
			}
			operatorID := current.NewOperatorID
			previous = &operatorID
		}

		created = domain.Ownership{
			ID:                 s.genID.Generate(),
			FranchiseID:        franchiseID,
			NewOperatorID:      newOperatorID,
			PreviousOperatorID: previous,
			DateTransferred:    date,
			Remarks:            remarks,
		}
		if err := tx.Create(&created).Error; err != nil {
			return err
		}

		// The pointer moves to the history-row id, in the same transaction
		// that appended the row.
		return tx.Model(&domain.Franchise{}).
			Where("id = ?", franchiseID).
			Update("ownership_id", created.ID).Error
	})
	if err != nil {
		return domain.Ownership{}, err
	}

	s.log.Info("ownership transferred",
		zap.String("franchise_id", franchiseID.String()),
		zap.String("new_operator_id", newOperatorID.String()),
	)
	return created, nil
}

func (s *Service) ChangeActiveUnit(ctx context.Context, franchiseID, newUnitID snowflake.ID, date time.Time, remarks string) (domain.ActiveUnit, error) {
	var created domain.ActiveUnit
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		franchise, err := lockFranchise(ctx, tx, franchiseID)
		if err != nil {
			return err
		}
		if franchise == nil {
			return domain.ErrNotFound
		}

		var previous *snowflake.ID
		if franchise.ActiveUnitID != nil {
			var current domain.ActiveUnit
			if err := tx.Where("id = ?", *franchise.ActiveUnitID).First(&current).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: active unit pointer %s dangling", domain.ErrLedgerInconsistent, *franchise.ActiveUnitID)
				}
				return err
			}
			if current.NewUnitID == newUnitID {
				return domain.ErrNoOpUnitChange
			}
			unitID := current.NewUnitID
			previous = &unitID
		}

		created = domain.ActiveUnit{
			ID:             s.genID.Generate(),
			FranchiseID:    franchiseID,
			NewUnitID:      newUnitID,
			PreviousUnitID: previous,
			DateChanged:    date,
			Remarks:        remarks,
		}
		if err := tx.Create(&created).Error; err != nil {
			return err
		}

		return tx.Model(&domain.Franchise{}).
			Where("id = ?", franchiseID).
			Update("active_unit_id", created.ID).Error
	})
	if err != nil {
		return domain.ActiveUnit{}, err
	}

	s.log.Info("active unit changed",
		zap.String("franchise_id", franchiseID.String()),
		zap.String("new_unit_id", newUnitID.String()),
	)
	return created, nil
}

func (s *Service) OwnershipHistory(ctx context.Context, franchiseID snowflake.ID) ([]domain.Ownership, error) {
	var items []domain.Ownership
	err := s.db.WithContext(ctx).
		Where("franchise_id = ?", franchiseID).
		Order("date_transferred DESC, id DESC").
		Find(&items).Error
	return items, err
}

func (s *Service) UnitHistory(ctx context.Context, franchiseID snowflake.ID) ([]domain.ActiveUnit, error) {
	var items []domain.ActiveUnit
	err := s.db.WithContext(ctx).
		Where("franchise_id = ?", franchiseID).
		Order("date_changed DESC, id DESC").
		Find(&items).Error
	return items, err
}

func (s *Service) DeriveStatus(ctx context.Context, franchiseID snowflake.ID, now time.Time) (domain.FranchiseStatus, error) {
	var franchise domain.Franchise
	if err := s.db.WithContext(ctx).Where("id = ?", franchiseID).First(&franchise).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", domain.ErrNotFound
		}
		return "", err
	}

	// A renewal still in flight wins over the age check: the franchise is
	// not abandoned while its renewal is being processed.
	var pending int64
	if err := s.db.WithContext(ctx).
		Model(&applicationdomain.Application{}).
		Where("franchise_id = ? AND type = ? AND status NOT IN ?",
			franchiseID,
			applicationdomain.TypeRenewal,
			[]applicationdomain.ApplicationStatus{
				applicationdomain.StatusCompleted,
				applicationdomain.StatusRejected,
				applicationdomain.StatusCancelled,
			},
		).
		Count(&pending).Error; err != nil {
		return "", err
	}
	if pending > 0 {
		return domain.StatusPendingRenewal, nil
	}

	if !franchise.DateIssued.AddDate(domain.TerminationAge, 0, 0).After(now) {
		return domain.StatusTerminated, nil
	}
	return domain.StatusRenewed, nil
}

func (s *Service) CheckConsistency(ctx context.Context, franchiseID snowflake.ID) error {
	var franchise domain.Franchise
	if err := s.db.WithContext(ctx).Where("id = ?", franchiseID).First(&franchise).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		return err
	}

	if franchise.OwnershipID != nil {
		var latest domain.Ownership
		if err := s.db.WithContext(ctx).
			Where("franchise_id = ?", franchiseID).
			Order("date_transferred DESC, id DESC").
			First(&latest).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: ownership pointer set but history empty", domain.ErrLedgerInconsistent)
			}
			return err
		}
		if latest.ID != *franchise.OwnershipID {
			return fmt.Errorf("%w: ownership pointer %s is not latest row %s",
				domain.ErrLedgerInconsistent, *franchise.OwnershipID, latest.ID)
		}
	}

	if franchise.ActiveUnitID != nil {
		var latest domain.ActiveUnit
		if err := s.db.WithContext(ctx).
			Where("franchise_id = ?", franchiseID).
			Order("date_changed DESC, id DESC").
			First(&latest).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: active unit pointer set but history empty", domain.ErrLedgerInconsistent)
			}
			return err
		}
		if latest.ID != *franchise.ActiveUnitID {
			return fmt.Errorf("%w: active unit pointer %s is not latest row %s",
				domain.ErrLedgerInconsistent, *franchise.ActiveUnitID, latest.ID)
		}
	}

	return nil
}

func (s *Service) ListNonCompliant(ctx context.Context, year int, now time.Time) ([]domain.Franchise, error) {
	var candidates []domain.Franchise
	if err := s.db.WithContext(ctx).Raw(
		`SELECT f.*
		 FROM franchises f
		 WHERE NOT EXISTS (
		     SELECT 1 FROM applications a
		     WHERE a.franchise_id = f.id
		       AND a.type = ?
		       AND a.created_at >= ? AND a.created_at < ?
		 )
		 ORDER BY f.id`,
		applicationdomain.TypeRenewal,
		time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC),
	).Scan(&candidates).Error; err != nil {
		return nil, err
	}

	out := make([]domain.Franchise, 0, len(candidates))
	for _, franchise := range candidates {
		status, err := s.DeriveStatus(ctx, franchise.ID, now)
		if err != nil {
			return nil, err
		}
		if status == domain.StatusTerminated {
			continue
		}
		out = append(out, franchise)
	}
	return out, nil
}

func lockFranchise(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Franchise, error) {
	var franchise domain.Franchise
	err := db.LockForUpdate(tx.WithContext(ctx)).
		Where("id = ?", id).
		Take(&franchise).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &franchise, nil
}
