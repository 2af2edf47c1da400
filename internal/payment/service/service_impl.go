package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	assessmentdomain "github.com/citypermits/tripermit/internal/assessment/domain"
	"github.com/citypermits/tripermit/internal/clock"
	"github.com/citypermits/tripermit/internal/payment/domain"
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
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("payment.service"),
		genID: p.GenID,
		clock: p.Clock,
	}
}

func (s *Service) Record(ctx context.Context, req domain.RecordPaymentRequest) (domain.Payment, error) {
	if req.AmountPaid <= 0 {
		return domain.Payment{}, domain.ErrInvalidAmount
	}
	if strings.TrimSpace(req.PayeeFirstName) == "" ||
		strings.TrimSpace(req.PayeeLastName) == "" ||
		strings.TrimSpace(req.PayeeBarangay) == "" {
		return domain.Payment{}, domain.ErrMissingPayee
	}

	now := s.clock.Now()
	payment := domain.Payment{
		ID:                 s.genID.Generate(),
		AssessmentID:       req.AssessmentID,
		AmountPaid:         req.AmountPaid,
		PayeeFirstName:     req.PayeeFirstName,
		PayeeMiddleName:    req.PayeeMiddleName,
		PayeeLastName:      req.PayeeLastName,
		PayeeContactNumber: req.PayeeContactNumber,
		PayeeStreetAddress: req.PayeeStreetAddress,
		PayeeBarangay:      req.PayeeBarangay,
		PayeeCity:          req.PayeeCity,
		ReceivedAt:         now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if req.AssessmentID != nil {
			// Lock the assessment row so the status flip serializes with the
			// penalty recalculation running against the same bill.
			var assessment assessmentdomain.Assessment
			err := db.LockForUpdate(tx).
				Select("id", "total_amount_due", "status").
				Where("id = ?", *req.AssessmentID).
				Take(&assessment).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrAssessmentNotFound
			}
			if err != nil {
				return err
			}

			if err := tx.Create(&payment).Error; err != nil {
				return err
			}

			var totalPaid int64
			if err := tx.Raw(
				`SELECT COALESCE(SUM(amount_paid), 0)
				 FROM payments
				 WHERE assessment_id = ?`,
				*req.AssessmentID,
			).Scan(&totalPaid).Error; err != nil {
				return err
			}

			if totalPaid >= assessment.TotalAmountDue && assessment.Status != assessmentdomain.StatusPaid {
				if err := tx.Model(&assessmentdomain.Assessment{}).
					Where("id = ?", *req.AssessmentID).
					Updates(map[string]any{
						"status":     assessmentdomain.StatusPaid,
						"updated_at": now,
					}).Error; err != nil {
					return err
				}
			}
			return nil
		}

		return tx.Create(&payment).Error
	})
	if err != nil {
		return domain.Payment{}, err
	}

	s.log.Info("payment recorded",
		zap.String("payment_id", payment.ID.String()),
		zap.Int64("amount_paid", payment.AmountPaid),
	)
	return payment, nil
}

func (s *Service) ListByAssessment(ctx context.Context, assessmentID snowflake.ID) ([]domain.Payment, error) {
	var items []domain.Payment
	err := s.db.WithContext(ctx).
		Where("assessment_id = ?", assessmentID).
		Order("id").
		Find(&items).Error
	return items, err
}

func (s *Service) Balance(ctx context.Context, assessmentID snowflake.ID) (int64, error) {
	var balance int64
	err := s.db.WithContext(ctx).Raw(
		`SELECT a.total_amount_due - COALESCE(SUM(p.amount_paid), 0)
		 FROM assessments a
		 LEFT JOIN payments p ON p.assessment_id = a.id
		 WHERE a.id = ?
		 GROUP BY a.total_amount_due`,
		assessmentID,
	).Scan(&balance).Error
	return balance, err
}
