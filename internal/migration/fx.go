package migration

import (
	applicationdomain "github.com/citypermits/tripermit/internal/application/domain"
	assessmentdomain "github.com/citypermits/tripermit/internal/assessment/domain"
	complaintdomain "github.com/citypermits/tripermit/internal/complaint/domain"
	"github.com/citypermits/tripermit/internal/config"
	franchisedomain "github.com/citypermits/tripermit/internal/franchise/domain"
	particulardomain "github.com/citypermits/tripermit/internal/particular/domain"
	paymentdomain "github.com/citypermits/tripermit/internal/payment/domain"
	referencedomain "github.com/citypermits/tripermit/internal/reference/domain"
	"github.com/citypermits/tripermit/internal/seed"
	settingsdomain "github.com/citypermits/tripermit/internal/settings/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// sqlite and mysql are for local development; gorm derives the
			// schema from the models there.
			if err := conn.AutoMigrate(
				&settingsdomain.SystemSetting{},
				&particulardomain.Particular{},
				&referencedomain.Operator{},
				&referencedomain.Unit{},
				&referencedomain.Zone{},
				&franchisedomain.Franchise{},
				&franchisedomain.Ownership{},
				&franchisedomain.ActiveUnit{},
				&applicationdomain.Application{},
				&assessmentdomain.Assessment{},
				&assessmentdomain.AssessmentParticular{},
				&paymentdomain.Payment{},
				&complaintdomain.Complaint{},
			); err != nil {
				return err
			}
		}

		if cfg.SeedDefaults {
			return seed.EnsureDefaults(conn)
		}
		return nil
	}),
)
