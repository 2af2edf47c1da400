// Package seed bootstraps the rows the system cannot run without: the
// surcharge and interest particulars the penalty engine writes against, and
// the singleton settings row. Seeding is idempotent.
package seed

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	particulardomain "github.com/citypermits/tripermit/internal/particular/domain"
	settingsdomain "github.com/citypermits/tripermit/internal/settings/domain"
	"gorm.io/gorm"
)

// EnsureDefaults seeds the penalty particulars and settings row.
func EnsureDefaults(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureSystemParticular(ctx, tx, node, particulardomain.CodeSurcharge, "Surcharge"); err != nil {
			return err
		}
		if err := ensureSystemParticular(ctx, tx, node, particulardomain.CodeInterest, "Interest"); err != nil {
			return err
		}
		return ensureSettings(ctx, tx, node)
	})
}

func ensureSystemParticular(ctx context.Context, tx *gorm.DB, node *snowflake.Node, code, name string) error {
	var existing particulardomain.Particular
	err := tx.WithContext(ctx).Where("code = ?", code).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	row := particulardomain.Particular{
		ID:       node.Generate(),
		Name:     name,
		Code:     &code,
		Group:    particulardomain.GroupPenalty,
		Amount:   0,
		IsSystem: true,
	}
	return tx.WithContext(ctx).Create(&row).Error
}

func ensureSettings(ctx context.Context, tx *gorm.DB, node *snowflake.Node) error {
	var existing settingsdomain.SystemSetting
	err := tx.WithContext(ctx).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	row := settingsdomain.SystemSetting{
		ID:                           node.Generate(),
		FiscalYearEnd:                "12-31",
		SurchargeRatePercent:         25,
		InterestRatePercent:          2,
		UnresolvedComplaintThreshold: 3,
	}
	return tx.WithContext(ctx).Create(&row).Error
}
