package database

import (
	"errors"
	"time"

	"github.com/MarcoPoloResearchLab/launchboard/internal/shortcuts"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationBackfillDefaultTenant = "2026-04-18_backfill_default_tenant"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationBackfillDefaultTenant, apply: backfillDefaultTenant},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// backfillDefaultTenant stamps rows created before tenant scoping existed.
func backfillDefaultTenant(db *gorm.DB) error {
	err := db.Model(&shortcuts.Shortcut{}).
		Where("tenant IS NULL OR tenant = ''").
		Update("tenant", shortcuts.DefaultTenant).Error
	if err != nil {
		return err
	}
	return db.Model(&shortcuts.LabelColor{}).
		Where("tenant IS NULL OR tenant = ''").
		Update("tenant", shortcuts.DefaultTenant).Error
}
