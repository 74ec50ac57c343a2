package database

import (
	"fmt"

	"github.com/MarcoPoloResearchLab/launchboard/internal/admin"
	"github.com/MarcoPoloResearchLab/launchboard/internal/appconfig"
	"github.com/MarcoPoloResearchLab/launchboard/internal/audit"
	"github.com/MarcoPoloResearchLab/launchboard/internal/shortcuts"
	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OpenSQLite establishes a SQLite connection and performs schema migrations.
func OpenSQLite(path string, logger *zap.Logger) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := Migrate(db, logger); err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Info("database initialized", zap.String("path", path))
	}

	return db, nil
}

// Migrate creates or updates the schema for every persisted model.
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	err := db.AutoMigrate(
		&shortcuts.Shortcut{},
		&shortcuts.LabelColor{},
		&shortcuts.ClickLog{},
		&appconfig.Entry{},
		&admin.Credential{},
		&audit.ImageSearchLog{},
		&migrationRecord{},
	)
	if err != nil {
		return err
	}
	return applyMigrations(db, logger)
}
