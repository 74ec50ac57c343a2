// Package appconfig stores the flat presentation/behavior settings shared by
// every board, together with the monotonic config_version counter that drives
// the force-sync protocol.
package appconfig

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VersionKey is the reserved key carrying the force-sync version counter.
const VersionKey = "config_version"

var (
	errMissingDatabase = errors.New("database handle is required")
	noOpLogger         = zap.NewNop()
)

// Entry is one key/value row of the flat configuration map.
type Entry struct {
	Key   string `gorm:"column:key;primaryKey;size:190;not null"`
	Value string `gorm:"column:value;type:text"`
}

// TableName provides the explicit table binding for GORM.
func (Entry) TableName() string {
	return "app_config"
}

// ServiceConfig describes the dependencies of the configuration store.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Service upserts configuration keys and mints force-sync versions.
type Service struct {
	db     *gorm.DB
	clock  func() time.Time
	logger *zap.Logger
}

// NewService validates the configuration and constructs the service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("appconfig: %w", errMissingDatabase)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{db: cfg.Database, clock: clock, logger: logger}, nil
}

// Save upserts the provided keys independently, inside one transaction.
// The version counter is not touched; plain saves never force a client reset.
func (s *Service) Save(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for key, value := range values {
			if err := upsertEntry(tx, key, value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("config save failed", zap.Error(err))
	}
	return err
}

// ForceSync atomically rewrites the provided keys and stamps a fresh
// config_version strictly greater than every previously issued value.
// The new version is returned so the caller can persist it locally and avoid
// re-adopting its own write as a reset signal.
func (s *Service) ForceSync(ctx context.Context, values map[string]string) (int64, error) {
	var version int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		previous, err := readVersion(tx)
		if err != nil {
			return err
		}
		version = s.clock().UTC().UnixMilli()
		if version <= previous {
			version = previous + 1
		}

		for key, value := range values {
			if key == VersionKey {
				continue
			}
			if err := upsertEntry(tx, key, value); err != nil {
				return err
			}
		}
		return upsertEntry(tx, VersionKey, strconv.FormatInt(version, 10))
	})
	if err != nil {
		s.logger.Error("config force sync failed", zap.Error(err))
		return 0, err
	}
	s.logger.Info("config force sync", zap.Int64("version", version))
	return version, nil
}

// Snapshot returns the flat configuration map.
func (s *Service) Snapshot(ctx context.Context) (map[string]string, error) {
	var entries []Entry
	if err := s.db.WithContext(ctx).Find(&entries).Error; err != nil {
		s.logger.Error("config snapshot failed", zap.Error(err))
		return nil, err
	}
	values := make(map[string]string, len(entries))
	for _, entry := range entries {
		values[entry.Key] = entry.Value
	}
	return values, nil
}

// Version returns the current force-sync version, or zero when none was ever
// issued.
func (s *Service) Version(ctx context.Context) (int64, error) {
	return readVersion(s.db.WithContext(ctx))
}

func readVersion(tx *gorm.DB) (int64, error) {
	var entry Entry
	err := tx.Where("key = ?", VersionKey).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	parsed, parseErr := strconv.ParseInt(entry.Value, 10, 64)
	if parseErr != nil {
		return 0, nil
	}
	return parsed, nil
}

func upsertEntry(tx *gorm.DB, key, value string) error {
	entry := Entry{Key: key, Value: value}
	return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&entry).Error
}
