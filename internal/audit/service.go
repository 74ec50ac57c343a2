// Package audit keeps the append-only log of image-search lookups performed
// through the dashboard, for later review of upload activity.
package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase = errors.New("database handle is required")
	noOpLogger         = zap.NewNop()
)

// ImageSearchLog records one image-search request.
type ImageSearchLog struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ClientIP   string    `gorm:"column:client_ip" json:"client_ip"`
	UserAgent  string    `gorm:"column:user_agent" json:"user_agent"`
	FileSize   int64     `gorm:"column:file_size" json:"file_size"`
	FileType   string    `gorm:"column:file_type" json:"file_type"`
	Filename   string    `gorm:"column:filename" json:"filename"`
	SearchedAt time.Time `gorm:"column:searched_at;index" json:"searched_at"`
}

// TableName provides the explicit table binding for GORM.
func (ImageSearchLog) TableName() string {
	return "image_search_logs"
}

// ServiceConfig describes the dependencies of the audit log.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Service appends and lists image-search audit entries.
type Service struct {
	db     *gorm.DB
	clock  func() time.Time
	logger *zap.Logger
}

// NewService validates the configuration and constructs the service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("audit: %w", errMissingDatabase)
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

// Record appends one entry, stamping the server-side timestamp.
func (s *Service) Record(ctx context.Context, entry ImageSearchLog) error {
	entry.ID = 0
	entry.SearchedAt = s.clock().UTC()
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		s.logger.Error("image search log insert failed", zap.Error(err))
		return err
	}
	return nil
}

// Recent lists the newest entries up to the provided limit.
func (s *Service) Recent(ctx context.Context, limit int) ([]ImageSearchLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var entries []ImageSearchLog
	err := s.db.WithContext(ctx).
		Order("searched_at DESC, id DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		s.logger.Error("image search log query failed", zap.Error(err))
		return nil, err
	}
	return entries, nil
}
