package database

import (
	"time"

	"github.com/MarcoPoloResearchLab/launchboard/internal/shortcuts"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultClickLogRetentionDays bounds how long click events are kept.
const DefaultClickLogRetentionDays = 30

// PruneClickLogs deletes click events older than the retention window.
// Run at process start; pruning is hygiene, so callers log failures and
// continue rather than aborting startup.
func PruneClickLogs(db *gorm.DB, retentionDays int, logger *zap.Logger) error {
	if retentionDays <= 0 {
		retentionDays = DefaultClickLogRetentionDays
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)

	result := db.Where("clicked_at < ?", cutoff).Delete(&shortcuts.ClickLog{})
	if result.Error != nil {
		return result.Error
	}
	if logger != nil && result.RowsAffected > 0 {
		logger.Info("pruned outdated click logs",
			zap.Int64("removed", result.RowsAffected),
			zap.Int("retention_days", retentionDays))
	}
	return nil
}
