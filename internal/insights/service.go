// Package insights derives read-only click analytics from the click log:
// totals, top apps, daily timelines, hourly histograms and CSV exports.
package insights

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	topAppLimit  = 10
	timelineDays = 7
)

var (
	errMissingDatabase = errors.New("database handle is required")
	noOpLogger         = zap.NewNop()
)

// ServiceConfig describes the dependencies of the aggregator.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Service aggregates over the click log joined with shortcuts.
type Service struct {
	db     *gorm.DB
	clock  func() time.Time
	logger *zap.Logger
}

// NewService validates the configuration and constructs the service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("insights: %w", errMissingDatabase)
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

// TopApp is one entry of the click ranking.
type TopApp struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// TimelinePoint is one day of the click timeline.
type TimelinePoint struct {
	Date  string `gorm:"column:d" json:"d"`
	Count int64  `gorm:"column:count" json:"count"`
}

// HourBucket is one hour of the 24-bucket histogram.
type HourBucket struct {
	Hour  string `gorm:"column:h" json:"h"`
	Count int64  `gorm:"column:count" json:"count"`
}

// Overview bundles the dashboard analytics payload.
type Overview struct {
	TotalClicks int64           `json:"totalClicks"`
	TopApps     []TopApp        `json:"topApps"`
	Timeline    []TimelinePoint `json:"timeline"`
	Hourly      []HourBucket    `json:"hourly"`
}

// Overview computes total clicks, the top-10 ranking, the last-7-day daily
// timeline and the hourly histogram.
func (s *Service) Overview(ctx context.Context) (Overview, error) {
	overview := Overview{TopApps: []TopApp{}, Timeline: []TimelinePoint{}, Hourly: []HourBucket{}}
	db := s.db.WithContext(ctx)

	if err := db.Table("click_logs").Count(&overview.TotalClicks).Error; err != nil {
		return Overview{}, s.fail("total_count_failed", err)
	}

	err := db.Raw(`
		SELECT s.name AS name, COUNT(cl.id) AS count
		FROM click_logs cl
		JOIN shortcuts s ON cl.shortcut_id = s.id
		GROUP BY s.name
		ORDER BY count DESC
		LIMIT ?`, topAppLimit).Scan(&overview.TopApps).Error
	if err != nil {
		return Overview{}, s.fail("top_query_failed", err)
	}

	cutoff := s.clock().UTC().AddDate(0, 0, -timelineDays)
	err = db.Raw(`
		SELECT strftime('%Y-%m-%d', clicked_at) AS d, COUNT(*) AS count
		FROM click_logs
		WHERE clicked_at >= ?
		GROUP BY d
		ORDER BY d ASC`, cutoff).Scan(&overview.Timeline).Error
	if err != nil {
		return Overview{}, s.fail("timeline_query_failed", err)
	}

	err = db.Raw(`
		SELECT strftime('%H', clicked_at) AS h, COUNT(*) AS count
		FROM click_logs
		GROUP BY h
		ORDER BY h ASC`).Scan(&overview.Hourly).Error
	if err != nil {
		return Overview{}, s.fail("hourly_query_failed", err)
	}

	return overview, nil
}

type exportRow struct {
	ClickedAt   time.Time `gorm:"column:clicked_at"`
	Name        *string   `gorm:"column:name"`
	Tenant      *string   `gorm:"column:tenant"`
	ParentLabel *string   `gorm:"column:parent_label"`
	ChildLabel  *string   `gorm:"column:child_label"`
	Clicks      *int64    `gorm:"column:clicks"`
}

type summaryRow struct {
	Date        string  `gorm:"column:date"`
	Name        *string `gorm:"column:name"`
	Tenant      *string `gorm:"column:tenant"`
	ParentLabel *string `gorm:"column:parent_label"`
	ChildLabel  *string `gorm:"column:child_label"`
	Count       int64   `gorm:"column:count"`
}

// ExportCSV streams the full click log, newest first. Clicks on shortcuts
// that were deleted since are kept and rendered under the name "Deleted".
func (s *Service) ExportCSV(ctx context.Context, w io.Writer) error {
	var rows []exportRow
	err := s.db.WithContext(ctx).Raw(`
		SELECT cl.clicked_at, s.name, s.tenant, s.parent_label, s.child_label, s.clicks
		FROM click_logs cl
		LEFT JOIN shortcuts s ON cl.shortcut_id = s.id
		ORDER BY cl.clicked_at DESC, cl.id DESC`).Scan(&rows).Error
	if err != nil {
		return s.fail("export_query_failed", err)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"Time", "App", "Tenant", "Group", "Tags", "Total_Clicks"}); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			row.ClickedAt.UTC().Format("2006-01-02 15:04:05"),
			orDeleted(row.Name),
			orEmpty(row.Tenant),
			orEmpty(row.ParentLabel),
			orEmpty(row.ChildLabel),
			strconv.FormatInt(orZero(row.Clicks), 10),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ExportSummaryCSV streams per-day per-app click counts.
func (s *Service) ExportSummaryCSV(ctx context.Context, w io.Writer) error {
	var rows []summaryRow
	err := s.db.WithContext(ctx).Raw(`
		SELECT strftime('%Y-%m-%d', cl.clicked_at) AS date,
		       s.name, s.tenant, s.parent_label, s.child_label,
		       COUNT(*) AS count
		FROM click_logs cl
		LEFT JOIN shortcuts s ON cl.shortcut_id = s.id
		GROUP BY date, s.name, s.tenant, s.parent_label, s.child_label
		ORDER BY date DESC, count DESC`).Scan(&rows).Error
	if err != nil {
		return s.fail("summary_query_failed", err)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"Date", "App", "Tenant", "Group", "Tags", "Clicks"}); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			row.Date,
			orDeleted(row.Name),
			orEmpty(row.Tenant),
			orEmpty(row.ParentLabel),
			orEmpty(row.ChildLabel),
			strconv.FormatInt(row.Count, 10),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func (s *Service) fail(reason string, err error) error {
	s.logger.Error("insights query failed", zap.String("reason", reason), zap.Error(err))
	return fmt.Errorf("insights: %s: %w", reason, err)
}

func orDeleted(value *string) string {
	if value == nil || *value == "" {
		return "Deleted"
	}
	return *value
}

func orEmpty(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func orZero(value *int64) int64 {
	if value == nil {
		return 0
	}
	return *value
}
