package shortcuts

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	errMissingDatabase = errors.New("database handle is required")
	noOpLogger         = zap.NewNop()
)

const (
	opServiceNew = "shortcuts.service.new"
	opUpsert     = "shortcuts.upsert"
	opUpdate     = "shortcuts.update"
	opDelete     = "shortcuts.delete"
	opClick      = "shortcuts.click"
	opFavorite   = "shortcuts.favorite"
	opReorder    = "shortcuts.reorder"
	opImport     = "shortcuts.import"
	opExport     = "shortcuts.export"
	opFetch      = "shortcuts.fetch"
	opCleanup    = "shortcuts.cleanup_orphan_labels"
)

// Thumbnailer renders the cached icon variants for an embedded icon. A nil
// triple means the icon could not be processed; the shortcut write proceeds
// regardless.
type Thumbnailer interface {
	Generate(iconURL string) (icon64, icon128, icon256 *string)
}

// ServiceConfig describes the dependencies of the synchronization service.
type ServiceConfig struct {
	Database    *gorm.DB
	Clock       func() time.Time
	Thumbnailer Thumbnailer
	Logger      *zap.Logger
}

// Service is the sole mutation and query boundary for Shortcut and LabelColor
// entities. It enforces validation, tenant scoping and merge semantics.
type Service struct {
	db     *gorm.DB
	clock  func() time.Time
	thumbs Thumbnailer
	logger *zap.Logger
}

// NewService validates the configuration and constructs the service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		db:     cfg.Database,
		clock:  clock,
		thumbs: cfg.Thumbnailer,
		logger: logger,
	}, nil
}

// UpsertResult reports whether an upsert created a fresh row.
type UpsertResult struct {
	Created bool
}

// Upsert inserts the record or, when a row with the same (name, url, tenant)
// already exists, overwrites its icon references and labels. Clicks and the
// favorite flag of an existing row are left untouched; the import path owns
// the merge semantics for those counters.
func (s *Service) Upsert(ctx context.Context, rec NormalizedShortcut) (UpsertResult, error) {
	icon64, icon128, icon256 := s.renderThumbnails(rec.IconURL)

	var result UpsertResult
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := takeByIdentity(tx, rec)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return newServiceError(opUpsert, "select_failed", err)
		}

		if existing == nil {
			row := Shortcut{
				Tenant:      rec.Tenant.String(),
				Name:        rec.Name,
				URL:         rec.URL,
				IconURL:     rec.IconURL,
				Icon64:      icon64,
				Icon128:     icon128,
				Icon256:     icon256,
				ParentLabel: rec.ParentLabel,
				ChildLabel:  rec.ChildLabels.Wire(),
				CreatedAt:   s.clock().UTC(),
			}
			if err := tx.Create(&row).Error; err != nil {
				return newServiceError(opUpsert, "insert_failed", err)
			}
			result.Created = true
		} else {
			updates := map[string]interface{}{
				"icon_url":     rec.IconURL,
				"icon_64":      icon64,
				"icon_128":     icon128,
				"icon_256":     icon256,
				"parent_label": rec.ParentLabel,
				"child_label":  rec.ChildLabels.Wire(),
			}
			if err := tx.Model(&Shortcut{}).Where("id = ?", existing.ID).Updates(updates).Error; err != nil {
				return newServiceError(opUpsert, "update_failed", err)
			}
		}

		return upsertLabelColors(tx, rec.labelColorPairs())
	})
	if txErr != nil {
		s.logError(opUpsert, txErr, zap.String("tenant", rec.Tenant.String()), zap.String("name", rec.Name))
		return UpsertResult{}, txErr
	}
	return result, nil
}

// Update overwrites name, url, icon fields and labels on the row matching the
// id within the record's tenant. An id belonging to a foreign tenant is
// reported as not found. Orphan labels are swept afterwards, best effort.
func (s *Service) Update(ctx context.Context, id int64, rec NormalizedShortcut) error {
	icon64, icon128, icon256 := s.renderThumbnails(rec.IconURL)

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"name":         rec.Name,
			"url":          rec.URL,
			"icon_url":     rec.IconURL,
			"icon_64":      icon64,
			"icon_128":     icon128,
			"icon_256":     icon256,
			"parent_label": rec.ParentLabel,
			"child_label":  rec.ChildLabels.Wire(),
		}
		res := tx.Model(&Shortcut{}).
			Where("id = ? AND tenant = ?", id, rec.Tenant.String()).
			Updates(updates)
		if res.Error != nil {
			return newServiceError(opUpdate, "update_failed", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return upsertLabelColors(tx, rec.labelColorPairs())
	})
	if txErr != nil {
		if !errors.Is(txErr, ErrNotFound) {
			s.logError(opUpdate, txErr, zap.Int64("id", id), zap.String("tenant", rec.Tenant.String()))
		}
		return txErr
	}

	s.sweepOrphanLabels(ctx, rec.Tenant)
	return nil
}

// Delete removes the row by id and sweeps orphan labels in its tenant.
func (s *Service) Delete(ctx context.Context, id int64) error {
	var tenant Tenant
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing Shortcut
		err := tx.Select("id", "tenant").Where("id = ?", id).Take(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return newServiceError(opDelete, "select_failed", err)
		}
		tenant = Tenant(existing.Tenant)
		if err := tx.Delete(&Shortcut{}, existing.ID).Error; err != nil {
			return newServiceError(opDelete, "delete_failed", err)
		}
		return nil
	})
	if txErr != nil {
		if !errors.Is(txErr, ErrNotFound) {
			s.logError(opDelete, txErr, zap.Int64("id", id))
		}
		return txErr
	}

	s.sweepOrphanLabels(ctx, tenant)
	return nil
}

// RecordClick increments the click counter and appends a click-log row.
// Both effects happen inside one transaction or not at all.
func (s *Service) RecordClick(ctx context.Context, id int64) error {
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Shortcut{}).
			Where("id = ?", id).
			Update("clicks", gorm.Expr("clicks + 1"))
		if res.Error != nil {
			return newServiceError(opClick, "increment_failed", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		entry := ClickLog{ShortcutID: id, ClickedAt: s.clock().UTC()}
		if err := tx.Create(&entry).Error; err != nil {
			return newServiceError(opClick, "log_insert_failed", err)
		}
		return nil
	})
	if txErr != nil && !errors.Is(txErr, ErrNotFound) {
		s.logError(opClick, txErr, zap.Int64("id", id))
	}
	return txErr
}

// ToggleFavorite flips the favorite flag and returns the new value so the
// caller can update its view without a re-fetch.
func (s *Service) ToggleFavorite(ctx context.Context, id int64) (int, error) {
	var next int
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing Shortcut
		err := tx.Select("id", "favorite").Where("id = ?", id).Take(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return newServiceError(opFavorite, "select_failed", err)
		}
		next = 0
		if existing.Favorite == 0 {
			next = 1
		}
		if err := tx.Model(&Shortcut{}).Where("id = ?", id).Update("favorite", next).Error; err != nil {
			return newServiceError(opFavorite, "update_failed", err)
		}
		return nil
	})
	if txErr != nil {
		if !errors.Is(txErr, ErrNotFound) {
			s.logError(opFavorite, txErr, zap.Int64("id", id))
		}
		return 0, txErr
	}
	return next, nil
}

// Reorder assigns each listed id a sort index equal to its 1-based position.
// Ids outside the tenant, or unknown ids, are silent no-ops.
func (s *Service) Reorder(ctx context.Context, tenant Tenant, orderedIDs []int64) error {
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for index, id := range orderedIDs {
			err := tx.Model(&Shortcut{}).
				Where("id = ? AND tenant = ?", id, tenant.String()).
				Update("sort_index", index+1).Error
			if err != nil {
				return newServiceError(opReorder, "update_failed", err)
			}
		}
		return nil
	})
	if txErr != nil {
		s.logError(opReorder, txErr, zap.String("tenant", tenant.String()))
	}
	return txErr
}

// DataSnapshot is the canonical tenant state returned to the client.
type DataSnapshot struct {
	Tenant      string            `json:"tenant"`
	Shortcuts   []Shortcut        `json:"shortcuts"`
	LabelColors map[string]string `json:"labelColors"`
}

// FetchData lists the tenant's shortcuts favorite-first, then by sort index,
// then newest-first, together with the tenant's label-color map.
func (s *Service) FetchData(ctx context.Context, tenant Tenant) (DataSnapshot, error) {
	snapshot := DataSnapshot{
		Tenant:      tenant.String(),
		Shortcuts:   []Shortcut{},
		LabelColors: map[string]string{},
	}

	err := s.db.WithContext(ctx).
		Where("tenant = ?", tenant.String()).
		Order("favorite DESC, sort_index ASC, created_at DESC, id DESC").
		Find(&snapshot.Shortcuts).Error
	if err != nil {
		s.logError(opFetch, err, zap.String("tenant", tenant.String()))
		return DataSnapshot{}, newServiceError(opFetch, "shortcut_query_failed", err)
	}

	var labels []LabelColor
	if err := s.db.WithContext(ctx).Where("tenant = ?", tenant.String()).Find(&labels).Error; err != nil {
		s.logError(opFetch, err, zap.String("tenant", tenant.String()))
		return DataSnapshot{}, newServiceError(opFetch, "label_query_failed", err)
	}
	for _, label := range labels {
		snapshot.LabelColors[label.Name] = label.ColorClass
	}

	return snapshot, nil
}

func (s *Service) renderThumbnails(iconURL string) (*string, *string, *string) {
	if s.thumbs == nil {
		return nil, nil, nil
	}
	return s.thumbs.Generate(iconURL)
}

// sweepOrphanLabels runs the cleanup outside the mutating transaction.
// Failures are hygiene, not correctness: log and continue.
func (s *Service) sweepOrphanLabels(ctx context.Context, tenant Tenant) {
	if err := cleanupOrphanLabels(s.db.WithContext(ctx), tenant); err != nil {
		s.logError(opCleanup, err, zap.String("tenant", tenant.String()))
	}
}

// cleanupOrphanLabels deletes every label-color row in the tenant whose name
// is no longer referenced by any shortcut as parent label or child token.
func cleanupOrphanLabels(tx *gorm.DB, tenant Tenant) error {
	var rows []Shortcut
	err := tx.Select("parent_label", "child_label").
		Where("tenant = ?", tenant.String()).
		Find(&rows).Error
	if err != nil {
		return newServiceError(opCleanup, "reference_query_failed", err)
	}

	used := make(map[string]struct{})
	for _, row := range rows {
		if row.ParentLabel != "" {
			used[row.ParentLabel] = struct{}{}
		}
		for _, token := range row.ChildTokens() {
			used[token] = struct{}{}
		}
	}

	query := tx.Where("tenant = ? AND name <> ''", tenant.String())
	if len(used) > 0 {
		names := make([]string, 0, len(used))
		for name := range used {
			names = append(names, name)
		}
		query = query.Where("name NOT IN ?", names)
	}
	if err := query.Delete(&LabelColor{}).Error; err != nil {
		return newServiceError(opCleanup, "delete_failed", err)
	}
	return nil
}

func takeByIdentity(tx *gorm.DB, rec NormalizedShortcut) (*Shortcut, error) {
	var existing Shortcut
	err := tx.Where("name = ? AND url = ? AND tenant = ?", rec.Name, rec.URL, rec.Tenant.String()).
		Take(&existing).Error
	if err != nil {
		return nil, err
	}
	return &existing, nil
}

func upsertLabelColors(tx *gorm.DB, pairs []LabelColor) error {
	for _, pair := range pairs {
		err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&pair).Error
		if err != nil {
			return newServiceError(opUpsert, "label_upsert_failed", err)
		}
	}
	return nil
}

func (s *Service) logError(operation string, err error, fields ...zap.Field) {
	attrs := append([]zap.Field{zap.String("operation", operation), zap.Error(err)}, fields...)
	s.logger.Error("shortcuts service error", attrs...)
}
