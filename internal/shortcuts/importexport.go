package shortcuts

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ImportShortcut is one candidate row of a bulk import. Thumbnail variants
// travel with the row so a restored board keeps its cached icons.
type ImportShortcut struct {
	Tenant      string  `json:"tenant"`
	Name        string  `json:"name"`
	URL         string  `json:"url"`
	IconURL     string  `json:"icon_url"`
	Icon64      *string `json:"icon_64"`
	Icon128     *string `json:"icon_128"`
	Icon256     *string `json:"icon_256"`
	ParentLabel string  `json:"parent_label"`
	ChildLabel  string  `json:"child_label"`
	Favorite    int     `json:"favorite"`
	Clicks      int64   `json:"clicks"`
}

// ImportLabel is one candidate label-color row of a bulk import.
type ImportLabel struct {
	Tenant     string `json:"tenant"`
	Name       string `json:"name"`
	ColorClass string `json:"color_class"`
}

// Snapshot is the flat export form of a tenant's board. Server-assigned ids
// and click counters are stripped so that re-importing an unmodified export
// leaves the tenant unchanged.
type Snapshot struct {
	Shortcuts []ImportShortcut `json:"shortcuts"`
	Labels    []ImportLabel    `json:"labels"`
}

// ImportBatch merges candidate shortcuts and labels inside one transaction.
// Malformed items are skipped silently so one bad row cannot abort the batch.
// Conflicting shortcut rows merge clicks by addition and favorite by maximum.
// Orphan labels are swept once per tenant the batch touched.
func (s *Service) ImportBatch(ctx context.Context, batchTenant Tenant, items []ImportShortcut, labels []ImportLabel) error {
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		touched := make(map[Tenant]struct{})

		for _, item := range items {
			rec, ok := normalizeImportItem(item, batchTenant)
			if !ok {
				continue
			}
			if err := importOne(tx, rec, item, s.clock); err != nil {
				return err
			}
			touched[rec.Tenant] = struct{}{}
		}

		for _, label := range labels {
			name := strings.TrimSpace(label.Name)
			if name == "" {
				continue
			}
			tenant := resolveTenant(label.Tenant, batchTenant)
			pair := LabelColor{Name: name, Tenant: tenant.String(), ColorClass: label.ColorClass}
			if err := upsertLabelColors(tx, []LabelColor{pair}); err != nil {
				return err
			}
			touched[tenant] = struct{}{}
		}

		for tenant := range touched {
			if err := cleanupOrphanLabels(tx, tenant); err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		s.logError(opImport, txErr, zap.String("tenant", batchTenant.String()))
	}
	return txErr
}

// Export produces the import-compatible snapshot of a tenant's board.
func (s *Service) Export(ctx context.Context, tenant Tenant) (Snapshot, error) {
	snapshot := Snapshot{Shortcuts: []ImportShortcut{}, Labels: []ImportLabel{}}

	var rows []Shortcut
	err := s.db.WithContext(ctx).
		Where("tenant = ?", tenant.String()).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		s.logError(opExport, err, zap.String("tenant", tenant.String()))
		return Snapshot{}, newServiceError(opExport, "shortcut_query_failed", err)
	}
	for _, row := range rows {
		snapshot.Shortcuts = append(snapshot.Shortcuts, ImportShortcut{
			Tenant:      row.Tenant,
			Name:        row.Name,
			URL:         row.URL,
			IconURL:     row.IconURL,
			Icon64:      row.Icon64,
			Icon128:     row.Icon128,
			Icon256:     row.Icon256,
			ParentLabel: row.ParentLabel,
			ChildLabel:  row.ChildLabel,
			Favorite:    row.Favorite,
		})
	}

	var labels []LabelColor
	if err := s.db.WithContext(ctx).Where("tenant = ?", tenant.String()).Order("name ASC").Find(&labels).Error; err != nil {
		s.logError(opExport, err, zap.String("tenant", tenant.String()))
		return Snapshot{}, newServiceError(opExport, "label_query_failed", err)
	}
	for _, label := range labels {
		snapshot.Labels = append(snapshot.Labels, ImportLabel{
			Tenant:     label.Tenant,
			Name:       label.Name,
			ColorClass: label.ColorClass,
		})
	}

	return snapshot, nil
}

// normalizeImportItem applies the lenient import validation: blank name/url
// or a non-http URL disqualify the item without failing the batch.
func normalizeImportItem(item ImportShortcut, batchTenant Tenant) (NormalizedShortcut, bool) {
	name := strings.TrimSpace(item.Name)
	target := strings.TrimSpace(item.URL)
	if name == "" || target == "" {
		return NormalizedShortcut{}, false
	}
	if !validTargetURL(target) {
		return NormalizedShortcut{}, false
	}
	return NormalizedShortcut{
		Tenant:      resolveTenant(item.Tenant, batchTenant),
		Name:        name,
		URL:         target,
		IconURL:     item.IconURL,
		ParentLabel: strings.TrimSpace(item.ParentLabel),
		ChildLabels: ParseChildLabels(item.ChildLabel),
	}, true
}

func resolveTenant(itemTenant string, batchTenant Tenant) Tenant {
	if strings.TrimSpace(itemTenant) != "" {
		return NormalizeTenant(itemTenant)
	}
	return batchTenant
}

func importOne(tx *gorm.DB, rec NormalizedShortcut, item ImportShortcut, clock func() time.Time) error {
	clicks := item.Clicks
	if clicks < 0 {
		clicks = 0
	}
	favorite := 0
	if item.Favorite != 0 {
		favorite = 1
	}

	existing, err := takeByIdentity(tx, rec)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return newServiceError(opImport, "select_failed", err)
	}

	if existing == nil {
		row := Shortcut{
			Tenant:      rec.Tenant.String(),
			Name:        rec.Name,
			URL:         rec.URL,
			IconURL:     rec.IconURL,
			Icon64:      item.Icon64,
			Icon128:     item.Icon128,
			Icon256:     item.Icon256,
			ParentLabel: rec.ParentLabel,
			ChildLabel:  rec.ChildLabels.Wire(),
			Favorite:    favorite,
			Clicks:      clicks,
			CreatedAt:   clock().UTC(),
		}
		if err := tx.Create(&row).Error; err != nil {
			return newServiceError(opImport, "insert_failed", err)
		}
		return nil
	}

	mergedFavorite := existing.Favorite
	if favorite > mergedFavorite {
		mergedFavorite = favorite
	}
	updates := map[string]interface{}{
		"icon_url":     rec.IconURL,
		"icon_64":      item.Icon64,
		"icon_128":     item.Icon128,
		"icon_256":     item.Icon256,
		"parent_label": rec.ParentLabel,
		"child_label":  rec.ChildLabels.Wire(),
		"favorite":     mergedFavorite,
		"clicks":       existing.Clicks + clicks,
	}
	if err := tx.Model(&Shortcut{}).Where("id = ?", existing.ID).Updates(updates).Error; err != nil {
		return newServiceError(opImport, "merge_failed", err)
	}
	return nil
}
