package shortcuts

import (
	"strings"
	"time"
)

// DefaultTenant is the partition used when a request carries no tenant.
const DefaultTenant = "default"

// Tenant is a validated partition key isolating independent shortcut boards.
type Tenant string

// NormalizeTenant trims raw input and falls back to the default partition.
func NormalizeTenant(raw string) Tenant {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Tenant(DefaultTenant)
	}
	return Tenant(trimmed)
}

// String returns the underlying partition key.
func (t Tenant) String() string {
	return string(t)
}

// ChildLabels holds the ordered set of tag tokens behind the comma-joined
// wire form. Parsing happens once at the boundary so membership checks and
// orphan detection never re-split strings.
type ChildLabels []string

// ParseChildLabels splits the comma-joined wire value into trimmed tokens,
// dropping empties and duplicates while preserving first-seen order.
func ParseChildLabels(wire string) ChildLabels {
	if strings.TrimSpace(wire) == "" {
		return nil
	}
	seen := make(map[string]struct{})
	var labels ChildLabels
	for _, piece := range strings.Split(wire, ",") {
		token := strings.TrimSpace(piece)
		if token == "" {
			continue
		}
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		labels = append(labels, token)
	}
	return labels
}

// Wire serializes the set back to the comma-joined storage form.
func (c ChildLabels) Wire() string {
	return strings.Join(c, ",")
}

// Shortcut is a bookmark tile persisted per tenant.
type Shortcut struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Tenant      string    `gorm:"column:tenant;size:190;not null;default:default;uniqueIndex:idx_shortcuts_name_url_tenant,priority:3" json:"tenant"`
	Name        string    `gorm:"column:name;not null;uniqueIndex:idx_shortcuts_name_url_tenant,priority:1" json:"name"`
	URL         string    `gorm:"column:url;not null;uniqueIndex:idx_shortcuts_name_url_tenant,priority:2" json:"url"`
	IconURL     string    `gorm:"column:icon_url;type:text" json:"icon_url"`
	Icon64      *string   `gorm:"column:icon_64;type:text" json:"icon_64"`
	Icon128     *string   `gorm:"column:icon_128;type:text" json:"icon_128"`
	Icon256     *string   `gorm:"column:icon_256;type:text" json:"icon_256"`
	ParentLabel string    `gorm:"column:parent_label" json:"parent_label"`
	ChildLabel  string    `gorm:"column:child_label" json:"child_label"`
	Favorite    int       `gorm:"column:favorite;not null;default:0" json:"favorite"`
	Clicks      int64     `gorm:"column:clicks;not null;default:0" json:"clicks"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	SortIndex   int64     `gorm:"column:sort_index;not null;default:0" json:"sort_index"`
}

// TableName provides the explicit table binding for GORM.
func (Shortcut) TableName() string {
	return "shortcuts"
}

// ChildTokens exposes the parsed tag set of the stored row.
func (s Shortcut) ChildTokens() ChildLabels {
	return ParseChildLabels(s.ChildLabel)
}

// LabelColor assigns a display color to a group or tag, scoped per tenant.
type LabelColor struct {
	Name       string `gorm:"column:name;primaryKey;size:190;not null" json:"name"`
	Tenant     string `gorm:"column:tenant;primaryKey;size:190;not null;default:default" json:"tenant"`
	ColorClass string `gorm:"column:color_class" json:"color_class"`
}

// TableName provides the explicit table binding for GORM.
func (LabelColor) TableName() string {
	return "label_colors"
}

// ClickLog is an immutable click event appended on every tracked click.
type ClickLog struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	ShortcutID int64     `gorm:"column:shortcut_id;index"`
	ClickedAt  time.Time `gorm:"column:clicked_at;index"`
}

// TableName provides the explicit table binding for GORM.
func (ClickLog) TableName() string {
	return "click_logs"
}
