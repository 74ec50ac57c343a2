package shortcuts

import (
	"net/url"
	"strings"
)

// Payload is the raw mutation body accepted by create, update and import.
type Payload struct {
	Tenant      string `json:"tenant"`
	Name        string `json:"name"`
	URL         string `json:"url"`
	IconURL     string `json:"icon_url"`
	ParentLabel string `json:"parent_label"`
	ChildLabel  string `json:"child_label"`
	ParentColor string `json:"parent_color"`
	ChildColor  string `json:"child_color"`
}

// NormalizedShortcut is a fully trimmed, tenant-stamped record ready for
// storage. Child labels are carried as a parsed set; the comma-joined wire
// form is produced only when writing the row.
type NormalizedShortcut struct {
	Tenant      Tenant
	Name        string
	URL         string
	IconURL     string
	ParentLabel string
	ChildLabels ChildLabels
	ParentColor string
	ChildColor  string
}

// Normalize validates and coerces a raw payload. Name and url must be
// non-blank after trimming, and url must parse as an absolute URL whose
// scheme begins with http. Nothing is persisted when normalization fails.
func Normalize(payload Payload) (NormalizedShortcut, error) {
	name := strings.TrimSpace(payload.Name)
	target := strings.TrimSpace(payload.URL)
	if name == "" || target == "" {
		return NormalizedShortcut{}, NewValidationError("missing name or url")
	}
	if !validTargetURL(target) {
		return NormalizedShortcut{}, NewValidationError("invalid url")
	}

	return NormalizedShortcut{
		Tenant:      NormalizeTenant(payload.Tenant),
		Name:        name,
		URL:         target,
		IconURL:     payload.IconURL,
		ParentLabel: strings.TrimSpace(payload.ParentLabel),
		ChildLabels: ParseChildLabels(payload.ChildLabel),
		ParentColor: payload.ParentColor,
		ChildColor:  payload.ChildColor,
	}, nil
}

func validTargetURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if !parsed.IsAbs() || parsed.Host == "" {
		return false
	}
	return strings.HasPrefix(strings.ToLower(parsed.Scheme), "http")
}

// labelColorPairs lists the (label, color) rows a normalized record seeds.
// A label with no paired color, or a color with no label, seeds nothing.
func (n NormalizedShortcut) labelColorPairs() []LabelColor {
	var pairs []LabelColor
	if n.ParentLabel != "" && n.ParentColor != "" {
		pairs = append(pairs, LabelColor{Name: n.ParentLabel, Tenant: n.Tenant.String(), ColorClass: n.ParentColor})
	}
	if n.ChildColor != "" {
		for _, token := range n.ChildLabels {
			pairs = append(pairs, LabelColor{Name: token, Tenant: n.Tenant.String(), ColorClass: n.ChildColor})
		}
	}
	return pairs
}
