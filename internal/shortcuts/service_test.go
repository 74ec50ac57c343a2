package shortcuts

import (
	"context"
	"errors"
	"testing"
)

func TestUpsertCreatesThenMerges(t *testing.T) {
	service, db := newTestService(t)

	result, err := service.Upsert(context.Background(), mustNormalize(t, Payload{
		Name:        "Mail",
		URL:         "https://mail.example.com",
		ParentLabel: "Work",
		ParentColor: "bg-sky-500",
	}))
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	if !result.Created {
		t.Fatalf("expected first upsert to create a row")
	}

	row := shortcutByName(t, db, DefaultTenant, "Mail")
	if err := db.Model(&Shortcut{}).Where("id = ?", row.ID).Updates(map[string]interface{}{
		"favorite": 1,
		"clicks":   7,
	}).Error; err != nil {
		t.Fatalf("failed to seed counters: %v", err)
	}

	result, err = service.Upsert(context.Background(), mustNormalize(t, Payload{
		Name:        "Mail",
		URL:         "https://mail.example.com",
		IconURL:     "https://cdn.example.com/mail.png",
		ParentLabel: "Personal",
		ChildLabel:  "email",
	}))
	if err != nil {
		t.Fatalf("unexpected merge error: %v", err)
	}
	if result.Created {
		t.Fatalf("expected second upsert to merge into the existing row")
	}

	if count := countRows(t, db, &Shortcut{}); count != 1 {
		t.Fatalf("expected one row after merge, got %d", count)
	}
	merged := shortcutByName(t, db, DefaultTenant, "Mail")
	if merged.ID != row.ID {
		t.Fatalf("expected merge to reuse id %d, got %d", row.ID, merged.ID)
	}
	if merged.ParentLabel != "Personal" || merged.ChildLabel != "email" {
		t.Fatalf("expected labels overwritten, got %q %q", merged.ParentLabel, merged.ChildLabel)
	}
	if merged.IconURL != "https://cdn.example.com/mail.png" {
		t.Fatalf("expected icon url overwritten, got %q", merged.IconURL)
	}
	if merged.Favorite != 1 || merged.Clicks != 7 {
		t.Fatalf("expected favorite and clicks untouched, got %d %d", merged.Favorite, merged.Clicks)
	}
}

func TestUpsertSeedsLabelColors(t *testing.T) {
	service, db := newTestService(t)

	mustUpsert(t, service, Payload{
		Name:        "Mail",
		URL:         "https://mail.example.com",
		ParentLabel: "Work",
		ChildLabel:  "email,web",
		ParentColor: "bg-sky-500",
		ChildColor:  "bg-rose-500",
	})

	snapshot, err := service.FetchData(context.Background(), DefaultTenant)
	if err != nil {
		t.Fatalf("unexpected fetch error: %v", err)
	}
	want := map[string]string{"Work": "bg-sky-500", "email": "bg-rose-500", "web": "bg-rose-500"}
	for name, color := range want {
		if snapshot.LabelColors[name] != color {
			t.Fatalf("expected label %q to map to %q, got %q", name, color, snapshot.LabelColors[name])
		}
	}
	if count := countRows(t, db, &LabelColor{}); count != 3 {
		t.Fatalf("expected three label rows, got %d", count)
	}
}

func TestUpdateOverwritesAndSweepsOrphans(t *testing.T) {
	service, db := newTestService(t)

	mustUpsert(t, service, Payload{
		Name:        "Mail",
		URL:         "https://mail.example.com",
		ParentLabel: "Work",
		ParentColor: "bg-sky-500",
	})
	row := shortcutByName(t, db, DefaultTenant, "Mail")

	err := service.Update(context.Background(), row.ID, mustNormalize(t, Payload{
		Name:        "Inbox",
		URL:         "https://mail.example.com/inbox",
		ParentLabel: "Personal",
		ParentColor: "bg-rose-500",
	}))
	if err != nil {
		t.Fatalf("unexpected update error: %v", err)
	}

	updated := shortcutByName(t, db, DefaultTenant, "Inbox")
	if updated.URL != "https://mail.example.com/inbox" || updated.ParentLabel != "Personal" {
		t.Fatalf("expected fields overwritten, got %+v", updated)
	}

	var orphans int64
	if err := db.Model(&LabelColor{}).Where("name = ?", "Work").Count(&orphans).Error; err != nil {
		t.Fatalf("failed to count labels: %v", err)
	}
	if orphans != 0 {
		t.Fatalf("expected the dropped label to be swept")
	}
}

func TestUpdateRejectsForeignTenant(t *testing.T) {
	service, db := newTestService(t)

	mustUpsert(t, service, Payload{Tenant: "team-a", Name: "Mail", URL: "https://mail.example.com"})
	row := shortcutByName(t, db, "team-a", "Mail")

	err := service.Update(context.Background(), row.ID, mustNormalize(t, Payload{
		Tenant: "team-b",
		Name:   "Hijack",
		URL:    "https://evil.example.com",
	}))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for cross-tenant update, got %v", err)
	}

	untouched := shortcutByName(t, db, "team-a", "Mail")
	if untouched.URL != "https://mail.example.com" {
		t.Fatalf("expected the foreign row untouched, got %q", untouched.URL)
	}
}

func TestDeleteRemovesRowAndSweepsOrphans(t *testing.T) {
	service, db := newTestService(t)

	mustUpsert(t, service, Payload{
		Name:        "Mail",
		URL:         "https://mail.example.com",
		ParentLabel: "Work",
		ChildLabel:  "email",
		ParentColor: "bg-sky-500",
		ChildColor:  "bg-rose-500",
	})
	mustUpsert(t, service, Payload{
		Name:        "Chat",
		URL:         "https://chat.example.com",
		ParentLabel: "Work",
	})
	row := shortcutByName(t, db, DefaultTenant, "Mail")

	if err := service.Delete(context.Background(), row.ID); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}

	if count := countRows(t, db, &Shortcut{}); count != 1 {
		t.Fatalf("expected one surviving row, got %d", count)
	}
	var labels []LabelColor
	if err := db.Find(&labels).Error; err != nil {
		t.Fatalf("failed to list labels: %v", err)
	}
	if len(labels) != 1 || labels[0].Name != "Work" {
		t.Fatalf("expected only the still-referenced label to survive, got %+v", labels)
	}
}

func TestDeleteUnknownID(t *testing.T) {
	service, _ := newTestService(t)
	if err := service.Delete(context.Background(), 424242); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRecordClickIncrementsAndLogs(t *testing.T) {
	service, db := newTestService(t)

	mustUpsert(t, service, Payload{Name: "Mail", URL: "https://mail.example.com"})
	row := shortcutByName(t, db, DefaultTenant, "Mail")

	for i := 0; i < 3; i++ {
		if err := service.RecordClick(context.Background(), row.ID); err != nil {
			t.Fatalf("unexpected click error: %v", err)
		}
	}

	clicked := shortcutByName(t, db, DefaultTenant, "Mail")
	if clicked.Clicks != 3 {
		t.Fatalf("expected three clicks, got %d", clicked.Clicks)
	}
	var logged int64
	if err := db.Model(&ClickLog{}).Where("shortcut_id = ?", row.ID).Count(&logged).Error; err != nil {
		t.Fatalf("failed to count click logs: %v", err)
	}
	if logged != 3 {
		t.Fatalf("expected three log rows, got %d", logged)
	}
}

func TestRecordClickUnknownIDWritesNothing(t *testing.T) {
	service, db := newTestService(t)

	if err := service.RecordClick(context.Background(), 424242); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if count := countRows(t, db, &ClickLog{}); count != 0 {
		t.Fatalf("expected no log rows, got %d", count)
	}
}

func TestToggleFavoriteFlips(t *testing.T) {
	service, db := newTestService(t)

	mustUpsert(t, service, Payload{Name: "Mail", URL: "https://mail.example.com"})
	row := shortcutByName(t, db, DefaultTenant, "Mail")

	next, err := service.ToggleFavorite(context.Background(), row.ID)
	if err != nil {
		t.Fatalf("unexpected toggle error: %v", err)
	}
	if next != 1 {
		t.Fatalf("expected first toggle to pin, got %d", next)
	}
	next, err = service.ToggleFavorite(context.Background(), row.ID)
	if err != nil {
		t.Fatalf("unexpected toggle error: %v", err)
	}
	if next != 0 {
		t.Fatalf("expected second toggle to unpin, got %d", next)
	}
}

func TestReorderAssignsOneBasedIndices(t *testing.T) {
	service, db := newTestService(t)

	mustUpsert(t, service, Payload{Name: "A", URL: "https://a.example.com"})
	mustUpsert(t, service, Payload{Name: "B", URL: "https://b.example.com"})
	mustUpsert(t, service, Payload{Name: "C", URL: "https://c.example.com"})
	a := shortcutByName(t, db, DefaultTenant, "A")
	b := shortcutByName(t, db, DefaultTenant, "B")
	c := shortcutByName(t, db, DefaultTenant, "C")

	if err := service.Reorder(context.Background(), DefaultTenant, []int64{c.ID, a.ID, b.ID}); err != nil {
		t.Fatalf("unexpected reorder error: %v", err)
	}

	want := map[string]int64{"C": 1, "A": 2, "B": 3}
	for name, index := range want {
		row := shortcutByName(t, db, DefaultTenant, name)
		if row.SortIndex != index {
			t.Fatalf("expected %q at index %d, got %d", name, index, row.SortIndex)
		}
	}
}

func TestReorderIgnoresForeignTenantIDs(t *testing.T) {
	service, db := newTestService(t)

	mustUpsert(t, service, Payload{Tenant: "team-a", Name: "Mail", URL: "https://mail.example.com"})
	foreign := shortcutByName(t, db, "team-a", "Mail")

	if err := service.Reorder(context.Background(), "team-b", []int64{foreign.ID}); err != nil {
		t.Fatalf("unexpected reorder error: %v", err)
	}
	row := shortcutByName(t, db, "team-a", "Mail")
	if row.SortIndex != 0 {
		t.Fatalf("expected foreign row untouched, got sort index %d", row.SortIndex)
	}
}

func TestFetchDataScopesAndOrders(t *testing.T) {
	service, db := newTestService(t)

	mustUpsert(t, service, Payload{Name: "Alpha", URL: "https://alpha.example.com"})
	mustUpsert(t, service, Payload{Name: "Beta", URL: "https://beta.example.com"})
	mustUpsert(t, service, Payload{Name: "Gamma", URL: "https://gamma.example.com"})
	mustUpsert(t, service, Payload{Tenant: "team-a", Name: "Other", URL: "https://other.example.com"})

	beta := shortcutByName(t, db, DefaultTenant, "Beta")
	if _, err := service.ToggleFavorite(context.Background(), beta.ID); err != nil {
		t.Fatalf("unexpected toggle error: %v", err)
	}
	alpha := shortcutByName(t, db, DefaultTenant, "Alpha")
	gamma := shortcutByName(t, db, DefaultTenant, "Gamma")
	if err := service.Reorder(context.Background(), DefaultTenant, []int64{gamma.ID, alpha.ID}); err != nil {
		t.Fatalf("unexpected reorder error: %v", err)
	}

	snapshot, err := service.FetchData(context.Background(), DefaultTenant)
	if err != nil {
		t.Fatalf("unexpected fetch error: %v", err)
	}
	if len(snapshot.Shortcuts) != 3 {
		t.Fatalf("expected three rows in the default tenant, got %d", len(snapshot.Shortcuts))
	}
	var names []string
	for _, row := range snapshot.Shortcuts {
		names = append(names, row.Name)
	}
	want := []string{"Beta", "Gamma", "Alpha"}
	for i, name := range want {
		if names[i] != name {
			t.Fatalf("expected order %v, got %v", want, names)
		}
	}
}
