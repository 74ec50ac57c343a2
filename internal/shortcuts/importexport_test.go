package shortcuts

import (
	"context"
	"testing"
)

func TestImportBatchCreatesAndSkipsMalformed(t *testing.T) {
	service, db := newTestService(t)

	err := service.ImportBatch(context.Background(), DefaultTenant, []ImportShortcut{
		{Name: "Mail", URL: "https://mail.example.com", Favorite: 1, Clicks: 5},
		{Name: "", URL: "https://nameless.example.com"},
		{Name: "Broken", URL: "not a url"},
		{Name: "Files", URL: "ftp://files.example.com"},
		{Name: "Chat", URL: "https://chat.example.com", Clicks: -3},
	}, nil)
	if err != nil {
		t.Fatalf("unexpected import error: %v", err)
	}

	if count := countRows(t, db, &Shortcut{}); count != 2 {
		t.Fatalf("expected only the valid items imported, got %d rows", count)
	}
	mail := shortcutByName(t, db, DefaultTenant, "Mail")
	if mail.Favorite != 1 || mail.Clicks != 5 {
		t.Fatalf("expected imported counters kept, got favorite=%d clicks=%d", mail.Favorite, mail.Clicks)
	}
	chat := shortcutByName(t, db, DefaultTenant, "Chat")
	if chat.Clicks != 0 {
		t.Fatalf("expected negative clicks clamped to zero, got %d", chat.Clicks)
	}
}

func TestImportBatchMergesCounters(t *testing.T) {
	service, db := newTestService(t)

	mustUpsert(t, service, Payload{Name: "Mail", URL: "https://mail.example.com"})
	row := shortcutByName(t, db, DefaultTenant, "Mail")
	if err := db.Model(&Shortcut{}).Where("id = ?", row.ID).Updates(map[string]interface{}{
		"clicks":   10,
		"favorite": 1,
	}).Error; err != nil {
		t.Fatalf("failed to seed counters: %v", err)
	}

	err := service.ImportBatch(context.Background(), DefaultTenant, []ImportShortcut{
		{Name: "Mail", URL: "https://mail.example.com", Favorite: 0, Clicks: 4, ParentLabel: "Work"},
	}, nil)
	if err != nil {
		t.Fatalf("unexpected import error: %v", err)
	}

	merged := shortcutByName(t, db, DefaultTenant, "Mail")
	if merged.Clicks != 14 {
		t.Fatalf("expected clicks summed to 14, got %d", merged.Clicks)
	}
	if merged.Favorite != 1 {
		t.Fatalf("expected favorite to keep the maximum, got %d", merged.Favorite)
	}
	if merged.ParentLabel != "Work" {
		t.Fatalf("expected labels overwritten, got %q", merged.ParentLabel)
	}
	if count := countRows(t, db, &Shortcut{}); count != 1 {
		t.Fatalf("expected one row after merge, got %d", count)
	}
}

func TestImportBatchResolvesItemTenant(t *testing.T) {
	service, db := newTestService(t)

	err := service.ImportBatch(context.Background(), "team-a", []ImportShortcut{
		{Name: "Mail", URL: "https://mail.example.com"},
		{Tenant: "team-b", Name: "Chat", URL: "https://chat.example.com"},
	}, []ImportLabel{
		{Name: "Work", ColorClass: "bg-sky-500"},
	})
	if err != nil {
		t.Fatalf("unexpected import error: %v", err)
	}

	shortcutByName(t, db, "team-a", "Mail")
	shortcutByName(t, db, "team-b", "Chat")

	var labels []LabelColor
	if err := db.Find(&labels).Error; err != nil {
		t.Fatalf("failed to list labels: %v", err)
	}
	// The batch label names neither tenant's shortcuts, so the sweep drops it.
	if len(labels) != 0 {
		t.Fatalf("expected the unreferenced batch label swept, got %+v", labels)
	}
}

func TestImportBatchKeepsReferencedLabels(t *testing.T) {
	service, db := newTestService(t)

	err := service.ImportBatch(context.Background(), DefaultTenant, []ImportShortcut{
		{Name: "Mail", URL: "https://mail.example.com", ParentLabel: "Work", ChildLabel: "email"},
	}, []ImportLabel{
		{Name: "Work", ColorClass: "bg-sky-500"},
		{Name: "email", ColorClass: "bg-rose-500"},
		{Name: "Stale", ColorClass: "bg-zinc-500"},
	})
	if err != nil {
		t.Fatalf("unexpected import error: %v", err)
	}

	var labels []LabelColor
	if err := db.Order("name ASC").Find(&labels).Error; err != nil {
		t.Fatalf("failed to list labels: %v", err)
	}
	if len(labels) != 2 || labels[0].Name != "Work" || labels[1].Name != "email" {
		t.Fatalf("expected only referenced labels to survive, got %+v", labels)
	}
}

func TestExportImportRoundTripIsIdempotent(t *testing.T) {
	service, db := newTestService(t)

	mustUpsert(t, service, Payload{
		Name:        "Mail",
		URL:         "https://mail.example.com",
		ParentLabel: "Work",
		ChildLabel:  "email",
		ParentColor: "bg-sky-500",
		ChildColor:  "bg-rose-500",
	})
	mustUpsert(t, service, Payload{Name: "Chat", URL: "https://chat.example.com"})
	row := shortcutByName(t, db, DefaultTenant, "Mail")
	if err := db.Model(&Shortcut{}).Where("id = ?", row.ID).Updates(map[string]interface{}{
		"clicks":   21,
		"favorite": 1,
	}).Error; err != nil {
		t.Fatalf("failed to seed counters: %v", err)
	}

	snapshot, err := service.Export(context.Background(), DefaultTenant)
	if err != nil {
		t.Fatalf("unexpected export error: %v", err)
	}
	if len(snapshot.Shortcuts) != 2 || len(snapshot.Labels) != 3 {
		t.Fatalf("unexpected snapshot shape: %d shortcuts, %d labels", len(snapshot.Shortcuts), len(snapshot.Labels))
	}
	for _, item := range snapshot.Shortcuts {
		if item.Clicks != 0 {
			t.Fatalf("expected click counters stripped from the export, got %d", item.Clicks)
		}
	}

	if err := service.ImportBatch(context.Background(), DefaultTenant, snapshot.Shortcuts, snapshot.Labels); err != nil {
		t.Fatalf("unexpected re-import error: %v", err)
	}

	if count := countRows(t, db, &Shortcut{}); count != 2 {
		t.Fatalf("expected no duplicate rows after re-import, got %d", count)
	}
	mail := shortcutByName(t, db, DefaultTenant, "Mail")
	if mail.Clicks != 21 || mail.Favorite != 1 {
		t.Fatalf("expected counters unchanged after re-import, got clicks=%d favorite=%d", mail.Clicks, mail.Favorite)
	}

	again, err := service.Export(context.Background(), DefaultTenant)
	if err != nil {
		t.Fatalf("unexpected export error: %v", err)
	}
	if len(again.Shortcuts) != len(snapshot.Shortcuts) || len(again.Labels) != len(snapshot.Labels) {
		t.Fatalf("expected identical snapshot after re-import")
	}
}
