package shortcuts

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	if err := db.AutoMigrate(&Shortcut{}, &LabelColor{}, &ClickLog{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	return db
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	service, err := NewService(ServiceConfig{
		Database: db,
		Clock:    func() time.Time { return time.Unix(1771000000, 0) },
	})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
	return service, db
}

func mustNormalize(t *testing.T, payload Payload) NormalizedShortcut {
	t.Helper()
	rec, err := Normalize(payload)
	if err != nil {
		t.Fatalf("unexpected normalize error: %v", err)
	}
	return rec
}

func mustUpsert(t *testing.T, service *Service, payload Payload) {
	t.Helper()
	if _, err := service.Upsert(context.Background(), mustNormalize(t, payload)); err != nil {
		t.Fatalf("unexpected upsert error: %v", err)
	}
}

func shortcutByName(t *testing.T, db *gorm.DB, tenant, name string) Shortcut {
	t.Helper()
	var row Shortcut
	if err := db.Where("tenant = ? AND name = ?", tenant, name).Take(&row).Error; err != nil {
		t.Fatalf("failed to load shortcut %q: %v", name, err)
	}
	return row
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var count int64
	if err := db.Model(model).Count(&count).Error; err != nil {
		t.Fatalf("failed to count rows: %v", err)
	}
	return count
}
