package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(NewViper())
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}

	if cfg.HTTPAddress != "0.0.0.0:5464" {
		t.Fatalf("unexpected http address: %q", cfg.HTTPAddress)
	}
	if cfg.DatabasePath != "data/shortcuts.db" {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath)
	}
	if cfg.StaticDir != "dist" {
		t.Fatalf("unexpected static dir: %q", cfg.StaticDir)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("unexpected log level: %q", cfg.LogLevel)
	}
	if cfg.ClickLogRetentionDays != 30 {
		t.Fatalf("unexpected retention: %d", cfg.ClickLogRetentionDays)
	}
	if cfg.AdminUsername != "admin" || cfg.AdminPassword != "miniappadmin" {
		t.Fatalf("unexpected admin defaults: %q %q", cfg.AdminUsername, cfg.AdminPassword)
	}
}

func TestLoadOverrides(t *testing.T) {
	configViper := NewViper()
	configViper.Set("http.address", "127.0.0.1:9000")
	configViper.Set("retention.click_log_days", 7)

	cfg, err := Load(configViper)
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if cfg.HTTPAddress != "127.0.0.1:9000" {
		t.Fatalf("unexpected http address: %q", cfg.HTTPAddress)
	}
	if cfg.ClickLogRetentionDays != 7 {
		t.Fatalf("unexpected retention: %d", cfg.ClickLogRetentionDays)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("LAUNCHBOARD_HTTP_ADDRESS", "127.0.0.1:8088")

	cfg, err := Load(NewViper())
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if cfg.HTTPAddress != "127.0.0.1:8088" {
		t.Fatalf("expected the environment override, got %q", cfg.HTTPAddress)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		key   string
		value interface{}
	}{
		{"http.address", "  "},
		{"database.path", ""},
		{"admin.username", " "},
		{"retention.click_log_days", -1},
	}
	for _, tc := range cases {
		configViper := NewViper()
		configViper.Set(tc.key, tc.value)
		if _, err := Load(configViper); err == nil {
			t.Fatalf("expected a validation error for %s=%v", tc.key, tc.value)
		}
	}
}
