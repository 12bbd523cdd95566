package config

import (
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("KITCHIN_SESSION_SECRET", testSecret)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want %q", cfg.Port, "8080")
	}
	if cfg.DBPath != "kitchin.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "kitchin.db")
	}
	if cfg.Push.ExpiryWindow != 48*time.Hour {
		t.Errorf("ExpiryWindow = %v, want 48h", cfg.Push.ExpiryWindow)
	}
	if cfg.FoodFacts.BaseURL != "https://world.openfoodfacts.org" {
		t.Errorf("FoodFacts.BaseURL = %q", cfg.FoodFacts.BaseURL)
	}
	if cfg.Push.Enabled() {
		t.Error("push should be disabled without VAPID keys")
	}
	if cfg.Backup.Enabled() {
		t.Error("backup should be disabled without a bucket")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("KITCHIN_SESSION_SECRET", testSecret)
	t.Setenv("KITCHIN_PORT", "9090")
	t.Setenv("KITCHIN_LOG_FORMAT", "json")
	t.Setenv("KITCHIN_EXPIRY_WINDOW", "72h")
	t.Setenv("KITCHIN_BACKUP_S3_BUCKET", "kitchin-backups")
	t.Setenv("KITCHIN_BACKUP_S3_ACCESS_KEY", "key")
	t.Setenv("KITCHIN_BACKUP_S3_SECRET_KEY", "secret")
	t.Setenv("KITCHIN_BACKUP_PASSPHRASE", "correct horse battery staple")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want %q", cfg.Port, "9090")
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, want json", cfg.LogFormat)
	}
	if cfg.Push.ExpiryWindow != 72*time.Hour {
		t.Errorf("ExpiryWindow = %v, want 72h", cfg.Push.ExpiryWindow)
	}
	if !cfg.Backup.Enabled() {
		t.Error("backup should be enabled")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret", map[string]string{}},
		{"short secret", map[string]string{"KITCHIN_SESSION_SECRET": "short"}},
		{"bad log format", map[string]string{"KITCHIN_SESSION_SECRET": testSecret, "KITCHIN_LOG_FORMAT": "xml"}},
		{"half vapid", map[string]string{"KITCHIN_SESSION_SECRET": testSecret, "KITCHIN_VAPID_PUBLIC_KEY": "pub"}},
		{"bucket without passphrase", map[string]string{"KITCHIN_SESSION_SECRET": testSecret, "KITCHIN_BACKUP_S3_BUCKET": "b"}},
		{"bad duration", map[string]string{"KITCHIN_SESSION_SECRET": testSecret, "KITCHIN_EXPIRY_WINDOW": "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("KITCHIN_SESSION_SECRET", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Error("expected error")
			}
		})
	}
}
