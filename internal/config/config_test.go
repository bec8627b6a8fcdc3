package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	t.Run("defaults_without_file", func(t *testing.T) {
		t.Setenv("BUDGETHQ_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))

		cfg, err := Load()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Server.Port != "8080" {
			t.Errorf("expected port 8080, got %s", cfg.Server.Port)
		}
		if !cfg.Ledger.RequireReconciliation {
			t.Error("expected reconciliation to be required by default")
		}
		if cfg.Auth.AccessTTL != 15*time.Minute {
			t.Errorf("expected 15m access ttl, got %s", cfg.Auth.AccessTTL)
		}
	})

	t.Run("toml_then_env", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "budgethq.toml")
		body := `
[server]
port = "9090"

[database]
driver = "sqlite"
sqlite_path = "/tmp/ledger.db"

[ledger]
require_reconciliation = false
`
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}
		t.Setenv("BUDGETHQ_CONFIG", path)
		t.Setenv("PORT", "7070")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Server.Port != "7070" {
			t.Errorf("expected env override 7070, got %s", cfg.Server.Port)
		}
		if cfg.Database.Driver != "sqlite" {
			t.Errorf("expected sqlite driver, got %s", cfg.Database.Driver)
		}
		if cfg.Database.URL() != "sqlite3:///tmp/ledger.db" {
			t.Errorf("unexpected url %s", cfg.Database.URL())
		}
		if cfg.Ledger.RequireReconciliation {
			t.Error("expected reconciliation flag from file")
		}
	})

	t.Run("bad_toml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.toml")
		if err := os.WriteFile(path, []byte("[server\nport="), 0o600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}
		t.Setenv("BUDGETHQ_CONFIG", path)

		if _, err := Load(); err == nil {
			t.Fatal("expected parse error")
		}
	})

	t.Run("invalid_duration_falls_back", func(t *testing.T) {
		t.Setenv("BUDGETHQ_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))
		t.Setenv("JWT_REFRESH_TTL", "forever")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Auth.RefreshTTL != 7*24*time.Hour {
			t.Errorf("expected fallback ttl, got %s", cfg.Auth.RefreshTTL)
		}
	})
}
