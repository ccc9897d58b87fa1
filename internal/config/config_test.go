package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"depot/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Expected missing file to be fine: %v", err)
	}
	if cfg.Port != 9000 {
		t.Errorf("Expected default port 9000, got %d", cfg.Port)
	}
	if cfg.DBPath != "depot.db" {
		t.Errorf("Expected default db path, got %s", cfg.DBPath)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "depot.yaml")
	if err := os.WriteFile(path, []byte("port: 8080\ndb_path: /tmp/test.db\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("Expected port 8080, got %d", cfg.Port)
	}
	if cfg.DBPath != "/tmp/test.db" {
		t.Errorf("Expected /tmp/test.db, got %s", cfg.DBPath)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DEPOT_COMPANY_NAME", "Depot Test Co")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.CompanyName != "Depot Test Co" {
		t.Errorf("Expected env override, got %s", cfg.CompanyName)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("port: [not a number"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := config.Load(path); err == nil {
		t.Error("Expected error for invalid YAML")
	}
}
