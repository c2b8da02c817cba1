package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testSecret = "test-secret-key-at-least-32-chars!"

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
site:
  name: "Test Store"
  url: "https://shop.example.com"
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
server:
  host: "0.0.0.0"
  port: 8080
identity:
  jwt_secret: "` + testSecret + `"
  cookie_prefix: "sf"
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Site.Name != "Test Store" {
		t.Errorf("Site.Name = %q, want %q", cfg.Site.Name, "Test Store")
	}
	if cfg.Site.URL != "https://shop.example.com" {
		t.Errorf("Site.URL = %q, want %q", cfg.Site.URL, "https://shop.example.com")
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}
}

func TestLoad_Defaults(t *testing.T) {
	content := `
identity:
  jwt_secret: "` + testSecret + `"
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Identity.AccessTokenTTL != 15 {
		t.Errorf("Identity.AccessTokenTTL = %d, want 15", cfg.Identity.AccessTokenTTL)
	}
	if cfg.Identity.CookiePrefix != "sf" {
		t.Errorf("Identity.CookiePrefix = %q, want %q", cfg.Identity.CookiePrefix, "sf")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	content := `
database:
  path: "/tmp/file.db"
identity:
  jwt_secret: "` + testSecret + `"
`
	t.Setenv("STOREFRONT_DATABASE_PATH", "/tmp/env.db")
	t.Setenv("STOREFRONT_SERVER_PORT", "9090")

	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "/tmp/env.db" {
		t.Errorf("Database.Path = %q, want env override %q", cfg.Database.Path, "/tmp/env.db")
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want env override 9090", cfg.Server.Port)
	}
}

func TestValidate_MissingJWTSecret(t *testing.T) {
	content := `
database:
  path: "/tmp/test.db"
`
	_, err := Load(writeConfig(t, content))
	if err == nil {
		t.Fatal("Load() expected error for missing jwt_secret, got nil")
	}
	if !strings.Contains(err.Error(), "jwt_secret") {
		t.Errorf("error = %v, want mention of jwt_secret", err)
	}
}

func TestValidate_ShortJWTSecret(t *testing.T) {
	content := `
identity:
  jwt_secret: "too-short"
`
	_, err := Load(writeConfig(t, content))
	if err == nil {
		t.Fatal("Load() expected error for short jwt_secret, got nil")
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	content := `
server:
  port: 99999
identity:
  jwt_secret: "` + testSecret + `"
`
	_, err := Load(writeConfig(t, content))
	if err == nil {
		t.Fatal("Load() expected error for invalid port, got nil")
	}
}
