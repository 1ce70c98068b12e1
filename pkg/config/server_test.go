package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadServerConfigDefaults(t *testing.T) {
	cfg, err := LoadServerConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Addr != ":8000" {
		t.Errorf("expected default addr :8000, got %q", cfg.Addr)
	}
	if cfg.AEMServerURL != "http://localhost:4502" {
		t.Errorf("unexpected AEM url %q", cfg.AEMServerURL)
	}
	if cfg.MavenProfiles != "adobe-public,autoInstallPackage" {
		t.Errorf("unexpected profiles %q", cfg.MavenProfiles)
	}
	if !cfg.SkipTests {
		t.Error("expected skip_tests default true")
	}
}

func TestLoadServerConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dxp.toml")
	content := `
[server]
addr = ":9000"

[aem]
url = "http://author.example.com:4502"
username = "deployer"
mock_mode = true

[maven]
project_path = "/srv/aem/project"
skip_tests = false
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DXP_CONFIG_FILE", path)

	cfg, err := LoadServerConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Addr != ":9000" {
		t.Errorf("expected addr from file, got %q", cfg.Addr)
	}
	if cfg.AEMServerURL != "http://author.example.com:4502" {
		t.Errorf("expected AEM url from file, got %q", cfg.AEMServerURL)
	}
	if cfg.AEMUsername != "deployer" {
		t.Errorf("expected username from file, got %q", cfg.AEMUsername)
	}
	if !cfg.MockMode {
		t.Error("expected mock_mode from file")
	}
	if cfg.SkipTests {
		t.Error("expected skip_tests=false from file")
	}
	if cfg.ProjectPath != "/srv/aem/project" {
		t.Errorf("expected project path from file, got %q", cfg.ProjectPath)
	}
}

func TestLoadServerConfigEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dxp.toml")
	if err := os.WriteFile(path, []byte("[aem]\nurl = \"http://fromfile:4502\"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DXP_CONFIG_FILE", path)
	t.Setenv("AEM_AUTHOR_URL", "http://fromenv:4502")

	cfg, err := LoadServerConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.AEMServerURL != "http://fromenv:4502" {
		t.Errorf("expected env to win, got %q", cfg.AEMServerURL)
	}
}

func TestLoadServerConfigBadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dxp.toml")
	if err := os.WriteFile(path, []byte("not [valid toml"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DXP_CONFIG_FILE", path)

	if _, err := LoadServerConfig(); err == nil {
		t.Fatal("expected error for malformed config file")
	}
}
