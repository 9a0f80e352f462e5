package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadProjectConfigDefaultsWhenMissing(t *testing.T) {
	projectDir := t.TempDir()
	dataDir := filepath.Join(projectDir, ".devmatch")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		t.Fatal(err)
	}
	c := &Config{ProjectDir: projectDir, DataProjectDir: dataDir, Project: defaultProjectConfig()}
	if err := c.loadProjectConfig(); err != nil {
		t.Fatalf("loadProjectConfig returned error: %v", err)
	}
	if c.Project.Version != 1 {
		t.Fatalf("expected default version == 1, got %d", c.Project.Version)
	}
	if c.BaseURL() != defaultBaseURL {
		t.Fatalf("expected default base url %q, got %q", defaultBaseURL, c.BaseURL())
	}
	if c.Project.Feed.RefillDelay != time.Second {
		t.Fatalf("expected 1s refill delay, got %s", c.Project.Feed.RefillDelay)
	}
}

func TestInitDataDirWritesParsableTemplate(t *testing.T) {
	projectDir := t.TempDir()
	t.Setenv("DEVMATCH_API_URL", "")
	if err := InitDataDir(projectDir); err != nil {
		t.Fatalf("init data dir: %v", err)
	}
	cfg, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("new config: %v", err)
	}
	th := cfg.Thresholds()
	if th.AxisLock != 10 || th.Direction != 50 || th.Commit != 100 {
		t.Fatalf("unexpected thresholds: %+v", th)
	}
	w, h := cfg.CellScale()
	if w != 8 || h != 8 {
		t.Fatalf("unexpected cell scale %vx%v", w, h)
	}
	if cfg.Project.Bridge.Enabled == nil || *cfg.Project.Bridge.Enabled {
		t.Fatalf("expected bridge disabled by template")
	}
}

func TestLoadProjectConfigParsesYaml(t *testing.T) {
	projectDir := t.TempDir()
	dataDir := filepath.Join(projectDir, ".devmatch")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		t.Fatal(err)
	}
	configYAML := strings.TrimSpace(`
version: 1
api:
  base_url: https://api.example.test/
  read_timeout: 2s
feed:
  refill_delay: 250ms
gesture:
  commit: 80
  direction: 40
`)
	if err := os.WriteFile(filepath.Join(dataDir, "config.yaml"), []byte(configYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	c := &Config{ProjectDir: projectDir, DataProjectDir: dataDir, Project: defaultProjectConfig()}
	if err := c.loadProjectConfig(); err != nil {
		t.Fatalf("loadProjectConfig returned error: %v", err)
	}
	if c.BaseURL() != "https://api.example.test" {
		t.Fatalf("expected trailing slash trimmed, got %s", c.BaseURL())
	}
	if c.Project.API.ReadTimeout != 2*time.Second {
		t.Fatalf("read timeout = %s", c.Project.API.ReadTimeout)
	}
	if c.Project.API.WriteTimeout != defaultWriteTimeout {
		t.Fatalf("write timeout should default, got %s", c.Project.API.WriteTimeout)
	}
	if c.Project.Feed.RefillDelay != 250*time.Millisecond {
		t.Fatalf("refill delay = %s", c.Project.Feed.RefillDelay)
	}
	if th := c.Thresholds(); th.Commit != 80 || th.Direction != 40 || th.AxisLock != 10 {
		t.Fatalf("unexpected thresholds %+v", th)
	}
}

func TestLoadProjectConfigValidation(t *testing.T) {
	projectDir := t.TempDir()
	dataDir := filepath.Join(projectDir, ".devmatch")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		t.Fatal(err)
	}
	configYAML := strings.TrimSpace(`
version: 1
gesture:
  direction: 120
  commit: 100
`)
	if err := os.WriteFile(filepath.Join(dataDir, "config.yaml"), []byte(configYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	c := &Config{ProjectDir: projectDir, DataProjectDir: dataDir, Project: defaultProjectConfig()}
	if err := c.loadProjectConfig(); err == nil {
		t.Fatalf("expected validation error but got none")
	}
}

func TestEnvOverridesWin(t *testing.T) {
	projectDir := t.TempDir()
	t.Setenv("DEVMATCH_API_URL", "https://override.example.test")
	t.Setenv("DEVMATCH_PASSWORD", "s3cret")
	t.Setenv("DEVMATCH_REFILL_DELAY", "3s")
	t.Setenv("DEVMATCH_BRIDGE_ENABLED", "true")
	cfg, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("new config: %v", err)
	}
	if cfg.BaseURL() != "https://override.example.test" {
		t.Fatalf("base url = %s", cfg.BaseURL())
	}
	if cfg.Project.Auth.Password != "s3cret" {
		t.Fatalf("password override missing")
	}
	if cfg.Project.Feed.RefillDelay != 3*time.Second {
		t.Fatalf("refill delay = %s", cfg.Project.Feed.RefillDelay)
	}
	if cfg.Project.Bridge.Enabled == nil || !*cfg.Project.Bridge.Enabled {
		t.Fatalf("expected bridge enabled from env")
	}
}

func TestEnvFileIsLoaded(t *testing.T) {
	projectDir := t.TempDir()
	envPath := filepath.Join(projectDir, ".env")
	if err := os.WriteFile(envPath, []byte("DEVMATCH_EMAIL=ada@example.test\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DEVMATCH_EMAIL", "")
	os.Unsetenv("DEVMATCH_EMAIL")
	cfg, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("new config: %v", err)
	}
	if cfg.Project.Auth.Email != "ada@example.test" {
		t.Fatalf("expected email from .env, got %q", cfg.Project.Auth.Email)
	}
}

func TestSetBaseURLPersistsWithoutPassword(t *testing.T) {
	projectDir := t.TempDir()
	t.Setenv("DEVMATCH_PASSWORD", "hunter2")
	if err := InitDataDir(projectDir); err != nil {
		t.Fatal(err)
	}
	cfg, err := NewConfig(projectDir)
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.SetBaseURL("https://saved.example.test"); err != nil {
		t.Fatalf("set base url: %v", err)
	}
	data, err := os.ReadFile(cfg.ProjectConfigPath())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "https://saved.example.test") {
		t.Fatalf("base url not persisted:\n%s", data)
	}
	if strings.Contains(string(data), "hunter2") {
		t.Fatalf("password must never be written to disk")
	}
}
