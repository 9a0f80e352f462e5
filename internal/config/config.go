// internal/config/config.go
//
// This package handles configuration and the .devmatch directory structure.
// The client keeps its config, logs and activity journal in a .devmatch/
// folder under the directory it was started from.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kingrea/devmatch/internal/gesture"
)

const (
	// DataDir is the name of the directory we create in the working directory
	DataDir = ".devmatch"

	defaultBaseURL      = "http://localhost:3000"
	defaultReadTimeout  = 5 * time.Second
	defaultWriteTimeout = 8 * time.Second
	defaultRefillDelay  = time.Second
	defaultNoticeTTL    = 3 * time.Second
	defaultCellWidth    = 8
	defaultCellHeight   = 8
	defaultBridgeHost   = "127.0.0.1"
	defaultBridgePort   = 8799
	defaultBridgeLimit  = 60
)

const defaultProjectConfigYAML = `# devmatch client configuration
version: 1

api:
  base_url: http://localhost:3000
  read_timeout: 5s
  write_timeout: 8s

# Credentials may also come from DEVMATCH_EMAIL / DEVMATCH_PASSWORD or a .env file.
auth:
  email: ""

feed:
  # Delay before refilling an exhausted feed.
  refill_delay: 1s
  notice_ttl: 3s

# Swipe thresholds in logical pixels; terminal cells are scaled by cell_width/cell_height.
gesture:
  axis_lock: 10
  direction: 50
  commit: 100
  cell_width: 8
  cell_height: 8

# Loopback diagnostics server exposing /health, /metrics and /state.
bridge:
  enabled: false
  host: 127.0.0.1
  port: 8799
  rate_limit: 60
`

// APIConfig points the client at the backend.
type APIConfig struct {
	BaseURL      string        `yaml:"base_url"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// AuthConfig holds login credentials. The password is only ever read from the
// environment and is never written back to disk.
type AuthConfig struct {
	Email    string `yaml:"email"`
	Password string `yaml:"-"`
}

// FeedConfig tunes the decision feed.
type FeedConfig struct {
	RefillDelay time.Duration `yaml:"refill_delay"`
	NoticeTTL   time.Duration `yaml:"notice_ttl"`
}

// GestureConfig captures swipe thresholds and the cell to pixel scale.
type GestureConfig struct {
	AxisLock   float64 `yaml:"axis_lock"`
	Direction  float64 `yaml:"direction"`
	Commit     float64 `yaml:"commit"`
	CellWidth  float64 `yaml:"cell_width"`
	CellHeight float64 `yaml:"cell_height"`
}

// BridgeConfig configures the diagnostics server.
type BridgeConfig struct {
	Enabled   *bool  `yaml:"enabled,omitempty"`
	Host      string `yaml:"host,omitempty"`
	Port      int    `yaml:"port,omitempty"`
	RateLimit int    `yaml:"rate_limit,omitempty"`
}

// ProjectConfig models .devmatch/config.yaml.
type ProjectConfig struct {
	Version int           `yaml:"version"`
	API     APIConfig     `yaml:"api"`
	Auth    AuthConfig    `yaml:"auth"`
	Feed    FeedConfig    `yaml:"feed"`
	Gesture GestureConfig `yaml:"gesture"`
	Bridge  BridgeConfig  `yaml:"bridge"`
}

// Config holds the runtime configuration for the client.
type Config struct {
	// ProjectDir is the directory the client was started from
	ProjectDir string

	// DataProjectDir is ProjectDir/.devmatch
	DataProjectDir string

	Project ProjectConfig
}

// InitDataDir creates the .devmatch directory structure in the given directory.
//
// Structure created:
// .devmatch/
// ├── config.yaml
// ├── logs/         <- diagnostic log and the activity journal
// └── state/        <- reserved for cached session data
func InitDataDir(projectDir string) error {
	dataDir := filepath.Join(projectDir, DataDir)
	dirs := []string{
		filepath.Join(dataDir, "logs"),
		filepath.Join(dataDir, "state"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return ensureProjectConfig(filepath.Join(dataDir, "config.yaml"))
}

// NewConfig loads .env, the project config file and environment overrides.
func NewConfig(projectDir string) (*Config, error) {
	_ = godotenv.Load(filepath.Join(projectDir, ".env"))

	cfg := &Config{
		ProjectDir:     projectDir,
		DataProjectDir: filepath.Join(projectDir, DataDir),
		Project:        defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	cfg.Project.applyEnvOverrides()
	cfg.Project.normalize()
	if err := cfg.Project.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataProjectDir, "logs")
}

// LogPath is the diagnostic log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.LogsDir(), "devmatch.log")
}

// JournalPath is the user-facing activity journal.
func (c *Config) JournalPath() string {
	return filepath.Join(c.LogsDir(), "activity.log")
}

// ProjectConfigPath returns the on-disk location for the config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.DataProjectDir, "config.yaml")
}

// BaseURL returns the API root without a trailing slash.
func (c *Config) BaseURL() string {
	return c.Project.API.BaseURL
}

// Thresholds converts the gesture section into tracker thresholds.
func (c *Config) Thresholds() gesture.Thresholds {
	g := c.Project.Gesture
	return gesture.Thresholds{AxisLock: g.AxisLock, Direction: g.Direction, Commit: g.Commit}
}

// CellScale returns the logical pixel size of one terminal cell.
func (c *Config) CellScale() (float64, float64) {
	return c.Project.Gesture.CellWidth, c.Project.Gesture.CellHeight
}

// SetBaseURL updates the API root and persists it to .devmatch/config.yaml.
func (c *Config) SetBaseURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("config: base url is required")
	}
	c.Project.API.BaseURL = raw
	return c.saveProjectConfig()
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	parsed := defaultProjectConfig()
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	parsed.applyDefaults()
	parsed.normalize()
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Project = parsed
	return nil
}

func defaultProjectConfig() ProjectConfig {
	pc := ProjectConfig{Version: 1}
	pc.applyDefaults()
	return pc
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if strings.TrimSpace(pc.API.BaseURL) == "" {
		pc.API.BaseURL = defaultBaseURL
	}
	if pc.API.ReadTimeout <= 0 {
		pc.API.ReadTimeout = defaultReadTimeout
	}
	if pc.API.WriteTimeout <= 0 {
		pc.API.WriteTimeout = defaultWriteTimeout
	}
	if pc.Feed.RefillDelay <= 0 {
		pc.Feed.RefillDelay = defaultRefillDelay
	}
	if pc.Feed.NoticeTTL <= 0 {
		pc.Feed.NoticeTTL = defaultNoticeTTL
	}
	def := gesture.DefaultThresholds()
	if pc.Gesture.AxisLock <= 0 {
		pc.Gesture.AxisLock = def.AxisLock
	}
	if pc.Gesture.Direction <= 0 {
		pc.Gesture.Direction = def.Direction
	}
	if pc.Gesture.Commit <= 0 {
		pc.Gesture.Commit = def.Commit
	}
	if pc.Gesture.CellWidth <= 0 {
		pc.Gesture.CellWidth = defaultCellWidth
	}
	if pc.Gesture.CellHeight <= 0 {
		pc.Gesture.CellHeight = defaultCellHeight
	}
	if strings.TrimSpace(pc.Bridge.Host) == "" {
		pc.Bridge.Host = defaultBridgeHost
	}
	if pc.Bridge.Port == 0 {
		pc.Bridge.Port = defaultBridgePort
	}
	if pc.Bridge.RateLimit <= 0 {
		pc.Bridge.RateLimit = defaultBridgeLimit
	}
}

// applyEnvOverrides layers DEVMATCH_* variables on top of the file.
func (pc *ProjectConfig) applyEnvOverrides() {
	if v := getEnv("DEVMATCH_API_URL"); v != "" {
		pc.API.BaseURL = v
	}
	if v := getEnv("DEVMATCH_EMAIL"); v != "" {
		pc.Auth.Email = v
	}
	if v := getEnv("DEVMATCH_PASSWORD"); v != "" {
		pc.Auth.Password = v
	}
	if d, ok := getDuration("DEVMATCH_REFILL_DELAY"); ok {
		pc.Feed.RefillDelay = d
	}
	if v := getEnv("DEVMATCH_BRIDGE_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			pc.Bridge.Enabled = &enabled
		}
	}
	if v := getEnv("DEVMATCH_BRIDGE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			pc.Bridge.Port = port
		}
	}
}

func (pc *ProjectConfig) normalize() {
	pc.API.BaseURL = strings.TrimRight(strings.TrimSpace(pc.API.BaseURL), "/")
	pc.Auth.Email = strings.TrimSpace(pc.Auth.Email)
	pc.Bridge.Host = strings.TrimSpace(pc.Bridge.Host)
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	u, err := url.Parse(pc.API.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("api.base_url must be an absolute http(s) url, got %q", pc.API.BaseURL)
	}
	g := pc.Gesture
	if g.Direction >= g.Commit {
		return fmt.Errorf("gesture.direction (%v) must be below gesture.commit (%v)", g.Direction, g.Commit)
	}
	if g.AxisLock >= g.Commit {
		return fmt.Errorf("gesture.axis_lock (%v) must be below gesture.commit (%v)", g.AxisLock, g.Commit)
	}
	if pc.Bridge.Port < 0 || pc.Bridge.Port > 65535 {
		return fmt.Errorf("bridge.port %d out of range", pc.Bridge.Port)
	}
	return nil
}

func getEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func getDuration(key string) (time.Duration, bool) {
	v := getEnv(key)
	if v == "" {
		return 0, false
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, false
	}
	return d, true
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0o644)
}

func (c *Config) saveProjectConfig() error {
	if c == nil {
		return fmt.Errorf("config: nil receiver")
	}
	c.Project.applyDefaults()
	c.Project.normalize()
	if err := c.Project.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.MkdirAll(c.DataProjectDir, 0o755); err != nil {
		return fmt.Errorf("config: ensure data dir: %w", err)
	}
	data, err := yaml.Marshal(c.Project)
	if err != nil {
		return fmt.Errorf("config: encode config: %w", err)
	}
	if err := os.WriteFile(c.ProjectConfigPath(), data, 0o644); err != nil {
		return fmt.Errorf("config: write project config: %w", err)
	}
	return nil
}
