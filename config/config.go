// ABOUTME: Application configuration loaded from YAML at XDG paths
// ABOUTME: Applies defaults, .env files and environment variable overrides
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/harperreed/advisor-crm/charm"
)

// AppName names the XDG config and data directories.
const AppName = "advisor-crm"

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverBadger = "badger"
	DriverCharm  = "charm"
)

// Config is the whole application configuration.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Mirror  MirrorConfig  `yaml:"mirror"`
	Auth    AuthConfig    `yaml:"auth"`
	Log     LogConfig     `yaml:"log"`
	Google  GoogleConfig  `yaml:"google"`
	Server  ServerConfig  `yaml:"server"`
	Charm   charm.Config  `yaml:"charm"`
}

type StorageConfig struct {
	// Driver is one of sqlite, badger or charm.
	Driver  string `yaml:"driver"`
	DataDir string `yaml:"data_dir"`
}

// MirrorConfig points at the GitHub repository used as remote mirror. An
// empty token means local-only mode.
type MirrorConfig struct {
	Token       string        `yaml:"token,omitempty"`
	Owner       string        `yaml:"owner"`
	Repo        string        `yaml:"repo"`
	Branch      string        `yaml:"branch"`
	APIBaseURL  string        `yaml:"api_base_url"`
	PushTimeout time.Duration `yaml:"push_timeout"`
}

// Enabled reports whether a mirror token is configured.
func (m MirrorConfig) Enabled() bool {
	return m.Token != ""
}

type AuthConfig struct {
	DemoPassword string `yaml:"demo_password"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

type GoogleConfig struct {
	ClientID     string `yaml:"client_id,omitempty"`
	ClientSecret string `yaml:"client_secret,omitempty"`
	CalendarID   string `yaml:"calendar_id"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Driver:  DriverSQLite,
			DataDir: filepath.Join(xdg.DataHome, AppName),
		},
		Mirror: MirrorConfig{
			Owner:       "simekmartas",
			Repo:        "crmdata",
			Branch:      "main",
			APIBaseURL:  "https://api.github.com",
			PushTimeout: 30 * time.Second,
		},
		Auth:   AuthConfig{DemoPassword: "heslo123"},
		Log:    LogConfig{Level: "info"},
		Google: GoogleConfig{CalendarID: "primary"},
		Server: ServerConfig{Addr: "127.0.0.1:8080"},
		Charm:  *charm.DefaultConfig(),
	}
}

// DefaultPath is $XDG_CONFIG_HOME/advisor-crm/config.yaml.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}

// Load reads the YAML file at path (DefaultPath when empty) over the
// defaults, then applies .env and environment overrides. A missing file is
// not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	// .env is optional
	_ = godotenv.Load()

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides:
// - ADVISOR_STORAGE_DRIVER, ADVISOR_DATA_DIR
// - ADVISOR_MIRROR_TOKEN (or GITHUB_TOKEN), ADVISOR_MIRROR_OWNER, ADVISOR_MIRROR_REPO, ADVISOR_MIRROR_BRANCH
// - ADVISOR_LOG_LEVEL, ADVISOR_DEMO_PASSWORD
// - GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET.
func applyEnvOverrides(cfg *Config) {
	override := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := os.Getenv(k); v != "" {
				*dst = v
				return
			}
		}
	}
	override(&cfg.Storage.Driver, "ADVISOR_STORAGE_DRIVER")
	override(&cfg.Storage.DataDir, "ADVISOR_DATA_DIR")
	override(&cfg.Mirror.Token, "ADVISOR_MIRROR_TOKEN", "GITHUB_TOKEN")
	override(&cfg.Mirror.Owner, "ADVISOR_MIRROR_OWNER")
	override(&cfg.Mirror.Repo, "ADVISOR_MIRROR_REPO")
	override(&cfg.Mirror.Branch, "ADVISOR_MIRROR_BRANCH")
	override(&cfg.Log.Level, "ADVISOR_LOG_LEVEL")
	override(&cfg.Auth.DemoPassword, "ADVISOR_DEMO_PASSWORD")
	override(&cfg.Google.ClientID, "GOOGLE_CLIENT_ID")
	override(&cfg.Google.ClientSecret, "GOOGLE_CLIENT_SECRET")
}

// Validate rejects settings the application cannot run with.
func (c *Config) Validate() error {
	c.Storage.Driver = strings.ToLower(c.Storage.Driver)
	switch c.Storage.Driver {
	case DriverSQLite, DriverBadger, DriverCharm:
	default:
		return fmt.Errorf("unknown storage driver %q (valid: sqlite, badger, charm)", c.Storage.Driver)
	}
	if c.Mirror.PushTimeout <= 0 {
		c.Mirror.PushTimeout = 30 * time.Second
	}
	return nil
}

// Save writes the config as YAML with owner-only permissions.
func (c *Config) Save(path string) error {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SQLitePath is the database file used by the sqlite driver.
func (c *Config) SQLitePath() string {
	return filepath.Join(c.Storage.DataDir, "advisor.db")
}

// BadgerDir is the directory used by the badger driver.
func (c *Config) BadgerDir() string {
	return filepath.Join(c.Storage.DataDir, "badger")
}
