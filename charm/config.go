// ABOUTME: Configuration for Charm KV backend connection
// ABOUTME: Server host and auto-sync preference for the charm storage driver

package charm

import (
	"time"

	"github.com/charmbracelet/charm/kv"
)

const (
	// DefaultCharmHost is the self-hosted 2389 research server.
	DefaultCharmHost = "charm.2389.dev"

	// AppName is the application name for Charm KV database.
	AppName = "advisor-crm"
)

// Config holds charm connection settings.
type Config struct {
	// Host is the charm server hostname (default: charm.2389.dev)
	Host string `yaml:"host,omitempty"`

	// AutoSync enables automatic sync after every write operation
	AutoSync bool `yaml:"auto_sync"`

	// StaleThreshold is the duration before data is considered stale and needs a sync
	StaleThreshold time.Duration `yaml:"stale_threshold,omitempty"`
}

// DefaultConfig returns a new config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Host:           DefaultCharmHost,
		AutoSync:       true,
		StaleThreshold: kv.DefaultStaleThreshold,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c *Config) withDefaults() *Config {
	out := *DefaultConfig()
	if c == nil {
		return &out
	}
	out.AutoSync = c.AutoSync
	if c.Host != "" {
		out.Host = c.Host
	}
	if c.StaleThreshold != 0 {
		out.StaleThreshold = c.StaleThreshold
	}
	return &out
}
