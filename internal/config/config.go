// Package config handles notifico configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// searchPathsFunc is overridden in tests to avoid picking up real config
// files from the host running the test suite.
var searchPathsFunc = DefaultSearchPaths

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/notifico/config.yaml, /config/config.yaml,
// /etc/notifico/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "notifico", "config.yaml"))
	}

	paths = append(paths, "/config/config.yaml") // Container convention
	paths = append(paths, "/etc/notifico/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches searchPathsFunc() and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	paths := searchPathsFunc()
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", paths)
}

// Config holds all notifico configuration (spec.md §6.5).
type Config struct {
	DB        string        `yaml:"db"`
	SecretKey string        `yaml:"secret_key"`
	PublicURL string        `yaml:"public_url"`
	AMQP      AMQPConfig    `yaml:"amqp"`
	Ingest    ListenConfig  `yaml:"ingest"`
	Admin     ListenConfig  `yaml:"admin"`
	Public    ListenConfig  `yaml:"public"`
	Templates TemplateConfig `yaml:"templates"`
	Transports TransportsConfig `yaml:"transports"`
	LogLevel  string        `yaml:"log_level"`
}

// ListenConfig defines a bind address/port pair for one of the three HTTP surfaces.
type ListenConfig struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// AMQPConfig defines the optional AMQP broker connection. When URL is empty,
// notifico falls back to the in-process queue.
type AMQPConfig struct {
	URL    string `yaml:"url"`
	Prefix string `yaml:"prefix"`
}

// Configured reports whether an AMQP broker URL was supplied.
func (c AMQPConfig) Configured() bool {
	return c.URL != ""
}

// TemplateConfig controls the templater plugin's filesystem-backed templates.
type TemplateConfig struct {
	// FileRoot is the directory `file` template selectors are resolved
	// relative to. Empty disables file-based templates entirely.
	FileRoot string `yaml:"file_root"`
}

// TransportsConfig gates capabilities that are security-sensitive to enable.
type TransportsConfig struct {
	// AllowFileAttachments enables the `file://` attachment URL scheme.
	// Disabled by default: a misconfigured project could otherwise exfiltrate
	// arbitrary local files through an attachment URL.
	AllowFileAttachments bool `yaml:"allow_file_attachments"`
}

// PublicURLConfigured reports whether a public URL (used for list-unsubscribe links
// and subscription-management links) has been set.
func (c Config) PublicURLConfigured() bool {
	return c.PublicURL != ""
}

// weakDefaultSecret is the value flagged by WeakSecret as insecure.
const weakDefaultSecret = "change-me"

// Load reads configuration from a YAML file, expands environment
// variables, applies defaults for any unset fields, and validates
// the result. After Load returns successfully, all fields are usable
// without additional nil/empty checks.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${DB}, ${SECRET_KEY}). This is a
	// convenience for container deployments; CRED_* environment variables
	// are read directly by the env credential store, not through this file.
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// applyDefaults fills in zero-value fields with sensible defaults.
// Called automatically by Load. After this, callers can read any field
// without checking for empty strings or zero values.
func (c *Config) applyDefaults() {
	if c.Ingest.Port == 0 {
		c.Ingest.Port = 8000
	}
	if c.Admin.Port == 0 {
		c.Admin.Port = 8001
	}
	if c.Public.Port == 0 {
		c.Public.Port = 8002
	}
	if c.AMQP.Prefix == "" {
		c.AMQP.Prefix = "notifico_"
	}
	if c.SecretKey == "" {
		c.SecretKey = weakDefaultSecret
	}
}

// Validate checks that the configuration is internally consistent.
// It runs after applyDefaults, so it can assume defaults are populated.
// Returns an error describing the first problem found, or nil.
func (c *Config) Validate() error {
	for name, l := range map[string]ListenConfig{"ingest": c.Ingest, "admin": c.Admin, "public": c.Public} {
		if l.Port < 1 || l.Port > 65535 {
			return fmt.Errorf("%s.port %d out of range (1-65535)", name, l.Port)
		}
	}
	if c.LogLevel != "" {
		if _, err := ParseLogLevel(c.LogLevel); err != nil {
			return err
		}
	}
	return nil
}

// WeakSecret reports whether the configured secret key is the insecure
// built-in default. Callers should log a warning, per spec.md §6.5.
func (c *Config) WeakSecret() bool {
	return strings.TrimSpace(c.SecretKey) == weakDefaultSecret
}

// Default returns a default configuration suitable for local development
// against the in-process queue. All defaults are already applied.
func Default() *Config {
	cfg := &Config{
		DB: "sqlite://notifico.db",
	}
	cfg.applyDefaults()
	return cfg
}
