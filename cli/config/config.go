// Package config handles CLI configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/petal-labs/oaikit/core"
)

// Config represents the CLI configuration.
type Config struct {
	DefaultProfile string                   `yaml:"default_profile"`
	DefaultModel   string                   `yaml:"default_model"`
	MaxRetries     *int                     `yaml:"max_retries,omitempty"`
	Timeout        time.Duration            `yaml:"timeout,omitempty"`
	Profiles       map[string]ProfileConfig `yaml:"profiles"`
	Search         SearchConfig             `yaml:"search"`
	Personas       map[string]string        `yaml:"personas,omitempty"` // name -> system prompt

	// Set only from the environment; never written to disk.
	APIKey    core.Secret `yaml:"-"`
	BaseURL   string      `yaml:"-"`
	OrgID     string      `yaml:"-"`
	ProjectID string      `yaml:"-"`
}

// ProfileConfig overrides a provider profile. A profile name that is not
// registered describes a custom OpenAI-compatible endpoint and needs BaseURL.
type ProfileConfig struct {
	APIKeyRef string `yaml:"api_key_ref,omitempty"`
	BaseURL   string `yaml:"base_url,omitempty"`
	OrgID     string `yaml:"org_id,omitempty"`
	ProjectID string `yaml:"project_id,omitempty"`
}

// SearchConfig configures the search commands.
type SearchConfig struct {
	DBPath         string `yaml:"db_path,omitempty"`
	EmbeddingModel string `yaml:"embedding_model,omitempty"`
}

// Environment holds the variables that overlay the file. A negative
// MaxRetries means unset.
type Environment struct {
	APIKey     string        `env:"OPENAI_API_KEY"`
	BaseURL    string        `env:"OPENAI_BASE_URL"`
	OrgID      string        `env:"OPENAI_ORG_ID"`
	ProjectID  string        `env:"OPENAI_PROJECT_ID"`
	Model      string        `env:"OAIKIT_MODEL"`
	Profile    string        `env:"OAIKIT_PROFILE"`
	MaxRetries int           `env:"OAIKIT_MAX_RETRIES" envDefault:"-1"`
	Timeout    time.Duration `env:"OAIKIT_TIMEOUT"`
}

// ErrInvalidConfig is wrapped by validation failures.
var ErrInvalidConfig = errors.New("invalid config")

// homeDir returns the user's home directory for the current platform.
func homeDir() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("USERPROFILE")
	}
	return os.Getenv("HOME")
}

// Dir returns the directory holding oaikit state.
// - macOS/Linux: ~/.oaikit
// - Windows: %USERPROFILE%\.oaikit
func Dir() string {
	home := homeDir()
	if home == "" {
		return "."
	}
	return filepath.Join(home, ".oaikit")
}

// DefaultConfigPath returns the default configuration file path.
func DefaultConfigPath() string {
	if homeDir() == "" {
		return "config.yaml"
	}
	return filepath.Join(Dir(), "config.yaml")
}

// DefaultSearchDBPath returns where search indexes are stored by default.
func DefaultSearchDBPath() string {
	return filepath.Join(Dir(), "search.db")
}

// LoadConfig loads the file at path and overlays the environment.
// A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	var e Environment
	if err := env.Parse(&e); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.ApplyEnv(e)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads configuration from path without consulting the environment.
func LoadFile(path string) (*Config, error) {
	cfg := &Config{
		Profiles: make(map[string]ProfileConfig),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.Profiles == nil {
		cfg.Profiles = make(map[string]ProfileConfig)
	}
	return cfg, nil
}

// ApplyEnv overlays non-empty environment values.
func (c *Config) ApplyEnv(e Environment) {
	if e.APIKey != "" {
		c.APIKey = core.NewSecret(e.APIKey)
	}
	c.BaseURL = e.BaseURL
	c.OrgID = e.OrgID
	c.ProjectID = e.ProjectID
	if e.Model != "" {
		c.DefaultModel = e.Model
	}
	if e.Profile != "" {
		c.DefaultProfile = e.Profile
	}
	if e.MaxRetries >= 0 {
		n := e.MaxRetries
		c.MaxRetries = &n
	}
	if e.Timeout > 0 {
		c.Timeout = e.Timeout
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.MaxRetries != nil && *c.MaxRetries < 0 {
		return fmt.Errorf("%w: max_retries must not be negative", ErrInvalidConfig)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: timeout must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Profile returns the override for the named profile, or nil.
func (c *Config) Profile(name string) *ProfileConfig {
	if c.Profiles == nil {
		return nil
	}
	if pc, ok := c.Profiles[name]; ok {
		return &pc
	}
	return nil
}
