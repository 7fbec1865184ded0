// Package config provides configuration loading for pkgbuilder.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/git-pkgs/pkgbuilder/internal/logging"
)

// Config is the complete pkgbuilder configuration.
type Config struct {
	Registry RegistryConfig `mapstructure:"registry"`
	Check    CheckConfig    `mapstructure:"check"`
	Log      LogConfig      `mapstructure:"log"`
	Manifest ManifestConfig `mapstructure:"manifest"`
}

// RegistryConfig selects and tunes the metadata registry.
type RegistryConfig struct {
	// Ecosystem is a registered registry type ("npm" or "local").
	Ecosystem string `mapstructure:"ecosystem"`
	// URL overrides the ecosystem's default base URL. For "local" it is a directory.
	URL        string        `mapstructure:"url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	UserAgent  string        `mapstructure:"user_agent"`
}

// CheckConfig tunes the conflict check.
type CheckConfig struct {
	// Concurrency bounds metadata fetches in flight.
	Concurrency int `mapstructure:"concurrency"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// ManifestConfig holds defaults for new manifests.
type ManifestConfig struct {
	Author  string `mapstructure:"author"`
	License string `mapstructure:"license"`
}

// Defaults.
const (
	DefaultEcosystem   = "npm"
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultUserAgent   = "pkgbuilder"
	DefaultConcurrency = 15
	DefaultLogLevel    = "warn"
	DefaultLicense     = "ISC"
)

// NewConfig returns a configuration with every default applied.
func NewConfig() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills in unset values.
func (c *Config) ApplyDefaults() {
	if c.Registry.Ecosystem == "" {
		c.Registry.Ecosystem = DefaultEcosystem
	}
	if c.Registry.Timeout == 0 {
		c.Registry.Timeout = DefaultTimeout
	}
	if c.Registry.UserAgent == "" {
		c.Registry.UserAgent = DefaultUserAgent
	}
	if c.Check.Concurrency == 0 {
		c.Check.Concurrency = DefaultConcurrency
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Manifest.License == "" {
		c.Manifest.License = DefaultLicense
	}
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	var errs []error

	// Unknown ecosystems are reported by core.New once registries are linked in.
	if c.Registry.Ecosystem == "" {
		errs = append(errs, fmt.Errorf("registry.ecosystem: must not be empty"))
	}
	if c.Registry.Timeout < 0 {
		errs = append(errs, fmt.Errorf("registry.timeout: must not be negative"))
	}
	if c.Registry.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("registry.max_retries: must not be negative"))
	}
	if c.Check.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("check.concurrency: must be at least 1"))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}

	return errors.Join(errs...)
}
