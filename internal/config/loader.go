package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	// DefaultConfigPath is the config file looked up in the working directory.
	DefaultConfigPath = ".pkgbuilder.yaml"

	// EnvPrefix is the prefix for environment variable overrides.
	EnvPrefix = "PKGBUILDER"
)

// Loader handles loading configuration from files and environment.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	v := viper.New()
	v.SetConfigType("yaml")

	// Environment overrides only reach Unmarshal for keys viper knows about.
	defaults := NewConfig()
	v.SetDefault("registry.ecosystem", defaults.Registry.Ecosystem)
	v.SetDefault("registry.url", defaults.Registry.URL)
	v.SetDefault("registry.timeout", defaults.Registry.Timeout)
	v.SetDefault("registry.max_retries", DefaultMaxRetries)
	v.SetDefault("registry.user_agent", defaults.Registry.UserAgent)
	v.SetDefault("check.concurrency", defaults.Check.Concurrency)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.json", false)
	v.SetDefault("manifest.author", "")
	v.SetDefault("manifest.license", defaults.Manifest.License)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Loader{v: v}
}

// Load reads configuration from path, merges environment variables and
// validates the result. An empty path means DefaultConfigPath, which may be
// missing; an explicit path must exist.
func (l *Loader) Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, &LoadError{Path: path, Message: "config file not found", Err: err}
		}
		path = ""
	}

	if path != "" {
		l.v.SetConfigFile(path)
		if err := l.v.ReadInConfig(); err != nil {
			return nil, &LoadError{Path: path, Message: "failed to read config file", Err: err}
		}
	}

	cfg := &Config{}
	if err := l.v.Unmarshal(cfg, decodeHook); err != nil {
		return nil, &LoadError{Path: path, Message: "failed to parse config", Err: err}
	}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, &LoadError{Path: path, Message: "configuration validation failed", Err: err}
	}
	return cfg, nil
}

func decodeHook(dc *mapstructure.DecoderConfig) {
	dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
	)
}

// LoadError represents an error that occurred while loading configuration.
type LoadError struct {
	Path    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	path := e.Path
	if path == "" {
		path = "config"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", path, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", path, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
