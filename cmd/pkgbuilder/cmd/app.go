package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/git-pkgs/pkgbuilder"
	_ "github.com/git-pkgs/pkgbuilder/all"
	"github.com/git-pkgs/pkgbuilder/compat"
	"github.com/git-pkgs/pkgbuilder/internal/config"
	"github.com/git-pkgs/pkgbuilder/internal/logging"
	"github.com/git-pkgs/pkgbuilder/manifest"
)

// app is the wiring shared by every command.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	client   *pkgbuilder.Client
	registry pkgbuilder.Registry
}

// setup loads configuration, applies flag overrides and builds the registry.
func setup(cmd *cobra.Command) (*app, error) {
	flags := cmd.Flags()
	path, _ := flags.GetString("config")

	cfg, err := config.NewLoader().Load(path)
	if err != nil {
		return nil, err
	}
	if flags.Changed("registry") {
		cfg.Registry.Ecosystem, _ = flags.GetString("registry")
	}
	if flags.Changed("registry-url") {
		cfg.Registry.URL, _ = flags.GetString("registry-url")
	}
	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("concurrency") {
		cfg.Check.Concurrency, _ = flags.GetInt("concurrency")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	logger := logging.New(logging.Config{Level: level, JSON: cfg.Log.JSON, Output: cmd.ErrOrStderr()})

	client := pkgbuilder.NewClient(
		pkgbuilder.WithTimeout(cfg.Registry.Timeout),
		pkgbuilder.WithMaxRetries(cfg.Registry.MaxRetries),
		pkgbuilder.WithLogger(logger),
	).WithUserAgent(cfg.Registry.UserAgent)

	reg, err := pkgbuilder.New(cfg.Registry.Ecosystem, cfg.Registry.URL, client)
	if err != nil {
		return nil, err
	}
	logger.Debug("registry ready", "ecosystem", reg.Ecosystem(), "url", cfg.Registry.URL)

	return &app{cfg: cfg, logger: logger, client: client, registry: reg}, nil
}

func (a *app) detector() *compat.Detector {
	return compat.NewDetector(a.registry, nil,
		compat.WithConcurrency(a.cfg.Check.Concurrency),
		compat.WithLogger(a.logger),
	)
}

func (a *app) newManifest() *manifest.Manifest {
	return manifest.New(
		manifest.WithAuthor(a.cfg.Manifest.Author),
		manifest.WithLicense(a.cfg.Manifest.License),
	)
}

// warnUnhealthy logs every registry host whose breaker is open, so a report
// full of unavailable packages points at the registry rather than the packages.
func (a *app) warnUnhealthy() {
	for _, hs := range a.client.BreakerStates() {
		if hs.State == pkgbuilder.BreakerOpen {
			a.logger.Warn("registry unavailable, requests are being short-circuited", "host", hs.Host)
		}
	}
}
