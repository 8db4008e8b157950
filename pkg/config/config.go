// Package config loads the mirror.toml configuration file that drives a
// tcmirror run.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"tcmirror/pkg/platform"
)

// Mirror holds settings shared across every sync step.
type Mirror struct {
	Retries   int    `toml:"retries" comment:"number of retries per artifact download"`
	UserAgent string `toml:"user_agent" comment:"User-Agent header sent on every HTTP request"`
}

// Crates holds the crates.io-index mirror settings.
type Crates struct {
	SourceIndex string  `toml:"source_index" comment:"upstream crates.io-index git URL"`
	BaseURL     *string `toml:"base_url" comment:"this mirror's base URL, written into config.json (optional)"`
}

// Rustup holds the toolchain distribution mirror settings.
type Rustup struct {
	Source              string    `toml:"source" comment:"upstream rustup/dist base URL"`
	DownloadThreads      int       `toml:"download_threads" comment:"worker pool size for artifact fetches"`
	DownloadDev          *bool     `toml:"download_dev" comment:"mirror rustc-dev artifacts (default: false)"`
	PlatformsUnix        *[]string `toml:"platforms_unix" comment:"unix-like target platforms to mirror (default: all known)"`
	PlatformsWindows     *[]string `toml:"platforms_windows" comment:"windows-like target platforms to mirror (default: all known)"`
	KeepLatestStables    *int      `toml:"keep_latest_stables" comment:"stable releases to retain (absent disables stable GC)"`
	KeepLatestBetas      *int      `toml:"keep_latest_betas" comment:"beta releases to retain (absent disables beta GC)"`
	KeepLatestNightlies  *int      `toml:"keep_latest_nightlies" comment:"nightly releases to retain (absent disables nightly GC)"`
	PinnedRustVersions   *[]string `toml:"pinned_rust_versions" comment:"specific rust versions to mirror and retain permanently"`
}

// Config is the root of mirror.toml.
type Config struct {
	Mirror Mirror `toml:"mirror" comment:"global mirror settings"`
	Crates Crates `toml:"crates" comment:"crates.io-index mirror settings"`
	Rustup Rustup `toml:"rustup" comment:"rustup toolchain mirror settings"`
}

// NewDefault returns a Config with sane defaults.
func NewDefault() *Config {
	cfg := &Config{}
	cfg.Mirror.Retries = 3
	cfg.Mirror.UserAgent = "tcmirror/0.1"
	cfg.Rustup.DownloadThreads = 8
	return cfg
}

// Load reads and parses a mirror.toml file from path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the fields required for a sync to run at all. Per-field
// semantic checks that depend on other components (e.g. the platform
// catalog) live in the owning package instead of here.
func Validate(cfg *Config) error {
	if cfg.Mirror.Retries < 0 {
		return fmt.Errorf("invalid config: mirror.retries must be >= 0")
	}
	if cfg.Crates.SourceIndex == "" {
		return fmt.Errorf("invalid config: crates.source_index is required")
	}
	if cfg.Rustup.Source == "" {
		return fmt.Errorf("invalid config: rustup.source is required")
	}
	if cfg.Rustup.DownloadThreads <= 0 {
		return fmt.Errorf("invalid config: rustup.download_threads must be > 0")
	}
	if cfg.Rustup.PinnedRustVersions != nil {
		if err := platform.ValidatePinnedVersions(*cfg.Rustup.PinnedRustVersions); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
	}
	return nil
}

// Save writes cfg out as commented TOML.
func Save(path string, cfg *Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}
