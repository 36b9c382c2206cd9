// Package config provides configuration types and defaults for plugboard.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/zjrosen/plugboard/internal/log"
)

// Config holds all configuration options for plugboard.
type Config struct {
	// StaticRoot is where extension asset trees are installed and served
	// from. Required by the lifecycle manager.
	StaticRoot string `mapstructure:"static_root"`

	// ExtensionsDir is the directory scanned for extension packages.
	ExtensionsDir string `mapstructure:"extensions_dir"`

	// DBPath is the registration database file.
	DBPath string `mapstructure:"db_path"`

	// ManagerKey namespaces config-route prefixes.
	ManagerKey string `mapstructure:"manager_key"`

	// AutoDiscover re-runs discovery when the packages directory changes.
	AutoDiscover bool `mapstructure:"auto_discover"`

	// ListenAddr is the daemon's HTTP listen address.
	ListenAddr string `mapstructure:"listen_addr"`

	Tracing TracingConfig `mapstructure:"tracing"`

	// Flags toggles experimental behavior by name.
	Flags map[string]bool `mapstructure:"flags"`
}

// TracingConfig holds distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether tracing is active.
	// Default: false
	Enabled bool `mapstructure:"enabled"`

	// Exporter selects the trace export backend.
	// Options: "none", "stdout", "otlp"
	// Default: "stdout"
	Exporter string `mapstructure:"exporter"`

	// OTLPEndpoint is the collector endpoint for "otlp" exporter.
	// Default: "localhost:4317"
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`

	// SampleRate controls trace sampling (0.0 to 1.0).
	// Default: 1.0
	SampleRate float64 `mapstructure:"sample_rate"`
}

// DefaultDataDir returns ~/.plugboard, or empty string if the home
// directory is unavailable.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".plugboard")
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	dataDir := DefaultDataDir()
	return Config{
		StaticRoot:    filepath.Join(dataDir, "static"),
		ExtensionsDir: filepath.Join(dataDir, "extensions"),
		DBPath:        filepath.Join(dataDir, "registry.db"),
		ManagerKey:    "default",
		AutoDiscover:  true,
		ListenAddr:    "127.0.0.1:8470",
		Tracing: TracingConfig{
			Enabled:      false,
			Exporter:     "stdout",
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
	}
}

// Validate checks the configuration for errors. Empty values use
// defaults.
func (c Config) Validate() error {
	if c.StaticRoot != "" && !filepath.IsAbs(c.StaticRoot) {
		return fmt.Errorf("static_root must be an absolute path, got %q", c.StaticRoot)
	}
	if c.ExtensionsDir != "" && !filepath.IsAbs(c.ExtensionsDir) {
		return fmt.Errorf("extensions_dir must be an absolute path, got %q", c.ExtensionsDir)
	}
	return ValidateTracing(c.Tracing)
}

// ValidateTracing checks tracing configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateTracing(tracing TracingConfig) error {
	if tracing.SampleRate < 0.0 || tracing.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", tracing.SampleRate)
	}

	if tracing.Exporter != "" {
		switch tracing.Exporter {
		case "none", "stdout", "otlp":
			// Valid
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"stdout\", or \"otlp\", got %q", tracing.Exporter)
		}
	}

	if tracing.Enabled && tracing.Exporter == "otlp" && tracing.OTLPEndpoint == "" {
		return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
	}

	return nil
}

// FlagEnabled reports whether a named flag is on.
func (c Config) FlagEnabled(name string) bool {
	return c.Flags[name]
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# Plugboard Configuration

# Where extension static assets are installed and served from
# (default: ~/.plugboard/static)
# static_root: /srv/plugboard/static

# Directory scanned for extension packages; each package is a
# subdirectory containing an extension.yaml manifest
# (default: ~/.plugboard/extensions)
# extensions_dir: /srv/plugboard/extensions

# Registration database file (default: ~/.plugboard/registry.db)
# db_path: /srv/plugboard/registry.db

# Namespace key for this extension set's config routes
manager_key: default

# Re-run discovery automatically when the packages directory changes
auto_discover: true

# Daemon HTTP listen address
listen_addr: 127.0.0.1:8470

# Distributed tracing configuration
# tracing:
#   enabled: false              # Enable/disable tracing (default: false)
#   exporter: stdout            # Export backend: none, stdout, otlp
#   otlp_endpoint: localhost:4317
#   sample_rate: 1.0            # Trace sampling rate 0.0-1.0

# Experimental feature flags
# flags:
#   strict_manifests: true
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
