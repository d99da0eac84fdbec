// Package config provides configuration types and defaults for crossver.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/crossver/crossver/internal/log"
	"github.com/crossver/crossver/internal/model"
)

// HostConfig names a host and the model versions its subsystems report.
// It mirrors the version negotiation payload a slave host would send.
type HostConfig struct {
	Name     string            `mapstructure:"name"`
	Versions map[string]string `mapstructure:"versions"` // subsystem name -> "major.minor.micro"
}

// Config holds all configuration options for crossver.
type Config struct {
	// ManifestDir is the directory holding subsystem manifest YAML files.
	ManifestDir string `mapstructure:"manifest_dir"`

	// DefaultTarget is the management model version resolved against when
	// no explicit target is given on the command line.
	DefaultTarget string `mapstructure:"default_target"`

	// AutoReload re-resolves registries when manifest files change on disk.
	AutoReload bool `mapstructure:"auto_reload"`

	// ReloadDebounce coalesces bursts of filesystem events into one reload.
	ReloadDebounce time.Duration `mapstructure:"reload_debounce"`

	Hosts   []HostConfig  `mapstructure:"hosts"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Tracing TracingConfig `mapstructure:"tracing"`
}

// CacheConfig holds resolution cache settings.
type CacheConfig struct {
	// TTL is how long a resolved registry snapshot stays cached.
	TTL time.Duration `mapstructure:"ttl"`

	// CleanupInterval is how often expired snapshots are evicted.
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// TracingConfig holds trace export configuration.
type TracingConfig struct {
	// Enabled controls whether tracing is active.
	// Default: false
	Enabled bool `mapstructure:"enabled"`

	// Exporter selects the trace export backend.
	// Options: "none", "file", "stdout", "otlp"
	// Default: "file"
	Exporter string `mapstructure:"exporter"`

	// FilePath is the output file for "file" exporter.
	// Default: ~/.config/crossver/traces/traces.jsonl
	FilePath string `mapstructure:"file_path"`

	// OTLPEndpoint is the collector endpoint for "otlp" exporter.
	// Default: "localhost:4317"
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`

	// SampleRate controls trace sampling (0.0 to 1.0).
	// 1.0 = all traces, 0.1 = 10% of traces
	// Default: 1.0
	SampleRate float64 `mapstructure:"sample_rate"`
}

// DefaultTracesFilePath returns the default path for trace file export.
// Returns ~/.config/crossver/traces/traces.jsonl or empty string if home dir unavailable.
func DefaultTracesFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "crossver", "traces", "traces.jsonl")
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		ManifestDir:    "manifests",
		DefaultTarget:  "",
		AutoReload:     true,
		ReloadDebounce: 100 * time.Millisecond,
		Cache: CacheConfig{
			TTL:             5 * time.Minute,
			CleanupInterval: 10 * time.Minute,
		},
		Tracing: TracingConfig{
			Enabled:      false,
			Exporter:     "file",
			FilePath:     "", // Derived from config dir at runtime
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
	}
}

// Validate checks the full configuration for errors.
// Empty values fall back to defaults and are considered valid.
func Validate(cfg Config) error {
	if cfg.DefaultTarget != "" {
		if _, err := model.ParseVersion(cfg.DefaultTarget); err != nil {
			return fmt.Errorf("default_target: %w", err)
		}
	}

	if cfg.ReloadDebounce < 0 {
		return fmt.Errorf("reload_debounce must not be negative, got %v", cfg.ReloadDebounce)
	}

	if err := ValidateHosts(cfg.Hosts); err != nil {
		return err
	}
	if err := ValidateCache(cfg.Cache); err != nil {
		return err
	}
	return ValidateTracing(cfg.Tracing)
}

// ValidateHosts checks host entries for errors.
// Returns nil if hosts are valid or empty.
func ValidateHosts(hosts []HostConfig) error {
	for i, host := range hosts {
		if host.Name == "" {
			return fmt.Errorf("host %d: name is required", i)
		}
		for subsystem, version := range host.Versions {
			if _, err := model.ParseVersion(version); err != nil {
				return fmt.Errorf("host %d (%s): subsystem %q: %w", i, host.Name, subsystem, err)
			}
		}
	}
	return nil
}

// ValidateCache checks cache configuration for errors.
func ValidateCache(cache CacheConfig) error {
	if cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative, got %v", cache.TTL)
	}
	if cache.CleanupInterval < 0 {
		return fmt.Errorf("cache.cleanup_interval must not be negative, got %v", cache.CleanupInterval)
	}
	return nil
}

// ValidateTracing checks tracing configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateTracing(tracing TracingConfig) error {
	// Validate SampleRate is in range [0.0, 1.0]
	if tracing.SampleRate < 0.0 || tracing.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", tracing.SampleRate)
	}

	if tracing.Exporter != "" {
		switch tracing.Exporter {
		case "none", "file", "stdout", "otlp":
			// Valid
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", tracing.Exporter)
		}
	}

	// Only validate path requirements when tracing is enabled
	if tracing.Enabled {
		if tracing.Exporter == "file" && tracing.FilePath == "" {
			return fmt.Errorf("tracing.file_path is required when exporter is \"file\"")
		}
		if tracing.Exporter == "otlp" && tracing.OTLPEndpoint == "" {
			return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
		}
	}

	return nil
}

// Host returns the host entry with the given name, if configured.
func (c Config) Host(name string) (HostConfig, bool) {
	for _, host := range c.Hosts {
		if host.Name == name {
			return host, true
		}
	}
	return HostConfig{}, false
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# Crossver Configuration

# Directory holding subsystem manifest YAML files
manifest_dir: manifests

# Management model version to resolve against when --target is not given
# default_target: 1.4.0

# Re-resolve registries when manifest files change on disk
auto_reload: true

# Coalesce bursts of file events into one reload
reload_debounce: 100ms

# Resolution cache settings
cache:
  ttl: 5m                # How long a resolved snapshot stays cached
  cleanup_interval: 10m  # How often expired snapshots are evicted

# Hosts and the subsystem versions they report.
# Each entry mirrors the version payload a slave host would send
# during registration with the domain controller.
# hosts:
#   - name: legacy-a
#     versions:
#       web: 1.1.0
#       datasources: 1.0.0
#   - name: legacy-b
#     versions:
#       web: 1.2.0

# Trace export configuration
# tracing:
#   enabled: false                 # Enable/disable tracing (default: false)
#   exporter: file                 # Export backend: none, file, stdout, otlp (default: file)
#   file_path: ~/.config/crossver/traces/traces.jsonl  # Output file for file exporter
#   otlp_endpoint: localhost:4317  # OTLP collector endpoint (for otlp exporter)
#   sample_rate: 1.0               # Trace sampling rate 0.0-1.0 (default: 1.0)
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
