// Package cmd wires the crossver command line interface.
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/crossver/crossver/internal/config"
	"github.com/crossver/crossver/internal/log"
	"github.com/crossver/crossver/internal/manifest"
	"github.com/crossver/crossver/internal/resolver"
	"github.com/crossver/crossver/internal/tracing"
)

var (
	version   = "dev"
	cfgFile   string
	debugFlag bool
	cfg       config.Config
)

var rootCmd = &cobra.Command{
	Use:   "crossver",
	Short: "Cross-version registry resolution for mixed-version management domains",
	Long: `Crossver resolves transformer registries for management domains running
mixed model versions. Subsystem manifests declare which resources and
operations each legacy version understands; crossver resolves them into
per-host or per-server registry snapshots a domain controller can use to
talk to processes running older models.`,
	Version: version,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ~/.config/crossver/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false,
		"enable debug logging to crossver.log")
	rootCmd.PersistentFlags().StringP("manifest-dir", "m", "",
		"directory holding subsystem manifests")

	// Bind flags to viper
	_ = viper.BindPFlag("manifest_dir", rootCmd.PersistentFlags().Lookup("manifest-dir"))
}

func initConfig() {
	defaults := config.Defaults()
	viper.SetDefault("manifest_dir", defaults.ManifestDir)
	viper.SetDefault("auto_reload", defaults.AutoReload)
	viper.SetDefault("reload_debounce", defaults.ReloadDebounce)
	viper.SetDefault("cache.ttl", defaults.Cache.TTL)
	viper.SetDefault("cache.cleanup_interval", defaults.Cache.CleanupInterval)
	viper.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	viper.SetDefault("tracing.otlp_endpoint", defaults.Tracing.OTLPEndpoint)
	viper.SetDefault("tracing.sample_rate", defaults.Tracing.SampleRate)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .crossver/config.yaml (current directory)
		// 2. ~/.config/crossver/config.yaml (user config)
		if _, err := os.Stat(".crossver/config.yaml"); err == nil {
			viper.SetConfigFile(".crossver/config.yaml")
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", "crossver"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		// No config file found anywhere - create default at .crossver/config.yaml
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			defaultPath := ".crossver/config.yaml"
			if writeErr := config.WriteDefaultConfig(defaultPath); writeErr == nil {
				viper.SetConfigFile(defaultPath)
				_ = viper.ReadInConfig()
			}
			// If write fails, just continue with defaults (no config file)
		}
	}

	_ = viper.Unmarshal(&cfg)

	if debugFlag || os.Getenv("CROSSVER_DEBUG") != "" {
		logPath := os.Getenv("CROSSVER_LOG")
		if logPath == "" {
			logPath = "crossver.log"
		}
		if _, err := log.Init(logPath); err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not open log file %s: %v\n", logPath, err)
		}
	}
}

// newService loads the manifest directory and builds the resolution
// service every command runs against.
func newService(opts ...resolver.Option) (*resolver.Service, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	files, err := manifest.LoadSubsystemManifests(os.DirFS(cfg.ManifestDir))
	if err != nil {
		return nil, fmt.Errorf("loading manifests from %s: %w", cfg.ManifestDir, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no subsystem manifests found in %s", cfg.ManifestDir)
	}

	opts = append([]resolver.Option{
		resolver.WithCacheTTL(cfg.Cache.TTL),
		resolver.WithCleanupInterval(cfg.Cache.CleanupInterval),
	}, opts...)
	svc := resolver.NewService(nil, opts...)
	if err := svc.Reload(context.Background(), files); err != nil {
		svc.Close()
		return nil, err
	}
	return svc, nil
}

// newTracingProvider builds the trace provider from config. The returned
// shutdown func must be called before exit to flush spans.
func newTracingProvider() (*tracing.Provider, func(), error) {
	tracingCfg := tracing.Config{
		Enabled:      cfg.Tracing.Enabled,
		Exporter:     cfg.Tracing.Exporter,
		FilePath:     cfg.Tracing.FilePath,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		SampleRate:   cfg.Tracing.SampleRate,
		ServiceName:  "crossver",
	}
	if tracingCfg.Enabled && tracingCfg.Exporter == "file" && tracingCfg.FilePath == "" {
		tracingCfg.FilePath = config.DefaultTracesFilePath()
	}

	provider, err := tracing.NewProvider(tracingCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing tracing: %w", err)
	}
	shutdown := func() {
		_ = provider.Shutdown(context.Background())
	}
	return provider, shutdown, nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
