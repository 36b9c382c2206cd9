package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/plugboard/internal/config"
	"github.com/zjrosen/plugboard/internal/log"
)

var (
	version   = "dev"
	cfgFile   string
	debugFlag bool
	cfg       config.Config
)

var rootCmd = &cobra.Command{
	Use:     "plugboard",
	Short:   "An in-process extension lifecycle manager",
	Long: `Plugboard discovers extension packages, tracks their registered,
installed and enabled state in a SQLite registry, and keeps the host's
routes, components and template cache consistent as extensions come and
go.`,
	Version: version,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ~/.config/plugboard/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false,
		"enable debug logging")
}

func initConfig() {
	defaults := config.Defaults()
	viper.SetDefault("static_root", defaults.StaticRoot)
	viper.SetDefault("extensions_dir", defaults.ExtensionsDir)
	viper.SetDefault("db_path", defaults.DBPath)
	viper.SetDefault("manager_key", defaults.ManagerKey)
	viper.SetDefault("auto_discover", defaults.AutoDiscover)
	viper.SetDefault("listen_addr", defaults.ListenAddr)
	viper.SetDefault("tracing.enabled", defaults.Tracing.Enabled)
	viper.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	viper.SetDefault("tracing.otlp_endpoint", defaults.Tracing.OTLPEndpoint)
	viper.SetDefault("tracing.sample_rate", defaults.Tracing.SampleRate)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .plugboard/config.yaml (current directory)
		// 2. ~/.config/plugboard/config.yaml (user config)
		if _, err := os.Stat(".plugboard/config.yaml"); err == nil {
			viper.SetConfigFile(".plugboard/config.yaml")
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", "plugboard"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		// No config file found anywhere - create default at .plugboard/config.yaml
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			defaultPath := ".plugboard/config.yaml"
			if writeErr := config.WriteDefaultConfig(defaultPath); writeErr == nil {
				viper.SetConfigFile(defaultPath)
				_ = viper.ReadInConfig()
			}
			// If write fails, just continue with defaults (no config file)
		}
	}

	_ = viper.Unmarshal(&cfg)
}

// initLogging enables file logging when --debug or PLUGBOARD_DEBUG is
// set. The returned cleanup is a no-op otherwise.
func initLogging(name string) (func(), error) {
	debug := os.Getenv("PLUGBOARD_DEBUG") != "" || debugFlag
	if !debug {
		return func() {}, nil
	}

	logPath := os.Getenv("PLUGBOARD_LOG")
	if logPath == "" {
		logPath = "debug.log"
	}

	cleanup, err := log.Init(logPath)
	if err != nil {
		return nil, fmt.Errorf("initializing logging: %w", err)
	}

	log.Info(log.CatConfig, name+" starting", "debug", true, "logPath", logPath)
	return cleanup, nil
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
