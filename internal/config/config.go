// Package config provides configuration management for the facemetrics
// analysis server.
package config

import (
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/normanking/facemetrics/internal/au"
	"github.com/normanking/facemetrics/internal/engine"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig       `mapstructure:"server"`
	Engine     engine.Config      `mapstructure:"engine"`
	Thresholds map[string]float64 `mapstructure:"thresholds"`
	Logging    LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig configures the landmark stream listener
type ServerConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	ReadLimitBytes int64  `mapstructure:"read_limit_bytes"`
}

// LoggingConfig configures log output
type LoggingConfig struct {
	Dir     string `mapstructure:"dir"`
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()

	thresholds := map[string]float64{}
	for _, k := range au.Keys() {
		thresholds[k.String()] = au.DefaultThresholds().Get(k)
	}

	return &Config{
		Server: ServerConfig{
			Host:           "127.0.0.1",
			Port:           8590,
			ReadLimitBytes: 1 << 20,
		},
		Engine:     engine.DefaultConfig(),
		Thresholds: thresholds,
		Logging: LoggingConfig{
			Dir:     filepath.Join(home, ".facemetrics", "logs"),
			Level:   "info",
			Console: true,
		},
	}
}

// EngineConfig resolves the pipeline config, applying any per-AU threshold
// overrides from the config file onto the engine defaults.
func (c *Config) EngineConfig() engine.Config {
	cfg := c.Engine
	cfg.Thresholds = au.DefaultThresholds()
	for name, value := range c.Thresholds {
		if k := au.KeyFromName(name); k >= 0 {
			cfg.Thresholds[k] = value
		}
	}
	return cfg
}

// Load reads configuration from file and environment
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configDir, err := GetConfigDir()
	if err != nil {
		return cfg, err
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return cfg, err
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	// Environment variable overrides
	viper.SetEnvPrefix("FACEMETRICS")
	viper.AutomaticEnv()

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, err
		}
		// Config file not found, use defaults and create one
		if err := Save(cfg); err != nil {
			return cfg, err
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Save writes the configuration to file
func Save(cfg *Config) error {
	configDir, err := GetConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	viper.Set("server", cfg.Server)
	viper.Set("engine", cfg.Engine)
	viper.Set("thresholds", cfg.Thresholds)
	viper.Set("logging", cfg.Logging)

	configPath := filepath.Join(configDir, "config.yaml")
	return viper.WriteConfigAs(configPath)
}

// Watch re-reads the config file on change and hands the updated config to
// the callback. New settings apply to sessions started after the reload.
func Watch(logger zerolog.Logger, onChange func(*Config)) {
	viper.OnConfigChange(func(e fsnotify.Event) {
		cfg := DefaultConfig()
		if err := viper.Unmarshal(cfg); err != nil {
			logger.Warn().Err(err).Str("file", e.Name).Msg("Config reload failed")
			return
		}
		logger.Info().Str("file", e.Name).Msg("Config reloaded")
		onChange(cfg)
	})
	viper.WatchConfig()
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".facemetrics"), nil
}
