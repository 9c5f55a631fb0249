package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/viper"
)

// Config is the CLI configuration. Values come from, in increasing order
// of precedence: defaults, the config file, CHAINZ_* environment variables
// and command line flags.
type Config struct {
	Pipelines map[string]string `mapstructure:"pipelines"`
	Log       LogConfig         `mapstructure:"log"`
}

// LogConfig contains logging configuration.
type LogConfig struct {
	Level   string `mapstructure:"level"`
	Format  string `mapstructure:"format"`
	NoColor bool   `mapstructure:"no_color"`
}

// Validate validates logging configuration.
func (c *LogConfig) Validate() error {
	validLevels := []string{"trace", "debug", "info", "warn", "error", "disabled"}
	if !slices.Contains(validLevels, strings.ToLower(c.Level)) {
		return fmt.Errorf("log.level must be one of %v (got: %s)", validLevels, c.Level)
	}
	validFormats := []string{"json", "console"}
	if !slices.Contains(validFormats, strings.ToLower(c.Format)) {
		return fmt.Errorf("log.format must be one of %v (got: %s)", validFormats, c.Format)
	}
	return nil
}

func loadConfig(v *viper.Viper, path string) (*Config, error) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.no_color", false)

	v.SetEnvPrefix("CHAINZ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Log.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
