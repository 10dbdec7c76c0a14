// Package config provides configuration management for the terminal client.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Backend  BackendConfig  `mapstructure:"backend"`
	Poll     PollConfig     `mapstructure:"poll"`
	Trading  TradingConfig  `mapstructure:"trading"`
	Features FeatureConfig  `mapstructure:"features"`
	UI       UIConfig       `mapstructure:"ui"`
}

// BackendConfig holds connection settings for the trading backend.
type BackendConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// PollConfig holds the refresh cadences for the poller.
type PollConfig struct {
	AccountInterval time.Duration `mapstructure:"account_interval"`
	LogsInterval    time.Duration `mapstructure:"logs_interval"`
}

// TradingConfig holds trading-related configuration.
type TradingConfig struct {
	DefaultSymbol    string `mapstructure:"default_symbol"`
	DefaultTimeframe string `mapstructure:"default_timeframe"`
	BacktestBars     int    `mapstructure:"backtest_bars"`
}

// FeatureConfig enumerates the optional affordances of the terminal.
// Stake sizing and pattern badges mirror the advanced dashboard variant.
type FeatureConfig struct {
	StakeSizing   bool    `mapstructure:"stake_sizing"`
	PatternBadges bool    `mapstructure:"pattern_badges"`
	MinStake      float64 `mapstructure:"min_stake"`
	MaxStake      float64 `mapstructure:"max_stake"`
}

// UIConfig holds UI-related configuration.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled"`
	TimeFormat   string `mapstructure:"time_format"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/mt5-terminal"
	}
	return filepath.Join(home, ".config", "mt5-terminal")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found, create template and continue on defaults
			if err := createTemplateConfig(configDir); err != nil {
				return nil, fmt.Errorf("creating config template: %w", err)
			}
		} else {
			return nil, fmt.Errorf("loading config.toml: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend.base_url", "http://127.0.0.1:5000")
	v.SetDefault("backend.timeout", "10s")
	v.SetDefault("poll.account_interval", "5s")
	v.SetDefault("poll.logs_interval", "1s")
	v.SetDefault("trading.default_symbol", "EURUSD")
	v.SetDefault("trading.default_timeframe", "H1")
	v.SetDefault("trading.backtest_bars", 2000)
	v.SetDefault("features.stake_sizing", false)
	v.SetDefault("features.pattern_badges", false)
	v.SetDefault("features.min_stake", 5.0)
	v.SetDefault("features.max_stake", 1000.0)
	v.SetDefault("ui.color_enabled", true)
	v.SetDefault("ui.time_format", "15:04:05")
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MT5_BACKEND_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv("MT5_BACKEND_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Backend.Timeout = d
		}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url must be set")
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("backend.timeout must be positive")
	}
	if c.Poll.AccountInterval <= 0 {
		return fmt.Errorf("poll.account_interval must be positive")
	}
	if c.Poll.LogsInterval <= 0 {
		return fmt.Errorf("poll.logs_interval must be positive")
	}
	if c.Trading.BacktestBars <= 0 {
		return fmt.Errorf("trading.backtest_bars must be positive")
	}
	if c.Features.StakeSizing {
		if c.Features.MinStake <= 0 {
			return fmt.Errorf("features.min_stake must be positive")
		}
		if c.Features.MaxStake < c.Features.MinStake {
			return fmt.Errorf("features.max_stake must not be below features.min_stake")
		}
	}
	return nil
}
