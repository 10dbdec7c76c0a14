package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# MT5 Terminal Configuration

[backend]
# Base URL of the trading backend
base_url = "http://127.0.0.1:5000"
# Per-request timeout (e.g., "10s")
timeout = "10s"

[poll]
# Account + positions refresh interval
account_interval = "5s"
# Log tail refresh interval
logs_interval = "1s"

[trading]
# Default symbol for analyze/backtest
default_symbol = "EURUSD"
# Default timeframe: M1, M5, M15, M30, H1, H4, D1
default_timeframe = "H1"
# Number of bars for backtests
backtest_bars = 2000

[features]
# Prompt for a stake amount on trade execution
stake_sizing = false
# Show candlestick pattern counts with signals
pattern_badges = false
# Stake bounds (used when stake_sizing is enabled)
min_stake = 5.0
max_stake = 1000.0

[ui]
# Enable colored output
color_enabled = true
# Time format
time_format = "15:04:05"
`

// createTemplateConfig writes a template config file the user can edit.
func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := os.WriteFile(path, []byte(configTemplate), 0600); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}
