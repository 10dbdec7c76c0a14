// Package cli provides the command-line interface for the terminal client.
package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"mt5-terminal/internal/api"
	"mt5-terminal/internal/config"
	"mt5-terminal/internal/credentials"
	"mt5-terminal/internal/logging"
	"mt5-terminal/internal/orchestrator"
	"mt5-terminal/internal/poller"
	"mt5-terminal/internal/session"
	"mt5-terminal/internal/store"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2024-01-01"
)

// App holds the application dependencies.
type App struct {
	Config       *config.Config
	Logger       zerolog.Logger
	Client       api.Client
	Machine      *session.Machine
	Poller       *poller.Poller
	Orchestrator *orchestrator.Orchestrator
	Journal      store.Journal
	Credentials  *credentials.Cache
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	app.Client = api.NewHTTPClient(api.HTTPConfig{
		BaseURL: cfg.Backend.BaseURL,
		Timeout: cfg.Backend.Timeout,
		Logger:  logger,
	})

	app.Machine = session.NewMachine(logger)
	app.Poller = poller.New(app.Client, app.Machine, poller.Config{
		AccountInterval: cfg.Poll.AccountInterval,
		LogsInterval:    cfg.Poll.LogsInterval,
	}, logger)

	app.Credentials = credentials.NewCache(config.DefaultConfigDir())

	// Initialize SQLite journal
	dbPath := config.DefaultConfigDir() + "/terminal.db"
	journal, err := store.NewSQLiteJournal(dbPath)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize journal, history will be unavailable")
	} else {
		app.Journal = journal
	}

	app.Orchestrator = orchestrator.New(app.Client, app.Machine, app.Poller, app.Journal, cfg, logger)

	rootCmd := &cobra.Command{
		Use:   "mt5-terminal",
		Short: "MT5 Terminal - trading backend client",
		Long: `MT5 Terminal is a command-line client for an MT5 signal-trading backend.

It connects to a trading account through the backend's HTTP API, requests
signal analysis, executes trades, and keeps account, position, and log
state synchronized by periodic refresh.

Use 'mt5-terminal help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Handle debug flag
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/mt5-terminal)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	// Add all command groups
	addCoreCommands(rootCmd, app)
	addSessionCommands(rootCmd, app)
	addAnalysisCommands(rootCmd, app)
	addTradingCommands(rootCmd, app)
	addAutomationCommands(rootCmd, app)
	addMonitoringCommands(rootCmd, app)
	addJournalCommands(rootCmd, app)

	return rootCmd
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("MT5 Terminal v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			output.Bold("Backend")
			output.Printf("  base_url: %s\n", app.Config.Backend.BaseURL)
			output.Printf("  timeout:  %s\n", app.Config.Backend.Timeout)
			output.Bold("Poll")
			output.Printf("  account_interval: %s\n", app.Config.Poll.AccountInterval)
			output.Printf("  logs_interval:    %s\n", app.Config.Poll.LogsInterval)
			output.Bold("Trading")
			output.Printf("  default_symbol:    %s\n", app.Config.Trading.DefaultSymbol)
			output.Printf("  default_timeframe: %s\n", app.Config.Trading.DefaultTimeframe)
			output.Printf("  backtest_bars:     %d\n", app.Config.Trading.BacktestBars)
			output.Bold("Features")
			output.Printf("  stake_sizing:   %v\n", app.Config.Features.StakeSizing)
			output.Printf("  pattern_badges: %v\n", app.Config.Features.PatternBadges)
			if app.Config.Features.StakeSizing {
				output.Printf("  stake bounds:   %.2f - %.2f\n", app.Config.Features.MinStake, app.Config.Features.MaxStake)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}
