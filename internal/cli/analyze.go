package cli

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mt5-terminal/internal/models"
)

// addAnalysisCommands adds signal analysis commands.
func addAnalysisCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newAnalyzeCmd(app))
	rootCmd.AddCommand(newBacktestCmd(app))
	rootCmd.AddCommand(newTrainCmd(app))
}

func newAnalyzeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [symbol]",
		Short: "Request a signal analysis",
		Long: `Request a signal analysis for a symbol and timeframe.

The backend computes the signal from its indicators and model; the
terminal displays it and holds it as the current signal for trade
execution.`,
		Example: `  mt5-terminal analyze
  mt5-terminal analyze GBPUSD
  mt5-terminal analyze EURUSD --timeframe M15`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()

			symbol := app.Config.Trading.DefaultSymbol
			if len(args) > 0 {
				symbol = strings.ToUpper(args[0])
			}
			timeframe, _ := cmd.Flags().GetString("timeframe")
			if timeframe == "" {
				timeframe = app.Config.Trading.DefaultTimeframe
			}

			if err := attachSession(ctx, app); err != nil {
				output.Error("%v", err)
				return err
			}

			signal, err := app.Orchestrator.Analyze(ctx, models.AnalyzeRequest{
				Symbol:    symbol,
				Timeframe: timeframe,
			})
			if err != nil {
				output.Error("Analysis failed: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(signal)
			}

			output.Bold("%s %s", signal.Symbol, signal.Timeframe)
			renderSignal(output, *signal, app.Config.Features.PatternBadges)
			return nil
		},
	}

	cmd.Flags().String("timeframe", "", "timeframe: M1, M5, M15, M30, H1, H4, D1")

	return cmd
}

func newBacktestCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backtest [symbol]",
		Short: "Run a backtest on the backend",
		Example: `  mt5-terminal backtest
  mt5-terminal backtest EURUSD --timeframe H1 --bars 5000`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			symbol := app.Config.Trading.DefaultSymbol
			if len(args) > 0 {
				symbol = strings.ToUpper(args[0])
			}
			timeframe, _ := cmd.Flags().GetString("timeframe")
			if timeframe == "" {
				timeframe = app.Config.Trading.DefaultTimeframe
			}
			bars, _ := cmd.Flags().GetInt("bars")
			if bars <= 0 {
				bars = app.Config.Trading.BacktestBars
			}

			if err := attachSession(ctx, app); err != nil {
				output.Error("%v", err)
				return err
			}

			output.Info("Running backtest on %s %s (%d bars)...", symbol, timeframe, bars)

			result, err := app.Orchestrator.Backtest(ctx, models.BacktestRequest{
				Symbol:    symbol,
				Timeframe: timeframe,
				Bars:      bars,
			})
			if err != nil {
				output.Error("Backtest failed: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(result)
			}

			output.Printf("  Win Rate:     %.1f%%\n", result.WinRate)
			output.Printf("  Total Trades: %d\n", result.TotalTrades)
			if result.ReturnPct >= 0 {
				output.Success("  Return:       +%.2f%%", result.ReturnPct)
			} else {
				output.Error("  Return:       %.2f%%", result.ReturnPct)
			}
			return nil
		},
	}

	cmd.Flags().String("timeframe", "", "timeframe: M1, M5, M15, M30, H1, H4, D1")
	cmd.Flags().Int("bars", 0, "number of bars to test")

	return cmd
}

func newTrainCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "train [symbol]",
		Short: "Train the backend's model for a symbol",
		Long:  "Train the backend's ML model. This may take several minutes.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
			defer cancel()

			symbol := app.Config.Trading.DefaultSymbol
			if len(args) > 0 {
				symbol = strings.ToUpper(args[0])
			}

			if err := attachSession(ctx, app); err != nil {
				output.Error("%v", err)
				return err
			}

			output.Info("Training model for %s...", symbol)

			result, err := app.Orchestrator.TrainModel(ctx, symbol)
			if err != nil {
				output.Error("Training failed: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(result)
			}

			output.Success("Model trained")
			output.Printf("  Train Score: %.2f%%\n", result.TrainScore*100)
			output.Printf("  Test Score:  %.2f%%\n", result.TestScore*100)
			return nil
		},
	}
}
