package cli

import (
	"bufio"
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mt5-terminal/internal/models"
	"mt5-terminal/pkg/utils"
)

// addTradingCommands adds trade execution and position commands.
func addTradingCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newTradeCmd(app))
	rootCmd.AddCommand(newCloseCmd(app))
	rootCmd.AddCommand(newPositionsCmd(app))
	rootCmd.AddCommand(newAccountCmd(app))
}

func newTradeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trade",
		Short: "Execute a trade from the current signal",
		Long: `Execute a trade based on the most recent analysis.

Runs analysis first if no signal is held, shows the signal, and asks
for confirmation before sending the order. A neutral signal is never
tradeable.`,
		Example: `  mt5-terminal trade
  mt5-terminal trade --symbol EURUSD --yes
  mt5-terminal trade --stake 25`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			symbol, _ := cmd.Flags().GetString("symbol")
			if symbol == "" {
				symbol = app.Config.Trading.DefaultSymbol
			}
			symbol = strings.ToUpper(symbol)
			stake, _ := cmd.Flags().GetFloat64("stake")
			skipConfirm, _ := cmd.Flags().GetBool("yes")

			if err := attachSession(ctx, app); err != nil {
				output.Error("%v", err)
				return err
			}

			signal, ok := app.Orchestrator.CurrentSignal()
			if !ok || signal.Symbol != symbol {
				output.Info("Analyzing %s %s...", symbol, app.Config.Trading.DefaultTimeframe)
				fresh, err := app.Orchestrator.Analyze(ctx, models.AnalyzeRequest{
					Symbol:    symbol,
					Timeframe: app.Config.Trading.DefaultTimeframe,
				})
				if err != nil {
					output.Error("Analysis failed: %v", err)
					return err
				}
				signal = *fresh
			}

			renderSignal(output, signal, app.Config.Features.PatternBadges)

			if signal.Class == models.SignalNeutral {
				output.Warning("Signal is neutral, nothing to trade")
				return nil
			}

			if !skipConfirm && !output.IsJSON() {
				if !confirmPrompt(output, "Execute this trade?") {
					output.Info("Trade cancelled")
					return nil
				}
			}

			result, err := app.Orchestrator.ExecuteTrade(ctx, symbol, stake)
			if err != nil {
				output.Error("Trade failed: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(result)
			}

			output.Success("Trade executed: %s", result.Message)
			output.Printf("  %s %s %s @ %s\n",
				strings.ToUpper(result.Order.Type),
				utils.FormatLots(result.Order.VolumeLots),
				result.Order.Symbol,
				utils.FormatPrice(result.Order.Entry))
			output.Printf("  SL %s  TP %s\n",
				utils.FormatPrice(result.Order.StopLoss),
				utils.FormatPrice(result.Order.TakeProfit))
			return nil
		},
	}

	cmd.Flags().String("symbol", "", "symbol to trade")
	cmd.Flags().Float64("stake", 0, "stake amount used for volume sizing")
	cmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")

	return cmd
}

func newCloseCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "close <ticket>",
		Short: "Close an open position",
		Example: `  mt5-terminal close 184502931`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			ticket, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				output.Error("Invalid ticket: %s", args[0])
				return err
			}

			if err := attachSession(ctx, app); err != nil {
				output.Error("%v", err)
				return err
			}

			if err := app.Orchestrator.ClosePosition(ctx, ticket); err != nil {
				output.Error("Close failed: %v", err)
				return err
			}

			output.Success("Position %d closed", ticket)
			return nil
		},
	}
}

func newPositionsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "positions",
		Aliases: []string{"pos"},
		Short:   "List open positions",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			positions, err := app.Client.Positions(ctx)
			if err != nil {
				output.Error("Failed to fetch positions: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(positions)
			}

			renderPositions(output, positions)
			return nil
		},
	}
}

func newAccountCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "account",
		Short: "Show account balance, equity, and margin",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			account, err := app.Client.Account(ctx)
			if err != nil {
				output.Error("Failed to fetch account: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(account)
			}

			renderAccount(output, *account)
			return nil
		},
	}
}

func confirmPrompt(output *Output, question string) bool {
	output.Printf("%s [y/N]: ", question)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
