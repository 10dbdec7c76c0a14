package cli

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mt5-terminal/internal/store"
	"mt5-terminal/pkg/utils"
)

// addJournalCommands adds commands for browsing the local journal.
func addJournalCommands(rootCmd *cobra.Command, app *App) {
	journalCmd := &cobra.Command{
		Use:   "journal",
		Short: "Browse locally journaled signals and trades",
	}

	journalCmd.AddCommand(newJournalSignalsCmd(app))
	journalCmd.AddCommand(newJournalTradesCmd(app))

	rootCmd.AddCommand(journalCmd)
}

func newJournalSignalsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signals",
		Short: "List journaled signals",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Journal == nil {
				output.Warning("Journal is not available")
				return nil
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			symbol, _ := cmd.Flags().GetString("symbol")
			limit, _ := cmd.Flags().GetInt("limit")

			records, err := app.Journal.GetSignals(ctx, store.SignalFilter{
				Symbol: strings.ToUpper(symbol),
				Limit:  limit,
			})
			if err != nil {
				output.Error("Failed to read journal: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(records)
			}

			if len(records) == 0 {
				output.Info("No journaled signals")
				return nil
			}

			output.Printf("%-19s %-8s %-4s %-8s %-6s\n", "TIME", "SYMBOL", "TF", "SIGNAL", "CONF")
			for _, r := range records {
				class := r.Class.String()
				switch {
				case r.Class > 0:
					class = output.Green(class)
				case r.Class < 0:
					class = output.Red(class)
				default:
					class = output.DimText(class)
				}
				output.Printf("%-19s %-8s %-4s %-8s %s\n",
					r.ReceivedAt.Format("2006-01-02 15:04:05"),
					r.Symbol, r.Timeframe, class,
					utils.FormatConfidence(r.Confidence))
			}
			return nil
		},
	}

	cmd.Flags().String("symbol", "", "filter by symbol")
	cmd.Flags().Int("limit", 50, "maximum records to show")

	return cmd
}

func newJournalTradesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trades",
		Short: "List journaled trade executions",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Journal == nil {
				output.Warning("Journal is not available")
				return nil
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			symbol, _ := cmd.Flags().GetString("symbol")
			limit, _ := cmd.Flags().GetInt("limit")

			records, err := app.Journal.GetTrades(ctx, store.TradeFilter{
				Symbol: strings.ToUpper(symbol),
				Limit:  limit,
			})
			if err != nil {
				output.Error("Failed to read journal: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(records)
			}

			if len(records) == 0 {
				output.Info("No journaled trades")
				return nil
			}

			output.Printf("%-19s %-8s %-5s %-6s %-10s %-10s %-10s\n",
				"TIME", "SYMBOL", "SIDE", "LOTS", "ENTRY", "SL", "TP")
			for _, r := range records {
				side := strings.ToUpper(r.Side)
				if side == "BUY" {
					side = output.Green(side)
				} else {
					side = output.Red(side)
				}
				output.Printf("%-19s %-8s %-5s %-6s %-10s %-10s %-10s\n",
					r.ExecutedAt.Format("2006-01-02 15:04:05"),
					r.Symbol, side,
					utils.FormatLots(r.VolumeLots),
					utils.FormatPrice(r.Entry),
					utils.FormatPrice(r.StopLoss),
					utils.FormatPrice(r.TakeProfit))
			}
			return nil
		},
	}

	cmd.Flags().String("symbol", "", "filter by symbol")
	cmd.Flags().Int("limit", 50, "maximum records to show")

	return cmd
}
