package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mt5-terminal/internal/notify"
	"mt5-terminal/internal/poller"
	"mt5-terminal/pkg/utils"
)

// addMonitoringCommands adds the live dashboard and log commands.
func addMonitoringCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newWatchCmd(app))
	rootCmd.AddCommand(newLogsCmd(app))
}

func newWatchCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Live view of account, positions, and backend logs",
		Long: `Poll the backend on its configured cadences and render the account
state, open positions, and recent backend logs until interrupted.

Account and positions refresh together; logs refresh on their own
faster cadence. Press Ctrl+C to stop.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			if err := attachSession(ctx, app); err != nil {
				output.Error("%v", err)
				return err
			}

			updates := make(chan poller.Resource, 8)
			app.Poller.OnUpdate(func(resource poller.Resource) {
				select {
				case updates <- resource:
				default:
				}
			})

			app.Poller.Start(ctx)
			defer app.Poller.Stop()
			app.Poller.RefreshNow(ctx)

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			output.Info("Watching (Ctrl+C to stop)...")

			alerts := &alertLog{output: output}
			tracker := notify.NewTracker(alerts)
			tracker.Observe(app.Machine.Positions())

			// Coalesce bursts of updates into one redraw.
			redraw := time.NewTimer(0)
			if !redraw.Stop() {
				<-redraw.C
			}
			for {
				select {
				case <-sigCh:
					output.Println()
					output.Info("Stopped")
					return nil
				case <-updates:
					redraw.Reset(150 * time.Millisecond)
				case <-redraw.C:
					tracker.Observe(app.Machine.Positions())
					renderDashboard(output, app, alerts)
				}
			}
		},
	}
}

// alertLog keeps the most recent position change events for the
// dashboard footer.
type alertLog struct {
	output *Output
	lines  []string
}

const alertLogDepth = 5

func (a *alertLog) Notify(event notify.Event) {
	var line string
	switch event.Type {
	case notify.EventOpened:
		line = fmt.Sprintf("%s  %s %s %s %s",
			event.Observed.Format("15:04:05"),
			a.output.Green("OPENED"),
			strings.ToUpper(string(event.Side)),
			utils.FormatLots(event.Volume),
			event.Symbol)
	case notify.EventClosed:
		line = fmt.Sprintf("%s  %s %s %s (%s)",
			event.Observed.Format("15:04:05"),
			a.output.Yellow("CLOSED"),
			event.Symbol,
			utils.FormatLots(event.Volume),
			utils.FormatProfit(event.Profit))
	}

	a.lines = append(a.lines, line)
	if len(a.lines) > alertLogDepth {
		a.lines = a.lines[len(a.lines)-alertLogDepth:]
	}
}

func renderDashboard(output *Output, app *App, alerts *alertLog) {
	output.Printf("\033[2J\033[H")
	output.Bold("mt5-terminal  %s", time.Now().Format("15:04:05"))
	output.Println()

	if account, ok := app.Machine.Account(); ok {
		renderAccount(output, account)
		output.Println()
	}

	renderPositions(output, app.Machine.Positions())
	output.Println()

	if entries := app.Machine.Logs(); len(entries) > 0 {
		output.Bold("Backend Logs")
		renderLogs(output, entries)
	}

	if len(alerts.lines) > 0 {
		output.Println()
		output.Bold("Position Changes")
		for _, line := range alerts.lines {
			output.Println(line)
		}
	}
}

func newLogsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logs",
		Short: "Show recent backend logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			entries, err := app.Client.Logs(ctx)
			if err != nil {
				output.Error("Failed to fetch logs: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(entries)
			}

			renderLogs(output, entries)
			return nil
		},
	}
}
