package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

// addAutomationCommands adds server-side automation toggle commands.
func addAutomationCommands(rootCmd *cobra.Command, app *App) {
	autoCmd := &cobra.Command{
		Use:   "auto",
		Short: "Control server-side automated trading",
	}

	autoCmd.AddCommand(newAutoStartCmd(app))
	autoCmd.AddCommand(newAutoStopCmd(app))
	autoCmd.AddCommand(newAutoStatusCmd(app))

	rootCmd.AddCommand(autoCmd)
}

func newAutoStartCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start automated trading on the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if err := attachSession(ctx, app); err != nil {
				output.Error("%v", err)
				return err
			}

			if app.Machine.Automation() {
				output.Info("Automated trading is already running")
				return nil
			}

			if err := app.Orchestrator.StartAutomation(ctx); err != nil {
				output.Error("Failed to start automation: %v", err)
				return err
			}

			output.Success("Automated trading started")
			return nil
		},
	}
}

func newAutoStopCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop automated trading on the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if err := attachSession(ctx, app); err != nil {
				output.Error("%v", err)
				return err
			}

			if err := app.Orchestrator.StopAutomation(ctx); err != nil {
				output.Error("Failed to stop automation: %v", err)
				return err
			}

			output.Success("Automated trading stopped")
			return nil
		},
	}
}

func newAutoStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the automation flag held by this terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			if output.IsJSON() {
				return output.JSON(map[string]bool{"automation": app.Machine.Automation()})
			}

			if app.Machine.Automation() {
				output.Success("Automation: running")
			} else {
				output.Info("Automation: stopped")
			}
			return nil
		},
	}
}
