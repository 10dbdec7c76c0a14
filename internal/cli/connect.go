package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mt5-terminal/internal/models"
)

// addSessionCommands adds connection lifecycle commands.
func addSessionCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newConnectCmd(app))
	rootCmd.AddCommand(newDisconnectCmd(app))
	rootCmd.AddCommand(newStatusCmd(app))
}

func newConnectCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Connect to a trading account",
		Long: `Connect to a trading account through the backend.

Login, server, and terminal path are prefilled from the credential cache
when available. The password is read from the MT5_PASSWORD environment
variable or prompted for, and is never written to disk.`,
		Example: `  mt5-terminal connect
  mt5-terminal connect --login 12345678 --server Broker-Demo
  mt5-terminal connect --login 12345678 --server Broker-Demo --save`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()

			login, _ := cmd.Flags().GetString("login")
			server, _ := cmd.Flags().GetString("server")
			path, _ := cmd.Flags().GetString("path")
			save, _ := cmd.Flags().GetBool("save")

			// Prefill from the credential cache
			if cached, ok := app.Credentials.Load(); ok {
				if login == "" {
					login = cached.Login
				}
				if server == "" {
					server = cached.Server
				}
				if path == "" {
					path = cached.Path
				}
			}

			reader := bufio.NewReader(cmd.InOrStdin())
			var err error
			if login == "" {
				if login, err = promptLine(output, reader, "Login: "); err != nil {
					return err
				}
			}
			if server == "" {
				if server, err = promptLine(output, reader, "Server: "); err != nil {
					return err
				}
			}

			password := os.Getenv("MT5_PASSWORD")
			if password == "" {
				if password, err = promptLine(output, reader, "Password: "); err != nil {
					return err
				}
			}

			req := models.ConnectRequest{
				Login:    login,
				Password: password,
				Server:   server,
				Path:     path,
			}

			result, err := app.Orchestrator.Connect(ctx, req)
			if err != nil {
				output.Error("Connection failed: %v", err)
				return err
			}

			if save {
				if err := app.Credentials.Save(login, server, path); err != nil {
					output.Warning("Failed to cache connection parameters: %v", err)
				}
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"account_type": result.AccountType,
					"account":      result.Account,
				})
			}

			output.Success("Connected (%s account)", result.AccountType)
			renderAccount(output, result.Account)
			return nil
		},
	}

	cmd.Flags().String("login", "", "account login")
	cmd.Flags().String("server", "", "broker server name")
	cmd.Flags().String("path", "", "terminal executable path")
	cmd.Flags().Bool("save", false, "cache login/server/path for next time")

	return cmd
}

func newDisconnectCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect",
		Short: "Disconnect from the trading account",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if err := attachSession(ctx, app); err != nil {
				output.Error("%v", err)
				return err
			}

			if err := app.Orchestrator.Disconnect(ctx); err != nil {
				output.Error("Disconnect failed: %v", err)
				return err
			}

			output.Success("Disconnected")
			return nil
		},
	}
}

func newStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show backend connection status",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			snapshot, err := app.Client.Account(ctx)
			if err != nil {
				if output.IsJSON() {
					return output.JSON(map[string]interface{}{"connected": false, "error": err.Error()})
				}
				output.Warning("Not connected: %v", err)
				return nil
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"connected": true, "account": snapshot})
			}

			output.Success("Connected")
			renderAccount(output, *snapshot)
			return nil
		},
	}
}

// attachSession joins the backend's existing session: a successful
// account read proves the backend is connected, and the local machine
// transitions to Connected with that snapshot. Commands that act on the
// session use this instead of re-sending credentials.
func attachSession(ctx context.Context, app *App) error {
	if app.Machine.IsConnected() {
		return nil
	}

	snapshot, err := app.Client.Account(ctx)
	if err != nil {
		return fmt.Errorf("not connected to a trading account (run 'mt5-terminal connect' first): %w", err)
	}

	if err := app.Machine.BeginConnect(); err != nil {
		return err
	}
	return app.Machine.CompleteConnect(models.AccountNone, *snapshot)
}

func promptLine(output *Output, reader *bufio.Reader, prompt string) (string, error) {
	output.Printf("%s", prompt)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
