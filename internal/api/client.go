// Package api provides the typed client for the trading backend's HTTP API.
package api

import (
	"context"

	"mt5-terminal/internal/models"
)

// Client defines the interface for backend operations. Every method maps
// to one endpoint; none retries automatically, and every call is bounded
// by the context deadline supplied by the caller.
type Client interface {
	// Session
	Connect(ctx context.Context, req models.ConnectRequest) (*ConnectResult, error)
	Disconnect(ctx context.Context) error

	// Analysis
	Analyze(ctx context.Context, req models.AnalyzeRequest) (*models.Signal, error)
	Backtest(ctx context.Context, req models.BacktestRequest) (*models.BacktestResult, error)
	TrainModel(ctx context.Context, symbol string) (*models.TrainResult, error)

	// Trading
	ExecuteTrade(ctx context.Context, req models.TradeRequest) (*TradeResult, error)
	ClosePosition(ctx context.Context, ticket int64) error
	StartTrading(ctx context.Context) error
	StopTrading(ctx context.Context) error

	// State
	Account(ctx context.Context) (*models.AccountSnapshot, error)
	Positions(ctx context.Context) ([]models.Position, error)
	Logs(ctx context.Context) ([]models.LogEntry, error)
}

// ConnectResult represents the outcome of a successful connect call.
type ConnectResult struct {
	AccountType models.AccountType
	Account     models.AccountSnapshot
}

// TradeResult represents the outcome of a successful trade execution.
type TradeResult struct {
	Order   models.TradeOrder
	Message string
}
