// Package store provides local journaling of terminal activity.
package store

import (
	"context"
	"time"

	"mt5-terminal/internal/models"
)

// Journal records signals, trades, backtests, and training runs for
// later review. All writes are best-effort from the caller's point of
// view; a journaling failure never blocks an action.
type Journal interface {
	SaveSignal(ctx context.Context, signal *models.Signal) error
	GetSignals(ctx context.Context, filter SignalFilter) ([]SignalRecord, error)

	SaveTrade(ctx context.Context, trade *TradeRecord) error
	GetTrades(ctx context.Context, filter TradeFilter) ([]TradeRecord, error)

	SaveBacktest(ctx context.Context, result *models.BacktestResult) error
	SaveTraining(ctx context.Context, result *models.TrainResult) error

	Close() error
}

// SignalRecord is a journaled signal.
type SignalRecord struct {
	ID         int64
	Symbol     string
	Timeframe  string
	Class      models.SignalClass
	Confidence float64
	RSI        float64
	MACD       float64
	ADX        float64
	ATR        float64
	ReceivedAt time.Time
}

// TradeRecord is a journaled trade execution.
type TradeRecord struct {
	ID         int64
	Symbol     string
	Side       string
	VolumeLots float64
	Entry      float64
	StopLoss   float64
	TakeProfit float64
	Confidence float64
	ExecutedAt time.Time
}

// SignalFilter narrows signal queries.
type SignalFilter struct {
	Symbol string
	From   time.Time
	To     time.Time
	Limit  int
}

// TradeFilter narrows trade queries.
type TradeFilter struct {
	Symbol string
	From   time.Time
	To     time.Time
	Limit  int
}
