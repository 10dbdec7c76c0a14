// Package models provides domain models for the terminal client.
package models

import (
	"time"
)

// SessionStatus represents the connection lifecycle state.
type SessionStatus string

const (
	StatusDisconnected     SessionStatus = "DISCONNECTED"
	StatusConnecting       SessionStatus = "CONNECTING"
	StatusConnected        SessionStatus = "CONNECTED"
	StatusConnectionFailed SessionStatus = "CONNECTION_FAILED"
)

// AccountType represents the kind of trading account behind the session.
type AccountType string

const (
	AccountNone AccountType = "NONE"
	AccountDemo AccountType = "DEMO"
	AccountLive AccountType = "LIVE"
)

// ParseAccountType maps the backend's account_type field to an AccountType.
func ParseAccountType(s string) AccountType {
	switch s {
	case "DEMO", "demo":
		return AccountDemo
	case "LIVE", "REAL", "live", "real":
		return AccountLive
	default:
		return AccountNone
	}
}

// AccountSnapshot holds the account figures from one backend read.
// It is always replaced wholesale, never merged field by field.
type AccountSnapshot struct {
	Balance    float64   `json:"balance"`
	Equity     float64   `json:"equity"`
	Profit     float64   `json:"profit"`
	FreeMargin float64   `json:"free_margin"`
	FetchedAt  time.Time `json:"fetched_at"`
}

// PositionSide represents the direction of an open position.
type PositionSide string

const (
	PositionBuy  PositionSide = "buy"
	PositionSell PositionSide = "sell"
)

// Position represents one open trade on the backend.
type Position struct {
	Ticket       int64        `json:"ticket"`
	Symbol       string       `json:"symbol"`
	Side         PositionSide `json:"type"`
	VolumeLots   float64      `json:"volume"`
	PriceOpen    float64      `json:"price_open"`
	PriceCurrent float64      `json:"price_current"`
	StopLoss     float64      `json:"sl"`
	TakeProfit   float64      `json:"tp"`
	Profit       float64      `json:"profit"`
}

// SignalClass represents the direction of a trade recommendation.
type SignalClass int

const (
	SignalSell    SignalClass = -1
	SignalNeutral SignalClass = 0
	SignalBuy     SignalClass = 1
)

// String returns the display name of the signal class.
func (c SignalClass) String() string {
	switch c {
	case SignalBuy:
		return "BUY"
	case SignalSell:
		return "SELL"
	default:
		return "NEUTRAL"
	}
}

// IndicatorSnapshot holds the indicator values backing a signal.
type IndicatorSnapshot struct {
	RSI  float64 `json:"rsi"`
	MACD float64 `json:"macd"`
	ADX  float64 `json:"adx"`
	ATR  float64 `json:"atr"`
}

// Signal represents one computed trade recommendation from the backend.
// Exactly one current signal exists at a time; requesting a new analysis
// invalidates the previous one for trade execution.
type Signal struct {
	Symbol          string            `json:"symbol"`
	Timeframe       string            `json:"timeframe"`
	Class           SignalClass       `json:"signal"`
	Text            string            `json:"signal_text"`
	Confidence      float64           `json:"confidence"`
	Indicators      IndicatorSnapshot `json:"indicators"`
	BullishPatterns int               `json:"bullish_patterns,omitempty"`
	BearishPatterns int               `json:"bearish_patterns,omitempty"`
	ReceivedAt      time.Time         `json:"received_at"`
}

// LogLevel represents a backend log entry severity.
type LogLevel string

const (
	LogLevelInfo    LogLevel = "INFO"
	LogLevelWarning LogLevel = "WARNING"
	LogLevelError   LogLevel = "ERROR"
)

// LogEntry represents one line of the backend log tail.
type LogEntry struct {
	Timestamp string   `json:"timestamp"`
	Level     LogLevel `json:"level"`
	Message   string   `json:"message"`
}

// TradeOrder represents the order returned by a successful trade execution.
type TradeOrder struct {
	Symbol     string  `json:"symbol"`
	Type       string  `json:"type"`
	VolumeLots float64 `json:"volume"`
	Entry      float64 `json:"entry"`
	StopLoss   float64 `json:"sl"`
	TakeProfit float64 `json:"tp"`
}

// BacktestResult holds the outcome of a backtest run.
type BacktestResult struct {
	Symbol      string  `json:"symbol"`
	Timeframe   string  `json:"timeframe"`
	Bars        int     `json:"bars"`
	WinRate     float64 `json:"win_rate"`
	TotalTrades int     `json:"total_trades"`
	ReturnPct   float64 `json:"return_pct"`
}

// TrainResult holds the outcome of a model training run.
type TrainResult struct {
	Symbol     string  `json:"symbol"`
	TrainScore float64 `json:"train_score"`
	TestScore  float64 `json:"test_score"`
}
