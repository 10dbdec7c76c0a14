package models

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ConnectRequest holds the parameters for connecting to a trading account.
// The password is sent on connect and never retained afterwards.
type ConnectRequest struct {
	Login    string `json:"login" validate:"required,numeric"`
	Password string `json:"password" validate:"required"`
	Server   string `json:"server" validate:"required"`
	Path     string `json:"path"`
}

// Validate checks the connect parameters before any network call.
func (r *ConnectRequest) Validate() error {
	return validate.Struct(r)
}

// TradeRequest holds the parameters for executing a trade from a signal.
type TradeRequest struct {
	Symbol string  `json:"symbol" validate:"required"`
	Signal int     `json:"signal" validate:"required,ne=0"`
	Stake  float64 `json:"stake,omitempty" validate:"omitempty,gt=0"`
}

// Validate checks the trade parameters before any network call.
func (r *TradeRequest) Validate() error {
	return validate.Struct(r)
}

// AnalyzeRequest holds the parameters for a signal analysis.
type AnalyzeRequest struct {
	Symbol    string `json:"symbol" validate:"required"`
	Timeframe string `json:"timeframe" validate:"required"`
}

// Validate checks the analysis parameters before any network call.
func (r *AnalyzeRequest) Validate() error {
	return validate.Struct(r)
}

// BacktestRequest holds the parameters for a backtest run.
type BacktestRequest struct {
	Symbol    string `json:"symbol" validate:"required"`
	Timeframe string `json:"timeframe" validate:"required"`
	Bars      int    `json:"bars" validate:"gt=0"`
}

// Validate checks the backtest parameters before any network call.
func (r *BacktestRequest) Validate() error {
	return validate.Struct(r)
}
