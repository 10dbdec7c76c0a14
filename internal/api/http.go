package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"mt5-terminal/internal/errors"
	"mt5-terminal/internal/logging"
	"mt5-terminal/internal/models"
)

// HTTPClient implements the Client interface over plain HTTP+JSON.
type HTTPClient struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	logger  zerolog.Logger
}

// HTTPConfig holds configuration for the HTTP client.
type HTTPConfig struct {
	BaseURL string
	Timeout time.Duration
	Logger  zerolog.Logger
}

// NewHTTPClient creates a new HTTP backend client.
func NewHTTPClient(cfg HTTPConfig) *HTTPClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &HTTPClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: timeout,
		http:    &http.Client{},
		logger:  cfg.Logger,
	}
}

// envelope covers the backend's common response fields. The backend
// signals failure either with success=false or a non-empty error field.
type envelope struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (e *envelope) failure() (string, bool) {
	if e.Error != "" {
		return e.Error, true
	}
	if e.Success != nil && !*e.Success {
		if e.Message != "" {
			return e.Message, true
		}
		return "request failed", true
	}
	return "", false
}

// call performs one round trip and decodes the response body into out.
// Transport failures surface as *errors.NetworkError, backend-reported
// failures as *errors.BackendError. There are no automatic retries.
func (c *HTTPClient) call(ctx context.Context, method, endpoint string, payload, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return errors.Wrapf(err, "encoding request for %s", endpoint)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return errors.Wrapf(err, "building request for %s", endpoint)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	logging.LogAPICall(c.logger, method, endpoint, time.Since(start), err)
	if err != nil {
		return errors.NewNetworkError(endpoint, isTimeout(err), err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.NewNetworkError(endpoint, isTimeout(err), err)
	}

	if resp.StatusCode >= 400 {
		msg := extractMessage(data)
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}
		return errors.NewBackendError(endpoint, msg)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err == nil {
		if msg, failed := env.failure(); failed {
			return errors.NewBackendError(endpoint, msg)
		}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return errors.Wrapf(err, "decoding response from %s", endpoint)
		}
	}

	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return uerr.Timeout()
	}
	return false
}

func extractMessage(data []byte) string {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return ""
	}
	if env.Error != "" {
		return env.Error
	}
	return env.Message
}

// connectResponse is the wire shape of /api/connect.
type connectResponse struct {
	Success     bool                   `json:"success"`
	Message     string                 `json:"message"`
	AccountType string                 `json:"account_type"`
	Account     models.AccountSnapshot `json:"account"`
}

// Connect establishes a session with the trading account.
func (c *HTTPClient) Connect(ctx context.Context, req models.ConnectRequest) (*ConnectResult, error) {
	var resp connectResponse
	if err := c.call(ctx, http.MethodPost, "/api/connect", req, &resp); err != nil {
		return nil, err
	}

	resp.Account.FetchedAt = time.Now()
	return &ConnectResult{
		AccountType: models.ParseAccountType(resp.AccountType),
		Account:     resp.Account,
	}, nil
}

// Disconnect closes the backend session. Best effort.
func (c *HTTPClient) Disconnect(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, "/api/disconnect", nil, nil)
}

// Analyze requests a signal analysis for a symbol and timeframe.
func (c *HTTPClient) Analyze(ctx context.Context, req models.AnalyzeRequest) (*models.Signal, error) {
	var signal models.Signal
	if err := c.call(ctx, http.MethodPost, "/api/analyze", req, &signal); err != nil {
		return nil, err
	}

	signal.Timeframe = req.Timeframe
	signal.ReceivedAt = time.Now()
	return &signal, nil
}

// Backtest runs a backtest on the backend.
func (c *HTTPClient) Backtest(ctx context.Context, req models.BacktestRequest) (*models.BacktestResult, error) {
	var result models.BacktestResult
	if err := c.call(ctx, http.MethodPost, "/api/backtest", req, &result); err != nil {
		return nil, err
	}

	result.Symbol = req.Symbol
	result.Timeframe = req.Timeframe
	result.Bars = req.Bars
	return &result, nil
}

// TrainModel trains the backend's ML model for a symbol.
func (c *HTTPClient) TrainModel(ctx context.Context, symbol string) (*models.TrainResult, error) {
	payload := map[string]string{"symbol": symbol}

	var result models.TrainResult
	if err := c.call(ctx, http.MethodPost, "/api/train-model", payload, &result); err != nil {
		return nil, err
	}

	result.Symbol = symbol
	return &result, nil
}

// tradeResponse is the wire shape of /api/execute-trade.
type tradeResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Order   models.TradeOrder `json:"order"`
}

// ExecuteTrade places a trade for the given signal.
func (c *HTTPClient) ExecuteTrade(ctx context.Context, req models.TradeRequest) (*TradeResult, error) {
	var resp tradeResponse
	if err := c.call(ctx, http.MethodPost, "/api/execute-trade", req, &resp); err != nil {
		return nil, err
	}

	return &TradeResult{
		Order:   resp.Order,
		Message: resp.Message,
	}, nil
}

// ClosePosition closes an open position by ticket.
func (c *HTTPClient) ClosePosition(ctx context.Context, ticket int64) error {
	endpoint := fmt.Sprintf("/api/close-position/%d", ticket)
	return c.call(ctx, http.MethodPost, endpoint, nil, nil)
}

// StartTrading enables automated trading on the backend.
func (c *HTTPClient) StartTrading(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, "/api/start-trading", nil, nil)
}

// StopTrading disables automated trading on the backend.
func (c *HTTPClient) StopTrading(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, "/api/stop-trading", nil, nil)
}

// Account fetches the current account snapshot.
func (c *HTTPClient) Account(ctx context.Context) (*models.AccountSnapshot, error) {
	var snapshot models.AccountSnapshot
	if err := c.call(ctx, http.MethodGet, "/api/account", nil, &snapshot); err != nil {
		return nil, err
	}

	snapshot.FetchedAt = time.Now()
	return &snapshot, nil
}

// Positions fetches all open positions.
func (c *HTTPClient) Positions(ctx context.Context) ([]models.Position, error) {
	var positions []models.Position
	if err := c.call(ctx, http.MethodGet, "/api/positions", nil, &positions); err != nil {
		return nil, err
	}
	return positions, nil
}

// Logs fetches the backend's log tail.
func (c *HTTPClient) Logs(ctx context.Context) ([]models.LogEntry, error) {
	var entries []models.LogEntry
	if err := c.call(ctx, http.MethodGet, "/api/logs", nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Ensure HTTPClient implements Client interface
var _ Client = (*HTTPClient)(nil)
