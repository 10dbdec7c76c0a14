// Package orchestrator drives the user-facing flows of the terminal:
// connect/disconnect, analyze -> confirm -> execute, and the automated
// trading toggle. Every action consults the session machine before
// touching the backend.
package orchestrator

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"mt5-terminal/internal/api"
	"mt5-terminal/internal/config"
	"mt5-terminal/internal/errors"
	"mt5-terminal/internal/logging"
	"mt5-terminal/internal/models"
	"mt5-terminal/internal/poller"
	"mt5-terminal/internal/session"
	"mt5-terminal/internal/store"
)

// AnalysisState tracks the per-request lifecycle of a signal analysis.
type AnalysisState string

const (
	AnalysisIdle       AnalysisState = "IDLE"
	AnalysisRequesting AnalysisState = "REQUESTING"
	AnalysisReady      AnalysisState = "READY"
	AnalysisFailed     AnalysisState = "FAILED"
)

// Orchestrator coordinates the session machine, backend client, poller,
// and journal. It owns the single current signal; issuing a new analysis
// invalidates the held signal immediately at request time, and a
// response is applied only when its request id is still the latest, so a
// slow early response can never overwrite a newer one.
type Orchestrator struct {
	client  api.Client
	machine *session.Machine
	poller  *poller.Poller
	journal store.Journal
	cfg     *config.Config
	logger  zerolog.Logger

	mu            sync.Mutex
	analysisState AnalysisState
	signal        *models.Signal
	signalGen     uint64
	latestRequest uint64
}

// New creates an orchestrator. The journal may be nil; journaling is
// best-effort and never blocks an action.
func New(client api.Client, machine *session.Machine, p *poller.Poller, journal store.Journal, cfg *config.Config, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		client:        client,
		machine:       machine,
		poller:        p,
		journal:       journal,
		cfg:           cfg,
		logger:        logger,
		analysisState: AnalysisIdle,
	}
}

// AnalysisStatus returns the current analysis request state.
func (o *Orchestrator) AnalysisStatus() AnalysisState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.analysisState
}

// CurrentSignal returns the held signal, if one is ready and was
// produced during the current session generation.
func (o *Orchestrator) CurrentSignal() (models.Signal, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.analysisState != AnalysisReady || o.signal == nil {
		return models.Signal{}, false
	}
	if o.signalGen != o.machine.Generation() {
		return models.Signal{}, false
	}
	return *o.signal, true
}

// Connect establishes a session. On success it records the account type,
// starts the poller, and performs an immediate account+position refresh
// rather than waiting for the first tick. The password is used for the
// single connect call and never retained.
func (o *Orchestrator) Connect(ctx context.Context, req models.ConnectRequest) (*api.ConnectResult, error) {
	if err := req.Validate(); err != nil {
		return nil, errors.NewPreconditionError("connect", err)
	}

	if err := o.machine.BeginConnect(); err != nil {
		return nil, err
	}

	result, err := o.client.Connect(ctx, req)
	if err != nil {
		if ferr := o.machine.FailConnect(); ferr == nil {
			// Resolve the failed attempt back to Disconnected so the
			// next connect is permitted.
			_ = o.machine.AcknowledgeFailure()
		}
		return nil, err
	}

	if err := o.machine.CompleteConnect(result.AccountType, result.Account); err != nil {
		return nil, err
	}

	o.poller.Start(context.Background())
	o.poller.RefreshNow(ctx)

	return result, nil
}

// Disconnect tears the session down. The local transition always wins:
// the poller stops, local state clears, and a failing remote disconnect
// is logged rather than surfaced, so the client never gets stuck.
func (o *Orchestrator) Disconnect(ctx context.Context) error {
	if err := o.machine.Disconnect(); err != nil {
		return err
	}

	o.poller.Stop()

	o.mu.Lock()
	o.analysisState = AnalysisIdle
	o.signal = nil
	o.mu.Unlock()

	if err := o.client.Disconnect(ctx); err != nil {
		o.logger.Warn().Err(err).Msg("Remote disconnect failed, local state already cleared")
	}

	return nil
}

// Analyze requests a signal for a symbol and timeframe. The held signal
// is invalidated as soon as the request is issued, not when the response
// arrives, and each request carries a monotonic id: a response is
// applied only while its id is still the latest, so a slow earlier
// response never lands after a newer request started.
func (o *Orchestrator) Analyze(ctx context.Context, req models.AnalyzeRequest) (*models.Signal, error) {
	if err := req.Validate(); err != nil {
		return nil, errors.NewPreconditionError("analyze", err)
	}
	if !o.machine.IsConnected() {
		return nil, errors.NewPreconditionError("analyze", errors.ErrNotConnected)
	}

	o.mu.Lock()
	o.analysisState = AnalysisRequesting
	o.signal = nil
	o.latestRequest++
	requestID := o.latestRequest
	generation := o.machine.Generation()
	o.mu.Unlock()

	signal, err := o.client.Analyze(ctx, req)

	o.mu.Lock()
	defer o.mu.Unlock()

	if requestID != o.latestRequest {
		// A newer analysis was issued while this one was in flight.
		return nil, errors.Wrapf(errors.ErrStaleResponse, "analysis %d superseded", requestID)
	}

	if err != nil {
		o.analysisState = AnalysisFailed
		return nil, err
	}

	o.analysisState = AnalysisReady
	o.signal = signal
	o.signalGen = generation

	logging.LogSignal(o.logger, signal.Symbol, signal.Timeframe, signal.Class.String(), signal.Confidence)
	o.journalSignal(ctx, *signal)

	return signal, nil
}

// ExecuteTrade places a trade for the current signal. Preconditions are
// checked locally and violating any of them fails with a
// PreconditionError before any network call: the session must be
// connected, the signal ready and non-neutral, its symbol must match,
// and with stake sizing enabled the stake must be within bounds.
// On success it triggers an out-of-cycle refresh so the new position is
// visible immediately.
func (o *Orchestrator) ExecuteTrade(ctx context.Context, symbol string, stake float64) (*api.TradeResult, error) {
	if !o.machine.IsConnected() {
		return nil, errors.NewPreconditionError("execute-trade", errors.ErrNotConnected)
	}

	signal, ok := o.CurrentSignal()
	if !ok {
		return nil, errors.NewPreconditionError("execute-trade", errors.ErrNoSignal)
	}
	if signal.Class == models.SignalNeutral {
		return nil, errors.NewPreconditionError("execute-trade", errors.ErrNeutralSignal)
	}
	if symbol != "" && symbol != signal.Symbol {
		return nil, errors.NewPreconditionError("execute-trade", errors.ErrSymbolMismatch)
	}

	req := models.TradeRequest{
		Symbol: signal.Symbol,
		Signal: int(signal.Class),
	}

	if o.cfg.Features.StakeSizing {
		if stake < o.cfg.Features.MinStake || stake > o.cfg.Features.MaxStake {
			return nil, errors.NewPreconditionError("execute-trade", errors.ErrStakeOutOfRange)
		}
		req.Stake = stake
	}

	result, err := o.client.ExecuteTrade(ctx, req)
	if err != nil {
		return nil, err
	}

	logging.LogTrade(o.logger, result.Order.Symbol, result.Order.Type, result.Order.VolumeLots, result.Order.Entry)
	o.journalTrade(ctx, signal, result)

	o.poller.RefreshNow(ctx)

	return result, nil
}

// ClosePosition closes an open position and refreshes out of cycle so
// the closed ticket disappears immediately.
func (o *Orchestrator) ClosePosition(ctx context.Context, ticket int64) error {
	if !o.machine.IsConnected() {
		return errors.NewPreconditionError("close-position", errors.ErrNotConnected)
	}

	if err := o.client.ClosePosition(ctx, ticket); err != nil {
		return err
	}

	o.poller.RefreshNow(ctx)
	return nil
}

// StartAutomation enables automated trading. The flag flips only on
// backend confirmation; starting while already started is a no-op.
func (o *Orchestrator) StartAutomation(ctx context.Context) error {
	if !o.machine.IsConnected() {
		return errors.NewPreconditionError("start-automation", errors.ErrNotConnected)
	}
	if o.machine.Automation() {
		return nil
	}

	if err := o.client.StartTrading(ctx); err != nil {
		return err
	}

	return o.machine.SetAutomation(true)
}

// StopAutomation disables automated trading. Idempotent like
// StartAutomation.
func (o *Orchestrator) StopAutomation(ctx context.Context) error {
	if !o.machine.IsConnected() {
		return errors.NewPreconditionError("stop-automation", errors.ErrNotConnected)
	}
	if !o.machine.Automation() {
		return nil
	}

	if err := o.client.StopTrading(ctx); err != nil {
		return err
	}

	return o.machine.SetAutomation(false)
}

// Backtest runs a backtest on the backend.
func (o *Orchestrator) Backtest(ctx context.Context, req models.BacktestRequest) (*models.BacktestResult, error) {
	if err := req.Validate(); err != nil {
		return nil, errors.NewPreconditionError("backtest", err)
	}
	if !o.machine.IsConnected() {
		return nil, errors.NewPreconditionError("backtest", errors.ErrNotConnected)
	}

	result, err := o.client.Backtest(ctx, req)
	if err != nil {
		return nil, err
	}

	o.journalBacktest(ctx, *result)
	return result, nil
}

// TrainModel trains the backend's model for a symbol.
func (o *Orchestrator) TrainModel(ctx context.Context, symbol string) (*models.TrainResult, error) {
	if symbol == "" {
		return nil, errors.NewPreconditionError("train-model", errors.NewValidationError("symbol", symbol, "must not be empty"))
	}
	if !o.machine.IsConnected() {
		return nil, errors.NewPreconditionError("train-model", errors.ErrNotConnected)
	}

	result, err := o.client.TrainModel(ctx, symbol)
	if err != nil {
		return nil, err
	}

	o.journalTraining(ctx, *result)
	return result, nil
}

func (o *Orchestrator) journalSignal(ctx context.Context, signal models.Signal) {
	if o.journal == nil {
		return
	}
	if err := o.journal.SaveSignal(ctx, &signal); err != nil {
		o.logger.Warn().Err(err).Msg("Failed to journal signal")
	}
}

func (o *Orchestrator) journalTrade(ctx context.Context, signal models.Signal, result *api.TradeResult) {
	if o.journal == nil {
		return
	}
	record := store.TradeRecord{
		Symbol:     result.Order.Symbol,
		Side:       result.Order.Type,
		VolumeLots: result.Order.VolumeLots,
		Entry:      result.Order.Entry,
		StopLoss:   result.Order.StopLoss,
		TakeProfit: result.Order.TakeProfit,
		Confidence: signal.Confidence,
	}
	if err := o.journal.SaveTrade(ctx, &record); err != nil {
		o.logger.Warn().Err(err).Msg("Failed to journal trade")
	}
}

func (o *Orchestrator) journalBacktest(ctx context.Context, result models.BacktestResult) {
	if o.journal == nil {
		return
	}
	if err := o.journal.SaveBacktest(ctx, &result); err != nil {
		o.logger.Warn().Err(err).Msg("Failed to journal backtest")
	}
}

func (o *Orchestrator) journalTraining(ctx context.Context, result models.TrainResult) {
	if o.journal == nil {
		return
	}
	if err := o.journal.SaveTraining(ctx, &result); err != nil {
		o.logger.Warn().Err(err).Msg("Failed to journal training run")
	}
}
