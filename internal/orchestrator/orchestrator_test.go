package orchestrator

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"mt5-terminal/internal/api"
	"mt5-terminal/internal/config"
	"mt5-terminal/internal/errors"
	"mt5-terminal/internal/models"
	"mt5-terminal/internal/poller"
	"mt5-terminal/internal/session"
)

// fakeClient implements api.Client with overridable hooks and counts
// every network call.
type fakeClient struct {
	connectFn   func(ctx context.Context, req models.ConnectRequest) (*api.ConnectResult, error)
	analyzeFn   func(ctx context.Context, req models.AnalyzeRequest) (*models.Signal, error)
	executeFn   func(ctx context.Context, req models.TradeRequest) (*api.TradeResult, error)
	positionsFn func(ctx context.Context) ([]models.Position, error)

	calls      atomic.Int64
	startCalls atomic.Int64
	stopCalls  atomic.Int64
}

func (f *fakeClient) Connect(ctx context.Context, req models.ConnectRequest) (*api.ConnectResult, error) {
	f.calls.Add(1)
	if f.connectFn != nil {
		return f.connectFn(ctx, req)
	}
	return &api.ConnectResult{
		AccountType: models.AccountDemo,
		Account:     models.AccountSnapshot{Balance: 10000},
	}, nil
}

func (f *fakeClient) Disconnect(ctx context.Context) error {
	f.calls.Add(1)
	return nil
}

func (f *fakeClient) Analyze(ctx context.Context, req models.AnalyzeRequest) (*models.Signal, error) {
	f.calls.Add(1)
	if f.analyzeFn != nil {
		return f.analyzeFn(ctx, req)
	}
	return &models.Signal{
		Symbol:     req.Symbol,
		Timeframe:  req.Timeframe,
		Class:      models.SignalBuy,
		Confidence: 0.72,
	}, nil
}

func (f *fakeClient) Backtest(ctx context.Context, req models.BacktestRequest) (*models.BacktestResult, error) {
	f.calls.Add(1)
	return &models.BacktestResult{Symbol: req.Symbol, WinRate: 55}, nil
}

func (f *fakeClient) TrainModel(ctx context.Context, symbol string) (*models.TrainResult, error) {
	f.calls.Add(1)
	return &models.TrainResult{Symbol: symbol, TrainScore: 0.9, TestScore: 0.8}, nil
}

func (f *fakeClient) ExecuteTrade(ctx context.Context, req models.TradeRequest) (*api.TradeResult, error) {
	f.calls.Add(1)
	if f.executeFn != nil {
		return f.executeFn(ctx, req)
	}
	return &api.TradeResult{
		Order: models.TradeOrder{
			Symbol:     req.Symbol,
			Type:       "buy",
			VolumeLots: 0.1,
			Entry:      1.1000,
		},
		Message: "order placed",
	}, nil
}

func (f *fakeClient) ClosePosition(ctx context.Context, ticket int64) error {
	f.calls.Add(1)
	return nil
}

func (f *fakeClient) StartTrading(ctx context.Context) error {
	f.calls.Add(1)
	f.startCalls.Add(1)
	return nil
}

func (f *fakeClient) StopTrading(ctx context.Context) error {
	f.calls.Add(1)
	f.stopCalls.Add(1)
	return nil
}

func (f *fakeClient) Account(ctx context.Context) (*models.AccountSnapshot, error) {
	f.calls.Add(1)
	return &models.AccountSnapshot{Balance: 10000}, nil
}

func (f *fakeClient) Positions(ctx context.Context) ([]models.Position, error) {
	f.calls.Add(1)
	if f.positionsFn != nil {
		return f.positionsFn(ctx)
	}
	return nil, nil
}

func (f *fakeClient) Logs(ctx context.Context) ([]models.LogEntry, error) {
	f.calls.Add(1)
	return nil, nil
}

var _ api.Client = (*fakeClient)(nil)

func testConfig() *config.Config {
	return &config.Config{
		Backend: config.BackendConfig{BaseURL: "http://127.0.0.1:5000"},
		Trading: config.TradingConfig{DefaultSymbol: "EURUSD", DefaultTimeframe: "H1"},
	}
}

func newTestOrchestrator(client *fakeClient, cfg *config.Config) (*Orchestrator, *session.Machine, *poller.Poller) {
	machine := session.NewMachine(zerolog.Nop())
	p := poller.New(client, machine, poller.Config{}, zerolog.Nop())
	o := New(client, machine, p, nil, cfg, zerolog.Nop())
	return o, machine, p
}

func validConnect() models.ConnectRequest {
	return models.ConnectRequest{
		Login:    "12345678",
		Password: "secret",
		Server:   "Demo-Server",
	}
}

func mustConnect(t *testing.T, o *Orchestrator) {
	t.Helper()
	if _, err := o.Connect(context.Background(), validConnect()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
}

func mustAnalyze(t *testing.T, o *Orchestrator) models.Signal {
	t.Helper()
	signal, err := o.Analyze(context.Background(), models.AnalyzeRequest{Symbol: "EURUSD", Timeframe: "H1"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	return *signal
}

func TestConnectSuccess(t *testing.T) {
	client := &fakeClient{}
	o, machine, p := newTestOrchestrator(client, testConfig())
	defer p.Stop()

	result, err := o.Connect(context.Background(), validConnect())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if result.AccountType != models.AccountDemo {
		t.Errorf("account type = %s, want DEMO", result.AccountType)
	}
	if !machine.IsConnected() {
		t.Error("machine not connected after Connect")
	}
	if !p.Running() {
		t.Error("poller not started after Connect")
	}

	// The immediate refresh fetched fresh account state rather than
	// waiting for the first tick.
	account, ok := machine.Account()
	if !ok || account.Balance != 10000 {
		t.Errorf("account after connect = %v %v", account, ok)
	}
}

func TestConnectValidationFailsLocally(t *testing.T) {
	client := &fakeClient{}
	o, machine, _ := newTestOrchestrator(client, testConfig())

	_, err := o.Connect(context.Background(), models.ConnectRequest{Login: "not-numeric", Password: "x", Server: "s"})
	if !errors.IsPrecondition(err) {
		t.Fatalf("Connect with bad login = %v, want PreconditionError", err)
	}
	if got := client.calls.Load(); got != 0 {
		t.Errorf("network calls = %d, want 0", got)
	}
	if got := machine.Status(); got != models.StatusDisconnected {
		t.Errorf("status = %s, want DISCONNECTED", got)
	}
}

func TestConnectBackendFailureResolvesToDisconnected(t *testing.T) {
	client := &fakeClient{
		connectFn: func(ctx context.Context, req models.ConnectRequest) (*api.ConnectResult, error) {
			return nil, errors.NewBackendError("/api/connect", "invalid credentials")
		},
	}
	o, machine, p := newTestOrchestrator(client, testConfig())

	_, err := o.Connect(context.Background(), validConnect())
	if !errors.IsBackend(err) {
		t.Fatalf("Connect error = %v, want BackendError", err)
	}
	if got := machine.Status(); got != models.StatusDisconnected {
		t.Errorf("status after failed connect = %s, want DISCONNECTED", got)
	}
	if p.Running() {
		t.Error("poller running after failed connect")
	}

	// The failed attempt is resolved; a retry is permitted.
	client.connectFn = nil
	mustConnect(t, o)
	defer p.Stop()
}

func TestDisconnectAlwaysWinsLocally(t *testing.T) {
	client := &fakeClient{}
	o, machine, p := newTestOrchestrator(client, testConfig())
	mustConnect(t, o)

	if err := o.Disconnect(context.Background()); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if machine.IsConnected() {
		t.Error("machine still connected")
	}
	if p.Running() {
		t.Error("poller still running")
	}

	err := o.Disconnect(context.Background())
	if !errors.Is(err, errors.ErrNotConnected) {
		t.Errorf("second Disconnect = %v, want ErrNotConnected", err)
	}
}

func TestAnalyzeRequiresConnection(t *testing.T) {
	client := &fakeClient{}
	o, _, _ := newTestOrchestrator(client, testConfig())

	_, err := o.Analyze(context.Background(), models.AnalyzeRequest{Symbol: "EURUSD", Timeframe: "H1"})
	if !errors.Is(err, errors.ErrNotConnected) {
		t.Errorf("Analyze while disconnected = %v, want ErrNotConnected", err)
	}
}

func TestAnalyzeHoldsSignal(t *testing.T) {
	client := &fakeClient{}
	o, _, p := newTestOrchestrator(client, testConfig())
	defer p.Stop()
	mustConnect(t, o)

	signal := mustAnalyze(t, o)
	if signal.Class != models.SignalBuy {
		t.Errorf("signal class = %v, want BUY", signal.Class)
	}
	if got := o.AnalysisStatus(); got != AnalysisReady {
		t.Errorf("analysis state = %s, want READY", got)
	}

	held, ok := o.CurrentSignal()
	if !ok {
		t.Fatal("no current signal after successful analysis")
	}
	if held.Symbol != "EURUSD" || held.Confidence != 0.72 {
		t.Errorf("held signal = %+v", held)
	}
}

func TestSlowAnalysisNeverOverwritesNewer(t *testing.T) {
	client := &fakeClient{}
	o, _, p := newTestOrchestrator(client, testConfig())
	defer p.Stop()
	mustConnect(t, o)

	firstEntered := make(chan struct{})
	firstRelease := make(chan struct{})
	client.analyzeFn = func(ctx context.Context, req models.AnalyzeRequest) (*models.Signal, error) {
		close(firstEntered)
		<-firstRelease
		return &models.Signal{Symbol: req.Symbol, Class: models.SignalSell, Confidence: 0.3}, nil
	}

	firstDone := make(chan error, 1)
	go func() {
		_, err := o.Analyze(context.Background(), models.AnalyzeRequest{Symbol: "EURUSD", Timeframe: "H1"})
		firstDone <- err
	}()

	<-firstEntered

	// A second analysis starts while the first is still in flight.
	client.analyzeFn = func(ctx context.Context, req models.AnalyzeRequest) (*models.Signal, error) {
		return &models.Signal{Symbol: req.Symbol, Class: models.SignalBuy, Confidence: 0.9}, nil
	}
	second := mustAnalyze(t, o)
	if second.Class != models.SignalBuy {
		t.Fatalf("second signal class = %v, want BUY", second.Class)
	}

	// The first response lands afterwards and must be discarded.
	close(firstRelease)
	if err := <-firstDone; !errors.Is(err, errors.ErrStaleResponse) {
		t.Errorf("first analysis error = %v, want ErrStaleResponse", err)
	}

	held, ok := o.CurrentSignal()
	if !ok || held.Class != models.SignalBuy || held.Confidence != 0.9 {
		t.Errorf("held signal = %+v %v, want the newer BUY", held, ok)
	}
}

func TestSignalInvalidatedAtRequestTime(t *testing.T) {
	client := &fakeClient{}
	o, _, p := newTestOrchestrator(client, testConfig())
	defer p.Stop()
	mustConnect(t, o)
	mustAnalyze(t, o)

	entered := make(chan struct{})
	release := make(chan struct{})
	client.analyzeFn = func(ctx context.Context, req models.AnalyzeRequest) (*models.Signal, error) {
		close(entered)
		<-release
		return &models.Signal{Symbol: req.Symbol, Class: models.SignalBuy}, nil
	}

	done := make(chan struct{})
	go func() {
		_, _ = o.Analyze(context.Background(), models.AnalyzeRequest{Symbol: "EURUSD", Timeframe: "H1"})
		close(done)
	}()

	<-entered
	// The previous signal is gone the moment the new request was issued.
	if _, ok := o.CurrentSignal(); ok {
		t.Error("previous signal still current while a new analysis is in flight")
	}
	close(release)
	<-done
}

func TestSignalDroppedAcrossSessions(t *testing.T) {
	client := &fakeClient{}
	o, _, p := newTestOrchestrator(client, testConfig())
	defer p.Stop()
	mustConnect(t, o)
	mustAnalyze(t, o)

	if err := o.Disconnect(context.Background()); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	mustConnect(t, o)

	if _, ok := o.CurrentSignal(); ok {
		t.Error("signal from the previous session still current")
	}
}

func TestExecuteTradePreconditions(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(t *testing.T, o *Orchestrator, client *fakeClient)
		symbol  string
		stake   float64
		wantErr error
	}{
		{
			name:    "not connected",
			prepare: func(t *testing.T, o *Orchestrator, client *fakeClient) {},
			wantErr: errors.ErrNotConnected,
		},
		{
			name: "no signal",
			prepare: func(t *testing.T, o *Orchestrator, client *fakeClient) {
				mustConnect(t, o)
			},
			wantErr: errors.ErrNoSignal,
		},
		{
			name: "neutral signal",
			prepare: func(t *testing.T, o *Orchestrator, client *fakeClient) {
				mustConnect(t, o)
				client.analyzeFn = func(ctx context.Context, req models.AnalyzeRequest) (*models.Signal, error) {
					return &models.Signal{Symbol: req.Symbol, Class: models.SignalNeutral}, nil
				}
				mustAnalyze(t, o)
			},
			wantErr: errors.ErrNeutralSignal,
		},
		{
			name: "symbol mismatch",
			prepare: func(t *testing.T, o *Orchestrator, client *fakeClient) {
				mustConnect(t, o)
				mustAnalyze(t, o)
			},
			symbol:  "GBPUSD",
			wantErr: errors.ErrSymbolMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{}
			o, _, p := newTestOrchestrator(client, testConfig())
			defer p.Stop()

			tt.prepare(t, o, client)
			before := client.calls.Load()

			_, err := o.ExecuteTrade(context.Background(), tt.symbol, tt.stake)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ExecuteTrade = %v, want %v", err, tt.wantErr)
			}
			if !errors.IsPrecondition(err) {
				t.Errorf("ExecuteTrade error is not a PreconditionError: %v", err)
			}
			if got := client.calls.Load(); got != before {
				t.Errorf("network calls during refused trade: %d", got-before)
			}
		})
	}
}

func TestExecuteTradeStakeBounds(t *testing.T) {
	cfg := testConfig()
	cfg.Features = config.FeatureConfig{
		StakeSizing: true,
		MinStake:    5,
		MaxStake:    1000,
	}

	client := &fakeClient{}
	o, _, p := newTestOrchestrator(client, cfg)
	defer p.Stop()
	mustConnect(t, o)
	mustAnalyze(t, o)

	for _, stake := range []float64{0, 4.99, 1000.01} {
		before := client.calls.Load()
		_, err := o.ExecuteTrade(context.Background(), "", stake)
		if !errors.Is(err, errors.ErrStakeOutOfRange) {
			t.Errorf("stake %v: err = %v, want ErrStakeOutOfRange", stake, err)
		}
		if got := client.calls.Load(); got != before {
			t.Errorf("stake %v: network calls during refused trade", stake)
		}
	}

	if _, err := o.ExecuteTrade(context.Background(), "", 50); err != nil {
		t.Errorf("stake 50: %v", err)
	}
}

func TestExecuteTradeRefreshesImmediately(t *testing.T) {
	client := &fakeClient{}
	o, _, p := newTestOrchestrator(client, testConfig())
	defer p.Stop()
	mustConnect(t, o)
	mustAnalyze(t, o)

	before := client.calls.Load()
	result, err := o.ExecuteTrade(context.Background(), "EURUSD", 0)
	if err != nil {
		t.Fatalf("ExecuteTrade: %v", err)
	}
	if result.Message != "order placed" {
		t.Errorf("message = %q", result.Message)
	}

	// One trade call plus the out-of-cycle account and position reads.
	if got := client.calls.Load() - before; got != 3 {
		t.Errorf("network calls = %d, want 3 (trade + account + positions)", got)
	}
}

func TestAutomationTogglesAreIdempotent(t *testing.T) {
	client := &fakeClient{}
	o, machine, p := newTestOrchestrator(client, testConfig())
	defer p.Stop()
	mustConnect(t, o)

	// Stop before start: nothing to do, no network call.
	if err := o.StopAutomation(context.Background()); err != nil {
		t.Fatalf("StopAutomation: %v", err)
	}
	if got := client.stopCalls.Load(); got != 0 {
		t.Errorf("stop calls = %d, want 0", got)
	}

	if err := o.StartAutomation(context.Background()); err != nil {
		t.Fatalf("StartAutomation: %v", err)
	}
	if !machine.Automation() {
		t.Error("automation flag not set after confirmed start")
	}

	// Second start is a no-op.
	if err := o.StartAutomation(context.Background()); err != nil {
		t.Fatalf("second StartAutomation: %v", err)
	}
	if got := client.startCalls.Load(); got != 1 {
		t.Errorf("start calls = %d, want 1", got)
	}

	if err := o.StopAutomation(context.Background()); err != nil {
		t.Fatalf("StopAutomation: %v", err)
	}
	if machine.Automation() {
		t.Error("automation flag still set after stop")
	}
	if got := client.stopCalls.Load(); got != 1 {
		t.Errorf("stop calls = %d, want 1", got)
	}
}

func TestAutomationFlagUnchangedOnBackendFailure(t *testing.T) {
	client := &fakeClient{}
	o, machine, p := newTestOrchestrator(client, testConfig())
	defer p.Stop()
	mustConnect(t, o)

	boom := errors.NewBackendError("/api/start-trading", "engine unavailable")
	failingStart := &failingToggleClient{fakeClient: client, err: boom}
	failing := New(failingStart, machine, p, nil, testConfig(), zerolog.Nop())

	if err := failing.StartAutomation(context.Background()); !errors.IsBackend(err) {
		t.Fatalf("StartAutomation = %v, want BackendError", err)
	}
	if machine.Automation() {
		t.Error("automation flag set despite backend failure")
	}
}

// failingToggleClient fails the automation toggles only.
type failingToggleClient struct {
	*fakeClient
	err error
}

func (f *failingToggleClient) StartTrading(ctx context.Context) error { return f.err }
func (f *failingToggleClient) StopTrading(ctx context.Context) error  { return f.err }

// TestFullTradingSession walks the happy path end to end: connect to a
// demo account, analyze, execute the signal, and observe the refreshed
// position appear without waiting for a poll tick.
func TestFullTradingSession(t *testing.T) {
	client := &fakeClient{}
	o, machine, p := newTestOrchestrator(client, testConfig())
	defer p.Stop()

	result, err := o.Connect(context.Background(), validConnect())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if result.AccountType != models.AccountDemo {
		t.Fatalf("account type = %s, want DEMO", result.AccountType)
	}

	signal, err := o.Analyze(context.Background(), models.AnalyzeRequest{Symbol: "EURUSD", Timeframe: "H1"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if signal.Class != models.SignalBuy || signal.Confidence != 0.72 {
		t.Fatalf("signal = %+v", signal)
	}

	client.executeFn = func(ctx context.Context, req models.TradeRequest) (*api.TradeResult, error) {
		return &api.TradeResult{
			Order:   models.TradeOrder{Symbol: req.Symbol, Type: "buy", VolumeLots: 0.1, Entry: 1.1},
			Message: "order placed",
		}, nil
	}
	client.positionsFn = func(ctx context.Context) ([]models.Position, error) {
		return []models.Position{{Ticket: 42, Symbol: "EURUSD", Side: models.PositionBuy, VolumeLots: 0.1}}, nil
	}

	if _, err := o.ExecuteTrade(context.Background(), "EURUSD", 0); err != nil {
		t.Fatalf("ExecuteTrade: %v", err)
	}

	// The out-of-cycle refresh already brought the new position in.
	if _, ok := machine.Position(42); !ok {
		t.Error("new position not visible immediately after trade")
	}

	if err := o.Disconnect(context.Background()); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if len(machine.Positions()) != 0 {
		t.Error("positions survived disconnect")
	}
}

func TestBacktestRequiresConnection(t *testing.T) {
	client := &fakeClient{}
	o, _, _ := newTestOrchestrator(client, testConfig())

	_, err := o.Backtest(context.Background(), models.BacktestRequest{Symbol: "EURUSD", Timeframe: "H1", Bars: 1000})
	if !errors.Is(err, errors.ErrNotConnected) {
		t.Errorf("Backtest while disconnected = %v, want ErrNotConnected", err)
	}
}
