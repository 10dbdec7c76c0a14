package session

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"mt5-terminal/internal/errors"
	"mt5-terminal/internal/models"
)

func newTestMachine() *Machine {
	return NewMachine(zerolog.Nop())
}

func demoSnapshot() models.AccountSnapshot {
	return models.AccountSnapshot{
		Balance:    10000,
		Equity:     10050,
		Profit:     50,
		FreeMargin: 9800,
		FetchedAt:  time.Now(),
	}
}

func connect(t *testing.T, m *Machine) {
	t.Helper()
	if err := m.BeginConnect(); err != nil {
		t.Fatalf("BeginConnect: %v", err)
	}
	if err := m.CompleteConnect(models.AccountDemo, demoSnapshot()); err != nil {
		t.Fatalf("CompleteConnect: %v", err)
	}
}

func TestMachineStartsDisconnected(t *testing.T) {
	m := newTestMachine()

	if got := m.Status(); got != models.StatusDisconnected {
		t.Errorf("initial status = %s, want %s", got, models.StatusDisconnected)
	}
	if m.IsConnected() {
		t.Error("new machine reports connected")
	}
	if _, ok := m.Account(); ok {
		t.Error("new machine holds an account snapshot")
	}
}

func TestConnectLifecycle(t *testing.T) {
	m := newTestMachine()

	if err := m.BeginConnect(); err != nil {
		t.Fatalf("BeginConnect: %v", err)
	}
	if got := m.Status(); got != models.StatusConnecting {
		t.Errorf("status after BeginConnect = %s, want %s", got, models.StatusConnecting)
	}

	if err := m.CompleteConnect(models.AccountDemo, demoSnapshot()); err != nil {
		t.Fatalf("CompleteConnect: %v", err)
	}
	if !m.IsConnected() {
		t.Error("machine not connected after CompleteConnect")
	}
	if got := m.AccountType(); got != models.AccountDemo {
		t.Errorf("account type = %s, want %s", got, models.AccountDemo)
	}

	account, ok := m.Account()
	if !ok {
		t.Fatal("no account snapshot after connect")
	}
	if account.Balance != 10000 {
		t.Errorf("balance = %v, want 10000", account.Balance)
	}
}

func TestConnectFailureLifecycle(t *testing.T) {
	m := newTestMachine()

	if err := m.BeginConnect(); err != nil {
		t.Fatalf("BeginConnect: %v", err)
	}
	if err := m.FailConnect(); err != nil {
		t.Fatalf("FailConnect: %v", err)
	}
	if got := m.Status(); got != models.StatusConnectionFailed {
		t.Errorf("status after FailConnect = %s, want %s", got, models.StatusConnectionFailed)
	}

	// A new connect is rejected until the failure is acknowledged.
	if err := m.BeginConnect(); err == nil {
		t.Error("BeginConnect from ConnectionFailed succeeded, want error")
	}

	if err := m.AcknowledgeFailure(); err != nil {
		t.Fatalf("AcknowledgeFailure: %v", err)
	}
	if got := m.Status(); got != models.StatusDisconnected {
		t.Errorf("status after AcknowledgeFailure = %s, want %s", got, models.StatusDisconnected)
	}
	if err := m.BeginConnect(); err != nil {
		t.Errorf("BeginConnect after acknowledge: %v", err)
	}
}

func TestBeginConnectRejectedWhileConnecting(t *testing.T) {
	m := newTestMachine()

	if err := m.BeginConnect(); err != nil {
		t.Fatalf("BeginConnect: %v", err)
	}

	err := m.BeginConnect()
	if !errors.Is(err, errors.ErrConnectionInFlight) {
		t.Errorf("second BeginConnect error = %v, want ErrConnectionInFlight", err)
	}
	if !errors.IsPrecondition(err) {
		t.Errorf("second BeginConnect error is not a PreconditionError: %v", err)
	}
}

func TestBeginConnectRejectedWhileConnected(t *testing.T) {
	m := newTestMachine()
	connect(t, m)

	err := m.BeginConnect()
	if !errors.Is(err, errors.ErrAlreadyConnected) {
		t.Errorf("BeginConnect while connected = %v, want ErrAlreadyConnected", err)
	}
}

func TestDisconnectRejectedWhileConnecting(t *testing.T) {
	m := newTestMachine()

	if err := m.BeginConnect(); err != nil {
		t.Fatalf("BeginConnect: %v", err)
	}

	err := m.Disconnect()
	if !errors.Is(err, errors.ErrNotConnected) {
		t.Errorf("Disconnect while connecting = %v, want ErrNotConnected", err)
	}
	if got := m.Status(); got != models.StatusConnecting {
		t.Errorf("status after rejected disconnect = %s, want %s", got, models.StatusConnecting)
	}
}

func TestDisconnectClearsState(t *testing.T) {
	m := newTestMachine()
	connect(t, m)

	gen := m.Generation()
	m.ApplyPositions(gen, []models.Position{{Ticket: 1, Symbol: "EURUSD"}})
	m.ApplyLogs(gen, []models.LogEntry{{Level: models.LogLevelInfo, Message: "tick"}})
	if err := m.SetAutomation(true); err != nil {
		t.Fatalf("SetAutomation: %v", err)
	}

	if err := m.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}

	if got := m.Status(); got != models.StatusDisconnected {
		t.Errorf("status = %s, want %s", got, models.StatusDisconnected)
	}
	if _, ok := m.Account(); ok {
		t.Error("account snapshot survived disconnect")
	}
	if got := len(m.Positions()); got != 0 {
		t.Errorf("positions after disconnect = %d, want 0", got)
	}
	if got := len(m.Logs()); got != 0 {
		t.Errorf("log tail after disconnect = %d, want 0", got)
	}
	if m.Automation() {
		t.Error("automation flag survived disconnect")
	}
	if got := m.AccountType(); got != models.AccountNone {
		t.Errorf("account type after disconnect = %s, want %s", got, models.AccountNone)
	}
	if m.Generation() != gen+1 {
		t.Errorf("generation = %d, want %d", m.Generation(), gen+1)
	}
}

func TestApplyDiscardsStaleGeneration(t *testing.T) {
	m := newTestMachine()
	connect(t, m)

	stale := m.Generation()

	if err := m.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	connect(t, m)

	if m.ApplyAccount(stale, demoSnapshot()) {
		t.Error("stale account write applied")
	}
	if m.ApplyPositions(stale, []models.Position{{Ticket: 9}}) {
		t.Error("stale position write applied")
	}
	if m.ApplyLogs(stale, []models.LogEntry{{Message: "old"}}) {
		t.Error("stale log write applied")
	}
	if got := len(m.Positions()); got != 0 {
		t.Errorf("positions after stale writes = %d, want 0", got)
	}

	fresh := m.Generation()
	if !m.ApplyPositions(fresh, []models.Position{{Ticket: 9}}) {
		t.Error("current-generation position write discarded")
	}
}

func TestApplyDiscardedWhenNotConnected(t *testing.T) {
	m := newTestMachine()

	if m.ApplyAccount(m.Generation(), demoSnapshot()) {
		t.Error("account write applied while disconnected")
	}
}

func TestApplyPositionsReplacesWholesale(t *testing.T) {
	m := newTestMachine()
	connect(t, m)
	gen := m.Generation()

	m.ApplyPositions(gen, []models.Position{
		{Ticket: 3, Symbol: "EURUSD"},
		{Ticket: 1, Symbol: "GBPUSD"},
		{Ticket: 2, Symbol: "USDJPY"},
	})

	positions := m.Positions()
	if len(positions) != 3 {
		t.Fatalf("positions = %d, want 3", len(positions))
	}
	// Sorted by ticket.
	for i, want := range []int64{1, 2, 3} {
		if positions[i].Ticket != want {
			t.Errorf("positions[%d].Ticket = %d, want %d", i, positions[i].Ticket, want)
		}
	}

	// A ticket absent from the next fetch disappears.
	m.ApplyPositions(gen, []models.Position{{Ticket: 2, Symbol: "USDJPY"}})
	if _, ok := m.Position(1); ok {
		t.Error("closed ticket 1 still present after wholesale replace")
	}
	if _, ok := m.Position(2); !ok {
		t.Error("ticket 2 missing after wholesale replace")
	}
}

func TestSetAutomationRequiresConnection(t *testing.T) {
	m := newTestMachine()

	err := m.SetAutomation(true)
	if !errors.Is(err, errors.ErrNotConnected) {
		t.Errorf("SetAutomation while disconnected = %v, want ErrNotConnected", err)
	}
}
