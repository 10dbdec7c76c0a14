// Package session tracks the connection lifecycle for the terminal.
//
// The Machine is the single source of truth for what the rest of the
// client may do: no account, position, or trade action is permitted
// unless the session is connected.
package session

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"mt5-terminal/internal/errors"
	"mt5-terminal/internal/logging"
	"mt5-terminal/internal/models"
)

// Machine is the session state machine. Transitions follow
//
//	Disconnected -> Connecting -> Connected -> Disconnected
//	                Connecting -> ConnectionFailed -> Disconnected
//
// and only one transition may be in flight at a time. All reads and
// writes go through the mutex; stale asynchronous writes are rejected
// by comparing the generation captured at request time.
type Machine struct {
	mu          sync.RWMutex
	status      models.SessionStatus
	accountType models.AccountType
	account     *models.AccountSnapshot
	positions   map[int64]models.Position
	logTail     []models.LogEntry
	automation  bool
	generation  uint64
	logger      zerolog.Logger
}

// NewMachine creates a session machine in the Disconnected state.
func NewMachine(logger zerolog.Logger) *Machine {
	return &Machine{
		status:      models.StatusDisconnected,
		accountType: models.AccountNone,
		positions:   make(map[int64]models.Position),
		logger:      logger,
	}
}

// Status returns the current session status.
func (m *Machine) Status() models.SessionStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// AccountType returns the account type recorded on connect.
func (m *Machine) AccountType() models.AccountType {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.accountType
}

// IsConnected reports whether the session is connected.
func (m *Machine) IsConnected() bool {
	return m.Status() == models.StatusConnected
}

// Generation returns the current session generation. Callers capture it
// before issuing a request and pass it back when applying the response.
func (m *Machine) Generation() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.generation
}

// Automation reports whether automated trading is enabled.
func (m *Machine) Automation() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.automation
}

// BeginConnect moves the session into Connecting. A connect issued while
// already Connecting or Connected is rejected locally, without touching
// the backend.
func (m *Machine) BeginConnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.status {
	case models.StatusConnecting:
		return errors.NewPreconditionError("connect", errors.ErrConnectionInFlight)
	case models.StatusConnected:
		return errors.NewPreconditionError("connect", errors.ErrAlreadyConnected)
	case models.StatusConnectionFailed:
		return errors.Wrap(errors.ErrInvalidTransition, "acknowledge the failed attempt first")
	}

	m.transition(models.StatusConnecting)
	return nil
}

// CompleteConnect moves Connecting into Connected and records the
// account type and initial snapshot from the connect response.
func (m *Machine) CompleteConnect(accountType models.AccountType, snapshot models.AccountSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != models.StatusConnecting {
		return errors.Wrapf(errors.ErrInvalidTransition, "complete connect from %s", m.status)
	}

	m.transition(models.StatusConnected)
	m.accountType = accountType
	m.account = &snapshot
	return nil
}

// FailConnect moves Connecting into ConnectionFailed.
func (m *Machine) FailConnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != models.StatusConnecting {
		return errors.Wrapf(errors.ErrInvalidTransition, "fail connect from %s", m.status)
	}

	m.transition(models.StatusConnectionFailed)
	return nil
}

// AcknowledgeFailure moves ConnectionFailed back to Disconnected.
func (m *Machine) AcknowledgeFailure() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != models.StatusConnectionFailed {
		return errors.Wrapf(errors.ErrInvalidTransition, "acknowledge failure from %s", m.status)
	}

	m.transition(models.StatusDisconnected)
	return nil
}

// Disconnect moves Connected into Disconnected. Permitted from Connected
// only; while a connect is resolving the disconnect is rejected. The
// transition bumps the generation so responses from requests issued
// before it are discarded, and clears the account snapshot, position
// collection, log tail, and automation flag.
func (m *Machine) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != models.StatusConnected {
		return errors.NewPreconditionError("disconnect", errors.ErrNotConnected)
	}

	m.transition(models.StatusDisconnected)
	m.generation++
	m.accountType = models.AccountNone
	m.account = nil
	m.positions = make(map[int64]models.Position)
	m.logTail = nil
	m.automation = false
	return nil
}

// transition records a status change. Callers hold the lock.
func (m *Machine) transition(to models.SessionStatus) {
	logging.LogSession(m.logger, string(m.status), string(to))
	m.status = to
}

// ApplyAccount replaces the account snapshot wholesale if the session is
// still connected and the generation matches the one captured at request
// time. Returns false when the write was discarded as stale.
func (m *Machine) ApplyAccount(generation uint64, snapshot models.AccountSnapshot) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != models.StatusConnected || generation != m.generation {
		return false
	}

	m.account = &snapshot
	return true
}

// ApplyPositions replaces the position collection wholesale under the
// same staleness rules as ApplyAccount. Tickets absent from the fetched
// collection simply disappear.
func (m *Machine) ApplyPositions(generation uint64, positions []models.Position) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != models.StatusConnected || generation != m.generation {
		return false
	}

	fresh := make(map[int64]models.Position, len(positions))
	for _, p := range positions {
		fresh[p.Ticket] = p
	}
	m.positions = fresh
	return true
}

// ApplyLogs replaces the held log tail wholesale. The backend is the
// source of truth for the latest entries; nothing accumulates locally.
func (m *Machine) ApplyLogs(generation uint64, entries []models.LogEntry) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != models.StatusConnected || generation != m.generation {
		return false
	}

	m.logTail = entries
	return true
}

// SetAutomation records the automation flag confirmed by the backend.
func (m *Machine) SetAutomation(enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != models.StatusConnected {
		return errors.NewPreconditionError("automation", errors.ErrNotConnected)
	}

	m.automation = enabled
	return nil
}

// Account returns the current account snapshot, if one is held.
func (m *Machine) Account() (models.AccountSnapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.account == nil {
		return models.AccountSnapshot{}, false
	}
	return *m.account, true
}

// Positions returns the open positions sorted by ticket.
func (m *Machine) Positions() []models.Position {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]models.Position, 0, len(m.positions))
	for _, p := range m.positions {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Ticket < result[j].Ticket
	})
	return result
}

// Position returns one open position by ticket.
func (m *Machine) Position(ticket int64) (models.Position, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.positions[ticket]
	return p, ok
}

// Logs returns the held log tail.
func (m *Machine) Logs() []models.LogEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]models.LogEntry, len(m.logTail))
	copy(result, m.logTail)
	return result
}
