// Package notify surfaces position changes observed during live
// monitoring. The backend trades on its own when automation runs, so
// positions can appear and disappear without any local action; watch
// mode diffs consecutive position reads and announces the changes.
package notify

import (
	"time"

	"mt5-terminal/internal/models"
)

// EventType classifies a position change.
type EventType string

const (
	EventOpened EventType = "opened"
	EventClosed EventType = "closed"
)

// Event describes one observed position change.
type Event struct {
	Type     EventType
	Ticket   int64
	Symbol   string
	Side     models.PositionSide
	Volume   float64
	Profit   float64
	Observed time.Time
}

// Notifier receives position change events.
type Notifier interface {
	Notify(event Event)
}

// Tracker diffs consecutive position collections and emits an event per
// opened or closed ticket. Not safe for concurrent use; watch mode
// feeds it from a single render loop.
type Tracker struct {
	notifier Notifier
	known    map[int64]models.Position
	primed   bool
}

// NewTracker creates a tracker that reports changes to notifier.
func NewTracker(notifier Notifier) *Tracker {
	return &Tracker{
		notifier: notifier,
		known:    make(map[int64]models.Position),
	}
}

// Observe takes the latest position collection and notifies about
// tickets that appeared or disappeared since the previous call. The
// first observation only primes the baseline; positions already open
// when monitoring starts are not announced.
func (t *Tracker) Observe(positions []models.Position) {
	now := time.Now()

	fresh := make(map[int64]models.Position, len(positions))
	for _, p := range positions {
		fresh[p.Ticket] = p
	}

	if !t.primed {
		t.known = fresh
		t.primed = true
		return
	}

	for ticket, p := range fresh {
		if _, ok := t.known[ticket]; !ok {
			t.notifier.Notify(Event{
				Type:     EventOpened,
				Ticket:   ticket,
				Symbol:   p.Symbol,
				Side:     p.Side,
				Volume:   p.VolumeLots,
				Observed: now,
			})
		}
	}

	for ticket, p := range t.known {
		if _, ok := fresh[ticket]; !ok {
			t.notifier.Notify(Event{
				Type:     EventClosed,
				Ticket:   ticket,
				Symbol:   p.Symbol,
				Side:     p.Side,
				Volume:   p.VolumeLots,
				Profit:   p.Profit,
				Observed: now,
			})
		}
	}

	t.known = fresh
}
