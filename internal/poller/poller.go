// Package poller keeps the local session model reconciled with the
// backend by periodic refresh.
package poller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"mt5-terminal/internal/api"
	"mt5-terminal/internal/session"
)

// Resource identifies one refresh cycle. Account and positions share a
// cycle because the dashboard consumes them together; logs refresh on
// their own, faster cadence.
type Resource string

const (
	ResourceAccount Resource = "account"
	ResourceLogs    Resource = "logs"
)

// Config holds poller configuration.
type Config struct {
	AccountInterval time.Duration
	LogsInterval    time.Duration
}

// Poller runs two independent periodic refresh cycles while the session
// is connected. Each cycle holds at most one request in flight: a tick
// firing while the previous request is still outstanding is skipped,
// never queued, so responses for a resource are applied in issue order.
// Refresh failures keep the previous value; there is no backoff.
type Poller struct {
	client  api.Client
	machine *session.Machine
	cfg     Config
	logger  zerolog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool

	accountBusy atomic.Bool
	logsBusy    atomic.Bool

	accountSkips atomic.Uint64
	logsSkips    atomic.Uint64

	// onUpdate, when set, fires after every applied refresh. Used by
	// watch mode to re-render.
	onUpdate func(Resource)
}

// New creates a poller bound to a backend client and session machine.
func New(client api.Client, machine *session.Machine, cfg Config, logger zerolog.Logger) *Poller {
	if cfg.AccountInterval <= 0 {
		cfg.AccountInterval = 5 * time.Second
	}
	if cfg.LogsInterval <= 0 {
		cfg.LogsInterval = time.Second
	}

	return &Poller{
		client:  client,
		machine: machine,
		cfg:     cfg,
		logger:  logger,
	}
}

// OnUpdate registers a callback fired after each applied refresh.
// Must be called before Start.
func (p *Poller) OnUpdate(fn func(Resource)) {
	p.onUpdate = fn
}

// Start launches both refresh cycles. Starting an already-running
// poller is a no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true

	p.wg.Add(2)
	go p.run(ctx, ResourceAccount, p.cfg.AccountInterval)
	go p.run(ctx, ResourceLogs, p.cfg.LogsInterval)
}

// Stop cancels both cycles and waits for them to exit. No further
// network calls are issued after Stop returns; responses from requests
// still in flight are discarded by the session generation check.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.cancel()
	p.running = false
	p.mu.Unlock()

	p.wg.Wait()
}

// Running reports whether the refresh cycles are active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// SkippedTicks returns how many ticks were skipped for a resource
// because the previous request was still outstanding.
func (p *Poller) SkippedTicks(resource Resource) uint64 {
	if resource == ResourceLogs {
		return p.logsSkips.Load()
	}
	return p.accountSkips.Load()
}

func (p *Poller) run(ctx context.Context, resource Resource, interval time.Duration) {
	defer p.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.refresh(ctx, resource)
		}
	}
}

// refresh runs one tick for a resource, skipping it when the previous
// request is still outstanding.
func (p *Poller) refresh(ctx context.Context, resource Resource) {
	busy, skips := &p.accountBusy, &p.accountSkips
	if resource == ResourceLogs {
		busy, skips = &p.logsBusy, &p.logsSkips
	}

	if !busy.CompareAndSwap(false, true) {
		skips.Add(1)
		p.logger.Debug().Str("resource", string(resource)).Msg("Tick skipped, request outstanding")
		return
	}
	defer busy.Store(false)

	if !p.machine.IsConnected() {
		return
	}

	var applied bool
	if resource == ResourceLogs {
		applied = p.refreshLogs(ctx)
	} else {
		applied = p.refreshAccountPositions(ctx)
	}

	if applied && p.onUpdate != nil {
		p.onUpdate(resource)
	}
}

// RefreshNow performs an out-of-cycle account+positions refresh. Used
// right after connecting and after trade execution so the user sees the
// fresh state without waiting for the next tick. It honors the same
// at-most-one-in-flight rule as the periodic cycle.
func (p *Poller) RefreshNow(ctx context.Context) {
	if !p.accountBusy.CompareAndSwap(false, true) {
		p.accountSkips.Add(1)
		return
	}
	defer p.accountBusy.Store(false)

	if p.refreshAccountPositions(ctx) && p.onUpdate != nil {
		p.onUpdate(ResourceAccount)
	}
}

// refreshAccountPositions fetches the account snapshot and position
// collection and applies them wholesale. Both reads carry the generation
// captured before the first request so a disconnect in between discards
// them.
func (p *Poller) refreshAccountPositions(ctx context.Context) bool {
	generation := p.machine.Generation()

	applied := false

	snapshot, err := p.client.Account(ctx)
	if err != nil {
		p.logger.Warn().Err(err).Msg("Account refresh failed, keeping previous snapshot")
	} else if p.machine.ApplyAccount(generation, *snapshot) {
		applied = true
	}

	positions, err := p.client.Positions(ctx)
	if err != nil {
		p.logger.Warn().Err(err).Msg("Position refresh failed, keeping previous collection")
	} else if p.machine.ApplyPositions(generation, positions) {
		applied = true
	}

	return applied
}

func (p *Poller) refreshLogs(ctx context.Context) bool {
	generation := p.machine.Generation()

	entries, err := p.client.Logs(ctx)
	if err != nil {
		p.logger.Warn().Err(err).Msg("Log refresh failed, keeping previous tail")
		return false
	}

	return p.machine.ApplyLogs(generation, entries)
}
