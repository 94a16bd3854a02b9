package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-logic-climate/internal/climate"
)

const (
	defaultQueueSize  = 64
	defaultEffectsCap = 256
)

// Config holds the engine's construction-time options.
type Config struct {
	// SiteID keys ledger messages and tags metrics.
	SiteID string

	// QueueSize bounds pending triggers. Timer triggers are dropped when full.
	QueueSize int

	// Clock defaults to the wall clock.
	Clock climate.Clock
}

// Deps are the engine's collaborators. Every field except Actuator may be nil.
type Deps struct {
	Actuator   Actuator
	Repository DecisionRepository
	Hub        WSHub
	Metrics    MetricsWriter
	State      StatePublisher
	Ledger     LedgerPublisher
	Logger     Logger
}

// command is one trigger on its way to the loop. done is nil for
// fire-and-forget timer triggers.
type command struct {
	trigger climate.Trigger
	done    chan *Status
}

// Engine owns the decision context and evaluates one trigger at a time.
//
// A single goroutine consumes the trigger queue, so passes never overlap and
// the context needs no lock. Side effects (actuation, persistence,
// publication) are handed to a second goroutine in commit order and never
// roll back a decision.
//
// Thread Safety: all exported methods are safe for concurrent use.
type Engine struct {
	settings climate.Settings
	strategy climate.Evaluator
	clock    climate.Clock
	siteID   string
	deps     Deps
	logger   Logger

	queueSize int

	// dc is touched only by the loop goroutine (or before Start).
	dc     *climate.DecisionContext
	status atomic.Pointer[Status]

	mu       sync.RWMutex
	running  bool
	triggers chan command
	effects  chan effect
	quit     chan struct{}
	loopDone chan struct{}
	tickDone chan struct{}
	dispDone chan struct{}

	// expiry is owned by the loop goroutine.
	expiry    *time.Timer
	expiresAt time.Time
}

// New creates an engine running strategy over settings.
//
// Parameters:
//   - strategy: Execution strategy, built from the same settings
//   - settings: Validated climate settings
//   - cfg: Engine options
//   - deps: Collaborators; Actuator is required
//
// Returns an error wrapping climate.ErrInvalidSettings when settings fail
// validation.
func New(strategy climate.Evaluator, settings climate.Settings, cfg Config, deps Deps) (*Engine, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if strategy == nil {
		return nil, fmt.Errorf("%w: nil strategy", ErrUnknownStrategy)
	}
	if deps.Actuator == nil {
		return nil, fmt.Errorf("engine: actuator is required")
	}
	if deps.Logger == nil {
		deps.Logger = noopLogger{}
	}
	if cfg.Clock == nil {
		cfg.Clock = climate.SystemClock{}
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = defaultQueueSize
	}

	e := &Engine{
		settings:  settings,
		strategy:  strategy,
		clock:     cfg.Clock,
		siteID:    cfg.SiteID,
		deps:      deps,
		logger:    deps.Logger,
		queueSize: cfg.QueueSize,
		dc:        climate.NewDecisionContext(settings.HistoryCapacity, settings.LatencyCapacity),
	}
	e.dc.RefreshTime(e.clock.Now(), settings.Zone())
	e.status.Store(e.snapshot(e.dc))
	return e, nil
}

// Strategy returns the execution strategy name.
func (e *Engine) Strategy() string {
	return e.strategy.Name()
}

// Settings returns the engine's settings.
func (e *Engine) Settings() climate.Settings {
	return e.settings
}

// Start launches the loop, the dispatcher and the periodic tick.
func (e *Engine) Start(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return ErrAlreadyRunning
	}

	e.triggers = make(chan command, e.queueSize)
	e.effects = make(chan effect, defaultEffectsCap)
	e.quit = make(chan struct{})
	e.loopDone = make(chan struct{})
	e.tickDone = make(chan struct{})
	e.dispDone = make(chan struct{})
	e.running = true

	go e.dispatch(e.effects, e.dispDone)
	go e.loop()
	go e.tick(e.settings.TickInterval)

	e.logger.Info("climate engine started",
		"strategy", e.strategy.Name(),
		"entities", len(e.settings.EnabledEntityIDs()),
		"tick", e.settings.TickInterval,
	)
	return nil
}

// Stop lets the in-flight pass finish, stops the timers, then drains the
// dispatcher. Triggers still queued are answered with ErrNotRunning.
//
// If ctx ends first Stop returns its error, and the shutdown still completes
// in the background once the in-flight pass returns.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return nil
	}
	e.running = false
	quit, loopDone, tickDone := e.quit, e.loopDone, e.tickDone
	effects, dispDone := e.effects, e.dispDone
	e.mu.Unlock()

	close(quit)
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-loopDone
		<-tickDone
		close(effects)
		<-dispDone
	}()

	if err := waitFor(ctx, stopped); err != nil {
		e.logger.Warn("climate engine stop timed out, finishing in background", "error", err)
		return fmt.Errorf("stopping engine: %w", err)
	}

	e.logger.Info("climate engine stopped")
	return nil
}

// IsRunning reports whether the engine accepts triggers.
func (e *Engine) IsRunning() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.running
}

// Status returns the last committed snapshot.
func (e *Engine) Status() Status {
	st := *e.status.Load()
	st.Running = e.IsRunning()
	return st
}

// Submit queues a trigger and waits until its pass has committed.
func (e *Engine) Submit(ctx context.Context, tr climate.Trigger) (Status, error) {
	cmd := command{trigger: tr, done: make(chan *Status, 1)}

	e.mu.RLock()
	if !e.running {
		e.mu.RUnlock()
		return Status{}, ErrNotRunning
	}
	select {
	case e.triggers <- cmd:
	case <-ctx.Done():
		e.mu.RUnlock()
		return Status{}, ctx.Err()
	}
	e.mu.RUnlock()

	select {
	case st, ok := <-cmd.done:
		if !ok || st == nil {
			return Status{}, ErrNotRunning
		}
		out := *st
		out.Running = true
		return out, nil
	case <-ctx.Done():
		return Status{}, ctx.Err()
	}
}

// enqueue queues a trigger without waiting. Used by timers.
func (e *Engine) enqueue(tr climate.Trigger) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.running {
		return
	}
	select {
	case e.triggers <- command{trigger: tr}:
	default:
		e.logger.Warn("trigger queue full, dropping", "trigger", tr.Kind)
	}
}

func (e *Engine) loop() {
	defer close(e.loopDone)

	for {
		select {
		case <-e.quit:
			e.disarmExpiry()
			e.drainQueue()
			return
		case cmd := <-e.triggers:
			st := e.handle(cmd.trigger)
			if cmd.done != nil {
				cmd.done <- st
			}
		}
	}
}

func (e *Engine) drainQueue() {
	for {
		select {
		case cmd := <-e.triggers:
			if cmd.done != nil {
				close(cmd.done)
			}
		default:
			return
		}
	}
}

func (e *Engine) tick(interval time.Duration) {
	defer close(e.tickDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-e.quit:
			return
		case <-ticker.C:
			e.enqueue(climate.Trigger{Kind: climate.TriggerTick})
		}
	}
}

// armExpiry schedules an override-expiry trigger for the live directive,
// or cancels the timer when there is none. Loop goroutine only.
func (e *Engine) armExpiry(dc *climate.DecisionContext, now time.Time) {
	if !dc.OverrideActive() || dc.Override.ExpiresAt == nil {
		e.disarmExpiry()
		return
	}
	at := *dc.Override.ExpiresAt
	if e.expiry != nil && e.expiresAt.Equal(at) {
		return
	}
	e.disarmExpiry()

	// Expiry needs now > expires_at, so fire just after.
	wait := at.Sub(now) + time.Millisecond
	if wait < 0 {
		wait = 0
	}
	e.expiresAt = at
	e.expiry = time.AfterFunc(wait, func() {
		e.enqueue(climate.Trigger{Kind: climate.TriggerOverrideExpiry})
	})
}

func (e *Engine) disarmExpiry() {
	if e.expiry != nil {
		e.expiry.Stop()
		e.expiry = nil
		e.expiresAt = time.Time{}
	}
}

func waitFor(ctx context.Context, done <-chan struct{}) error {
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
