// Package timer implements the countdown engine and its mode-cycling policy.
package timer

import (
	"sync"
	"time"

	"github.com/yabswannalearn/OpenPomo/internal/model"
)

// focusPhasesPerCycle is the number of completed focus phases before a long break.
const focusPhasesPerCycle = 4

// DefaultAutoStartDelay is the pause between a phase completing and the
// next phase starting automatically.
const DefaultAutoStartDelay = 500 * time.Millisecond

// State is the engine's externally visible (and persisted) state.
// Running is true iff DeadlineMs is non-nil.
type State struct {
	Mode                model.Mode `json:"mode"`
	RemainingSeconds    int        `json:"remaining_seconds"`
	Running             bool       `json:"running"`
	DeadlineMs          *int64     `json:"deadline_ms,omitempty"`
	CompletedFocusCount int        `json:"completed_focus_count"`
	HasStarted          bool       `json:"has_started"`
}

// DefaultState returns the state used when no snapshot exists.
func DefaultState(durations model.Durations) State {
	return State{
		Mode:             model.ModeFocus,
		RemainingSeconds: durations.For(model.ModeFocus),
	}
}

// Driver arms and disarms the background ticker for an absolute deadline.
// Stop must be idempotent; Check triggers an immediate one-shot evaluation.
type Driver interface {
	Start(deadline time.Time)
	Stop()
	Check()
}

// Notifier receives phase-completion events before the next phase is armed.
// Implementations must not call back into the Engine and must not block.
type Notifier interface {
	PhaseCompleted(mode model.Mode, durationSeconds int)
}

// Options configures an Engine.
type Options struct {
	Durations      model.Durations
	AutoStart      bool
	AutoStartDelay time.Duration
	Driver         Driver
	Notifiers      []Notifier
	Persist        func(State)
	Now            func() time.Time
}

// Engine owns all timer state. Every mutation goes through its command
// methods; ticks and commands are serialized by the internal mutex.
type Engine struct {
	mu        sync.Mutex
	durations model.Durations
	state     State

	autoStart      bool
	autoStartDelay time.Duration

	// completing guards the completion policy against double-firing when
	// two tick deliveries both observe an expired deadline. It is set for
	// the whole transition and cleared once the next phase is armed (or
	// the transition is abandoned by reset/switch).
	completing bool
	autoTimer  *time.Timer

	driver    Driver
	notifiers []Notifier
	persist   func(State)
	now       func() time.Time
}

// New constructs an Engine in the default (focus, not running) state.
func New(opts Options) *Engine {
	if opts.Durations == (model.Durations{}) {
		opts.Durations = model.DefaultDurations()
	}
	if opts.AutoStartDelay < 0 {
		opts.AutoStartDelay = 0
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Persist == nil {
		opts.Persist = func(State) {}
	}
	if opts.Driver == nil {
		opts.Driver = noopDriver{}
	}
	return &Engine{
		durations:      opts.Durations,
		state:          DefaultState(opts.Durations),
		autoStart:      opts.AutoStart,
		autoStartDelay: opts.AutoStartDelay,
		driver:         opts.Driver,
		notifiers:      opts.Notifiers,
		persist:        opts.Persist,
		now:            opts.Now,
	}
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.copyStateLocked()
}

// Durations returns the configured phase lengths.
func (e *Engine) Durations() model.Durations {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.durations
}

// Start arms the deadline for the frozen remaining time. No-op while running.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.startLocked()
}

// Pause freezes the remaining time and disarms the ticker. No-op while stopped.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.state.Running {
		return
	}
	e.state.RemainingSeconds = e.remainingLocked(e.now())
	e.state.Running = false
	e.state.DeadlineMs = nil
	e.driver.Stop()
	e.persistLocked()
}

// Reset returns the current mode to its full configured duration.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelCompletionLocked()
	e.state.Running = false
	e.state.DeadlineMs = nil
	e.state.HasStarted = false
	e.state.RemainingSeconds = e.durations.For(e.state.Mode)
	e.driver.Stop()
	e.persistLocked()
}

// SwitchMode abandons the current phase and selects target at its full
// duration, not running. No completion fires for the abandoned phase.
func (e *Engine) SwitchMode(target model.Mode) {
	if !target.Valid() {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelCompletionLocked()
	e.state.Mode = target
	e.state.Running = false
	e.state.DeadlineMs = nil
	e.state.HasStarted = false
	e.state.RemainingSeconds = e.durations.For(target)
	e.driver.Stop()
	e.persistLocked()
}

// OnTick recomputes the remaining time from the deadline. When the deadline
// has passed it runs the completion policy exactly once. Ticks delivered
// after the engine stopped running are ignored.
func (e *Engine) OnTick(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.state.Running || e.state.DeadlineMs == nil {
		return
	}
	remaining := e.remainingLocked(now)
	if remaining <= 0 {
		e.state.RemainingSeconds = 0
		e.completeLocked()
		return
	}
	if remaining != e.state.RemainingSeconds {
		e.state.RemainingSeconds = remaining
		e.persistLocked()
	}
}

// OnConfigChange applies new durations. An untouched, never-started phase is
// resized to stay in sync with the settings; a running or paused countdown
// keeps its remaining time.
func (e *Engine) OnConfigChange(durations model.Durations) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.durations = durations
	if !e.state.Running && !e.state.HasStarted {
		e.state.RemainingSeconds = durations.For(e.state.Mode)
		e.persistLocked()
	}
}

// Restore replaces the engine state with a persisted snapshot, reconciling
// the deadline against the current clock. A future deadline resumes the
// countdown; an elapsed one runs the completion policy synchronously so the
// finished phase is not silently dropped.
func (e *Engine) Restore(snapshot State) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !snapshot.Mode.Valid() {
		snapshot = DefaultState(e.durations)
	}
	if snapshot.RemainingSeconds < 0 {
		snapshot.RemainingSeconds = 0
	}
	if snapshot.Running && snapshot.DeadlineMs == nil {
		snapshot.Running = false
	}
	if !snapshot.Running {
		snapshot.DeadlineMs = nil
	}
	e.state = snapshot

	if !e.state.Running {
		e.persistLocked()
		return
	}
	now := e.now()
	deadline := time.UnixMilli(*e.state.DeadlineMs)
	if deadline.After(now) {
		e.state.RemainingSeconds = remainingSeconds(deadline, now)
		e.driver.Start(deadline)
		e.persistLocked()
		return
	}
	e.state.RemainingSeconds = 0
	e.completeLocked()
}

func (e *Engine) startLocked() {
	if e.state.Running {
		return
	}
	if e.state.RemainingSeconds <= 0 {
		e.state.RemainingSeconds = e.durations.For(e.state.Mode)
	}
	now := e.now()
	deadline := now.Add(time.Duration(e.state.RemainingSeconds) * time.Second)
	ms := deadline.UnixMilli()
	e.state.DeadlineMs = &ms
	e.state.Running = true
	e.state.HasStarted = true
	e.driver.Start(deadline)
	e.persistLocked()
}

// completeLocked runs the completion policy: notify collaborators with the
// finished mode, advance per the cadence rule, then auto-start the next
// phase after the configured delay.
func (e *Engine) completeLocked() {
	if e.completing || !e.state.Running {
		return
	}
	e.completing = true
	e.driver.Stop()

	finished := e.state.Mode
	for _, n := range e.notifiers {
		n.PhaseCompleted(finished, e.durations.For(finished))
	}

	next := model.ModeFocus
	if finished == model.ModeFocus {
		e.state.CompletedFocusCount++
		if e.state.CompletedFocusCount%focusPhasesPerCycle == 0 {
			next = model.ModeLongBreak
		} else {
			next = model.ModeShortBreak
		}
	}
	e.state.Mode = next
	e.state.Running = false
	e.state.DeadlineMs = nil
	e.state.RemainingSeconds = e.durations.For(next)
	e.state.HasStarted = true
	e.persistLocked()

	if !e.autoStart {
		e.completing = false
		return
	}
	if e.autoStartDelay <= 0 {
		e.completing = false
		e.startLocked()
		return
	}
	e.autoTimer = time.AfterFunc(e.autoStartDelay, e.autoAdvance)
}

func (e *Engine) autoAdvance() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.completing {
		// Reset or switch abandoned the transition.
		return
	}
	e.completing = false
	e.autoTimer = nil
	e.startLocked()
}

func (e *Engine) cancelCompletionLocked() {
	if e.autoTimer != nil {
		e.autoTimer.Stop()
		e.autoTimer = nil
	}
	e.completing = false
}

func (e *Engine) remainingLocked(now time.Time) int {
	if e.state.DeadlineMs == nil {
		return e.state.RemainingSeconds
	}
	return remainingSeconds(time.UnixMilli(*e.state.DeadlineMs), now)
}

func (e *Engine) persistLocked() {
	e.persist(e.copyStateLocked())
}

func (e *Engine) copyStateLocked() State {
	snapshot := e.state
	if e.state.DeadlineMs != nil {
		ms := *e.state.DeadlineMs
		snapshot.DeadlineMs = &ms
	}
	return snapshot
}

// remainingSeconds is the ceiling of the time left until deadline, never negative.
func remainingSeconds(deadline, now time.Time) int {
	left := deadline.Sub(now)
	if left <= 0 {
		return 0
	}
	return int((left + time.Second - 1) / time.Second)
}

type noopDriver struct{}

func (noopDriver) Start(time.Time) {}
func (noopDriver) Stop()           {}
func (noopDriver) Check()          {}
