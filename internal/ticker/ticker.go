// Package ticker drives deadline polling for the timer engine.
//
// Drivers accept START/STOP/CHECK commands and emit TICK/COMPLETE events.
// Remaining time is always recomputed from the absolute deadline, so
// duplicate or missed ticks cost at most display staleness.
package ticker

import (
	"sync"
	"time"
)

const (
	// DefaultPollInterval is the poll driver's evaluation period.
	DefaultPollInterval = 100 * time.Millisecond
	// FallbackPollInterval is the coarser period used by the in-context driver.
	FallbackPollInterval = 200 * time.Millisecond
)

// EventKind discriminates ticker events.
type EventKind int

const (
	// EventTick reports the seconds left until the armed deadline.
	EventTick EventKind = iota
	// EventComplete reports that the deadline has been reached.
	EventComplete
)

// Event is a single ticker notification.
type Event struct {
	Kind             EventKind
	RemainingSeconds int
	At               time.Time
}

type commandKind int

const (
	cmdStart commandKind = iota
	cmdStop
	cmdCheck
)

type command struct {
	kind     commandKind
	deadline time.Time
}

// Driver is the engine-facing ticker contract. At most one deadline is
// armed at a time; Stop is idempotent; Check forces an immediate one-shot
// evaluation without waiting for the next poll tick.
type Driver interface {
	Start(deadline time.Time)
	Stop()
	Check()
	Events() <-chan Event
	Close()
}

// New returns the preferred poll driver, or the in-context fallback driver
// when requested.
func New(useFallback bool) Driver {
	if useFallback {
		return NewFallbackDriver(0)
	}
	return NewPollDriver(0)
}

// PollDriver runs the polling loop in its own goroutine so the consuming
// context cannot stall it. Commands and the poll tick are handled by a
// single loop, so event emission is serialized.
type PollDriver struct {
	interval  time.Duration
	cmds      chan command
	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
	now       func() time.Time
}

// NewPollDriver starts a poll driver. A non-positive interval selects
// DefaultPollInterval.
func NewPollDriver(interval time.Duration) *PollDriver {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	d := &PollDriver{
		interval: interval,
		cmds:     make(chan command, 8),
		events:   make(chan Event, 16),
		done:     make(chan struct{}),
		now:      time.Now,
	}
	go d.run()
	return d
}

// Events returns the event stream.
func (d *PollDriver) Events() <-chan Event {
	return d.events
}

// Start arms the deadline and evaluates it immediately.
func (d *PollDriver) Start(deadline time.Time) {
	d.send(command{kind: cmdStart, deadline: deadline})
}

// Stop disarms the deadline. Safe to call repeatedly.
func (d *PollDriver) Stop() {
	d.send(command{kind: cmdStop})
}

// Check forces an immediate evaluation of the armed deadline.
func (d *PollDriver) Check() {
	d.send(command{kind: cmdCheck})
}

// Close terminates the polling goroutine.
func (d *PollDriver) Close() {
	d.closeOnce.Do(func() {
		close(d.done)
	})
}

func (d *PollDriver) send(cmd command) {
	select {
	case d.cmds <- cmd:
	case <-d.done:
	}
}

func (d *PollDriver) run() {
	poll := time.NewTicker(d.interval)
	defer poll.Stop()

	var active bool
	var deadline time.Time
	for {
		select {
		case <-d.done:
			return
		case cmd := <-d.cmds:
			switch cmd.kind {
			case cmdStart:
				deadline = cmd.deadline
				active = d.evaluate(deadline)
			case cmdStop:
				active = false
			case cmdCheck:
				if active {
					active = d.evaluate(deadline)
				}
			}
		case <-poll.C:
			if active {
				active = d.evaluate(deadline)
			}
		}
	}
}

// evaluate emits a tick or completion for the deadline and reports whether
// the loop should stay armed.
func (d *PollDriver) evaluate(deadline time.Time) bool {
	now := d.now()
	remaining := remainingSeconds(deadline, now)
	if remaining <= 0 {
		d.emit(Event{Kind: EventComplete, At: now})
		return false
	}
	d.emit(Event{Kind: EventTick, RemainingSeconds: remaining, At: now})
	return true
}

func (d *PollDriver) emit(ev Event) {
	if ev.Kind == EventComplete {
		// A completion must reach the consumer; shed stale ticks if the
		// buffer is full.
		for {
			select {
			case d.events <- ev:
				return
			default:
				select {
				case <-d.events:
				default:
				}
			}
		}
	}
	select {
	case d.events <- ev:
	default:
	}
}

// FallbackDriver evaluates the deadline from rescheduled timer callbacks in
// the caller's process, with no dedicated loop goroutine. Used when the poll
// driver is not wanted; same contract, coarser interval.
type FallbackDriver struct {
	mu       sync.Mutex
	interval time.Duration
	active   bool
	closed   bool
	deadline time.Time
	timer    *time.Timer
	events   chan Event
	now      func() time.Time
}

// NewFallbackDriver creates an in-context driver. A non-positive interval
// selects FallbackPollInterval.
func NewFallbackDriver(interval time.Duration) *FallbackDriver {
	if interval <= 0 {
		interval = FallbackPollInterval
	}
	return &FallbackDriver{
		interval: interval,
		events:   make(chan Event, 16),
		now:      time.Now,
	}
}

// Events returns the event stream.
func (d *FallbackDriver) Events() <-chan Event {
	return d.events
}

// Start arms the deadline and evaluates it immediately.
func (d *FallbackDriver) Start(deadline time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.stopTimerLocked()
	d.deadline = deadline
	d.active = true
	d.evaluateLocked()
	if d.active {
		d.scheduleLocked()
	}
}

// Stop disarms the deadline. Safe to call repeatedly.
func (d *FallbackDriver) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.active = false
	d.stopTimerLocked()
}

// Check forces an immediate evaluation of the armed deadline.
func (d *FallbackDriver) Check() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.active || d.closed {
		return
	}
	d.evaluateLocked()
	if !d.active {
		d.stopTimerLocked()
	}
}

// Close permanently disables the driver.
func (d *FallbackDriver) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.active = false
	d.stopTimerLocked()
}

func (d *FallbackDriver) scheduleLocked() {
	d.timer = time.AfterFunc(d.interval, d.poll)
}

func (d *FallbackDriver) stopTimerLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *FallbackDriver) poll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.active || d.closed {
		return
	}
	d.evaluateLocked()
	if d.active {
		d.scheduleLocked()
	} else {
		d.timer = nil
	}
}

func (d *FallbackDriver) evaluateLocked() {
	now := d.now()
	remaining := remainingSeconds(d.deadline, now)
	if remaining <= 0 {
		d.active = false
		d.emitLocked(Event{Kind: EventComplete, At: now})
		return
	}
	d.emitLocked(Event{Kind: EventTick, RemainingSeconds: remaining, At: now})
}

func (d *FallbackDriver) emitLocked(ev Event) {
	if ev.Kind == EventComplete {
		for {
			select {
			case d.events <- ev:
				return
			default:
				select {
				case <-d.events:
				default:
				}
			}
		}
	}
	select {
	case d.events <- ev:
	default:
	}
}

func remainingSeconds(deadline, now time.Time) int {
	left := deadline.Sub(now)
	if left <= 0 {
		return 0
	}
	return int((left + time.Second - 1) / time.Second)
}
