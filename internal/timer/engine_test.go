package timer

import (
	"sync"
	"testing"
	"time"

	"github.com/yabswannalearn/OpenPomo/internal/model"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingDriver struct {
	mu       sync.Mutex
	started  []time.Time
	stops    int
	checks   int
	armed    bool
	deadline time.Time
}

func (d *recordingDriver) Start(deadline time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.started = append(d.started, deadline)
	d.armed = true
	d.deadline = deadline
}

func (d *recordingDriver) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stops++
	d.armed = false
}

func (d *recordingDriver) Check() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.checks++
}

type recordingNotifier struct {
	mu        sync.Mutex
	completed []model.Mode
	durations []int
}

func (n *recordingNotifier) PhaseCompleted(mode model.Mode, durationSeconds int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed = append(n.completed, mode)
	n.durations = append(n.durations, durationSeconds)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.completed)
}

func testDurations() model.Durations {
	return model.Durations{Focus: 1500, ShortBreak: 300, LongBreak: 900}
}

func newTestEngine(clock *fakeClock, driver *recordingDriver, notifier *recordingNotifier) *Engine {
	return New(Options{
		Durations: testDurations(),
		AutoStart: false,
		Driver:    driver,
		Notifiers: []Notifier{notifier},
		Now:       clock.Now,
	})
}

func TestStartThenImmediateTick(t *testing.T) {
	clock := newFakeClock()
	driver := &recordingDriver{}
	engine := newTestEngine(clock, driver, &recordingNotifier{})

	engine.Start()
	st := engine.Snapshot()
	if !st.Running || st.DeadlineMs == nil {
		t.Fatalf("expected running state with deadline, got %+v", st)
	}
	if !st.HasStarted {
		t.Fatalf("expected has_started after start")
	}

	engine.OnTick(clock.Now())
	if got := engine.Snapshot().RemainingSeconds; got != 1500 {
		t.Fatalf("immediate tick: expected 1500 remaining, got %d", got)
	}

	clock.Advance(300 * time.Millisecond)
	engine.OnTick(clock.Now())
	if got := engine.Snapshot().RemainingSeconds; got != 1500 {
		t.Fatalf("sub-second tick: expected ceil to 1500, got %d", got)
	}

	clock.Advance(time.Second)
	engine.OnTick(clock.Now())
	if got := engine.Snapshot().RemainingSeconds; got != 1499 {
		t.Fatalf("expected 1499 remaining, got %d", got)
	}
	if got := engine.Snapshot().RemainingSeconds; got < 0 {
		t.Fatalf("remaining must never be negative, got %d", got)
	}
}

func TestStartWhileRunningIsNoOp(t *testing.T) {
	clock := newFakeClock()
	driver := &recordingDriver{}
	engine := newTestEngine(clock, driver, &recordingNotifier{})

	engine.Start()
	first := engine.Snapshot()
	clock.Advance(2 * time.Second)
	engine.Start()
	second := engine.Snapshot()
	if *first.DeadlineMs != *second.DeadlineMs {
		t.Fatalf("second start moved the deadline: %d vs %d", *first.DeadlineMs, *second.DeadlineMs)
	}
	if len(driver.started) != 1 {
		t.Fatalf("expected one driver arm, got %d", len(driver.started))
	}
}

func TestPauseIdempotent(t *testing.T) {
	clock := newFakeClock()
	driver := &recordingDriver{}
	engine := newTestEngine(clock, driver, &recordingNotifier{})

	engine.Start()
	clock.Advance(2 * time.Second)
	engine.Pause()
	first := engine.Snapshot()
	if first.Running || first.DeadlineMs != nil {
		t.Fatalf("expected paused state, got %+v", first)
	}
	if first.RemainingSeconds != 1498 {
		t.Fatalf("expected 1498 frozen remaining, got %d", first.RemainingSeconds)
	}

	clock.Advance(10 * time.Second)
	engine.Pause()
	second := engine.Snapshot()
	if second != first {
		t.Fatalf("second pause changed state: %+v vs %+v", second, first)
	}
}

func TestLateTickAfterPauseIgnored(t *testing.T) {
	clock := newFakeClock()
	engine := newTestEngine(clock, &recordingDriver{}, &recordingNotifier{})

	engine.Start()
	clock.Advance(time.Second)
	engine.Pause()
	frozen := engine.Snapshot().RemainingSeconds

	// Queued tick arriving after stop must not touch the frozen value.
	clock.Advance(30 * time.Second)
	engine.OnTick(clock.Now())
	if got := engine.Snapshot().RemainingSeconds; got != frozen {
		t.Fatalf("late tick mutated paused state: %d vs %d", got, frozen)
	}
}

func TestCompletionGuardSingleFire(t *testing.T) {
	clock := newFakeClock()
	notifier := &recordingNotifier{}
	engine := newTestEngine(clock, &recordingDriver{}, notifier)

	engine.Start()
	clock.Advance(1500 * time.Second)
	engine.OnTick(clock.Now())
	engine.OnTick(clock.Now())

	if notifier.count() != 1 {
		t.Fatalf("expected exactly one completion, got %d", notifier.count())
	}
	st := engine.Snapshot()
	if st.CompletedFocusCount != 1 {
		t.Fatalf("expected one completed focus phase, got %d", st.CompletedFocusCount)
	}
	if st.Mode != model.ModeShortBreak {
		t.Fatalf("expected short break after first focus, got %s", st.Mode)
	}
	if !st.HasStarted {
		t.Fatalf("expected has_started after completion")
	}
}

func TestModeCadence(t *testing.T) {
	clock := newFakeClock()
	notifier := &recordingNotifier{}
	engine := newTestEngine(clock, &recordingDriver{}, notifier)

	wantNext := []model.Mode{
		model.ModeShortBreak,
		model.ModeShortBreak,
		model.ModeShortBreak,
		model.ModeLongBreak,
	}
	for i, want := range wantNext {
		if engine.Snapshot().Mode != model.ModeFocus {
			engine.SwitchMode(model.ModeFocus)
		}
		engine.Start()
		clock.Advance(1501 * time.Second)
		engine.OnTick(clock.Now())
		got := engine.Snapshot().Mode
		if got != want {
			t.Fatalf("completion %d: expected next mode %s, got %s", i+1, want, got)
		}
	}
	if got := engine.Snapshot().CompletedFocusCount; got != 4 {
		t.Fatalf("expected 4 completed focus phases, got %d", got)
	}
	for _, mode := range notifier.completed {
		if mode != model.ModeFocus {
			t.Fatalf("notification carried wrong finished mode: %s", mode)
		}
	}
}

func TestBreakCompletionReturnsToFocus(t *testing.T) {
	clock := newFakeClock()
	notifier := &recordingNotifier{}
	engine := newTestEngine(clock, &recordingDriver{}, notifier)

	engine.SwitchMode(model.ModeShortBreak)
	engine.Start()
	clock.Advance(301 * time.Second)
	engine.OnTick(clock.Now())

	st := engine.Snapshot()
	if st.Mode != model.ModeFocus {
		t.Fatalf("expected focus after break, got %s", st.Mode)
	}
	if st.CompletedFocusCount != 0 {
		t.Fatalf("break completion must not touch focus count, got %d", st.CompletedFocusCount)
	}
	if notifier.count() != 1 || notifier.completed[0] != model.ModeShortBreak {
		t.Fatalf("expected one short-break notification, got %+v", notifier.completed)
	}
}

func TestResetClearsPhase(t *testing.T) {
	clock := newFakeClock()
	engine := newTestEngine(clock, &recordingDriver{}, &recordingNotifier{})

	engine.Start()
	clock.Advance(5 * time.Second)
	engine.OnTick(clock.Now())
	engine.Reset()

	st := engine.Snapshot()
	if st.Running || st.DeadlineMs != nil || st.HasStarted {
		t.Fatalf("expected fully reset phase, got %+v", st)
	}
	if st.RemainingSeconds != 1500 {
		t.Fatalf("expected full duration after reset, got %d", st.RemainingSeconds)
	}
}

func TestSwitchModeAbandonsRunningPhase(t *testing.T) {
	clock := newFakeClock()
	notifier := &recordingNotifier{}
	driver := &recordingDriver{}
	engine := newTestEngine(clock, driver, notifier)

	engine.Start()
	clock.Advance(10 * time.Second)
	engine.SwitchMode(model.ModeShortBreak)

	st := engine.Snapshot()
	if st.Running || st.DeadlineMs != nil {
		t.Fatalf("expected stopped state after switch, got %+v", st)
	}
	if st.Mode != model.ModeShortBreak || st.RemainingSeconds != 300 {
		t.Fatalf("expected short break at full duration, got %+v", st)
	}
	if st.HasStarted {
		t.Fatalf("switched mode must be marked not started")
	}
	if notifier.count() != 0 {
		t.Fatalf("abandoning a phase must not fire a completion")
	}
	if !driverStopped(driver) {
		t.Fatalf("expected driver stopped after switch")
	}
}

func driverStopped(d *recordingDriver) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.armed
}

func TestConfigChangeResizesUntouchedPhase(t *testing.T) {
	clock := newFakeClock()
	engine := newTestEngine(clock, &recordingDriver{}, &recordingNotifier{})

	durations := testDurations()
	durations.Focus = 600
	engine.OnConfigChange(durations)
	if got := engine.Snapshot().RemainingSeconds; got != 600 {
		t.Fatalf("expected resized remaining 600, got %d", got)
	}
}

func TestConfigChangeLeavesActiveCountdown(t *testing.T) {
	clock := newFakeClock()
	engine := newTestEngine(clock, &recordingDriver{}, &recordingNotifier{})

	engine.Start()
	clock.Advance(time.Second)
	engine.OnTick(clock.Now())
	before := engine.Snapshot().RemainingSeconds

	durations := testDurations()
	durations.Focus = 600
	engine.OnConfigChange(durations)
	if got := engine.Snapshot().RemainingSeconds; got != before {
		t.Fatalf("config change mutated active countdown: %d vs %d", got, before)
	}

	// Paused mid-phase countdowns keep their remaining time too.
	engine.Pause()
	paused := engine.Snapshot().RemainingSeconds
	durations.Focus = 60
	engine.OnConfigChange(durations)
	if got := engine.Snapshot().RemainingSeconds; got != paused {
		t.Fatalf("config change mutated paused countdown: %d vs %d", got, paused)
	}
}

func TestRestoreFutureDeadlineResumes(t *testing.T) {
	clock := newFakeClock()
	notifier := &recordingNotifier{}
	driver := &recordingDriver{}
	engine := newTestEngine(clock, driver, notifier)

	deadline := clock.Now().Add(5 * time.Second).UnixMilli()
	engine.Restore(State{
		Mode:             model.ModeFocus,
		RemainingSeconds: 5,
		Running:          true,
		DeadlineMs:       &deadline,
	})

	st := engine.Snapshot()
	if !st.Running || st.RemainingSeconds != 5 {
		t.Fatalf("expected resumed countdown with 5s left, got %+v", st)
	}
	if len(driver.started) != 1 || driver.started[0].UnixMilli() != deadline {
		t.Fatalf("expected driver armed with persisted deadline")
	}

	clock.Advance(5 * time.Second)
	engine.OnTick(clock.Now())
	engine.OnTick(clock.Now())
	if notifier.count() != 1 {
		t.Fatalf("expected exactly one completion after resume, got %d", notifier.count())
	}
}

func TestRestoreStaleDeadlineCompletesSynchronously(t *testing.T) {
	clock := newFakeClock()
	notifier := &recordingNotifier{}
	engine := newTestEngine(clock, &recordingDriver{}, notifier)

	deadline := clock.Now().Add(-time.Hour).UnixMilli()
	engine.Restore(State{
		Mode:             model.ModeFocus,
		RemainingSeconds: 1200,
		Running:          true,
		DeadlineMs:       &deadline,
	})

	if notifier.count() != 1 || notifier.completed[0] != model.ModeFocus {
		t.Fatalf("expected one synchronous focus completion, got %+v", notifier.completed)
	}
	st := engine.Snapshot()
	if st.Mode != model.ModeShortBreak {
		t.Fatalf("expected advance to short break, got %s", st.Mode)
	}
	if st.CompletedFocusCount != 1 {
		t.Fatalf("expected incremented focus count, got %d", st.CompletedFocusCount)
	}
}

func TestRestoreStaleDeadlineHonorsCadence(t *testing.T) {
	clock := newFakeClock()
	engine := newTestEngine(clock, &recordingDriver{}, &recordingNotifier{})

	deadline := clock.Now().Add(-time.Minute).UnixMilli()
	engine.Restore(State{
		Mode:                model.ModeFocus,
		RemainingSeconds:    0,
		Running:             true,
		DeadlineMs:          &deadline,
		CompletedFocusCount: 3,
	})

	if got := engine.Snapshot().Mode; got != model.ModeLongBreak {
		t.Fatalf("fourth focus completion must yield long break, got %s", got)
	}
}

func TestRestoreMalformedStateFallsBackToDefaults(t *testing.T) {
	clock := newFakeClock()
	engine := newTestEngine(clock, &recordingDriver{}, &recordingNotifier{})

	engine.Restore(State{Mode: "lunch", RemainingSeconds: -3, Running: true})
	st := engine.Snapshot()
	if st.Mode != model.ModeFocus || st.Running || st.RemainingSeconds != 1500 {
		t.Fatalf("expected default state for malformed snapshot, got %+v", st)
	}
}

func TestAutoStartAdvancesAfterDelay(t *testing.T) {
	clock := newFakeClock()
	notifier := &recordingNotifier{}
	driver := &recordingDriver{}
	engine := New(Options{
		Durations:      testDurations(),
		AutoStart:      true,
		AutoStartDelay: 10 * time.Millisecond,
		Driver:         driver,
		Notifiers:      []Notifier{notifier},
		Now:            clock.Now,
	})

	engine.Start()
	clock.Advance(1500 * time.Second)
	engine.OnTick(clock.Now())

	deadlineReached := func() bool {
		st := engine.Snapshot()
		return st.Running && st.Mode == model.ModeShortBreak
	}
	waitFor(t, deadlineReached, time.Second)
	if notifier.count() != 1 {
		t.Fatalf("auto-start must not re-fire the completion, got %d", notifier.count())
	}
}

func TestResetCancelsPendingAutoStart(t *testing.T) {
	clock := newFakeClock()
	engine := New(Options{
		Durations:      testDurations(),
		AutoStart:      true,
		AutoStartDelay: 50 * time.Millisecond,
		Driver:         &recordingDriver{},
		Now:            clock.Now,
	})

	engine.Start()
	clock.Advance(1500 * time.Second)
	engine.OnTick(clock.Now())
	engine.Reset()

	time.Sleep(120 * time.Millisecond)
	if st := engine.Snapshot(); st.Running {
		t.Fatalf("reset must cancel the pending auto-start, got %+v", st)
	}
}

func waitFor(t *testing.T, cond func() bool, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}
