package ticker

import (
	"testing"
	"time"
)

func collectUntilComplete(t *testing.T, d Driver, timeout time.Duration) []Event {
	t.Helper()
	var events []Event
	deadline := time.After(timeout)
	for {
		select {
		case ev := <-d.Events():
			events = append(events, ev)
			if ev.Kind == EventComplete {
				return events
			}
		case <-deadline:
			t.Fatalf("no completion within %v (saw %d events)", timeout, len(events))
		}
	}
}

func drivers(t *testing.T) map[string]Driver {
	t.Helper()
	return map[string]Driver{
		"poll":     NewPollDriver(5 * time.Millisecond),
		"fallback": NewFallbackDriver(5 * time.Millisecond),
	}
}

func TestDriverEmitsTicksThenSingleComplete(t *testing.T) {
	for name, d := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			defer d.Close()
			d.Start(time.Now().Add(40 * time.Millisecond))
			events := collectUntilComplete(t, d, time.Second)

			if events[len(events)-1].Kind != EventComplete {
				t.Fatalf("expected trailing completion")
			}
			if events[0].Kind != EventTick {
				t.Fatalf("expected immediate tick on start, got %v", events[0].Kind)
			}
			for _, ev := range events[:len(events)-1] {
				if ev.Kind != EventTick {
					t.Fatalf("expected only ticks before completion")
				}
				if ev.RemainingSeconds <= 0 {
					t.Fatalf("tick with non-positive remaining: %d", ev.RemainingSeconds)
				}
			}

			// No second completion after the deadline fired.
			select {
			case ev := <-d.Events():
				if ev.Kind == EventComplete {
					t.Fatalf("duplicate completion event")
				}
			case <-time.After(50 * time.Millisecond):
			}
		})
	}
}

func TestDriverImmediateCompleteForPastDeadline(t *testing.T) {
	for name, d := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			defer d.Close()
			d.Start(time.Now().Add(-time.Minute))
			events := collectUntilComplete(t, d, time.Second)
			if len(events) != 1 {
				t.Fatalf("expected lone completion for elapsed deadline, got %d events", len(events))
			}
		})
	}
}

func TestDriverStopIsIdempotentAndSilencesEvents(t *testing.T) {
	for name, d := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			defer d.Close()
			d.Start(time.Now().Add(time.Hour))
			d.Stop()
			d.Stop()

			// Drain anything emitted before the stop took effect, then
			// verify silence.
			drained := time.After(30 * time.Millisecond)
		drain:
			for {
				select {
				case <-d.Events():
				case <-drained:
					break drain
				}
			}
			select {
			case ev := <-d.Events():
				t.Fatalf("event after stop: %+v", ev)
			case <-time.After(50 * time.Millisecond):
			}
		})
	}
}

func TestDriverCheckForcesEvaluation(t *testing.T) {
	// Interval far in the future so only Start and Check evaluate.
	slow := map[string]Driver{
		"poll":     NewPollDriver(time.Hour),
		"fallback": NewFallbackDriver(time.Hour),
	}
	for name, d := range slow {
		t.Run(name, func(t *testing.T) {
			defer d.Close()
			d.Start(time.Now().Add(30 * time.Minute))

			select {
			case ev := <-d.Events():
				if ev.Kind != EventTick {
					t.Fatalf("expected tick on start, got %v", ev.Kind)
				}
			case <-time.After(time.Second):
				t.Fatalf("no immediate tick on start")
			}

			d.Check()
			select {
			case ev := <-d.Events():
				if ev.Kind != EventTick {
					t.Fatalf("expected tick on check, got %v", ev.Kind)
				}
			case <-time.After(time.Second):
				t.Fatalf("check did not trigger an evaluation")
			}
		})
	}
}

func TestRemainingSecondsCeil(t *testing.T) {
	now := time.Unix(1000, 0)
	cases := []struct {
		name     string
		deadline time.Time
		want     int
	}{
		{"exact", now.Add(5 * time.Second), 5},
		{"partial rounds up", now.Add(4500 * time.Millisecond), 5},
		{"past clamps to zero", now.Add(-time.Second), 0},
		{"zero", now, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := remainingSeconds(tc.deadline, now); got != tc.want {
				t.Fatalf("remainingSeconds = %d, want %d", got, tc.want)
			}
		})
	}
}
