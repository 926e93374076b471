// Package model defines shared data structures.
package model

import "time"

// Mode is a countdown phase.
type Mode string

const (
	ModeFocus      Mode = "focus"
	ModeShortBreak Mode = "short_break"
	ModeLongBreak  Mode = "long_break"
)

// Valid reports whether the mode is one of the three known phases.
func (m Mode) Valid() bool {
	switch m {
	case ModeFocus, ModeShortBreak, ModeLongBreak:
		return true
	}
	return false
}

// Label returns a human-readable mode name.
func (m Mode) Label() string {
	switch m {
	case ModeFocus:
		return "Focus"
	case ModeShortBreak:
		return "Short Break"
	case ModeLongBreak:
		return "Long Break"
	}
	return string(m)
}

// MaxDurationSeconds caps a configured phase length at 24 hours.
const MaxDurationSeconds = 24 * 60 * 60

// Durations holds the configured phase lengths in seconds.
type Durations struct {
	Focus      int
	ShortBreak int
	LongBreak  int
}

// DefaultDurations returns the classic pomodoro lengths.
func DefaultDurations() Durations {
	return Durations{
		Focus:      25 * 60,
		ShortBreak: 5 * 60,
		LongBreak:  15 * 60,
	}
}

// For returns the configured length for a mode.
func (d Durations) For(mode Mode) int {
	switch mode {
	case ModeShortBreak:
		return d.ShortBreak
	case ModeLongBreak:
		return d.LongBreak
	default:
		return d.Focus
	}
}

// Session records a completed (or abandoned) countdown phase.
type Session struct {
	ID              int64
	Mode            Mode
	StartedAt       time.Time
	EndedAt         time.Time
	DurationSeconds int
	TaskID          string
	Completed       bool
}

// Task is a unit of work that focus sessions can be attributed to.
type Task struct {
	ID        string
	Name      string
	CreatedAt time.Time
	Done      bool
}

// StatsConfig defines filters for history queries and reports.
type StatsConfig struct {
	Mode  Mode
	Since *time.Time
	Last  int
}

// DayAggregate summarizes one local day of focus work.
type DayAggregate struct {
	Date         string
	FocusSeconds int
	Sessions     int
}

// Summary holds all-time totals plus streaks for the dashboard.
type Summary struct {
	TotalSessions     int
	TotalFocusSeconds int
	TodayFocusSeconds int
	TodaySessions     int
	CurrentStreak     int
	BestStreak        int
}
