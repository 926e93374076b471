// Package stats contains statistics calculations and reporting.
package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/yabswannalearn/OpenPomo/internal/model"
	"github.com/yabswannalearn/OpenPomo/internal/store"
)

const dayFormat = "2006-01-02"

// Report contains precomputed data for stats rendering.
type Report struct {
	Days     []model.DayAggregate
	Sessions []model.Session
	Summary  model.Summary
}

// BuildReport loads and prepares data for stats rendering.
func BuildReport(ctx context.Context, st *store.Store, cfg model.StatsConfig, now time.Time) (Report, error) {
	days, err := st.DailyAggregates(ctx, cfg)
	if err != nil {
		return Report{}, err
	}
	sessions, err := st.ListSessions(ctx, cfg)
	if err != nil {
		return Report{}, err
	}
	return Report{
		Days:     days,
		Sessions: sessions,
		Summary:  Summarize(days, now),
	}, nil
}

// Summarize computes totals and streaks from per-day aggregates.
func Summarize(days []model.DayAggregate, now time.Time) model.Summary {
	var summary model.Summary
	today := now.Local().Format(dayFormat)
	for _, day := range days {
		summary.TotalSessions += day.Sessions
		summary.TotalFocusSeconds += day.FocusSeconds
		if day.Date == today {
			summary.TodaySessions = day.Sessions
			summary.TodayFocusSeconds = day.FocusSeconds
		}
	}
	summary.CurrentStreak, summary.BestStreak = Streaks(days, now)
	return summary
}

// Streaks returns the current and best run of consecutive days with at
// least one completed focus session. The current streak survives until a
// full day has been missed: a run ending yesterday still counts.
func Streaks(days []model.DayAggregate, now time.Time) (current, best int) {
	if len(days) == 0 {
		return 0, 0
	}

	var prev time.Time
	run := 0
	var lastRunEnd time.Time
	for _, day := range days {
		date, err := time.ParseInLocation(dayFormat, day.Date, time.Local)
		if err != nil || day.Sessions == 0 {
			continue
		}
		if run > 0 && prev.AddDate(0, 0, 1).Equal(date) {
			run++
		} else {
			run = 1
		}
		prev = date
		lastRunEnd = date
		if run > best {
			best = run
		}
	}

	if run == 0 {
		return 0, best
	}
	todayStr := now.Local().Format(dayFormat)
	lastStr := lastRunEnd.Format(dayFormat)
	yesterdayStr := now.Local().AddDate(0, 0, -1).Format(dayFormat)
	if lastStr == todayStr || lastStr == yesterdayStr {
		current = run
	}
	return current, best
}

// FocusMinutes extracts the per-day focus minutes as a series.
func FocusMinutes(days []model.DayAggregate) []float64 {
	out := make([]float64, len(days))
	for i, day := range days {
		out[i] = float64(day.FocusSeconds) / 60.0
	}
	return out
}

// HumanDuration renders a second count as a compact h/m string.
func HumanDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	minutes := seconds / 60
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	hours := minutes / 60
	rest := minutes % 60
	if rest == 0 {
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dh%02dm", hours, rest)
}
