// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

const (
	barRune            = '█'
	maxBarWidth        = 40
	terminalWidthFixed = 80
)

// RenderReport prints the summary, per-day table, and focus bars.
func RenderReport(w io.Writer, report Report) error {
	if err := renderSummary(w, report); err != nil {
		return err
	}
	return renderDailyTable(w, report)
}

func renderSummary(w io.Writer, report Report) error {
	s := report.Summary
	if s.TotalSessions == 0 {
		_, err := fmt.Fprintln(w, "No completed focus sessions yet.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Summary"); err != nil {
		return err
	}
	lines := []string{
		fmt.Sprintf("Focus sessions: %d", s.TotalSessions),
		fmt.Sprintf("Focus time: %s", HumanDuration(s.TotalFocusSeconds)),
		fmt.Sprintf("Today: %d sessions, %s", s.TodaySessions, HumanDuration(s.TodayFocusSeconds)),
		fmt.Sprintf("Streak: %d days (best %d)", s.CurrentStreak, s.BestStreak),
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

func renderDailyTable(w io.Writer, report Report) error {
	if len(report.Days) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "Daily Focus"); err != nil {
		return err
	}

	maxMinutes := 0.0
	for _, v := range FocusMinutes(report.Days) {
		if v > maxMinutes {
			maxMinutes = v
		}
	}
	barWidth := autoBarWidth()

	headers := []string{"Date", "Sessions", "Focus", ""}
	rows := make([][]string, 0, len(report.Days))
	for _, day := range report.Days {
		rows = append(rows, []string{
			day.Date,
			fmt.Sprintf("%d", day.Sessions),
			HumanDuration(day.FocusSeconds),
			bar(float64(day.FocusSeconds)/60.0, maxMinutes, barWidth),
		})
	}
	rightAlign := map[int]bool{1: true, 2: true}
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

func bar(value, max float64, width int) string {
	if max <= 0 || value <= 0 || width <= 0 {
		return ""
	}
	n := int(value / max * float64(width))
	if n < 1 {
		n = 1
	}
	if n > width {
		n = width
	}
	return strings.Repeat(string(barRune), n)
}

func autoBarWidth() int {
	width := terminalWidthFixed
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		width = w
	}
	// Leave room for the date/sessions/focus columns.
	width -= 30
	if width > maxBarWidth {
		width = maxBarWidth
	}
	if width < 5 {
		width = 5
	}
	return width
}
