// Package notify delivers best-effort desktop alerts and alarm sounds.
package notify

import (
	"fmt"
	"os/exec"
	"runtime"

	"github.com/yabswannalearn/OpenPomo/internal/model"
)

// Send best-effort desktop notification. Falls back silently if unavailable.
func Send(title, message string) {
	switch runtime.GOOS {
	case "darwin":
		// osascript native notification
		_ = exec.Command("osascript", "-e", `display notification "`+escapeQuotes(message)+`" with title "`+escapeQuotes(title)+`"`).Run()
	case "linux":
		_ = exec.Command("notify-send", title, message).Run()
	default:
		// no-op for other platforms
	}
}

// Alarm announces phase completions. It satisfies the engine's notifier
// contract: delivery happens off the calling goroutine and never blocks.
type Alarm struct {
	enabled    bool
	focusSound string
	breakSound string
}

// NewAlarm creates an alarm with per-mode sound files. Empty sound paths
// skip audio and keep the desktop notification.
func NewAlarm(enabled bool, focusSound, breakSound string) *Alarm {
	return &Alarm{
		enabled:    enabled,
		focusSound: focusSound,
		breakSound: breakSound,
	}
}

// PhaseCompleted fires the notification and sound for the finished mode.
func (a *Alarm) PhaseCompleted(mode model.Mode, durationSeconds int) {
	if !a.enabled {
		return
	}
	sound := a.soundFor(mode)
	go func() {
		Send("OpenPomo", completionMessage(mode, durationSeconds))
		playSound(sound)
	}()
}

func (a *Alarm) soundFor(mode model.Mode) string {
	if mode == model.ModeFocus {
		return a.focusSound
	}
	return a.breakSound
}

func completionMessage(mode model.Mode, durationSeconds int) string {
	minutes := durationSeconds / 60
	switch mode {
	case model.ModeFocus:
		return fmt.Sprintf("Focus finished (%d min). Time for a break.", minutes)
	default:
		return fmt.Sprintf("%s finished. Back to focus.", mode.Label())
	}
}

func playSound(path string) {
	if path == "" {
		return
	}
	switch runtime.GOOS {
	case "darwin":
		_ = exec.Command("afplay", path).Run()
	case "linux":
		_ = exec.Command("paplay", path).Run()
	default:
		// no-op for other platforms
	}
}

func escapeQuotes(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '"' {
			out = append(out, '\\', '"')
		} else {
			out = append(out, r)
		}
	}
	return string(out)
}
