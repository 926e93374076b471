package notify

import (
	"strings"
	"testing"

	"github.com/yabswannalearn/OpenPomo/internal/model"
)

func TestSoundForMode(t *testing.T) {
	alarm := NewAlarm(true, "focus.wav", "break.wav")
	if got := alarm.soundFor(model.ModeFocus); got != "focus.wav" {
		t.Fatalf("focus sound = %q", got)
	}
	if got := alarm.soundFor(model.ModeShortBreak); got != "break.wav" {
		t.Fatalf("short break sound = %q", got)
	}
	if got := alarm.soundFor(model.ModeLongBreak); got != "break.wav" {
		t.Fatalf("long break sound = %q", got)
	}
}

func TestCompletionMessage(t *testing.T) {
	msg := completionMessage(model.ModeFocus, 1500)
	if !strings.Contains(msg, "25 min") {
		t.Fatalf("focus message missing duration: %q", msg)
	}
	msg = completionMessage(model.ModeLongBreak, 900)
	if !strings.Contains(msg, "Long Break") {
		t.Fatalf("break message missing mode: %q", msg)
	}
}

func TestEscapeQuotes(t *testing.T) {
	if got := escapeQuotes(`say "hi"`); got != `say \"hi\"` {
		t.Fatalf("escapeQuotes = %q", got)
	}
}
