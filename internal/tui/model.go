// Package tui provides the Bubble Tea countdown interface.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/yabswannalearn/OpenPomo/internal/model"
	"github.com/yabswannalearn/OpenPomo/internal/ticker"
	"github.com/yabswannalearn/OpenPomo/internal/timer"
)

var (
	activeTabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	clockStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true)
	pausedClockStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#8C8C8C")).
				Bold(true)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

const progressWidth = 40

type tickEventMsg ticker.Event

// Model implements the Bubble Tea countdown UI.
type Model struct {
	engine   *timer.Engine
	driver   ticker.Driver
	progress progress.Model
	taskName string

	width  int
	height int
}

// NewModel constructs a countdown TUI model.
func NewModel(engine *timer.Engine, driver ticker.Driver, taskName string) *Model {
	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	bar.Width = progressWidth
	return &Model{
		engine:   engine,
		driver:   driver,
		progress: bar,
		taskName: taskName,
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.waitForEvent()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.FocusMsg:
		// Reconcile the display immediately after regaining focus.
		m.driver.Check()
		return m, nil
	case tickEventMsg:
		m.engine.OnTick(msg.At)
		return m, m.waitForEvent()
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.driver.Close()
		return m, tea.Quit
	case " ":
		if m.engine.Snapshot().Running {
			m.engine.Pause()
		} else {
			m.engine.Start()
		}
		return m, nil
	case "r":
		m.engine.Reset()
		return m, nil
	case "1":
		m.engine.SwitchMode(model.ModeFocus)
		return m, nil
	case "2":
		m.engine.SwitchMode(model.ModeShortBreak)
		return m, nil
	case "3":
		m.engine.SwitchMode(model.ModeLongBreak)
		return m, nil
	default:
		return m, nil
	}
}

// waitForEvent blocks on the ticker's event stream and re-arms itself
// after every delivery, so ticks arrive as serialized messages.
func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		return tickEventMsg(<-m.driver.Events())
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	st := m.engine.Snapshot()
	content := strings.Join([]string{
		m.renderTabs(st.Mode),
		"",
		m.renderClock(st),
		m.renderProgress(st),
		"",
		m.renderStatus(st),
	}, "\n")

	if m.width == 0 || m.height == 0 {
		return content + "\n" + m.renderFooter()
	}
	bodyHeight := m.height - 1
	body := lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, m.renderFooter())
	return body + "\n" + footerLine
}

func (m *Model) renderTabs(active model.Mode) string {
	modes := []model.Mode{model.ModeFocus, model.ModeShortBreak, model.ModeLongBreak}
	tabs := make([]string, 0, len(modes))
	for _, mode := range modes {
		style := inactiveTabStyle
		if mode == active {
			style = activeTabStyle
		}
		tabs = append(tabs, style.Render(mode.Label()))
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, tabs...)
}

func (m *Model) renderClock(st timer.State) string {
	clock := FormatClock(st.RemainingSeconds)
	style := clockStyle
	if !st.Running {
		style = pausedClockStyle
	}
	return lipgloss.PlaceHorizontal(progressWidth, lipgloss.Center, style.Render(clock))
}

func (m *Model) renderProgress(st timer.State) string {
	total := m.engine.Durations().For(st.Mode)
	percent := 0.0
	if total > 0 {
		percent = 1.0 - float64(st.RemainingSeconds)/float64(total)
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 1 {
		percent = 1
	}
	return m.progress.ViewAs(percent)
}

func (m *Model) renderStatus(st timer.State) string {
	state := "paused"
	if st.Running {
		state = "running"
	} else if !st.HasStarted {
		state = "ready"
	}
	status := fmt.Sprintf("%s · %d pomodoros", state, st.CompletedFocusCount)
	if m.taskName != "" {
		status += " · " + m.taskName
	}
	return statusStyle.Render(status)
}

func (m *Model) renderFooter() string {
	return footerStyle.Render("space start/pause  r reset  1/2/3 mode  q quit")
}

// FormatClock renders seconds as mm:ss, or h:mm:ss past an hour.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%02d:%02d", minutes, secs)
}
