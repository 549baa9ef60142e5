// Package tui renders the emulator front panel: a keyboard-driven stand-in
// for the radio's button, dial, and knobs.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hweir/bakelite/internal/app/player"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("215"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	activeStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("114"))
	staticStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	panelStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2)
)

const (
	dialMin  = 0.0
	dialMax  = 100.0
	dialStep = 0.5
	volStep  = 5
)

// LibraryMsg delivers a freshly reloaded library to the running UI. The
// metadata watcher sends it through Program.Send.
type LibraryMsg struct {
	Library player.Library
}

type tickMsg time.Time

// Model is the emulator front panel.
type Model struct {
	ctrl *player.Controller
	tick time.Duration

	button   bool // Latched button state (space toggles)
	dial     float64
	width    int
	quitting bool
}

// NewModel creates the front panel over a started controller.
func NewModel(ctrl *player.Controller, tick time.Duration) Model {
	return Model{ctrl: ctrl, tick: tick, dial: dialMin}
}

func (m Model) Init() tea.Cmd {
	return m.scheduleTick()
}

func (m Model) scheduleTick() tea.Cmd {
	return tea.Tick(m.tick, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tickMsg:
		m.ctrl.Tick(time.Time(msg))
		return m, m.scheduleTick()

	case LibraryMsg:
		m.ctrl.SetLibrary(msg.Library, time.Now())
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	now := time.Now()
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case " ":
		// The front button is latched: one press toggles down, the next
		// toggles up, so holds are possible from a keyboard.
		if m.button {
			m.ctrl.ButtonUp(now)
		} else {
			m.ctrl.ButtonDown(now)
		}
		m.button = !m.button

	case "left":
		m.dial = max(dialMin, m.dial-dialStep)
		m.ctrl.DialChanged(m.dial, now)

	case "right":
		m.dial = min(dialMax, m.dial+dialStep)
		m.ctrl.DialChanged(m.dial, now)

	case "up":
		m.ctrl.SetVolume(m.ctrl.Volume() + volStep)

	case "down":
		m.ctrl.SetVolume(m.ctrl.Volume() - volStep)

	case "p":
		st := m.ctrl.Status()
		m.button = false
		m.ctrl.SetPower(!st.Power, now)
	}
	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	st := m.ctrl.Status()

	var b strings.Builder
	b.WriteString(titleStyle.Render("BAKELITE"))
	b.WriteString("\n\n")

	if !st.Power {
		b.WriteString(staticStyle.Render("(powered off)"))
	} else {
		b.WriteString(m.renderStatus(st))
	}

	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("%s %s   %s %s",
		labelStyle.Render("volume"), valueStyle.Render(fmt.Sprintf("%3d", st.Volume)),
		labelStyle.Render("dial"), valueStyle.Render(fmt.Sprintf("%5.1f", m.dial))))
	if m.button {
		b.WriteString("   " + activeStyle.Render("[button down]"))
	}
	if st.PersistErr != nil {
		b.WriteString("\n" + errorStyle.Render("state not saved: "+st.PersistErr.Error()))
	}

	panel := panelStyle.Render(b.String())
	help := helpStyle.Render(
		"space button · ←/→ dial · ↑/↓ volume · p power · q quit")
	return lipgloss.JoinVertical(lipgloss.Left, panel, help)
}

func (m Model) renderStatus(st player.Status) string {
	var b strings.Builder
	b.WriteString(labelStyle.Render("mode "))
	b.WriteString(activeStyle.Render(st.Mode.String()))
	b.WriteString("\n")

	if st.Mode == player.ModeRadio {
		if st.Static {
			b.WriteString(staticStyle.Render("~ static ~"))
			return b.String()
		}
		b.WriteString(labelStyle.Render("station "))
		b.WriteString(valueStyle.Render(st.StationName))
		b.WriteString("\n")
		b.WriteString(valueStyle.Render(trackLine(st)))
		b.WriteString(labelStyle.Render(fmt.Sprintf("  +%s", st.Offset.Round(time.Second))))
		return b.String()
	}

	b.WriteString(labelStyle.Render("from "))
	b.WriteString(valueStyle.Render(st.CollectionName))
	b.WriteString("\n")
	if st.Playing {
		b.WriteString(valueStyle.Render(trackLine(st)))
	} else {
		b.WriteString(staticStyle.Render("(idle)"))
	}
	return b.String()
}

func trackLine(st player.Status) string {
	line := fmt.Sprintf("%d/%d", st.TrackIndex, st.TrackCount)
	if st.Track.Title != "" {
		line += "  " + st.Track.Title
	}
	if st.Track.Artist != "" {
		line += " · " + st.Track.Artist
	}
	return line
}
