// Package tui renders a live view of a collection run: one line per
// phase (each drive's collection, archive finalize, upload),
// a spinner while a phase is active, a checkmark once it completes,
// and a running byte count. Scaled down from the teacher's multi-
// screen recovery wizard to a single status view, since a collection
// run has nothing left to ask the operator once it starts.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
	activeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4")).Bold(true)
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true)
	byteStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
)

type phaseState int

const (
	phasePending phaseState = iota
	phaseActive
	phaseDone
	phaseFailed
)

type phase struct {
	label string
	state phaseState
	bytes int64
	err   error
}

// PhaseStartedMsg, PhaseProgressMsg, PhaseDoneMsg, and PhaseFailedMsg
// are sent from the collection goroutine through (*tea.Program).Send
// to drive the view; they carry the phase's index in the list handed
// to New.
type (
	PhaseStartedMsg  struct{ Index int }
	PhaseProgressMsg struct {
		Index int
		Bytes int64
	}
	PhaseDoneMsg   struct{ Index int }
	PhaseFailedMsg struct {
		Index int
		Err   error
	}
	QuitMsg struct{}
)

// Model is the bubbletea model for a collection run's progress view.
type Model struct {
	phases  []phase
	spinner spinner.Model
	done    bool
}

// New builds a Model with one pending phase per label, in order.
func New(labels []string) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = activeStyle

	phases := make([]phase, len(labels))
	for i, l := range labels {
		phases[i] = phase{label: l, state: phasePending}
	}
	return Model{phases: phases, spinner: s}
}

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case PhaseStartedMsg:
		m.phases[msg.Index].state = phaseActive
	case PhaseProgressMsg:
		m.phases[msg.Index].bytes = msg.Bytes
	case PhaseDoneMsg:
		m.phases[msg.Index].state = phaseDone
	case PhaseFailedMsg:
		m.phases[msg.Index].state = phaseFailed
		m.phases[msg.Index].err = msg.Err
	case QuitMsg:
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("squirrel collection"))
	b.WriteString("\n\n")

	for _, p := range m.phases {
		switch p.state {
		case phasePending:
			b.WriteString(pendingStyle.Render("  ○ " + p.label))
		case phaseActive:
			b.WriteString(fmt.Sprintf("  %s %s", m.spinner.View(), activeStyle.Render(p.label)))
			if p.bytes > 0 {
				b.WriteString(byteStyle.Render(fmt.Sprintf(" (%s)", humanize.Bytes(uint64(p.bytes)))))
			}
		case phaseDone:
			line := "  ✓ " + p.label
			if p.bytes > 0 {
				line += fmt.Sprintf(" (%s)", humanize.Bytes(uint64(p.bytes)))
			}
			b.WriteString(doneStyle.Render(line))
		case phaseFailed:
			b.WriteString(errorStyle.Render(fmt.Sprintf("  ✗ %s: %v", p.label, p.err)))
		}
		b.WriteString("\n")
	}

	if m.done {
		b.WriteString("\ncollection run finished\n")
	}
	return b.String()
}
