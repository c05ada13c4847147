package tui

import (
	"errors"
	"strings"
	"testing"
)

func TestModelTransitions(t *testing.T) {
	m := New([]string{"snapshot", "collect C:", "archive", "upload"})

	updated, _ := m.Update(PhaseStartedMsg{Index: 0})
	m = updated.(Model)
	if m.phases[0].state != phaseActive {
		t.Fatalf("phase 0 state = %v, want active", m.phases[0].state)
	}

	updated, _ = m.Update(PhaseProgressMsg{Index: 0, Bytes: 4096})
	m = updated.(Model)
	if m.phases[0].bytes != 4096 {
		t.Fatalf("phase 0 bytes = %d, want 4096", m.phases[0].bytes)
	}

	updated, _ = m.Update(PhaseDoneMsg{Index: 0})
	m = updated.(Model)
	if m.phases[0].state != phaseDone {
		t.Fatalf("phase 0 state = %v, want done", m.phases[0].state)
	}

	updated, _ = m.Update(PhaseFailedMsg{Index: 1, Err: errors.New("boom")})
	m = updated.(Model)
	if m.phases[1].state != phaseFailed || m.phases[1].err == nil {
		t.Fatalf("phase 1 = %+v, want failed with error", m.phases[1])
	}

	view := m.View()
	if !strings.Contains(view, "collect C:") {
		t.Fatalf("View() missing phase label: %q", view)
	}
	if !strings.Contains(view, "boom") {
		t.Fatalf("View() missing failure message: %q", view)
	}
}

func TestModelQuit(t *testing.T) {
	m := New([]string{"solo phase"})
	updated, cmd := m.Update(QuitMsg{})
	m = updated.(Model)
	if !m.done {
		t.Fatal("expected done = true after QuitMsg")
	}
	if cmd == nil {
		t.Fatal("expected a tea.Quit command")
	}
}
