package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestModel_StreamedReply(t *testing.T) {
	m := NewModel("recall", nil)
	m = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
	if !m.Ready {
		t.Fatal("expected model to be ready after resize")
	}

	m = update(t, m, StatusMsg("thinking"))
	m = update(t, m, ChunkMsg("Hello "))
	m = update(t, m, ChunkMsg("there"))
	if m.Reply != "Hello there" {
		t.Errorf("expected partial reply, got %q", m.Reply)
	}
	if m.Status != "thinking" {
		t.Errorf("expected status thinking, got %q", m.Status)
	}

	m = update(t, m, EndReplyMsg{})
	if m.Reply != "" || len(m.Lines) != 1 || m.Lines[0] != "Hello there" {
		t.Errorf("expected reply moved to lines, got %q / %q", m.Reply, m.Lines)
	}
}

func TestModel_Submit(t *testing.T) {
	var submitted []string
	m := NewModel("recall", func(line string) tea.Cmd {
		submitted = append(submitted, line)
		return func() tea.Msg { return DoneMsg{Output: "ok"} }
	})
	m = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})

	m.Input.SetValue("  remember this  ")
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if len(submitted) != 1 || submitted[0] != "remember this" {
		t.Fatalf("expected trimmed line to be submitted, got %q", submitted)
	}
	if !m.Busy || m.Input.Value() != "" {
		t.Error("expected busy model with cleared input")
	}

	// Further input is ignored until the turn is done.
	m.Input.SetValue("again")
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if len(submitted) != 1 {
		t.Error("expected submit to be blocked while busy")
	}

	m = update(t, m, DoneMsg{Err: errors.New("boom")})
	if m.Busy {
		t.Error("expected model to be idle after DoneMsg")
	}
	if last := m.Lines[len(m.Lines)-1]; !strings.Contains(last, "boom") {
		t.Errorf("expected error line, got %q", last)
	}
}

func TestModel_Quit(t *testing.T) {
	m := NewModel("recall", nil)
	m.Input.SetValue("/quit")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if !next.(Model).Quitting || cmd == nil {
		t.Error("expected /quit to stop the program")
	}
}
