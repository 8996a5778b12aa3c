package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TUI forwards chat progress into a running bubbletea program.
type TUI struct {
	program *tea.Program
}

func NewTUI(p *tea.Program) *TUI {
	return &TUI{program: p}
}

func (t *TUI) UpdateStatus(status string) {
	t.program.Send(StatusMsg(status))
}

func (t *TUI) Chunk(delta string) {
	t.program.Send(ChunkMsg(delta))
}

func (t *TUI) EndReply() {
	t.program.Send(EndReplyMsg{})
}

func (t *TUI) Log(msg string) {
	t.program.Send(LogMsg(msg))
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))

	userStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4"))

	logStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000"))
)

type (
	LogMsg      string
	StatusMsg   string
	ChunkMsg    string
	EndReplyMsg struct{}
)

// DoneMsg reports that a submitted line has been handled.
type DoneMsg struct {
	Output string
	Err    error
}

// SubmitFunc handles one line typed by the user. The returned command runs
// off the UI goroutine and must end with a DoneMsg.
type SubmitFunc func(line string) tea.Cmd

type Model struct {
	Title    string
	Status   string
	Lines    []string
	Reply    string
	Busy     bool
	Input    textinput.Model
	Viewport viewport.Model
	Quitting bool
	Ready    bool
	Width    int
	Height   int

	submit SubmitFunc
}

func NewModel(title string, submit SubmitFunc) Model {
	in := textinput.New()
	in.Placeholder = "Message, or /help"
	in.Prompt = "> "
	in.CharLimit = 0
	in.Focus()

	return Model{
		Title:  title,
		Status: "ready",
		Input:  in,
		submit: submit,
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.Quitting = true
			return m, tea.Quit
		case tea.KeyEnter:
			line := strings.TrimSpace(m.Input.Value())
			if line == "" || m.Busy {
				return m, nil
			}
			if line == "/quit" || line == "/exit" {
				m.Quitting = true
				return m, tea.Quit
			}
			m.Input.SetValue("")
			m.appendLine(userStyle.Render("you: ") + line)
			if m.submit != nil {
				m.Busy = true
				cmds = append(cmds, m.submit(line))
			}
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		if !m.Ready {
			m.Viewport = viewport.New(msg.Width, msg.Height-4)
			m.Ready = true
		} else {
			m.Viewport.Width = msg.Width
			m.Viewport.Height = msg.Height - 4
		}
		m.Input.Width = msg.Width - 4
		m.refresh()

	case ChunkMsg:
		m.Reply += string(msg)
		m.refresh()

	case EndReplyMsg:
		if m.Reply != "" {
			m.appendLine(m.Reply)
			m.Reply = ""
		}

	case LogMsg:
		m.appendLine(logStyle.Render(string(msg)))

	case StatusMsg:
		m.Status = string(msg)

	case DoneMsg:
		m.Busy = false
		if msg.Err != nil {
			m.appendLine(errorStyle.Render("error: " + msg.Err.Error()))
		} else if msg.Output != "" {
			m.appendLine(msg.Output)
		}
		m.Status = "ready"
	}

	var cmd tea.Cmd
	m.Input, cmd = m.Input.Update(msg)
	cmds = append(cmds, cmd)
	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *Model) appendLine(s string) {
	m.Lines = append(m.Lines, s)
	m.refresh()
}

func (m *Model) refresh() {
	content := strings.Join(m.Lines, "\n")
	if m.Reply != "" {
		content += "\n" + m.Reply
	}
	m.Viewport.SetContent(content)
	m.Viewport.GotoBottom()
}

func (m Model) View() string {
	if !m.Ready {
		return "\n  Initializing..."
	}

	header := titleStyle.Render(" " + m.Title + " ")
	status := infoStyle.Render(fmt.Sprintf(" %s ", m.Status))

	view := fmt.Sprintf("%s%s\n%s\n%s", header, status, m.Viewport.View(), m.Input.View())
	if m.Quitting {
		return view + "\n  Bye.\n"
	}
	return view
}
