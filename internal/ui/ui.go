package ui

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// UI receives progress from a chat turn as it happens.
type UI interface {
	UpdateStatus(status string)
	// Chunk delivers a piece of the assistant reply.
	Chunk(delta string)
	// EndReply marks the end of the current reply.
	EndReply()
	Log(msg string)
}

type SilentUI struct{}

func (s SilentUI) UpdateStatus(status string) {}
func (s SilentUI) Chunk(delta string)         {}
func (s SilentUI) EndReply()                  {}
func (s SilentUI) Log(msg string)             {}

var (
	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Italic(true)

	logStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))
)

// ConsoleUI writes replies to a terminal as they stream in.
type ConsoleUI struct {
	mu      sync.Mutex
	out     io.Writer
	verbose bool
}

// NewConsoleUI shows status and log lines only when verbose is set.
func NewConsoleUI(out io.Writer, verbose bool) *ConsoleUI {
	return &ConsoleUI{out: out, verbose: verbose}
}

func (c *ConsoleUI) UpdateStatus(status string) {
	if !c.verbose {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, statusStyle.Render(status))
}

func (c *ConsoleUI) Chunk(delta string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprint(c.out, delta)
}

func (c *ConsoleUI) EndReply() {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out)
}

func (c *ConsoleUI) Log(msg string) {
	if !c.verbose {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, logStyle.Render(msg))
}
