// Package ui renders deploy output for humans.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/alexisbeaulieu97/deployline/internal/domain/deploy"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#2563eb"))
	lineStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#475569"))
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#16a34a"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#dc2626"))
	mutedStyle   = lipgloss.NewStyle().Faint(true)
)

// Console is the deploy.UI handed to hooks. Writes are serialised because
// hooks of the same stage report concurrently.
type Console struct {
	mu     sync.Mutex
	out    io.Writer
	errOut io.Writer
	styled bool
}

// NewConsole writes lines to out and errors to errOut. Styling is enabled only
// when out is a terminal.
func NewConsole(out, errOut io.Writer) *Console {
	return &Console{out: out, errOut: errOut, styled: isTerminal(out)}
}

// NewPlainConsole never styles its output.
func NewPlainConsole(out, errOut io.Writer) *Console {
	return &Console{out: out, errOut: errOut}
}

// WriteLine implements deploy.UI.
func (c *Console) WriteLine(msg string) {
	c.write(c.out, "- "+msg, lineStyle)
}

// WriteError implements deploy.UI.
func (c *Console) WriteError(err error) {
	if err == nil {
		return
	}
	c.write(c.errOut, "✗ "+err.Error(), errorStyle)
}

// Title prints a heading.
func (c *Console) Title(msg string) {
	c.write(c.out, msg, titleStyle)
}

// Success prints a final success line.
func (c *Console) Success(msg string) {
	c.write(c.out, "✓ "+msg, successStyle)
}

// Muted prints secondary information.
func (c *Console) Muted(msg string) {
	c.write(c.out, msg, mutedStyle)
}

// Registrations prints one line per registered plugin with its stages.
func (c *Console) Registrations(entries map[string][]deploy.StageName, order []string) {
	for _, name := range order {
		stages := entries[name]
		names := make([]string, len(stages))
		for i, stage := range stages {
			names[i] = stage.String()
		}
		hooks := "no hooks"
		if len(names) > 0 {
			hooks = strings.Join(names, ", ")
		}
		c.write(c.out, fmt.Sprintf("  %s  %s", name, hooks), lineStyle)
	}
}

func (c *Console) write(w io.Writer, msg string, style lipgloss.Style) {
	if w == nil {
		return
	}
	if c.styled {
		msg = style.Render(msg)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(w, msg)
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

var _ deploy.UI = (*Console)(nil)
