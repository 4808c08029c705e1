package tui

import (
	"os"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// Render turns markdown into terminal output.
type Render func(markdown string) (string, error)

// NewRenderer returns a glamour markdown renderer with automatic light/dark
// styling. Without a terminal it returns markdown unchanged.
func NewRenderer(interactive bool) Render {
	if !interactive {
		return Plain
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return Plain
	}
	return r.Render
}

// Plain is the identity renderer.
func Plain(markdown string) (string, error) {
	return markdown, nil
}

// IsInteractive reports whether f is attached to a terminal.
func IsInteractive(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
