package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the botengine banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{` _           _                    _            `, "#34d399"},
		{`| |__   ___ | |_ ___ _ __   __ _(_)_ __   ___ `, "#2dd4bf"},
		{`| '_ \ / _ \| __/ _ \ '_ \ / _' | | '_ \ / _ \`, "#22d3ee"},
		{`| |_) | (_) | ||  __/ | | | (_| | | | | |  __/`, "#38bdf8"},
		{`|_.__/ \___/ \__\___|_| |_|\__, |_|_| |_|\___|`, "#60a5fa"},
		{`                            |___/              `, "#818cf8"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}

// Accent styles s with the prompt accent color.
func Accent(s string) string {
	p := termenv.ColorProfile()
	return termenv.String(s).Foreground(p.Color("#38bdf8")).Bold().String()
}

// Faint styles s as secondary output.
func Faint(s string) string {
	return termenv.String(s).Faint().String()
}
