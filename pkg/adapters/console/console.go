// Package console delivers content to a terminal, rendering it as markdown.
package console

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/malcolmmathew-zz/bot-engine/internal/presentation/tui"
	"github.com/malcolmmathew-zz/bot-engine/pkg/content"
	"github.com/malcolmmathew-zz/bot-engine/pkg/domain"
)

// Deliverer writes resolved content to w.
type Deliverer struct {
	mu       sync.Mutex
	w        io.Writer
	resolver *content.Resolver
	render   tui.Render
}

// New creates a console deliverer. A nil render prints plain markdown.
func New(w io.Writer, resolver *content.Resolver, render tui.Render) *Deliverer {
	if render == nil {
		render = tui.Plain
	}
	return &Deliverer{w: w, resolver: resolver, render: render}
}

// Deliver renders every key in order.
func (d *Deliverer) Deliver(ctx context.Context, userID string, keys []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, c := range d.resolver.ResolveAll(keys) {
		out, err := d.render(Markdown(c))
		if err != nil {
			return fmt.Errorf("failed to render %s: %w", c.Key, err)
		}
		if _, err := io.WriteString(d.w, strings.TrimRight(out, "\n")+"\n"); err != nil {
			return err
		}
	}
	return nil
}

// Markdown formats content for a terminal.
func Markdown(c content.Content) string {
	var b strings.Builder
	switch c.Kind {
	case content.KindMenu:
		if c.Text != "" {
			fmt.Fprintf(&b, "%s\n\n", c.Text)
		}
		for _, ch := range c.Choices {
			fmt.Fprintf(&b, "- `/select %s`  %s\n", ch.Payload, ch.Label)
		}
	case content.KindPrompt:
		fmt.Fprintf(&b, "**%s**", c.Text)
		if hint := inputHint(c.Expects); hint != "" {
			fmt.Fprintf(&b, " _(%s)_", hint)
		}
		b.WriteString("\n")
	default:
		fmt.Fprintf(&b, "%s\n", c.Text)
	}
	return b.String()
}

func inputHint(t domain.InputType) string {
	switch t {
	case domain.InputInteger:
		return "whole number"
	case domain.InputFloat:
		return "number"
	}
	return ""
}
