// Package content resolves content keys emitted by the interpreter into a
// provider-neutral description of what to show the user.
package content

import (
	"os"
	"strconv"
	"strings"

	"github.com/malcolmmathew-zz/bot-engine/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Kind tells a deliverer how to render a Content.
type Kind string

const (
	KindPrompt  Kind = "prompt"
	KindMenu    Kind = "menu"
	KindLiteral Kind = "literal"
)

// Choice is one selectable option of a menu.
type Choice struct {
	Label   string `json:"label"`
	Payload string `json:"payload"`
}

// Content is a resolved content key.
type Content struct {
	Key     string   `json:"key"`
	Kind    Kind     `json:"kind"`
	Node    string   `json:"node,omitempty"`
	Text    string   `json:"text,omitempty"`
	Choices []Choice `json:"choices,omitempty"`
	// Expects is the input type a prompt asks for, if any.
	Expects domain.InputType `json:"expects,omitempty"`
}

// Resolver maps content keys to Content for one flow graph.
type Resolver struct {
	graph *domain.FlowGraph
	texts map[string]string
}

// NewResolver creates a resolver. texts overrides the text of any key;
// literal keys without an override render as the key itself.
func NewResolver(graph *domain.FlowGraph, texts map[string]string) *Resolver {
	return &Resolver{graph: graph, texts: texts}
}

// LoadTexts reads a flat YAML mapping of content key to text.
func LoadTexts(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	texts := make(map[string]string)
	if err := yaml.Unmarshal(data, &texts); err != nil {
		return nil, err
	}
	return texts, nil
}

// Resolve never fails: unknown keys become literals.
func (r *Resolver) Resolve(key string) Content {
	c := Content{Key: key, Kind: KindLiteral, Text: key}

	if node, ok := r.graph.Node(key); ok && node.IsSelection() {
		c.Kind = KindMenu
		c.Node = node.ID
		c.Text = ""
		for _, opt := range node.Options {
			c.Choices = append(c.Choices, Choice{Label: opt.Name, Payload: opt.Payload()})
		}
	} else if node, idx, ok := r.prompt(key); ok {
		p := node.Prompts[idx]
		c.Kind = KindPrompt
		c.Node = node.ID
		c.Text = p.Message
		c.Expects = p.ExpectedInput
	}

	if text, ok := r.texts[key]; ok {
		c.Text = text
	}
	return c
}

// ResolveAll resolves keys in order.
func (r *Resolver) ResolveAll(keys []string) []Content {
	out := make([]Content, 0, len(keys))
	for _, k := range keys {
		out = append(out, r.Resolve(k))
	}
	return out
}

// prompt parses nodeId_index keys.
func (r *Resolver) prompt(key string) (*domain.Node, int, bool) {
	i := strings.LastIndexByte(key, '_')
	if i <= 0 {
		return nil, 0, false
	}
	idx, err := strconv.Atoi(key[i+1:])
	if err != nil || idx < 0 {
		return nil, 0, false
	}
	node, ok := r.graph.Node(key[:i])
	if !ok || !node.IsPromptList() || idx >= len(node.Prompts) {
		return nil, 0, false
	}
	return node, idx, true
}
