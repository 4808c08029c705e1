package graph

import (
	"fmt"
	"slices"
	"strings"

	"github.com/malcolmmathew-zz/bot-engine/pkg/domain"
)

// GraphOverlay contains session data to visualize on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// GenerateMermaid produces a Mermaid flowchart from a flow graph.
// It applies semantic styling:
// - Entry: ((Circle))
// - Selection: {{Hexagon}}
// - Prompt list: [/Parallelogram/]
// - Terminal content key: >Flag]
// Option edges carry the selection payload; a prompt list without a next
// node gets a dotted edge back to the entry.
func GenerateMermaid(g *domain.FlowGraph, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	literals := make(map[string]bool)
	edge := func(from, arrow, to string) {
		if _, ok := g.Node(to); !ok {
			literals[to] = true
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", sanitizeMermaidID(from), arrow, sanitizeMermaidID(to))
	}

	for _, node := range g.Nodes() {
		safeID := sanitizeMermaidID(node.ID)

		opener, closer := "[", "]"
		label := node.ID
		switch {
		case node.ID == g.Entry:
			opener, closer = "((", "))"
		case node.IsSelection():
			opener, closer = "{{", "}}"
		case node.IsPromptList():
			opener, closer = "[/", "/]"
		}
		if node.IsPromptList() {
			label = fmt.Sprintf("%s <br/> %d prompt(s)", node.ID, len(node.Prompts))
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, label, closer)

		for _, opt := range node.Options {
			text := opt.Payload()
			if !opt.Storage.IsZero() {
				text += " : " + opt.Storage.String()
			}
			edge(node.ID, fmt.Sprintf("-- \"%s\" -->", escapeLabel(text)), opt.Target)
		}

		if node.IsPromptList() {
			switch {
			case node.Next != "":
				edge(node.ID, "-->", node.Next)
			case g.Entry != "" && g.Entry != node.ID:
				edge(node.ID, "-.->", g.Entry)
			}
		}
	}

	for _, id := range sortedKeys(literals) {
		fmt.Fprintf(&sb, "    %s>\"%s\"]\n", sanitizeMermaidID(id), escapeLabel(id))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if !visitedSet[safeID] && safeID != "" {
				visitedSet[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}

		if overlay.CurrentNode != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode))
		}
	}

	return sb.String()
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
