package flow

import "github.com/malcolmmathew-zz/bot-engine/pkg/domain"

// Unreachable returns the ids of nodes that no path from the entry node can
// visit, in graph node order (sorted by id when built by Load). Unreachable
// nodes are legal; they usually
// point at a typo in an option target.
//
// Edges are option targets, prompt list targets and the implicit return to
// the entry node taken by a prompt list without a target.
func Unreachable(g *domain.FlowGraph) []string {
	if g == nil || g.Entry == "" {
		return nil
	}

	visited := make(map[string]bool)
	queue := []string{g.Entry}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true

		n, ok := g.Node(id)
		if !ok {
			continue // literal target
		}
		for _, target := range successors(g, n) {
			if !visited[target] {
				queue = append(queue, target)
			}
		}
	}

	var out []string
	for _, n := range g.Nodes() {
		if !visited[n.ID] {
			out = append(out, n.ID)
		}
	}
	return out
}

func successors(g *domain.FlowGraph, n *domain.Node) []string {
	if n.IsSelection() {
		targets := make([]string, 0, len(n.Options))
		for _, opt := range n.Options {
			targets = append(targets, opt.Target)
		}
		return targets
	}
	if n.Next == "" {
		return []string{g.Entry}
	}
	return []string{n.Next}
}
