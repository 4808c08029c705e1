package dsl

import "github.com/malcolmmathew-zz/bot-engine/pkg/flow"

// NodeBuilder provides a fluent API for configuring a node.
// Store and Expect apply to the most recently added option or prompt.
type NodeBuilder struct {
	id   string
	node flow.NodeSpec
}

// Option adds a carousel choice leading to target.
func (n *NodeBuilder) Option(name, target string) *NodeBuilder {
	n.node.Options = append(n.node.Options, flow.OptionSpec{Name: name, Target: target})
	return n
}

// Ask appends a prompt to a message list.
func (n *NodeBuilder) Ask(message string) *NodeBuilder {
	n.node.Messages = append(n.node.Messages, flow.MessageSpec{Message: message})
	return n
}

// Expect sets the expected input type of the last prompt ("integer", "float" or "string").
func (n *NodeBuilder) Expect(inputType string) *NodeBuilder {
	if last := len(n.node.Messages) - 1; last >= 0 {
		n.node.Messages[last].ExpectedInput = inputType
	}
	return n
}

// Store sets the "collection.attribute" storage path of the last option or prompt.
func (n *NodeBuilder) Store(path string) *NodeBuilder {
	switch {
	case len(n.node.Options) > 0:
		n.node.Options[len(n.node.Options)-1].Storage = path
	case len(n.node.Messages) > 0:
		n.node.Messages[len(n.node.Messages)-1].Storage = path
	}
	return n
}

// Then sets the node a message list moves to once its last prompt is answered.
func (n *NodeBuilder) Then(target string) *NodeBuilder {
	n.node.Target = target
	return n
}

// ID returns the node id.
func (n *NodeBuilder) ID() string { return n.id }

// Build returns the underlying node description.
func (n *NodeBuilder) Build() flow.NodeSpec {
	return n.node
}
