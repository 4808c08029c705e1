package dsl

import (
	"github.com/malcolmmathew-zz/bot-engine/pkg/domain"
	"github.com/malcolmmathew-zz/bot-engine/pkg/flow"
)

// Builder manages the flow construction.
type Builder struct {
	spec  flow.Spec
	nodes map[string]*NodeBuilder
	order []string
}

// New creates a new flow builder declaring the given collections.
func New(collections ...string) *Builder {
	return &Builder{
		spec: flow.Spec{
			Database: flow.DatabaseSpec{Collections: collections},
		},
		nodes: make(map[string]*NodeBuilder),
	}
}

// Entry names the main menu. Without it the node "default" is used.
func (b *Builder) Entry(id string) *Builder {
	b.spec.Entry = id
	return b
}

// Carousel adds a selection node, or returns the existing builder for id.
func (b *Builder) Carousel(id string) *NodeBuilder {
	return b.add(id, domain.NodeKindSelection)
}

// MessageList adds a prompt list node, or returns the existing builder for id.
func (b *Builder) MessageList(id string) *NodeBuilder {
	return b.add(id, domain.NodeKindPromptList)
}

func (b *Builder) add(id, kind string) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	nb := &NodeBuilder{id: id, node: flow.NodeSpec{Type: kind}}
	b.nodes[id] = nb
	b.order = append(b.order, id)
	return nb
}

// Spec returns the declarative description assembled so far.
func (b *Builder) Spec() *flow.Spec {
	spec := b.spec
	spec.Flow = make(map[string]flow.NodeSpec, len(b.nodes))
	for _, id := range b.order {
		spec.Flow[id] = b.nodes[id].node
	}
	return &spec
}

// Build validates the description and compiles it into a flow graph.
// Validation is the same one flow files go through.
func (b *Builder) Build() (*domain.FlowGraph, error) {
	return flow.Load(b.Spec())
}
