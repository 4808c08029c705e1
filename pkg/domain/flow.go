package domain

import (
	"fmt"
	"strings"
)

// NodeKind constants define the two node variants of a flow.
const (
	// NodeKindSelection presents a carousel of options and waits for a selection.
	NodeKindSelection = "carousel"
	// NodeKindPromptList asks an ordered sequence of prompts, one per text response.
	NodeKindPromptList = "message_list"
)

// InputType is the coercion applied to a text response before it is stored.
type InputType string

const (
	InputAny     InputType = ""
	InputInteger InputType = "integer"
	InputFloat   InputType = "float"
	InputString  InputType = "string"
)

// Reserved identifiers that a node may not use. They are the field names of
// the legacy per-user state document.
var ReservedNodeIDs = []string{"flow_instantiated", "data", "current_type", "user_id"}

// IsReservedNodeID reports whether id collides with a reserved key.
func IsReservedNodeID(id string) bool {
	for _, r := range ReservedNodeIDs {
		if id == r {
			return true
		}
	}
	return false
}

// StoragePath addresses a domain collection attribute ("collection.attribute").
type StoragePath struct {
	Collection string `json:"collection" yaml:"collection"`
	Attribute  string `json:"attribute" yaml:"attribute"`
}

// ParseStoragePath splits "collection.attribute" into its two components.
func ParseStoragePath(raw string) (StoragePath, error) {
	parts := strings.Split(raw, ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return StoragePath{}, fmt.Errorf("storage %q must have the form collection.attribute", raw)
	}
	return StoragePath{Collection: parts[0], Attribute: parts[1]}, nil
}

// IsZero reports whether no storage is configured.
func (p StoragePath) IsZero() bool {
	return p.Collection == "" && p.Attribute == ""
}

// String returns the dotted form.
func (p StoragePath) String() string {
	if p.IsZero() {
		return ""
	}
	return p.Collection + "." + p.Attribute
}

// Key returns the pending data key ("collection_attribute").
func (p StoragePath) Key() string {
	return p.Collection + "_" + p.Attribute
}

// Option is a choice within a selection node.
type Option struct {
	Name    string      `json:"name"`
	Target  string      `json:"target"`
	Storage StoragePath `json:"storage,omitempty"`
}

// Payload is the selection payload the client sends back for this option.
func (o Option) Payload() string {
	return NormalizePayload(o.Name)
}

// NormalizePayload upper-cases and trims a selection payload.
func NormalizePayload(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Prompt is one message of a prompt list. Its position is significant.
type Prompt struct {
	Message       string      `json:"message"`
	ExpectedInput InputType   `json:"expected_input,omitempty"`
	Storage       StoragePath `json:"storage,omitempty"`
}

// Node represents a point in the flow graph.
// Kind selects which of Options (selection) or Prompts/Next (prompt list) apply.
type Node struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`

	// Selection variant
	Options []Option `json:"options,omitempty"`

	// Prompt list variant
	Prompts []Prompt `json:"prompts,omitempty"`
	Next    string   `json:"next,omitempty"`
}

// IsSelection reports whether the node is a carousel.
func (n *Node) IsSelection() bool { return n.Kind == NodeKindSelection }

// IsPromptList reports whether the node is a message list.
func (n *Node) IsPromptList() bool { return n.Kind == NodeKindPromptList }

// PayloadRef locates the option a selection payload belongs to.
type PayloadRef struct {
	NodeID string
	Index  int
}

// FlowGraph is the validated, immutable flow description.
// Build it with the flow package; the zero value is an empty graph.
type FlowGraph struct {
	Entry       string
	Collections []string

	nodes    map[string]*Node
	order    []string
	payloads map[string]PayloadRef
	storage  map[string]StoragePath // pending data key -> declared path
}

// NewFlowGraph assembles a graph from already validated nodes.
// Nodes keep the order given; payload and storage lookups are indexed once here.
func NewFlowGraph(entry string, collections []string, nodes []*Node) *FlowGraph {
	g := &FlowGraph{
		Entry:       entry,
		Collections: append([]string(nil), collections...),
		nodes:       make(map[string]*Node, len(nodes)),
		order:       make([]string, 0, len(nodes)),
		payloads:    make(map[string]PayloadRef),
		storage:     make(map[string]StoragePath),
	}
	for _, n := range nodes {
		g.nodes[n.ID] = n
		g.order = append(g.order, n.ID)
		for _, p := range n.Prompts {
			g.indexStorage(p.Storage)
		}
		for i, opt := range n.Options {
			g.indexStorage(opt.Storage)
			if _, dup := g.payloads[opt.Payload()]; dup {
				continue // first wins; validation rejects collisions
			}
			g.payloads[opt.Payload()] = PayloadRef{NodeID: n.ID, Index: i}
		}
	}
	return g
}

func (g *FlowGraph) indexStorage(p StoragePath) {
	if p.IsZero() {
		return
	}
	if _, dup := g.storage[p.Key()]; !dup {
		g.storage[p.Key()] = p // first wins; validation rejects ambiguous keys
	}
}

// StoragePathFor returns the declared path behind a pending data key.
func (g *FlowGraph) StoragePathFor(key string) (StoragePath, bool) {
	p, ok := g.storage[key]
	return p, ok
}

// Node returns the node with the given id.
func (g *FlowGraph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all nodes in the order given to NewFlowGraph.
// flow.Load passes them sorted by id.
func (g *FlowGraph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}

// PromptLists returns the ids of every prompt list node.
func (g *FlowGraph) PromptLists() []string {
	var ids []string
	for _, id := range g.order {
		if g.nodes[id].IsPromptList() {
			ids = append(ids, id)
		}
	}
	return ids
}

// LookupPayload finds the option matching a selection payload.
func (g *FlowGraph) LookupPayload(payload string) (*Node, Option, bool) {
	ref, ok := g.payloads[NormalizePayload(payload)]
	if !ok {
		return nil, Option{}, false
	}
	n := g.nodes[ref.NodeID]
	return n, n.Options[ref.Index], true
}

// PromptKey returns the content key of the prompt at index ("nodeId_index").
func PromptKey(nodeID string, index int) string {
	return fmt.Sprintf("%s_%d", nodeID, index)
}
