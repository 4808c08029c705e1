package flow

import (
	"fmt"
	"sort"

	"github.com/malcolmmathew-zz/bot-engine/pkg/domain"
)

// DefaultEntry is the node used as the main menu when the description names none.
const DefaultEntry = "default"

// Load validates a spec and builds the immutable flow graph.
// All problems are collected in a single pass and returned as *AggregateError.
func Load(spec *Spec) (*domain.FlowGraph, error) {
	if spec == nil {
		return nil, &AggregateError{Errors: []error{&ValidationError{Field: "flow", Reason: "spec is empty"}}}
	}

	v := &validator{
		spec:        spec,
		collections: make(map[string]bool, len(spec.Database.Collections)),
		payloads:    make(map[string]string),
		keys:        make(map[string]string),
	}
	for _, c := range spec.Database.Collections {
		if c == "" {
			v.fail("", "database.collections", "collection name is empty")
			continue
		}
		v.collections[c] = true
	}
	if len(spec.Flow) == 0 {
		v.fail("", "flow", "no nodes declared")
	}

	ids := make([]string, 0, len(spec.Flow))
	for id := range spec.Flow {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	nodes := make([]*domain.Node, 0, len(ids))
	for _, id := range ids {
		if n := v.node(id, spec.Flow[id]); n != nil {
			nodes = append(nodes, n)
		}
	}

	entry := spec.Entry
	if entry != "" {
		if _, ok := spec.Flow[entry]; !ok {
			v.fail("", "entry", fmt.Sprintf("entry node %q is not declared", entry))
		}
	} else if _, ok := spec.Flow[DefaultEntry]; ok {
		entry = DefaultEntry
	}

	if len(v.errs) > 0 {
		return nil, &AggregateError{Errors: v.errs}
	}
	return domain.NewFlowGraph(entry, spec.Database.Collections, nodes), nil
}

type validator struct {
	spec        *Spec
	collections map[string]bool
	payloads    map[string]string // payload -> node id that declared it
	keys        map[string]string // pending data key -> storage path that claimed it
	errs        []error
}

func (v *validator) fail(node, field, reason string) {
	v.errs = append(v.errs, &ValidationError{Node: node, Field: field, Reason: reason})
}

func (v *validator) known(id string) bool {
	_, ok := v.spec.Flow[id]
	return ok
}

func (v *validator) node(id string, ns NodeSpec) *domain.Node {
	if id == "" {
		v.fail(id, "", "node id is empty")
		return nil
	}
	if domain.IsReservedNodeID(id) {
		v.fail(id, "", "node id collides with a reserved key")
	}

	switch ns.Type {
	case domain.NodeKindSelection:
		return v.selection(id, ns)
	case domain.NodeKindPromptList:
		return v.promptList(id, ns)
	case "":
		v.fail(id, "type", "missing node type")
	default:
		v.fail(id, "type", fmt.Sprintf("unrecognized node type %q", ns.Type))
	}
	return nil
}

func (v *validator) selection(id string, ns NodeSpec) *domain.Node {
	options := append(append([]OptionSpec(nil), ns.Options...), ns.Buttons...)
	if len(options) == 0 {
		v.fail(id, "options", "carousel has no options")
	}

	n := &domain.Node{ID: id, Kind: domain.NodeKindSelection}
	for i, o := range options {
		field := fmt.Sprintf("options[%d]", i)
		if o.Name == "" {
			v.fail(id, field+".name", "option name is empty")
		}
		switch {
		case o.Target == "":
			v.fail(id, field+".target", "option target is empty")
		case !v.known(o.Target):
			v.fail(id, field+".target", fmt.Sprintf("target %q is not a declared node", o.Target))
		}

		opt := domain.Option{Name: o.Name, Target: o.Target}
		if o.Storage != "" {
			opt.Storage = v.storage(id, field+".storage", o.Storage)
		}

		if o.Name != "" {
			payload := opt.Payload()
			if other, dup := v.payloads[payload]; dup {
				v.fail(id, field+".name", fmt.Sprintf("selection payload %q collides with an option of node %q", payload, other))
			} else {
				v.payloads[payload] = id
			}
		}
		n.Options = append(n.Options, opt)
	}
	return n
}

func (v *validator) promptList(id string, ns NodeSpec) *domain.Node {
	if len(ns.Messages) == 0 {
		v.fail(id, "messages", "message list has no messages")
	}

	// target may be a declared node or a terminal literal content key.
	n := &domain.Node{ID: id, Kind: domain.NodeKindPromptList, Next: ns.Target}
	for i, ms := range ns.Messages {
		field := fmt.Sprintf("messages[%d]", i)
		if ms.Message == "" {
			v.fail(id, field+".message", "message text is empty")
		}
		it, err := ParseInputType(ms.ExpectedInput)
		if err != nil {
			v.fail(id, field+".expected_input", err.Error())
		}
		p := domain.Prompt{Message: ms.Message, ExpectedInput: it}
		if ms.Storage != "" {
			p.Storage = v.storage(id, field+".storage", ms.Storage)
		}
		n.Prompts = append(n.Prompts, p)
	}
	return n
}

func (v *validator) storage(node, field, raw string) domain.StoragePath {
	p, err := domain.ParseStoragePath(raw)
	if err != nil {
		v.fail(node, field, err.Error())
		return domain.StoragePath{}
	}
	if len(v.collections) > 0 && !v.collections[p.Collection] {
		v.fail(node, field, fmt.Sprintf("collection %q is not declared in database.collections", p.Collection))
	}
	if other, ok := v.keys[p.Key()]; ok && other != p.String() {
		v.fail(node, field, fmt.Sprintf("storage %q collides with %q (both are kept as %q)", p.String(), other, p.Key()))
	} else {
		v.keys[p.Key()] = p.String()
	}
	return p
}
