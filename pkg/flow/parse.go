package flow

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/malcolmmathew-zz/bot-engine/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Format is the serialization of a flow description.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format by file extension, defaulting to YAML.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// LoadFile reads, parses and validates a flow description file.
func LoadFile(path string) (*domain.FlowGraph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read flow spec: %w", err)
	}
	spec, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, err
	}
	return Load(spec)
}

// Parse decodes a flow description without validating it.
func Parse(data []byte, format Format) (*Spec, error) {
	raw := make(map[string]any)
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse flow spec json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse flow spec yaml: %w", err)
		}
	}
	return Decode(raw)
}

// Decode converts a generic document (as produced by JSON or YAML decoders)
// into a Spec. The legacy "database_configuration" key is accepted.
func Decode(raw map[string]any) (*Spec, error) {
	if _, ok := raw["database"]; !ok {
		if legacy, ok := raw["database_configuration"]; ok {
			raw["database"] = legacy
		}
	}
	delete(raw, "database_configuration")

	var spec Spec
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(bareMessageHook),
		WeaklyTypedInput: true,
		Result:           &spec,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode flow spec: %w", err)
	}
	return &spec, nil
}

// bareMessageHook lets a message list entry be a plain string.
func bareMessageHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() == reflect.String && to == reflect.TypeOf(MessageSpec{}) {
		return MessageSpec{Message: data.(string)}, nil
	}
	return data, nil
}

// ToSpec converts a graph back into its declarative description.
func ToSpec(g *domain.FlowGraph) *Spec {
	spec := &Spec{
		Database: DatabaseSpec{Collections: append([]string(nil), g.Collections...)},
		Entry:    g.Entry,
		Flow:     make(map[string]NodeSpec),
	}
	for _, n := range g.Nodes() {
		ns := NodeSpec{Type: n.Kind, Target: n.Next}
		for _, o := range n.Options {
			ns.Options = append(ns.Options, OptionSpec{Name: o.Name, Target: o.Target, Storage: o.Storage.String()})
		}
		for _, p := range n.Prompts {
			ns.Messages = append(ns.Messages, MessageSpec{
				Message:       p.Message,
				ExpectedInput: string(p.ExpectedInput),
				Storage:       p.Storage.String(),
			})
		}
		spec.Flow[n.ID] = ns
	}
	return spec
}

// Marshal serializes a graph in the requested format.
func Marshal(g *domain.FlowGraph, format Format) ([]byte, error) {
	spec := ToSpec(g)
	if format == FormatJSON {
		return json.MarshalIndent(spec, "", "  ")
	}
	return yaml.Marshal(spec)
}
