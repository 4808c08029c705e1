package flow

import (
	"fmt"
	"strings"

	"github.com/malcolmmathew-zz/bot-engine/pkg/domain"
)

// Spec is the declarative flow description as written by authors.
type Spec struct {
	Database DatabaseSpec        `json:"database" yaml:"database" mapstructure:"database"`
	Entry    string              `json:"entry,omitempty" yaml:"entry,omitempty" mapstructure:"entry"`
	Flow     map[string]NodeSpec `json:"flow" yaml:"flow" mapstructure:"flow"`
}

// DatabaseSpec declares the domain collections records are committed to.
type DatabaseSpec struct {
	Collections []string `json:"collections" yaml:"collections" mapstructure:"collections"`
}

// NodeSpec is one node of the description. Type selects the variant.
type NodeSpec struct {
	Type     string        `json:"type" yaml:"type" mapstructure:"type"`
	Options  []OptionSpec  `json:"options,omitempty" yaml:"options,omitempty" mapstructure:"options"`
	Buttons  []OptionSpec  `json:"-" yaml:"-" mapstructure:"buttons"` // legacy alias of Options
	Messages []MessageSpec `json:"messages,omitempty" yaml:"messages,omitempty" mapstructure:"messages"`
	Target   string        `json:"target,omitempty" yaml:"target,omitempty" mapstructure:"target"`
}

// OptionSpec is one carousel choice.
type OptionSpec struct {
	Name    string `json:"name" yaml:"name" mapstructure:"name"`
	Target  string `json:"target" yaml:"target" mapstructure:"target"`
	Storage string `json:"storage,omitempty" yaml:"storage,omitempty" mapstructure:"storage"`
}

// MessageSpec is one prompt of a message list.
type MessageSpec struct {
	Message       string `json:"message" yaml:"message" mapstructure:"message"`
	ExpectedInput string `json:"expected_input,omitempty" yaml:"expected_input,omitempty" mapstructure:"expected_input"`
	Storage       string `json:"storage,omitempty" yaml:"storage,omitempty" mapstructure:"storage"`
}

// ParseInputType maps an expected_input tag (and its common aliases) to an InputType.
func ParseInputType(raw string) (domain.InputType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return domain.InputAny, nil
	case "int", "integer":
		return domain.InputInteger, nil
	case "float", "double", "number":
		return domain.InputFloat, nil
	case "str", "string", "text":
		return domain.InputString, nil
	default:
		return "", fmt.Errorf("unknown expected_input %q (want integer, float or string)", raw)
	}
}
