package blueprint

import (
	"fmt"
	"strings"
)

// Blueprint is a declarative custom generator definition.
type Blueprint struct {
	// Name is the class name, e.g. "PersonGenerator".
	Name string `yaml:"name" json:"name"`

	// ItemsName overrides the record type name.
	ItemsName string `yaml:"items_name,omitempty" json:"items_name,omitempty"`

	// FieldOrder fixes the record fields and their order.
	FieldOrder []string `yaml:"field_order,omitempty" json:"field_order,omitempty"`

	// Seed and Num are defaults for generation.
	Seed *uint64 `yaml:"seed,omitempty" json:"seed,omitempty"`
	Num  int     `yaml:"num,omitempty" json:"num,omitempty"`

	// Helpers are named generators that are not record fields.
	Helpers []Def `yaml:"helpers,omitempty" json:"helpers,omitempty"`

	Fields []Def `yaml:"fields" json:"fields"`

	// Source is the text the blueprint was parsed from.
	Source string `yaml:"-" json:"-"`
}

// Def describes one generator.
//
// A Def with only Ref refers to a named field or helper. Used as an input it
// is that generator itself, so inputs stay shared; used as a field it is a
// clone of it.
type Def struct {
	Name     string         `yaml:"name,omitempty" json:"name,omitempty"`
	Type     string         `yaml:"type,omitempty" json:"type,omitempty"`
	Ref      string         `yaml:"ref,omitempty" json:"ref,omitempty"`
	Params   map[string]any `yaml:"params,omitempty" json:"params,omitempty"`
	Inputs   []Def          `yaml:"inputs,omitempty" json:"inputs,omitempty"`
	Kwargs   []Def          `yaml:"kwargs,omitempty" json:"kwargs,omitempty"`
	Func     string         `yaml:"func,omitempty" json:"func,omitempty"`
	Template string         `yaml:"template,omitempty" json:"template,omitempty"`
	Values   []any          `yaml:"values,omitempty" json:"values,omitempty"`
}

// Validation error codes (E200-E299)
const (
	ErrParse           = "E200" // blueprint could not be read
	ErrMissingName     = "E201" // blueprint, field or helper without a name
	ErrUnknownType     = "E202" // unknown generator type
	ErrDuplicateName   = "E203" // name used twice
	ErrUnresolvedRef   = "E204" // reference to an unknown name
	ErrReferenceCycle  = "E205" // definitions refer to each other in a cycle
	ErrInvalidParam    = "E206" // missing, unknown or ill-typed parameter
	ErrUnknownFunc     = "E207" // apply with an unknown function
	ErrInvalidOrder    = "E208" // field_order names an unknown field
	ErrGeneratorConfig = "E209" // the generator rejected its configuration
	ErrNoFields        = "E210" // blueprint without fields
	ErrInvalidInputs   = "E211" // wrong number or kind of inputs
)

// ValidationError is one problem found in a blueprint.
type ValidationError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Path, e.Message)
}

// ValidationErrors is the error returned by Compile. It holds every problem
// found, in discovery order.
type ValidationErrors []ValidationError

func (es ValidationErrors) Error() string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "\n")
}

// HasCode reports whether any error carries code.
func (es ValidationErrors) HasCode(code string) bool {
	for _, e := range es {
		if e.Code == code {
			return true
		}
	}
	return false
}
