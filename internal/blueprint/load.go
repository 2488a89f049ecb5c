package blueprint

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// Load reads a blueprint file. Files ending in .cue are read as CUE,
// everything else as YAML.
func Load(path string) (*Blueprint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read blueprint file: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".cue") {
		return ParseCUE(data, path)
	}
	return Parse(data)
}

// Parse decodes a YAML blueprint. Unknown keys are rejected.
func Parse(data []byte) (*Blueprint, error) {
	var bp Blueprint
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&bp); err != nil {
		return nil, ValidationErrors{{Code: ErrParse, Message: fmt.Sprintf("failed to parse YAML: %v", err)}}
	}
	bp.Source = string(data)
	return &bp, nil
}

// ParseCUE decodes a CUE blueprint. The value is unified with the
// #Blueprint schema, so unknown keys and ill-typed values are rejected
// before decoding.
func ParseCUE(data []byte, filename string) (*Blueprint, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("blueprint schema: %w", err)
	}

	value := ctx.CompileBytes(data, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, ValidationErrors{{Code: ErrParse, Message: fmt.Sprintf("failed to compile CUE: %v", err)}}
	}
	value = schema.LookupPath(cue.ParsePath("#Blueprint")).Unify(value)
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, ValidationErrors{{Code: ErrParse, Message: fmt.Sprintf("CUE value does not match blueprint schema: %v", err)}}
	}

	var bp Blueprint
	if err := value.Decode(&bp); err != nil {
		return nil, ValidationErrors{{Code: ErrParse, Message: fmt.Sprintf("failed to decode CUE: %v", err)}}
	}
	bp.Source = string(data)
	return &bp, nil
}
