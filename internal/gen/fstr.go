package gen

import (
	"fmt"
	"strings"

	"github.com/roach88/tohu/internal/record"
	"github.com/roach88/tohu/internal/seed"
)

// fstrPart is either literal text or a placeholder {name[.path][:spec]}.
type fstrPart struct {
	literal string
	field   bool
	input   int
	path    string
	spec    string
}

// Fstr yields strings built from a template whose placeholders refer to
// other generators.
type Fstr struct {
	base
	derived
	template string
	parts    []fstrPart
}

// NewFstr compiles template against refs. Placeholders take the forms
// "{name}", "{name:spec}" and "{name.field}"; "{{" and "}}"
// are literal braces. Every placeholder name must be present in refs.
// Inputs are registered in order of first appearance in the template.
//
// Format specs are checked when a value is formatted, since their meaning
// depends on the value: a time.Time takes a strftime format.
func NewFstr(template string, refs map[string]Generator) (*Fstr, error) {
	parts, names, err := parseTemplate(template)
	if err != nil {
		return nil, err
	}
	inputs := make([]Generator, len(names))
	for i, name := range names {
		g, ok := refs[name]
		if !ok || g == nil {
			return nil, configError("Fstr", "unresolved placeholder {%s} in %q", name, template)
		}
		inputs[i] = g
	}
	return newFstr(template, parts, inputs), nil
}

// TemplateNames returns the generator names a template refers to, in order
// of first appearance.
func TemplateNames(template string) ([]string, error) {
	_, names, err := parseTemplate(template)
	return names, err
}

func newFstr(template string, parts []fstrPart, inputs []Generator) *Fstr {
	g := &Fstr{derived: newDerived(inputs), template: template, parts: parts}
	g.init(g, "Fstr")
	return g
}

func parseTemplate(template string) ([]fstrPart, []string, error) {
	var (
		parts []fstrPart
		names []string
		index = map[string]int{}
		lit   strings.Builder
	)
	flush := func() {
		if lit.Len() > 0 {
			parts = append(parts, fstrPart{literal: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(template); i++ {
		c := template[i]
		switch {
		case c == '{' && i+1 < len(template) && template[i+1] == '{':
			lit.WriteByte('{')
			i++
		case c == '}' && i+1 < len(template) && template[i+1] == '}':
			lit.WriteByte('}')
			i++
		case c == '}':
			return nil, nil, configError("Fstr", "single '}' at offset %d in %q", i, template)
		case c == '{':
			end := strings.IndexByte(template[i+1:], '}')
			if end < 0 {
				return nil, nil, configError("Fstr", "unclosed '{' at offset %d in %q", i, template)
			}
			body := template[i+1 : i+1+end]
			if strings.ContainsAny(body, "{!") || strings.Contains(body, "[") {
				return nil, nil, configError("Fstr", "unsupported placeholder {%s}", body)
			}
			ref, spec, _ := strings.Cut(body, ":")
			name, path, _ := strings.Cut(ref, ".")
			if name == "" {
				return nil, nil, configError("Fstr", "placeholder at offset %d must be named", i)
			}
			idx, ok := index[name]
			if !ok {
				idx = len(names)
				index[name] = idx
				names = append(names, name)
			}
			flush()
			parts = append(parts, fstrPart{field: true, input: idx, path: path, spec: spec})
			i += end + 1
		default:
			lit.WriteByte(c)
		}
	}
	flush()
	return parts, names, nil
}

func (g *Fstr) Next() (any, error) {
	vals, err := g.advance()
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	for _, p := range g.parts {
		if !p.field {
			b.WriteString(p.literal)
			continue
		}
		v := vals[p.input]
		if p.path != "" {
			if v, err = record.Resolve(v, p.path); err != nil {
				return nil, &Error{Kind: KindAttribute, Op: "Fstr.Next", Message: fmt.Sprintf("no attribute %q", p.path), GeneratorID: g.id, Err: err}
			}
		}
		s, err := formatValue(v, p.spec)
		if err != nil {
			return nil, &Error{Kind: KindConfig, Op: "Fstr.Next", Message: "cannot format value", GeneratorID: g.id, Err: err}
		}
		b.WriteString(s)
	}
	return b.String(), nil
}

func (g *Fstr) reseed(*seed.Stream) {}

func (g *Fstr) fresh(inputs []Generator) Generator {
	return newFstr(g.template, g.parts, inputs)
}

func (g *Fstr) restoreFrom(src Generator) {
	g.restoreConstituents(&src.(*Fstr).derived)
}
