package gen

import (
	"fmt"
	"reflect"

	"github.com/roach88/tohu/internal/record"
	"github.com/roach88/tohu/internal/seed"
)

// Func computes a derived value from the current values of an Apply's
// positional and keyword inputs.
type Func func(args []any, kwargs map[string]any) (any, error)

// Kwarg is a named input of ApplyKw.
type Kwarg struct {
	Name string
	Gen  Generator
}

// KW builds a Kwarg.
func KW(name string, g Generator) Kwarg { return Kwarg{Name: name, Gen: g} }

// Apply yields fn applied to one value from each input.
//
// Inputs are registered positional first, then keyword in the given order.
type Apply struct {
	base
	derived
	fn      Func
	nargs   int
	kwnames []string
}

// NewApply returns an Apply over positional inputs only.
func NewApply(fn Func, args ...Generator) (*Apply, error) {
	return NewApplyKw(fn, args)
}

// NewApplyKw returns an Apply over positional and keyword inputs.
func NewApplyKw(fn Func, args []Generator, kwargs ...Kwarg) (*Apply, error) {
	if fn == nil {
		return nil, configError("Apply", "function must not be nil")
	}
	inputs := append([]Generator(nil), args...)
	names := make([]string, len(kwargs))
	seen := make(map[string]bool, len(kwargs))
	for i, kw := range kwargs {
		if kw.Name == "" {
			return nil, configError("Apply", "keyword input %d has no name", i)
		}
		if seen[kw.Name] {
			return nil, configError("Apply", "duplicate keyword input %q", kw.Name)
		}
		seen[kw.Name] = true
		names[i] = kw.Name
		inputs = append(inputs, kw.Gen)
	}
	if err := checkInputs("Apply", inputs...); err != nil {
		return nil, err
	}
	return newApply(fn, len(args), names, inputs), nil
}

func newApply(fn Func, nargs int, kwnames []string, inputs []Generator) *Apply {
	g := &Apply{derived: newDerived(inputs), fn: fn, nargs: nargs, kwnames: kwnames}
	g.init(g, "Apply")
	return g
}

func (g *Apply) Next() (any, error) {
	vals, err := g.advance()
	if err != nil {
		return nil, err
	}
	var kwargs map[string]any
	if len(g.kwnames) > 0 {
		kwargs = make(map[string]any, len(g.kwnames))
		for i, name := range g.kwnames {
			kwargs[name] = vals[g.nargs+i]
		}
	}
	return g.fn(vals[:g.nargs], kwargs)
}

func (g *Apply) reseed(*seed.Stream) {}

func (g *Apply) fresh(inputs []Generator) Generator {
	return newApply(g.fn, g.nargs, g.kwnames, inputs)
}

func (g *Apply) restoreFrom(src Generator) {
	g.restoreConstituents(&src.(*Apply).derived)
}

// Lookup yields mapping[key] for one value of each input.
type Lookup struct {
	base
	derived
}

// NewLookup returns a generator that looks key's values up in mapping's
// values. Maps, slices (integer keys) and records are accepted as mappings.
func NewLookup(key, mapping Generator) (*Lookup, error) {
	if err := checkInputs("Lookup", key, mapping); err != nil {
		return nil, err
	}
	return newLookup([]Generator{key, mapping}), nil
}

func newLookup(inputs []Generator) *Lookup {
	g := &Lookup{derived: newDerived(inputs)}
	g.init(g, "Lookup")
	return g
}

func (g *Lookup) Next() (any, error) {
	vals, err := g.advance()
	if err != nil {
		return nil, err
	}
	v, ok := lookupValue(vals[1], vals[0])
	if !ok {
		return nil, &Error{
			Kind:        KindLookup,
			Op:          "Lookup.Next",
			Message:     fmt.Sprintf("key %v not found in %T", vals[0], vals[1]),
			GeneratorID: g.id,
		}
	}
	return v, nil
}

func (g *Lookup) reseed(*seed.Stream) {}

func (g *Lookup) fresh(inputs []Generator) Generator { return newLookup(inputs) }

func (g *Lookup) restoreFrom(src Generator) {
	g.restoreConstituents(&src.(*Lookup).derived)
}

func lookupValue(mapping, key any) (any, bool) {
	switch m := mapping.(type) {
	case map[string]any:
		s, ok := key.(string)
		if !ok {
			return nil, false
		}
		v, ok := m[s]
		return v, ok
	case *record.Record:
		s, ok := key.(string)
		if !ok {
			return nil, false
		}
		return m.Get(s)
	}

	rv := reflect.ValueOf(mapping)
	switch rv.Kind() {
	case reflect.Map:
		kv, ok := convertKey(key, rv.Type().Key())
		if !ok {
			return nil, false
		}
		out := rv.MapIndex(kv)
		if !out.IsValid() {
			return nil, false
		}
		return out.Interface(), true
	case reflect.Slice, reflect.Array:
		i, ok := toInt(key)
		if !ok || i < 0 || i >= int64(rv.Len()) {
			return nil, false
		}
		return rv.Index(int(i)).Interface(), true
	}
	return nil, false
}

// convertKey adapts key to a map's key type. Numeric keys convert between
// integer widths; other kinds must match exactly.
func convertKey(key any, kt reflect.Type) (reflect.Value, bool) {
	if key == nil {
		return reflect.Value{}, false
	}
	kv := reflect.ValueOf(key)
	if kv.Type().AssignableTo(kt) {
		if kt.Kind() == reflect.Interface {
			out := reflect.New(kt).Elem()
			out.Set(kv)
			return out, true
		}
		return kv, true
	}
	if isInteger(kv.Kind()) && isInteger(kt.Kind()) {
		return kv.Convert(kt), true
	}
	if kv.Kind() == reflect.String && kt.Kind() == reflect.String {
		return kv.Convert(kt), true
	}
	return reflect.Value{}, false
}

func isInteger(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func toInt(v any) (int64, bool) {
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint()), true
	}
	return 0, false
}

// GetAttribute yields a named field of each record its input produces.
type GetAttribute struct {
	base
	derived
	name string
}

// NewGetAttribute returns a generator yielding field name (a dotted path is
// allowed) of the records produced by g.
func NewGetAttribute(g Generator, name string) (*GetAttribute, error) {
	if err := checkInputs("GetAttribute", g); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, configError("GetAttribute", "attribute name must not be empty")
	}
	return newGetAttribute([]Generator{g}, name), nil
}

func newGetAttribute(inputs []Generator, name string) *GetAttribute {
	g := &GetAttribute{derived: newDerived(inputs), name: name}
	g.init(g, "GetAttribute")
	return g
}

func (g *GetAttribute) Next() (any, error) {
	vals, err := g.advance()
	if err != nil {
		return nil, err
	}
	v, err := record.Resolve(vals[0], g.name)
	if err != nil {
		return nil, &Error{Kind: KindAttribute, Op: "GetAttribute.Next", Message: fmt.Sprintf("no attribute %q", g.name), GeneratorID: g.id, Err: err}
	}
	return v, nil
}

func (g *GetAttribute) reseed(*seed.Stream) {}

func (g *GetAttribute) fresh(inputs []Generator) Generator {
	return newGetAttribute(inputs, g.name)
}

func (g *GetAttribute) restoreFrom(src Generator) {
	g.restoreConstituents(&src.(*GetAttribute).derived)
}
