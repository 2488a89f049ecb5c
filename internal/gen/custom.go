package gen

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/roach88/tohu/internal/batch"
	"github.com/roach88/tohu/internal/record"
	"github.com/roach88/tohu/internal/seed"
)

// Field pairs a field name with the generator template that produces it.
type Field struct {
	Name string
	Gen  Generator
}

// F builds a Field.
func F(name string, g Generator) Field { return Field{Name: name, Gen: g} }

// Class declares a kind of custom generator: its name, its class-level field
// templates, and optionally the record name and an explicit field order.
//
// Instantiating a Class with New spawns every template, so instances never
// share state with the templates or with each other.
type Class struct {
	name       string
	itemsName  string
	fieldOrder []string
	fields     []Field

	mu    sync.Mutex
	types map[string]*record.Type
}

// ClassOption configures NewClass.
type ClassOption func(*Class)

// WithItemsName sets the record type name explicitly.
func WithItemsName(name string) ClassOption {
	return func(c *Class) { c.itemsName = name }
}

// WithFieldOrder fixes the record fields and their order. Every name must
// be a registered field.
func WithFieldOrder(names ...string) ClassOption {
	return func(c *Class) { c.fieldOrder = append([]string(nil), names...) }
}

// NewClass declares a custom generator class.
func NewClass(name string, opts ...ClassOption) *Class {
	c := &Class{name: name, types: make(map[string]*record.Type)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the class name.
func (c *Class) Name() string { return c.name }

// Field declares a class-level field template. Declaring a name twice
// replaces the earlier template in place.
func (c *Class) Field(name string, g Generator) *Class {
	c.fields = mergeFields(c.fields, []Field{{Name: name, Gen: g}})
	return c
}

// Fields returns the class-level field templates.
func (c *Class) Fields() []Field { return append([]Field(nil), c.fields...) }

// ItemsName returns the record type name: the explicit items name, or the
// class name without a trailing "Generator".
func (c *Class) ItemsName() string {
	if c.itemsName != "" {
		return c.itemsName
	}
	return strings.TrimSuffix(c.name, "Generator")
}

// mergeFields overlays over onto base: matching names are replaced in
// place, new names are appended.
func mergeFields(base, over []Field) []Field {
	out := append([]Field(nil), base...)
	for _, f := range over {
		replaced := false
		for i := range out {
			if out[i].Name == f.Name {
				out[i] = f
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, f)
		}
	}
	return out
}

// recordType returns the cached record type for a field list.
func (c *Class) recordType(fields []string) (*record.Type, error) {
	key := strings.Join(fields, "\x00")
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.types[key]; ok {
		return t, nil
	}
	name := c.ItemsName()
	if name == "" {
		return nil, configError("Class", "cannot derive a record name for class %q", c.name)
	}
	t, err := record.NewType(name, fields)
	if err != nil {
		return nil, &Error{Kind: KindConfig, Op: "Class", Message: "invalid record type", Err: err}
	}
	c.types[key] = t
	return t, nil
}

// New instantiates the class. Instance fields override class fields of the
// same name and keep their position; new names follow the class fields.
func (c *Class) New(instance ...Field) (*Custom, error) {
	fields := mergeFields(c.fields, instance)

	ns := NewNamespace()
	m := NewSpawnMapping()
	for _, f := range fields {
		if f.Name == "" {
			return nil, configError("Class", "class %q: field with empty name", c.name)
		}
		if f.Gen == nil {
			return nil, configError("Class", "class %q: field %q has no generator", c.name, f.Name)
		}
		s, err := spawnWithDeps(f.Gen, m)
		if err != nil {
			return nil, err
		}
		if err := ns.AddWithDependencies(s, f.Name); err != nil {
			return nil, err
		}
	}

	order := ns.Names()
	if c.fieldOrder != nil {
		named := make(map[string]bool, len(order))
		for _, name := range order {
			named[name] = true
		}
		for _, name := range c.fieldOrder {
			if !named[name] {
				return nil, configError("Class", "class %q: field order names unknown field %q", c.name, name)
			}
		}
		order = c.fieldOrder
	}

	cu, err := newCustom(c, instance, ns, order)
	if err != nil {
		return nil, err
	}
	slog.Debug("custom generator created", "class", c.name, "id", cu.id, "fields", order, "entries", ns.Len())
	return cu, nil
}

// Custom produces records whose fields come from a namespace of generators
// it owns.
type Custom struct {
	base
	leaf
	class    *Class
	instance []Field
	ns       *Namespace
	fields   []string
	gens     []Generator
	typ      *record.Type
}

func newCustom(c *Class, instance []Field, ns *Namespace, fields []string) (*Custom, error) {
	typ, err := c.recordType(fields)
	if err != nil {
		return nil, err
	}
	gens := make([]Generator, len(fields))
	for i, name := range fields {
		gens[i], _ = ns.Get(name)
	}
	cu := &Custom{class: c, instance: instance, ns: ns, fields: fields, gens: gens, typ: typ}
	cu.init(cu, "Custom")
	return cu, nil
}

// Class returns the class this generator was instantiated from.
func (g *Custom) Class() *Class { return g.class }

// Type returns the record type of the generated items.
func (g *Custom) Type() *record.Type { return g.typ }

// FieldNames returns the record fields in order.
func (g *Custom) FieldNames() []string { return append([]string(nil), g.fields...) }

// Namespace returns the generators this custom generator owns.
func (g *Custom) Namespace() *Namespace { return g.ns }

// Field returns the generator behind a record field.
func (g *Custom) Field(name string) (Generator, bool) {
	for i, f := range g.fields {
		if f == name {
			return g.gens[i], true
		}
	}
	return nil, false
}

func (g *Custom) Next() (any, error) {
	vals := make([]any, len(g.gens))
	for i, fg := range g.gens {
		v, err := fg.Next()
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", g.fields[i], err)
		}
		vals[i] = v
	}
	return g.typ.New(vals...)
}

// Generate collects num records, resetting first when WithSeed is given.
func (g *Custom) Generate(num int, opts ...GenerateOption) (*batch.Items, error) {
	return Generate(g, num, opts...)
}

func (g *Custom) reseed(s *seed.Stream) {
	g.ns.Reset(s.Master())
}

// fresh rebuilds the generator over a spawned copy of its namespace, which
// already carries the current state.
func (g *Custom) fresh([]Generator) Generator {
	ns, err := g.ns.Spawn()
	if err != nil {
		// Every clone in ns was added together with its parent, so the
		// spawn mapping always has the parent first.
		panic(fmt.Sprintf("tohu: spawning namespace of %s: %v", g.id, err))
	}
	cu, err := newCustom(g.class, g.instance, ns, g.fields)
	if err != nil {
		panic(fmt.Sprintf("tohu: rebuilding %s: %v", g.id, err))
	}
	cu.ns.restoreFrom(g.ns)
	return cu
}

func (g *Custom) restoreFrom(src Generator) {
	g.ns.restoreFrom(src.(*Custom).ns)
}

func (g *Custom) String() string {
	return fmt.Sprintf("<%s (id=%s, fields=%v)>", g.class.name, g.id, g.fields)
}
