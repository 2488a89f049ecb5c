package gen

import (
	"fmt"
	"log/slog"

	"github.com/roach88/tohu/internal/seed"
)

const anonPrefix = "ANON_"

type nsEntry struct {
	name string
	gen  Generator
	anon bool
}

// Namespace is an ordered name -> generator map that owns a set of
// generators and resets them together.
//
// Entries keep insertion order, which is the order Reset hands out
// sub-seeds. Names lists only explicitly named entries; generators added
// without a name are stored under ANON_<id>.
type Namespace struct {
	seeds   *seed.Stream
	entries []*nsEntry
	names   []string
	byName  map[string]*nsEntry
	byID    map[string]*nsEntry
}

// NewNamespace returns an empty namespace.
func NewNamespace() *Namespace {
	return &Namespace{
		seeds:  seed.New(),
		byName: make(map[string]*nsEntry),
		byID:   make(map[string]*nsEntry),
	}
}

// Add registers g under name, or anonymously if name is empty.
//
// Registering a different generator under an existing name, or renaming a
// generator that already has an explicit name, fails with a namespace error.
// A generator first added anonymously takes the explicit name given later.
func (ns *Namespace) Add(g Generator, name string) error {
	if g == nil {
		return newError(KindNamespace, "Namespace.Add", "generator is nil")
	}
	e, present := ns.byID[g.ID()]

	if name == "" {
		if !present {
			ns.insert(&nsEntry{name: anonPrefix + g.ID(), gen: g, anon: true})
		}
		return nil
	}

	if other, ok := ns.byName[name]; ok {
		if other.gen.ID() == g.ID() {
			return nil
		}
		return &Error{Kind: KindNamespace, Op: "Namespace.Add", Message: fmt.Sprintf("name %q is already taken by generator %s", name, other.gen.ID()), GeneratorID: g.ID()}
	}
	if present {
		if !e.anon {
			return &Error{Kind: KindNamespace, Op: "Namespace.Add", Message: fmt.Sprintf("generator is already registered as %q, cannot add it as %q", e.name, name), GeneratorID: g.ID()}
		}
		delete(ns.byName, e.name)
		e.name, e.anon = name, false
		ns.byName[name] = e
		ns.names = append(ns.names, name)
		return nil
	}
	ns.insert(&nsEntry{name: name, gen: g})
	return nil
}

func (ns *Namespace) insert(e *nsEntry) {
	ns.entries = append(ns.entries, e)
	ns.byName[e.name] = e
	ns.byID[e.gen.ID()] = e
	if !e.anon {
		ns.names = append(ns.names, e.name)
	}
}

// AddWithDependencies adds g like Add, then anonymously adds everything g
// depends on (its clone parent and inputs), recursively. Every hidden input
// of a field is then reset by the namespace.
func (ns *Namespace) AddWithDependencies(g Generator, name string) error {
	if err := ns.Add(g, name); err != nil {
		return err
	}
	for _, dep := range dependencies(g) {
		if _, ok := ns.byID[dep.ID()]; ok {
			continue
		}
		if err := ns.AddWithDependencies(dep, ""); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the generator registered under name, including ANON_ names.
func (ns *Namespace) Get(name string) (Generator, bool) {
	e, ok := ns.byName[name]
	if !ok {
		return nil, false
	}
	return e.gen, true
}

// Contains reports whether g is registered.
func (ns *Namespace) Contains(g Generator) bool {
	_, ok := ns.byID[g.ID()]
	return ok
}

// NameOf returns the name g is registered under.
func (ns *Namespace) NameOf(g Generator) (string, bool) {
	e, ok := ns.byID[g.ID()]
	if !ok {
		return "", false
	}
	return e.name, true
}

// Names returns the explicitly named entries in naming order.
func (ns *Namespace) Names() []string {
	return append([]string(nil), ns.names...)
}

// All returns every registered generator in insertion order.
func (ns *Namespace) All() []Generator {
	out := make([]Generator, len(ns.entries))
	for i, e := range ns.entries {
		out[i] = e.gen
	}
	return out
}

// Len returns the number of entries, named and anonymous.
func (ns *Namespace) Len() int { return len(ns.entries) }

// Reset re-seeds the namespace's stream and resets every independent
// generator with the next sub-seed, in insertion order. Clones are skipped;
// their parents' resets reach them.
func (ns *Namespace) Reset(s uint64) {
	ns.seeds.Reset(s)
	for _, e := range ns.entries {
		if e.gen.Parent() != nil {
			continue
		}
		e.gen.Reset(uint64(ns.seeds.Next()))
	}
	slog.Debug("namespace reset", "seed", s, "entries", len(ns.entries))
}

// Spawn returns an independent namespace with the same names and entry
// order. All entries are spawned through one mapping, so clones and shared
// inputs stay shared.
func (ns *Namespace) Spawn() (*Namespace, error) {
	return ns.SpawnWith(NewSpawnMapping())
}

// SpawnWith is Spawn with a caller-supplied mapping.
func (ns *Namespace) SpawnWith(m *SpawnMapping) (*Namespace, error) {
	out := NewNamespace()
	out.seeds = ns.seeds.Copy()
	for _, e := range ns.entries {
		s, err := spawnWithDeps(e.gen, m)
		if err != nil {
			return nil, err
		}
		name := e.name
		if e.anon {
			name = anonPrefix + s.ID()
		}
		out.insert(&nsEntry{name: name, gen: s, anon: e.anon})
	}
	// Keep naming order for generators that were renamed after insertion.
	out.names = append([]string(nil), ns.names...)
	return out, nil
}

// restoreFrom copies the state of every entry from src, entry by entry.
func (ns *Namespace) restoreFrom(src *Namespace) {
	for i, e := range ns.entries {
		e.gen.restoreFrom(src.entries[i].gen)
	}
}
