package gen

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/roach88/tohu/internal/seed"
)

// Generator is a node in the generator DAG.
//
// The interface is sealed: only types in this package implement it. Use the
// constructors (NewInteger, NewApply, ...) or a Class to build generators.
type Generator interface {
	// Next produces the next value. Runtime data errors (lookup, attribute,
	// timestamp bounds) are returned unchanged.
	Next() (any, error)

	// Reset re-seeds this node and its clones. Calling Reset on a clone
	// has no effect; clones follow their parent.
	Reset(seed uint64)

	// Clone returns a tethered copy registered with this node.
	Clone() Generator

	// Spawn returns an independent copy, recording it in m. A nil m
	// starts a fresh mapping.
	Spawn(m *SpawnMapping) (Generator, error)

	ID() string
	Kind() string
	Parent() Generator
	Clones() []Generator

	// Inputs returns the original upstream generators, in registration order.
	Inputs() []Generator

	node() *base
	reseed(s *seed.Stream)
	fresh(inputs []Generator) Generator
	restoreFrom(src Generator)
}

var lastID atomic.Uint64

func newID() string {
	return fmt.Sprintf("%06X", lastID.Add(1))
}

// base carries the bookkeeping shared by every generator: identity, seed
// stream, and the parent/clone tether.
type base struct {
	self   Generator
	id     string
	kind   string
	seeds  *seed.Stream
	parent Generator
	clones []Generator
}

// init must be called once the concrete generator is fully configured. It
// leaves the generator in the state produced by Reset(0).
func (b *base) init(self Generator, kind string) {
	b.self = self
	b.id = newID()
	b.kind = kind
	b.seeds = seed.New()
	b.reset(0)
}

func (b *base) ID() string        { return b.id }
func (b *base) Kind() string      { return b.kind }
func (b *base) Parent() Generator { return b.parent }
func (b *base) node() *base       { return b }

func (b *base) Clones() []Generator {
	return append([]Generator(nil), b.clones...)
}

func (b *base) Reset(s uint64) {
	if b.parent != nil {
		slog.Debug("ignoring reset on clone", "id", b.id, "kind", b.kind, "parent", b.parent.ID())
		return
	}
	b.reset(s)
}

func (b *base) reset(s uint64) {
	b.seeds.Reset(s)
	b.self.reseed(b.seeds)
	for _, c := range b.clones {
		c.node().reset(s)
	}
}

func (b *base) Clone() Generator {
	c := b.self.fresh(b.self.Inputs())
	c.restoreFrom(b.self)
	b.adopt(c)
	return c
}

func (b *base) adopt(c Generator) {
	n := c.node()
	n.parent = b.self
	n.seeds = b.seeds.Copy()
	b.clones = append(b.clones, c)
}

func (b *base) Spawn(m *SpawnMapping) (Generator, error) {
	return spawnNode(b.self, m)
}

func (b *base) String() string {
	return fmt.Sprintf("<%s (id=%s)>", b.kind, b.id)
}

// leaf supplies the input-less half of the contract for primitives.
type leaf struct{}

func (leaf) Inputs() []Generator { return nil }

// SpawnMapping records original -> spawned generators during a spawn so that
// a generator reachable along several paths is spawned exactly once.
type SpawnMapping struct {
	spawned map[string]Generator
}

// NewSpawnMapping returns an empty mapping.
func NewSpawnMapping() *SpawnMapping {
	return &SpawnMapping{spawned: make(map[string]Generator)}
}

// Lookup returns the spawned copy of g, if any.
func (m *SpawnMapping) Lookup(g Generator) (Generator, bool) {
	s, ok := m.spawned[g.ID()]
	return s, ok
}

// Len returns the number of recorded generators.
func (m *SpawnMapping) Len() int { return len(m.spawned) }

func (m *SpawnMapping) set(orig, spawned Generator) {
	m.spawned[orig.ID()] = spawned
}

// Spawn returns an independent copy of g using a fresh mapping.
func Spawn(g Generator) (Generator, error) {
	return g.Spawn(NewSpawnMapping())
}

// spawnNode implements Spawn for every generator kind.
//
// A clone is re-created as a clone of its parent's spawned copy; the parent
// must already be in m. An independent node has its inputs spawned through
// m first, then is rebuilt over the spawned inputs and takes over the
// original's state.
func spawnNode(g Generator, m *SpawnMapping) (Generator, error) {
	if m == nil {
		m = NewSpawnMapping()
	}
	if s, ok := m.Lookup(g); ok {
		return s, nil
	}

	if p := g.Parent(); p != nil {
		mp, ok := m.Lookup(p)
		if !ok {
			return nil, &Error{
				Kind:        KindClone,
				Op:          "Spawn",
				Message:     fmt.Sprintf("parent %s of clone is not in the spawn mapping", p.ID()),
				GeneratorID: g.ID(),
			}
		}
		c := mp.Clone()
		c.restoreFrom(g)
		m.set(g, c)
		return c, nil
	}

	inputs := g.Inputs()
	spawned := make([]Generator, len(inputs))
	for i, in := range inputs {
		s, err := in.Spawn(m)
		if err != nil {
			return nil, err
		}
		spawned[i] = s
	}

	n := g.fresh(spawned)
	n.restoreFrom(g)
	n.node().seeds = g.node().seeds.Copy()
	m.set(g, n)
	return n, nil
}

// spawnWithDeps spawns g after its clone parent and inputs, so that clones
// anywhere in g's sub-DAG find their parents already mapped.
func spawnWithDeps(g Generator, m *SpawnMapping) (Generator, error) {
	if s, ok := m.Lookup(g); ok {
		return s, nil
	}
	for _, dep := range dependencies(g) {
		if _, err := spawnWithDeps(dep, m); err != nil {
			return nil, err
		}
	}
	return g.Spawn(m)
}

// dependencies returns the generators g cannot be reset or spawned without:
// its clone parent, then its inputs.
func dependencies(g Generator) []Generator {
	var deps []Generator
	if p := g.Parent(); p != nil {
		deps = append(deps, p)
	}
	return append(deps, g.Inputs()...)
}

// Must panics if err is non-nil and returns g otherwise. It is intended for
// generators built from literal, known-valid configuration.
func Must[G Generator](g G, err error) G {
	if err != nil {
		panic(err)
	}
	return g
}

// derived holds the inputs of a derived generator and the private clones it
// reads them through.
type derived struct {
	inputs       []Generator
	constituents []Generator
}

func newDerived(inputs []Generator) derived {
	d := derived{
		inputs:       append([]Generator(nil), inputs...),
		constituents: make([]Generator, len(inputs)),
	}
	for i, in := range inputs {
		d.constituents[i] = in.Clone()
	}
	return d
}

func (d *derived) Inputs() []Generator {
	return append([]Generator(nil), d.inputs...)
}

// advance pulls one value from every constituent in registration order.
func (d *derived) advance() ([]any, error) {
	vals := make([]any, len(d.constituents))
	for i, c := range d.constituents {
		v, err := c.Next()
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

func (d *derived) restoreConstituents(src *derived) {
	for i, c := range d.constituents {
		c.restoreFrom(src.constituents[i])
	}
}

func checkInputs(op string, inputs ...Generator) error {
	for i, in := range inputs {
		if in == nil {
			return configError(op, "input %d is nil", i)
		}
	}
	return nil
}
