package gen

import (
	"math"

	"github.com/roach88/tohu/internal/seed"
)

// Constant yields the same value forever.
type Constant struct {
	base
	leaf
	value any
}

// NewConstant returns a generator that always yields v.
func NewConstant(v any) *Constant {
	g := &Constant{value: v}
	g.init(g, "Constant")
	return g
}

// Value returns the constant value.
func (g *Constant) Value() any { return g.value }

func (g *Constant) Next() (any, error) { return g.value, nil }

func (g *Constant) reseed(*seed.Stream) {}

func (g *Constant) fresh([]Generator) Generator { return NewConstant(g.value) }

func (g *Constant) restoreFrom(Generator) {}

// Boolean yields true with probability p.
type Boolean struct {
	base
	leaf
	p   float64
	rng *seed.Rand
}

// NewBoolean returns a Bernoulli(p) generator. p must lie in [0, 1].
func NewBoolean(p float64) (*Boolean, error) {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return nil, configError("Boolean", "p must be in [0, 1], got %v", p)
	}
	return newBoolean(p), nil
}

func newBoolean(p float64) *Boolean {
	g := &Boolean{p: p}
	g.init(g, "Boolean")
	return g
}

func (g *Boolean) Next() (any, error) { return g.rng.Float64() < g.p, nil }

func (g *Boolean) reseed(s *seed.Stream) { g.rng = seed.NewRand(s.Next()) }

func (g *Boolean) fresh([]Generator) Generator { return newBoolean(g.p) }

func (g *Boolean) restoreFrom(src Generator) { g.rng = src.(*Boolean).rng.Copy() }

// Integer yields uniformly distributed integers in [lo, hi].
type Integer struct {
	base
	leaf
	lo, hi int64
	rng    *seed.Rand
}

// NewInteger returns a uniform integer generator over the inclusive range
// [lo, hi].
func NewInteger(lo, hi int64) (*Integer, error) {
	if lo > hi {
		return nil, configError("Integer", "lo (%d) must not exceed hi (%d)", lo, hi)
	}
	return newInteger(lo, hi), nil
}

func newInteger(lo, hi int64) *Integer {
	g := &Integer{lo: lo, hi: hi}
	g.init(g, "Integer")
	return g
}

// Bounds returns the inclusive range.
func (g *Integer) Bounds() (lo, hi int64) { return g.lo, g.hi }

func (g *Integer) Next() (any, error) {
	width := uint64(g.hi) - uint64(g.lo)
	if width == math.MaxUint64 {
		return int64(g.rng.Uint64()), nil
	}
	return g.lo + int64(g.rng.Uint64N(width+1)), nil
}

func (g *Integer) reseed(s *seed.Stream) { g.rng = seed.NewRand(s.Next()) }

func (g *Integer) fresh([]Generator) Generator { return newInteger(g.lo, g.hi) }

func (g *Integer) restoreFrom(src Generator) { g.rng = src.(*Integer).rng.Copy() }

// Float yields uniformly distributed floats between lo and hi.
type Float struct {
	base
	leaf
	lo, hi float64
	rng    *seed.Rand
}

// NewFloat returns a uniform float generator over [lo, hi].
func NewFloat(lo, hi float64) (*Float, error) {
	if math.IsNaN(lo) || math.IsNaN(hi) || math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return nil, configError("Float", "bounds must be finite, got [%v, %v]", lo, hi)
	}
	if lo > hi {
		return nil, configError("Float", "lo (%v) must not exceed hi (%v)", lo, hi)
	}
	return newFloat(lo, hi), nil
}

func newFloat(lo, hi float64) *Float {
	g := &Float{lo: lo, hi: hi}
	g.init(g, "Float")
	return g
}

func (g *Float) Next() (any, error) {
	return g.lo + g.rng.Float64()*(g.hi-g.lo), nil
}

func (g *Float) reseed(s *seed.Stream) { g.rng = seed.NewRand(s.Next()) }

func (g *Float) fresh([]Generator) Generator { return newFloat(g.lo, g.hi) }

func (g *Float) restoreFrom(src Generator) { g.rng = src.(*Float).rng.Copy() }

// Incremental yields start, start+step, start+2*step, ...
type Incremental struct {
	base
	leaf
	start, step int64
	cur         int64
}

// NewIncremental returns an arithmetic sequence generator. Reset restarts
// the sequence at start regardless of seed.
func NewIncremental(start, step int64) *Incremental {
	g := &Incremental{start: start, step: step}
	g.init(g, "Incremental")
	return g
}

func (g *Incremental) Next() (any, error) {
	v := g.cur
	g.cur += g.step
	return v, nil
}

func (g *Incremental) reseed(*seed.Stream) { g.cur = g.start }

func (g *Incremental) fresh([]Generator) Generator { return NewIncremental(g.start, g.step) }

func (g *Incremental) restoreFrom(src Generator) { g.cur = src.(*Incremental).cur }
