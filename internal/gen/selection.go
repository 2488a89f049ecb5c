package gen

import (
	"fmt"
	"math"
	"reflect"

	"github.com/roach88/tohu/internal/seed"
)

// elements turns a sequence value into its elements. Strings yield their
// characters.
func elements(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case string:
		out := make([]any, 0, len(s))
		for _, r := range s {
			out = append(out, string(r))
		}
		return out, true
	}
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// SelectOne yields one element of each sequence its input produces.
type SelectOne struct {
	base
	derived
	weights []float64
	rng     *seed.Rand
}

// SelectOption configures NewSelectOne.
type SelectOption func(*SelectOne)

// WithWeights selects elements with relative probabilities instead of
// uniformly. The number of weights must match the sequence length.
func WithWeights(w ...float64) SelectOption {
	return func(g *SelectOne) { g.weights = append([]float64(nil), w...) }
}

// NewSelectOne returns a generator choosing from the sequences seq yields.
func NewSelectOne(seq Generator, opts ...SelectOption) (*SelectOne, error) {
	if err := checkInputs("SelectOne", seq); err != nil {
		return nil, err
	}
	probe := &SelectOne{}
	for _, opt := range opts {
		opt(probe)
	}
	if probe.weights != nil {
		total := 0.0
		for _, w := range probe.weights {
			if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
				return nil, configError("SelectOne", "weights must be finite and non-negative, got %v", w)
			}
			total += w
		}
		if total <= 0 {
			return nil, configError("SelectOne", "weights must not all be zero")
		}
	}
	return newSelectOne([]Generator{seq}, probe.weights), nil
}

// NewSelectOneOf chooses among fixed values.
func NewSelectOneOf(values []any, opts ...SelectOption) (*SelectOne, error) {
	if len(values) == 0 {
		return nil, configError("SelectOne", "values must not be empty")
	}
	return NewSelectOne(NewConstant(append([]any(nil), values...)), opts...)
}

func newSelectOne(inputs []Generator, weights []float64) *SelectOne {
	g := &SelectOne{derived: newDerived(inputs), weights: weights}
	g.init(g, "SelectOne")
	return g
}

func (g *SelectOne) Next() (any, error) {
	vals, err := g.advance()
	if err != nil {
		return nil, err
	}
	elems, ok := elements(vals[0])
	if !ok || len(elems) == 0 {
		return nil, &Error{Kind: KindLookup, Op: "SelectOne.Next", Message: fmt.Sprintf("cannot select from %T of length 0", vals[0]), GeneratorID: g.id}
	}
	if g.weights == nil {
		return elems[g.rng.IntN(len(elems))], nil
	}
	if len(g.weights) != len(elems) {
		return nil, &Error{Kind: KindConfig, Op: "SelectOne.Next", Message: fmt.Sprintf("%d weights for %d elements", len(g.weights), len(elems)), GeneratorID: g.id}
	}
	total := 0.0
	for _, w := range g.weights {
		total += w
	}
	x := g.rng.Float64() * total
	for i, w := range g.weights {
		if x < w {
			return elems[i], nil
		}
		x -= w
	}
	// Rounding left x at or past the last bucket.
	for i := len(elems) - 1; i >= 0; i-- {
		if g.weights[i] > 0 {
			return elems[i], nil
		}
	}
	return elems[len(elems)-1], nil
}

func (g *SelectOne) reseed(s *seed.Stream) { g.rng = seed.NewRand(s.Next()) }

func (g *SelectOne) fresh(inputs []Generator) Generator {
	return newSelectOne(inputs, g.weights)
}

func (g *SelectOne) restoreFrom(src Generator) {
	o := src.(*SelectOne)
	g.rng = o.rng.Copy()
	g.restoreConstituents(&o.derived)
}

// SelectMultiple yields samples drawn without replacement.
type SelectMultiple struct {
	base
	derived
	rng *seed.Rand
}

// NewSelectMultiple returns a generator that, for each output, draws n
// distinct positions from the sequence seq yields, where n comes from num.
func NewSelectMultiple(seq, num Generator) (*SelectMultiple, error) {
	if err := checkInputs("SelectMultiple", seq, num); err != nil {
		return nil, err
	}
	return newSelectMultiple([]Generator{seq, num}), nil
}

func newSelectMultiple(inputs []Generator) *SelectMultiple {
	g := &SelectMultiple{derived: newDerived(inputs)}
	g.init(g, "SelectMultiple")
	return g
}

func (g *SelectMultiple) Next() (any, error) {
	vals, err := g.advance()
	if err != nil {
		return nil, err
	}
	elems, ok := elements(vals[0])
	if !ok {
		return nil, &Error{Kind: KindLookup, Op: "SelectMultiple.Next", Message: fmt.Sprintf("cannot sample from %T", vals[0]), GeneratorID: g.id}
	}
	n, ok := toInt(vals[1])
	if !ok {
		return nil, &Error{Kind: KindConfig, Op: "SelectMultiple.Next", Message: fmt.Sprintf("sample size must be an integer, got %T", vals[1]), GeneratorID: g.id}
	}
	if n < 0 || n > int64(len(elems)) {
		return nil, &Error{Kind: KindLookup, Op: "SelectMultiple.Next", Message: fmt.Sprintf("sample size %d outside [0, %d]", n, len(elems)), GeneratorID: g.id}
	}

	// Partial Fisher-Yates over positions.
	idx := make([]int, len(elems))
	for i := range idx {
		idx[i] = i
	}
	out := make([]any, n)
	for i := 0; i < int(n); i++ {
		j := i + g.rng.IntN(len(idx)-i)
		idx[i], idx[j] = idx[j], idx[i]
		out[i] = elems[idx[i]]
	}
	return out, nil
}

func (g *SelectMultiple) reseed(s *seed.Stream) { g.rng = seed.NewRand(s.Next()) }

func (g *SelectMultiple) fresh(inputs []Generator) Generator { return newSelectMultiple(inputs) }

func (g *SelectMultiple) restoreFrom(src Generator) {
	o := src.(*SelectMultiple)
	g.rng = o.rng.Copy()
	g.restoreConstituents(&o.derived)
}

// Tee yields lists of values from an inner generator, with list lengths
// taken from a second generator.
type Tee struct {
	base
	derived
}

// NewTee returns a Tee. For each output it advances num once to get n, then
// advances inner n times.
func NewTee(inner, num Generator) (*Tee, error) {
	if err := checkInputs("Tee", inner, num); err != nil {
		return nil, err
	}
	return newTee([]Generator{inner, num}), nil
}

// NewTeeN is NewTee with a fixed list length.
func NewTeeN(inner Generator, n int) (*Tee, error) {
	if n < 0 {
		return nil, configError("Tee", "length must not be negative, got %d", n)
	}
	return NewTee(inner, NewConstant(int64(n)))
}

func newTee(inputs []Generator) *Tee {
	g := &Tee{derived: newDerived(inputs)}
	g.init(g, "Tee")
	return g
}

func (g *Tee) Next() (any, error) {
	inner, num := g.constituents[0], g.constituents[1]
	nv, err := num.Next()
	if err != nil {
		return nil, err
	}
	n, ok := toInt(nv)
	if !ok || n < 0 {
		return nil, &Error{Kind: KindConfig, Op: "Tee.Next", Message: fmt.Sprintf("length must be a non-negative integer, got %v", nv), GeneratorID: g.id}
	}
	out := make([]any, n)
	for i := range out {
		v, err := inner.Next()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (g *Tee) reseed(*seed.Stream) {}

func (g *Tee) fresh(inputs []Generator) Generator { return newTee(inputs) }

func (g *Tee) restoreFrom(src Generator) {
	g.restoreConstituents(&src.(*Tee).derived)
}
