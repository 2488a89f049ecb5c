package gen

import (
	"fmt"
	"maps"

	"github.com/roach88/tohu/internal/faker"
	"github.com/roach88/tohu/internal/seed"
)

// Faker yields values from an external string source. The provider is
// re-seeded with a fresh sub-seed on every reset.
type Faker struct {
	base
	leaf
	method   string
	locale   string
	params   map[string]string
	factory  faker.Factory
	provider faker.Provider

	// seeded and calls let a provider without Fork be brought to the same
	// state by replaying.
	seeded uint64
	calls  int
}

// FakerOption configures NewFaker.
type FakerOption func(*Faker)

// WithLocale selects the provider locale.
func WithLocale(locale string) FakerOption {
	return func(g *Faker) { g.locale = locale }
}

// WithParams passes named parameters on every call.
func WithParams(params map[string]string) FakerOption {
	return func(g *Faker) { g.params = maps.Clone(params) }
}

// WithProvider replaces the default gofakeit provider.
func WithProvider(f faker.Factory) FakerOption {
	return func(g *Faker) { g.factory = f }
}

// NewFaker returns a generator calling method on a provider.
func NewFaker(method string, opts ...FakerOption) (*Faker, error) {
	g := &Faker{method: method, factory: faker.New}
	for _, opt := range opts {
		opt(g)
	}
	if method == "" {
		return nil, configError("Faker", "method must not be empty")
	}
	p, err := g.factory(g.locale)
	if err != nil {
		return nil, &Error{Kind: KindConfig, Op: "Faker", Message: "cannot create provider", Err: err}
	}
	if s, ok := p.(faker.Supporter); ok && !s.Supports(method) {
		return nil, configError("Faker", "provider does not support method %q", method)
	}
	g.provider = p
	g.init(g, "Faker")
	return g, nil
}

// Method returns the provider method name.
func (g *Faker) Method() string { return g.method }

func (g *Faker) Next() (any, error) {
	v, err := g.provider.Call(g.method, g.params)
	if err != nil {
		return nil, fmt.Errorf("generator %s: %w", g.id, err)
	}
	g.calls++
	return v, nil
}

func (g *Faker) reseed(s *seed.Stream) {
	g.seeded = uint64(s.Next())
	g.calls = 0
	g.provider.Seed(g.seeded)
}

func (g *Faker) fresh([]Generator) Generator {
	c := &Faker{method: g.method, locale: g.locale, params: g.params, factory: g.factory}
	p, err := c.factory(c.locale)
	if err != nil {
		// The same factory and locale succeeded when g was built.
		panic(fmt.Sprintf("tohu: faker provider: %v", err))
	}
	c.provider = p
	c.init(c, "Faker")
	return c
}

func (g *Faker) restoreFrom(src Generator) {
	o := src.(*Faker)
	g.seeded, g.calls = o.seeded, o.calls
	if f, ok := o.provider.(faker.Forker); ok {
		g.provider = f.Fork()
		return
	}
	g.provider.Seed(o.seeded)
	for i := 0; i < o.calls; i++ {
		_, _ = g.provider.Call(g.method, g.params)
	}
}
