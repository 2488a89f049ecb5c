// Package faker provides the external string source used by gen.Faker.
//
// A Provider is re-seeded by its generator on every reset and then called
// once per value. The default provider is backed by gofakeit and draws from
// its own PCG source, so equal seeds produce equal output.
package faker

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/brianvoe/gofakeit/v7"
)

// Provider produces fake values for named methods.
type Provider interface {
	// Seed deterministically re-seeds the provider.
	Seed(seed uint64)

	// Call invokes method once with string parameters.
	Call(method string, params map[string]string) (any, error)
}

// Forker is implemented by providers that can copy their exact state.
type Forker interface {
	Fork() Provider
}

// Supporter is implemented by providers that can check a method name up front.
type Supporter interface {
	Supports(method string) bool
}

// Factory creates a Provider for a locale.
type Factory func(locale string) (Provider, error)

const pcgIncrement = 0x9E3779B97F4A7C15

// Gofakeit is the default Provider.
type Gofakeit struct {
	src   *rand.PCG
	faker *gofakeit.Faker
}

// New returns a gofakeit-backed provider. gofakeit ships English data only,
// so locale must be empty or "en" (optionally with a region, e.g. "en_US").
func New(locale string) (Provider, error) {
	if !supportedLocale(locale) {
		return nil, fmt.Errorf("unsupported locale %q: only English is available", locale)
	}
	src := rand.NewPCG(0, pcgIncrement)
	return &Gofakeit{src: src, faker: gofakeit.NewFaker(src, false)}, nil
}

func supportedLocale(locale string) bool {
	l := strings.ToLower(locale)
	return l == "" || l == "en" || strings.HasPrefix(l, "en_") || strings.HasPrefix(l, "en-")
}

// Seed re-seeds the PCG source.
func (p *Gofakeit) Seed(seed uint64) {
	p.src.Seed(seed, pcgIncrement)
}

// Call looks method up in gofakeit's function table and invokes it.
func (p *Gofakeit) Call(method string, params map[string]string) (any, error) {
	info := gofakeit.GetFuncLookup(Normalize(method))
	if info == nil {
		return nil, fmt.Errorf("unknown faker method %q", method)
	}

	mp := gofakeit.NewMapParams()
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		mp.Add(k, params[k])
	}

	v, err := info.Generate(p.faker, mp, info)
	if err != nil {
		return nil, fmt.Errorf("faker method %q: %w", method, err)
	}
	return v, nil
}

// Supports reports whether method names a gofakeit function.
func (p *Gofakeit) Supports(method string) bool {
	return gofakeit.GetFuncLookup(Normalize(method)) != nil
}

// Fork returns a provider whose source is a copy of p's current state.
func (p *Gofakeit) Fork() Provider {
	src := *p.src
	return &Gofakeit{src: &src, faker: gofakeit.NewFaker(&src, false)}
}

// Normalize maps snake_case method names ("first_name") onto gofakeit's
// lowercase names ("firstname").
func Normalize(method string) string {
	return strings.ReplaceAll(strings.ToLower(method), "_", "")
}

// Method describes one available faker method.
type Method struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Example     string `json:"example,omitempty"`
}

// Methods lists gofakeit's functions sorted by name, optionally filtered by
// category.
func Methods(category string) []Method {
	var out []Method
	for name, info := range gofakeit.FuncLookups {
		if category != "" && !strings.EqualFold(info.Category, category) {
			continue
		}
		out = append(out, Method{
			Name:        name,
			Category:    info.Category,
			Description: info.Description,
			Example:     info.Example,
		})
	}
	slices.SortFunc(out, func(a, b Method) int { return strings.Compare(a.Name, b.Name) })
	return out
}
