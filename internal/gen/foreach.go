package gen

import (
	"fmt"
	"slices"
	"strings"
)

// Recipe builds a generator from parameter values.
type Recipe func(params map[string]any) (Generator, error)

// Foreach parameterizes a recipe over named parameters, so one definition
// can produce a generator per parameter combination.
type Foreach struct {
	params []string
	recipe Recipe
}

// NewForeach declares a parameterized recipe.
func NewForeach(params []string, recipe Recipe) (*Foreach, error) {
	if recipe == nil {
		return nil, newError(KindForeach, "Foreach", "recipe must not be nil")
	}
	seen := make(map[string]bool, len(params))
	for _, p := range params {
		if p == "" || seen[p] {
			return nil, newError(KindForeach, "Foreach", "parameter names must be unique and non-empty, got %q", params)
		}
		seen[p] = true
	}
	return &Foreach{params: append([]string(nil), params...), recipe: recipe}, nil
}

// Params returns the declared parameter names.
func (f *Foreach) Params() []string { return append([]string(nil), f.params...) }

// Build runs the recipe with values. Every declared parameter must be
// present and no others.
func (f *Foreach) Build(values map[string]any) (Generator, error) {
	var missing, unknown []string
	for _, p := range f.params {
		if _, ok := values[p]; !ok {
			missing = append(missing, p)
		}
	}
	for k := range values {
		if !slices.Contains(f.params, k) {
			unknown = append(unknown, k)
		}
	}
	slices.Sort(unknown)
	if len(missing) > 0 || len(unknown) > 0 {
		var parts []string
		if len(missing) > 0 {
			parts = append(parts, "missing "+strings.Join(missing, ", "))
		}
		if len(unknown) > 0 {
			parts = append(parts, "unknown "+strings.Join(unknown, ", "))
		}
		return nil, newError(KindForeach, "Foreach.Build", "parameters: %s", strings.Join(parts, "; "))
	}
	return f.recipe(values)
}

// Product builds one generator per combination of the given values, varying
// the last declared parameter fastest.
func (f *Foreach) Product(values map[string][]any) ([]Generator, error) {
	for k := range values {
		if !slices.Contains(f.params, k) {
			return nil, newError(KindForeach, "Foreach.Product", "unknown parameter %q", k)
		}
	}
	combos := []map[string]any{{}}
	for _, p := range f.params {
		vals, ok := values[p]
		if !ok {
			return nil, newError(KindForeach, "Foreach.Product", "missing parameter %q", p)
		}
		next := make([]map[string]any, 0, len(combos)*len(vals))
		for _, c := range combos {
			for _, v := range vals {
				m := make(map[string]any, len(c)+1)
				for k, cv := range c {
					m[k] = cv
				}
				m[p] = v
				next = append(next, m)
			}
		}
		combos = next
	}

	out := make([]Generator, len(combos))
	for i, c := range combos {
		g, err := f.Build(c)
		if err != nil {
			return nil, fmt.Errorf("combination %d: %w", i, err)
		}
		out[i] = g
	}
	return out, nil
}
