package gen

import (
	"github.com/roach88/tohu/internal/batch"
)

type generateConfig struct {
	seeded   bool
	seed     uint64
	progress func(done int)
}

// GenerateOption configures Generate.
type GenerateOption func(*generateConfig)

// WithSeed resets the generator and everything upstream of it with s before
// generating (see ResetAll). Upstream inputs shared with other generators
// are reset too, so those generators also restart from s.
func WithSeed(s uint64) GenerateOption {
	return func(c *generateConfig) { c.seeded, c.seed = true, s }
}

// WithProgress calls fn after each item with the number generated so far.
func WithProgress(fn func(done int)) GenerateOption {
	return func(c *generateConfig) { c.progress = fn }
}

// Generate collects num values from g into a batch. Errors from g stop
// generation and are returned unchanged.
func Generate(g Generator, num int, opts ...GenerateOption) (*batch.Items, error) {
	var cfg generateConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if num < 0 {
		return nil, configError("Generate", "num must not be negative, got %d", num)
	}
	if cfg.seeded {
		ResetAll(g, cfg.seed)
	}
	vals := make([]any, 0, num)
	for i := 0; i < num; i++ {
		v, err := g.Next()
		if err != nil {
			return nil, err
		}
		vals = append(vals, v)
		if cfg.progress != nil {
			cfg.progress(i + 1)
		}
	}
	return batch.New(vals), nil
}

// ResetAll resets g with s, then resets every independent generator
// upstream of g through a namespace seeded with s. For generators without
// inputs this is exactly g.Reset(s). For derived generators it makes a
// seeded run reproducible without an owning namespace.
//
// Clones are left alone; they follow their parent.
func ResetAll(g Generator, s uint64) {
	g.Reset(s)
	if g.Parent() != nil {
		return
	}
	deps := dependencies(g)
	if len(deps) == 0 {
		return
	}
	ns := NewNamespace()
	for _, d := range deps {
		// Anonymous registration cannot conflict.
		_ = ns.AddWithDependencies(d, "")
	}
	ns.Reset(s)
}
