package gen_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tohu/internal/gen"
	"github.com/roach88/tohu/internal/record"
	"github.com/roach88/tohu/internal/testutil"
)

func take(t *testing.T, g gen.Generator, n int) []any {
	t.Helper()
	out := make([]any, n)
	for i := range out {
		v, err := g.Next()
		require.NoError(t, err)
		out[i] = v
	}
	return out
}

func generate(t *testing.T, g gen.Generator, n int, s uint64) []any {
	t.Helper()
	items, err := gen.Generate(g, n, gen.WithSeed(s))
	require.NoError(t, err)
	return items.Values()
}

func TestProperty_ResetDeterminism(t *testing.T) {
	for _, ex := range testutil.Exemplars() {
		t.Run(ex.Name, func(t *testing.T) {
			g := ex.New()
			first := generate(t, g, 20, 12345)
			second := generate(t, g, 20, 12345)
			assert.True(t, record.ValuesEqual(first, second), "%v != %v", first, second)
		})
	}
}

func TestProperty_SeedSensitivity(t *testing.T) {
	for _, ex := range testutil.Exemplars() {
		if ex.Constant {
			continue
		}
		t.Run(ex.Name, func(t *testing.T) {
			g := ex.New()
			a := generate(t, g, 20, 1)
			b := generate(t, g, 20, 2)
			assert.False(t, record.ValuesEqual(a, b), "seeds 1 and 2 gave the same sequence")
		})
	}
}

func TestProperty_CloneSynchrony(t *testing.T) {
	for _, ex := range testutil.Exemplars() {
		t.Run(ex.Name, func(t *testing.T) {
			g := ex.New()
			c := g.Clone()
			require.Same(t, g, c.Parent())

			gen.ResetAll(g, 777)
			for i := 0; i < 20; i++ {
				gv, err := g.Next()
				require.NoError(t, err)
				cv, err := c.Next()
				require.NoError(t, err)
				require.True(t, record.ValueEqual(gv, cv), "step %d: %v != %v", i, gv, cv)
			}
		})
	}
}

func TestProperty_CloneIgnoresDirectReset(t *testing.T) {
	g := gen.Must(gen.NewInteger(0, 1_000_000))
	c := g.Clone()
	g.Reset(5)
	want := take(t, g, 5)

	g.Reset(5)
	c.Reset(6)
	assert.Equal(t, want, take(t, c, 5))
}

func TestProperty_SpawnIndependence(t *testing.T) {
	for _, ex := range testutil.Exemplars() {
		if ex.Constant {
			continue
		}
		t.Run(ex.Name, func(t *testing.T) {
			g := ex.New()
			h, err := gen.Spawn(g)
			require.NoError(t, err)
			assert.Nil(t, h.Parent())
			assert.NotEqual(t, g.ID(), h.ID())

			a := generate(t, g, 20, 1)
			b := generate(t, h, 20, 2)
			assert.False(t, record.ValuesEqual(a, b))
		})
	}
}

func TestProperty_SpawnEquivalence(t *testing.T) {
	for _, ex := range testutil.Exemplars() {
		t.Run(ex.Name, func(t *testing.T) {
			g := ex.New()
			gen.ResetAll(g, 4242)
			take(t, g, 3)

			h, err := gen.Spawn(g)
			require.NoError(t, err)
			a, b := take(t, g, 10), take(t, h, 10)
			assert.True(t, record.ValuesEqual(a, b), "after spawn: %v != %v", a, b)

			a = generate(t, g, 10, 99)
			b = generate(t, h, 10, 99)
			assert.True(t, record.ValuesEqual(a, b), "after matching resets: %v != %v", a, b)
		})
	}
}

func TestProperty_SpawnDoesNotAdvanceOriginal(t *testing.T) {
	g := gen.Must(gen.NewInteger(0, 1_000_000))
	g.Reset(3)
	ref := gen.Must(gen.NewInteger(0, 1_000_000))
	ref.Reset(3)

	h, err := gen.Spawn(g)
	require.NoError(t, err)
	take(t, h, 5)
	assert.Equal(t, take(t, ref, 5), take(t, g, 5))
}

func double(args []any, _ map[string]any) (any, error) {
	return args[0].(int64) * 2, nil
}

func TestProperty_SharedInputPreservation(t *testing.T) {
	x := gen.Must(gen.NewInteger(1, 5))
	cls := gen.NewClass("PairGenerator").
		Field("x", x).
		Field("y", gen.Must(gen.NewApply(double, x)))
	g, err := cls.New()
	require.NoError(t, err)

	check := func(items []any) {
		t.Helper()
		for _, it := range items {
			r := it.(*record.Record)
			xv, _ := r.Get("x")
			yv, _ := r.Get("y")
			require.Equal(t, 2*xv.(int64), yv, "record %s", r)
		}
	}

	check(generate(t, g, 50, 12345))

	h, err := gen.Spawn(g)
	require.NoError(t, err)
	check(generate(t, h, 50, 12345))
	assert.True(t, record.ValuesEqual(generate(t, g, 50, 7), generate(t, h, 50, 7)))

	// The spawned namespace still holds exactly one Integer feeding both fields.
	hx, _ := h.(*gen.Custom).Field("x")
	hy, _ := h.(*gen.Custom).Field("y")
	require.Len(t, hy.Inputs(), 1)
	assert.Same(t, hx, hy.Inputs()[0])
	assert.NotSame(t, x, hx)
}

func TestProperty_NamespaceInsertionOrder(t *testing.T) {
	cls := gen.NewClass("OrderGenerator").
		Field("zz", gen.NewConstant(1)).
		Field("aa", gen.NewConstant(2))
	g, err := cls.New(gen.F("mm", gen.NewConstant(3)), gen.F("zz", gen.NewConstant(4)))
	require.NoError(t, err)

	v, err := g.Next()
	require.NoError(t, err)
	r := v.(*record.Record)
	assert.Equal(t, []string{"zz", "aa", "mm"}, r.FieldNames())
	assert.True(t, r.Equal([]any{4, 2, 3}))

	ordered, err := gen.NewClass("OrderGenerator", gen.WithFieldOrder("mm", "zz")).
		Field("zz", gen.NewConstant(1)).
		New(gen.F("mm", gen.NewConstant(3)))
	require.NoError(t, err)
	assert.Equal(t, []string{"mm", "zz"}, ordered.FieldNames())
}
