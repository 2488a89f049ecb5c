package gen_test

import (
	"encoding/hex"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tohu/internal/gen"
	"github.com/roach88/tohu/internal/record"
)

func utcDay(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestConstructors_RejectInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		err  func() error
	}{
		{"integer lo > hi", func() error { _, err := gen.NewInteger(5, 1); return err }},
		{"float lo > hi", func() error { _, err := gen.NewFloat(2, 1); return err }},
		{"boolean p > 1", func() error { _, err := gen.NewBoolean(1.5); return err }},
		{"boolean p < 0", func() error { _, err := gen.NewBoolean(-0.1); return err }},
		{"charstring negative length", func() error { _, err := gen.NewCharString(-1, "abc"); return err }},
		{"charstring empty charset", func() error { _, err := gen.NewCharString(3, ""); return err }},
		{"charstring unknown preset", func() error { _, err := gen.NewCharString(3, "<emoji>"); return err }},
		{"hashdigest odd hex length", func() error { _, err := gen.NewHashDigest(7); return err }},
		{"timestamp missing end", func() error {
			_, err := gen.NewTimestamp(gen.TimestampConfig{Start: utcDay(2018, 1, 1)})
			return err
		}},
		{"timestamp start after end", func() error {
			_, err := gen.NewTimestamp(gen.TimestampConfig{Start: utcDay(2018, 2, 1), End: utcDay(2018, 1, 1)})
			return err
		}},
		{"timestamp start off date", func() error {
			_, err := gen.NewTimestamp(gen.TimestampConfig{Start: utcDay(2018, 2, 1), Date: utcDay(2018, 1, 1)})
			return err
		}},
		{"timestamp all three bounds", func() error {
			_, err := gen.NewTimestamp(gen.TimestampConfig{Start: utcDay(2018, 1, 1), End: utcDay(2018, 1, 1), Date: utcDay(2018, 1, 1)})
			return err
		}},
		{"date missing bound", func() error { _, err := gen.NewDate(gen.DateConfig{Start: utcDay(2018, 1, 1)}); return err }},
		{"select from nothing", func() error { _, err := gen.NewSelectOneOf(nil); return err }},
		{"negative weight", func() error {
			_, err := gen.NewSelectOneOf([]any{"a", "b"}, gen.WithWeights(1, -1))
			return err
		}},
		{"zero weights", func() error {
			_, err := gen.NewSelectOneOf([]any{"a", "b"}, gen.WithWeights(0, 0))
			return err
		}},
		{"nil input", func() error { _, err := gen.NewApply(double, nil); return err }},
		{"fstr unresolved name", func() error { _, err := gen.NewFstr("{missing}", nil); return err }},
		{"fstr unclosed brace", func() error {
			_, err := gen.NewFstr("{a", map[string]gen.Generator{"a": gen.NewConstant(1)})
			return err
		}},
		{"fstr stray brace", func() error { _, err := gen.NewFstr("a}b", nil); return err }},
		{"getattribute empty name", func() error { _, err := gen.NewGetAttribute(gen.NewConstant(1), ""); return err }},
		{"tee negative length", func() error { _, err := gen.NewTeeN(gen.NewConstant(1), -1); return err }},
		{"negative generate count", func() error { _, err := gen.Generate(gen.NewConstant(1), -1); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.err()
			require.Error(t, err)
			assert.True(t, gen.IsConfigError(err), "got %v", err)
		})
	}
}

func TestInteger_FullRange(t *testing.T) {
	g := gen.Must(gen.NewInteger(-1<<63, 1<<63-1))
	vals := take(t, g, 10)
	assert.False(t, record.ValuesEqual(vals[:5], vals[5:]))
}

func TestFloat_StaysInRange(t *testing.T) {
	g := gen.Must(gen.NewFloat(2.5, 3.5))
	for _, v := range take(t, g, 200) {
		f := v.(float64)
		assert.GreaterOrEqual(t, f, 2.5)
		assert.LessOrEqual(t, f, 3.5)
	}
}

func TestCharString_Charsets(t *testing.T) {
	g := gen.Must(gen.NewCharString(20, "<digits>"))
	for _, v := range take(t, g, 20) {
		assert.Regexp(t, `^[0-9]{20}$`, v)
	}
	lit := gen.Must(gen.NewCharString(5, "ab"))
	for _, v := range take(t, lit, 20) {
		assert.Regexp(t, `^[ab]{5}$`, v)
	}
	assert.Equal(t, "DigitString", gen.Must(gen.NewDigitString(3)).Kind())
}

func TestHashDigest_Shape(t *testing.T) {
	upper := gen.Must(gen.NewHashDigest(12))
	for _, v := range take(t, upper, 20) {
		s := v.(string)
		assert.Len(t, s, 12)
		assert.Equal(t, strings.ToUpper(s), s)
		_, err := hex.DecodeString(s)
		assert.NoError(t, err)
	}

	lower := gen.Must(gen.NewHashDigest(8, gen.Lowercase()))
	for _, v := range take(t, lower, 20) {
		assert.Regexp(t, `^[0-9a-f]{8}$`, v)
	}

	raw := gen.Must(gen.NewHashDigest(9, gen.AsBytes()))
	for _, v := range take(t, raw, 20) {
		assert.Len(t, v.([]byte), 9)
	}
}

func TestUUID_Version4(t *testing.T) {
	g := gen.NewUUID()
	seen := map[string]bool{}
	for _, v := range take(t, g, 50) {
		s := v.(string)
		assert.Regexp(t, `^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`, s)
		seen[s] = true
	}
	assert.Len(t, seen, 50)
}

func TestTimestamp_Containment(t *testing.T) {
	start := time.Date(2018, 3, 1, 10, 0, 0, 500, time.UTC)
	end := time.Date(2018, 3, 1, 10, 0, 30, 0, time.UTC)
	g := gen.Must(gen.NewTimestamp(gen.TimestampConfig{Start: start, End: end}))

	lo, hi := g.Bounds()
	assert.Equal(t, time.Date(2018, 3, 1, 10, 0, 1, 0, time.UTC), lo)
	assert.Equal(t, end, hi)
	for _, v := range take(t, g, 200) {
		ts := v.(time.Time)
		assert.False(t, ts.Before(lo), "%s before %s", ts, lo)
		assert.False(t, ts.After(hi), "%s after %s", ts, hi)
		assert.Zero(t, ts.Nanosecond())
	}
}

func TestTimestamp_DateShorthandAndFormat(t *testing.T) {
	g := gen.Must(gen.NewTimestamp(gen.TimestampConfig{Date: utcDay(2018, 1, 1), Format: "%Y-%m-%d %H:%M:%S"}))
	lo, hi := g.Bounds()
	assert.Equal(t, utcDay(2018, 1, 1), lo)
	assert.Equal(t, time.Date(2018, 1, 1, 23, 59, 59, 0, time.UTC), hi)
	for _, v := range take(t, g, 20) {
		assert.Regexp(t, `^2018-01-01 \d\d:\d\d:\d\d$`, v)
	}
}

func TestDate_UniformOverDays(t *testing.T) {
	g := gen.Must(gen.NewDate(gen.DateConfig{Start: utcDay(2020, 2, 27), End: utcDay(2020, 3, 1)}))
	seen := map[time.Time]bool{}
	for _, v := range take(t, g, 200) {
		d := v.(time.Time)
		assert.Equal(t, d, d.Truncate(24*time.Hour))
		seen[d] = true
	}
	assert.Len(t, seen, 4, "27, 28, 29 February and 1 March")
}

func TestTimestampBetween(t *testing.T) {
	t.Run("inconsistent timestamp bounds fail at construction", func(t *testing.T) {
		start := gen.Must(gen.NewTimestamp(gen.TimestampConfig{Date: utcDay(2018, 1, 5)}))
		end := gen.Must(gen.NewTimestamp(gen.TimestampConfig{Date: utcDay(2018, 1, 1)}))
		_, err := gen.NewTimestampBetween(start, end)
		require.Error(t, err)
		assert.True(t, gen.IsTimestampError(err))
	})

	t.Run("reversed generated bounds fail at next", func(t *testing.T) {
		g, err := gen.NewTimestampBetween(gen.NewConstant(utcDay(2018, 1, 2)), gen.NewConstant("2018-01-01"))
		require.NoError(t, err)
		_, err = g.Next()
		require.Error(t, err)
		assert.True(t, gen.IsTimestampError(err))
	})

	t.Run("on date with one bound", func(t *testing.T) {
		g, err := gen.NewTimestampBetween(gen.NewConstant("2018-01-01 12:00:00"), nil, gen.OnDate(utcDay(2018, 1, 1)), gen.WithFormat("%H"))
		require.NoError(t, err)
		for _, v := range take(t, g, 50) {
			assert.GreaterOrEqual(t, v.(string), "12")
		}
	})

	t.Run("generated bound off the date fails at next", func(t *testing.T) {
		day := gen.OnDate(utcDay(2018, 1, 1))
		tests := []struct {
			name       string
			start, end gen.Generator
		}{
			{"start on previous day", gen.NewConstant("2017-12-31 12:00:00"), nil},
			{"end on next day", nil, gen.NewConstant("2018-01-02 06:00:00")},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				g, err := gen.NewTimestampBetween(tt.start, tt.end, day)
				require.NoError(t, err)
				_, err = g.Next()
				require.Error(t, err)
				assert.True(t, gen.IsTimestampError(err))
				assert.Contains(t, err.Error(), "is not on date 2018-01-01")
			})
		}
	})

	t.Run("missing bounds without date", func(t *testing.T) {
		_, err := gen.NewTimestampBetween(gen.NewConstant("2018-01-01"), nil)
		require.Error(t, err)
		assert.True(t, gen.IsConfigError(err))
	})
}

func TestSelectMultiple_NoDuplicates(t *testing.T) {
	seq := gen.NewConstant([]any{"a", "b", "c", "d", "e", "f"})
	g := gen.Must(gen.NewSelectMultiple(seq, gen.NewConstant(4)))
	for _, v := range take(t, g, 100) {
		picked := v.([]any)
		require.Len(t, picked, 4)
		seen := map[any]bool{}
		for _, p := range picked {
			assert.False(t, seen[p], "duplicate %v in %v", p, picked)
			seen[p] = true
		}
	}

	tooMany := gen.Must(gen.NewSelectMultiple(seq, gen.NewConstant(7)))
	_, err := tooMany.Next()
	require.Error(t, err)
	assert.True(t, gen.IsLookupError(err))
}

func TestSelectOne_Weights(t *testing.T) {
	g := gen.Must(gen.NewSelectOneOf([]any{"never", "always"}, gen.WithWeights(0, 1)))
	for _, v := range take(t, g, 50) {
		assert.Equal(t, "always", v)
	}

	mismatch := gen.Must(gen.NewSelectOne(gen.NewConstant([]any{1, 2, 3}), gen.WithWeights(1, 1)))
	_, err := mismatch.Next()
	require.Error(t, err)
	assert.True(t, gen.IsConfigError(err))

	empty := gen.Must(gen.NewSelectOne(gen.NewConstant([]any{})))
	_, err = empty.Next()
	assert.True(t, gen.IsLookupError(err))
}

func TestSelectOne_FromString(t *testing.T) {
	g := gen.Must(gen.NewSelectOne(gen.NewConstant("xyz")))
	for _, v := range take(t, g, 30) {
		assert.Contains(t, []any{"x", "y", "z"}, v)
	}
}

func TestTee(t *testing.T) {
	g := gen.Must(gen.NewTeeN(gen.NewIncremental(1, 1), 3))
	assert.Equal(t, []any{[]any{int64(1), int64(2), int64(3)}, []any{int64(4), int64(5), int64(6)}}, take(t, g, 2))
}

func TestLookup(t *testing.T) {
	key := gen.NewIncremental(0, 1)
	g := gen.Must(gen.NewLookup(key, gen.NewConstant([]string{"zero", "one"})))
	assert.Equal(t, []any{"zero", "one"}, take(t, g, 2))
	_, err := g.Next()
	require.Error(t, err)
	assert.True(t, gen.IsLookupError(err))

	byName := gen.Must(gen.NewLookup(gen.NewConstant("b"), gen.NewConstant(map[string]int{"a": 1, "b": 2})))
	v, err := byName.Next()
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestGetAttribute(t *testing.T) {
	inner := gen.NewClass("PointGenerator").
		Field("x", gen.NewIncremental(1, 1)).
		Field("y", gen.NewConstant("up"))
	points, err := inner.New()
	require.NoError(t, err)

	x := gen.Must(gen.NewGetAttribute(points, "x"))
	assert.True(t, record.ValuesEqual([]any{1, 2, 3}, take(t, x, 3)))

	missing := gen.Must(gen.NewGetAttribute(points, "z"))
	_, err = missing.Next()
	require.Error(t, err)
	assert.True(t, gen.IsAttributeError(err))
}

func TestApplyKw_PassesKeywords(t *testing.T) {
	label := func(args []any, kwargs map[string]any) (any, error) {
		return kwargs["prefix"].(string) + args[0].(string), nil
	}
	g := gen.Must(gen.NewApplyKw(label, []gen.Generator{gen.NewConstant("x")}, gen.KW("prefix", gen.NewConstant("id-"))))
	v, err := g.Next()
	require.NoError(t, err)
	assert.Equal(t, "id-x", v)
	assert.Len(t, g.Inputs(), 2)
}

func TestFstr_FormatsAndPaths(t *testing.T) {
	cls := gen.NewClass("UserGenerator").
		Field("id", gen.NewIncremental(7, 1)).
		Field("joined", gen.NewConstant(utcDay(2019, 4, 2)))
	users, err := cls.New()
	require.NoError(t, err)

	g, err := gen.NewFstr("{{u}}{u.id:04d} joined {u.joined:%d/%m/%Y}", map[string]gen.Generator{"u": users})
	require.NoError(t, err)
	assert.Equal(t, []any{"{u}0007 joined 02/04/2019", "{u}0008 joined 02/04/2019"}, take(t, g, 2))

	bad, err := gen.NewFstr("{u.nope}", map[string]gen.Generator{"u": users})
	require.NoError(t, err)
	_, err = bad.Next()
	assert.True(t, gen.IsAttributeError(err))

	badSpec, err := gen.NewFstr("{n:q}", map[string]gen.Generator{"n": gen.NewConstant(1)})
	require.NoError(t, err)
	_, err = badSpec.Next()
	assert.True(t, gen.IsConfigError(err))
}

func TestForeach(t *testing.T) {
	f, err := gen.NewForeach([]string{"lo", "hi"}, func(p map[string]any) (gen.Generator, error) {
		return gen.NewInteger(p["lo"].(int64), p["hi"].(int64))
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"lo", "hi"}, f.Params())

	g, err := f.Build(map[string]any{"lo": int64(5), "hi": int64(5)})
	require.NoError(t, err)
	assert.True(t, record.ValuesEqual([]any{5, 5}, take(t, g, 2)))

	_, err = f.Build(map[string]any{"lo": int64(1)})
	assert.True(t, gen.IsForeachError(err))
	_, err = f.Build(map[string]any{"lo": int64(1), "hi": int64(2), "step": int64(1)})
	assert.True(t, gen.IsForeachError(err))

	gens, err := f.Product(map[string][]any{"lo": {int64(0), int64(10)}, "hi": {int64(20), int64(30), int64(40)}})
	require.NoError(t, err)
	require.Len(t, gens, 6)
	lo, hi := gens[1].(*gen.Integer).Bounds()
	assert.Equal(t, int64(0), lo)
	assert.Equal(t, int64(30), hi)

	_, err = gen.NewForeach([]string{"a", "a"}, nil)
	assert.True(t, gen.IsForeachError(err))
}

func TestGenerate_Progress(t *testing.T) {
	var calls []int
	_, err := gen.Generate(gen.NewConstant(1), 3, gen.WithProgress(func(done int) { calls = append(calls, done) }))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, calls)
}

func TestGenerate_WithSeedResetsSharedInputs(t *testing.T) {
	identity := func(args []any, _ map[string]any) (any, error) { return args[0], nil }
	shared := gen.Must(gen.NewInteger(0, 1_000_000))
	a := gen.Must(gen.NewApply(identity, shared))
	b := gen.Must(gen.NewApply(identity, shared))
	take(t, b, 7)

	items, err := gen.Generate(a, 3, gen.WithSeed(5))
	require.NoError(t, err)
	assert.True(t, record.ValuesEqual(items.Values(), take(t, b, 3)), "b restarts with a from seed 5")
}

func TestError_Message(t *testing.T) {
	_, err := gen.NewInteger(5, 1)
	var ge *gen.Error
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, gen.KindConfig, ge.Kind)
	assert.Equal(t, "Integer", ge.Op)
	assert.True(t, strings.HasPrefix(err.Error(), "CONFIG: Integer: "))
}
