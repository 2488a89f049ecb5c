package testutil

import (
	"time"

	"github.com/roach88/tohu/internal/gen"
)

// Exemplar is a named recipe for one generator kind, used by property tests
// that must hold for every generator.
type Exemplar struct {
	Name string

	// New builds a fresh generator. Inputs of derived generators are built
	// inside New, so each call yields an independent DAG.
	New func() gen.Generator

	// Constant marks generators whose output never depends on the seed.
	Constant bool
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func double(args []any, _ map[string]any) (any, error) {
	return args[0].(int64) * 2, nil
}

func sum(args []any, kwargs map[string]any) (any, error) {
	return args[0].(int64) + kwargs["b"].(int64), nil
}

// Exemplars returns one recipe per generator kind.
func Exemplars() []Exemplar {
	return []Exemplar{
		{Name: "Constant", New: func() gen.Generator { return gen.NewConstant("quux") }, Constant: true},
		{Name: "Incremental", New: func() gen.Generator { return gen.NewIncremental(200, 4) }, Constant: true},
		{Name: "Boolean", New: func() gen.Generator { return gen.Must(gen.NewBoolean(0.5)) }},
		{Name: "Integer", New: func() gen.Generator { return gen.Must(gen.NewInteger(100, 200)) }},
		{Name: "Float", New: func() gen.Generator { return gen.Must(gen.NewFloat(-1, 1)) }},
		{Name: "CharString", New: func() gen.Generator { return gen.Must(gen.NewCharString(8, "<alphanumeric>")) }},
		{Name: "DigitString", New: func() gen.Generator { return gen.Must(gen.NewDigitString(6)) }},
		{Name: "HashDigest", New: func() gen.Generator { return gen.Must(gen.NewHashDigest(12)) }},
		{Name: "HashDigestBytes", New: func() gen.Generator { return gen.Must(gen.NewHashDigest(9, gen.AsBytes())) }},
		{Name: "UUID", New: func() gen.Generator { return gen.NewUUID() }},
		{Name: "Timestamp", New: func() gen.Generator {
			return gen.Must(gen.NewTimestamp(gen.TimestampConfig{Start: day(2018, 1, 1), End: day(2018, 12, 31)}))
		}},
		{Name: "Date", New: func() gen.Generator {
			return gen.Must(gen.NewDate(gen.DateConfig{Start: day(2000, 1, 1), End: day(2020, 1, 1), Format: "%Y/%m/%d"}))
		}},
		{Name: "Faker", New: func() gen.Generator { return gen.Must(gen.NewFaker("name")) }},
		{Name: "Apply", New: func() gen.Generator {
			return gen.Must(gen.NewApply(double, gen.Must(gen.NewInteger(1, 1000))))
		}},
		{Name: "ApplyKw", New: func() gen.Generator {
			a := gen.Must(gen.NewInteger(1, 1000))
			b := gen.Must(gen.NewInteger(1, 1000))
			return gen.Must(gen.NewApplyKw(sum, []gen.Generator{a}, gen.KW("b", b)))
		}},
		{Name: "Lookup", New: func() gen.Generator {
			key := gen.Must(gen.NewSelectOneOf([]any{"a", "b", "c"}))
			mapping := gen.NewConstant(map[string]any{"a": int64(1), "b": int64(2), "c": int64(3)})
			return gen.Must(gen.NewLookup(key, mapping))
		}},
		{Name: "SelectOne", New: func() gen.Generator {
			return gen.Must(gen.NewSelectOneOf([]any{"x", "y", "z", "w"}))
		}},
		{Name: "SelectOneWeighted", New: func() gen.Generator {
			return gen.Must(gen.NewSelectOneOf([]any{"x", "y", "z"}, gen.WithWeights(1, 2, 3)))
		}},
		{Name: "SelectMultiple", New: func() gen.Generator {
			seq := gen.NewConstant([]any{1, 2, 3, 4, 5, 6, 7, 8})
			return gen.Must(gen.NewSelectMultiple(seq, gen.Must(gen.NewInteger(0, 8))))
		}},
		{Name: "Tee", New: func() gen.Generator {
			return gen.Must(gen.NewTee(gen.Must(gen.NewInteger(0, 9)), gen.Must(gen.NewInteger(1, 4))))
		}},
		{Name: "TimestampBetween", New: func() gen.Generator {
			start := gen.Must(gen.NewTimestamp(gen.TimestampConfig{Date: day(2018, 1, 1)}))
			end := gen.Must(gen.NewTimestamp(gen.TimestampConfig{Date: day(2018, 1, 2)}))
			return gen.Must(gen.NewTimestampBetween(start, end))
		}},
		{Name: "Fstr", New: func() gen.Generator {
			a := gen.Must(gen.NewInteger(100, 200))
			b := gen.Must(gen.NewCharString(3, "<uppercase>"))
			return gen.Must(gen.NewFstr("{a:05d}-{b}", map[string]gen.Generator{"a": a, "b": b}))
		}},
		{Name: "Custom", New: func() gen.Generator {
			x := gen.Must(gen.NewInteger(1, 5))
			cls := gen.NewClass("QuuxGenerator").
				Field("x", x).
				Field("y", gen.Must(gen.NewApply(double, x))).
				Field("name", gen.Must(gen.NewFaker("firstname")))
			return gen.Must(cls.New())
		}},
	}
}
