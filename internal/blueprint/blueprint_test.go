package blueprint_test

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tohu/internal/blueprint"
	"github.com/roach88/tohu/internal/gen"
	"github.com/roach88/tohu/internal/record"
)

func compileFile(t *testing.T, path string) *blueprint.Compiled {
	t.Helper()
	bp, err := blueprint.Load(path)
	require.NoError(t, err)
	c, err := blueprint.Compile(bp)
	require.NoError(t, err)
	return c
}

func compileYAML(t *testing.T, src string, opts ...blueprint.Option) (*blueprint.Compiled, error) {
	t.Helper()
	bp, err := blueprint.Parse([]byte(src))
	require.NoError(t, err)
	return blueprint.Compile(bp, opts...)
}

func records(t *testing.T, c *blueprint.Compiled, num int, seed uint64) []*record.Record {
	t.Helper()
	g, err := c.New()
	require.NoError(t, err)
	items, err := g.Generate(num, gen.WithSeed(seed))
	require.NoError(t, err)
	recs, ok := items.Records()
	require.True(t, ok)
	return recs
}

func get(t *testing.T, r *record.Record, field string) any {
	t.Helper()
	v, ok := r.Get(field)
	require.True(t, ok, "missing field %q", field)
	return v
}

func TestLoad_YAML(t *testing.T) {
	bp, err := blueprint.Load("testdata/order.yaml")
	require.NoError(t, err)

	assert.Equal(t, "OrderGenerator", bp.Name)
	require.NotNil(t, bp.Seed)
	assert.Equal(t, uint64(42), *bp.Seed)
	assert.Equal(t, 5, bp.Num)
	require.Len(t, bp.Helpers, 1)
	require.Len(t, bp.Fields, 7)
	assert.Equal(t, "qty", bp.Fields[1].Ref)
	assert.Contains(t, bp.Source, "OrderGenerator")
}

func TestLoad_UnknownKey(t *testing.T) {
	_, err := blueprint.Load("testdata/unknown_key.yaml")
	require.Error(t, err)

	var verrs blueprint.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.True(t, verrs.HasCode(blueprint.ErrParse))
	assert.Contains(t, err.Error(), "parms")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := blueprint.Load("testdata/nope.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read blueprint file")
}

func TestLoad_CUEMatchesYAML(t *testing.T) {
	fromYAML := compileFile(t, "testdata/order.yaml")
	fromCUE := compileFile(t, "testdata/order.cue")

	a := records(t, fromYAML, 20, 7)
	b := records(t, fromCUE, 20, 7)
	require.Len(t, b, len(a))
	for i := range a {
		assert.True(t, a[i].Equal(b[i]), "record %d: %s vs %s", i, a[i], b[i])
	}
}

func TestParseCUE_SchemaViolation(t *testing.T) {
	src := `name: "X"
fields: [{name: "a", type: "integer"}]
extra: 1
`
	_, err := blueprint.ParseCUE([]byte(src), "bad.cue")
	var verrs blueprint.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.True(t, verrs.HasCode(blueprint.ErrParse))
}

func TestParseCUE_NegativeSeed(t *testing.T) {
	src := `name: "X"
seed: -1
fields: [{name: "a", type: "uuid"}]
`
	_, err := blueprint.ParseCUE([]byte(src), "bad.cue")
	require.Error(t, err)
}

func TestCompile_Order(t *testing.T) {
	c := compileFile(t, "testdata/order.yaml")
	seed, ok := c.Seed()
	require.True(t, ok)
	assert.Equal(t, uint64(42), seed)

	recs := records(t, c, 50, seed)
	require.Len(t, recs, 50)
	assert.Equal(t, "Order", recs[0].Type().Name())
	assert.Equal(t, []string{"order_id", "quantity", "total", "status", "placed", "code", "label"}, recs[0].FieldNames())

	code := regexp.MustCompile(`^[0-9a-f]{8}$`)
	lo := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	hi := time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC)
	for i, r := range recs {
		assert.Equal(t, int64(1000+i), get(t, r, "order_id"))

		qty := get(t, r, "quantity").(int64)
		assert.GreaterOrEqual(t, qty, int64(1))
		assert.LessOrEqual(t, qty, int64(5))
		// total is computed from the same helper the quantity field clones.
		assert.Equal(t, qty*10, get(t, r, "total"))

		status := get(t, r, "status").(string)
		assert.Contains(t, []string{"new", "paid", "shipped"}, status)

		placed := get(t, r, "placed").(time.Time)
		assert.False(t, placed.Before(lo))
		assert.False(t, placed.After(hi))

		assert.Regexp(t, code, get(t, r, "code"))
		assert.Equal(t, fmt.Sprintf("#%d: %d x %s", 1000+i, qty, status), get(t, r, "label"))
	}
}

func TestCompile_Deterministic(t *testing.T) {
	c := compileFile(t, "testdata/order.yaml")

	a := records(t, c, 10, 99)
	b := records(t, c, 10, 99)
	for i := range a {
		assert.True(t, a[i].Equal(b[i]))
	}

	other := records(t, c, 10, 100)
	same := true
	for i := range a {
		same = same && a[i].Equal(other[i])
	}
	assert.False(t, same, "different seeds produced identical batches")
}

func TestCompile_InstancesAreIndependent(t *testing.T) {
	c := compileFile(t, "testdata/order.yaml")
	g1, err := c.New()
	require.NoError(t, err)
	g2, err := c.New()
	require.NoError(t, err)

	g1.Reset(5)
	g2.Reset(5)
	_, err = g1.Next()
	require.NoError(t, err)

	v1, err := g1.Next()
	require.NoError(t, err)
	g2.Reset(5)
	_, err = g2.Next()
	require.NoError(t, err)
	v2, err := g2.Next()
	require.NoError(t, err)
	assert.True(t, v1.(*record.Record).Equal(v2))
}

func TestCompile_ItemsNameAndFieldOrder(t *testing.T) {
	c, err := compileYAML(t, `
name: PointGenerator
items_name: Pt
field_order: [y, x]
fields:
  - {name: x, type: integer, params: {lo: 0, hi: 9}}
  - {name: y, type: constant, params: {value: 3}}
`)
	require.NoError(t, err)
	recs := records(t, c, 3, 1)
	assert.Equal(t, "Pt", recs[0].Type().Name())
	assert.Equal(t, []string{"y", "x"}, recs[0].FieldNames())
	assert.Equal(t, int64(3), get(t, recs[0], "y"))
}

func TestCompile_EveryType(t *testing.T) {
	c, err := compileYAML(t, `
name: KitchenSinkGenerator
helpers:
  - name: person
    type: constant
    params:
      value: {name: Ann, langs: [go, sql]}
  - name: n
    type: integer
    params: {lo: 1, hi: 2}
fields:
  - {name: b, type: boolean, params: {p: 1}}
  - {name: f, type: float, params: {lo: 0.5, hi: 1.5}}
  - {name: cs, type: char_string, params: {length: 4, charset: ab}}
  - {name: ds, type: digit_string, params: {length: 3}}
  - {name: raw, type: hash_digest, params: {length: 4, as_bytes: true}}
  - {name: id, type: uuid}
  - {name: d, type: date, params: {start: "2020-02-01", end: "2020-02-04", format: "%Y/%m/%d"}}
  - name: tb
    type: timestamp_between
    params: {date: "2021-06-01"}
    kwargs:
      - {name: start, type: constant, params: {value: "2021-06-01 12:00:00"}}
  - name: who
    type: faker
    params: {method: firstname}
  - name: lk
    type: lookup
    inputs: [{type: constant, params: {value: k}}]
    params:
      mapping: {k: found}
  - name: attr
    type: get_attribute
    inputs: [{ref: person}]
    params: {name: name}
  - name: pick
    type: select_multiple
    inputs: [{type: constant, params: {value: [a, b, c]}}]
    params: {num: 2}
  - name: tee
    type: tee
    inputs: [{type: incremental}]
    kwargs: [{name: num, ref: n}]
  - name: joined
    type: apply
    func: join
    inputs: [{type: constant, params: {value: x}}, {type: constant, params: {value: y}}]
    kwargs: [{name: sep, type: constant, params: {value: "-"}}]
`)
	require.NoError(t, err)

	for _, r := range records(t, c, 10, 3) {
		assert.Equal(t, true, get(t, r, "b"))
		f := get(t, r, "f").(float64)
		assert.True(t, f >= 0.5 && f <= 1.5)
		assert.Regexp(t, `^[ab]{4}$`, get(t, r, "cs"))
		assert.Regexp(t, `^[0-9]{3}$`, get(t, r, "ds"))
		assert.Len(t, get(t, r, "raw"), 4)
		assert.Regexp(t, `^[0-9a-f-]{36}$`, get(t, r, "id"))
		assert.Regexp(t, `^2020/02/0[1-4]$`, get(t, r, "d"))

		tb := get(t, r, "tb").(time.Time)
		assert.False(t, tb.Before(time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)))
		assert.False(t, tb.After(time.Date(2021, 6, 1, 23, 59, 59, 0, time.UTC)))

		assert.NotEmpty(t, get(t, r, "who"))
		assert.Equal(t, "found", get(t, r, "lk"))
		assert.Equal(t, "Ann", get(t, r, "attr"))

		pick := get(t, r, "pick").([]any)
		assert.Len(t, pick, 2)
		assert.NotEqual(t, pick[0], pick[1])

		tee := get(t, r, "tee").([]any)
		assert.True(t, len(tee) == 1 || len(tee) == 2)

		assert.Equal(t, "x-y", get(t, r, "joined"))
	}
}

func TestCompile_CustomFunc(t *testing.T) {
	double := func(args []any, _ map[string]any) (any, error) { return args[0].(int64) * 2, nil }
	src := `
name: DoubleGenerator
fields:
  - {name: x, type: integer, params: {lo: 1, hi: 50}}
  - name: y
    type: apply
    func: double
    inputs: [{ref: x}]
`
	_, err := compileYAML(t, src)
	var verrs blueprint.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.True(t, verrs.HasCode(blueprint.ErrUnknownFunc))

	c, err := compileYAML(t, src, blueprint.WithFuncs(map[string]gen.Func{"double": double}))
	require.NoError(t, err)
	for _, r := range records(t, c, 20, 11) {
		assert.Equal(t, get(t, r, "x").(int64)*2, get(t, r, "y"))
	}
}

func TestCompile_FieldAliasIsClone(t *testing.T) {
	c, err := compileYAML(t, `
name: TwinGenerator
fields:
  - {name: a, type: uuid}
  - {name: b, ref: a}
`)
	require.NoError(t, err)
	for _, r := range records(t, c, 5, 8) {
		assert.Equal(t, get(t, r, "a"), get(t, r, "b"))
	}
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code string
		msg  string
	}{
		{
			name: "missing blueprint name",
			src:  "fields: [{name: a, type: uuid}]",
			code: blueprint.ErrMissingName,
		},
		{
			name: "no fields",
			src:  "name: X",
			code: blueprint.ErrNoFields,
		},
		{
			name: "unnamed field",
			src:  "name: X\nfields: [{type: uuid}]",
			code: blueprint.ErrMissingName,
			msg:  "fields[0]",
		},
		{
			name: "unknown type",
			src:  "name: X\nfields: [{name: a, type: gaussian}]",
			code: blueprint.ErrUnknownType,
			msg:  `"gaussian"`,
		},
		{
			name: "no type or ref",
			src:  "name: X\nfields: [{name: a}]",
			code: blueprint.ErrUnknownType,
		},
		{
			name: "duplicate name",
			src:  "name: X\nhelpers: [{name: a, type: uuid}]\nfields: [{name: a, type: uuid}]",
			code: blueprint.ErrDuplicateName,
			msg:  "helpers.a",
		},
		{
			name: "unresolved ref",
			src:  "name: X\nfields: [{name: a, ref: b}]",
			code: blueprint.ErrUnresolvedRef,
		},
		{
			name: "unresolved placeholder",
			src:  "name: X\nfields: [{name: a, type: fstr, template: '{b}'}]",
			code: blueprint.ErrUnresolvedRef,
			msg:  "{b}",
		},
		{
			name: "missing param",
			src:  "name: X\nfields: [{name: a, type: integer, params: {lo: 1}}]",
			code: blueprint.ErrInvalidParam,
			msg:  "fields.a.params.hi",
		},
		{
			name: "unknown param",
			src:  "name: X\nfields: [{name: a, type: uuid, params: {version: 4}}]",
			code: blueprint.ErrInvalidParam,
			msg:  "unknown parameter",
		},
		{
			name: "ill-typed param",
			src:  "name: X\nfields: [{name: a, type: integer, params: {lo: one, hi: 2}}]",
			code: blueprint.ErrInvalidParam,
			msg:  "expected an integer",
		},
		{
			name: "bad time param",
			src:  "name: X\nfields: [{name: a, type: date, params: {start: tomorrow, end: '2020-01-01'}}]",
			code: blueprint.ErrInvalidParam,
		},
		{
			name: "ref with type",
			src:  "name: X\nfields: [{name: a, type: uuid}, {name: b, ref: a, type: uuid}]",
			code: blueprint.ErrInvalidParam,
		},
		{
			name: "field order names unknown field",
			src:  "name: X\nfield_order: [a, z]\nfields: [{name: a, type: uuid}]",
			code: blueprint.ErrInvalidOrder,
			msg:  `"z"`,
		},
		{
			name: "generator rejects config",
			src:  "name: X\nfields: [{name: a, type: integer, params: {lo: 5, hi: 1}}]",
			code: blueprint.ErrGeneratorConfig,
		},
		{
			name: "odd hex digest",
			src:  "name: X\nfields: [{name: a, type: hash_digest, params: {length: 5}}]",
			code: blueprint.ErrGeneratorConfig,
		},
		{
			name: "unknown faker method",
			src:  "name: X\nfields: [{name: a, type: faker, params: {method: nosuchmethod}}]",
			code: blueprint.ErrGeneratorConfig,
		},
		{
			name: "primitive with inputs",
			src:  "name: X\nfields: [{name: a, type: uuid, inputs: [{type: uuid}]}]",
			code: blueprint.ErrInvalidInputs,
		},
		{
			name: "lookup without mapping",
			src:  "name: X\nfields: [{name: a, type: lookup, inputs: [{type: constant, params: {value: k}}]}]",
			code: blueprint.ErrInvalidParam,
			msg:  "mapping",
		},
		{
			name: "tee without num",
			src:  "name: X\nfields: [{name: a, type: tee, inputs: [{type: uuid}]}]",
			code: blueprint.ErrInvalidInputs,
		},
		{
			name: "select with values and inputs",
			src:  "name: X\nfields: [{name: a, type: select_one, values: [1], inputs: [{type: uuid}]}]",
			code: blueprint.ErrInvalidInputs,
		},
		{
			name: "values on wrong type",
			src:  "name: X\nfields: [{name: a, type: uuid, values: [1]}]",
			code: blueprint.ErrInvalidParam,
		},
		{
			name: "empty record name",
			src:  "name: Generator\nfields: [{name: a, type: uuid}]",
			code: blueprint.ErrGeneratorConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compileYAML(t, tt.src)
			require.Error(t, err)
			var verrs blueprint.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			assert.True(t, verrs.HasCode(tt.code), "want %s, got %v", tt.code, verrs)
			if tt.msg != "" {
				assert.Contains(t, err.Error(), tt.msg)
			}
		})
	}
}

func TestCompile_CollectsAllErrors(t *testing.T) {
	_, err := compileYAML(t, `
name: X
fields:
  - {name: a, type: gaussian}
  - {name: b, ref: nowhere}
  - {name: c, type: apply, func: nothing}
`)
	var verrs blueprint.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs, 3)
	assert.True(t, verrs.HasCode(blueprint.ErrUnknownType))
	assert.True(t, verrs.HasCode(blueprint.ErrUnresolvedRef))
	assert.True(t, verrs.HasCode(blueprint.ErrUnknownFunc))
}

func TestCompile_ReferenceCycles(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "two definitions",
			src: `
name: X
fields:
  - {name: a, type: apply, func: str, inputs: [{ref: b}]}
  - {name: b, type: apply, func: str, inputs: [{ref: a}]}
`,
			want: "reference cycle: a -> b -> a",
		},
		{
			name: "self reference",
			src: `
name: X
fields:
  - {name: a, type: apply, func: str, inputs: [{ref: a}]}
`,
			want: "reference cycle: a -> a",
		},
		{
			name: "through a template",
			src: `
name: X
helpers:
  - {name: h, type: apply, func: upper, inputs: [{ref: s}]}
fields:
  - {name: s, type: fstr, template: "{h}!"}
`,
			want: "reference cycle: h -> s -> h",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compileYAML(t, tt.src)
			var verrs blueprint.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			require.True(t, verrs.HasCode(blueprint.ErrReferenceCycle))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestBuiltins(t *testing.T) {
	fns := blueprint.Builtins()
	assert.Equal(t, blueprint.BuiltinNames(), slices.Sorted(maps.Keys(fns)))

	call := func(name string, args []any, kwargs map[string]any) any {
		t.Helper()
		v, err := fns[name](args, kwargs)
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, int64(6), call("add", []any{int64(1), int64(2), int64(3)}, nil))
	assert.Equal(t, 3.5, call("add", []any{int64(1), 2.5}, nil))
	assert.Equal(t, int64(-1), call("sub", []any{int64(1), int64(2)}, nil))
	assert.Equal(t, int64(12), call("mul", []any{int64(3), int64(4)}, nil))
	assert.Equal(t, "ab1", call("concat", []any{"a", "b", int64(1)}, nil))
	assert.Equal(t, "a, b", call("join", []any{"a", "b"}, map[string]any{"sep": ", "}))
	assert.Equal(t, "ABC", call("upper", []any{"abc"}, nil))
	assert.Equal(t, "abc", call("lower", []any{"ABC"}, nil))
	assert.Equal(t, "True", call("str", []any{true}, nil))

	_, err := fns["add"]([]any{"x", int64(1)}, nil)
	assert.Error(t, err)
}
