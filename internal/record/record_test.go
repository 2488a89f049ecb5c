package record

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustType(t *testing.T, name string, fields ...string) *Type {
	t.Helper()
	typ, err := NewType(name, fields)
	require.NoError(t, err)
	return typ
}

func TestNewType_Validation(t *testing.T) {
	_, err := NewType("", []string{"a"})
	assert.Error(t, err)

	_, err = NewType("Quux", []string{"a", "a"})
	assert.ErrorContains(t, err, "duplicate field")

	_, err = NewType("Quux", []string{"a", ""})
	assert.Error(t, err)
}

func TestRecord_Accessors(t *testing.T) {
	typ := mustType(t, "Quux", "aa", "bb")
	r, err := typ.New(int64(3), "F0A1")
	require.NoError(t, err)

	assert.Equal(t, []string{"aa", "bb"}, r.FieldNames())
	v, ok := r.Get("bb")
	assert.True(t, ok)
	assert.Equal(t, "F0A1", v)
	_, ok = r.Get("zz")
	assert.False(t, ok)
	assert.Equal(t, map[string]any{"aa": int64(3), "bb": "F0A1"}, r.AsMap())
	assert.Equal(t, 2, r.Len())
}

func TestType_NewArity(t *testing.T) {
	typ := mustType(t, "Quux", "aa", "bb")
	_, err := typ.New(1)
	assert.Error(t, err)
}

func TestRecord_ValuesIsCopy(t *testing.T) {
	typ := mustType(t, "Quux", "aa")
	r, _ := typ.New("x")
	vals := r.Values()
	vals[0] = "y"
	assert.Equal(t, "x", r.At(0))
}

func TestRecord_Equal(t *testing.T) {
	typ := mustType(t, "Quux", "aa", "bb")
	other := mustType(t, "Other", "aa", "bb")
	swapped := mustType(t, "Quux", "bb", "aa")

	r, _ := typ.New(int64(3), "x")
	same, _ := other.New(3, "x")
	diff, _ := typ.New(int64(4), "x")
	rev, _ := swapped.New("x", int64(3))

	assert.True(t, r.Equal(same), "type name does not matter")
	assert.False(t, r.Equal(diff))
	assert.False(t, r.Equal(rev), "field order matters")

	assert.True(t, r.Equal([]any{3, "x"}))
	assert.False(t, r.Equal([]any{3}))
	assert.True(t, r.Equal(map[string]any{"aa": 3, "bb": "x"}))
	assert.False(t, r.Equal(map[string]any{"aa": 3, "cc": "x"}))
	assert.False(t, r.Equal("Quux"))
}

func TestRecord_String(t *testing.T) {
	typ := mustType(t, "Quux", "aa", "bb", "cc", "dd")
	r, _ := typ.New(int64(3), "Jane \"J\" Doe", true, time.Date(2018, 1, 2, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, `Quux(aa=3, bb="Jane \"J\" Doe", cc=True, dd=2018-01-02)`, r.String())

	ts, _ := mustType(t, "T", "ts").New(time.Date(2018, 1, 2, 3, 4, 5, 0, time.UTC))
	assert.Equal(t, `T(ts=2018-01-02 03:04:05)`, ts.String())
}

func TestRecord_MarshalJSONKeepsFieldOrder(t *testing.T) {
	typ := mustType(t, "Quux", "zz", "aa")
	r, _ := typ.New("last", int64(1))
	b, err := r.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"zz":"last","aa":1}`, string(b))
}

func TestValueEqual(t *testing.T) {
	assert.True(t, ValueEqual(int64(5), 5))
	assert.True(t, ValueEqual(int32(5), uint8(5)))
	assert.False(t, ValueEqual(int64(5), 5.0))
	assert.True(t, ValueEqual([]byte{1, 2}, []byte{1, 2}))
	assert.True(t, ValueEqual([]any{1, "a"}, []any{int64(1), "a"}))
	now := time.Now()
	assert.True(t, ValueEqual(now, now.In(time.FixedZone("x", 3600))))
}

func TestResolve(t *testing.T) {
	addr, _ := mustType(t, "Address", "city", "zip").New("Leeds", "LS1")
	person, _ := mustType(t, "Person", "name", "address").New("Ann", addr)

	v, err := Resolve(person, "address.city")
	require.NoError(t, err)
	assert.Equal(t, "Leeds", v)

	v, err = Resolve(map[string]any{"a": map[string]any{"b": 1}}, "a.b")
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	_, err = Resolve(person, "address.country")
	var pe *PathError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "country", pe.Segment)
	assert.Contains(t, err.Error(), "record Address")

	_, err = Resolve(person, "name.first")
	assert.Error(t, err)
}
