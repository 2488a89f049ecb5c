package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Type describes the shape of a record: its display name and ordered fields.
type Type struct {
	name   string
	fields []string
	index  map[string]int
}

// NewType creates a record type. The name must be non-empty and field names
// must be unique.
func NewType(name string, fields []string) (*Type, error) {
	if name == "" {
		return nil, fmt.Errorf("record type name must not be empty")
	}
	index := make(map[string]int, len(fields))
	for i, f := range fields {
		if f == "" {
			return nil, fmt.Errorf("record type %s: field %d has empty name", name, i)
		}
		if _, dup := index[f]; dup {
			return nil, fmt.Errorf("record type %s: duplicate field %q", name, f)
		}
		index[f] = i
	}
	return &Type{name: name, fields: append([]string(nil), fields...), index: index}, nil
}

// Name returns the display name used by String.
func (t *Type) Name() string { return t.name }

// Fields returns a copy of the ordered field names.
func (t *Type) Fields() []string { return append([]string(nil), t.fields...) }

// Has reports whether the type declares field.
func (t *Type) Has(field string) bool {
	_, ok := t.index[field]
	return ok
}

// New builds a record from values given in field order.
func (t *Type) New(values ...any) (*Record, error) {
	if len(values) != len(t.fields) {
		return nil, fmt.Errorf("record type %s: expected %d values, got %d", t.name, len(t.fields), len(values))
	}
	return &Record{typ: t, values: append([]any(nil), values...)}, nil
}

// Record is an immutable struct-like value with named, ordered fields.
type Record struct {
	typ    *Type
	values []any
}

// Type returns the record's type.
func (r *Record) Type() *Type { return r.typ }

// Len returns the number of fields.
func (r *Record) Len() int { return len(r.values) }

// FieldNames returns the ordered field names.
func (r *Record) FieldNames() []string { return r.typ.Fields() }

// Values returns a copy of the field values in order.
func (r *Record) Values() []any { return append([]any(nil), r.values...) }

// Get returns the value of field name.
func (r *Record) Get(name string) (any, bool) {
	i, ok := r.typ.index[name]
	if !ok {
		return nil, false
	}
	return r.values[i], true
}

// At returns the i-th field value.
func (r *Record) At(i int) any { return r.values[i] }

// AsMap converts the record to a map keyed by field name.
func (r *Record) AsMap() map[string]any {
	m := make(map[string]any, len(r.values))
	for i, f := range r.typ.fields {
		m[f] = r.values[i]
	}
	return m
}

// Equal reports structural equality. other may be another *Record (field
// sequences compared, type names ignored), a []any compared positionally,
// or a map[string]any compared by field name.
func (r *Record) Equal(other any) bool {
	switch o := other.(type) {
	case *Record:
		if o == nil {
			return false
		}
		if !equalStrings(r.typ.fields, o.typ.fields) {
			return false
		}
		return ValuesEqual(r.values, o.values)
	case []any:
		return ValuesEqual(r.values, o)
	case map[string]any:
		if len(o) != len(r.values) {
			return false
		}
		for i, f := range r.typ.fields {
			v, ok := o[f]
			if !ok || !ValueEqual(r.values[i], v) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// String renders the record as Name(f1=v1, f2=v2).
func (r *Record) String() string {
	var b strings.Builder
	b.WriteString(r.typ.name)
	b.WriteByte('(')
	for i, f := range r.typ.fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f)
		b.WriteByte('=')
		b.WriteString(Repr(r.values[i]))
	}
	b.WriteByte(')')
	return b.String()
}

// MarshalJSON encodes the record as a JSON object in field order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.typ.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(jsonValue(r.values[i]))
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func jsonValue(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.Format(time.RFC3339Nano)
	}
	return v
}

// Repr renders a single value the way String shows it.
func Repr(v any) string {
	switch val := v.(type) {
	case nil:
		return "None"
	case string:
		return strconv.Quote(val)
	case []byte:
		return fmt.Sprintf("b%q", val)
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return val.Format(time.DateOnly)
		}
		return val.Format(time.DateTime)
	case bool:
		if val {
			return "True"
		}
		return "False"
	case *Record:
		return val.String()
	case []any:
		parts := make([]string, len(val))
		for i, e := range val {
			parts[i] = Repr(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprint(val)
	}
}

// ValuesEqual compares two value slices element-wise with ValueEqual.
func ValuesEqual(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !ValueEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

// ValueEqual compares two generated values. Integers of any width compare by
// value, records compare structurally, times compare as instants.
func ValueEqual(a, b any) bool {
	if ai, ok := asInt(a); ok {
		bi, ok := asInt(b)
		return ok && ai == bi
	}
	switch av := a.(type) {
	case *Record:
		return av.Equal(b)
	case []byte:
		bv, ok := b.([]byte)
		return ok && bytes.Equal(av, bv)
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv)
	case []any:
		bv, ok := b.([]any)
		return ok && ValuesEqual(av, bv)
	}
	if br, ok := b.(*Record); ok {
		return br.Equal(a)
	}
	return reflect.DeepEqual(a, b)
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	}
	return 0, false
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
