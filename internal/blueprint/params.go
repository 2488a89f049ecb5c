package blueprint

import (
	"fmt"
	"maps"
	"math"
	"reflect"
	"slices"
	"time"

	"github.com/roach88/tohu/internal/gen"
)

// params reads a definition's parameters, recording an E206 error for every
// missing, ill-typed or unknown key.
type params struct {
	c      *compiler
	path   string
	m      map[string]any
	used   map[string]bool
	failed bool
}

func (c *compiler) params(path string, m map[string]any) *params {
	return &params{c: c, path: path, m: m, used: make(map[string]bool)}
}

func (p *params) fail(key, format string, args ...any) {
	p.failed = true
	p.c.errorf(ErrInvalidParam, p.path+".params."+key, format, args...)
}

func (p *params) get(key string, required bool) (any, bool) {
	v, ok := p.m[key]
	if ok {
		p.used[key] = true
	} else if required {
		p.fail(key, "required parameter is missing")
	}
	return v, ok
}

func (p *params) int(key string, def int64, required bool) int64 {
	v, ok := p.get(key, required)
	if !ok {
		return def
	}
	n, ok := asInt64(v)
	if !ok {
		p.fail(key, "expected an integer, got %T", v)
	}
	return n
}

func (p *params) float(key string, def float64, required bool) float64 {
	v, ok := p.get(key, required)
	if !ok {
		return def
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	}
	if n, ok := asInt64(v); ok {
		return float64(n)
	}
	p.fail(key, "expected a number, got %T", v)
	return def
}

func (p *params) string(key, def string, required bool) string {
	v, ok := p.get(key, required)
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		p.fail(key, "expected a string, got %T", v)
	}
	return s
}

func (p *params) bool(key string) bool {
	v, ok := p.get(key, false)
	if !ok {
		return false
	}
	b, ok := v.(bool)
	if !ok {
		p.fail(key, "expected true or false, got %T", v)
	}
	return b
}

// time accepts time values and the layouts gen.ParseTime understands. An
// absent key yields the zero time.
func (p *params) time(key string, required bool) time.Time {
	v, ok := p.get(key, required)
	if !ok {
		return time.Time{}
	}
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case string:
		parsed, err := gen.ParseTime(t)
		if err != nil {
			p.fail(key, "%v", err)
		}
		return parsed
	}
	p.fail(key, "expected a date or datetime, got %T", v)
	return time.Time{}
}

func (p *params) floats(key string) []float64 {
	v, ok := p.get(key, false)
	if !ok {
		return nil
	}
	list, ok := v.([]any)
	if !ok {
		p.fail(key, "expected a list of numbers, got %T", v)
		return nil
	}
	out := make([]float64, len(list))
	for i, e := range list {
		rv := reflect.ValueOf(e)
		switch {
		case rv.Kind() == reflect.Float64 || rv.Kind() == reflect.Float32:
			out[i] = rv.Float()
		default:
			n, ok := asInt64(e)
			if !ok {
				p.fail(key, "element %d is %T, not a number", i, e)
				return nil
			}
			out[i] = float64(n)
		}
	}
	return out
}

// stringMap reads a map of scalars as strings.
func (p *params) stringMap(key string) map[string]string {
	v, ok := p.get(key, false)
	if !ok {
		return nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		p.fail(key, "expected a mapping, got %T", v)
		return nil
	}
	out := make(map[string]string, len(m))
	for k, e := range m {
		out[k] = fmt.Sprint(e)
	}
	return out
}

// done reports keys that no accessor asked for.
func (p *params) done() {
	for _, k := range slices.Sorted(maps.Keys(p.m)) {
		if !p.used[k] {
			p.fail(k, "unknown parameter")
		}
	}
}

func asInt64(v any) (int64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, false
		}
		return int64(u), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
			return int64(f), true
		}
	}
	return 0, false
}

// normalizeValue converts decoded integers to int64, recursively, so that
// constants from YAML and CUE match generated integers.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case int:
		return int64(val)
	case int32:
		return int64(val)
	case uint64:
		if val <= math.MaxInt64 {
			return int64(val)
		}
		return val
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = normalizeValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = normalizeValue(e)
		}
		return out
	}
	return v
}
