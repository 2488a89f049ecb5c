package blueprint

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"

	"github.com/roach88/tohu/internal/gen"
	"github.com/roach88/tohu/internal/record"
)

// Builtins returns the functions available to apply definitions.
func Builtins() map[string]gen.Func {
	return maps.Clone(builtins)
}

// BuiltinNames lists the builtin function names, sorted.
func BuiltinNames() []string {
	return slices.Sorted(maps.Keys(builtins))
}

var builtins = map[string]gen.Func{
	"add":    arith("add", func(a, b int64) int64 { return a + b }, func(a, b float64) float64 { return a + b }),
	"sub":    arith("sub", func(a, b int64) int64 { return a - b }, func(a, b float64) float64 { return a - b }),
	"mul":    arith("mul", func(a, b int64) int64 { return a * b }, func(a, b float64) float64 { return a * b }),
	"concat": concat,
	"join":   join,
	"upper":  stringFunc("upper", strings.ToUpper),
	"lower":  stringFunc("lower", strings.ToLower),
	"str":    str,
	"len":    length,
}

// number reads an integer or float argument.
func number(v any) (i int64, f float64, isInt, ok bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), float64(rv.Int()), true, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint()), float64(rv.Uint()), true, true
	case reflect.Float32, reflect.Float64:
		return 0, rv.Float(), false, true
	}
	return 0, 0, false, false
}

// arith folds its positional arguments left to right. The result is int64
// while every argument is an integer, float64 otherwise.
func arith(name string, ints func(a, b int64) int64, floats func(a, b float64) float64) gen.Func {
	return func(args []any, _ map[string]any) (any, error) {
		if len(args) < 2 {
			return nil, fmt.Errorf("%s: needs at least 2 arguments, got %d", name, len(args))
		}
		accI, accF, allInt, ok := number(args[0])
		if !ok {
			return nil, fmt.Errorf("%s: argument 0 is %T, not a number", name, args[0])
		}
		for i, a := range args[1:] {
			bi, bf, isInt, ok := number(a)
			if !ok {
				return nil, fmt.Errorf("%s: argument %d is %T, not a number", name, i+1, a)
			}
			if allInt && isInt {
				accI = ints(accI, bi)
				accF = float64(accI)
				continue
			}
			allInt = false
			accF = floats(accF, bf)
		}
		if allInt {
			return accI, nil
		}
		return accF, nil
	}
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return record.Repr(v)
}

func concat(args []any, _ map[string]any) (any, error) {
	var b strings.Builder
	for _, a := range args {
		b.WriteString(toString(a))
	}
	return b.String(), nil
}

func join(args []any, kwargs map[string]any) (any, error) {
	sep := ""
	if s, ok := kwargs["sep"]; ok {
		sep = toString(s)
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = toString(a)
	}
	return strings.Join(parts, sep), nil
}

func stringFunc(name string, fn func(string) string) gen.Func {
	return func(args []any, _ map[string]any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("%s: needs 1 argument, got %d", name, len(args))
		}
		s, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("%s: argument is %T, not a string", name, args[0])
		}
		return fn(s), nil
	}
}

func str(args []any, _ map[string]any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("str: needs 1 argument, got %d", len(args))
	}
	return toString(args[0]), nil
}

func length(args []any, _ map[string]any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("len: needs 1 argument, got %d", len(args))
	}
	switch v := args[0].(type) {
	case string:
		return int64(len([]rune(v))), nil
	case *record.Record:
		return int64(v.Len()), nil
	}
	rv := reflect.ValueOf(args[0])
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return int64(rv.Len()), nil
	}
	return nil, fmt.Errorf("len: %T has no length", args[0])
}
