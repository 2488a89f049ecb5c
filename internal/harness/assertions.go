package harness

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/roach88/tohu/internal/batch"
	"github.com/roach88/tohu/internal/record"
)

// maxShown caps the offending items listed in an AssertionError.
const maxShown = 5

// AssertionError is returned when an assertion fails.
// It includes the offending items to help debug the failure.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Field    string   // Field or path under test
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Items    []string // First offending items, rendered
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s", e.Type)
	if e.Field != "" {
		fmt.Fprintf(&buf, " on %s", e.Field)
	}
	buf.WriteString("\n")
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Items) > 0 {
		fmt.Fprintf(&buf, "\nOffending items:\n")
		for _, item := range e.Items {
			fmt.Fprintf(&buf, "  %s\n", item)
		}
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion against the batch and returns
// one message per failed assertion.
func EvaluateAssertions(items *batch.Items, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(items, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return errs
}

func evaluate(items *batch.Items, a Assertion) error {
	values := make([]any, items.Len())
	for i, item := range items.All() {
		v, err := fieldValue(item, a.Field)
		if err != nil {
			return &AssertionError{
				Type:     a.Type,
				Field:    a.Field,
				Expected: "field present on every item",
				Actual:   err.Error(),
				Items:    []string{fmt.Sprintf("[%d] %s", i, record.Repr(item))},
			}
		}
		values[i] = v
	}

	switch a.Type {
	case AssertRange:
		return assertRange(values, a)
	case AssertPattern:
		return assertPattern(values, a)
	case AssertDistinct:
		return assertDistinct(values, a)
	case AssertOneOf:
		return assertOneOf(values, a)
	case AssertNotNull:
		return assertNotNull(values, a)
	}
	return fmt.Errorf("unknown assertion type: %s", a.Type)
}

func fieldValue(item any, field string) (any, error) {
	if field == "" {
		return item, nil
	}
	return record.Resolve(item, field)
}

// offenders renders the values failing pred, capped at maxShown.
func offenders(values []any, pred func(any) bool) (count int, shown []string) {
	for i, v := range values {
		if pred(v) {
			continue
		}
		count++
		if len(shown) < maxShown {
			shown = append(shown, fmt.Sprintf("[%d] %s", i, record.Repr(v)))
		}
	}
	return count, shown
}

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// assertRange checks that every value is a number within [min, max].
func assertRange(values []any, a Assertion) error {
	inRange := func(v any) bool {
		f, ok := toFloat(v)
		if !ok {
			return false
		}
		return (a.Min == nil || f >= *a.Min) && (a.Max == nil || f <= *a.Max)
	}
	n, shown := offenders(values, inRange)
	if n == 0 {
		return nil
	}

	bounds := "["
	if a.Min != nil {
		bounds += fmt.Sprint(*a.Min)
	} else {
		bounds += "-inf"
	}
	bounds += ", "
	if a.Max != nil {
		bounds += fmt.Sprint(*a.Max)
	} else {
		bounds += "inf"
	}
	bounds += "]"

	return &AssertionError{
		Type:     AssertRange,
		Field:    a.Field,
		Expected: "numbers within " + bounds,
		Actual:   fmt.Sprintf("%d of %d values outside", n, len(values)),
		Items:    shown,
	}
}

// assertPattern checks values against a regular expression. Strings match
// as they are; other values match their printed form.
func assertPattern(values []any, a Assertion) error {
	re, err := regexp.Compile(a.Pattern)
	if err != nil {
		return fmt.Errorf("invalid pattern: %w", err)
	}
	n, shown := offenders(values, func(v any) bool {
		s, ok := v.(string)
		if !ok {
			s = record.Repr(v)
		}
		return re.MatchString(s)
	})
	if n == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertPattern,
		Field:    a.Field,
		Expected: fmt.Sprintf("values matching %q", a.Pattern),
		Actual:   fmt.Sprintf("%d of %d values do not match", n, len(values)),
		Items:    shown,
	}
}

// assertDistinct checks that no two values are equal.
func assertDistinct(values []any, a Assertion) error {
	seen := make(map[string]int, len(values))
	var dups []string
	for i, v := range values {
		key, err := distinctKey(v)
		if err != nil {
			return fmt.Errorf("cannot compare value %d: %w", i, err)
		}
		if first, ok := seen[key]; ok {
			if len(dups) < maxShown {
				dups = append(dups, fmt.Sprintf("[%d] and [%d] are both %s", first, i, record.Repr(v)))
			}
			continue
		}
		seen[key] = i
	}
	if len(seen) == len(values) {
		return nil
	}
	return &AssertionError{
		Type:     AssertDistinct,
		Field:    a.Field,
		Expected: fmt.Sprintf("%d distinct values", len(values)),
		Actual:   fmt.Sprintf("%d distinct values", len(seen)),
		Items:    dups,
	}
}

// distinctKey identifies a value by content. Whole records are keyed by
// their content hash.
func distinctKey(v any) (string, error) {
	if r, ok := v.(*record.Record); ok {
		return record.Hash(r)
	}
	key, err := record.MarshalCanonical(v)
	return string(key), err
}

// assertOneOf checks that every value equals one of the allowed values.
// Integers compare by value whatever their width.
func assertOneOf(values []any, a Assertion) error {
	n, shown := offenders(values, func(v any) bool {
		for _, allowed := range a.Values {
			if record.ValueEqual(v, allowed) {
				return true
			}
		}
		return false
	})
	if n == 0 {
		return nil
	}
	allowed := make([]string, len(a.Values))
	for i, v := range a.Values {
		allowed[i] = record.Repr(v)
	}
	return &AssertionError{
		Type:     AssertOneOf,
		Field:    a.Field,
		Expected: "one of " + strings.Join(allowed, ", "),
		Actual:   fmt.Sprintf("%d of %d values not allowed", n, len(values)),
		Items:    shown,
	}
}

func assertNotNull(values []any, a Assertion) error {
	n, shown := offenders(values, func(v any) bool { return v != nil })
	if n == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertNotNull,
		Field:    a.Field,
		Expected: "no null values",
		Actual:   fmt.Sprintf("%d of %d values are null", n, len(values)),
		Items:    shown,
	}
}
