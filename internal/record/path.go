package record

import (
	"fmt"
	"strings"
)

// PathError reports a dotted path segment that could not be resolved.
type PathError struct {
	Path    string // full dotted path
	Segment string // segment that failed
	Value   any    // value the segment was applied to
}

func (e *PathError) Error() string {
	return fmt.Sprintf("cannot resolve %q in path %q on %s", e.Segment, e.Path, describe(e.Value))
}

// Resolve walks a dotted path such as "address.city" through nested records
// and string-keyed maps.
func Resolve(v any, path string) (any, error) {
	if path == "" {
		return nil, &PathError{Path: path, Segment: path, Value: v}
	}
	cur := v
	for _, seg := range strings.Split(path, ".") {
		next, ok := field(cur, seg)
		if !ok {
			return nil, &PathError{Path: path, Segment: seg, Value: cur}
		}
		cur = next
	}
	return cur, nil
}

func field(v any, name string) (any, bool) {
	switch val := v.(type) {
	case *Record:
		if val == nil {
			return nil, false
		}
		return val.Get(name)
	case map[string]any:
		out, ok := val[name]
		return out, ok
	}
	return nil, false
}

func describe(v any) string {
	if r, ok := v.(*Record); ok && r != nil {
		return "record " + r.typ.name
	}
	return fmt.Sprintf("%T", v)
}
