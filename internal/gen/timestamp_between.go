package gen

import (
	"fmt"
	"time"

	"github.com/roach88/tohu/internal/seed"
)

// TimestampBetween yields timestamps between bounds that are themselves
// generated.
type TimestampBetween struct {
	base
	derived
	hasStart, hasEnd bool
	date             time.Time
	format           string
	rng              *seed.Rand
}

// TimestampOption configures NewTimestampBetween.
type TimestampOption func(*TimestampBetween)

// OnDate supplies a date: a nil bound defaults to its start (00:00:00) or
// end (23:59:59).
func OnDate(d time.Time) TimestampOption {
	return func(g *TimestampBetween) { g.date = startOfDay(d) }
}

// WithFormat makes the generator yield strftime-formatted strings.
func WithFormat(format string) TimestampOption {
	return func(g *TimestampBetween) { g.format = format }
}

// NewTimestampBetween returns a timestamp generator whose bounds come from
// start and end, either of which may be nil when OnDate is given. Bound
// values may be time.Time or strings accepted by ParseTime.
//
// When both bounds are Timestamp primitives, the latest possible start must
// not be after the earliest possible end.
func NewTimestampBetween(start, end Generator, opts ...TimestampOption) (*TimestampBetween, error) {
	probe := &TimestampBetween{}
	for _, opt := range opts {
		opt(probe)
	}
	hasDate := !probe.date.IsZero()
	switch {
	case start != nil && end != nil && !hasDate:
	case hasDate && (start == nil) != (end == nil):
	case hasDate && start == nil && end == nil:
	default:
		return nil, configError("Timestamp", "invalid combination of bounds: need start+end, start+date, end+date, or date")
	}

	if s, ok := start.(*Timestamp); ok {
		if e, ok := end.(*Timestamp); ok && s.format == "" && e.format == "" {
			_, latestStart := s.Bounds()
			earliestEnd, _ := e.Bounds()
			if latestStart.After(earliestEnd) {
				return nil, newError(KindTimestamp, "Timestamp",
					"latest possible start %s is after earliest possible end %s",
					latestStart.Format(time.DateTime), earliestEnd.Format(time.DateTime))
			}
		}
	}

	var inputs []Generator
	if start != nil {
		inputs = append(inputs, start)
	}
	if end != nil {
		inputs = append(inputs, end)
	}
	return newTimestampBetween(inputs, start != nil, end != nil, probe.date, probe.format), nil
}

func newTimestampBetween(inputs []Generator, hasStart, hasEnd bool, date time.Time, format string) *TimestampBetween {
	g := &TimestampBetween{
		derived:  newDerived(inputs),
		hasStart: hasStart,
		hasEnd:   hasEnd,
		date:     date,
		format:   format,
	}
	g.init(g, "TimestampBetween")
	return g
}

func (g *TimestampBetween) Next() (any, error) {
	vals, err := g.advance()
	if err != nil {
		return nil, err
	}

	start, end := g.date, endOfDay(g.date)
	i := 0
	if g.hasStart {
		if start, err = asTime(vals[i]); err != nil {
			return nil, &Error{Kind: KindTimestamp, Op: "Timestamp.Next", Message: "invalid start bound", GeneratorID: g.id, Err: err}
		}
		if err := g.checkDate("start", start); err != nil {
			return nil, err
		}
		i++
	}
	if g.hasEnd {
		if end, err = asTime(vals[i]); err != nil {
			return nil, &Error{Kind: KindTimestamp, Op: "Timestamp.Next", Message: "invalid end bound", GeneratorID: g.id, Err: err}
		}
		if err := g.checkDate("end", end); err != nil {
			return nil, err
		}
	}

	start, end = ceilSecond(start), end.Truncate(time.Second)
	if start.After(end) {
		return nil, &Error{
			Kind:        KindTimestamp,
			Op:          "Timestamp.Next",
			Message:     fmt.Sprintf("start %s is after end %s", start.Format(time.DateTime), end.Format(time.DateTime)),
			GeneratorID: g.id,
		}
	}
	return formatTime(uniformSecond(g.rng, start, end), g.format), nil
}

// checkDate rejects a generated bound that falls outside the OnDate day.
func (g *TimestampBetween) checkDate(which string, bound time.Time) error {
	if g.date.IsZero() || sameDate(bound, g.date) {
		return nil
	}
	return &Error{
		Kind:        KindTimestamp,
		Op:          "Timestamp.Next",
		Message:     fmt.Sprintf("%s %s is not on date %s", which, bound.Format(time.DateTime), g.date.Format(time.DateOnly)),
		GeneratorID: g.id,
	}
}

func asTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		return ParseTime(t)
	}
	return time.Time{}, fmt.Errorf("expected a time, got %T", v)
}

func (g *TimestampBetween) reseed(s *seed.Stream) { g.rng = seed.NewRand(s.Next()) }

func (g *TimestampBetween) fresh(inputs []Generator) Generator {
	return newTimestampBetween(inputs, g.hasStart, g.hasEnd, g.date, g.format)
}

func (g *TimestampBetween) restoreFrom(src Generator) {
	o := src.(*TimestampBetween)
	g.rng = o.rng.Copy()
	g.restoreConstituents(&o.derived)
}
