package gen

import (
	"fmt"
	"time"

	"github.com/ncruces/go-strftime"

	"github.com/roach88/tohu/internal/seed"
)

// Layouts accepted by ParseTime, tried in order.
var timeLayouts = []string{
	time.DateTime,
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	time.DateOnly,
}

// ParseTime parses "YYYY-MM-DD HH:MM:SS", ISO 8601 / RFC 3339, or a bare
// "YYYY-MM-DD" date. The result is always in UTC.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as a date or timestamp", s)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).Add(24*time.Hour - time.Second)
}

func sameDate(a, b time.Time) bool {
	return startOfDay(a).Equal(startOfDay(b))
}

// TimestampConfig configures NewTimestamp. Zero times are unset. Exactly one
// of these combinations is valid: Start and End; Start and Date; End and
// Date; Date alone.
type TimestampConfig struct {
	Start time.Time
	End   time.Time
	Date  time.Time

	// Format, if set, is a strftime format; values are then strings.
	Format string
}

// Timestamp yields times uniformly distributed over whole seconds between
// two bounds.
type Timestamp struct {
	base
	leaf
	start, end time.Time
	format     string
	rng        *seed.Rand
}

// NewTimestamp validates cfg and returns a timestamp generator.
func NewTimestamp(cfg TimestampConfig) (*Timestamp, error) {
	start, end, err := resolveBounds("Timestamp", cfg.Start, cfg.End, cfg.Date)
	if err != nil {
		return nil, err
	}
	return newTimestamp(start, end, cfg.Format), nil
}

func newTimestamp(start, end time.Time, format string) *Timestamp {
	g := &Timestamp{start: start, end: end, format: format}
	g.init(g, "Timestamp")
	return g
}

// resolveBounds applies the date shorthand and checks the bound combination.
func resolveBounds(op string, start, end, date time.Time) (time.Time, time.Time, error) {
	hasStart, hasEnd, hasDate := !start.IsZero(), !end.IsZero(), !date.IsZero()

	switch {
	case hasStart && hasEnd && !hasDate:
	case hasDate && !hasStart && !hasEnd:
		start, end = startOfDay(date), endOfDay(date)
	case hasDate && hasStart && !hasEnd:
		if !sameDate(start, date) {
			return start, end, configError(op, "start %s is not on date %s", start.Format(time.DateTime), date.Format(time.DateOnly))
		}
		end = endOfDay(date)
	case hasDate && hasEnd && !hasStart:
		if !sameDate(end, date) {
			return start, end, configError(op, "end %s is not on date %s", end.Format(time.DateTime), date.Format(time.DateOnly))
		}
		start = startOfDay(date)
	default:
		return start, end, configError(op, "invalid combination of bounds: need start+end, start+date, end+date, or date")
	}

	start, end = ceilSecond(start.UTC()), end.UTC().Truncate(time.Second)
	if start.After(end) {
		return start, end, configError(op, "start %s is after end %s", start.Format(time.DateTime), end.Format(time.DateTime))
	}
	return start, end, nil
}

func ceilSecond(t time.Time) time.Time {
	if t.Nanosecond() == 0 {
		return t
	}
	return t.Truncate(time.Second).Add(time.Second)
}

// Bounds returns the resolved inclusive bounds.
func (g *Timestamp) Bounds() (start, end time.Time) { return g.start, g.end }

func (g *Timestamp) Next() (any, error) {
	return formatTime(uniformSecond(g.rng, g.start, g.end), g.format), nil
}

func uniformSecond(rng *seed.Rand, start, end time.Time) time.Time {
	span := end.Unix() - start.Unix()
	return time.Unix(start.Unix()+rng.Int64N(span+1), 0).UTC()
}

func formatTime(t time.Time, format string) any {
	if format == "" {
		return t
	}
	return strftime.Format(format, t)
}

func (g *Timestamp) reseed(s *seed.Stream) { g.rng = seed.NewRand(s.Next()) }

func (g *Timestamp) fresh([]Generator) Generator { return newTimestamp(g.start, g.end, g.format) }

func (g *Timestamp) restoreFrom(src Generator) { g.rng = src.(*Timestamp).rng.Copy() }

// DateConfig configures NewDate. Both bounds are required; the time of day
// is ignored.
type DateConfig struct {
	Start time.Time
	End   time.Time

	// Format, if set, is a strftime format; values are then strings.
	Format string
}

// Date yields dates (midnight UTC) uniformly distributed over days.
type Date struct {
	base
	leaf
	start  time.Time
	days   int
	format string
	rng    *seed.Rand
}

// NewDate validates cfg and returns a date generator.
func NewDate(cfg DateConfig) (*Date, error) {
	if cfg.Start.IsZero() || cfg.End.IsZero() {
		return nil, configError("Date", "both start and end are required")
	}
	start, end := startOfDay(cfg.Start), startOfDay(cfg.End)
	if start.After(end) {
		return nil, configError("Date", "start %s is after end %s", start.Format(time.DateOnly), end.Format(time.DateOnly))
	}
	days := int(end.Sub(start) / (24 * time.Hour))
	return newDate(start, days, cfg.Format), nil
}

func newDate(start time.Time, days int, format string) *Date {
	g := &Date{start: start, days: days, format: format}
	g.init(g, "Date")
	return g
}

func (g *Date) Next() (any, error) {
	return formatTime(g.start.AddDate(0, 0, g.rng.IntN(g.days+1)), g.format), nil
}

func (g *Date) reseed(s *seed.Stream) { g.rng = seed.NewRand(s.Next()) }

func (g *Date) fresh([]Generator) Generator { return newDate(g.start, g.days, g.format) }

func (g *Date) restoreFrom(src Generator) { g.rng = src.(*Date).rng.Copy() }
