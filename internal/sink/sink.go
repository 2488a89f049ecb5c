package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/roach88/tohu/internal/batch"
	"github.com/roach88/tohu/internal/record"
)

// Sink consumes a batch of generated items.
type Sink interface {
	// Write projects items through sel and writes every row. The zero
	// Selection writes all record fields.
	Write(ctx context.Context, items *batch.Items, sel batch.Selection) error
}

// Cell renders a value for text output. Strings are written as-is, nil as
// the empty string, and everything else the way records print it.
func Cell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case time.Time:
		return record.Repr(val)
	case *record.Record, []any, map[string]any:
		b, err := record.MarshalCanonical(val)
		if err != nil {
			return record.Repr(val)
		}
		return string(b)
	}
	return record.Repr(v)
}

// rowObject pairs a table row with its column names.
func rowObject(cols []string, row []any) map[string]any {
	obj := make(map[string]any, len(cols))
	for i, c := range cols {
		obj[c] = row[i]
	}
	return obj
}

// output is a destination for text sinks: a file path or a writer.
type output struct {
	w        io.Writer
	close    func() error
	nonEmpty bool
}

// openOutput opens path for writing, or wraps w (stdout if nil) when path
// is empty. With appendTo, an existing file is extended and nonEmpty reports
// whether it already held data.
func openOutput(path string, w io.Writer, appendTo bool) (*output, error) {
	if path == "" {
		if w == nil {
			w = os.Stdout
		}
		return &output{w: w, close: func() error { return nil }}, nil
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	nonEmpty := false
	if appendTo {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
		info, err := os.Stat(path)
		switch {
		case err == nil:
			nonEmpty = info.Size() > 0
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &output{w: f, close: f.Close, nonEmpty: nonEmpty}, nil
}
