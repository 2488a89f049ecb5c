package sink

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/tohu/internal/batch"
)

// Frame is an in-memory columnar table. Writing several batches appends
// rows; every batch must project to the same columns.
type Frame struct {
	columns []string
	data    map[string][]any
	rows    int
}

var _ Sink = (*Frame)(nil)

// NewFrame returns an empty frame.
func NewFrame() *Frame {
	return &Frame{data: make(map[string][]any)}
}

// ToFrame projects items into a new frame.
func ToFrame(items *batch.Items, sel batch.Selection) (*Frame, error) {
	f := NewFrame()
	if err := f.Write(context.Background(), items, sel); err != nil {
		return nil, err
	}
	return f, nil
}

// Write implements Sink.
func (f *Frame) Write(ctx context.Context, items *batch.Items, sel batch.Selection) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tbl, err := items.Table(sel)
	if err != nil {
		return fmt.Errorf("frame: %w", err)
	}
	if f.columns == nil {
		f.columns = slices.Clone(tbl.Columns)
	} else if !slices.Equal(f.columns, tbl.Columns) {
		return fmt.Errorf("frame: columns %v do not match existing columns %v", tbl.Columns, f.columns)
	}
	for j, c := range f.columns {
		col := f.data[c]
		for _, row := range tbl.Rows {
			col = append(col, row[j])
		}
		f.data[c] = col
	}
	f.rows += len(tbl.Rows)
	return nil
}

// Columns returns the column names in order.
func (f *Frame) Columns() []string { return slices.Clone(f.columns) }

// Len returns the number of rows.
func (f *Frame) Len() int { return f.rows }

// Column returns the values of one column.
func (f *Frame) Column(name string) ([]any, bool) {
	col, ok := f.data[name]
	if !ok {
		return nil, false
	}
	return slices.Clone(col), true
}

// Row returns row i as a column -> value map.
func (f *Frame) Row(i int) map[string]any {
	row := make(map[string]any, len(f.columns))
	for _, c := range f.columns {
		row[c] = f.data[c][i]
	}
	return row
}
