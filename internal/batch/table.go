package batch

import (
	"fmt"

	"github.com/roach88/tohu/internal/record"
)

// Column maps an output column name to a dotted path into each item.
type Column struct {
	Name string
	Path string
}

// Selection chooses and orders the columns a sink writes. The zero value
// selects every field of the records in the batch.
type Selection struct {
	columns []Column
}

// Fields selects record fields by name, in the given order.
func Fields(names ...string) Selection {
	cols := make([]Column, len(names))
	for i, n := range names {
		cols[i] = Column{Name: n, Path: n}
	}
	return Selection{columns: cols}
}

// Columns selects output columns from dotted paths, e.g.
// Column{Name: "city", Path: "address.city"}.
func Columns(cols ...Column) Selection {
	return Selection{columns: append([]Column(nil), cols...)}
}

// IsZero reports whether the selection is the default "all fields".
func (s Selection) IsZero() bool { return len(s.columns) == 0 }

// Columns returns the explicit columns.
func (s Selection) Columns() []Column { return append([]Column(nil), s.columns...) }

// resolve returns the columns for it, expanding the zero selection.
func (s Selection) resolve(it *Items) []Column {
	if !s.IsZero() {
		return s.columns
	}
	if names := it.FieldNames(); names != nil {
		return Fields(names...).columns
	}
	return []Column{{Name: "value"}}
}

// Table is a projected batch: a header and rows of cell values.
type Table struct {
	Columns []string
	Rows    [][]any
}

// Table projects the batch through sel. Column names must be unique.
func (it *Items) Table(sel Selection) (*Table, error) {
	cols := sel.resolve(it)
	t := &Table{Columns: make([]string, len(cols)), Rows: make([][]any, len(it.values))}
	seen := make(map[string]bool, len(cols))
	for i, c := range cols {
		if seen[c.Name] {
			return nil, fmt.Errorf("duplicate column %q", c.Name)
		}
		seen[c.Name] = true
		t.Columns[i] = c.Name
	}
	for i, v := range it.values {
		row := make([]any, len(cols))
		for j, c := range cols {
			if c.Path == "" {
				row[j] = v
				continue
			}
			cell, err := record.Resolve(v, c.Path)
			if err != nil {
				return nil, fmt.Errorf("row %d, column %q: %w", i, c.Name, err)
			}
			row[j] = cell
		}
		t.Rows[i] = row
	}
	return t, nil
}

// Header returns the column names with prefix prepended.
func (t *Table) Header(prefix string) []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = prefix + c
	}
	return out
}
