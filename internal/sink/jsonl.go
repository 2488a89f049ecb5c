package sink

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/roach88/tohu/internal/batch"
	"github.com/roach88/tohu/internal/record"
)

// JSONLines writes one canonical JSON object per row.
type JSONLines struct {
	// Path is the output file. When empty, rows go to Out.
	Path string

	// Out receives rows when Path is empty. Defaults to os.Stdout.
	Out io.Writer

	// Append extends Path instead of truncating it.
	Append bool
}

var _ Sink = (*JSONLines)(nil)

// Write implements Sink.
func (j *JSONLines) Write(ctx context.Context, items *batch.Items, sel batch.Selection) error {
	tbl, err := items.Table(sel)
	if err != nil {
		return fmt.Errorf("jsonl: %w", err)
	}
	out, err := openOutput(j.Path, j.Out, j.Append)
	if err != nil {
		return fmt.Errorf("jsonl: %w", err)
	}
	w := bufio.NewWriter(out.w)
	for i, row := range tbl.Rows {
		if err := ctx.Err(); err != nil {
			out.close()
			return err
		}
		line, err := record.MarshalCanonical(rowObject(tbl.Columns, row))
		if err != nil {
			out.close()
			return fmt.Errorf("jsonl: row %d: %w", i, err)
		}
		w.Write(line)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		out.close()
		return fmt.Errorf("jsonl: %w", err)
	}
	return out.close()
}
