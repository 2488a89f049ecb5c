package sink

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/tohu/internal/batch"
)

// HeaderMode selects how the CSV sink writes its header line.
type HeaderMode int

const (
	// HeaderAuto writes the selected column names, prefixed with
	// HeaderPrefix.
	HeaderAuto HeaderMode = iota

	// HeaderNone writes no header.
	HeaderNone

	// HeaderExplicit writes Header verbatim.
	HeaderExplicit
)

// CSV writes delimited text.
//
// A header is written unless the sink appends to a file that already has
// content. Cells containing the separator, a quote, or a line break are
// quoted with doubled inner quotes.
type CSV struct {
	// Path is the output file. When empty, rows go to Out.
	Path string

	// Out receives rows when Path is empty. Defaults to os.Stdout.
	Out io.Writer

	// Sep separates cells. Defaults to ",". May be longer than one character.
	Sep string

	// Newline terminates rows. Defaults to "\n".
	Newline string

	Header       HeaderMode
	HeaderText   string
	HeaderPrefix string

	// Append extends Path instead of truncating it.
	Append bool
}

var _ Sink = (*CSV)(nil)

func (c *CSV) sep() string {
	if c.Sep == "" {
		return ","
	}
	return c.Sep
}

func (c *CSV) newline() string {
	if c.Newline == "" {
		return "\n"
	}
	return c.Newline
}

// Write implements Sink.
func (c *CSV) Write(ctx context.Context, items *batch.Items, sel batch.Selection) error {
	if c.Header == HeaderExplicit && c.HeaderText == "" {
		return fmt.Errorf("csv: explicit header is empty")
	}
	tbl, err := items.Table(sel)
	if err != nil {
		return fmt.Errorf("csv: %w", err)
	}

	out, err := openOutput(c.Path, c.Out, c.Append)
	if err != nil {
		return fmt.Errorf("csv: %w", err)
	}
	w := bufio.NewWriter(out.w)

	sep, nl := c.sep(), c.newline()
	if !out.nonEmpty {
		switch c.Header {
		case HeaderAuto:
			w.WriteString(c.joinRow(tbl.Header(c.HeaderPrefix)) + nl)
		case HeaderExplicit:
			w.WriteString(c.HeaderText + nl)
		}
	}

	cells := make([]string, len(tbl.Columns))
	for i, row := range tbl.Rows {
		if err := ctx.Err(); err != nil {
			out.close()
			return err
		}
		for j, v := range row {
			cells[j] = Cell(v)
		}
		if _, err := w.WriteString(c.joinRow(cells) + nl); err != nil {
			out.close()
			return fmt.Errorf("csv: row %d: %w", i, err)
		}
	}
	if err := w.Flush(); err != nil {
		out.close()
		return fmt.Errorf("csv: %w", err)
	}
	slog.Debug("csv sink wrote batch", "path", c.Path, "rows", len(tbl.Rows), "sep", sep)
	return out.close()
}

func (c *CSV) joinRow(cells []string) string {
	sep := c.sep()
	quoted := make([]string, len(cells))
	for i, s := range cells {
		quoted[i] = quoteCell(s, sep)
	}
	return strings.Join(quoted, sep)
}

func quoteCell(s, sep string) string {
	if !strings.Contains(s, sep) && !strings.ContainsAny(s, "\"\r\n") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
