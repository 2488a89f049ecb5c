package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/roach88/tohu/internal/batch"
	"github.com/roach88/tohu/internal/gen"
	"github.com/roach88/tohu/internal/record"
	"github.com/roach88/tohu/internal/sink"
	"github.com/roach88/tohu/internal/store"
)

const defaultNum = 10

// Sinks lists the values accepted by generate --to.
var Sinks = []string{"csv", "jsonl", "text", "table", "sqlite", "bolt"}

// GenerateOptions holds flags for the generate command.
type GenerateOptions struct {
	*RootOptions
	Seed         uint64
	Num          int
	To           string
	Output       string
	Fields       []string
	Sep          string
	HeaderPrefix string
	NoHeader     bool
	Append       bool
	Table        string
	IfExists     string
	Ledger       string
	Progress     bool
}

// GenerateResult summarises one generate invocation.
type GenerateResult struct {
	Blueprint   string `json:"blueprint"`
	Items       int    `json:"items"`
	Seed        uint64 `json:"seed"`
	Fingerprint string `json:"fingerprint"`
	Sink        string `json:"sink"`
	Output      string `json:"output,omitempty"`
	Bytes       int64  `json:"bytes,omitempty"`
	RunID       string `json:"run_id,omitempty"`
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenerateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "generate <blueprint>",
		Short: "Generate items from a blueprint",
		Long: `Generate a batch of items from a YAML or CUE blueprint and write it
to a sink.

Seed and item count default to the blueprint's seed and num, then to 0
and 10. The same blueprint, seed and count always give the same items.

Sinks:
  csv     delimited text (--sep, --header-prefix, --no-header, --append)
  jsonl   one canonical JSON object per item
  text    one item per line, as records print
  table   aligned columns
  sqlite  rows in a SQLite table (--output is the database, --table, --if-exists)
  bolt    canonical JSON rows in a bbolt bucket (--output is the database, --table)

With --ledger the run is recorded so that "tohu replay" can verify it later.

Examples:
  tohu generate order.yaml --num 1000 --to csv -o orders.csv
  tohu generate order.cue --seed 7 --fields id,city=address.city
  tohu generate order.yaml --to sqlite -o data.db --table orders --if-exists append
  tohu generate order.yaml --ledger runs.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(opts, args[0], cmd)
		},
	}

	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "seed (default: blueprint seed, then 0)")
	cmd.Flags().IntVarP(&opts.Num, "num", "n", 0, "number of items (default: blueprint num, then 10)")
	cmd.Flags().StringVar(&opts.To, "to", "jsonl", "sink: "+strings.Join(Sinks, "|"))
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file or database (default: stdout)")
	cmd.Flags().StringSliceVar(&opts.Fields, "fields", nil, "columns to write, as name or name=dotted.path")
	cmd.Flags().StringVar(&opts.Sep, "sep", ",", "csv separator")
	cmd.Flags().StringVar(&opts.HeaderPrefix, "header-prefix", "", "csv header prefix")
	cmd.Flags().BoolVar(&opts.NoHeader, "no-header", false, "csv without header line")
	cmd.Flags().BoolVar(&opts.Append, "append", false, "append to the output file")
	cmd.Flags().StringVar(&opts.Table, "table", "", "sqlite table or bolt bucket (default: items name)")
	cmd.Flags().StringVar(&opts.IfExists, "if-exists", "fail", "sqlite: fail|append|replace")
	cmd.Flags().StringVar(&opts.Ledger, "ledger", "", "record the run in this ledger database")
	cmd.Flags().BoolVar(&opts.Progress, "progress", true, "show a progress bar on a terminal")

	return cmd
}

func runGenerate(opts *GenerateOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if !slices.Contains(Sinks, opts.To) {
		return flagError(formatter, fmt.Sprintf("unknown sink %q: must be one of %v", opts.To, Sinks))
	}
	if (opts.To == "sqlite" || opts.To == "bolt") && opts.Output == "" {
		return flagError(formatter, fmt.Sprintf("--to %s requires --output", opts.To))
	}
	if opts.Num < 0 {
		return flagError(formatter, fmt.Sprintf("--num must not be negative, got %d", opts.Num))
	}
	sel, err := parseSelection(opts.Fields)
	if err != nil {
		return flagError(formatter, err.Error())
	}

	lb, err := loadBlueprint(path)
	if err != nil {
		return reportLoadError(formatter, err)
	}
	bp := lb.Compiled.Blueprint

	seed, _ := lb.Compiled.Seed()
	if cmd.Flags().Changed("seed") {
		seed = opts.Seed
	}
	num := defaultNum
	switch {
	case cmd.Flags().Changed("num"):
		num = opts.Num
	case bp.Num > 0:
		num = bp.Num
	}

	g, err := lb.Compiled.New()
	if err != nil {
		return generateError(formatter, err)
	}
	genOpts := []gen.GenerateOption{gen.WithSeed(seed)}
	bar := newProgressBar(opts, num, cmd.ErrOrStderr())
	if bar != nil {
		genOpts = append(genOpts, gen.WithProgress(func(done int) { _ = bar.Set(done) }))
	}
	start := time.Now()
	items, err := g.Generate(num, genOpts...)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return generateError(formatter, err)
	}
	formatter.VerboseLog("Generated %s items in %s", humanize.Comma(int64(items.Len())), time.Since(start).Round(time.Millisecond))

	fingerprint, err := items.Fingerprint()
	if err != nil {
		return generateError(formatter, err)
	}
	result := GenerateResult{
		Blueprint:   bp.Name,
		Items:       items.Len(),
		Seed:        seed,
		Fingerprint: fingerprint,
		Sink:        opts.To,
		Output:      opts.Output,
	}

	table := opts.Table
	if table == "" {
		table = lb.Compiled.Class.ItemsName()
	}
	if err := writeItems(ctx, opts, table, items, sel, cmd.OutOrStdout()); err != nil {
		_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to write items", err)
	}
	if opts.Output != "" && opts.To != "sqlite" && opts.To != "bolt" {
		if info, err := os.Stat(opts.Output); err == nil {
			result.Bytes = info.Size()
		}
	}

	if opts.Ledger != "" {
		runID, err := recordRun(ctx, opts.Ledger, lb, seed, num, fingerprint)
		if err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, err.Error(), map[string]string{"ledger": opts.Ledger})
			return WrapExitError(ExitCommandError, "failed to record run", err)
		}
		result.RunID = runID
	}

	// Items on stdout keep stdout for data; the summary moves to stderr.
	summary := *formatter
	if opts.Output == "" && opts.To != "sqlite" && opts.To != "bolt" {
		summary.Writer = formatter.GetErrWriter()
		if !opts.Verbose && !summary.IsJSON() {
			return nil
		}
	}
	if summary.IsJSON() {
		return summary.Success(result)
	}
	printGenerateSummary(summary.Writer, result)
	return nil
}

func printGenerateSummary(w io.Writer, r GenerateResult) {
	dest := r.Output
	if dest == "" {
		dest = "stdout"
	}
	fmt.Fprintf(w, "✓ Generated %s %s item(s) with seed %d -> %s (%s)", humanize.Comma(int64(r.Items)), r.Blueprint, r.Seed, dest, r.Sink)
	if r.Bytes > 0 {
		fmt.Fprintf(w, ", %s", humanize.Bytes(uint64(r.Bytes)))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  fingerprint: %s\n", r.Fingerprint)
	if r.RunID != "" {
		fmt.Fprintf(w, "  run: %s\n", r.RunID)
	}
}

// parseSelection turns --fields values into a selection. "name" selects a
// field; "name=a.b" selects a dotted path under a column name.
func parseSelection(fields []string) (batch.Selection, error) {
	if len(fields) == 0 {
		return batch.Selection{}, nil
	}
	cols := make([]batch.Column, 0, len(fields))
	for _, f := range fields {
		name, path, ok := strings.Cut(f, "=")
		if !ok {
			path = name
		}
		name, path = strings.TrimSpace(name), strings.TrimSpace(path)
		if name == "" || path == "" {
			return batch.Selection{}, fmt.Errorf("invalid --fields entry %q", f)
		}
		cols = append(cols, batch.Column{Name: name, Path: path})
	}
	return batch.Columns(cols...), nil
}

func writeItems(ctx context.Context, opts *GenerateOptions, table string, items *batch.Items, sel batch.Selection, stdout io.Writer) error {
	switch opts.To {
	case "csv":
		header := sink.HeaderAuto
		if opts.NoHeader {
			header = sink.HeaderNone
		}
		s := &sink.CSV{Path: opts.Output, Out: stdout, Sep: opts.Sep, Header: header, HeaderPrefix: opts.HeaderPrefix, Append: opts.Append}
		return s.Write(ctx, items, sel)
	case "jsonl":
		s := &sink.JSONLines{Path: opts.Output, Out: stdout, Append: opts.Append}
		return s.Write(ctx, items, sel)
	case "text", "table":
		return writeText(ctx, opts, items, sel, stdout)
	case "sqlite":
		ifExists, err := sink.ParseIfExists(opts.IfExists)
		if err != nil {
			return err
		}
		db, err := sink.OpenSQLite(opts.Output)
		if err != nil {
			return err
		}
		defer db.Close()
		s := &sink.SQLite{DB: db, Table: table, IfExists: ifExists}
		return s.Write(ctx, items, sel)
	case "bolt":
		db, err := sink.OpenBolt(opts.Output)
		if err != nil {
			return err
		}
		defer db.Close()
		s := &sink.Bolt{DB: db, Bucket: table}
		return s.Write(ctx, items, sel)
	}
	return fmt.Errorf("unknown sink %q", opts.To)
}

// writeText renders items for reading: "text" prints one item per line the
// way records print, "table" aligns the selected columns.
func writeText(ctx context.Context, opts *GenerateOptions, items *batch.Items, sel batch.Selection, stdout io.Writer) (err error) {
	w := stdout
	if opts.Output != "" {
		flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
		if opts.Append {
			flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
		}
		f, openErr := os.OpenFile(opts.Output, flags, 0o644)
		if openErr != nil {
			return fmt.Errorf("open %s: %w", opts.Output, openErr)
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		w = f
	}

	if opts.To == "text" && sel.IsZero() {
		for _, v := range items.All() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, err := fmt.Fprintln(w, record.Repr(v)); err != nil {
				return err
			}
		}
		return nil
	}

	frame := sink.NewFrame()
	if err := frame.Write(ctx, items, sel); err != nil {
		return err
	}
	cols := frame.Columns()
	if opts.To == "text" {
		for i := 0; i < frame.Len(); i++ {
			row := frame.Row(i)
			parts := make([]string, len(cols))
			for j, c := range cols {
				parts[j] = c + "=" + record.Repr(row[c])
			}
			if _, err := fmt.Fprintln(w, strings.Join(parts, ", ")); err != nil {
				return err
			}
		}
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(cols, "\t"))
	for i := 0; i < frame.Len(); i++ {
		row := frame.Row(i)
		cells := make([]string, len(cols))
		for j, c := range cols {
			cells[j] = sink.Cell(row[c])
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

// newProgressBar returns a progress bar on w when progress is enabled and w
// is a terminal, nil otherwise.
func newProgressBar(opts *GenerateOptions, num int, w io.Writer) *progressbar.ProgressBar {
	if !opts.Progress || num == 0 {
		return nil
	}
	f, ok := w.(*os.File)
	if !ok || !(isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return nil
	}
	return progressbar.NewOptions(num,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("generating"),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

func recordRun(ctx context.Context, path string, lb *loadedBlueprint, seed uint64, num int, fingerprint string) (string, error) {
	st, err := store.Open(path)
	if err != nil {
		return "", err
	}
	defer st.Close()

	run, err := st.RecordRun(ctx, store.Run{
		Blueprint:   lb.Compiled.Blueprint.Name,
		Format:      lb.Format,
		Source:      lb.Compiled.Blueprint.Source,
		Seed:        seed,
		Num:         num,
		Fingerprint: fingerprint,
	})
	if err != nil {
		return "", err
	}
	return run.ID, nil
}

func flagError(f *OutputFormatter, msg string) error {
	_ = f.Error(ErrCodeInvalidFlag, msg, nil)
	return NewExitError(ExitCommandError, msg)
}

func generateError(f *OutputFormatter, err error) error {
	_ = f.Error(ErrCodeGenerate, err.Error(), nil)
	return WrapExitError(ExitFailure, "generation failed", err)
}
