package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/roach88/tohu/internal/store"
)

// RunsOptions holds flags for the runs command.
type RunsOptions struct {
	*RootOptions
	Database  string
	Blueprint string
	Limit     int
}

// RunInfo is a ledger run with its replay history.
type RunInfo struct {
	store.Run
	Verifications int  `json:"verifications"`
	LastMatched   *bool `json:"last_matched,omitempty"`
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List runs recorded in a ledger",
		Long: `List the runs recorded with "tohu generate --ledger", oldest first,
with how often each was replayed and whether the last replay matched.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the ledger database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Blueprint, "blueprint", "", "only runs of this blueprint")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "only the most recent runs (0 = all)")

	return cmd
}

func runRuns(opts *RunsOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)
	if opts.Limit < 0 {
		return flagError(formatter, fmt.Sprintf("--limit must not be negative, got %d", opts.Limit))
	}

	st, err := openLedger(formatter, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(ctx, store.ListOptions{Blueprint: opts.Blueprint, Limit: opts.Limit})
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	infos := make([]RunInfo, 0, len(runs))
	for _, r := range runs {
		vs, err := st.Verifications(ctx, r.ID)
		if err != nil {
			_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to read verifications", err)
		}
		info := RunInfo{Run: r, Verifications: len(vs)}
		if len(vs) > 0 {
			matched := vs[len(vs)-1].Matched
			info.LastMatched = &matched
		}
		infos = append(infos, info)
	}

	if formatter.IsJSON() {
		return formatter.Success(infos)
	}
	if len(infos) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs found in ledger.")
		return nil
	}
	tw := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tBLUEPRINT\tSEED\tITEMS\tRECORDED\tREPLAYS")
	for _, info := range infos {
		replays := fmt.Sprintf("%d", info.Verifications)
		if info.LastMatched != nil {
			if *info.LastMatched {
				replays += " ✓"
			} else {
				replays += " ✗"
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
			info.ID, info.Blueprint, info.Seed, humanize.Comma(int64(info.Num)),
			info.CreatedAt.Format(time.DateTime), replays)
	}
	return tw.Flush()
}
