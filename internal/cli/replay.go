package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/tohu/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database  string
	Blueprint string // optional - runs of one blueprint only
}

// ReplayRunResult holds the replay result for a single run.
type ReplayRunResult struct {
	RunID         string `json:"run_id"`
	Blueprint     string `json:"blueprint"`
	Seed          uint64 `json:"seed"`
	Num           int    `json:"num"`
	Recorded      string `json:"recorded"`
	Replayed      string `json:"replayed"`
	Deterministic bool   `json:"deterministic"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Runs             []ReplayRunResult `json:"runs"`
	TotalRuns        int               `json:"total_runs"`
	AllDeterministic bool              `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay [run-id...]",
		Short: "Regenerate recorded runs and verify determinism",
		Long: `Regenerate runs recorded with "tohu generate --ledger" from their stored
blueprint source, seed and item count, and compare the batch fingerprint
with the recorded one. Every replay is recorded as a verification.

Without run IDs, every run in the ledger is replayed.

Exit codes:
  0 - All runs reproduced their fingerprint
  1 - Determinism verification failed (fingerprint mismatch)
  2 - Command error (ledger not found, unknown run, etc.)

Examples:
  tohu replay --db runs.db
  tohu replay --db runs.db 0190f3c2-...
  tohu replay --db runs.db --blueprint OrderGenerator --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the ledger database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Blueprint, "blueprint", "", "replay runs of this blueprint only")

	return cmd
}

// openLedger opens an existing ledger; a missing file is an error rather
// than a new empty ledger.
func openLedger(f *OutputFormatter, path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		_ = f.Error(ErrCodeNotFound, fmt.Sprintf("ledger not found: %s", path), nil)
		return nil, WrapExitError(ExitCommandError, "ledger not found", err)
	}
	st, err := store.Open(path)
	if err != nil {
		_ = f.Error(ErrCodeLoadFailed, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "failed to open ledger", err)
	}
	return st, nil
}

func runReplay(opts *ReplayOptions, ids []string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := openLedger(formatter, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	if len(ids) == 0 {
		runs, err := st.ListRuns(ctx, store.ListOptions{Blueprint: opts.Blueprint})
		if err != nil {
			_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		for _, r := range runs {
			ids = append(ids, r.ID)
		}
	}

	result := ReplayResult{
		Runs:             make([]ReplayRunResult, 0, len(ids)),
		TotalRuns:        len(ids),
		AllDeterministic: true,
	}
	for _, id := range ids {
		formatter.VerboseLog("Replaying run %s", id)
		rep, err := st.Replay(ctx, id)
		if err != nil {
			code := ErrCodeGenerate
			if errors.Is(err, store.ErrNotFound) {
				code = ErrCodeNotFound
			}
			_ = formatter.Error(code, err.Error(), map[string]string{"run_id": id})
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay run %s", id), err)
		}
		rr := ReplayRunResult{
			RunID:         rep.Run.ID,
			Blueprint:     rep.Run.Blueprint,
			Seed:          rep.Run.Seed,
			Num:           rep.Run.Num,
			Recorded:      rep.Run.Fingerprint,
			Replayed:      rep.Verification.Fingerprint,
			Deterministic: rep.Verification.Matched,
		}
		result.Runs = append(result.Runs, rr)
		if !rr.Deterministic {
			result.AllDeterministic = false
		}
	}

	if formatter.IsJSON() {
		return outputReplayJSON(formatter, result)
	}
	return outputReplayText(formatter, result)
}

func outputReplayJSON(f *OutputFormatter, result ReplayResult) error {
	response := CLIResponse{Status: "ok", Data: result}
	if !result.AllDeterministic {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeDeterminism,
			Message: "determinism verification failed",
		}
	}
	if err := f.Encode(response); err != nil {
		return err
	}
	if !result.AllDeterministic {
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

func outputReplayText(f *OutputFormatter, result ReplayResult) error {
	w := f.Writer

	if result.TotalRuns == 0 {
		fmt.Fprintln(w, "No runs found in ledger.")
		return nil
	}
	fmt.Fprintf(w, "Replay Summary: %d run(s)\n\n", result.TotalRuns)
	for _, r := range result.Runs {
		status := "✓"
		if !r.Deterministic {
			status = "✗"
		}
		fmt.Fprintf(w, "%s Run: %s\n", status, r.RunID)
		fmt.Fprintf(w, "  %s, seed %d, %d item(s)\n", r.Blueprint, r.Seed, r.Num)
		if f.Verbose || !r.Deterministic {
			fmt.Fprintf(w, "  recorded: %s\n", r.Recorded)
			fmt.Fprintf(w, "  replayed: %s\n", r.Replayed)
		}
		if !r.Deterministic {
			fmt.Fprintln(w, "  Warning: Non-deterministic replay detected!")
		}
		fmt.Fprintln(w)
	}

	if result.AllDeterministic {
		fmt.Fprintln(w, "✓ All runs verified deterministic")
		return nil
	}
	fmt.Fprintln(w, "✗ Determinism verification failed")
	return NewExitError(ExitFailure, "determinism verification failed")
}
