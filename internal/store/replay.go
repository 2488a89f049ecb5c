package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/tohu/internal/batch"
	"github.com/roach88/tohu/internal/blueprint"
	"github.com/roach88/tohu/internal/gen"
)

// Verification is the outcome of one replay of a run.
type Verification struct {
	Seq         int64     `json:"seq"`
	RunID       string    `json:"run_id"`
	VerifiedAt  time.Time `json:"verified_at"`
	Fingerprint string    `json:"fingerprint"`
	Matched     bool      `json:"matched"`
}

// ReplayResult pairs a run with the verification its replay produced.
type ReplayResult struct {
	Run          Run          `json:"run"`
	Verification Verification `json:"verification"`
	Items        *batch.Items `json:"-"`
}

// Regenerate rebuilds a run's batch from its stored blueprint source, seed
// and item count.
func Regenerate(run Run, opts ...blueprint.Option) (*batch.Items, error) {
	var (
		bp  *blueprint.Blueprint
		err error
	)
	switch run.Format {
	case FormatYAML:
		bp, err = blueprint.Parse([]byte(run.Source))
	case FormatCUE:
		bp, err = blueprint.ParseCUE([]byte(run.Source), run.Blueprint+".cue")
	default:
		return nil, fmt.Errorf("regenerate run %s: unknown blueprint format %q", run.ID, run.Format)
	}
	if err != nil {
		return nil, fmt.Errorf("regenerate run %s: %w", run.ID, err)
	}
	compiled, err := blueprint.Compile(bp, opts...)
	if err != nil {
		return nil, fmt.Errorf("regenerate run %s: %w", run.ID, err)
	}
	g, err := compiled.New()
	if err != nil {
		return nil, fmt.Errorf("regenerate run %s: %w", run.ID, err)
	}
	items, err := g.Generate(run.Num, gen.WithSeed(run.Seed))
	if err != nil {
		return nil, fmt.Errorf("regenerate run %s: %w", run.ID, err)
	}
	return items, nil
}

// Replay regenerates a recorded run, compares fingerprints and records the
// verification. A mismatch is not an error; check Verification.Matched.
func (s *Store) Replay(ctx context.Context, runID string, opts ...blueprint.Option) (ReplayResult, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return ReplayResult{}, err
	}

	items, err := Regenerate(run, opts...)
	if err != nil {
		return ReplayResult{}, err
	}
	fp, err := items.Fingerprint()
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay run %s: %w", runID, err)
	}

	v, err := s.recordVerification(ctx, run.ID, fp, fp == run.Fingerprint)
	if err != nil {
		return ReplayResult{}, err
	}
	slog.Debug("run replayed", "run", run.ID, "matched", v.Matched, "fingerprint", fp)
	return ReplayResult{Run: run, Verification: v, Items: items}, nil
}

func (s *Store) recordVerification(ctx context.Context, runID, fingerprint string, matched bool) (Verification, error) {
	v := Verification{
		RunID:       runID,
		VerifiedAt:  s.now().UTC(),
		Fingerprint: fingerprint,
		Matched:     matched,
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO verifications (run_id, verified_at, fingerprint, matched)
		VALUES (?, ?, ?, ?)
	`, v.RunID, v.VerifiedAt.Format(time.RFC3339Nano), v.Fingerprint, v.Matched)
	if err != nil {
		return Verification{}, fmt.Errorf("record verification: %w", err)
	}
	if v.Seq, err = res.LastInsertId(); err != nil {
		return Verification{}, fmt.Errorf("record verification: %w", err)
	}
	return v, nil
}

// Verifications returns the replays of a run ordered by seq.
//
// Returns an empty slice (not nil) if the run was never replayed.
func (s *Store) Verifications(ctx context.Context, runID string) ([]Verification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, run_id, verified_at, fingerprint, matched
		FROM verifications
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query verifications: %w", err)
	}
	defer rows.Close()

	out := []Verification{}
	for rows.Next() {
		var (
			v        Verification
			verified string
		)
		if err := rows.Scan(&v.Seq, &v.RunID, &verified, &v.Fingerprint, &v.Matched); err != nil {
			return nil, fmt.Errorf("scan verification: %w", err)
		}
		if v.VerifiedAt, err = time.Parse(time.RFC3339Nano, verified); err != nil {
			return nil, fmt.Errorf("verification %d: invalid verified_at: %w", v.Seq, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate verifications: %w", err)
	}
	return out, nil
}
