package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound is returned when a run ID is not in the ledger.
var ErrNotFound = errors.New("run not found")

// Blueprint source formats.
const (
	FormatYAML = "yaml"
	FormatCUE  = "cue"
)

// FormatOf returns the blueprint format for a file name: CUE for ".cue",
// YAML otherwise.
func FormatOf(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".cue") {
		return FormatCUE
	}
	return FormatYAML
}

// Run is one recorded generation run.
type Run struct {
	Seq         int64     `json:"seq"`
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Blueprint   string    `json:"blueprint"`
	Format      string    `json:"format"`
	Source      string    `json:"-"`
	SourceHash  string    `json:"source_hash"`
	Seed        uint64    `json:"seed"`
	Num         int       `json:"num"`
	Fingerprint string    `json:"fingerprint"`
}

// SourceHash returns the hex SHA-256 of a blueprint source.
func SourceHash(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}

// RecordRun appends a run to the ledger and returns it with ID, CreatedAt,
// SourceHash and Seq filled in. An ID already set on run is kept.
func (s *Store) RecordRun(ctx context.Context, run Run) (Run, error) {
	if run.Format != FormatYAML && run.Format != FormatCUE {
		return Run{}, fmt.Errorf("record run: unknown blueprint format %q", run.Format)
	}
	if run.ID == "" {
		run.ID = s.ids.Generate()
	}
	run.CreatedAt = s.now().UTC()
	run.SourceHash = SourceHash(run.Source)

	// Seeds use the full uint64 range, which SQLite integers cannot hold.
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, created_at, blueprint_name, blueprint_format, blueprint_source, blueprint_hash, seed, num, fingerprint)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.CreatedAt.Format(time.RFC3339Nano),
		run.Blueprint,
		run.Format,
		run.Source,
		run.SourceHash,
		strconv.FormatUint(run.Seed, 10),
		run.Num,
		run.Fingerprint,
	)
	if err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}
	if run.Seq, err = res.LastInsertId(); err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}
	return run, nil
}

const runColumns = `seq, id, created_at, blueprint_name, blueprint_format, blueprint_source, blueprint_hash, seed, num, fingerprint`

// GetRun returns the run with the given ID, or ErrNotFound.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("get run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

// ListOptions filters ListRuns.
type ListOptions struct {
	// Blueprint restricts the list to runs of one blueprint name.
	Blueprint string
	// Limit keeps only the most recent runs; 0 means all.
	Limit int
}

// ListRuns returns runs ordered by seq ascending. With a Limit, the most
// recent runs are kept, still in ascending order.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ListRuns(ctx context.Context, opts ListOptions) ([]Run, error) {
	var (
		where []string
		args  []any
	)
	if opts.Blueprint != "" {
		where = append(where, "blueprint_name = ?")
		args = append(args, opts.Blueprint)
	}
	query := `SELECT ` + runColumns + ` FROM runs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	for i, j := 0, len(runs)-1; i < j; i, j = i+1, j-1 {
		runs[i], runs[j] = runs[j], runs[i]
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		run     Run
		created string
		seed    string
	)
	err := sc.Scan(&run.Seq, &run.ID, &created, &run.Blueprint, &run.Format, &run.Source, &run.SourceHash, &seed, &run.Num, &run.Fingerprint)
	if err != nil {
		return Run{}, err
	}
	if run.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return Run{}, fmt.Errorf("run %s: invalid created_at: %w", run.ID, err)
	}
	if run.Seed, err = strconv.ParseUint(seed, 10, 64); err != nil {
		return Run{}, fmt.Errorf("run %s: invalid seed: %w", run.ID, err)
	}
	return run, nil
}
