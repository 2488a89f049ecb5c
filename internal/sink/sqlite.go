package sink

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/tohu/internal/batch"
	"github.com/roach88/tohu/internal/record"
)

// IfExists decides what the SQLite sink does when its table exists.
type IfExists int

const (
	// IfExistsFail returns an error.
	IfExistsFail IfExists = iota

	// IfExistsAppend inserts into the existing table.
	IfExistsAppend

	// IfExistsReplace drops and recreates the table.
	IfExistsReplace
)

// ParseIfExists maps "fail", "append" and "replace" to an IfExists.
func ParseIfExists(s string) (IfExists, error) {
	switch s {
	case "", "fail":
		return IfExistsFail, nil
	case "append":
		return IfExistsAppend, nil
	case "replace":
		return IfExistsReplace, nil
	}
	return 0, fmt.Errorf("if-exists must be fail, append or replace, got %q", s)
}

// SQLite appends rows to a table. Column types are inferred from the first
// row when the table is created.
type SQLite struct {
	DB       *sql.DB
	Table    string
	IfExists IfExists
}

var _ Sink = (*SQLite)(nil)

// OpenSQLite opens (or creates) a database file for the SQLite sink.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy_timeout: %w", err)
	}
	return db, nil
}

// Write implements Sink. All rows are inserted in one transaction.
func (s *SQLite) Write(ctx context.Context, items *batch.Items, sel batch.Selection) error {
	if s.Table == "" {
		return fmt.Errorf("sqlite: table name is required")
	}
	tbl, err := items.Table(sel)
	if err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer tx.Rollback()

	exists, err := tableExists(ctx, tx, s.Table)
	if err != nil {
		return err
	}
	if exists {
		switch s.IfExists {
		case IfExistsFail:
			return fmt.Errorf("sqlite: table %q already exists", s.Table)
		case IfExistsReplace:
			if _, err := tx.ExecContext(ctx, "DROP TABLE "+quoteIdent(s.Table)); err != nil {
				return fmt.Errorf("sqlite: drop %q: %w", s.Table, err)
			}
			exists = false
		}
	}
	if !exists {
		if _, err := tx.ExecContext(ctx, createTableSQL(s.Table, tbl)); err != nil {
			return fmt.Errorf("sqlite: create %q: %w", s.Table, err)
		}
	}

	cols := make([]string, len(tbl.Columns))
	marks := make([]string, len(tbl.Columns))
	for i, c := range tbl.Columns {
		cols[i] = quoteIdent(c)
		marks[i] = "?"
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(s.Table), strings.Join(cols, ", "), strings.Join(marks, ", ")))
	if err != nil {
		return fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	defer stmt.Close()

	args := make([]any, len(tbl.Columns))
	for i, row := range tbl.Rows {
		for j, v := range row {
			if args[j], err = sqlValue(v); err != nil {
				return fmt.Errorf("sqlite: row %d, column %q: %w", i, tbl.Columns[j], err)
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("sqlite: insert row %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	slog.Debug("sqlite sink wrote batch", "table", s.Table, "rows", len(tbl.Rows))
	return nil
}

func tableExists(ctx context.Context, tx *sql.Tx, name string) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sqlite: check table %q: %w", name, err)
	}
	return n > 0, nil
}

func createTableSQL(name string, tbl *batch.Table) string {
	defs := make([]string, len(tbl.Columns))
	for j, c := range tbl.Columns {
		typ := "TEXT"
		if len(tbl.Rows) > 0 {
			typ = columnType(tbl.Rows[0][j])
		}
		defs[j] = quoteIdent(c) + " " + typ
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(name), strings.Join(defs, ", "))
}

// columnType maps a Go value to a SQLite column affinity.
func columnType(v any) string {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, bool:
		return "INTEGER"
	case float32, float64:
		return "REAL"
	case []byte:
		return "BLOB"
	}
	return "TEXT"
}

// sqlValue converts a generated value into a driver value. Times become
// "YYYY-MM-DD HH:MM:SS" text and nested values canonical JSON.
func sqlValue(v any) (any, error) {
	switch val := v.(type) {
	case nil, string, []byte, int64, float64:
		return val, nil
	case int:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case float32:
		return float64(val), nil
	case bool:
		if val {
			return int64(1), nil
		}
		return int64(0), nil
	case time.Time:
		return val.UTC().Format(time.DateTime), nil
	}
	b, err := record.MarshalCanonical(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
