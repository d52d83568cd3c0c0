// Package migrate applies SQL scripts to a database, in lexical order of
// their filenames, and keeps a ledger of what was applied.
//
// Applied scripts must never change. Renaming, removing or editing one
// makes every later run fail with ErrMismatch.
package migrate

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"time"
)

var (
	ErrNoTable  = errors.New("migrations table does not exist")
	ErrMismatch = errors.New("applied migrations don't match the available scripts")
)

// Metadata is stored next to every applied migration for later debugging.
type Metadata struct {
	AppVersion string
	BuildTime  time.Time
}

// Migration is an applied script.
type Migration struct {
	// Sequence starts at 0.
	Sequence int
	Filename string
	// Checksum is the hex encoded SHA-256 of the script.
	Checksum string
	Metadata Metadata
}

// Equal compares m and other, including metadata.
func (m Migration) Equal(other Migration) bool {
	return m.Sequence == other.Sequence &&
		m.Filename == other.Filename &&
		m.Checksum == other.Checksum &&
		m.Metadata.AppVersion == other.Metadata.AppVersion &&
		m.Metadata.BuildTime.Equal(other.Metadata.BuildTime)
}

// StepError reports a script that could not be applied.
type StepError struct {
	Sequence int
	Filename string
	Err      error
}

func (e StepError) Error() string {
	return fmt.Sprintf("migration %d (%s): %v", e.Sequence, e.Filename, e.Err)
}

func (e StepError) Unwrap() error {
	return e.Err
}

// Report describes the migration state of a database.
type Report struct {
	Applied []Migration
	// Pending are the filenames that Up would apply.
	Pending []string
}

const (
	createTable = `CREATE TABLE IF NOT EXISTS migrations (
	sequence    INTEGER PRIMARY KEY,
	filename    TEXT NOT NULL,
	checksum    TEXT NOT NULL,
	app_version TEXT NOT NULL,
	build_time  TIMESTAMP NOT NULL,
	applied_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`
	selectApplied = `SELECT sequence, filename, checksum, app_version, build_time FROM migrations ORDER BY sequence`
	insertApplied = `INSERT INTO migrations (sequence, filename, checksum, app_version, build_time) VALUES (?, ?, ?, ?, ?)`
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Up applies all pending scripts in fsys within a single transaction and
// returns the migrations it applied. Only .sql files in the root of fsys
// are considered.
func Up(ctx context.Context, db *sql.DB, fsys fs.FS, meta Metadata) ([]Migration, error) {
	scripts, err := load(fsys)
	if err != nil {
		return nil, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	applied, err := up(ctx, tx, scripts, meta)
	if err != nil {
		return nil, errors.Join(err, tx.Rollback())
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit migrations: %w", err)
	}

	return applied, nil
}

func up(ctx context.Context, tx *sql.Tx, scripts []script, meta Metadata) ([]Migration, error) {
	if _, err := tx.ExecContext(ctx, createTable); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	before, err := applied(ctx, tx)
	if err != nil {
		return nil, err
	}

	pending, err := compare(before, scripts)
	if err != nil {
		return nil, err
	}

	result := make([]Migration, 0, len(pending))
	for i, s := range pending {
		m := Migration{
			Sequence: len(before) + i,
			Filename: s.name,
			Checksum: s.checksum,
			Metadata: meta,
		}

		if _, err := tx.ExecContext(ctx, s.sql); err != nil {
			return nil, StepError{Sequence: m.Sequence, Filename: m.Filename, Err: err}
		}

		_, err := tx.ExecContext(ctx, insertApplied, m.Sequence, m.Filename, m.Checksum, m.Metadata.AppVersion, m.Metadata.BuildTime)
		if err != nil {
			return nil, fmt.Errorf("failed to record migration %s: %w", m.Filename, err)
		}

		result = append(result, m)
	}

	return result, nil
}

// Status compares the database with the scripts in fsys without changing
// anything. A database that was never migrated has everything pending.
func Status(ctx context.Context, db *sql.DB, fsys fs.FS) (Report, error) {
	scripts, err := load(fsys)
	if err != nil {
		return Report{}, err
	}

	before, err := applied(ctx, db)
	if err != nil && !errors.Is(err, ErrNoTable) {
		return Report{}, err
	}

	pending, err := compare(before, scripts)
	if err != nil {
		return Report{}, err
	}

	r := Report{Applied: before}
	for _, s := range pending {
		r.Pending = append(r.Pending, s.name)
	}

	return r, nil
}

// Applied lists the applied migrations in order. It returns ErrNoTable
// when the database was never migrated.
func Applied(ctx context.Context, db *sql.DB) ([]Migration, error) {
	return applied(ctx, db)
}

func applied(ctx context.Context, q querier) ([]Migration, error) {
	rows, err := q.QueryContext(ctx, selectApplied)
	if err != nil {
		if strings.Contains(err.Error(), "no such table") {
			return nil, ErrNoTable
		}
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	var out []Migration
	for rows.Next() {
		var m Migration
		err := rows.Scan(&m.Sequence, &m.Filename, &m.Checksum, &m.Metadata.AppVersion, &m.Metadata.BuildTime)
		if err != nil {
			return nil, fmt.Errorf("failed to scan migration: %w", err)
		}
		out = append(out, m)
	}

	return out, rows.Err()
}

// compare checks that before is a prefix of scripts and returns the rest.
func compare(before []Migration, scripts []script) ([]script, error) {
	if len(before) > len(scripts) {
		return nil, fmt.Errorf("%d migrations were applied but only %d scripts exist: %w", len(before), len(scripts), ErrMismatch)
	}

	for i, m := range before {
		s := scripts[i]
		switch {
		case m.Sequence != i:
			return nil, fmt.Errorf("migration %s has sequence %d, expected %d: %w", m.Filename, m.Sequence, i, ErrMismatch)
		case m.Filename != s.name:
			return nil, fmt.Errorf("migration %d was applied as %s, but the script is now %s: %w", i, m.Filename, s.name, ErrMismatch)
		case m.Checksum != s.checksum:
			return nil, fmt.Errorf("script %s changed after it was applied: %w", s.name, ErrMismatch)
		}
	}

	return scripts[len(before):], nil
}

type script struct {
	name     string
	sql      string
	checksum string
}

// load reads the scripts in fsys. fs.ReadDir returns entries sorted by name.
func load(fsys fs.FS) ([]script, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	var scripts []script
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".sql" {
			continue
		}

		data, err := fs.ReadFile(fsys, e.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", e.Name(), err)
		}

		sum := sha256.Sum256(data)
		scripts = append(scripts, script{
			name:     e.Name(),
			sql:      string(data),
			checksum: hex.EncodeToString(sum[:]),
		})
	}

	return scripts, nil
}
