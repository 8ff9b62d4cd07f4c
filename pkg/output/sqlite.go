package output

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/joshuapare/shimkit/pkg/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	started TEXT NOT NULL,
	os TEXT,
	source TEXT
);
CREATE TABLE IF NOT EXISTS entries (
	run_id TEXT NOT NULL REFERENCES runs(id),
	control_set INTEGER NOT NULL,
	position INTEGER NOT NULL,
	path TEXT NOT NULL,
	last_modified TEXT,
	executed TEXT NOT NULL,
	duplicate INTEGER NOT NULL,
	source TEXT
);
CREATE INDEX IF NOT EXISTS idx_entries_run ON entries(run_id, control_set);
CREATE TABLE IF NOT EXISTS buffers (
	run_id TEXT NOT NULL REFERENCES runs(id),
	control_set INTEGER NOT NULL,
	digest TEXT NOT NULL,
	size INTEGER NOT NULL,
	expected_count INTEGER NOT NULL,
	decoded INTEGER NOT NULL,
	variant TEXT
);
`

// Run identifies one invocation in the runs table.
type Run struct {
	ID      string // uuid
	Started time.Time
	OS      string
	Source  string
}

// SQLiteWriter stores entries and buffer metadata in a SQLite database.
// Several runs can share one database file.
type SQLiteWriter struct {
	db     *sql.DB
	run    Run
	layout string
}

// NewSQLiteWriter opens (creating if needed) the database at path and
// records run.
func NewSQLiteWriter(path string, run Run, opts Options) (*SQLiteWriter, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	s := &SQLiteWriter{db: db, run: run, layout: opts.layout()}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteWriter) init() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	_, err := s.db.Exec(
		`INSERT INTO runs (id, started, os, source) VALUES (?, ?, ?, ?)`,
		s.run.ID, s.run.Started.UTC().Format(time.RFC3339), s.run.OS, s.run.Source,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Write inserts entries in one transaction.
func (s *SQLiteWriter) Write(entries []types.CacheEntry) error {
	ctx := context.Background()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO entries
		(run_id, control_set, position, path, last_modified, executed, duplicate, source)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, e := range entries {
		r := NewRecord(e, s.layout)
		var modified any
		if r.LastModifiedTimeUTC != "" {
			modified = r.LastModifiedTimeUTC
		}
		if _, err := stmt.ExecContext(ctx, s.run.ID, r.ControlSet, r.CacheEntryPosition,
			r.Path, modified, r.Executed, r.Duplicate, r.SourceFile); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert entry %d: %w", r.CacheEntryPosition, err)
		}
	}
	return tx.Commit()
}

// WriteBuffer records metadata for one decoded buffer.
func (s *SQLiteWriter) WriteBuffer(b BufferInfo) error {
	_, err := s.db.Exec(
		`INSERT INTO buffers (run_id, control_set, digest, size, expected_count, decoded, variant)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.run.ID, b.ControlSet, b.Digest, b.Size, b.ExpectedCount, b.Decoded, b.Variant,
	)
	if err != nil {
		return fmt.Errorf("insert buffer: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteWriter) Close() error {
	return s.db.Close()
}

// Abort deletes the run's rows and closes the database. Earlier runs in the
// same file are kept.
func (s *SQLiteWriter) Abort() error {
	ctx := context.Background()
	_, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE run_id = ?`, s.run.ID)
	if err == nil {
		_, err = s.db.ExecContext(ctx, `DELETE FROM buffers WHERE run_id = ?`, s.run.ID)
	}
	if err == nil {
		_, err = s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, s.run.ID)
	}
	if cerr := s.db.Close(); err == nil {
		err = cerr
	}
	return err
}

var (
	_ Writer         = (*SQLiteWriter)(nil)
	_ Writer         = (*CSVWriter)(nil)
	_ Writer         = (*JSONWriter)(nil)
	_ BufferRecorder = (*SQLiteWriter)(nil)
)
