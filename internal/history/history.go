// Package history keeps past dual runs in a local SQLite database.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/parserlab/ocrdiff/internal/ocr"
)

// ErrNotFound is returned when a run id is unknown.
var ErrNotFound = errors.New("run not found")

// DefaultListLimit caps List when no limit is given.
const DefaultListLimit = 50

// Summary is the row-level view of a stored run.
type Summary struct {
	ID         string     `json:"id"`
	Parser     string     `json:"parser"`
	Status     ocr.Status `json:"status"`
	Files      int        `json:"files"`
	Paths      int        `json:"paths"`
	Mismatches int        `json:"mismatches"`
	StartedAt  time.Time  `json:"started_at"`
	DurationMS int64      `json:"duration_ms"`

	ParserExtraAccuracy bool `json:"parser_extra_accuracy"`
}

// Store persists runs.
type Store struct {
	db     *sql.DB
	mu     sync.Mutex
	dbPath string
}

// Open opens (or creates) the history database at path.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps :memory: databases alive and serializes writes.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id          TEXT PRIMARY KEY,
			parser      TEXT NOT NULL,
			status      TEXT NOT NULL,
			files       INTEGER NOT NULL,
			paths       INTEGER NOT NULL,
			mismatches  INTEGER NOT NULL,
			started_at  INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			payload     TEXT NOT NULL,
			parser_extra_accuracy INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_runs_parser ON runs(parser, started_at);
	`)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s.addColumn("parser_extra_accuracy", "INTEGER NOT NULL DEFAULT 0")
}

// addColumn adds a column missing from databases created by older versions.
func (s *Store) addColumn(name, decl string) error {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('runs') WHERE name = ?`, name).Scan(&n)
	if err != nil {
		return fmt.Errorf("failed to inspect schema: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := s.db.Exec(`ALTER TABLE runs ADD COLUMN ` + name + ` ` + decl); err != nil {
		return fmt.Errorf("failed to add column %s: %w", name, err)
	}
	return nil
}

// Path returns the database path.
func (s *Store) Path() string { return s.dbPath }

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores a run, replacing any earlier record with the same id.
func (s *Store) Save(ctx context.Context, run *ocr.Run) error {
	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to encode run: %w", err)
	}
	sum := Summarize(run)

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs (id, parser, status, files, paths, mismatches, started_at, duration_ms, payload, parser_extra_accuracy)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sum.ID, sum.Parser, string(sum.Status), sum.Files, sum.Paths, sum.Mismatches,
		sum.StartedAt.UnixMilli(), sum.DurationMS, string(payload), sum.ParserExtraAccuracy)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}
	return nil
}

// Get loads a run. Comparisons are recomputed from the stored documents.
func (s *Store) Get(ctx context.Context, id string) (*ocr.Run, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM runs WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", id, err)
	}
	var run ocr.Run
	if err := json.Unmarshal([]byte(payload), &run); err != nil {
		return nil, fmt.Errorf("failed to decode run %s: %w", id, err)
	}
	return &run, nil
}

// List returns run summaries, newest first. An empty parser lists all.
func (s *Store) List(ctx context.Context, parser string, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	query := `SELECT id, parser, status, files, paths, mismatches, started_at, duration_ms, parser_extra_accuracy FROM runs`
	args := []any{}
	if parser != "" {
		query += ` WHERE parser = ?`
		args = append(args, parser)
	}
	query += ` ORDER BY started_at DESC, id LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var sum Summary
		var status string
		var startedMS int64
		if err := rows.Scan(&sum.ID, &sum.Parser, &status, &sum.Files, &sum.Paths, &sum.Mismatches, &startedMS, &sum.DurationMS, &sum.ParserExtraAccuracy); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		sum.Status = ocr.Status(status)
		sum.StartedAt = time.UnixMilli(startedMS).UTC()
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Delete removes a run.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Summarize reduces a run to its list row.
func Summarize(run *ocr.Run) Summary {
	sum := Summary{
		ID:         run.ID,
		Parser:     run.Parser,
		Status:     run.Status,
		Files:      len(run.Files),
		StartedAt:  run.StartedAt.UTC(),
		DurationMS: run.Duration.Milliseconds(),

		ParserExtraAccuracy: run.ParserExtraAccuracy,
	}
	if run.Comparison != nil {
		s := run.Comparison.Summary()
		sum.Paths = s.Total
		sum.Mismatches = s.Mismatches
	}
	return sum
}
