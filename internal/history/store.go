// Package history keeps an optional SQLite ledger of pitufo runs and the
// outcome of every file each run touched.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/harrison/pitufo/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// ErrRunNotFound is returned when a run ID has no row in the runs table.
var ErrRunNotFound = errors.New("run not found")

// RunSettings are the normalization settings a run was started with.
type RunSettings struct {
	Minify         bool
	StripBOM       bool
	FollowSymlinks bool
	MaxDepth       int
}

// Run is one row of the runs table
type Run struct {
	ID         string
	Root       string
	Settings   RunSettings
	StartedAt  time.Time
	FinishedAt *time.Time // Nil while the run is in progress or if it was interrupted
	Candidates int
	Rewritten  int
	Unchanged  int
	Failed     int
	BytesIn    int64
	BytesOut   int64
	Duration   time.Duration
}

// OutcomeRecord is one row of the file_outcomes table
type OutcomeRecord struct {
	ID           int64
	RunID        string
	Path         string
	Status       string
	ErrorKind    string
	ErrorMessage string
	BytesIn      int64
	BytesOut     int64
	DigestBefore string
	DigestAfter  string
	Duration     time.Duration
	RecordedAt   time.Time
}

// Store manages the SQLite run-history database
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex // serializes writes from concurrent workers
}

// NewStore creates a new Store instance and initializes the database
func NewStore(dbPath string) (*Store, error) {
	if dbPath == ":memory:" {
		return openAndInitStore(dbPath)
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	return openAndInitStore(dbPath)
}

// openAndInitStore opens the database connection and initializes schema
func openAndInitStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA busy_timeout=5000", // Must be first
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}

	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	store := &Store{
		db:     db,
		dbPath: dbPath,
	}

	if err := store.ApplyMigrations(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return store, nil
}

// execWithRetry executes a SQL statement with exponential backoff retry on lock errors.
func execWithRetry(db *sql.DB, sql string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(sql)
		if err == nil {
			return nil
		}

		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}

		lastErr = err
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

// Path returns the database path the store was opened with.
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// BeginRun inserts a new run row for root and returns a RunRecorder bound to it.
func (s *Store) BeginRun(ctx context.Context, root string, settings RunSettings) (*RunRecorder, error) {
	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `INSERT INTO runs (id, root, minify, strip_bom, follow_symlinks, max_depth, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		id, root, settings.Minify, settings.StripBOM, settings.FollowSymlinks, settings.MaxDepth,
		time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}

	return &RunRecorder{store: s, runID: id}, nil
}

// RecordOutcome stores the outcome of one file for runID.
func (s *Store) RecordOutcome(ctx context.Context, runID string, outcome models.FileOutcome) error {
	var errorKind, errorMessage sql.NullString
	if outcome.Err != nil {
		errorKind = sql.NullString{String: outcome.Err.Kind.String(), Valid: true}
		if outcome.Err.Err != nil {
			errorMessage = sql.NullString{String: outcome.Err.Err.Error(), Valid: true}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `INSERT INTO file_outcomes
		(run_id, path, status, error_kind, error_message, bytes_in, bytes_out, duration_ms, digest_before, digest_after)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		runID, outcome.Path, outcome.Status(), errorKind, errorMessage,
		outcome.BytesIn, outcome.BytesOut, outcome.Duration.Milliseconds(),
		nullIfEmpty(outcome.DigestBefore), nullIfEmpty(outcome.DigestAfter),
	)
	if err != nil {
		return fmt.Errorf("insert outcome for %s: %w", outcome.Path, err)
	}
	return nil
}

// FinishRun stores the final summary of runID.
func (s *Store) FinishRun(ctx context.Context, runID string, summary models.RunSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `UPDATE runs SET finished_at = ?, candidates = ?, rewritten = ?, unchanged = ?, failed = ?,
		bytes_in = ?, bytes_out = ?, duration_ms = ? WHERE id = ?`
	res, err := s.db.ExecContext(ctx, query,
		time.Now().UTC(), summary.Candidates, summary.Rewritten, summary.Unchanged, summary.Failed,
		summary.BytesIn, summary.BytesOut, summary.Duration.Milliseconds(), runID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}

// GetRun returns a single run by ID.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, runColumns+` FROM runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get run %s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	return run, nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// RunOutcomes returns the recorded outcomes of runID in insertion order.
func (s *Store) RunOutcomes(ctx context.Context, runID string) ([]*OutcomeRecord, error) {
	query := `SELECT id, run_id, path, status, error_kind, error_message, bytes_in, bytes_out,
		duration_ms, digest_before, digest_after, recorded_at
		FROM file_outcomes WHERE run_id = ? ORDER BY id ASC`
	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var records []*OutcomeRecord
	for rows.Next() {
		var (
			rec                       OutcomeRecord
			errorKind, errorMessage   sql.NullString
			digestBefore, digestAfter sql.NullString
			durationMs                int64
		)
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.Path, &rec.Status, &errorKind, &errorMessage,
			&rec.BytesIn, &rec.BytesOut, &durationMs, &digestBefore, &digestAfter, &rec.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		rec.ErrorKind = errorKind.String
		rec.ErrorMessage = errorMessage.String
		rec.DigestBefore = digestBefore.String
		rec.DigestAfter = digestAfter.String
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}
	return records, nil
}

const runColumns = `SELECT id, root, minify, strip_bom, follow_symlinks, max_depth, started_at, finished_at,
	candidates, rewritten, unchanged, failed, bytes_in, bytes_out, duration_ms`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run        Run
		finishedAt sql.NullTime
		durationMs int64
	)
	err := row.Scan(&run.ID, &run.Root, &run.Settings.Minify, &run.Settings.StripBOM,
		&run.Settings.FollowSymlinks, &run.Settings.MaxDepth, &run.StartedAt, &finishedAt,
		&run.Candidates, &run.Rewritten, &run.Unchanged, &run.Failed,
		&run.BytesIn, &run.BytesOut, &durationMs)
	if err != nil {
		return nil, err
	}
	if finishedAt.Valid {
		t := finishedAt.Time
		run.FinishedAt = &t
	}
	run.Duration = time.Duration(durationMs) * time.Millisecond
	return &run, nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// RunRecorder records outcomes for a single run.
type RunRecorder struct {
	store *Store
	runID string
}

// RunID returns the UUID of the run being recorded.
func (r *RunRecorder) RunID() string {
	return r.runID
}

// RecordOutcome stores one file outcome for this run.
func (r *RunRecorder) RecordOutcome(ctx context.Context, outcome models.FileOutcome) error {
	return r.store.RecordOutcome(ctx, r.runID, outcome)
}

// Finish stores the run summary.
func (r *RunRecorder) Finish(ctx context.Context, summary models.RunSummary) error {
	return r.store.FinishRun(ctx, r.runID, summary)
}
