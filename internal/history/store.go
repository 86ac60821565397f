// Package history records completed gate runs in a local SQLite database so
// past results can be listed, inspected, and pruned. Recording is write-only
// from the run's perspective: the orchestrator never reads history, so two
// runs against the same checkout state stay independent of what the ledger
// contains.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/harrison/gate/internal/models"
)

// RunRecord is one recorded run as stored in the runs table.
type RunRecord struct {
	ID          int64
	RunID       string
	Pipeline    string
	Overall     string
	TotalSteps  int
	Passed      int
	Failed      int
	Annotations int
	StartedAt   time.Time
	Duration    time.Duration
}

// StepRecord is one recorded step result belonging to a run.
type StepRecord struct {
	ID          int64
	RunDBID     int64
	Position    int
	Name        string
	Command     string
	Class       string
	Status      string
	ExitCode    int
	Annotations int
	Duration    time.Duration
	Output      string
}

// Store manages the SQLite database holding recorded runs.
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore creates a new Store instance and initializes the database
func NewStore(dbPath string) (*Store, error) {
	// Handle in-memory database
	if dbPath == ":memory:" {
		return openAndInitStore(dbPath)
	}

	// Ensure parent directory exists for file-based databases
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

	// Configure SQLite for concurrent access with retry logic.
	// Set busy_timeout FIRST so subsequent operations wait on locks.
	// Use retry with backoff for "database is locked" errors that can occur
	// during concurrent initialization of the same database file.
	pragmas := []string{
		"PRAGMA busy_timeout=5000", // Must be first
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON", // step_results cascade on run deletion
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

	if err := store.initSchema(); err != nil {
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

		// Only retry on "database is locked" errors
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}

		lastErr = err
		// Exponential backoff
		delay := baseDelay * time.Duration(1<<attempt)
		time.Sleep(delay)
	}
	return lastErr
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// initSchema initializes the database schema using migrations
func (s *Store) initSchema() error {
	ctx := context.Background()

	if err := s.ApplyMigrations(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// getSchemaVersion retrieves the current schema version (delegates to GetLatestVersion)
func (s *Store) getSchemaVersion() (int, error) {
	return s.GetLatestVersion()
}

// tableExists checks if a table exists in the database
func (s *Store) tableExists(tableName string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`
	err := s.db.QueryRow(query, tableName).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check table existence: %w", err)
	}
	return count > 0, nil
}

// indexExists checks if an index exists in the database
func (s *Store) indexExists(indexName string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?`
	err := s.db.QueryRow(query, indexName).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check index existence: %w", err)
	}
	return count > 0, nil
}

// RecordRun stores a completed run report and all of its step results.
// The run row and its step rows are inserted in one transaction so a
// recorded run is never missing steps. Returns the database id of the
// inserted run row.
func (s *Store) RecordRun(ctx context.Context, report *models.RunReport) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() // no-op if committed

	runQuery := `INSERT INTO runs
		(run_id, pipeline, overall, total_steps, passed, failed, annotations, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := tx.ExecContext(ctx, runQuery,
		report.RunID,
		report.Pipeline,
		report.Overall,
		report.TotalSteps,
		report.Passed,
		report.Failed,
		report.Annotations,
		report.StartedAt,
		report.Duration.Milliseconds(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}

	runDBID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get run id: %w", err)
	}

	stepQuery := `INSERT INTO step_results
		(run_db_id, position, name, command, class, status, exit_code, annotations, duration_ms, output)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	for i := range report.Results {
		res := &report.Results[i]
		_, err := tx.ExecContext(ctx, stepQuery,
			runDBID,
			i,
			res.Step.Name,
			res.Step.Command,
			string(res.Step.Class),
			res.Status,
			res.ExitCode,
			len(res.Annotations),
			res.Duration.Milliseconds(),
			res.Output,
		)
		if err != nil {
			return 0, fmt.Errorf("insert step result %q: %w", res.Step.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit run: %w", err)
	}

	return runDBID, nil
}

// ListRuns retrieves recorded runs, most recent first. A non-empty pipeline
// restricts the list to that pipeline; limit > 0 caps the number of rows.
func (s *Store) ListRuns(ctx context.Context, pipeline string, limit int) ([]*RunRecord, error) {
	query := `SELECT id, run_id, pipeline, overall, total_steps, passed, failed, annotations, started_at, duration_ms
		FROM runs`
	var args []interface{}

	if pipeline != "" {
		query += " WHERE pipeline = ?"
		args = append(args, pipeline)
	}
	query += " ORDER BY id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}

	return runs, nil
}

// GetRun retrieves a single run by its database id.
// Returns (nil, nil) if no run with that id exists.
func (s *Store) GetRun(ctx context.Context, id int64) (*RunRecord, error) {
	query := `SELECT id, run_id, pipeline, overall, total_steps, passed, failed, annotations, started_at, duration_ms
		FROM runs WHERE id = ?`
	return s.getRun(ctx, query, id)
}

// GetRunByRunID retrieves a single run by its uuid.
// Returns (nil, nil) if no run with that uuid exists.
func (s *Store) GetRunByRunID(ctx context.Context, runID string) (*RunRecord, error) {
	query := `SELECT id, run_id, pipeline, overall, total_steps, passed, failed, annotations, started_at, duration_ms
		FROM runs WHERE run_id = ?`
	return s.getRun(ctx, query, runID)
}

func (s *Store) getRun(ctx context.Context, query string, arg interface{}) (*RunRecord, error) {
	row := s.db.QueryRowContext(ctx, query, arg)

	rec := &RunRecord{}
	var durationMS int64
	err := row.Scan(
		&rec.ID,
		&rec.RunID,
		&rec.Pipeline,
		&rec.Overall,
		&rec.TotalSteps,
		&rec.Passed,
		&rec.Failed,
		&rec.Annotations,
		&rec.StartedAt,
		&durationMS,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("query run: %w", err)
	}
	rec.Duration = time.Duration(durationMS) * time.Millisecond

	return rec, nil
}

// scanRun scans one runs row from a multi-row result set.
func scanRun(rows *sql.Rows) (*RunRecord, error) {
	rec := &RunRecord{}
	var durationMS int64
	err := rows.Scan(
		&rec.ID,
		&rec.RunID,
		&rec.Pipeline,
		&rec.Overall,
		&rec.TotalSteps,
		&rec.Passed,
		&rec.Failed,
		&rec.Annotations,
		&rec.StartedAt,
		&durationMS,
	)
	if err != nil {
		return nil, fmt.Errorf("scan run row: %w", err)
	}
	rec.Duration = time.Duration(durationMS) * time.Millisecond
	return rec, nil
}

// GetSteps retrieves the step results of a run in execution order.
func (s *Store) GetSteps(ctx context.Context, runDBID int64) ([]*StepRecord, error) {
	query := `SELECT id, run_db_id, position, name, command, class, status, exit_code, annotations, duration_ms, output
		FROM step_results
		WHERE run_db_id = ?
		ORDER BY position ASC`

	rows, err := s.db.QueryContext(ctx, query, runDBID)
	if err != nil {
		return nil, fmt.Errorf("query step results: %w", err)
	}
	defer rows.Close()

	var steps []*StepRecord
	for rows.Next() {
		step := &StepRecord{}
		var command, class, output sql.NullString
		var durationMS int64
		err := rows.Scan(
			&step.ID,
			&step.RunDBID,
			&step.Position,
			&step.Name,
			&command,
			&class,
			&step.Status,
			&step.ExitCode,
			&step.Annotations,
			&durationMS,
			&output,
		)
		if err != nil {
			return nil, fmt.Errorf("scan step row: %w", err)
		}

		if command.Valid {
			step.Command = command.String
		}
		if class.Valid {
			step.Class = class.String
		}
		if output.Valid {
			step.Output = output.String
		}
		step.Duration = time.Duration(durationMS) * time.Millisecond

		steps = append(steps, step)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate step rows: %w", err)
	}

	return steps, nil
}

// CountRuns returns the total number of recorded runs.
func (s *Store) CountRuns(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count runs: %w", err)
	}
	return count, nil
}

// Prune deletes recorded runs beyond the retention settings. keepRuns > 0
// keeps only the most recent N runs; keepDays > 0 additionally drops runs
// older than that many days. Zero or negative values mean keep forever.
// Step results are removed with their run via the cascading foreign key.
// Returns the number of deleted run records.
func (s *Store) Prune(ctx context.Context, keepRuns, keepDays int) (int64, error) {
	var deleted int64

	if keepDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -keepDays)
		result, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, cutoff)
		if err != nil {
			return deleted, fmt.Errorf("prune old runs: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return deleted, fmt.Errorf("get rows affected: %w", err)
		}
		deleted += n
	}

	if keepRuns > 0 {
		query := `DELETE FROM runs WHERE id NOT IN (
			SELECT id FROM runs ORDER BY id DESC LIMIT ?)`
		result, err := s.db.ExecContext(ctx, query, keepRuns)
		if err != nil {
			return deleted, fmt.Errorf("prune excess runs: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return deleted, fmt.Errorf("get rows affected: %w", err)
		}
		deleted += n
	}

	return deleted, nil
}
