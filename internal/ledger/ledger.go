// Package ledger records every conversion run in a local SQLite database.
// The ledger is history, not state: the orchestrator owns live progress and
// writes it through; readers get a durable audit trail of past runs.
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

// Job statuses. A job leaves StatusProcessing exactly once; the terminal
// statuses never change afterwards.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusCancelled  = "cancelled"
)

// ErrNotFound is returned when no job has the requested id.
var ErrNotFound = errors.New("job not found")

const schema = `
CREATE TABLE IF NOT EXISTS conversion_jobs (
	id                      INTEGER PRIMARY KEY AUTOINCREMENT,
	filename                TEXT NOT NULL,
	total_pages             INTEGER NOT NULL,
	completed_pages         INTEGER NOT NULL DEFAULT 0,
	failed_pages            INTEGER NOT NULL DEFAULT 0,
	status                  TEXT NOT NULL DEFAULT 'processing',
	output_path             TEXT,
	output_paths_json       TEXT,
	created_at              TIMESTAMP NOT NULL,
	completed_at            TIMESTAMP,
	processing_time_seconds REAL,
	custom_prompt           TEXT,
	error_message           TEXT
);
`

// OutputFile describes one rendered artifact of a completed job.
type OutputFile struct {
	Path string `json:"path"`
	Name string `json:"name"`
	MIME string `json:"mime"`
}

// Job is one row of the conversion ledger.
type Job struct {
	ID             int64        `json:"id"`
	Filename       string       `json:"filename"`
	TotalPages     int          `json:"total_pages"`
	CompletedPages int          `json:"completed_pages"`
	FailedPages    int          `json:"failed_pages"`
	Status         string       `json:"status"`
	OutputPath     string       `json:"output_path,omitempty"`
	OutputFiles    []OutputFile `json:"output_files,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	CompletedAt    *time.Time   `json:"completed_at,omitempty"`
	ProcessingSecs float64      `json:"processing_time_seconds,omitempty"`
	CustomPrompt   string       `json:"custom_prompt,omitempty"`
	ErrorMessage   string       `json:"error_message,omitempty"`
}

// Store is the SQLite-backed job ledger.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the ledger database at the given path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}
	// modernc sqlite serializes writes itself; one connection avoids
	// SQLITE_BUSY on concurrent progress updates.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize ledger schema: %w", err)
	}

	logger.Debug("ledger opened", "path", path)
	return &Store{db: db, logger: logger}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// HealthCheck verifies the database is reachable.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateJob inserts a new job in the processing state and returns its id.
func (s *Store) CreateJob(ctx context.Context, filename string, totalPages int, customPrompt string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO conversion_jobs (filename, total_pages, status, custom_prompt, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		filename, totalPages, StatusProcessing, nullString(customPrompt), time.Now().UTC())
	if err != nil {
		s.logger.Error("failed to create job", "filename", filename, "error", err)
		return 0, fmt.Errorf("failed to create job: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read job id: %w", err)
	}

	s.logger.Info("job created", "job_id", id, "filename", filename, "total_pages", totalPages)
	return id, nil
}

// UpdateProgress records page counts for a job still in flight. Updates to
// jobs that already reached a terminal status are silently dropped.
func (s *Store) UpdateProgress(ctx context.Context, jobID int64, completedPages, failedPages int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE conversion_jobs SET completed_pages = ?, failed_pages = ?
		 WHERE id = ? AND status = ?`,
		completedPages, failedPages, jobID, StatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to update job progress: %w", err)
	}
	return nil
}

// CompleteJob marks a processing job completed and stores its outputs.
func (s *Store) CompleteJob(ctx context.Context, jobID int64, outputPath string, outputs []OutputFile, processingSecs float64, failedPages int) error {
	var outputsJSON sql.NullString
	if len(outputs) > 0 {
		b, err := json.Marshal(outputs)
		if err != nil {
			return fmt.Errorf("failed to encode output files: %w", err)
		}
		outputsJSON = sql.NullString{String: string(b), Valid: true}
	}

	err := s.finish(ctx, jobID, StatusCompleted,
		`UPDATE conversion_jobs
		 SET status = ?, output_path = ?, output_paths_json = ?,
		     completed_at = ?, processing_time_seconds = ?, failed_pages = ?
		 WHERE id = ? AND status = ?`,
		StatusCompleted, outputPath, outputsJSON, time.Now().UTC(), processingSecs, failedPages,
		jobID, StatusProcessing)
	if err != nil {
		return err
	}

	s.logger.Info("job completed", "job_id", jobID, "output", outputPath, "failed_pages", failedPages)
	return nil
}

// FailJob marks a processing job failed with the given message.
func (s *Store) FailJob(ctx context.Context, jobID int64, message string) error {
	err := s.finish(ctx, jobID, StatusFailed,
		`UPDATE conversion_jobs SET status = ?, error_message = ?, completed_at = ?
		 WHERE id = ? AND status = ?`,
		StatusFailed, message, time.Now().UTC(), jobID, StatusProcessing)
	if err != nil {
		return err
	}

	s.logger.Warn("job failed", "job_id", jobID, "error", message)
	return nil
}

// CancelJob marks a processing job cancelled, keeping the page count reached.
func (s *Store) CancelJob(ctx context.Context, jobID int64, completedPages int) error {
	err := s.finish(ctx, jobID, StatusCancelled,
		`UPDATE conversion_jobs SET status = ?, completed_pages = ?, completed_at = ?
		 WHERE id = ? AND status = ?`,
		StatusCancelled, completedPages, time.Now().UTC(), jobID, StatusProcessing)
	if err != nil {
		return err
	}

	s.logger.Info("job cancelled", "job_id", jobID, "completed_pages", completedPages)
	return nil
}

// finish runs one terminal-transition update. Zero rows affected means the
// job was already terminal (or absent), which is not an error: the first
// transition wins and later ones are no-ops.
func (s *Store) finish(ctx context.Context, jobID int64, target, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to mark job %s: %w", target, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		s.logger.Debug("job already terminal, transition skipped", "job_id", jobID, "target", target)
	}
	return nil
}

// GetJob returns one job by id.
func (s *Store) GetJob(ctx context.Context, jobID int64) (*Job, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, jobID)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load job: %w", err)
	}
	return job, nil
}

// ListJobs returns all jobs, newest first.
func (s *Store) ListJobs(ctx context.Context) ([]*Job, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// DeleteJob removes a job from the ledger.
func (s *Store) DeleteJob(ctx context.Context, jobID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM conversion_jobs WHERE id = ?`, jobID)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	s.logger.Info("job deleted", "job_id", jobID)
	return nil
}

const selectColumns = `
SELECT id, filename, total_pages, completed_pages, failed_pages, status,
       output_path, output_paths_json, created_at, completed_at,
       processing_time_seconds, custom_prompt, error_message
FROM conversion_jobs`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var (
		job            Job
		outputPath     sql.NullString
		outputsJSON    sql.NullString
		completedAt    sql.NullTime
		processingSecs sql.NullFloat64
		customPrompt   sql.NullString
		errorMessage   sql.NullString
	)

	err := row.Scan(&job.ID, &job.Filename, &job.TotalPages, &job.CompletedPages,
		&job.FailedPages, &job.Status, &outputPath, &outputsJSON, &job.CreatedAt,
		&completedAt, &processingSecs, &customPrompt, &errorMessage)
	if err != nil {
		return nil, err
	}

	job.OutputPath = outputPath.String
	job.ProcessingSecs = processingSecs.Float64
	job.CustomPrompt = customPrompt.String
	job.ErrorMessage = errorMessage.String
	if completedAt.Valid {
		t := completedAt.Time
		job.CompletedAt = &t
	}
	if outputsJSON.Valid && outputsJSON.String != "" {
		// Malformed stored JSON degrades to an empty list, not an error.
		_ = json.Unmarshal([]byte(outputsJSON.String), &job.OutputFiles)
	}
	return &job, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
