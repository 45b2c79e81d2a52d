// Package storage persists job results to Postgres and caches extraction
// outcomes in Redis. Both are best-effort from the pipeline's point of
// view: a storage failure is reported but never rewrites an extraction
// outcome.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/docforge/extract-worker/internal/errors"
	"github.com/docforge/extract-worker/internal/extract"
)

// JobStatus values written to the extraction_jobs table.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// JobResult is the terminal record for one extraction job.
type JobResult struct {
	JobID        string
	Status       string
	Method       extract.SourceMethod
	PageCount    int
	Text         string
	Warnings     []string
	ErrorCode    errors.ErrorCode
	ErrorMessage string
	Duration     time.Duration
}

// PostgresStore writes job state and worker statistics.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects and verifies the connection.
func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// EnsureSchema creates the tables when they do not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS extraction_jobs (
			job_id        TEXT PRIMARY KEY,
			status        TEXT NOT NULL,
			method        TEXT,
			page_count    INTEGER NOT NULL DEFAULT 0,
			extracted_text TEXT,
			warnings      TEXT[],
			error_code    TEXT,
			error_message TEXT,
			duration_ms   BIGINT NOT NULL DEFAULT 0,
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS extraction_stats (
			worker_id       TEXT PRIMARY KEY,
			attempts        BIGINT NOT NULL,
			successes       BIGINT NOT NULL,
			failures        BIGINT NOT NULL,
			cumulative_ms   BIGINT NOT NULL,
			updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// MarkProcessing records that a job entered the pipeline.
func (s *PostgresStore) MarkProcessing(ctx context.Context, jobID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO extraction_jobs (job_id, status, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (job_id) DO UPDATE
		SET status = EXCLUDED.status, updated_at = now()`,
		jobID, StatusProcessing)
	if err != nil {
		return errors.NewStorageFailedError(jobID, err)
	}
	return nil
}

// SaveResult upserts the terminal state of a job.
func (s *PostgresStore) SaveResult(ctx context.Context, r *JobResult) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO extraction_jobs
			(job_id, status, method, page_count, extracted_text, warnings,
			 error_code, error_message, duration_ms, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		ON CONFLICT (job_id) DO UPDATE SET
			status = EXCLUDED.status,
			method = EXCLUDED.method,
			page_count = EXCLUDED.page_count,
			extracted_text = EXCLUDED.extracted_text,
			warnings = EXCLUDED.warnings,
			error_code = EXCLUDED.error_code,
			error_message = EXCLUDED.error_message,
			duration_ms = EXCLUDED.duration_ms,
			updated_at = now()`,
		r.JobID, r.Status, string(r.Method), r.PageCount, r.Text,
		pq.Array(r.Warnings), string(r.ErrorCode), r.ErrorMessage,
		r.Duration.Milliseconds())
	if err != nil {
		return errors.NewStorageFailedError(r.JobID, err)
	}
	return nil
}

// SaveStats upserts the worker's performance counters.
func (s *PostgresStore) SaveStats(ctx context.Context, workerID string, snap extract.StatsSnapshot) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO extraction_stats
			(worker_id, attempts, successes, failures, cumulative_ms, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (worker_id) DO UPDATE SET
			attempts = EXCLUDED.attempts,
			successes = EXCLUDED.successes,
			failures = EXCLUDED.failures,
			cumulative_ms = EXCLUDED.cumulative_ms,
			updated_at = now()`,
		workerID, int64(snap.Attempts), int64(snap.Successes),
		int64(snap.Failures), snap.CumulativeTime.Milliseconds())
	if err != nil {
		return fmt.Errorf("save stats: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
