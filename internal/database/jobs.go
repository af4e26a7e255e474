package database

import (
	"context"
	"fmt"

	"github.com/bizrank/review-service/internal/types"
)

// ListJobRuns returns the recorded run of every job by name
func (s *Store) ListJobRuns(ctx context.Context) (map[string]types.JobRun, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT name, last_started, last_finished, last_error FROM scheduled_jobs
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list job runs: %w", err)
	}
	defer rows.Close()

	out := make(map[string]types.JobRun)
	for rows.Next() {
		var r types.JobRun
		if err := rows.Scan(&r.Name, &r.LastStarted, &r.LastFinished, &r.LastError); err != nil {
			return nil, fmt.Errorf("failed to scan job run: %w", err)
		}
		out[r.Name] = r
	}
	return out, rows.Err()
}

// SaveJobRun upserts the recorded run of a job
func (s *Store) SaveJobRun(ctx context.Context, run types.JobRun) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO scheduled_jobs (name, last_started, last_finished, last_error, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (name) DO UPDATE SET
			last_started = EXCLUDED.last_started,
			last_finished = EXCLUDED.last_finished,
			last_error = EXCLUDED.last_error,
			updated_at = now()
	`, run.Name, run.LastStarted, run.LastFinished, run.LastError)
	if err != nil {
		return fmt.Errorf("failed to save job run %s: %w", run.Name, err)
	}
	return nil
}
