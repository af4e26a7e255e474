package memory

import (
	"context"

	"github.com/bizrank/review-service/internal/types"
)

// ListJobRuns returns the recorded run of every job by name
func (s *Store) ListJobRuns(_ context.Context) (map[string]types.JobRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]types.JobRun, len(s.jobRuns))
	for name, r := range s.jobRuns {
		out[name] = r
	}
	return out, nil
}

// SaveJobRun replaces the recorded run of a job
func (s *Store) SaveJobRun(_ context.Context, run types.JobRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobRuns[run.Name] = run
	return nil
}
