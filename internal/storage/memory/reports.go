package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/bizrank/review-service/internal/types"
)

// CreateReportArchive records a report unless its checksum is on file
func (s *Store) CreateReportArchive(_ context.Context, a types.ReportArchive) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.reports {
		if existing.Checksum == a.Checksum {
			return false, nil
		}
	}
	s.reports[a.ID] = a
	return true, nil
}

// GetReportArchiveByChecksum looks up a report by checksum
func (s *Store) GetReportArchiveByChecksum(_ context.Context, checksum string) (*types.ReportArchive, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.reports {
		if a.Checksum == checksum {
			out := a
			return &out, nil
		}
	}
	return nil, fmt.Errorf("report with checksum %s: %w", checksum, types.ErrNotFound)
}

// GetReportArchive returns one report record
func (s *Store) GetReportArchive(_ context.Context, id string) (*types.ReportArchive, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.reports[id]
	if !ok {
		return nil, fmt.Errorf("report %s: %w", id, types.ErrNotFound)
	}
	return &a, nil
}

// ListReportArchives returns reports of kind, newest first
func (s *Store) ListReportArchives(_ context.Context, kind string, limit, offset int) ([]types.ReportArchive, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.ReportArchive, 0, len(s.reports))
	for _, a := range s.reports {
		if kind == "" || a.Kind == kind {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GeneratedAt.After(out[j].GeneratedAt) })
	if offset >= len(out) {
		return []types.ReportArchive{}, nil
	}
	out = out[offset:]
	if limit <= 0 {
		limit = 50
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// DeleteReportArchive removes a report record
func (s *Store) DeleteReportArchive(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reports[id]; !ok {
		return fmt.Errorf("report %s: %w", id, types.ErrNotFound)
	}
	delete(s.reports, id)
	return nil
}
