// Package memory is a process-local implementation of every store the
// service uses. It backs unit tests and the --memory mode of the CLI.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/bizrank/review-service/internal/types"
)

// Store keeps all state in maps guarded by one mutex, so every operation is
// atomic with respect to the others.
type Store struct {
	mu sync.Mutex

	businesses   map[string]types.Business
	reviews      map[string][]types.RawReview // by business
	reviewIDs    map[string]struct{}
	tags         map[string]types.AnalysisTags // by review
	rankings     map[string]types.Ranking      // by business
	achievements []types.Achievement
	progress     map[string]map[string]types.AchievementProgress // business -> type
	tasks        map[string]*types.Task
	taskSeq      map[string]int64 // insertion order
	syncItems    map[string]*types.SyncItem
	syncSeq      map[string]int64
	reports      map[string]types.ReportArchive
	jobRuns      map[string]types.JobRun
	seq          int64
}

// New creates an empty store
func New() *Store {
	return &Store{
		businesses: make(map[string]types.Business),
		reviews:    make(map[string][]types.RawReview),
		reviewIDs:  make(map[string]struct{}),
		tags:       make(map[string]types.AnalysisTags),
		rankings:   make(map[string]types.Ranking),
		progress:   make(map[string]map[string]types.AchievementProgress),
		tasks:      make(map[string]*types.Task),
		taskSeq:    make(map[string]int64),
		syncItems:  make(map[string]*types.SyncItem),
		syncSeq:    make(map[string]int64),
		reports:    make(map[string]types.ReportArchive),
		jobRuns:    make(map[string]types.JobRun),
	}
}

func (s *Store) nextSeq() int64 {
	s.seq++
	return s.seq
}

// PutBusiness creates or replaces a business record
func (s *Store) PutBusiness(_ context.Context, b types.Business) error {
	if b.ID == "" {
		return fmt.Errorf("business id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.businesses[b.ID] = b
	return nil
}

// GetBusiness returns a business by id
func (s *Store) GetBusiness(_ context.Context, id string) (*types.Business, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.businesses[id]
	if !ok {
		return nil, fmt.Errorf("business %s: %w", id, types.ErrNotFound)
	}
	return &b, nil
}

// ListActiveBusinesses returns active businesses ordered by id
func (s *Store) ListActiveBusinesses(_ context.Context) ([]types.Business, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Business, 0, len(s.businesses))
	for _, b := range s.businesses {
		if b.Active {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListReviewKeys returns the dedupe keys of a business's stored reviews
func (s *Store) ListReviewKeys(_ context.Context, businessID string) ([]types.ReviewKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := s.reviews[businessID]
	keys := make([]types.ReviewKey, 0, len(stored))
	for _, r := range stored {
		keys = append(keys, types.ReviewKey{AuthorName: r.AuthorName, Comment: r.Comment, Rating: r.Rating})
	}
	return keys, nil
}

// InsertReviews stores all reviews or none
func (s *Store) InsertReviews(_ context.Context, reviews []types.RawReview) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]struct{}, len(reviews))
	for _, r := range reviews {
		if err := s.checkReview(r); err != nil {
			return err
		}
		if _, dup := seen[r.ID]; dup {
			return fmt.Errorf("duplicate review id %s in batch", r.ID)
		}
		seen[r.ID] = struct{}{}
	}
	for _, r := range reviews {
		s.insertReview(r)
	}
	return nil
}

// InsertReview stores one review
func (s *Store) InsertReview(_ context.Context, review types.RawReview) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkReview(review); err != nil {
		return err
	}
	s.insertReview(review)
	return nil
}

func (s *Store) checkReview(r types.RawReview) error {
	if r.ID == "" || r.BusinessID == "" {
		return fmt.Errorf("review id and business id are required")
	}
	if _, exists := s.reviewIDs[r.ID]; exists {
		return fmt.Errorf("review %s already exists", r.ID)
	}
	return nil
}

func (s *Store) insertReview(r types.RawReview) {
	s.reviews[r.BusinessID] = append(s.reviews[r.BusinessID], r)
	s.reviewIDs[r.ID] = struct{}{}
}

// ListReviews returns a business's reviews, newest first
func (s *Store) ListReviews(_ context.Context, businessID string) ([]types.RawReview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]types.RawReview(nil), s.reviews[businessID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ListUnanalyzedReviews returns up to limit reviews without analysis tags,
// oldest first
func (s *Store) ListUnanalyzedReviews(_ context.Context, businessID string, limit int) ([]types.RawReview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.RawReview
	for _, r := range s.reviews[businessID] {
		if _, analysed := s.tags[r.ID]; !analysed {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ReviewStats counts a business's reviews and averages their rating
func (s *Store) ReviewStats(_ context.Context, businessID string) (types.ReviewStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := s.reviews[businessID]
	stats := types.ReviewStats{Count: len(stored)}
	if len(stored) == 0 {
		return stats, nil
	}
	sum := 0.0
	for _, r := range stored {
		sum += r.Rating
	}
	stats.AverageRating = sum / float64(len(stored))
	return stats, nil
}
