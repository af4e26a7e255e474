package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/bizrank/review-service/internal/types"
)

// UpsertAnalysisTags stores the tags of one review, replacing earlier ones
func (s *Store) UpsertAnalysisTags(_ context.Context, t types.AnalysisTags) error {
	if t.ReviewID == "" || t.BusinessID == "" {
		return fmt.Errorf("review id and business id are required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tags[t.ReviewID] = t
	return nil
}

// ListAnalysisTags returns the tags of a business ordered by review id
func (s *Store) ListAnalysisTags(_ context.Context, businessID string) ([]types.AnalysisTags, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.AnalysisTags
	for _, t := range s.tags {
		if t.BusinessID == businessID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReviewID < out[j].ReviewID })
	return out, nil
}

// GetRanking returns the ranking of a business
func (s *Store) GetRanking(_ context.Context, businessID string) (*types.Ranking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rankings[businessID]
	if !ok {
		return nil, fmt.Errorf("ranking %s: %w", businessID, types.ErrNotFound)
	}
	return &r, nil
}

// SaveRanking upserts scores; stored positions survive
func (s *Store) SaveRanking(_ context.Context, r types.Ranking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.rankings[r.BusinessID]; ok {
		r.RankingPosition = existing.RankingPosition
		r.PreviousPosition = existing.PreviousPosition
	}
	s.rankings[r.BusinessID] = r
	return nil
}

// ListCohortRankings returns every ranking of a (category, city) cohort
func (s *Store) ListCohortRankings(ctx context.Context, categoryID, city string) ([]types.Ranking, error) {
	return s.ListRankings(ctx, types.RankingFilter{CategoryID: categoryID, City: city})
}

// UpdateRankingPositions applies every update or none
func (s *Store) UpdateRankingPositions(_ context.Context, updates []types.PositionUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range updates {
		if _, ok := s.rankings[u.BusinessID]; !ok {
			return fmt.Errorf("ranking %s: %w", u.BusinessID, types.ErrNotFound)
		}
	}
	for _, u := range updates {
		r := s.rankings[u.BusinessID]
		r.RankingPosition = u.Position
		r.PreviousPosition = u.PreviousPosition
		s.rankings[u.BusinessID] = r
	}
	return nil
}

// ListRankings filters rankings, ordered by cohort then position. Unranked
// rows sort last within their cohort.
func (s *Store) ListRankings(_ context.Context, f types.RankingFilter) ([]types.Ranking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.Ranking
	for _, r := range s.rankings {
		if f.BusinessID != "" && r.BusinessID != f.BusinessID {
			continue
		}
		if f.CategoryID != "" && r.CategoryID != f.CategoryID {
			continue
		}
		if f.City != "" && r.City != f.City {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.CategoryID != b.CategoryID {
			return a.CategoryID < b.CategoryID
		}
		if a.City != b.City {
			return a.City < b.City
		}
		if (a.RankingPosition == 0) != (b.RankingPosition == 0) {
			return b.RankingPosition == 0
		}
		if a.RankingPosition != b.RankingPosition {
			return a.RankingPosition < b.RankingPosition
		}
		return a.BusinessID < b.BusinessID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// ListAchievements returns a business's achievements by display priority
// then tier
func (s *Store) ListAchievements(_ context.Context, businessID string) ([]types.Achievement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.Achievement
	for _, a := range s.achievements {
		if a.BusinessID == businessID {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DisplayPriority != out[j].DisplayPriority {
			return out[i].DisplayPriority < out[j].DisplayPriority
		}
		return out[i].TierLevel.Rank() < out[j].TierLevel.Rank()
	})
	return out, nil
}

// InsertAchievement stores a unless (business, type, tier) exists in any
// status
func (s *Store) InsertAchievement(_ context.Context, a types.Achievement) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.achievements {
		if existing.BusinessID == a.BusinessID &&
			existing.AchievementType == a.AchievementType &&
			existing.TierLevel == a.TierLevel {
			return false, nil
		}
	}
	s.achievements = append(s.achievements, a)
	return true, nil
}

// RevokeAchievement flips an achievement to revoked
func (s *Store) RevokeAchievement(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.achievements {
		if s.achievements[i].ID == id {
			s.achievements[i].Status = types.AchievementRevoked
			return nil
		}
	}
	return fmt.Errorf("achievement %s: %w", id, types.ErrNotFound)
}

// UpsertAchievementProgress stores the progress row of (business, type)
func (s *Store) UpsertAchievementProgress(_ context.Context, p types.AchievementProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.progress[p.BusinessID]
	if !ok {
		rows = make(map[string]types.AchievementProgress)
		s.progress[p.BusinessID] = rows
	}
	rows[p.AchievementType] = p
	return nil
}

// DeleteAchievementProgress removes the progress row of (business, type)
func (s *Store) DeleteAchievementProgress(_ context.Context, businessID, achievementType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.progress[businessID], achievementType)
	return nil
}

// ListAchievementProgress returns a business's progress rows by type
func (s *Store) ListAchievementProgress(_ context.Context, businessID string) ([]types.AchievementProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.AchievementProgress, 0, len(s.progress[businessID]))
	for _, p := range s.progress[businessID] {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AchievementType < out[j].AchievementType })
	return out, nil
}
