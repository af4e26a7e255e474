// Package ranking turns analysed review tags into an overall score and a
// position within each (category, city) cohort.
package ranking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/bizrank/review-service/internal/types"
)

// Store persists rankings and exposes the tags they are computed from
type Store interface {
	ListAnalysisTags(ctx context.Context, businessID string) ([]types.AnalysisTags, error)
	GetRanking(ctx context.Context, businessID string) (*types.Ranking, error)
	// SaveRanking upserts the scores of r, keeping the stored positions
	SaveRanking(ctx context.Context, r types.Ranking) error
	ListCohortRankings(ctx context.Context, categoryID, city string) ([]types.Ranking, error)
	// UpdateRankingPositions applies all updates in one transaction
	UpdateRankingPositions(ctx context.Context, updates []types.PositionUpdate) error
	ListRankings(ctx context.Context, filter types.RankingFilter) ([]types.Ranking, error)
}

// BusinessLookup resolves the collaborator-owned business record
type BusinessLookup interface {
	GetBusiness(ctx context.Context, id string) (*types.Business, error)
}

// Engine calculates rankings
type Engine struct {
	store      Store
	businesses BusinessLookup
	now        func() time.Time
	logger     zerolog.Logger
}

// NewEngine creates a ranking engine
func NewEngine(store Store, businesses BusinessLookup, logger *zerolog.Logger) *Engine {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "ranking").Logger()
	}
	return &Engine{store: store, businesses: businesses, now: time.Now, logger: l}
}

// WithClock replaces the time source, used by tests
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Compute derives a ranking from tags without touching storage. It returns
// nil when fewer than MinEligibleReviews tags have confidence >= 60 or the
// average confidence across all analyzed tags is below 60. Only eligible
// tags contribute to the scores.
func Compute(b types.Business, tags []types.AnalysisTags, now time.Time) *types.Ranking {
	eligible := make([]types.AnalysisTags, 0, len(tags))
	confidenceSum := 0.0
	for _, t := range tags {
		confidenceSum += t.ConfidenceScore
		if t.Eligible() {
			eligible = append(eligible, t)
		}
	}
	n := len(eligible)
	if n < MinEligibleReviews {
		return nil
	}
	avgConfidence := confidenceSum / float64(len(tags))
	if avgConfidence < types.MinTagConfidence {
		return nil
	}

	var sum types.CategoryScores
	weightTotal := 0.0
	for _, t := range eligible {
		reviewed := t.ReviewDate
		if reviewed.IsZero() {
			reviewed = t.AnalyzedAt
		}
		w := RecencyWeight(now.Sub(reviewed))
		s := ReviewScores(t)

		sum.Quality += w * s.Quality
		sum.ServiceExcellence += w * s.ServiceExcellence
		sum.CustomerExperience += w * s.CustomerExperience
		sum.TechnicalMastery += w * s.TechnicalMastery
		sum.CompetitiveAdvantage += w * s.CompetitiveAdvantage
		sum.OperationalExcellence += w * s.OperationalExcellence
		weightTotal += w
	}

	scores := types.CategoryScores{
		Quality:               round2(sum.Quality / weightTotal),
		ServiceExcellence:     round2(sum.ServiceExcellence / weightTotal),
		CustomerExperience:    round2(sum.CustomerExperience / weightTotal),
		TechnicalMastery:      round2(sum.TechnicalMastery / weightTotal),
		CompetitiveAdvantage:  round2(sum.CompetitiveAdvantage / weightTotal),
		OperationalExcellence: round2(sum.OperationalExcellence / weightTotal),
	}
	multiplier := ConfidenceMultiplier(n)

	return &types.Ranking{
		BusinessID:           b.ID,
		CategoryID:           b.CategoryID,
		City:                 b.City,
		OverallScore:         OverallScore(WeightedSum(scores), multiplier),
		CategoryScores:       scores,
		ReviewsAnalyzed:      n,
		ConfidenceScore:      round1(avgConfidence),
		ConfidenceMultiplier: round2(multiplier),
		LastCalculated:       now,
	}
}

// CalculateRanking recomputes and stores the ranking of businessID.
// A nil ranking means the business is not yet rankable and nothing was
// written.
func (e *Engine) CalculateRanking(ctx context.Context, businessID string) (*types.Ranking, error) {
	b, err := e.businesses.GetBusiness(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to load business %s: %w", businessID, err)
	}
	tags, err := e.store.ListAnalysisTags(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to load analysis tags: %w", err)
	}

	r := Compute(*b, tags, e.now().UTC())
	if r == nil {
		e.logger.Debug().
			Str("business_id", businessID).
			Int("tags", len(tags)).
			Msg("Business not yet rankable")
		return nil, nil
	}

	existing, err := e.store.GetRanking(ctx, businessID)
	switch {
	case err == nil:
		r.RankingPosition = existing.RankingPosition
		r.PreviousPosition = existing.PreviousPosition
	case !errors.Is(err, types.ErrNotFound):
		return nil, fmt.Errorf("failed to load ranking: %w", err)
	}

	if err := e.store.SaveRanking(ctx, *r); err != nil {
		return nil, fmt.Errorf("failed to save ranking: %w", err)
	}
	rankingsCalculated.Inc()

	e.logger.Info().
		Str("business_id", businessID).
		Float64("overall_score", r.OverallScore).
		Int("reviews", r.ReviewsAnalyzed).
		Msg("Ranking calculated")
	return r, nil
}

// RerankCohort renumbers the (categoryID, city) cohort by overall score
// descending; ties go to more reviews, then business id. Positions are
// 1-based and contiguous and each row keeps its previous position.
func (e *Engine) RerankCohort(ctx context.Context, categoryID, city string) ([]types.Ranking, error) {
	cohort, err := e.store.ListCohortRankings(ctx, categoryID, city)
	if err != nil {
		return nil, fmt.Errorf("failed to load cohort: %w", err)
	}

	SortCohort(cohort)
	updates := make([]types.PositionUpdate, 0, len(cohort))
	for i := range cohort {
		r := &cohort[i]
		if r.RankingPosition > 0 {
			prev := r.RankingPosition
			r.PreviousPosition = &prev
		}
		r.RankingPosition = i + 1
		updates = append(updates, types.PositionUpdate{
			BusinessID:       r.BusinessID,
			Position:         r.RankingPosition,
			PreviousPosition: r.PreviousPosition,
		})
	}

	if len(updates) > 0 {
		if err := e.store.UpdateRankingPositions(ctx, updates); err != nil {
			return nil, fmt.Errorf("failed to update positions: %w", err)
		}
	}

	e.logger.Info().
		Str("category_id", categoryID).
		Str("city", city).
		Int("size", len(cohort)).
		Msg("Cohort re-ranked")
	return cohort, nil
}

// RerankAll re-ranks every cohort that has at least one ranking
func (e *Engine) RerankAll(ctx context.Context) (int, error) {
	all, err := e.store.ListRankings(ctx, types.RankingFilter{})
	if err != nil {
		return 0, fmt.Errorf("failed to list rankings: %w", err)
	}
	type cohortKey struct{ category, city string }
	seen := make(map[cohortKey]struct{})
	for _, r := range all {
		k := cohortKey{r.CategoryID, r.City}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		if _, err := e.RerankCohort(ctx, k.category, k.city); err != nil {
			return len(seen) - 1, err
		}
	}
	return len(seen), nil
}

// SortCohort orders rankings by overall score desc, reviews desc, id asc
func SortCohort(rankings []types.Ranking) {
	sort.SliceStable(rankings, func(i, j int) bool {
		a, b := rankings[i], rankings[j]
		if a.OverallScore != b.OverallScore {
			return a.OverallScore > b.OverallScore
		}
		if a.ReviewsAnalyzed != b.ReviewsAnalyzed {
			return a.ReviewsAnalyzed > b.ReviewsAnalyzed
		}
		return a.BusinessID < b.BusinessID
	})
}

// Get returns the stored ranking of a business
func (e *Engine) Get(ctx context.Context, businessID string) (*types.Ranking, error) {
	return e.store.GetRanking(ctx, businessID)
}

// List returns rankings matching filter, ordered by position
func (e *Engine) List(ctx context.Context, filter types.RankingFilter) ([]types.Ranking, error) {
	return e.store.ListRankings(ctx, filter)
}
