package database

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/bizrank/review-service/internal/types"
)

const rankingColumns = `business_id, category_id, city, overall_score, ranking_position,
	previous_position, category_scores, reviews_analyzed, confidence_score,
	confidence_multiplier, last_calculated`

func scanRanking(row pgx.Row) (*types.Ranking, error) {
	var (
		r      types.Ranking
		scores []byte
	)
	err := row.Scan(&r.BusinessID, &r.CategoryID, &r.City, &r.OverallScore, &r.RankingPosition,
		&r.PreviousPosition, &scores, &r.ReviewsAnalyzed, &r.ConfidenceScore,
		&r.ConfidenceMultiplier, &r.LastCalculated)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(scores, &r.CategoryScores); err != nil {
		return nil, fmt.Errorf("failed to decode category scores: %w", err)
	}
	return &r, nil
}

// GetRanking returns the ranking of a business
func (s *Store) GetRanking(ctx context.Context, businessID string) (*types.Ranking, error) {
	r, err := scanRanking(s.pool.QueryRow(ctx,
		`SELECT `+rankingColumns+` FROM business_rankings WHERE business_id = $1`, businessID))
	if err != nil {
		return nil, notFound(err, "ranking", businessID)
	}
	return r, nil
}

// SaveRanking upserts scores; stored positions survive
func (s *Store) SaveRanking(ctx context.Context, r types.Ranking) error {
	scores, err := json.Marshal(r.CategoryScores)
	if err != nil {
		return fmt.Errorf("failed to encode category scores: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO business_rankings (
			business_id, category_id, city, overall_score, ranking_position, previous_position,
			category_scores, reviews_analyzed, confidence_score, confidence_multiplier, last_calculated
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (business_id) DO UPDATE SET
			category_id = EXCLUDED.category_id,
			city = EXCLUDED.city,
			overall_score = EXCLUDED.overall_score,
			category_scores = EXCLUDED.category_scores,
			reviews_analyzed = EXCLUDED.reviews_analyzed,
			confidence_score = EXCLUDED.confidence_score,
			confidence_multiplier = EXCLUDED.confidence_multiplier,
			last_calculated = EXCLUDED.last_calculated
	`, r.BusinessID, r.CategoryID, r.City, r.OverallScore, r.RankingPosition, r.PreviousPosition,
		scores, r.ReviewsAnalyzed, r.ConfidenceScore, r.ConfidenceMultiplier, r.LastCalculated)
	if err != nil {
		return fmt.Errorf("failed to save ranking %s: %w", r.BusinessID, err)
	}
	return nil
}

// ListCohortRankings returns every ranking of a (category, city) cohort
func (s *Store) ListCohortRankings(ctx context.Context, categoryID, city string) ([]types.Ranking, error) {
	return s.ListRankings(ctx, types.RankingFilter{CategoryID: categoryID, City: city})
}

// UpdateRankingPositions applies every update or none
func (s *Store) UpdateRankingPositions(ctx context.Context, updates []types.PositionUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, u := range updates {
			batch.Queue(`
				UPDATE business_rankings SET ranking_position = $2, previous_position = $3
				WHERE business_id = $1
			`, u.BusinessID, u.Position, u.PreviousPosition)
		}
		br := tx.SendBatch(ctx, batch)
		defer br.Close()
		for _, u := range updates {
			tag, err := br.Exec()
			if err != nil {
				return fmt.Errorf("failed to update position of %s: %w", u.BusinessID, err)
			}
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("ranking %s: %w", u.BusinessID, types.ErrNotFound)
			}
		}
		return br.Close()
	})
}

// ListRankings filters rankings, ordered by cohort then position. Unranked
// rows sort last within their cohort.
func (s *Store) ListRankings(ctx context.Context, f types.RankingFilter) ([]types.Ranking, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if f.BusinessID != "" {
		add("business_id = $%d", f.BusinessID)
	}
	if f.CategoryID != "" {
		add("category_id = $%d", f.CategoryID)
	}
	if f.City != "" {
		add("city = $%d", f.City)
	}

	var sb strings.Builder
	sb.WriteString(`SELECT ` + rankingColumns + ` FROM business_rankings`)
	if len(where) > 0 {
		sb.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	sb.WriteString(" ORDER BY category_id, city, ranking_position = 0, ranking_position, business_id")
	if f.Limit > 0 {
		args = append(args, f.Limit)
		sb.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))
	}

	rows, err := s.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list rankings: %w", err)
	}
	defer rows.Close()

	var out []types.Ranking
	for rows.Next() {
		r, err := scanRanking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ranking: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

const achievementColumns = `id, business_id, achievement_type, tier_level, tier_requirement,
	display_name, badge_icon, display_priority, qualifying_data, status, awarded_at`

// ListAchievements returns a business's achievements by display priority
// then tier
func (s *Store) ListAchievements(ctx context.Context, businessID string) ([]types.Achievement, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+achievementColumns+` FROM achievements
		WHERE business_id = $1
		ORDER BY display_priority,
			array_position(ARRAY['bronze', 'silver', 'gold', 'platinum', 'diamond'], tier_level),
			awarded_at
	`, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	defer rows.Close()

	var out []types.Achievement
	for rows.Next() {
		var (
			a                  types.Achievement
			tier, plan, status string
			qualifying         []byte
		)
		if err := rows.Scan(&a.ID, &a.BusinessID, &a.AchievementType, &tier, &plan,
			&a.DisplayName, &a.BadgeIcon, &a.DisplayPriority, &qualifying, &status, &a.AwardedAt); err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}
		a.TierLevel = types.TierLevel(tier)
		a.TierRequirement = types.ParsePlanTier(plan)
		a.Status = types.AchievementStatus(status)
		if len(qualifying) > 0 {
			a.QualifyingData = json.RawMessage(qualifying)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// InsertAchievement stores a unless (business, type, tier) exists in any
// status
func (s *Store) InsertAchievement(ctx context.Context, a types.Achievement) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO achievements (
			id, business_id, achievement_type, tier_level, tier_requirement,
			display_name, badge_icon, display_priority, qualifying_data, status, awarded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (business_id, achievement_type, tier_level) DO NOTHING
	`, a.ID, a.BusinessID, a.AchievementType, string(a.TierLevel), string(a.TierRequirement),
		a.DisplayName, a.BadgeIcon, a.DisplayPriority, nullJSON(a.QualifyingData), string(a.Status), a.AwardedAt)
	if err != nil {
		return false, fmt.Errorf("failed to insert achievement: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// RevokeAchievement flips an achievement to revoked
func (s *Store) RevokeAchievement(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE achievements SET status = 'revoked' WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to revoke achievement %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("achievement %s: %w", id, types.ErrNotFound)
	}
	return nil
}

// UpsertAchievementProgress stores the progress row of (business, type)
func (s *Store) UpsertAchievementProgress(ctx context.Context, p types.AchievementProgress) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO achievement_progress (
			business_id, achievement_type, next_tier, next_tier_locked, required_plan,
			current_progress, current_value, target_value, recommendation, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (business_id, achievement_type) DO UPDATE SET
			next_tier = EXCLUDED.next_tier,
			next_tier_locked = EXCLUDED.next_tier_locked,
			required_plan = EXCLUDED.required_plan,
			current_progress = EXCLUDED.current_progress,
			current_value = EXCLUDED.current_value,
			target_value = EXCLUDED.target_value,
			recommendation = EXCLUDED.recommendation,
			updated_at = EXCLUDED.updated_at
	`, p.BusinessID, p.AchievementType, string(p.NextTier), p.NextTierLocked, string(p.RequiredPlan),
		p.CurrentProgress, p.CurrentValue, p.TargetValue, p.Recommendation, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save progress of %s/%s: %w", p.BusinessID, p.AchievementType, err)
	}
	return nil
}

// DeleteAchievementProgress removes the progress row of (business, type)
func (s *Store) DeleteAchievementProgress(ctx context.Context, businessID, achievementType string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM achievement_progress WHERE business_id = $1 AND achievement_type = $2
	`, businessID, achievementType)
	if err != nil {
		return fmt.Errorf("failed to delete progress of %s/%s: %w", businessID, achievementType, err)
	}
	return nil
}

// ListAchievementProgress returns a business's progress rows by type
func (s *Store) ListAchievementProgress(ctx context.Context, businessID string) ([]types.AchievementProgress, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT business_id, achievement_type, next_tier, next_tier_locked, required_plan,
			current_progress, current_value, target_value, recommendation, updated_at
		FROM achievement_progress
		WHERE business_id = $1
		ORDER BY achievement_type
	`, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	defer rows.Close()

	out := []types.AchievementProgress{}
	for rows.Next() {
		var (
			p          types.AchievementProgress
			tier, plan string
		)
		if err := rows.Scan(&p.BusinessID, &p.AchievementType, &tier, &p.NextTierLocked, &plan,
			&p.CurrentProgress, &p.CurrentValue, &p.TargetValue, &p.Recommendation, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan progress: %w", err)
		}
		p.NextTier = types.TierLevel(tier)
		p.RequiredPlan = types.ParsePlanTier(plan)
		out = append(out, p)
	}
	return out, rows.Err()
}
