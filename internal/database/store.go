package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bizrank/review-service/internal/types"
)

// Store is the Postgres implementation of every store interface
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wraps a connection pool
func NewStore(p *pgxpool.Pool) *Store {
	return &Store{pool: p}
}

func notFound(err error, what, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", what, id, types.ErrNotFound)
	}
	return fmt.Errorf("failed to load %s %s: %w", what, id, err)
}

// PutBusiness creates or replaces a business record
func (s *Store) PutBusiness(ctx context.Context, b types.Business) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO businesses (id, place_id, name, city, category_id, plan_tier, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			place_id = EXCLUDED.place_id,
			name = EXCLUDED.name,
			city = EXCLUDED.city,
			category_id = EXCLUDED.category_id,
			plan_tier = EXCLUDED.plan_tier,
			active = EXCLUDED.active,
			updated_at = now()
	`, b.ID, b.PlaceID, b.Name, b.City, b.CategoryID, string(b.PlanTier), b.Active)
	if err != nil {
		return fmt.Errorf("failed to save business %s: %w", b.ID, err)
	}
	return nil
}

const businessColumns = `id, place_id, name, city, category_id, plan_tier, active`

func scanBusiness(row pgx.Row) (*types.Business, error) {
	var (
		b    types.Business
		plan string
	)
	if err := row.Scan(&b.ID, &b.PlaceID, &b.Name, &b.City, &b.CategoryID, &plan, &b.Active); err != nil {
		return nil, err
	}
	b.PlanTier = types.ParsePlanTier(plan)
	return &b, nil
}

// GetBusiness returns a business by id
func (s *Store) GetBusiness(ctx context.Context, id string) (*types.Business, error) {
	b, err := scanBusiness(s.pool.QueryRow(ctx,
		`SELECT `+businessColumns+` FROM businesses WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "business", id)
	}
	return b, nil
}

// ListActiveBusinesses returns active businesses ordered by id
func (s *Store) ListActiveBusinesses(ctx context.Context) ([]types.Business, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+businessColumns+` FROM businesses WHERE active ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list businesses: %w", err)
	}
	defer rows.Close()

	var out []types.Business
	for rows.Next() {
		b, err := scanBusiness(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan business: %w", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// ListReviewKeys returns the dedupe keys of a business's stored reviews
func (s *Store) ListReviewKeys(ctx context.Context, businessID string) ([]types.ReviewKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT author_name, comment, rating FROM reviews WHERE business_id = $1`, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to list review keys: %w", err)
	}
	defer rows.Close()

	var keys []types.ReviewKey
	for rows.Next() {
		var k types.ReviewKey
		if err := rows.Scan(&k.AuthorName, &k.Comment, &k.Rating); err != nil {
			return nil, fmt.Errorf("failed to scan review key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

const insertReviewSQL = `
	INSERT INTO reviews (
		id, business_id, external_id, author_name, rating, comment,
		owner_reply, source, created_at, imported_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`

func reviewArgs(r types.RawReview) []any {
	return []any{
		r.ID, r.BusinessID, r.ExternalID, r.AuthorName, r.Rating, r.Comment,
		r.OwnerReply, r.Source, r.CreatedAt, r.ImportedAt,
	}
}

// InsertReviews stores all reviews in one transaction
func (s *Store) InsertReviews(ctx context.Context, reviews []types.RawReview) error {
	if len(reviews) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	batch := &pgx.Batch{}
	for _, r := range reviews {
		batch.Queue(insertReviewSQL, reviewArgs(r)...)
	}
	br := tx.SendBatch(ctx, batch)
	for i := range reviews {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("failed to insert review %d: %w", i, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("failed to close batch: %w", err)
	}
	return tx.Commit(ctx)
}

// InsertReview stores one review
func (s *Store) InsertReview(ctx context.Context, review types.RawReview) error {
	if _, err := s.pool.Exec(ctx, insertReviewSQL, reviewArgs(review)...); err != nil {
		return fmt.Errorf("failed to insert review %s: %w", review.ID, err)
	}
	return nil
}

const reviewColumns = `id, business_id, external_id, author_name, rating, comment, owner_reply, source, created_at, imported_at`

func (s *Store) queryReviews(ctx context.Context, sql string, args ...any) ([]types.RawReview, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	var out []types.RawReview
	for rows.Next() {
		var r types.RawReview
		if err := rows.Scan(&r.ID, &r.BusinessID, &r.ExternalID, &r.AuthorName, &r.Rating,
			&r.Comment, &r.OwnerReply, &r.Source, &r.CreatedAt, &r.ImportedAt); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListReviews returns a business's reviews, newest first
func (s *Store) ListReviews(ctx context.Context, businessID string) ([]types.RawReview, error) {
	return s.queryReviews(ctx, `
		SELECT `+reviewColumns+` FROM reviews
		WHERE business_id = $1
		ORDER BY created_at DESC`, businessID)
}

// ListUnanalyzedReviews returns up to limit reviews without analysis tags,
// oldest first
func (s *Store) ListUnanalyzedReviews(ctx context.Context, businessID string, limit int) ([]types.RawReview, error) {
	if limit <= 0 {
		limit = 1000
	}
	return s.queryReviews(ctx, `
		SELECT `+reviewColumns+` FROM reviews r
		WHERE r.business_id = $1
		  AND NOT EXISTS (SELECT 1 FROM review_analysis a WHERE a.review_id = r.id)
		ORDER BY r.created_at
		LIMIT $2`, businessID, limit)
}

// ReviewStats counts a business's reviews and averages their rating
func (s *Store) ReviewStats(ctx context.Context, businessID string) (types.ReviewStats, error) {
	var stats types.ReviewStats
	err := s.pool.QueryRow(ctx, `
		SELECT count(*), coalesce(avg(rating), 0) FROM reviews WHERE business_id = $1
	`, businessID).Scan(&stats.Count, &stats.AverageRating)
	if err != nil {
		return stats, fmt.Errorf("failed to compute review stats: %w", err)
	}
	return stats, nil
}

// UpsertAnalysisTags stores the tags of one review, replacing earlier ones
func (s *Store) UpsertAnalysisTags(ctx context.Context, t types.AnalysisTags) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO review_analysis (review_id, business_id, tags, confidence_score, model_version, analyzed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (review_id) DO UPDATE SET
			tags = EXCLUDED.tags,
			confidence_score = EXCLUDED.confidence_score,
			model_version = EXCLUDED.model_version,
			analyzed_at = EXCLUDED.analyzed_at
	`, t.ReviewID, t.BusinessID, data, t.ConfidenceScore, t.ModelVersion, t.AnalyzedAt)
	if err != nil {
		return fmt.Errorf("failed to save tags for review %s: %w", t.ReviewID, err)
	}
	return nil
}

// ListAnalysisTags returns the tags of a business ordered by review id
func (s *Store) ListAnalysisTags(ctx context.Context, businessID string) ([]types.AnalysisTags, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT tags FROM review_analysis WHERE business_id = $1 ORDER BY review_id
	`, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer rows.Close()

	var out []types.AnalysisTags
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan tags: %w", err)
		}
		var t types.AnalysisTags
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("failed to decode tags: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
