package reviews

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/bizrank/review-service/internal/pkg/cuid2"
	"github.com/bizrank/review-service/internal/types"
)

// DefaultInsertBatchSize is the sub-batch size for review inserts
const DefaultInsertBatchSize = 100

// ReviewStore persists raw reviews
type ReviewStore interface {
	ListReviewKeys(ctx context.Context, businessID string) ([]types.ReviewKey, error)
	InsertReviews(ctx context.Context, reviews []types.RawReview) error
	InsertReview(ctx context.Context, review types.RawReview) error
}

// ImportResult counts what an import did
type ImportResult struct {
	Created    int `json:"created"`
	Duplicates int `json:"duplicates"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
	// ReviewIDs are the ids of created reviews, in insertion order
	ReviewIDs []string `json:"-"`
}

// Importer deduplicates and stores fetched reviews
type Importer struct {
	store     ReviewStore
	batchSize int
	now       func() time.Time
	logger    zerolog.Logger
}

// NewImporter creates an importer
func NewImporter(store ReviewStore, logger *zerolog.Logger) *Importer {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "review_importer").Logger()
	}
	return &Importer{
		store:     store,
		batchSize: DefaultInsertBatchSize,
		now:       time.Now,
		logger:    l,
	}
}

// Import stores reviews for businessID. Reviews without comment text are
// skipped and (author, comment, rating) duplicates, against storage or within
// the batch, are counted but not inserted. A failing sub-batch is retried one
// review at a time so a bad record only increments Failed.
func (im *Importer) Import(ctx context.Context, businessID string, fetched []ProviderReview) (*ImportResult, error) {
	existing, err := im.store.ListReviewKeys(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing reviews: %w", err)
	}

	seen := make(map[string]struct{}, len(existing)+len(fetched))
	for _, k := range existing {
		seen[dedupeKey(k.AuthorName, k.Comment, k.Rating)] = struct{}{}
	}

	result := &ImportResult{}
	now := im.now().UTC()
	pending := make([]types.RawReview, 0, len(fetched))

	for _, r := range fetched {
		comment := CanonicalText(r.Text)
		if comment == "" {
			result.Skipped++
			continue
		}
		key := dedupeKey(r.AuthorName, comment, r.Rating)
		if _, dup := seen[key]; dup {
			result.Duplicates++
			continue
		}
		seen[key] = struct{}{}

		createdAt := r.Date
		if createdAt.IsZero() {
			createdAt = now
		}
		pending = append(pending, types.RawReview{
			ID:         cuid2.New("rev"),
			BusinessID: businessID,
			ExternalID: r.ExternalID,
			AuthorName: CanonicalText(r.AuthorName),
			Rating:     r.Rating,
			Comment:    comment,
			OwnerReply: r.OwnerReply,
			Source:     "provider",
			CreatedAt:  createdAt,
			ImportedAt: now,
		})
	}

	for start := 0; start < len(pending); start += im.batchSize {
		end := min(start+im.batchSize, len(pending))
		chunk := pending[start:end]

		err := im.store.InsertReviews(ctx, chunk)
		if err == nil {
			result.Created += len(chunk)
			for _, r := range chunk {
				result.ReviewIDs = append(result.ReviewIDs, r.ID)
			}
			continue
		}
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		im.logger.Warn().Err(err).
			Str("business_id", businessID).
			Int("batch_size", len(chunk)).
			Msg("Review batch insert failed, retrying individually")

		for _, r := range chunk {
			if err := im.store.InsertReview(ctx, r); err != nil {
				result.Failed++
				im.logger.Error().Err(err).
					Str("business_id", businessID).
					Str("author", r.AuthorName).
					Msg("Failed to insert review")
				continue
			}
			result.Created++
			result.ReviewIDs = append(result.ReviewIDs, r.ID)
		}
	}

	im.logger.Info().
		Str("business_id", businessID).
		Int("created", result.Created).
		Int("duplicates", result.Duplicates).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("Imported reviews")

	return result, nil
}
