package workers

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/bizrank/review-service/internal/places"
	"github.com/bizrank/review-service/internal/reviews"
	"github.com/bizrank/review-service/internal/taskqueue"
	"github.com/bizrank/review-service/internal/types"
)

// PlaceChecker verifies a place can still be synced
type PlaceChecker interface {
	CheckSyncable(ctx context.Context, placeID string) (*places.Place, error)
}

// ReviewFetcher paginates the provider reviews of one place
type ReviewFetcher interface {
	FetchAllReviews(ctx context.Context, placeID string, maxReviews int) (*reviews.ReviewBatch, error)
}

// ReviewImporter deduplicates and stores fetched reviews
type ReviewImporter interface {
	Import(ctx context.Context, businessID string, fetched []reviews.ProviderReview) (*reviews.ImportResult, error)
}

// SyncJob imports the provider reviews of one sync item and queues their
// analysis. Its Run method is a syncqueue.Job.
type SyncJob struct {
	places     PlaceChecker
	fetcher    ReviewFetcher
	importer   ReviewImporter
	queue      *taskqueue.Queue
	maxReviews int
	logger     zerolog.Logger
}

// NewSyncJob creates the review sync job
func NewSyncJob(fetcher ReviewFetcher, importer ReviewImporter, queue *taskqueue.Queue, logger *zerolog.Logger) *SyncJob {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "sync_job").Logger()
	}
	return &SyncJob{
		fetcher:    fetcher,
		importer:   importer,
		queue:      queue,
		maxReviews: reviews.DefaultMaxReviews,
		logger:     l,
	}
}

// WithPlaces enables the place status check before each sync
func (j *SyncJob) WithPlaces(checker PlaceChecker) *SyncJob {
	j.places = checker
	return j
}

// WithMaxReviews caps the reviews fetched per sync
func (j *SyncJob) WithMaxReviews(n int) *SyncJob {
	if n > 0 {
		j.maxReviews = n
	}
	return j
}

// Run syncs item. A permanently closed place fails without fetching.
func (j *SyncJob) Run(ctx context.Context, item types.SyncItem) (*types.SyncResult, error) {
	log := j.logger.With().Str("business_id", item.BusinessID).Str("place_id", item.PlaceID).Logger()

	if j.places != nil {
		if _, err := j.places.CheckSyncable(ctx, item.PlaceID); err != nil {
			return nil, err
		}
	}

	batch, err := j.fetcher.FetchAllReviews(ctx, item.PlaceID, j.maxReviews)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch reviews: %w", err)
	}
	imported, err := j.importer.Import(ctx, item.BusinessID, batch.Reviews)
	if err != nil {
		return nil, fmt.Errorf("failed to import reviews: %w", err)
	}

	result := &types.SyncResult{
		Fetched:    len(batch.Reviews),
		Pages:      batch.Pages,
		Created:    imported.Created,
		Duplicates: imported.Duplicates,
		Skipped:    imported.Skipped,
		Failed:     imported.Failed,
	}

	if imported.Created > 0 && j.queue != nil {
		res, err := j.queue.Enqueue(ctx, taskqueue.EnqueueInput{
			Type:       types.TaskAIAnalysis,
			BusinessID: item.BusinessID,
			Priority:   item.Priority,
		})
		if err != nil {
			// The reviews are stored; the hourly refill picks them up
			log.Warn().Err(err).Msg("Failed to queue analysis")
		} else {
			log.Debug().Str("task_id", res.ID).Bool("created", res.Created).Msg("Analysis queued")
		}
	}
	return result, nil
}
