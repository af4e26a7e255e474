// Package syncqueue is the persisted priority queue of review sync jobs and
// the bounded worker pool that drains it.
package syncqueue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/bizrank/review-service/internal/pkg/cuid2"
	"github.com/bizrank/review-service/internal/types"
)

const (
	// DefaultCeiling is the global number of syncs allowed in flight
	DefaultCeiling = 3
	// DefaultStuckTimeout fails processing items older than this
	DefaultStuckTimeout = 5 * time.Minute
	// DefaultAuditWindow keeps completed items this long
	DefaultAuditWindow = 30 * 24 * time.Hour
	// StuckError is the lastError of swept items
	StuckError = "stuck"
)

// Store persists sync items. Every transition is one atomic single-row update.
type Store interface {
	// EnqueueSyncItem inserts item unless the business already has a pending
	// or processing item; returns the stored id and whether it was created.
	EnqueueSyncItem(ctx context.Context, item types.SyncItem) (string, bool, error)
	// ClaimSyncItems moves up to limit pending items (priority desc, then
	// oldest) to processing without exceeding ceiling processing items.
	ClaimSyncItems(ctx context.Context, limit, ceiling int, now time.Time) ([]types.SyncItem, error)
	// MarkSyncProcessing claims one pending item; types.ErrCapacity when the
	// ceiling is reached.
	MarkSyncProcessing(ctx context.Context, id string, ceiling int, now time.Time) error
	// CompleteSyncItem and FailSyncItem finish a processing item only while
	// attempt is its current claim, so a late job cannot finish a newer run.
	CompleteSyncItem(ctx context.Context, id string, attempt int, result types.SyncResult, now time.Time) error
	FailSyncItem(ctx context.Context, id string, attempt int, message string, now time.Time) error
	// RetrySyncItem resets a failed item to pending.
	RetrySyncItem(ctx context.Context, id string, now time.Time) error
	// CancelSyncItem deletes a pending item.
	CancelSyncItem(ctx context.Context, id string) error
	FailStuckSyncItems(ctx context.Context, cutoff, now time.Time, message string) (int, error)
	// SyncQueueCounts aggregates items by status, restricted to batchID when set.
	SyncQueueCounts(ctx context.Context, batchID string) (types.SyncCounts, error)
	PurgeSyncItems(ctx context.Context, before time.Time) (int, error)
	GetSyncItem(ctx context.Context, id string) (*types.SyncItem, error)
}

// BulkResult summarises a bulk enqueue
type BulkResult struct {
	BatchID       string   `json:"batchId"`
	Queued        int      `json:"queued"`
	AlreadyQueued int      `json:"alreadyQueued"`
	Skipped       int      `json:"skipped"` // inactive or without place id
	ItemIDs       []string `json:"itemIds"`
}

// BulkProgress is the persisted progress of one bulk batch
type BulkProgress struct {
	BatchID         string           `json:"batchId"`
	Counts          types.SyncCounts `json:"counts"`
	Total           int              `json:"total"`
	PercentComplete float64          `json:"percentComplete"`
	Done            bool             `json:"done"`
}

// Queue is the review sync queue
type Queue struct {
	store   Store
	ceiling int
	now     func() time.Time
	logger  zerolog.Logger
}

// New creates a sync queue with the given global in-flight ceiling
func New(store Store, ceiling int, logger *zerolog.Logger) *Queue {
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "syncqueue").Logger()
	}
	return &Queue{store: store, ceiling: ceiling, now: time.Now, logger: l}
}

// WithClock replaces the time source, used by tests
func (q *Queue) WithClock(now func() time.Time) *Queue {
	q.now = now
	return q
}

// Ceiling returns the global in-flight limit
func (q *Queue) Ceiling() int {
	return q.ceiling
}

// Enqueue adds a sync job for businessID. When the business already has an
// active (pending or processing) item its id is returned instead.
func (q *Queue) Enqueue(ctx context.Context, businessID, placeID string, priority int) (string, error) {
	id, _, err := q.enqueue(ctx, businessID, placeID, priority, "")
	return id, err
}

func (q *Queue) enqueue(ctx context.Context, businessID, placeID string, priority int, batchID string) (string, bool, error) {
	if businessID == "" || placeID == "" {
		return "", false, fmt.Errorf("business id and place id are required")
	}
	id, created, err := q.store.EnqueueSyncItem(ctx, types.SyncItem{
		ID:          cuid2.New("syn"),
		BusinessID:  businessID,
		PlaceID:     placeID,
		BatchID:     batchID,
		Priority:    priority,
		Status:      types.SyncPending,
		RequestedAt: q.now().UTC(),
	})
	if err != nil {
		return "", false, fmt.Errorf("failed to enqueue sync for %s: %w", businessID, err)
	}
	if created {
		syncEnqueued.Inc()
	}
	return id, created, nil
}

// BulkEnqueue queues every active business with a place id under one batch
// id, prioritised by plan tier
func (q *Queue) BulkEnqueue(ctx context.Context, businesses []types.Business) (*BulkResult, error) {
	result := &BulkResult{BatchID: cuid2.New("bat")}

	for _, b := range businesses {
		if !b.Active || b.PlaceID == "" {
			result.Skipped++
			continue
		}
		id, created, err := q.enqueue(ctx, b.ID, b.PlaceID, b.PlanTier.SyncPriority(), result.BatchID)
		if err != nil {
			return result, err
		}
		if !created {
			result.AlreadyQueued++
			continue
		}
		result.Queued++
		result.ItemIDs = append(result.ItemIDs, id)
	}

	q.logger.Info().
		Str("batch_id", result.BatchID).
		Int("queued", result.Queued).
		Int("already_queued", result.AlreadyQueued).
		Int("skipped", result.Skipped).
		Msg("Bulk sync enqueued")

	return result, nil
}

// BulkProgress recomputes a batch's progress from persisted counts
func (q *Queue) BulkProgress(ctx context.Context, batchID string) (*BulkProgress, error) {
	counts, err := q.store.SyncQueueCounts(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to count batch %s: %w", batchID, err)
	}
	total := counts.Total()
	if total == 0 {
		return nil, fmt.Errorf("batch %s: %w", batchID, types.ErrNotFound)
	}
	finished := counts.Completed + counts.Failed
	return &BulkProgress{
		BatchID:         batchID,
		Counts:          counts,
		Total:           total,
		PercentComplete: float64(int(float64(finished)/float64(total)*1000)) / 10,
		Done:            finished == total,
	}, nil
}

// DequeueNext claims up to maxConcurrency pending items, never more than the
// free slots under the global ceiling
func (q *Queue) DequeueNext(ctx context.Context, maxConcurrency int) ([]types.SyncItem, error) {
	limit := maxConcurrency
	if limit <= 0 || limit > q.ceiling {
		limit = q.ceiling
	}
	items, err := q.store.ClaimSyncItems(ctx, limit, q.ceiling, q.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to claim sync items: %w", err)
	}
	return items, nil
}

// MarkProcessing claims one item; it fails with types.ErrCapacity when the
// ceiling is reached
func (q *Queue) MarkProcessing(ctx context.Context, id string) error {
	return q.store.MarkSyncProcessing(ctx, id, q.ceiling, q.now().UTC())
}

// MarkCompleted records a successful sync of the claimed item. It fails
// with types.ErrInvalidState once the claim was swept or superseded.
func (q *Queue) MarkCompleted(ctx context.Context, claimed types.SyncItem, result types.SyncResult) error {
	return q.store.CompleteSyncItem(ctx, claimed.ID, claimed.Attempts, result, q.now().UTC())
}

// MarkFailed records a failed sync of the claimed item
func (q *Queue) MarkFailed(ctx context.Context, claimed types.SyncItem, cause error) error {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	return q.store.FailSyncItem(ctx, claimed.ID, claimed.Attempts, msg, q.now().UTC())
}

// Retry resets a failed item to pending
func (q *Queue) Retry(ctx context.Context, id string) error {
	return q.store.RetrySyncItem(ctx, id, q.now().UTC())
}

// Cancel removes a pending item. Processing items cannot be cancelled.
func (q *Queue) Cancel(ctx context.Context, id string) error {
	return q.store.CancelSyncItem(ctx, id)
}

// SweepStuck fails items processing for longer than timeout with "stuck"
func (q *Queue) SweepStuck(ctx context.Context, timeout time.Duration) (int, error) {
	if timeout <= 0 {
		timeout = DefaultStuckTimeout
	}
	now := q.now().UTC()
	n, err := q.store.FailStuckSyncItems(ctx, now.Add(-timeout), now, StuckError)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep stuck sync items: %w", err)
	}
	if n > 0 {
		syncJobs.WithLabelValues("stuck").Add(float64(n))
		q.logger.Warn().Int("count", n).Dur("timeout", timeout).Msg("Failed stuck sync items")
	}
	return n, nil
}

// Purge deletes completed items older than olderThan
func (q *Queue) Purge(ctx context.Context, olderThan time.Duration) (int, error) {
	if olderThan <= 0 {
		olderThan = DefaultAuditWindow
	}
	return q.store.PurgeSyncItems(ctx, q.now().UTC().Add(-olderThan))
}

// Counts aggregates all items by status
func (q *Queue) Counts(ctx context.Context) (types.SyncCounts, error) {
	return q.store.SyncQueueCounts(ctx, "")
}

// Get returns one item
func (q *Queue) Get(ctx context.Context, id string) (*types.SyncItem, error) {
	return q.store.GetSyncItem(ctx, id)
}

// IsCapacity reports whether err means the ceiling was reached
func IsCapacity(err error) bool {
	return errors.Is(err, types.ErrCapacity)
}
