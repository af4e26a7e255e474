package syncqueue

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/bizrank/review-service/internal/storage/memory"
	"github.com/bizrank/review-service/internal/types"
)

type QueueSuite struct {
	suite.Suite

	ctx   context.Context
	store *memory.Store
	clock time.Time
	queue *Queue
}

func (s *QueueSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.New()
	s.clock = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.queue = New(s.store, 3, nil).WithClock(func() time.Time { return s.clock })
}

func (s *QueueSuite) tick(d time.Duration) { s.clock = s.clock.Add(d) }

func (s *QueueSuite) enqueue(businessID string, priority int) string {
	id, err := s.queue.Enqueue(s.ctx, businessID, "place-"+businessID, priority)
	s.Require().NoError(err)
	s.tick(time.Second)
	return id
}

func (s *QueueSuite) processing() int {
	counts, err := s.queue.Counts(s.ctx)
	s.Require().NoError(err)
	return counts.Processing
}

func (s *QueueSuite) TestEnqueueIsIdempotentPerBusiness() {
	first := s.enqueue("b1", 5)
	second := s.enqueue("b1", 10)

	s.Equal(first, second)
	counts, err := s.queue.Counts(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, counts.Total())
}

func (s *QueueSuite) TestEnqueueRequiresPlace() {
	_, err := s.queue.Enqueue(s.ctx, "b1", "", 3)
	s.Error(err)
}

func (s *QueueSuite) TestDequeueOrdersByPriorityThenAge() {
	s.enqueue("free-old", types.PlanFree.SyncPriority())
	s.enqueue("power", types.PlanPower.SyncPriority())
	s.enqueue("pro", types.PlanPro.SyncPriority())
	s.enqueue("free-new", types.PlanFree.SyncPriority())

	items, err := s.queue.DequeueNext(s.ctx, 10)
	s.Require().NoError(err)

	s.Require().Len(items, 3)
	s.Equal("power", items[0].BusinessID)
	s.Equal("pro", items[1].BusinessID)
	s.Equal("free-old", items[2].BusinessID)
	for _, it := range items {
		s.Equal(types.SyncProcessing, it.Status)
		s.Equal(1, it.Attempts)
		s.NotNil(it.StartedAt)
	}
}

func (s *QueueSuite) TestCeilingIsNeverExceeded() {
	for i := 0; i < 10; i++ {
		s.enqueue(fmt.Sprintf("b%02d", i), 5)
	}

	for round := 0; round < 4; round++ {
		_, err := s.queue.DequeueNext(s.ctx, 5)
		s.Require().NoError(err)
		s.LessOrEqual(s.processing(), 3)
	}
	s.Equal(3, s.processing())

	pending, err := s.queue.Enqueue(s.ctx, "late", "place-late", 10)
	s.Require().NoError(err)
	err = s.queue.MarkProcessing(s.ctx, pending)
	s.True(IsCapacity(err))

	items, err := s.queue.DequeueNext(s.ctx, 3)
	s.Require().NoError(err)
	s.Empty(items)
}

func (s *QueueSuite) TestStuckItemIsSweptAndFreesSlot() {
	for i := 0; i < 4; i++ {
		s.enqueue(fmt.Sprintf("b%d", i), 5)
	}
	claimed, err := s.queue.DequeueNext(s.ctx, 3)
	s.Require().NoError(err)
	s.Require().Len(claimed, 3)
	s.Require().NoError(s.queue.MarkCompleted(s.ctx, claimed[0], types.SyncResult{Fetched: 4}))
	s.Require().NoError(s.queue.MarkCompleted(s.ctx, claimed[1], types.SyncResult{}))

	s.tick(6 * time.Minute)
	n, err := s.queue.SweepStuck(s.ctx, 5*time.Minute)
	s.Require().NoError(err)
	s.Equal(1, n)

	stuck, err := s.queue.Get(s.ctx, claimed[2].ID)
	s.Require().NoError(err)
	s.Equal(types.SyncFailed, stuck.Status)
	s.Equal(StuckError, stuck.LastError)
	s.Equal(0, s.processing())

	next, err := s.queue.DequeueNext(s.ctx, 3)
	s.Require().NoError(err)
	s.Require().Len(next, 1)
	s.Equal("b3", next[0].BusinessID)
}

func (s *QueueSuite) TestSweepLeavesFreshItems() {
	s.enqueue("b1", 5)
	_, err := s.queue.DequeueNext(s.ctx, 1)
	s.Require().NoError(err)

	s.tick(4 * time.Minute)
	n, err := s.queue.SweepStuck(s.ctx, 5*time.Minute)
	s.Require().NoError(err)
	s.Equal(0, n)
	s.Equal(1, s.processing())
}

func (s *QueueSuite) TestCancelOnlyPending() {
	id := s.enqueue("b1", 5)
	other := s.enqueue("b2", 1)
	_, err := s.queue.DequeueNext(s.ctx, 1)
	s.Require().NoError(err)

	s.ErrorIs(s.queue.Cancel(s.ctx, id), types.ErrInvalidState)
	s.Require().NoError(s.queue.Cancel(s.ctx, other))
	_, err = s.queue.Get(s.ctx, other)
	s.ErrorIs(err, types.ErrNotFound)
}

func (s *QueueSuite) TestRetryFailedItem() {
	id := s.enqueue("b1", 5)
	claimed, err := s.queue.DequeueNext(s.ctx, 1)
	s.Require().NoError(err)
	s.Require().Len(claimed, 1)
	s.Require().NoError(s.queue.MarkFailed(s.ctx, claimed[0], fmt.Errorf("provider returned 404")))

	s.ErrorIs(s.queue.MarkCompleted(s.ctx, claimed[0], types.SyncResult{}), types.ErrInvalidState)
	s.Require().NoError(s.queue.Retry(s.ctx, id))

	item, err := s.queue.Get(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(types.SyncPending, item.Status)
	s.Equal("provider returned 404", item.LastError)
	s.Equal(1, item.Attempts)

	s.ErrorIs(s.queue.Retry(s.ctx, id), types.ErrInvalidState)
}

func (s *QueueSuite) TestStaleAttemptCannotFinishRetriedItem() {
	id := s.enqueue("b1", 5)
	first, err := s.queue.DequeueNext(s.ctx, 1)
	s.Require().NoError(err)
	s.Require().Len(first, 1)

	s.tick(6 * time.Minute)
	n, err := s.queue.SweepStuck(s.ctx, 5*time.Minute)
	s.Require().NoError(err)
	s.Equal(1, n)
	s.Require().NoError(s.queue.Retry(s.ctx, id))

	// a pending item is never failed directly
	s.ErrorIs(s.queue.MarkFailed(s.ctx, first[0], fmt.Errorf("late timeout")), types.ErrInvalidState)
	item, err := s.queue.Get(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(types.SyncPending, item.Status)

	second, err := s.queue.DequeueNext(s.ctx, 1)
	s.Require().NoError(err)
	s.Require().Len(second, 1)
	s.Equal(2, second[0].Attempts)

	s.ErrorIs(s.queue.MarkFailed(s.ctx, first[0], fmt.Errorf("late timeout")), types.ErrInvalidState)
	s.ErrorIs(s.queue.MarkCompleted(s.ctx, first[0], types.SyncResult{Fetched: 1}), types.ErrInvalidState)
	s.Equal(1, s.processing())

	s.Require().NoError(s.queue.MarkCompleted(s.ctx, second[0], types.SyncResult{Fetched: 7}))
	item, err = s.queue.Get(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(types.SyncCompleted, item.Status)
	s.Require().NotNil(item.Result)
	s.Equal(7, item.Result.Fetched)
}

func (s *QueueSuite) TestBulkEnqueueAndProgress() {
	s.enqueue("already", 5)
	businesses := []types.Business{
		{ID: "p1", PlaceID: "pl-1", PlanTier: types.PlanPower, Active: true},
		{ID: "p2", PlaceID: "pl-2", PlanTier: types.PlanFree, Active: true},
		{ID: "inactive", PlaceID: "pl-3", Active: false},
		{ID: "noplace", Active: true},
		{ID: "already", PlaceID: "place-already", Active: true},
	}

	res, err := s.queue.BulkEnqueue(s.ctx, businesses)
	s.Require().NoError(err)
	s.Equal(2, res.Queued)
	s.Equal(1, res.AlreadyQueued)
	s.Equal(2, res.Skipped)
	s.Len(res.ItemIDs, 2)

	progress, err := s.queue.BulkProgress(s.ctx, res.BatchID)
	s.Require().NoError(err)
	s.Equal(2, progress.Total)
	s.Equal(0.0, progress.PercentComplete)
	s.False(progress.Done)

	items, err := s.queue.DequeueNext(s.ctx, 3)
	s.Require().NoError(err)
	for _, it := range items {
		if it.BatchID != res.BatchID {
			continue
		}
		if it.BusinessID == "p1" {
			s.Equal(10, it.Priority)
			s.Require().NoError(s.queue.MarkCompleted(s.ctx, it, types.SyncResult{}))
		} else {
			s.Require().NoError(s.queue.MarkFailed(s.ctx, it, fmt.Errorf("boom")))
		}
	}

	progress, err = s.queue.BulkProgress(s.ctx, res.BatchID)
	s.Require().NoError(err)
	s.Equal(1, progress.Counts.Completed)
	s.Equal(1, progress.Counts.Failed)
	s.Equal(100.0, progress.PercentComplete)
	s.True(progress.Done)

	_, err = s.queue.BulkProgress(s.ctx, "bat_unknown")
	s.ErrorIs(err, types.ErrNotFound)
}

func (s *QueueSuite) TestPurgeKeepsRecentAndFailed() {
	done := s.enqueue("done", 5)
	failed := s.enqueue("failed", 5)
	claimed, err := s.queue.DequeueNext(s.ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(claimed, 2)
	for _, it := range claimed {
		if it.ID == done {
			s.Require().NoError(s.queue.MarkCompleted(s.ctx, it, types.SyncResult{}))
		} else {
			s.Require().NoError(s.queue.MarkFailed(s.ctx, it, fmt.Errorf("x")))
		}
	}

	s.tick(31 * 24 * time.Hour)
	n, err := s.queue.Purge(s.ctx, 0)
	s.Require().NoError(err)
	s.Equal(1, n)
	_, err = s.queue.Get(s.ctx, failed)
	s.NoError(err)
}

func TestQueueSuite(t *testing.T) {
	suite.Run(t, new(QueueSuite))
}
