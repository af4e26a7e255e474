package sweepers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizrank/review-service/internal/storage/memory"
	"github.com/bizrank/review-service/internal/syncqueue"
	"github.com/bizrank/review-service/internal/taskqueue"
	"github.com/bizrank/review-service/internal/types"
)

func TestQueueSweeper_RecoversBothQueues(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	now := func() time.Time { return clock }

	store := memory.New()
	tasks := taskqueue.New(store, nil).WithClock(now)
	syncs := syncqueue.New(store, 3, nil).WithClock(now)

	res, err := tasks.Enqueue(ctx, taskqueue.EnqueueInput{Type: types.TaskRankingCalculation, BusinessID: "b1"})
	require.NoError(t, err)
	_, err = tasks.GetNext(ctx, types.TaskRankingCalculation)
	require.NoError(t, err)
	_, err = syncs.Enqueue(ctx, "b1", "p1", 5)
	require.NoError(t, err)
	claimed, err := syncs.DequeueNext(ctx, 3)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	sweeper := NewQueueSweeper(tasks, syncs, 0, 0, nil)

	result, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{}, *result)

	clock = clock.Add(DefaultStuckTimeout + time.Minute)
	result, err = sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{TasksFailed: 1, SyncsFailed: 1}, *result)

	task, err := tasks.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, types.TaskFailed, task.Status)
	assert.Equal(t, taskqueue.StuckError, task.LastError)
	require.NotNil(t, task.CompletedAt)
	item, err := syncs.Get(ctx, claimed[0].ID)
	require.NoError(t, err)
	assert.Equal(t, types.SyncFailed, item.Status)
}

type failingSweeper struct{}

func (failingSweeper) SweepStuck(context.Context, time.Duration) (int, error) {
	return 0, errors.New("connection refused")
}

type countingSweeper struct{ calls int }

func (c *countingSweeper) SweepStuck(context.Context, time.Duration) (int, error) {
	c.calls++
	return 2, nil
}

func TestQueueSweeper_OneQueueFailingDoesNotStopTheOther(t *testing.T) {
	syncs := &countingSweeper{}
	result, err := NewQueueSweeper(failingSweeper{}, syncs, time.Second, time.Minute, nil).Sweep(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 1, syncs.calls)
	assert.Equal(t, 2, result.SyncsFailed)
}

func TestQueueSweeper_StartStops(t *testing.T) {
	syncs := &countingSweeper{}
	s := NewQueueSweeper(nil, syncs, 5*time.Millisecond, time.Minute, nil)
	done := make(chan struct{})
	go func() {
		s.Start(context.Background())
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	s.Stop()
	s.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
