package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizrank/review-service/internal/types"
)

func syncItem(id, business string, priority int) types.SyncItem {
	return types.SyncItem{ID: id, BusinessID: business, PlaceID: "p-" + business, Priority: priority, Status: types.SyncPending}
}

func TestEnqueueSyncItem_OneOpenItemPerBusiness(t *testing.T) {
	ctx := context.Background()
	s := New()

	id, created, err := s.EnqueueSyncItem(ctx, syncItem("s1", "b1", 5))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "s1", id)

	id, created, err = s.EnqueueSyncItem(ctx, syncItem("s2", "b1", 9))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "s1", id)

	now := time.Now()
	claimed, err := s.ClaimSyncItems(ctx, 1, 3, now)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	require.NoError(t, s.CompleteSyncItem(ctx, "s1", claimed[0].Attempts, types.SyncResult{Fetched: 3}, now))

	// completed items no longer block a new request
	id, created, err = s.EnqueueSyncItem(ctx, syncItem("s3", "b1", 5))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "s3", id)
}

func TestClaimSyncItems_PriorityThenInsertion(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, it := range []types.SyncItem{
		syncItem("low", "b1", 1),
		syncItem("high-a", "b2", 8),
		syncItem("high-b", "b3", 8),
		syncItem("mid", "b4", 5),
	} {
		_, _, err := s.EnqueueSyncItem(ctx, it)
		require.NoError(t, err)
	}

	claimed, err := s.ClaimSyncItems(ctx, 3, 3, time.Now())
	require.NoError(t, err)
	ids := make([]string, 0, len(claimed))
	for _, it := range claimed {
		ids = append(ids, it.ID)
		assert.Equal(t, types.SyncProcessing, it.Status)
		assert.Equal(t, 1, it.Attempts)
	}
	assert.Equal(t, []string{"high-a", "high-b", "mid"}, ids)
}

func TestClaimSyncItems_CeilingAcrossConcurrentClaims(t *testing.T) {
	ctx := context.Background()
	s := New()
	for i := 0; i < 10; i++ {
		_, _, err := s.EnqueueSyncItem(ctx, syncItem(fmt.Sprintf("s%d", i), fmt.Sprintf("b%d", i), 5))
		require.NoError(t, err)
	}

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claimed, err := s.ClaimSyncItems(ctx, 2, 3, time.Now())
			assert.NoError(t, err)
			mu.Lock()
			total += len(claimed)
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, total)
	counts, err := s.SyncQueueCounts(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 3, counts.Processing)
	assert.Equal(t, 7, counts.Pending)
}

func TestClaimNextTask_PerLanePriority(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()
	for _, task := range []types.Task{
		{ID: "t1", Type: types.TaskAIAnalysis, BusinessID: "b1", Status: types.TaskPending, Priority: 1},
		{ID: "t2", Type: types.TaskRankingCalculation, BusinessID: "b1", Status: types.TaskPending, Priority: 9},
		{ID: "t3", Type: types.TaskAIAnalysis, BusinessID: "b2", Status: types.TaskPending, Priority: 5},
	} {
		_, created, err := s.EnqueueTask(ctx, task)
		require.NoError(t, err)
		assert.True(t, created)
	}

	// an open task of the same type and business is reused
	id, created, err := s.EnqueueTask(ctx, types.Task{ID: "t4", Type: types.TaskAIAnalysis, BusinessID: "b1", Status: types.TaskPending})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "t1", id)

	next, err := s.ClaimNextTask(ctx, types.TaskAIAnalysis, now)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "t3", next.ID)
	assert.Equal(t, types.TaskProcessing, next.Status)

	next, err = s.ClaimNextTask(ctx, types.TaskAIAnalysis, now)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "t1", next.ID)

	next, err = s.ClaimNextTask(ctx, types.TaskAIAnalysis, now)
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestGetBusiness_NotFound(t *testing.T) {
	_, err := New().GetBusiness(context.Background(), "missing")
	assert.ErrorIs(t, err, types.ErrNotFound)
}
