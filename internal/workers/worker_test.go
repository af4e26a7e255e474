package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizrank/review-service/internal/achievements"
	"github.com/bizrank/review-service/internal/analysis"
	"github.com/bizrank/review-service/internal/http/ratelimit"
	"github.com/bizrank/review-service/internal/ranking"
	"github.com/bizrank/review-service/internal/storage/memory"
	"github.com/bizrank/review-service/internal/taskqueue"
	"github.com/bizrank/review-service/internal/types"
)

type recordingPublisher struct {
	mu       sync.Mutex
	rankings []types.Ranking
	awards   []types.Achievement
}

func (p *recordingPublisher) RankingUpdated(_ context.Context, r types.Ranking) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rankings = append(p.rankings, r)
	return nil
}

func (p *recordingPublisher) AchievementAwarded(_ context.Context, a types.Achievement) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.awards = append(p.awards, a)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

const detailedReview = "The crew arrived on time at 8am, explained every step of the repair, " +
	"replaced the leaking valve and the corroded pipe under the sink, cleaned up after themselves " +
	"and charged exactly the quoted $180. Friendly, professional and honest service. " +
	"I would recommend them to anyone and will call again for the bathroom remodel next spring."

type fixture struct {
	store *memory.Store
	queue *taskqueue.Queue
	pub   *recordingPublisher
	w     *Worker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	queue := taskqueue.New(store, nil)
	catalog, err := achievements.DefaultCatalog()
	require.NoError(t, err)

	pub := &recordingPublisher{}
	p := NewPipeline(PipelineDeps{
		Queue:        queue,
		Reviews:      store,
		Businesses:   store,
		Analyzer:     analysis.NewAnalyzer(nil, nil, nil, nil),
		Rankings:     ranking.NewEngine(store, store, nil),
		Achievements: achievements.NewEngine(catalog, store, store, nil),
		Publisher:    pub,
	}, nil)
	w := New(queue, WorkerConfig{WorkerID: "test"}, nil)
	p.Register(w)
	return &fixture{store: store, queue: queue, pub: pub, w: w}
}

func (f *fixture) seedBusiness(t *testing.T, id string, reviews int) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.store.PutBusiness(ctx, types.Business{
		ID: id, PlaceID: "place-" + id, Name: strings.ToUpper(id),
		City: "austin", CategoryID: "plumbing", PlanTier: types.PlanFree, Active: true,
	}))
	now := time.Now().UTC()
	batch := make([]types.RawReview, 0, reviews)
	for i := 0; i < reviews; i++ {
		batch = append(batch, types.RawReview{
			ID:         fmt.Sprintf("%s-rev-%02d", id, i),
			BusinessID: id,
			AuthorName: fmt.Sprintf("Customer %d", i),
			Rating:     5,
			Comment:    detailedReview,
			Source:     "provider",
			CreatedAt:  now.Add(-time.Duration(i) * time.Hour),
			ImportedAt: now,
		})
	}
	require.NoError(t, f.store.InsertReviews(ctx, batch))
}

// drain polls until every lane is empty
func (f *fixture) drain(t *testing.T) int {
	t.Helper()
	total := 0
	for i := 0; i < 20; i++ {
		ran, err := f.w.ProcessOnce(context.Background())
		require.NoError(t, err)
		if ran == 0 {
			return total
		}
		total += ran
	}
	t.Fatal("queue did not drain")
	return total
}

func TestWorker_AnalysisChainsIntoRankingAndAchievements(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedBusiness(t, "b1", 12)

	res, err := f.queue.Enqueue(ctx, taskqueue.EnqueueInput{Type: types.TaskAIAnalysis, BusinessID: "b1"})
	require.NoError(t, err)

	assert.Equal(t, 3, f.drain(t))

	task, err := f.queue.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, types.TaskCompleted, task.Status)
	var ar AnalysisResult
	require.NoError(t, json.Unmarshal(task.Result, &ar))
	assert.Equal(t, 12, ar.Analyzed)
	assert.False(t, ar.More)

	pending, err := f.store.ListUnanalyzedReviews(ctx, "b1", 0)
	require.NoError(t, err)
	assert.Empty(t, pending)

	r, err := f.store.GetRanking(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, 1, r.RankingPosition)

	held, err := f.store.ListAchievements(ctx, "b1")
	require.NoError(t, err)
	var keys []string
	for _, a := range held {
		keys = append(keys, a.AchievementType+"/"+string(a.TierLevel))
	}
	assert.Contains(t, keys, "community_favorite/bronze")

	require.Len(t, f.pub.rankings, 1)
	assert.Equal(t, "b1", f.pub.rankings[0].BusinessID)
	assert.Len(t, f.pub.awards, len(held))
}

func TestWorker_AnalysisQueuesFollowUpWhenBatchIsFull(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedBusiness(t, "b1", 7)

	_, err := f.queue.Enqueue(ctx, taskqueue.EnqueueInput{
		Type: types.TaskAIAnalysis, BusinessID: "b1", Metadata: AnalysisMetadata{Limit: 4},
	})
	require.NoError(t, err)

	ok, err := f.w.ProcessNext(ctx, types.TaskAIAnalysis)
	require.NoError(t, err)
	require.True(t, ok)

	pending, err := f.store.ListUnanalyzedReviews(ctx, "b1", 0)
	require.NoError(t, err)
	assert.Len(t, pending, 3)

	next, err := f.queue.GetNext(ctx, types.TaskAIAnalysis)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.JSONEq(t, `{"limit":4}`, string(next.Metadata))
}

func TestWorker_NotYetRankableStillDetectsAchievements(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedBusiness(t, "b1", 2)

	_, err := f.queue.Enqueue(ctx, taskqueue.EnqueueInput{Type: types.TaskRankingCalculation, BusinessID: "b1"})
	require.NoError(t, err)

	assert.Equal(t, 2, f.drain(t))
	_, err = f.store.GetRanking(ctx, "b1")
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.Empty(t, f.pub.rankings)
}

func TestWorker_FailureClassification(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status types.TaskStatus
	}{
		{"transient", errors.New("connection reset"), types.TaskRetrying},
		{"permanent provider error", &ratelimit.ClassifiedError{Class: ratelimit.ClassNotFound, Status: 404}, types.TaskFailed},
		{"missing business", fmt.Errorf("load: %w", types.ErrNotFound), types.TaskFailed},
		{"invalid task", fmt.Errorf("%w: bad metadata", ErrInvalidTask), types.TaskFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			queue := taskqueue.New(memory.New(), nil)
			w := New(queue, WorkerConfig{}, nil)
			w.RegisterHandler(types.TaskRankingCalculation, func(context.Context, types.Task) (any, error) {
				return nil, tt.err
			})
			res, err := queue.Enqueue(ctx, taskqueue.EnqueueInput{Type: types.TaskRankingCalculation, BusinessID: "b1"})
			require.NoError(t, err)

			ran, err := w.ProcessOnce(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, ran)

			task, err := queue.Get(ctx, res.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.status, task.Status)
			assert.NotEmpty(t, task.LastError)
		})
	}
}

func TestWorker_UnregisteredLaneFailsTask(t *testing.T) {
	ctx := context.Background()
	queue := taskqueue.New(memory.New(), nil)
	w := New(queue, WorkerConfig{TaskTypes: []types.TaskType{types.TaskBatchProcessing}}, nil)
	res, err := queue.Enqueue(ctx, taskqueue.EnqueueInput{Type: types.TaskBatchProcessing})
	require.NoError(t, err)

	ok, err := w.ProcessNext(ctx, types.TaskBatchProcessing)
	require.NoError(t, err)
	require.True(t, ok)

	task, err := queue.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, types.TaskFailed, task.Status)
}

func TestWorker_StartStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	queue := taskqueue.New(memory.New(), nil)
	done := make(chan string, 1)
	w := New(queue, WorkerConfig{PollDelay: 5 * time.Millisecond}, nil)
	w.RegisterHandler(types.TaskAchievementDetection, func(_ context.Context, task types.Task) (any, error) {
		done <- task.BusinessID
		return nil, nil
	})
	_, err := queue.Enqueue(ctx, taskqueue.EnqueueInput{Type: types.TaskAchievementDetection, BusinessID: "b9"})
	require.NoError(t, err)

	w.Start(ctx)
	select {
	case id := <-done:
		assert.Equal(t, "b9", id)
	case <-time.After(2 * time.Second):
		t.Fatal("task was not processed")
	}
	w.Stop()
	w.Stop()
}

func TestPipeline_BatchFansOut(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedBusiness(t, "b1", 0)
	f.seedBusiness(t, "b2", 0)

	enqueueBatch := func(meta BatchMetadata) string {
		res, err := f.queue.Enqueue(ctx, BatchTask(meta))
		require.NoError(t, err)
		ok, err := f.w.ProcessNext(ctx, types.TaskBatchProcessing)
		require.NoError(t, err)
		require.True(t, ok)
		return res.ID
	}
	result := func(id string) (types.TaskStatus, BatchResult) {
		task, err := f.queue.Get(ctx, id)
		require.NoError(t, err)
		var br BatchResult
		if len(task.Result) > 0 {
			require.NoError(t, json.Unmarshal(task.Result, &br))
		}
		return task.Status, br
	}

	status, br := result(enqueueBatch(BatchMetadata{TaskType: types.TaskRankingCalculation}))
	assert.Equal(t, types.TaskCompleted, status)
	assert.Equal(t, 2, br.Queued)

	status, br = result(enqueueBatch(BatchMetadata{TaskType: types.TaskRankingCalculation, BusinessIDs: []string{"b2", "b3"}}))
	assert.Equal(t, types.TaskCompleted, status)
	assert.Equal(t, 1, br.Queued)
	assert.Equal(t, 1, br.AlreadyQueued)

	status, _ = result(enqueueBatch(BatchMetadata{TaskType: types.TaskBatchProcessing}))
	assert.Equal(t, types.TaskFailed, status)
}
