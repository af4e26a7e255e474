package database

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bizrank/review-service/internal/achievements"
	"github.com/bizrank/review-service/internal/ranking"
	"github.com/bizrank/review-service/internal/syncqueue"
	"github.com/bizrank/review-service/internal/taskqueue"
	"github.com/bizrank/review-service/internal/types"
)

type StoreSuite struct {
	suite.Suite
	ctx       context.Context
	container *postgres.PostgresContainer
	pool      *pgxpool.Pool
	store     *Store
}

func (s *StoreSuite) SetupSuite() {
	if testing.Short() {
		s.T().Skip("Skipping integration test in short mode")
	}
	s.ctx = context.Background()

	container, err := postgres.Run(s.ctx, "postgres:16-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	s.Require().NoError(err, "Failed to start postgres container")
	s.container = container

	connStr, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)
	s.pool, err = pgxpool.New(s.ctx, connStr)
	s.Require().NoError(err)

	s.Require().NoError(Migrate(s.ctx, s.pool))
	// a second run is a no-op
	s.Require().NoError(Migrate(s.ctx, s.pool))
	s.store = NewStore(s.pool)
}

func (s *StoreSuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.container != nil {
		s.container.Terminate(s.ctx) //nolint:errcheck
	}
}

func (s *StoreSuite) SetupTest() {
	_, err := s.pool.Exec(s.ctx, `
		TRUNCATE businesses, reviews, review_analysis, business_rankings, achievements,
			achievement_progress, processing_queue, review_sync_queue, report_archives, scheduled_jobs
	`)
	s.Require().NoError(err)
}

func (s *StoreSuite) putBusiness(id, category, city string) {
	s.Require().NoError(s.store.PutBusiness(s.ctx, types.Business{
		ID: id, PlaceID: "place-" + id, Name: id, City: city, CategoryID: category,
		PlanTier: types.PlanStarter, Active: true,
	}))
}

func (s *StoreSuite) TestTaskQueueDedupeAndPriority() {
	q := taskqueue.New(s.store, nil)

	low, err := q.Enqueue(s.ctx, taskqueue.EnqueueInput{Type: types.TaskAIAnalysis, BusinessID: "b1", Priority: 1})
	s.Require().NoError(err)
	s.True(low.Created)
	dup, err := q.Enqueue(s.ctx, taskqueue.EnqueueInput{Type: types.TaskAIAnalysis, BusinessID: "b1", Priority: 9})
	s.Require().NoError(err)
	s.False(dup.Created)
	s.Equal(low.ID, dup.ID)
	high, err := q.Enqueue(s.ctx, taskqueue.EnqueueInput{Type: types.TaskAIAnalysis, BusinessID: "b2", Priority: 5})
	s.Require().NoError(err)

	first, err := q.GetNext(s.ctx, types.TaskAIAnalysis)
	s.Require().NoError(err)
	s.Equal(high.ID, first.ID)
	s.Equal(types.TaskProcessing, first.Status)
	s.Equal(1, first.Attempts)

	status, err := q.Fail(s.ctx, first.ID, fmt.Errorf("timeout"), true)
	s.Require().NoError(err)
	s.Equal(types.TaskRetrying, status)

	s.Require().NoError(q.Cancel(s.ctx, low.ID))
	s.ErrorIs(q.Cancel(s.ctx, low.ID), types.ErrInvalidState)
	s.ErrorIs(q.Cancel(s.ctx, "missing"), types.ErrNotFound)

	retried, err := q.GetNext(s.ctx, types.TaskAIAnalysis)
	s.Require().NoError(err)
	s.Equal(high.ID, retried.ID)
	s.Equal(2, retried.Attempts)
	s.Require().NoError(q.Complete(s.ctx, retried.ID, map[string]int{"analyzed": 3}))

	done, err := q.Get(s.ctx, high.ID)
	s.Require().NoError(err)
	s.Equal(types.TaskCompleted, done.Status)
	s.JSONEq(`{"analyzed":3}`, string(done.Result))

	stats, err := q.Stats(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, stats.ByStatus[types.TaskCompleted])
	s.Equal(1, stats.ByStatus[types.TaskCancelled])
}

func (s *StoreSuite) TestSyncClaimsNeverExceedCeiling() {
	q := syncqueue.New(s.store, 3, nil)
	for i := 0; i < 10; i++ {
		_, err := q.Enqueue(s.ctx, fmt.Sprintf("b%d", i), "place", i%3)
		s.Require().NoError(err)
	}

	var (
		mu      sync.Mutex
		claimed []types.SyncItem
		wg      sync.WaitGroup
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			items, err := q.DequeueNext(s.ctx, 3)
			s.NoError(err)
			mu.Lock()
			claimed = append(claimed, items...)
			mu.Unlock()
		}()
	}
	wg.Wait()

	s.Len(claimed, 3)
	counts, err := q.Counts(s.ctx)
	s.Require().NoError(err)
	s.Equal(3, counts.Processing)
	s.Equal(7, counts.Pending)

	pending, err := q.Enqueue(s.ctx, "b10", "place", 1)
	s.Require().NoError(err)
	s.True(syncqueue.IsCapacity(q.MarkProcessing(s.ctx, pending)))

	s.Require().NoError(q.MarkFailed(s.ctx, claimed[0], fmt.Errorf("provider 500")))
	s.Require().NoError(q.Retry(s.ctx, claimed[0].ID))
	item, err := q.Get(s.ctx, claimed[0].ID)
	s.Require().NoError(err)
	s.Equal(types.SyncPending, item.Status)

	// the failed attempt cannot finish the retried item
	s.ErrorIs(q.MarkFailed(s.ctx, claimed[0], fmt.Errorf("late")), types.ErrInvalidState)
}

func (s *StoreSuite) TestBulkProgressIsPersisted() {
	s.putBusiness("b1", "plumbing", "austin")
	s.putBusiness("b2", "plumbing", "austin")
	q := syncqueue.New(s.store, 3, nil)

	active, err := s.store.ListActiveBusinesses(s.ctx)
	s.Require().NoError(err)
	bulk, err := q.BulkEnqueue(s.ctx, active)
	s.Require().NoError(err)
	s.Equal(2, bulk.Queued)

	items, err := q.DequeueNext(s.ctx, 3)
	s.Require().NoError(err)
	s.Require().Len(items, 2)
	s.Require().NoError(q.MarkCompleted(s.ctx, items[0], types.SyncResult{Fetched: 5, Created: 5}))

	progress, err := q.BulkProgress(s.ctx, bulk.BatchID)
	s.Require().NoError(err)
	s.Equal(2, progress.Total)
	s.InDelta(50.0, progress.PercentComplete, 0.01)
	s.False(progress.Done)
}

func (s *StoreSuite) TestRankingPositionsAndAchievements() {
	for _, id := range []string{"b1", "b2", "b3"} {
		s.putBusiness(id, "plumbing", "austin")
	}
	now := time.Now().UTC().Truncate(time.Microsecond)
	for i, id := range []string{"b1", "b2", "b3"} {
		s.Require().NoError(s.store.SaveRanking(s.ctx, types.Ranking{
			BusinessID: id, CategoryID: "plumbing", City: "austin",
			OverallScore: float64(60 + 10*i), ReviewsAnalyzed: 10,
			ConfidenceScore: 80, ConfidenceMultiplier: 1, LastCalculated: now,
		}))
	}

	engine := ranking.NewEngine(s.store, s.store, nil)
	cohort, err := engine.RerankCohort(s.ctx, "plumbing", "austin")
	s.Require().NoError(err)
	s.Require().Len(cohort, 3)
	s.Equal("b3", cohort[0].BusinessID)

	// a later score save keeps the stored position
	s.Require().NoError(s.store.SaveRanking(s.ctx, types.Ranking{
		BusinessID: "b1", CategoryID: "plumbing", City: "austin", OverallScore: 95,
		ReviewsAnalyzed: 10, ConfidenceScore: 80, ConfidenceMultiplier: 1, LastCalculated: now,
	}))
	b1, err := s.store.GetRanking(s.ctx, "b1")
	s.Require().NoError(err)
	s.Equal(3, b1.RankingPosition)

	_, err = engine.RerankCohort(s.ctx, "plumbing", "austin")
	s.Require().NoError(err)
	b1, err = s.store.GetRanking(s.ctx, "b1")
	s.Require().NoError(err)
	s.Equal(1, b1.RankingPosition)
	s.Require().NotNil(b1.PreviousPosition)
	s.Equal(3, *b1.PreviousPosition)

	s.ErrorIs(s.store.UpdateRankingPositions(s.ctx, []types.PositionUpdate{
		{BusinessID: "b2", Position: 9}, {BusinessID: "ghost", Position: 1},
	}), types.ErrNotFound)
	b2, err := s.store.GetRanking(s.ctx, "b2")
	s.Require().NoError(err)
	s.NotEqual(9, b2.RankingPosition)

	catalog, err := achievements.DefaultCatalog()
	s.Require().NoError(err)
	a := types.Achievement{
		ID: "ach-1", BusinessID: "b1", AchievementType: "top_rated", TierLevel: types.TierGold,
		TierRequirement: types.PlanStarter, DisplayName: "Top Rated", BadgeIcon: "badge",
		Status: types.AchievementActive, AwardedAt: now,
	}
	created, err := s.store.InsertAchievement(s.ctx, a)
	s.Require().NoError(err)
	s.True(created)
	a.ID = "ach-2"
	created, err = s.store.InsertAchievement(s.ctx, a)
	s.Require().NoError(err)
	s.False(created)

	s.Require().NoError(achievements.NewEngine(catalog, s.store, s.store, nil).Revoke(s.ctx, "ach-1"))
	held, err := s.store.ListAchievements(s.ctx, "b1")
	s.Require().NoError(err)
	s.Require().Len(held, 1)
	s.Equal(types.AchievementRevoked, held[0].Status)
}

func (s *StoreSuite) TestReportArchiveDedupe() {
	a := types.ReportArchive{
		ID: GenerateReportID(), Kind: "rankings", Filename: "r.xlsx", StorageKey: "reports/r.xlsx",
		StorageType: "local", ContentType: "application/octet-stream", FileSize: 10,
		Checksum: CalculateChecksum([]byte("content")), RowCount: 2, GeneratedAt: time.Now().UTC(),
	}
	created, err := s.store.CreateReportArchive(s.ctx, a)
	s.Require().NoError(err)
	s.True(created)

	a.ID = GenerateReportID()
	created, err = s.store.CreateReportArchive(s.ctx, a)
	s.Require().NoError(err)
	s.False(created)

	list, err := s.store.ListReportArchives(s.ctx, "rankings", 0, 0)
	s.Require().NoError(err)
	s.Len(list, 1)
	s.Require().NoError(s.store.DeleteReportArchive(s.ctx, list[0].ID))
	_, err = s.store.GetReportArchive(s.ctx, list[0].ID)
	s.True(IsNotFound(err))
}

func (s *StoreSuite) TestStuckTasksAreFailed() {
	clock := time.Now().UTC()
	q := taskqueue.New(s.store, nil).WithClock(func() time.Time { return clock })

	res, err := q.Enqueue(s.ctx, taskqueue.EnqueueInput{Type: types.TaskRankingCalculation, BusinessID: "b1", MaxRetries: 3})
	s.Require().NoError(err)
	_, err = q.GetNext(s.ctx, types.TaskRankingCalculation)
	s.Require().NoError(err)

	clock = clock.Add(6 * time.Minute)
	n, err := q.SweepStuck(s.ctx, 5*time.Minute)
	s.Require().NoError(err)
	s.Equal(1, n)

	task, err := q.Get(s.ctx, res.ID)
	s.Require().NoError(err)
	s.Equal(types.TaskFailed, task.Status)
	s.Equal(taskqueue.StuckError, task.LastError)
	s.NotNil(task.CompletedAt)
}

func (s *StoreSuite) TestJobRunsRoundTrip() {
	started := time.Now().UTC().Truncate(time.Microsecond)
	s.Require().NoError(s.store.SaveJobRun(s.ctx, types.JobRun{Name: "cleanup", LastStarted: &started}))

	finished := started.Add(time.Minute)
	s.Require().NoError(s.store.SaveJobRun(s.ctx, types.JobRun{
		Name: "cleanup", LastStarted: &started, LastFinished: &finished, LastError: "partial",
	}))

	runs, err := s.store.ListJobRuns(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(runs, 1)
	run := runs["cleanup"]
	s.Require().NotNil(run.LastFinished)
	s.True(started.Equal(*run.LastStarted))
	s.True(finished.Equal(*run.LastFinished))
	s.Equal("partial", run.LastError)
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}
