package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/bizrank/review-service/internal/achievements"
	"github.com/bizrank/review-service/internal/reports"
	"github.com/bizrank/review-service/internal/syncqueue"
	"github.com/bizrank/review-service/internal/taskqueue"
	"github.com/bizrank/review-service/internal/types"
	"github.com/bizrank/review-service/internal/workers"
)

// Trigger names
const (
	JobQueueRefill      = "queue_refill"
	JobAchievementCheck = "achievement_check"
	JobReviewSync       = "review_sync"
	JobRankingUpdate    = "ranking_update"
	JobCleanup          = "cleanup"
	JobAchievementAudit = "achievement_audit"
	JobRankingReport    = "ranking_report"
)

// Businesses lists the businesses the triggers fan out over
type Businesses interface {
	ListActiveBusinesses(ctx context.Context) ([]types.Business, error)
}

// PendingReviews finds reviews still waiting for analysis
type PendingReviews interface {
	ListUnanalyzedReviews(ctx context.Context, businessID string, limit int) ([]types.RawReview, error)
}

// TaskEnqueuer schedules processing queue tasks
type TaskEnqueuer interface {
	Enqueue(ctx context.Context, input taskqueue.EnqueueInput) (*taskqueue.EnqueueResult, error)
}

// SyncEnqueuer schedules review syncs
type SyncEnqueuer interface {
	BulkEnqueue(ctx context.Context, businesses []types.Business) (*syncqueue.BulkResult, error)
}

// Reranker renumbers every cohort
type Reranker interface {
	RerankAll(ctx context.Context) (int, error)
}

// Detector runs achievement detection for one business
type Detector interface {
	Detect(ctx context.Context, businessID string) (*achievements.Detection, error)
}

// ReportGenerator builds the ranking report
type ReportGenerator interface {
	GenerateRankingReport(ctx context.Context) (*reports.Result, error)
}

// ServiceDeps are the collaborators of the service triggers. A trigger
// whose collaborators are missing is not registered.
type ServiceDeps struct {
	Businesses   Businesses
	Reviews      PendingReviews
	Tasks        TaskEnqueuer
	Syncs        SyncEnqueuer
	Rankings     Reranker
	Achievements Detector
	Reports      ReportGenerator
	Cleaner      *Cleaner
}

type serviceJobs struct {
	deps   ServiceDeps
	logger zerolog.Logger
}

// RegisterServiceJobs registers the hourly, daily and weekly triggers
func RegisterServiceJobs(s *Scheduler, deps ServiceDeps, logger *zerolog.Logger) error {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "service_jobs").Logger()
	}
	sj := &serviceJobs{deps: deps, logger: l}

	var list []Job
	if deps.Businesses != nil && deps.Reviews != nil && deps.Tasks != nil {
		list = append(list, Job{Name: JobQueueRefill, Every: Hourly, Run: sj.queueRefill})
	}
	if deps.Tasks != nil {
		list = append(list,
			Job{Name: JobAchievementCheck, Every: Hourly, Run: sj.fanOut(types.TaskAchievementDetection)})
	}
	if deps.Businesses != nil && deps.Syncs != nil {
		list = append(list, Job{Name: JobReviewSync, Every: Daily, Run: sj.reviewSync})
	}
	if deps.Tasks != nil && deps.Rankings != nil {
		list = append(list, Job{Name: JobRankingUpdate, Every: Daily, Run: sj.rankingUpdate})
	}
	if deps.Cleaner != nil {
		list = append(list, Job{Name: JobCleanup, Every: Daily, Run: sj.cleanup})
	}
	if deps.Businesses != nil && deps.Achievements != nil {
		list = append(list, Job{Name: JobAchievementAudit, Every: Weekly, Timeout: 30 * time.Minute, Run: sj.achievementAudit})
	}
	if deps.Reports != nil {
		list = append(list, Job{Name: JobRankingReport, Every: Weekly, Run: sj.rankingReport})
	}

	for _, j := range list {
		if err := s.Register(j); err != nil {
			return err
		}
	}
	return nil
}

// RefillResult is the result of the queue refill trigger
type RefillResult struct {
	Checked int `json:"checked"`
	Queued  int `json:"queued"`
}

// queueRefill queues analysis for every business with unanalyzed reviews
func (sj *serviceJobs) queueRefill(ctx context.Context) (any, error) {
	active, err := sj.deps.Businesses.ListActiveBusinesses(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list businesses: %w", err)
	}
	result := &RefillResult{}
	for _, b := range active {
		result.Checked++
		pending, err := sj.deps.Reviews.ListUnanalyzedReviews(ctx, b.ID, 1)
		if err != nil {
			return result, fmt.Errorf("failed to check reviews of %s: %w", b.ID, err)
		}
		if len(pending) == 0 {
			continue
		}
		res, err := sj.deps.Tasks.Enqueue(ctx, taskqueue.EnqueueInput{
			Type:       types.TaskAIAnalysis,
			BusinessID: b.ID,
			Priority:   b.PlanTier.SyncPriority(),
		})
		if err != nil {
			return result, err
		}
		if res.Created {
			result.Queued++
		}
	}
	return result, nil
}

// fanOut queues one batch_processing task that spreads taskType over every
// active business
func (sj *serviceJobs) fanOut(taskType types.TaskType) Func {
	return func(ctx context.Context) (any, error) {
		return sj.enqueueBatch(ctx, taskType)
	}
}

func (sj *serviceJobs) enqueueBatch(ctx context.Context, taskType types.TaskType) (*taskqueue.EnqueueResult, error) {
	return sj.deps.Tasks.Enqueue(ctx, workers.BatchTask(workers.BatchMetadata{TaskType: taskType}))
}

func (sj *serviceJobs) reviewSync(ctx context.Context) (any, error) {
	active, err := sj.deps.Businesses.ListActiveBusinesses(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list businesses: %w", err)
	}
	return sj.deps.Syncs.BulkEnqueue(ctx, active)
}

// RankingUpdateResult is the result of the ranking update trigger
type RankingUpdateResult struct {
	Cohorts int                      `json:"cohorts"`
	Batch   *taskqueue.EnqueueResult `json:"batch"`
}

// rankingUpdate renumbers every cohort on current scores and queues a
// score recalculation for every business
func (sj *serviceJobs) rankingUpdate(ctx context.Context) (any, error) {
	cohorts, err := sj.deps.Rankings.RerankAll(ctx)
	if err != nil {
		return nil, err
	}
	batch, err := sj.enqueueBatch(ctx, types.TaskRankingCalculation)
	if err != nil {
		return nil, err
	}
	return &RankingUpdateResult{Cohorts: cohorts, Batch: batch}, nil
}

func (sj *serviceJobs) cleanup(ctx context.Context) (any, error) {
	return sj.deps.Cleaner.RunAll(ctx)
}

// AuditResult is the result of the achievement audit trigger
type AuditResult struct {
	Businesses int `json:"businesses"`
	Awarded    int `json:"awarded"`
	Failed     int `json:"failed"`
}

// achievementAudit re-runs detection for every active business in-line so
// progress rows are refreshed even when no task was queued
func (sj *serviceJobs) achievementAudit(ctx context.Context) (any, error) {
	active, err := sj.deps.Businesses.ListActiveBusinesses(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list businesses: %w", err)
	}
	result := &AuditResult{}
	var errs []error
	for _, b := range active {
		result.Businesses++
		d, err := sj.deps.Achievements.Detect(ctx, b.ID)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			result.Failed++
			errs = append(errs, fmt.Errorf("%s: %w", b.ID, err))
			sj.logger.Warn().Err(err).Str("business_id", b.ID).Msg("Achievement audit failed for business")
			continue
		}
		result.Awarded += len(d.Awarded)
	}
	return result, errors.Join(errs...)
}

func (sj *serviceJobs) rankingReport(ctx context.Context) (any, error) {
	return sj.deps.Reports.GenerateRankingReport(ctx)
}
