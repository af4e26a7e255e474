package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/bizrank/review-service/internal/achievements"
	"github.com/bizrank/review-service/internal/analysis"
	"github.com/bizrank/review-service/internal/publisher"
	"github.com/bizrank/review-service/internal/taskqueue"
	"github.com/bizrank/review-service/internal/types"
)

// DefaultAnalysisBatch is how many reviews one ai_analysis task tags
const DefaultAnalysisBatch = 100

// ErrInvalidTask marks a task whose metadata can never be processed
var ErrInvalidTask = errors.New("invalid task")

// ReviewStore exposes the reviews awaiting analysis and stores their tags
type ReviewStore interface {
	ListUnanalyzedReviews(ctx context.Context, businessID string, limit int) ([]types.RawReview, error)
	UpsertAnalysisTags(ctx context.Context, t types.AnalysisTags) error
}

// BusinessStore resolves business records
type BusinessStore interface {
	GetBusiness(ctx context.Context, id string) (*types.Business, error)
	ListActiveBusinesses(ctx context.Context) ([]types.Business, error)
}

// ReviewAnalyzer tags one review
type ReviewAnalyzer interface {
	Analyze(ctx context.Context, in analysis.Input) (*types.AnalysisTags, error)
}

// RankingCalculator recomputes scores and cohort positions
type RankingCalculator interface {
	CalculateRanking(ctx context.Context, businessID string) (*types.Ranking, error)
	RerankCohort(ctx context.Context, categoryID, city string) ([]types.Ranking, error)
}

// AchievementDetector awards achievements for a business
type AchievementDetector interface {
	Detect(ctx context.Context, businessID string) (*achievements.Detection, error)
}

// PipelineDeps are the collaborators of the processing lanes
type PipelineDeps struct {
	Queue        *taskqueue.Queue
	Reviews      ReviewStore
	Businesses   BusinessStore
	Analyzer     ReviewAnalyzer
	Rankings     RankingCalculator
	Achievements AchievementDetector
	Publisher    publisher.Publisher // Nop when nil
}

// Pipeline implements the lane handlers. Each stage enqueues the next:
// ai_analysis -> ranking_calculation -> achievement_detection.
type Pipeline struct {
	deps          PipelineDeps
	analysisBatch int
	logger        zerolog.Logger
}

// NewPipeline creates the lane handlers
func NewPipeline(deps PipelineDeps, logger *zerolog.Logger) *Pipeline {
	if deps.Publisher == nil {
		deps.Publisher = publisher.Nop{}
	}
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "pipeline").Logger()
	}
	return &Pipeline{deps: deps, analysisBatch: DefaultAnalysisBatch, logger: l}
}

// Register binds every lane handler on w
func (p *Pipeline) Register(w *Worker) {
	w.RegisterHandler(types.TaskAIAnalysis, p.HandleAnalysis)
	w.RegisterHandler(types.TaskRankingCalculation, p.HandleRanking)
	w.RegisterHandler(types.TaskAchievementDetection, p.HandleAchievements)
	w.RegisterHandler(types.TaskBatchProcessing, p.HandleBatch)
}

// AnalysisMetadata is the optional metadata of an ai_analysis task
type AnalysisMetadata struct {
	Limit int `json:"limit,omitempty"`
}

// AnalysisResult is stored on a completed ai_analysis task
type AnalysisResult struct {
	Analyzed int  `json:"analyzed"`
	Failed   int  `json:"failed"`
	More     bool `json:"more"` // a follow-up analysis task was queued
}

// HandleAnalysis tags the oldest unanalyzed reviews of the task's business
// and queues a ranking recalculation when anything was tagged
func (p *Pipeline) HandleAnalysis(ctx context.Context, task types.Task) (any, error) {
	var meta AnalysisMetadata
	if err := decodeMetadata(task, &meta); err != nil {
		return nil, err
	}
	limit := meta.Limit
	if limit <= 0 {
		limit = p.analysisBatch
	}

	b, err := p.deps.Businesses.GetBusiness(ctx, task.BusinessID)
	if err != nil {
		return nil, fmt.Errorf("failed to load business: %w", err)
	}
	pending, err := p.deps.Reviews.ListUnanalyzedReviews(ctx, b.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list unanalyzed reviews: %w", err)
	}

	result := &AnalysisResult{}
	for _, r := range pending {
		tags, err := p.deps.Analyzer.Analyze(ctx, analysis.Input{
			Text:            r.Comment,
			Rating:          r.Rating,
			CategoryContext: b.CategoryID,
		})
		if err == nil {
			tags.ReviewID = r.ID
			tags.BusinessID = b.ID
			tags.ReviewDate = r.CreatedAt
			err = p.deps.Reviews.UpsertAnalysisTags(ctx, *tags)
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			result.Failed++
			p.logger.Warn().Err(err).Str("review_id", r.ID).Msg("Review analysis failed")
			continue
		}
		result.Analyzed++
	}

	if len(pending) == limit && result.Analyzed > 0 {
		if _, err := p.enqueue(ctx, types.TaskAIAnalysis, b.ID, task.Priority, task.Metadata); err != nil {
			return nil, err
		}
		result.More = true
	}
	if result.Analyzed > 0 {
		if _, err := p.enqueue(ctx, types.TaskRankingCalculation, b.ID, task.Priority, nil); err != nil {
			return nil, err
		}
	}

	p.logger.Info().
		Str("business_id", b.ID).
		Int("analyzed", result.Analyzed).
		Int("failed", result.Failed).
		Bool("more", result.More).
		Msg("Reviews analyzed")
	return result, nil
}

// RankingResult is stored on a completed ranking_calculation task
type RankingResult struct {
	Ranked       bool    `json:"ranked"`
	OverallScore float64 `json:"overallScore,omitempty"`
	Position     int     `json:"position,omitempty"`
	CohortSize   int     `json:"cohortSize,omitempty"`
}

// HandleRanking recalculates the business, re-ranks its cohort, announces
// moved positions and queues achievement detection
func (p *Pipeline) HandleRanking(ctx context.Context, task types.Task) (any, error) {
	r, err := p.deps.Rankings.CalculateRanking(ctx, task.BusinessID)
	if err != nil {
		return nil, err
	}

	result := &RankingResult{}
	if r != nil {
		cohort, err := p.deps.Rankings.RerankCohort(ctx, r.CategoryID, r.City)
		if err != nil {
			return nil, err
		}
		result.Ranked = true
		result.OverallScore = r.OverallScore
		result.CohortSize = len(cohort)
		for _, c := range cohort {
			if c.BusinessID == r.BusinessID {
				result.Position = c.RankingPosition
			}
			if c.BusinessID != r.BusinessID && !positionMoved(c) {
				continue
			}
			if err := p.deps.Publisher.RankingUpdated(ctx, c); err != nil {
				p.logger.Warn().Err(err).Str("business_id", c.BusinessID).Msg("Failed to publish ranking update")
			}
		}
	}

	// Review-count achievements do not depend on a ranking
	if _, err := p.enqueue(ctx, types.TaskAchievementDetection, task.BusinessID, task.Priority, nil); err != nil {
		return nil, err
	}
	return result, nil
}

func positionMoved(r types.Ranking) bool {
	return r.PreviousPosition == nil || *r.PreviousPosition != r.RankingPosition
}

// AchievementResult is stored on a completed achievement_detection task
type AchievementResult struct {
	Awarded    int `json:"awarded"`
	InProgress int `json:"inProgress"`
}

// HandleAchievements runs detection and announces new awards
func (p *Pipeline) HandleAchievements(ctx context.Context, task types.Task) (any, error) {
	d, err := p.deps.Achievements.Detect(ctx, task.BusinessID)
	if err != nil {
		return nil, err
	}
	for _, a := range d.Awarded {
		if err := p.deps.Publisher.AchievementAwarded(ctx, a); err != nil {
			p.logger.Warn().Err(err).Str("achievement_id", a.ID).Msg("Failed to publish achievement")
		}
	}
	return &AchievementResult{Awarded: len(d.Awarded), InProgress: len(d.Progress)}, nil
}

// BatchMetadata is the metadata of a batch_processing task
type BatchMetadata struct {
	TaskType    types.TaskType `json:"taskType"`
	BusinessIDs []string       `json:"businessIds,omitempty"` // every active business when empty
	Priority    int            `json:"priority,omitempty"`
}

// BatchTask builds the enqueue input of a batch_processing task. The
// business id slot carries the target lane so batches of different lanes
// do not suppress each other.
func BatchTask(meta BatchMetadata) taskqueue.EnqueueInput {
	return taskqueue.EnqueueInput{
		Type:       types.TaskBatchProcessing,
		BusinessID: "batch:" + string(meta.TaskType),
		Priority:   meta.Priority,
		Metadata:   meta,
	}
}

// BatchResult is stored on a completed batch_processing task
type BatchResult struct {
	TaskType      types.TaskType `json:"taskType"`
	Queued        int            `json:"queued"`
	AlreadyQueued int            `json:"alreadyQueued"`
}

// HandleBatch fans a lane task out over a set of businesses
func (p *Pipeline) HandleBatch(ctx context.Context, task types.Task) (any, error) {
	var meta BatchMetadata
	if err := decodeMetadata(task, &meta); err != nil {
		return nil, err
	}
	if !meta.TaskType.Valid() || meta.TaskType == types.TaskBatchProcessing {
		return nil, fmt.Errorf("%w: batch of %q", ErrInvalidTask, meta.TaskType)
	}

	ids := meta.BusinessIDs
	if len(ids) == 0 {
		active, err := p.deps.Businesses.ListActiveBusinesses(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list businesses: %w", err)
		}
		for _, b := range active {
			ids = append(ids, b.ID)
		}
	}

	result := &BatchResult{TaskType: meta.TaskType}
	for _, id := range ids {
		created, err := p.enqueue(ctx, meta.TaskType, id, meta.Priority, nil)
		if err != nil {
			return nil, err
		}
		if created {
			result.Queued++
		} else {
			result.AlreadyQueued++
		}
	}

	p.logger.Info().
		Str("task_type", string(meta.TaskType)).
		Int("queued", result.Queued).
		Int("already_queued", result.AlreadyQueued).
		Msg("Batch fanned out")
	return result, nil
}

func (p *Pipeline) enqueue(ctx context.Context, taskType types.TaskType, businessID string, priority int, metadata json.RawMessage) (bool, error) {
	input := taskqueue.EnqueueInput{Type: taskType, BusinessID: businessID, Priority: priority}
	if len(metadata) > 0 {
		input.Metadata = metadata
	}
	res, err := p.deps.Queue.Enqueue(ctx, input)
	if err != nil {
		return false, fmt.Errorf("failed to enqueue %s for %s: %w", taskType, businessID, err)
	}
	return res.Created, nil
}

func decodeMetadata(task types.Task, v any) error {
	if len(task.Metadata) == 0 || string(task.Metadata) == "null" {
		return nil
	}
	if err := json.Unmarshal(task.Metadata, v); err != nil {
		return fmt.Errorf("%w: bad metadata: %v", ErrInvalidTask, err)
	}
	return nil
}
