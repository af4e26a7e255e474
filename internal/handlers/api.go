package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/bizrank/review-service/internal/jobs"
	"github.com/bizrank/review-service/internal/syncqueue"
	"github.com/bizrank/review-service/internal/types"
)

// RankingReader serves stored rankings
type RankingReader interface {
	Get(ctx context.Context, businessID string) (*types.Ranking, error)
	List(ctx context.Context, filter types.RankingFilter) ([]types.Ranking, error)
}

// AchievementService serves and revokes achievements
type AchievementService interface {
	List(ctx context.Context, businessID string) ([]types.Achievement, error)
	Progress(ctx context.Context, businessID string) ([]types.AchievementProgress, error)
	Revoke(ctx context.Context, id string) error
}

// SyncService is the review sync queue
type SyncService interface {
	Enqueue(ctx context.Context, businessID, placeID string, priority int) (string, error)
	BulkEnqueue(ctx context.Context, businesses []types.Business) (*syncqueue.BulkResult, error)
	BulkProgress(ctx context.Context, batchID string) (*syncqueue.BulkProgress, error)
	Retry(ctx context.Context, id string) error
	Cancel(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*types.SyncItem, error)
	Counts(ctx context.Context) (types.SyncCounts, error)
}

// TaskService is the processing queue
type TaskService interface {
	Get(ctx context.Context, id string) (*types.Task, error)
	Cancel(ctx context.Context, id string) error
	Stats(ctx context.Context) (*types.QueueStats, error)
}

// JobRunner triggers scheduled jobs on demand
type JobRunner interface {
	Run(ctx context.Context, name string) (any, error)
	Status() []jobs.Status
}

// BusinessDirectory resolves business records
type BusinessDirectory interface {
	GetBusiness(ctx context.Context, id string) (*types.Business, error)
	ListActiveBusinesses(ctx context.Context) ([]types.Business, error)
}

// Deps are the services behind the internal API. Routes whose service is
// nil are not registered.
type Deps struct {
	Rankings     RankingReader
	Achievements AchievementService
	Syncs        SyncService
	Tasks        TaskService
	Jobs         JobRunner
	Businesses   BusinessDirectory
	Reports      ReportService
}

// API serves the internal review, ranking and queue endpoints
type API struct {
	deps   Deps
	logger zerolog.Logger
}

// NewAPI creates the internal API handlers
func NewAPI(deps Deps, logger *zerolog.Logger) *API {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "api").Logger()
	}
	return &API{deps: deps, logger: l}
}

// Register mounts the internal routes on g
func (a *API) Register(g *gin.RouterGroup) {
	if a.deps.Rankings != nil {
		g.GET("/rankings", a.ListRankings)
		g.GET("/rankings/:businessId", a.GetRanking)
	}
	if a.deps.Achievements != nil {
		g.GET("/achievements/:businessId", a.ListAchievements)
		g.POST("/achievements/:id/revoke", a.RevokeAchievement)
	}
	if a.deps.Syncs != nil && a.deps.Businesses != nil {
		g.POST("/sync/bulk", a.BulkSync)
		g.POST("/sync/:businessId", a.RequestSync)
		g.GET("/sync/batches/:batchId", a.GetSyncBatch)
		g.GET("/sync/items/:id", a.GetSyncItem)
		g.POST("/sync/items/:id/retry", a.RetrySyncItem)
		g.DELETE("/sync/items/:id", a.CancelSyncItem)
	}
	if a.deps.Tasks != nil {
		g.GET("/queue/stats", a.QueueStats)
		g.GET("/queue/tasks/:id", a.GetTask)
		g.DELETE("/queue/tasks/:id", a.CancelTask)
	}
	if a.deps.Jobs != nil {
		g.GET("/jobs", a.ListJobs)
		g.POST("/jobs/:name/run", a.RunJob)
	}
	if a.deps.Reports != nil {
		g.GET("/reports", a.ListReports)
		g.GET("/reports/:id/download", a.DownloadReport)
	}
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError maps domain errors onto status codes
func (a *API) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, types.ErrNotFound), errors.Is(err, jobs.ErrUnknownJob):
		status = http.StatusNotFound
	case errors.Is(err, types.ErrInvalidState), errors.Is(err, jobs.ErrJobRunning):
		status = http.StatusConflict
	case errors.Is(err, types.ErrCapacity):
		status = http.StatusTooManyRequests
	}
	if status == http.StatusInternalServerError {
		a.logger.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}
