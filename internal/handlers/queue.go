package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bizrank/review-service/internal/types"
)

// QueueStatsResponse combines both queues
type QueueStatsResponse struct {
	Tasks *types.QueueStats `json:"tasks"`
	Syncs *types.SyncCounts `json:"syncs,omitempty"`
}

// QueueStats returns processing queue counts by status and lane, plus sync
// queue counts when the sync queue is served
// @Summary Queue statistics
// @Tags queue
// @Produce json
// @Success 200 {object} QueueStatsResponse
// @Failure 500 {object} ErrorResponse
// @Router /internal/queue/stats [get]
func (a *API) QueueStats(c *gin.Context) {
	ctx := c.Request.Context()
	stats, err := a.deps.Tasks.Stats(ctx)
	if err != nil {
		a.respondError(c, err)
		return
	}
	resp := QueueStatsResponse{Tasks: stats}
	if a.deps.Syncs != nil {
		counts, err := a.deps.Syncs.Counts(ctx)
		if err != nil {
			a.respondError(c, err)
			return
		}
		resp.Syncs = &counts
	}
	c.JSON(http.StatusOK, resp)
}

// GetTask returns one processing task
// @Summary Get task
// @Tags queue
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} types.Task
// @Failure 404 {object} ErrorResponse
// @Router /internal/queue/tasks/{id} [get]
func (a *API) GetTask(c *gin.Context) {
	task, err := a.deps.Tasks.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// CancelTask cancels a pending or retrying task
// @Summary Cancel task
// @Tags queue
// @Param id path string true "Task ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /internal/queue/tasks/{id} [delete]
func (a *API) CancelTask(c *gin.Context) {
	if err := a.deps.Tasks.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		a.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
