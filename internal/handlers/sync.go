package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bizrank/review-service/internal/types"
)

// ============================================================================
// Review Sync Endpoints
// ============================================================================

// SyncRequest optionally overrides the plan-derived priority
type SyncRequest struct {
	Priority *int `json:"priority,omitempty" binding:"omitempty,min=0,max=10" jsonschema:"minimum=0,maximum=10"`
}

// SyncResponse identifies the queued (or already queued) sync item
type SyncResponse struct {
	ItemID     string `json:"itemId"`
	BusinessID string `json:"businessId"`
	Priority   int    `json:"priority"`
}

// RequestSync queues a review sync for one business
// @Summary Queue review sync
// @Description Queues a sync unless the business already has a pending or processing one, in which case that item is returned
// @Tags sync
// @Accept json
// @Produce json
// @Param businessId path string true "Business ID"
// @Param request body SyncRequest false "Priority override"
// @Success 202 {object} SyncResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /internal/sync/{businessId} [post]
func (a *API) RequestSync(c *gin.Context) {
	var req SyncRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
	}

	ctx := c.Request.Context()
	b, err := a.deps.Businesses.GetBusiness(ctx, c.Param("businessId"))
	if err != nil {
		a.respondError(c, err)
		return
	}
	if !b.Active || b.PlaceID == "" {
		a.respondError(c, fmt.Errorf("business %s cannot be synced: %w", b.ID, types.ErrInvalidState))
		return
	}

	priority := b.PlanTier.SyncPriority()
	if req.Priority != nil {
		priority = *req.Priority
	}
	id, err := a.deps.Syncs.Enqueue(ctx, b.ID, b.PlaceID, priority)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, SyncResponse{ItemID: id, BusinessID: b.ID, Priority: priority})
}

// BulkSyncRequest selects the businesses of a bulk sync
type BulkSyncRequest struct {
	BusinessIDs []string `json:"businessIds,omitempty" binding:"omitempty,max=1000,dive,required" jsonschema:"description=Every active business when empty"`
}

// BulkSync queues syncs for many businesses under one batch id
// @Summary Bulk review sync
// @Tags sync
// @Accept json
// @Produce json
// @Param request body BulkSyncRequest false "Businesses to sync"
// @Success 202 {object} syncqueue.BulkResult
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /internal/sync/bulk [post]
func (a *API) BulkSync(c *gin.Context) {
	var req BulkSyncRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
	}

	ctx := c.Request.Context()
	var businesses []types.Business
	if len(req.BusinessIDs) == 0 {
		active, err := a.deps.Businesses.ListActiveBusinesses(ctx)
		if err != nil {
			a.respondError(c, err)
			return
		}
		businesses = active
	} else {
		for _, id := range req.BusinessIDs {
			b, err := a.deps.Businesses.GetBusiness(ctx, id)
			if err != nil {
				a.respondError(c, err)
				return
			}
			businesses = append(businesses, *b)
		}
	}

	res, err := a.deps.Syncs.BulkEnqueue(ctx, businesses)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, res)
}

// GetSyncBatch reports the progress of a bulk sync
// @Summary Bulk sync progress
// @Tags sync
// @Produce json
// @Param batchId path string true "Batch ID"
// @Success 200 {object} syncqueue.BulkProgress
// @Failure 404 {object} ErrorResponse
// @Router /internal/sync/batches/{batchId} [get]
func (a *API) GetSyncBatch(c *gin.Context) {
	progress, err := a.deps.Syncs.BulkProgress(c.Request.Context(), c.Param("batchId"))
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

// GetSyncItem returns one sync item
// @Summary Get sync item
// @Tags sync
// @Produce json
// @Param id path string true "Sync item ID"
// @Success 200 {object} types.SyncItem
// @Failure 404 {object} ErrorResponse
// @Router /internal/sync/items/{id} [get]
func (a *API) GetSyncItem(c *gin.Context) {
	item, err := a.deps.Syncs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// RetrySyncItem resets a failed sync to pending
// @Summary Retry failed sync
// @Tags sync
// @Produce json
// @Param id path string true "Sync item ID"
// @Success 200 {object} types.SyncItem
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /internal/sync/items/{id}/retry [post]
func (a *API) RetrySyncItem(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if err := a.deps.Syncs.Retry(ctx, id); err != nil {
		a.respondError(c, err)
		return
	}
	item, err := a.deps.Syncs.Get(ctx, id)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// CancelSyncItem removes a pending sync
// @Summary Cancel pending sync
// @Tags sync
// @Param id path string true "Sync item ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /internal/sync/items/{id} [delete]
func (a *API) CancelSyncItem(c *gin.Context) {
	if err := a.deps.Syncs.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		a.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
