package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bizrank/review-service/internal/types"
)

// ============================================================================
// Ranking Endpoints
// ============================================================================

// ListRankingsRequest filters the ranking list
type ListRankingsRequest struct {
	BusinessID string `form:"businessId" jsonschema:"description=Restrict to one business"`
	CategoryID string `form:"categoryId" jsonschema:"description=Restrict to one category"`
	City       string `form:"city" jsonschema:"description=Restrict to one city"`
	Limit      int    `form:"limit" binding:"omitempty,min=1,max=500" jsonschema:"minimum=1,maximum=500,default=100"`
}

// ListRankingsResponse is the ranking list
type ListRankingsResponse struct {
	Rankings []types.Ranking `json:"rankings"`
	Total    int             `json:"total"`
}

// ListRankings returns rankings ordered by cohort position
// @Summary List rankings
// @Description Rankings filtered by business, category or city, best score first
// @Tags rankings
// @Produce json
// @Param businessId query string false "Business ID"
// @Param categoryId query string false "Category ID"
// @Param city query string false "City"
// @Param limit query int false "Maximum rows (1-500)" default(100)
// @Success 200 {object} ListRankingsResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /internal/rankings [get]
func (a *API) ListRankings(c *gin.Context) {
	var req ListRankingsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if req.Limit == 0 {
		req.Limit = 100
	}

	rankings, err := a.deps.Rankings.List(c.Request.Context(), types.RankingFilter{
		BusinessID: req.BusinessID,
		CategoryID: req.CategoryID,
		City:       req.City,
		Limit:      req.Limit,
	})
	if err != nil {
		a.respondError(c, err)
		return
	}
	if rankings == nil {
		rankings = []types.Ranking{}
	}
	c.JSON(http.StatusOK, ListRankingsResponse{Rankings: rankings, Total: len(rankings)})
}

// GetRanking returns the ranking of one business
// @Summary Get business ranking
// @Tags rankings
// @Produce json
// @Param businessId path string true "Business ID"
// @Success 200 {object} types.Ranking
// @Failure 404 {object} ErrorResponse
// @Router /internal/rankings/{businessId} [get]
func (a *API) GetRanking(c *gin.Context) {
	r, err := a.deps.Rankings.Get(c.Request.Context(), c.Param("businessId"))
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}
