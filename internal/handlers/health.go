package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bizrank/review-service/internal/database"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string     `json:"status"`
	Database string     `json:"database"`
	Syncs    *int       `json:"syncsInFlight,omitempty"`
	Pool     *PoolStats `json:"pool,omitempty"`
}

// PoolStats summarizes database connection usage
type PoolStats struct {
	Total    int32 `json:"total"`
	Acquired int32 `json:"acquired"`
	Idle     int32 `json:"idle"`
}

// HealthCheck reports database reachability and syncs in flight
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func (a *API) HealthCheck(c *gin.Context) {
	ctx := c.Request.Context()
	response := HealthResponse{
		Status: "ok",
	}

	if database.Pool() != nil {
		if err := database.Status(ctx); err != nil {
			response.Status = "degraded"
			response.Database = "disconnected"
			c.JSON(http.StatusServiceUnavailable, response)
			return
		}
		response.Database = "connected"
		if st := database.Stats(); st != nil {
			response.Pool = &PoolStats{Total: st.TotalConns(), Acquired: st.AcquiredConns(), Idle: st.IdleConns()}
		}
	} else {
		response.Database = "in-memory"
	}

	if a.deps.Syncs != nil {
		if counts, err := a.deps.Syncs.Counts(ctx); err == nil {
			response.Syncs = &counts.Processing
		}
	}

	c.JSON(http.StatusOK, response)
}
