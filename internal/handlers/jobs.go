package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bizrank/review-service/internal/jobs"
)

// RunJobResponse is the outcome of a manual trigger
type RunJobResponse struct {
	Job    string `json:"job"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// ListJobs returns every scheduled job and its last run
// @Summary List scheduled jobs
// @Tags jobs
// @Produce json
// @Success 200 {array} jobs.Status
// @Router /internal/jobs [get]
func (a *API) ListJobs(c *gin.Context) {
	st := a.deps.Jobs.Status()
	if st == nil {
		st = []jobs.Status{}
	}
	c.JSON(http.StatusOK, st)
}

// RunJob runs a scheduled job now and waits for it
// @Summary Run job
// @Description Runs the named job synchronously. A job already in flight is not started again.
// @Tags jobs
// @Produce json
// @Param name path string true "Job name"
// @Success 200 {object} RunJobResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} RunJobResponse
// @Router /internal/jobs/{name}/run [post]
func (a *API) RunJob(c *gin.Context) {
	name := c.Param("name")
	res, err := a.deps.Jobs.Run(c.Request.Context(), name)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, RunJobResponse{Job: name, Result: res})
	case res != nil:
		// partial runs still report what they did
		a.logger.Warn().Err(err).Str("job", name).Msg("Manual job run finished with errors")
		c.JSON(http.StatusInternalServerError, RunJobResponse{Job: name, Result: res, Error: err.Error()})
	default:
		a.respondError(c, err)
	}
}
