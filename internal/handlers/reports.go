package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bizrank/review-service/internal/types"
)

// ReportService lists and opens archived reports
type ReportService interface {
	List(ctx context.Context, kind string, limit, offset int) ([]types.ReportArchive, error)
	Open(ctx context.Context, id string) (*types.ReportArchive, []byte, error)
}

// ListReportsRequest pages through archived reports
type ListReportsRequest struct {
	Kind   string `form:"kind" jsonschema:"description=Report kind,example=rankings"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=100" jsonschema:"minimum=1,maximum=100,default=20"`
	Offset int    `form:"offset" binding:"omitempty,min=0" jsonschema:"minimum=0,default=0"`
}

// ListReportsResponse is a page of archived reports
type ListReportsResponse struct {
	Reports []types.ReportArchive `json:"reports"`
	Limit   int                   `json:"limit"`
	Offset  int                   `json:"offset"`
}

// ListReports returns archived reports, newest first
// @Summary List reports
// @Tags reports
// @Produce json
// @Param kind query string false "Report kind"
// @Param limit query int false "Page size (1-100)" default(20)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} ListReportsResponse
// @Failure 400 {object} ErrorResponse
// @Router /internal/reports [get]
func (a *API) ListReports(c *gin.Context) {
	var req ListReportsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if req.Limit == 0 {
		req.Limit = 20
	}

	list, err := a.deps.Reports.List(c.Request.Context(), req.Kind, req.Limit, req.Offset)
	if err != nil {
		a.respondError(c, err)
		return
	}
	if list == nil {
		list = []types.ReportArchive{}
	}
	c.JSON(http.StatusOK, ListReportsResponse{Reports: list, Limit: req.Limit, Offset: req.Offset})
}

// DownloadReport streams an archived report
// @Summary Download report
// @Tags reports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Report ID"
// @Success 200 {file} file
// @Failure 404 {object} ErrorResponse
// @Router /internal/reports/{id}/download [get]
func (a *API) DownloadReport(c *gin.Context) {
	archive, content, err := a.deps.Reports.Open(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", archive.Filename))
	c.Data(http.StatusOK, archive.ContentType, content)
}
