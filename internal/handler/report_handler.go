package handler

import (
	"net/http"
	"path/filepath"

	"finreports/internal/middleware"
	"finreports/internal/service"
	"finreports/pkg/pagination"
	"finreports/pkg/response"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reportService service.ReportService
	auth          *middleware.Authenticator
}

func NewReportHandler(reportService service.ReportService, auth *middleware.Authenticator) *ReportHandler {
	return &ReportHandler{reportService: reportService, auth: auth}
}

func (h *ReportHandler) RegisterRoutes(router *gin.RouterGroup) {
	reports := router.Group("/api/reports")
	{
		reports.POST("", h.auth.RequireRole(middleware.WriteRoles...), h.CreateReport)
		reports.GET("", h.auth.RequireRole(middleware.ReadRoles...), h.SearchReports)
		reports.GET("/:id", h.auth.RequireRole(middleware.ReadRoles...), h.GetReport)
		reports.PUT("/:id", h.auth.RequireRole(middleware.WriteRoles...), h.UpdateReport)
		reports.DELETE("/:id", h.auth.RequireRole(middleware.DeleteRoles...), h.DeleteReport)
		reports.GET("/:id/download", h.auth.RequireRole(middleware.ReadRoles...), h.DownloadReport)
	}
}

// CreateReport creates a PENDING report, optionally seeded from a template
// @Summary      Create report
// @Description  Creates a report. Template parameters are merged with the supplied ones.
// @Tags         reports
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateReportRequest  true  "Create Report Payload"
// @Success      201      {object}  response.Response{data=service.ReportResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/reports [post]
func (h *ReportHandler) CreateReport(c *gin.Context) {
	var req service.CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	report, err := h.reportService.CreateReport(c.Request.Context(), middleware.Actor(c), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, report))
}

// SearchReports returns reports matching the filter, newest first
// @Summary      Search reports
// @Tags         reports
// @Security     BearerAuth
// @Produce      json
// @Param        type        query     string  false  "Report type"
// @Param        client_id   query     string  false  "Client ID"
// @Param        project_id  query     string  false  "Project ID"
// @Param        from        query     string  false  "Created on or after (YYYY-MM-DD)"
// @Param        to          query     string  false  "Created on or before (YYYY-MM-DD)"
// @Param        page        query     int     false  "Page number (default 1)"
// @Param        limit       query     int     false  "Number of items per page (default 20)"
// @Success      200         {object}  response.Response{data=object}
// @Router       /api/reports [get]
func (h *ReportHandler) SearchReports(c *gin.Context) {
	p := pagination.Parse(c)

	reports, total, err := h.reportService.SearchReports(c.Request.Context(), service.ReportSearchRequest{
		Type:        c.Query("type"),
		ClientID:    c.Query("client_id"),
		ProjectID:   c.Query("project_id"),
		CreatedFrom: c.Query("from"),
		CreatedTo:   c.Query("to"),
		Page:        p.Page,
		Limit:       p.Limit,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"reports": reports,
		"total":   total,
		"page":    p.Page,
		"limit":   p.Limit,
	}))
}

// GetReport
// @Summary      Get report
// @Tags         reports
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Report ID"
// @Success      200  {object}  response.Response{data=service.ReportResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/reports/{id} [get]
func (h *ReportHandler) GetReport(c *gin.Context) {
	report, err := h.reportService.GetReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, report))
}

// UpdateReport applies a partial update
// @Summary      Update report
// @Description  Only the fields present are changed. A parameters list replaces the report's parameters.
// @Tags         reports
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                       true  "Report ID"
// @Param        payload  body      service.UpdateReportRequest  true  "Update Report Payload"
// @Success      200      {object}  response.Response{data=service.ReportResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/reports/{id} [put]
func (h *ReportHandler) UpdateReport(c *gin.Context) {
	var req service.UpdateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	report, err := h.reportService.UpdateReport(c.Request.Context(), c.Param("id"), middleware.Actor(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, report))
}

// DeleteReport
// @Summary      Delete report
// @Tags         reports
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Report ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/reports/{id} [delete]
func (h *ReportHandler) DeleteReport(c *gin.Context) {
	if err := h.reportService.DeleteReport(c.Request.Context(), c.Param("id"), middleware.Actor(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]string{"message": "Report deleted successfully"}))
}

// DownloadReport streams the artifact of a COMPLETED report
// @Summary      Download report file
// @Tags         reports
// @Security     BearerAuth
// @Produce      octet-stream
// @Param        id   path      string  true  "Report ID"
// @Success      200  {file}    file
// @Failure      404  {object}  response.Response
// @Router       /api/reports/{id}/download [get]
func (h *ReportHandler) DownloadReport(c *gin.Context) {
	path, err := h.reportService.DownloadPath(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.FileAttachment(path, filepath.Base(path))
}
