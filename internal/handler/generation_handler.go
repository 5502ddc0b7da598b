package handler

import (
	"net/http"

	"finreports/internal/middleware"
	"finreports/internal/service"
	"finreports/pkg/response"

	"github.com/gin-gonic/gin"
)

// GenerationHandler exposes the report lifecycle: generation and the status override.
type GenerationHandler struct {
	lifecycle service.LifecycleService
	auth      *middleware.Authenticator
}

func NewGenerationHandler(lifecycle service.LifecycleService, auth *middleware.Authenticator) *GenerationHandler {
	return &GenerationHandler{lifecycle: lifecycle, auth: auth}
}

func (h *GenerationHandler) RegisterRoutes(router *gin.RouterGroup) {
	reports := router.Group("/api/reports")
	{
		reports.POST("/:id/generate", h.auth.RequireRole(middleware.WriteRoles...), h.GenerateReport)
		reports.PATCH("/:id/status", h.auth.RequireRole(middleware.AdminRoles...), h.UpdateStatus)
	}
	router.POST("/api/report-generations", h.auth.RequireRole(middleware.WriteRoles...), h.CreateAndGenerate)
}

// GenerateReport produces the report file synchronously
// @Summary      Generate report
// @Description  Moves the report through GENERATING to COMPLETED or ERROR. Missing required parameters leave it unchanged.
// @Tags         generation
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Report ID"
// @Success      200  {object}  response.Response{data=service.ReportResponse}
// @Failure      400  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Failure      500  {object}  response.Response
// @Router       /api/reports/{id}/generate [post]
func (h *GenerationHandler) GenerateReport(c *gin.Context) {
	report, err := h.lifecycle.Generate(c.Request.Context(), c.Param("id"), middleware.Actor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, report))
}

// CreateAndGenerate
// @Summary      Create and generate report
// @Tags         generation
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateReportRequest  true  "Create Report Payload"
// @Success      201      {object}  response.Response{data=service.ReportResponse}
// @Router       /api/report-generations [post]
func (h *GenerationHandler) CreateAndGenerate(c *gin.Context) {
	var req service.CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	report, err := h.lifecycle.CreateAndGenerate(c.Request.Context(), middleware.Actor(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, report))
}

// UpdateStatus is the administrative status override
// @Summary      Override report status
// @Tags         generation
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                       true  "Report ID"
// @Param        payload  body      service.StatusUpdateRequest  true  "Status Payload"
// @Success      200      {object}  response.Response{data=service.ReportResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/reports/{id}/status [patch]
func (h *GenerationHandler) UpdateStatus(c *gin.Context) {
	var req service.StatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	report, err := h.lifecycle.UpdateStatus(c.Request.Context(), c.Param("id"), middleware.Actor(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, report))
}
