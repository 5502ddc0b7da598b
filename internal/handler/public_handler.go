package handler

import (
	"net/http"
	"path/filepath"

	"finreports/internal/middleware"
	"finreports/internal/service"
	"finreports/pkg/response"

	"github.com/gin-gonic/gin"
)

// PublicHandler serves reports by access token without authentication.
type PublicHandler struct {
	reportService service.ReportService
	limiter       *middleware.IPRateLimiter
}

func NewPublicHandler(reportService service.ReportService, limiter *middleware.IPRateLimiter) *PublicHandler {
	return &PublicHandler{reportService: reportService, limiter: limiter}
}

func (h *PublicHandler) RegisterRoutes(router *gin.RouterGroup) {
	public := router.Group("/api/public/reports")
	public.Use(h.limiter.Middleware())
	{
		public.GET("/:token", h.GetPublicReport)
		public.GET("/:token/download", h.DownloadPublicReport)
	}
}

// GetPublicReport
// @Summary      Get public report
// @Description  Unknown tokens and private reports both answer 404.
// @Tags         public
// @Produce      json
// @Param        token  path      string  true  "Access token"
// @Success      200    {object}  response.Response{data=service.ReportResponse}
// @Failure      404    {object}  response.Response
// @Failure      429    {object}  response.Response
// @Router       /api/public/reports/{token} [get]
func (h *PublicHandler) GetPublicReport(c *gin.Context) {
	report, err := h.reportService.FindPublic(c.Request.Context(), c.Param("token"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, report))
}

// DownloadPublicReport
// @Summary      Download public report file
// @Tags         public
// @Produce      octet-stream
// @Param        token  path      string  true  "Access token"
// @Success      200    {file}    file
// @Failure      404    {object}  response.Response
// @Router       /api/public/reports/{token}/download [get]
func (h *PublicHandler) DownloadPublicReport(c *gin.Context) {
	path, err := h.reportService.PublicDownloadPath(c.Request.Context(), c.Param("token"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.FileAttachment(path, filepath.Base(path))
}
