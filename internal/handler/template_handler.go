package handler

import (
	"net/http"
	"strconv"

	"finreports/internal/middleware"
	"finreports/internal/service"
	"finreports/pkg/pagination"
	"finreports/pkg/response"

	"github.com/gin-gonic/gin"
)

type TemplateHandler struct {
	templateService service.TemplateService
	auth            *middleware.Authenticator
}

func NewTemplateHandler(templateService service.TemplateService, auth *middleware.Authenticator) *TemplateHandler {
	return &TemplateHandler{templateService: templateService, auth: auth}
}

func (h *TemplateHandler) RegisterRoutes(router *gin.RouterGroup) {
	templates := router.Group("/api/templates")
	{
		templates.GET("", h.auth.RequireRole(middleware.ReadRoles...), h.ListTemplates)
		templates.GET("/:id", h.auth.RequireRole(middleware.ReadRoles...), h.GetTemplate)
		templates.POST("", h.auth.RequireRole(middleware.DeleteRoles...), h.CreateTemplate)
		templates.PUT("/:id", h.auth.RequireRole(middleware.DeleteRoles...), h.UpdateTemplate)
		templates.DELETE("/:id", h.auth.RequireRole(middleware.DeleteRoles...), h.DeleteTemplate)
	}
}

// ListTemplates
// @Summary      List templates
// @Tags         templates
// @Security     BearerAuth
// @Produce      json
// @Param        type            query     string  false  "Report type"
// @Param        active          query     bool    false  "Only active templates"
// @Param        exclude_system  query     bool    false  "Hide system templates"
// @Param        page            query     int     false  "Page number (default 1)"
// @Param        limit           query     int     false  "Number of items per page (default 20)"
// @Success      200             {object}  response.Response{data=object}
// @Router       /api/templates [get]
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	p := pagination.Parse(c)
	activeOnly, _ := strconv.ParseBool(c.Query("active"))
	excludeSystem, _ := strconv.ParseBool(c.Query("exclude_system"))

	templates, total, err := h.templateService.ListTemplates(c.Request.Context(), service.TemplateFilter{
		Type:          c.Query("type"),
		ActiveOnly:    activeOnly,
		ExcludeSystem: excludeSystem,
		Page:          p.Page,
		Limit:         p.Limit,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"templates": templates,
		"total":     total,
		"page":      p.Page,
		"limit":     p.Limit,
	}))
}

// GetTemplate
// @Summary      Get template
// @Tags         templates
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Template ID"
// @Success      200  {object}  response.Response{data=service.TemplateResponse}
// @Router       /api/templates/{id} [get]
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	tmpl, err := h.templateService.GetTemplate(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, tmpl))
}

// CreateTemplate
// @Summary      Create template
// @Tags         templates
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateTemplateRequest  true  "Create Template Payload"
// @Success      201      {object}  response.Response{data=service.TemplateResponse}
// @Router       /api/templates [post]
func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	var req service.CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	tmpl, err := h.templateService.CreateTemplate(c.Request.Context(), middleware.Actor(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, tmpl))
}

// UpdateTemplate
// @Summary      Update template
// @Tags         templates
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                         true  "Template ID"
// @Param        payload  body      service.UpdateTemplateRequest  true  "Update Template Payload"
// @Success      200      {object}  response.Response{data=service.TemplateResponse}
// @Router       /api/templates/{id} [put]
func (h *TemplateHandler) UpdateTemplate(c *gin.Context) {
	var req service.UpdateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	tmpl, err := h.templateService.UpdateTemplate(c.Request.Context(), c.Param("id"), middleware.Actor(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, tmpl))
}

// DeleteTemplate removes a user template; system templates are refused
// @Summary      Delete template
// @Tags         templates
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Template ID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /api/templates/{id} [delete]
func (h *TemplateHandler) DeleteTemplate(c *gin.Context) {
	if err := h.templateService.DeleteTemplate(c.Request.Context(), c.Param("id"), middleware.Actor(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]string{"message": "Template deleted successfully"}))
}
