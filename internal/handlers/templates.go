package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"photo-studio-backend/internal/models"
	"photo-studio-backend/internal/services"
)

type TemplatesHandler struct {
	templates *services.TemplateService
}

func NewTemplatesHandler(templates *services.TemplateService) *TemplatesHandler {
	return &TemplatesHandler{templates: templates}
}

// ListTemplates godoc
// @Summary     List or search templates
// @Tags        templates
// @Produce     json
// @Param       q query string false "Case-insensitive search over name, description, prompt and tags"
// @Success     200 {object} models.TemplateListResponse
// @Router      /templates [get]
func (h *TemplatesHandler) ListTemplates(c *gin.Context) {
	templates, err := h.templates.SearchTemplates(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.TemplateListResponse{Templates: templates})
}

// CreateTemplate godoc
// @Summary     Create template
// @Tags        templates
// @Accept      json
// @Produce     json
// @Param       body body models.CreateTemplateRequest true "Template"
// @Success     201 {object} models.PromptTemplate
// @Failure     400 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /templates [post]
func (h *TemplatesHandler) CreateTemplate(c *gin.Context) {
	var req models.CreateTemplateRequest
	if !bindJSON(c, &req) {
		return
	}
	t, err := h.templates.CreateTemplate(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

// GetTemplate godoc
// @Summary     Get template
// @Description Template with usage statistics and its most recent generations.
// @Tags        templates
// @Produce     json
// @Param       template_id path string true "Template ID"
// @Success     200 {object} models.TemplateDetail
// @Failure     404 {object} models.ErrorResponse
// @Router      /templates/{template_id} [get]
func (h *TemplatesHandler) GetTemplate(c *gin.Context) {
	t, err := h.templates.GetTemplate(c.Request.Context(), c.Param("template_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// UpdateTemplate godoc
// @Summary     Update template
// @Tags        templates
// @Accept      json
// @Produce     json
// @Param       template_id path string true "Template ID"
// @Param       body body models.TemplatePatch true "Patch"
// @Success     200 {object} models.PromptTemplate
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /templates/{template_id} [patch]
func (h *TemplatesHandler) UpdateTemplate(c *gin.Context) {
	var patch models.TemplatePatch
	if !bindJSON(c, &patch) {
		return
	}
	t, err := h.templates.UpdateTemplate(c.Request.Context(), c.Param("template_id"), patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// DeleteTemplate godoc
// @Summary     Delete template
// @Tags        templates
// @Produce     json
// @Param       template_id path string true "Template ID"
// @Success     200 {object} models.MessageResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /templates/{template_id} [delete]
func (h *TemplatesHandler) DeleteTemplate(c *gin.Context) {
	if err := h.templates.DeleteTemplate(c.Request.Context(), c.Param("template_id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{Message: "template deleted"})
}

// ApplyTemplate godoc
// @Summary     Apply template
// @Description Resolves the values against the template and renders the final prompt. Usage is not recorded.
// @Tags        templates
// @Accept      json
// @Produce     json
// @Param       template_id path string true "Template ID"
// @Param       body body models.ApplyTemplateRequest true "Values"
// @Success     200 {object} models.AppliedTemplate
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /templates/{template_id}/apply [post]
func (h *TemplatesHandler) ApplyTemplate(c *gin.Context) {
	var req models.ApplyTemplateRequest
	if !bindJSON(c, &req) {
		return
	}
	applied, err := h.templates.ApplyTemplate(c.Request.Context(), c.Param("template_id"), req.Values)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, applied)
}
