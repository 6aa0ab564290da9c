package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"photo-studio-backend/internal/generation"
	"photo-studio-backend/internal/models"
	"photo-studio-backend/internal/services"
)

type GenerationsHandler struct {
	photos  *services.PhotoService
	adapter *generation.Adapter
}

func NewGenerationsHandler(photos *services.PhotoService, adapter *generation.Adapter) *GenerationsHandler {
	return &GenerationsHandler{
		photos:  photos,
		adapter: adapter,
	}
}

// GeneratePhoto godoc
// @Summary     Start a generation
// @Description Submits a generation job and returns immediately. template_id renders the prompt from a template.
// @Tags        generations
// @Accept      json
// @Produce     json
// @Param       body body models.GeneratePhotoRequest true "Generation"
// @Success     202 {object} models.GeneratePhotoResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     429 {object} models.ErrorResponse
// @Failure     503 {object} models.ErrorResponse
// @Router      /generations [post]
func (h *GenerationsHandler) GeneratePhoto(c *gin.Context) {
	var req models.GeneratePhotoRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.photos.GeneratePhoto(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, resp)
}

// GetStatus godoc
// @Summary     Generation status
// @Description Polls the provider for unfinished jobs. A failure is reported once, after which the job is forgotten.
// @Tags        generations
// @Produce     json
// @Param       job_id path string true "Job ID"
// @Success     200 {object} models.GenerationStatusResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     503 {object} models.ErrorResponse
// @Router      /generations/{job_id} [get]
func (h *GenerationsHandler) GetStatus(c *gin.Context) {
	job, err := h.adapter.Status(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job.Response())
}

// ListModels godoc
// @Summary     List models
// @Tags        models
// @Produce     json
// @Success     200 {object} models.ModelListResponse
// @Router      /models [get]
func (h *GenerationsHandler) ListModels(c *gin.Context) {
	c.JSON(http.StatusOK, models.ModelListResponse{Models: h.adapter.Models()})
}

// GetModel godoc
// @Summary     Model details
// @Description Model ids contain slashes, e.g. /models/fal-ai/flux/dev.
// @Tags        models
// @Produce     json
// @Param       model_id path string true "Model ID"
// @Success     200 {object} models.ModelDetail
// @Failure     404 {object} models.ErrorResponse
// @Router      /models/{model_id} [get]
func (h *GenerationsHandler) GetModel(c *gin.Context) {
	model, err := h.adapter.ModelDetail(strings.TrimPrefix(c.Param("model_id"), "/"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, model)
}
