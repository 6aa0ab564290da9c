package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"photo-studio-backend/internal/apperr"
	"photo-studio-backend/internal/generation"
	"photo-studio-backend/internal/middleware"
	"photo-studio-backend/internal/models"
)

const maxWebhookBody = 4 << 20

type WebhookHandler struct {
	adapter *generation.Adapter
}

func NewWebhookHandler(adapter *generation.Adapter) *WebhookHandler {
	return &WebhookHandler{adapter: adapter}
}

// HandleWebhook godoc
// @Summary     fal.ai webhook endpoint
// @Description Receives job notifications from fal.ai. Deliveries are idempotent: repeats and notices for unknown jobs are acknowledged and ignored.
// @Tags        webhooks
// @Accept      json
// @Produce     json
// @Param       token query string false "Callback token issued with the job"
// @Param       body body models.WebhookPayload true "Notification"
// @Success     200 {object} map[string]string "status"
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Router      /webhooks/fal [post]
func (h *WebhookHandler) HandleWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		respondError(c, apperr.Validation(apperr.InvalidRequest, "", "failed to read request body: %v", err))
		return
	}

	var payload models.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		respondError(c, apperr.Validation(apperr.InvalidRequest, "", "invalid webhook payload: %v", err))
		return
	}

	log.WithFields(log.Fields{
		"request_id": payload.RequestID,
		"status":     payload.Status,
	}).Debug("webhook received")

	if err := h.adapter.HandleWebhook(c.Request.Context(), payload, c.GetString(middleware.WebhookSubjectKey)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
