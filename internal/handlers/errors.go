package handlers

import (
	"net/http"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"photo-studio-backend/internal/apperr"
	"photo-studio-backend/internal/models"
)

// statusOf maps an error to its HTTP status.
func statusOf(e *apperr.Error) int {
	switch e.Kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindIntegrity:
		return http.StatusUnprocessableEntity
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindExternal:
		switch e.Code {
		case apperr.QuotaExceeded:
			return http.StatusTooManyRequests
		case apperr.GenerationFailed:
			return http.StatusBadGateway
		default:
			return http.StatusServiceUnavailable
		}
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	e, ok := apperr.As(err)
	if !ok {
		e = apperr.Wrap(err, "internal error")
	}
	status := statusOf(e)
	if status >= http.StatusInternalServerError {
		log.WithError(err).WithFields(log.Fields{
			"code": e.Code,
			"path": c.FullPath(),
		}).Error("request failed")
		_ = c.Error(err)
	}

	body := models.ErrorResponse{
		Code:    string(e.Code),
		Message: e.Message,
		Field:   e.Field,
		Details: e.Details,
	}
	for _, pe := range e.ValidationErrors {
		body.ValidationErrors = append(body.ValidationErrors, models.ParamErrorBody{Parameter: pe.Parameter, Message: pe.Message})
	}
	c.AbortWithStatusJSON(status, body)
}

// bindJSON decodes the request body into req and answers INVALID_REQUEST
// when it is malformed.
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondError(c, apperr.Validation(apperr.InvalidRequest, "", "invalid request body: %v", err))
		return false
	}
	return true
}

func badRequest(c *gin.Context, err error) {
	if e, ok := apperr.As(err); ok {
		respondError(c, e)
		return
	}
	respondError(c, apperr.Validation(apperr.InvalidRequest, "", "%v", err))
}
