package handler

import (
	"errors"
	"net/http"

	"finreports/internal/service"
	"finreports/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// writeError maps service errors onto HTTP status codes.
func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("request failed")
		if !errors.Is(err, service.ErrGenerationFailed) {
			msg = "Internal server error"
		}
	}
	c.JSON(status, response.Error(status, msg))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrFileNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrMissingRequiredParameter),
		errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrTransitionConflict), errors.Is(err, service.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, service.ErrSystemTemplate):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
}
