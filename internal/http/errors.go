package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"inkpost/internal/domain"
	"inkpost/internal/service"
	"inkpost/internal/session"
)

// fail maps service errors to status codes. Unknown errors are logged and
// answered with a generic message.
func (h *Handler) fail(c *gin.Context, err error) {
	status, msg := http.StatusInternalServerError, "internal server error"
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		status, msg = http.StatusUnauthorized, "invalid username or password"
	case errors.Is(err, session.ErrUnauthenticated):
		status, msg = http.StatusUnauthorized, "login required"
	case errors.Is(err, session.ErrForbidden):
		status, msg = http.StatusForbidden, "not permitted"
	case errors.Is(err, service.ErrInvalidRegistrationPassword):
		status, msg = http.StatusForbidden, "invalid registration password"
	case errors.Is(err, service.ErrPostNotFound):
		status, msg = http.StatusNotFound, "post not found"
	case errors.Is(err, service.ErrUserAlreadyExists):
		status, msg = http.StatusConflict, "username already taken"
	case errors.Is(err, service.ErrPostConflict):
		status, msg = http.StatusConflict, "post was modified, reload and retry"
	case errors.Is(err, domain.ErrInvalidInput):
		status, msg = http.StatusBadRequest, err.Error()
	default:
		h.logger.WithField("path", c.Request.URL.Path).Errorf("request failed: %v", err)
	}
	c.JSON(status, gin.H{"error": msg})
}
