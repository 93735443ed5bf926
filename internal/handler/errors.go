package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"govalert/internal/transport/httpdto"
	govalert_errors "govalert/pkg/errors"
)

// respondError maps the service error taxonomy onto HTTP. Ownership
// mismatches surface as the same 404 as nonexistence.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, govalert_errors.ErrNotFound):
		c.JSON(http.StatusNotFound, httpdto.NewErrorResponse("not found", "NOT_FOUND"))
	case errors.Is(err, govalert_errors.ErrServiceInactive):
		c.JSON(http.StatusForbidden, httpdto.NewErrorResponse(err.Error(), "SERVICE_INACTIVE"))
	case errors.Is(err, govalert_errors.ErrInvalidTransition):
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse(err.Error(), "INVALID_TRANSITION"))
	case errors.Is(err, govalert_errors.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse(err.Error(), "INVALID_REQUEST"))
	case errors.Is(err, govalert_errors.ErrConflict):
		c.JSON(http.StatusConflict, httpdto.NewErrorResponse(err.Error(), "CONFLICT"))
	case errors.Is(err, govalert_errors.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, httpdto.NewErrorResponse("rate limit exceeded", "RATE_LIMITED"))
	default:
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse("internal error", "INTERNAL_ERROR"))
	}
}
