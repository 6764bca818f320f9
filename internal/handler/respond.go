package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"corechat/internal/identity"
	"corechat/internal/transport/httpdto"
	corechat_errors "corechat/pkg/errors"
	"corechat/pkg/logger"
)

// respondError maps service errors onto HTTP statuses. Unknown errors are
// logged and reported as a generic 500 so internals never leak to callers.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, corechat_errors.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse(err.Error(), "INVALID_INPUT"))
	case errors.Is(err, corechat_errors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
	case errors.Is(err, corechat_errors.ErrForbidden):
		c.JSON(http.StatusForbidden, httpdto.NewErrorResponse("forbidden", "FORBIDDEN"))
	case errors.Is(err, corechat_errors.ErrNotFound):
		c.JSON(http.StatusNotFound, httpdto.NewErrorResponse("not found", "NOT_FOUND"))
	case errors.Is(err, corechat_errors.ErrConflict), errors.Is(err, corechat_errors.ErrAlreadyExists):
		c.JSON(http.StatusConflict, httpdto.NewErrorResponse(err.Error(), "CONFLICT"))
	case errors.Is(err, corechat_errors.ErrServiceUnavailable):
		c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse("service unavailable", "SERVICE_UNAVAILABLE"))
	default:
		if log := logger.GetGlobalLogger(); log != nil {
			log.ErrorfCtx(c.Request.Context(), "unhandled error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		}
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse("internal error", "INTERNAL_ERROR"))
	}
}

// mustActor pulls the actor the identity middleware stored. A miss means a
// route was wired without the middleware.
func mustActor(c *gin.Context) (identity.Actor, bool) {
	actor, ok := identity.ActorFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return identity.Actor{}, false
	}
	return actor, true
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid "+name, "INVALID_INPUT"))
		return uuid.Nil, false
	}
	return id, true
}

func parseIntQuery(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid "+name, "INVALID_INPUT"))
		return 0, false
	}
	return v, true
}
