package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"corechat/internal/identity"
	"corechat/internal/transport/httpdto"
	corechat_errors "corechat/pkg/errors"
	"corechat/pkg/logger"
)

// IdentityMiddleware resolves the caller's identity and stores the actor in
// the request context. Resolution is fail-closed: a request the resolver
// cannot vouch for never reaches a handler. Header-mode failures are the
// caller's malformed input (400); token-mode failures are bad credentials
// (401).
func IdentityMiddleware(resolver identity.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, err := resolver.Resolve(c.Request)
		if err != nil {
			if errors.Is(err, corechat_errors.ErrInvalidInput) {
				c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse(err.Error(), "INVALID_INPUT"))
			} else {
				c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
			}
			c.Abort()
			return
		}

		ctx := identity.WithActor(c.Request.Context(), actor)
		ctx = context.WithValue(ctx, logger.UserIdKey, actor.UserID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
