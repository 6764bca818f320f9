package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"corechat/internal/identity"
	"corechat/internal/middleware"
)

func newTestEngine(resolver identity.Resolver) (*gin.Engine, *identity.Actor) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()

	var seen identity.Actor
	engine.GET("/protected", middleware.IdentityMiddleware(resolver), func(c *gin.Context) {
		actor, _ := identity.ActorFromContext(c.Request.Context())
		seen = actor
		c.Status(http.StatusOK)
	})
	return engine, &seen
}

func TestIdentityMiddleware(t *testing.T) {
	resolver := identity.NewHeaderResolver()
	userID := uuid.New()
	orgID := uuid.New()

	t.Run("StoresActorInContext", func(t *testing.T) {
		engine, seen := newTestEngine(resolver)

		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set(identity.HeaderUserID, userID.String())
		req.Header.Set(identity.HeaderOrganizationID, orgID.String())
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, userID, seen.UserID)
	})

	t.Run("MissingHeadersRejectedWith400", func(t *testing.T) {
		engine, _ := newTestEngine(resolver)

		req := httptest.NewRequest("GET", "/protected", nil)
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("TokenModeRejectsWith401", func(t *testing.T) {
		engine, _ := newTestEngine(identity.NewTokenResolver("secret"))

		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
