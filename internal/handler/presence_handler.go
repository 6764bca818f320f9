package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"corechat/internal/services"
	"corechat/internal/transport/httpdto"
)

type PresenceHandler struct {
	service *services.PresenceService
}

func NewPresenceHandler(service *services.PresenceService) *PresenceHandler {
	return &PresenceHandler{service: service}
}

func (h *PresenceHandler) Get(c *gin.Context) {
	userID, ok := parseUUIDParam(c, "userId")
	if !ok {
		return
	}
	if _, ok := mustActor(c); !ok {
		return
	}

	p, err := h.service.GetPresence(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromPresence(p)))
}
