package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"corechat/internal/services"
	"corechat/internal/transport/httpdto"
)

type ChannelHandler struct {
	service *services.ChannelService
}

func NewChannelHandler(service *services.ChannelService) *ChannelHandler {
	return &ChannelHandler{service: service}
}

func (h *ChannelHandler) Create(c *gin.Context) {
	var req httpdto.CreateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_INPUT"))
		return
	}
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	ch, err := h.service.CreateChannel(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.FromChannel(ch)))
}

func (h *ChannelHandler) Get(c *gin.Context) {
	channelID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	ch, err := h.service.GetChannel(c.Request.Context(), actor, channelID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromChannel(ch)))
}

func (h *ChannelHandler) ListTeamChannels(c *gin.Context) {
	teamID, ok := parseUUIDParam(c, "teamId")
	if !ok {
		return
	}
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	includeArchived := c.Query("include_archived") == "true"

	channels, err := h.service.GetTeamChannels(c.Request.Context(), actor, teamID, includeArchived)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ListChannelsResponse{
		Channels: httpdto.FromChannelSlice(channels),
	}))
}

func (h *ChannelHandler) Update(c *gin.Context) {
	channelID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req httpdto.UpdateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_INPUT"))
		return
	}
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	ch, err := h.service.UpdateChannel(c.Request.Context(), actor, channelID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromChannel(ch)))
}

func (h *ChannelHandler) Archive(c *gin.Context) {
	h.setArchived(c, true)
}

func (h *ChannelHandler) Unarchive(c *gin.Context) {
	h.setArchived(c, false)
}

func (h *ChannelHandler) setArchived(c *gin.Context, archived bool) {
	channelID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	ch, err := h.service.SetArchived(c.Request.Context(), actor, channelID, archived)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromChannel(ch)))
}

func (h *ChannelHandler) Delete(c *gin.Context) {
	channelID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	if err := h.service.DeleteChannel(c.Request.Context(), actor, channelID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"deleted": true}))
}

func (h *ChannelHandler) AddMembers(c *gin.Context) {
	channelID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req httpdto.AddMembersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_INPUT"))
		return
	}
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	added, err := h.service.AddMembers(c.Request.Context(), actor, channelID, req.UserIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{
		"members": httpdto.FromMemberSlice(added),
	}))
}

func (h *ChannelHandler) RemoveMember(c *gin.Context) {
	channelID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	userID, ok := parseUUIDParam(c, "userId")
	if !ok {
		return
	}
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	if err := h.service.RemoveMember(c.Request.Context(), actor, channelID, userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"removed": true}))
}

func (h *ChannelHandler) GetOrCreateDirect(c *gin.Context) {
	otherUserID, ok := parseUUIDParam(c, "userId")
	if !ok {
		return
	}
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	ch, err := h.service.GetOrCreateDirectChannel(c.Request.Context(), actor, otherUserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromChannel(ch)))
}

func (h *ChannelHandler) MarkRead(c *gin.Context) {
	channelID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	if err := h.service.MarkRead(c.Request.Context(), actor, channelID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"read": true}))
}
