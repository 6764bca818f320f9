package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"corechat/internal/services"
	"corechat/internal/transport/httpdto"
)

type MessageHandler struct {
	service *services.MessageService
}

func NewMessageHandler(service *services.MessageService) *MessageHandler {
	return &MessageHandler{service: service}
}

func (h *MessageHandler) Create(c *gin.Context) {
	var req httpdto.CreateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_INPUT"))
		return
	}
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	msg, err := h.service.CreateMessage(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.FromMessage(msg)))
}

// ListChannelMessages pages a channel's top-level messages. before is an
// exclusive RFC3339 cursor.
func (h *MessageHandler) ListChannelMessages(c *gin.Context) {
	channelID, ok := parseUUIDParam(c, "channelId")
	if !ok {
		return
	}
	limit, ok := parseIntQuery(c, "limit")
	if !ok {
		return
	}
	var before *time.Time
	if raw := c.Query("before"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid before cursor", "INVALID_INPUT"))
			return
		}
		before = &t
	}
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	msgs, err := h.service.GetChannelMessages(c.Request.Context(), actor, channelID, before, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ListMessagesResponse{
		Messages: httpdto.FromMessageSlice(msgs),
	}))
}

func (h *MessageHandler) Get(c *gin.Context) {
	messageID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	msg, err := h.service.GetMessage(c.Request.Context(), actor, messageID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromMessage(msg)))
}

func (h *MessageHandler) ListThread(c *gin.Context) {
	parentID, ok := parseUUIDParam(c, "threadId")
	if !ok {
		return
	}
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	replies, err := h.service.GetThreadMessages(c.Request.Context(), actor, parentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ListMessagesResponse{
		Messages: httpdto.FromMessageSlice(replies),
	}))
}

func (h *MessageHandler) Search(c *gin.Context) {
	var req httpdto.SearchMessagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_INPUT"))
		return
	}
	limit, ok := parseIntQuery(c, "limit")
	if !ok {
		return
	}
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	msgs, err := h.service.SearchMessages(c.Request.Context(), actor, req, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ListMessagesResponse{
		Messages: httpdto.FromMessageSlice(msgs),
	}))
}

func (h *MessageHandler) Update(c *gin.Context) {
	messageID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req httpdto.UpdateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_INPUT"))
		return
	}
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	msg, err := h.service.UpdateMessage(c.Request.Context(), actor, messageID, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromMessage(msg)))
}

func (h *MessageHandler) Delete(c *gin.Context) {
	messageID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	if err := h.service.DeleteMessage(c.Request.Context(), actor, messageID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"deleted": true}))
}

func (h *MessageHandler) ToggleReaction(c *gin.Context) {
	messageID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req httpdto.ReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_INPUT"))
		return
	}
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	reactions, err := h.service.ToggleReaction(c.Request.Context(), actor, messageID, req.Emoji)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{
		"reactions": httpdto.FromReactionSlice(reactions),
	}))
}

func (h *MessageHandler) MarkMentionsRead(c *gin.Context) {
	var req httpdto.MarkMentionsReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_INPUT"))
		return
	}
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	if err := h.service.MarkMentionsRead(c.Request.Context(), actor, req.MessageIDs); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"read": true}))
}
