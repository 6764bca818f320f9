package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"corechat/internal/events"
	"corechat/internal/identity"
	"corechat/internal/services"
	"corechat/internal/transport/httpdto"
	corechat_errors "corechat/pkg/errors"
	"corechat/pkg/logger"
)

// Client-to-server frame actions.
const (
	ActionJoinRoom  = "join-room"
	ActionLeaveRoom = "leave-room"
)

type clientFrame struct {
	Action    string `json:"action"`
	ChannelID string `json:"channel_id"`
}

type errorPayload struct {
	Message   string `json:"message"`
	ChannelID string `json:"channel_id,omitempty"`
}

type Handler struct {
	resolver   identity.Resolver
	hub        *Hub
	authorizer *RoomAuthorizer
	presence   *services.PresenceService
	logger     *logger.Logger
}

func NewHandler(resolver identity.Resolver, hub *Hub, authorizer *RoomAuthorizer, presence *services.PresenceService, log *logger.Logger) *Handler {
	return &Handler{
		resolver:   resolver,
		hub:        hub,
		authorizer: authorizer,
		presence:   presence,
		logger:     log,
	}
}

// Connect upgrades the request and runs the connection until the client
// goes away. Identity is resolved before the upgrade so an unauthenticated
// caller gets a plain HTTP error, not a dead socket.
func (h *Handler) Connect(c *gin.Context) {
	actor, err := h.resolver.Resolve(c.Request)
	if err != nil {
		status := http.StatusUnauthorized
		code := "UNAUTHORIZED"
		if errors.Is(err, corechat_errors.ErrInvalidInput) {
			status = http.StatusBadRequest
			code = "INVALID_INPUT"
		}
		c.JSON(status, httpdto.NewErrorResponse(err.Error(), code))
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := NewClient(conn, actor.UserID)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.hub.Register(client)
	go client.WriteLoop(ctx)

	if err := h.presence.SetOnline(ctx, actor.UserID); err != nil {
		h.logger.Errorf("set %s online: %v", actor.UserID, err)
	}

	h.readLoop(ctx, client)

	h.hub.Unregister(client)
	if err := h.presence.SetOffline(context.Background(), actor.UserID); err != nil {
		h.logger.Errorf("set %s offline: %v", actor.UserID, err)
	}
}

func (h *Handler) readLoop(ctx context.Context, client *Client) {
	conn := client.Conn
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		var frame clientFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			h.sendError(client, "", "malformed frame")
			continue
		}

		switch frame.Action {
		case ActionJoinRoom:
			h.handleJoin(ctx, client, frame.ChannelID)
		case ActionLeaveRoom:
			// Leaving a room never joined is a no-op.
			h.hub.Leave(client, events.RoomPrefixChannel+frame.ChannelID)
		default:
			h.sendError(client, frame.ChannelID, "unknown action")
		}
	}
}

func (h *Handler) handleJoin(ctx context.Context, client *Client, channelID string) {
	room := events.RoomPrefixChannel + channelID
	ok, err := h.authorizer.CanJoin(ctx, client.UserID, room)
	if err != nil {
		h.logger.Errorf("authorize join of %s by %s: %v", room, client.UserID, err)
		h.sendError(client, channelID, "join failed")
		return
	}
	if !ok {
		h.sendError(client, channelID, "not a member of this channel")
		return
	}
	h.hub.Join(client, room)
}

// sendError delivers an error event to one client without touching any room.
func (h *Handler) sendError(client *Client, channelID, message string) {
	env, err := events.NewEnvelope(events.EventTypeError, channelID, errorPayload{
		Message:   message,
		ChannelID: channelID,
	})
	if err != nil {
		return
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return
	}
	if !client.TrySend(payload) {
		client.Close()
		h.hub.Unregister(client)
	}
}
