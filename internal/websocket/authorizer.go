package websocket

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"corechat/internal/events"
	"corechat/internal/repository"
)

// RoomAuthorizer decides whether a user may join a room. Channel rooms
// require membership; anything else is denied.
type RoomAuthorizer struct {
	channels repository.ChannelRepository
}

func NewRoomAuthorizer(channels repository.ChannelRepository) *RoomAuthorizer {
	return &RoomAuthorizer{channels: channels}
}

func (a *RoomAuthorizer) CanJoin(ctx context.Context, userID uuid.UUID, room string) (bool, error) {
	if !strings.HasPrefix(room, events.RoomPrefixChannel) {
		return false, nil
	}
	channelID, err := uuid.Parse(strings.TrimPrefix(room, events.RoomPrefixChannel))
	if err != nil {
		return false, nil
	}
	return a.channels.IsMember(ctx, channelID, userID)
}
