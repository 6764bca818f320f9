package websocket

import (
	"context"

	"corechat/internal/events"
)

// RedisBridge feeds events published on the redis bus into the local hub,
// so every instance delivers events for rooms its own clients joined.
type RedisBridge struct {
	subscriber events.Subscriber
	hub        *Hub
}

func NewRedisBridge(subscriber events.Subscriber, hub *Hub) *RedisBridge {
	return &RedisBridge{subscriber: subscriber, hub: hub}
}

func (b *RedisBridge) Run(ctx context.Context) error {
	return b.subscriber.Subscribe(ctx, []string{events.RoomPrefixChannel + "*"}, func(room string, payload []byte) {
		b.hub.Broadcast(room, payload)
	})
}
