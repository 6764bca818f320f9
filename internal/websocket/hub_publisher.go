package websocket

import (
	"context"
	"encoding/json"

	"corechat/internal/events"
)

// HubPublisher delivers events to the local hub. It is the single-instance
// events.Publisher; multi-instance deployments publish through redis and
// bridge back in via RedisBridge.
type HubPublisher struct {
	hub *Hub
}

func NewHubPublisher(hub *Hub) *HubPublisher {
	return &HubPublisher{hub: hub}
}

var _ events.Publisher = (*HubPublisher)(nil)

func (p *HubPublisher) Publish(_ context.Context, room string, env events.Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}
	p.hub.Broadcast(room, payload)
	return nil
}
