package events

import (
	"context"
	"encoding/json"
	"time"
)

// Event types carried to connected clients. Payloads are full entities, not
// diffs, so a receiver can render without a follow-up fetch.
const (
	EventTypeMessageCreated  = "message-created"
	EventTypeMessageUpdated  = "message-updated"
	EventTypeMessageDeleted  = "message-deleted"
	EventTypeReactionChanged = "reaction-changed"
	EventTypePresenceChanged = "presence-changed"
	EventTypeChannelUpdated  = "channel-updated"
	EventTypeMemberAdded     = "member-added"
	EventTypeMemberRemoved   = "member-removed"
	EventTypeError           = "error"
)

// Room name prefix; one room per channel.
const RoomPrefixChannel = "channel:"

type Envelope struct {
	EventType  string          `json:"event_type"`
	ChannelID  string          `json:"channel_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

func NewEnvelope(eventType, channelID string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventType:  eventType,
		ChannelID:  channelID,
		OccurredAt: time.Now().UTC(),
		Payload:    raw,
	}, nil
}

// Publisher is the gateway-facing fan-out boundary. Services call it strictly
// after their transaction commits. The in-process hub publisher is the
// single-instance default; a redis-backed bus is the multi-instance
// extension point.
type Publisher interface {
	Publish(ctx context.Context, room string, env Envelope) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, patterns []string, handler func(room string, payload []byte)) error
}
