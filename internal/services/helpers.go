package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"corechat/internal/events"
	corechat_errors "corechat/pkg/errors"
	"corechat/pkg/logger"
)

// publishEvent fans an event out to a channel room. Publish failures are
// logged and swallowed; the write already committed and must not be undone
// by a fan-out hiccup.
func publishEvent(ctx context.Context, p events.Publisher, log *logger.Logger, channelID uuid.UUID, eventType string, payload any) {
	env, err := events.NewEnvelope(eventType, channelID.String(), payload)
	if err != nil {
		log.ErrorfCtx(ctx, "marshal %s event for channel %s: %v", eventType, channelID, err)
		return
	}
	if err := p.Publish(ctx, events.RoomPrefixChannel+channelID.String(), env); err != nil {
		log.ErrorfCtx(ctx, "publish %s event for channel %s: %v", eventType, channelID, err)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, corechat_errors.ErrNotFound)
}

func parseUUIDs(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	seen := make(map[uuid.UUID]struct{}, len(raw))
	for _, r := range raw {
		id, err := uuid.Parse(r)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid id %q", corechat_errors.ErrInvalidInput, r)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

func excludeID(ids []uuid.UUID, drop uuid.UUID) []uuid.UUID {
	out := ids[:0]
	for _, id := range ids {
		if id != drop {
			out = append(out, id)
		}
	}
	return out
}

func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
