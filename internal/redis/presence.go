package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"corechat/internal/domain"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// PresenceCache mirrors user_presence rows in redis for cheap reads. The
// database row stays authoritative; this cache is rebuildable.
type PresenceCache struct {
	client *goredis.Client
	ttl    time.Duration
}

const presenceKeyPrefix = "presence:"

func NewPresenceCache(client *goredis.Client, ttl time.Duration) *PresenceCache {
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	return &PresenceCache{client: client, ttl: ttl}
}

type presenceEntry struct {
	UserID     string    `json:"user_id"`
	Status     string    `json:"status"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

func (p *PresenceCache) Set(ctx context.Context, presence domain.UserPresence) error {
	data, err := json.Marshal(presenceEntry{
		UserID:     presence.UserID.String(),
		Status:     presence.Status,
		LastSeenAt: presence.LastSeenAt.UTC(),
	})
	if err != nil {
		return err
	}

	ttl := p.ttl
	if presence.Status == domain.PresenceOffline {
		// Keep offline entries longer so last-seen reads stay cheap.
		ttl = 24 * time.Hour
	}
	return p.client.Set(ctx, presenceKeyPrefix+presence.UserID.String(), data, ttl).Err()
}

// Get returns the cached presence row. The second return is false on a miss;
// an expired entry is a miss, not an error.
func (p *PresenceCache) Get(ctx context.Context, userID uuid.UUID) (domain.UserPresence, bool, error) {
	data, err := p.client.Get(ctx, presenceKeyPrefix+userID.String()).Bytes()
	if errors.Is(err, goredis.Nil) {
		return domain.UserPresence{}, false, nil
	}
	if err != nil {
		return domain.UserPresence{}, false, err
	}

	var entry presenceEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return domain.UserPresence{}, false, err
	}
	id, err := uuid.Parse(entry.UserID)
	if err != nil {
		return domain.UserPresence{}, false, err
	}
	return domain.UserPresence{
		UserID:     id,
		Status:     entry.Status,
		LastSeenAt: entry.LastSeenAt,
	}, true, nil
}
