package httpdto

import (
	"time"

	"corechat/internal/domain"
)

type PresenceResponse struct {
	UserID     string    `json:"user_id"`
	Status     string    `json:"status"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

func FromPresence(p domain.UserPresence) PresenceResponse {
	return PresenceResponse{
		UserID:     p.UserID.String(),
		Status:     p.Status,
		LastSeenAt: p.LastSeenAt,
	}
}
