package domain

import (
	"time"

	"github.com/google/uuid"
)

// Presence statuses
const (
	PresenceOnline  = "online"
	PresenceOffline = "offline"
	PresenceAway    = "away"
)

// UserPresence represents the user_presence table
type UserPresence struct {
	UserID     uuid.UUID
	Status     string
	LastSeenAt time.Time
}

func (UserPresence) TableName() string {
	return "user_presence"
}
