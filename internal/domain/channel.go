package domain

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Channel types
const (
	ChannelTypePublic = "public"
	ChannelTypeGroup  = "group"
	ChannelTypeDirect = "direct"
)

// Membership roles
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Channel represents the channels table
type Channel struct {
	ID            uuid.UUID
	Name          string
	Description   sql.NullString
	Type          string
	TeamID        uuid.NullUUID
	CreatedBy     uuid.UUID
	IsArchived    bool
	LastMessageAt sql.NullTime
	DirectKey     sql.NullString
	CreatedAt     time.Time
	UpdatedAt     time.Time

	// Relationships
	Members []ChannelMember
}

// ChannelMember represents the channel_members table
type ChannelMember struct {
	ChannelID              uuid.UUID
	UserID                 uuid.UUID
	Role                   string
	JoinedAt               time.Time
	LastReadAt             sql.NullTime
	NotificationPreference string
}

func ValidChannelType(t string) bool {
	switch t {
	case ChannelTypePublic, ChannelTypeGroup, ChannelTypeDirect:
		return true
	}
	return false
}

// DirectKey builds the canonical key for a 1:1 channel: the two user ids
// sorted lexicographically and joined with ':'. A unique index on this key
// is what makes get-or-create race-safe.
func DirectKey(a, b uuid.UUID) string {
	x, y := a.String(), b.String()
	if x > y {
		x, y = y, x
	}
	return x + ":" + y
}

// HasMember reports whether userID appears in the loaded member set.
func (c Channel) HasMember(userID uuid.UUID) bool {
	for _, m := range c.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

func (Channel) TableName() string {
	return "channels"
}

func (ChannelMember) TableName() string {
	return "channel_members"
}
