package httpdto

import (
	"time"

	"corechat/internal/domain"
)

type CreateChannelRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Type        string   `json:"type" binding:"required"`
	TeamID      string   `json:"team_id" binding:"required"`
	MemberIDs   []string `json:"member_ids"`
}

type UpdateChannelRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type AddMembersRequest struct {
	UserIDs []string `json:"user_ids" binding:"required"`
}

type ChannelResponse struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Description   string           `json:"description,omitempty"`
	Type          string           `json:"type"`
	TeamID        string           `json:"team_id,omitempty"`
	CreatedBy     string           `json:"created_by"`
	IsArchived    bool             `json:"is_archived"`
	LastMessageAt *time.Time       `json:"last_message_at,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	Members       []MemberResponse `json:"members,omitempty"`
}

type MemberResponse struct {
	ChannelID  string     `json:"channel_id"`
	UserID     string     `json:"user_id"`
	Role       string     `json:"role"`
	JoinedAt   time.Time  `json:"joined_at"`
	LastReadAt *time.Time `json:"last_read_at,omitempty"`
}

type ListChannelsResponse struct {
	Channels []ChannelResponse `json:"channels"`
}

func FromChannel(c domain.Channel) ChannelResponse {
	res := ChannelResponse{
		ID:         c.ID.String(),
		Name:       c.Name,
		Type:       c.Type,
		CreatedBy:  c.CreatedBy.String(),
		IsArchived: c.IsArchived,
		CreatedAt:  c.CreatedAt,
		Members:    FromMemberSlice(c.Members),
	}
	if c.Description.Valid {
		res.Description = c.Description.String
	}
	if c.TeamID.Valid {
		res.TeamID = c.TeamID.UUID.String()
	}
	if c.LastMessageAt.Valid {
		t := c.LastMessageAt.Time
		res.LastMessageAt = &t
	}
	return res
}

func FromChannelSlice(channels []domain.Channel) []ChannelResponse {
	res := make([]ChannelResponse, 0, len(channels))
	for _, c := range channels {
		res = append(res, FromChannel(c))
	}
	return res
}

func FromMember(m domain.ChannelMember) MemberResponse {
	res := MemberResponse{
		ChannelID: m.ChannelID.String(),
		UserID:    m.UserID.String(),
		Role:      m.Role,
		JoinedAt:  m.JoinedAt,
	}
	if m.LastReadAt.Valid {
		t := m.LastReadAt.Time
		res.LastReadAt = &t
	}
	return res
}

func FromMemberSlice(members []domain.ChannelMember) []MemberResponse {
	res := make([]MemberResponse, 0, len(members))
	for _, m := range members {
		res = append(res, FromMember(m))
	}
	return res
}
