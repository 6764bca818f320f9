package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"corechat/internal/domain"
)

type ChannelRepository interface {
	CreateWithMembers(ctx context.Context, ch *domain.Channel, members []domain.ChannelMember) error
	GetByID(ctx context.Context, id uuid.UUID) (domain.Channel, error)
	GetTeamChannelsForUser(ctx context.Context, teamID, userID uuid.UUID, includeArchived bool) ([]domain.Channel, error)
	Update(ctx context.Context, ch domain.Channel) error
	SetArchived(ctx context.Context, id uuid.UUID, archived bool) error
	DeleteWithMembers(ctx context.Context, id uuid.UUID) error

	AddMembers(ctx context.Context, channelID uuid.UUID, members []domain.ChannelMember) error
	RemoveMember(ctx context.Context, channelID, userID uuid.UUID) error
	GetMember(ctx context.Context, channelID, userID uuid.UUID) (domain.ChannelMember, error)
	GetMembers(ctx context.Context, channelID uuid.UUID) ([]domain.ChannelMember, error)
	IsMember(ctx context.Context, channelID, userID uuid.UUID) (bool, error)
	MarkRead(ctx context.Context, channelID, userID uuid.UUID, at time.Time) error
	GetUserChannelIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)

	FindDirectCandidates(ctx context.Context, userA, userB uuid.UUID) ([]domain.Channel, error)
	CreateDirectChannel(ctx context.Context, ch *domain.Channel, members []domain.ChannelMember) error
}

type MessageRepository interface {
	Create(ctx context.Context, m *domain.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (domain.Message, error)
	UpdateContent(ctx context.Context, id uuid.UUID, content string) error
	SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error

	ListChannelMessages(ctx context.Context, channelID uuid.UUID, before *time.Time, limit int) ([]domain.Message, error)
	ListThread(ctx context.Context, parentID uuid.UUID) ([]domain.Message, error)
	Search(ctx context.Context, in SearchQuery) ([]domain.Message, error)
	LoadChildren(ctx context.Context, msgs []domain.Message) ([]domain.Message, error)

	AddReaction(ctx context.Context, r *domain.MessageReaction) error
	RemoveReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) error
	GetReactions(ctx context.Context, messageID uuid.UUID) ([]domain.MessageReaction, error)
	MarkMentionsRead(ctx context.Context, userID uuid.UUID, messageIDs []uuid.UUID) error
}

// SearchQuery bounds a content search. MemberUserID always scopes results to
// channels that user belongs to; ChannelID narrows to one channel.
type SearchQuery struct {
	MemberUserID uuid.UUID
	Query        string
	ChannelID    *uuid.UUID
	FromDate     *time.Time
	ToDate       *time.Time
	Limit        int
}

type PresenceRepository interface {
	Upsert(ctx context.Context, p domain.UserPresence) error
	Get(ctx context.Context, userID uuid.UUID) (domain.UserPresence, error)
}
