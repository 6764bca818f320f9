package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"corechat/internal/domain"
	"corechat/internal/events"
	"corechat/internal/identity"
	"corechat/internal/repository"
	"corechat/internal/roster"
	"corechat/internal/transport/httpdto"
	corechat_errors "corechat/pkg/errors"
	"corechat/pkg/logger"
)

type ChannelService struct {
	channels  repository.ChannelRepository
	roster    roster.Resolver
	publisher events.Publisher
	logger    *logger.Logger
}

func NewChannelService(channels repository.ChannelRepository, rosterResolver roster.Resolver, publisher events.Publisher, log *logger.Logger) *ChannelService {
	return &ChannelService{
		channels:  channels,
		roster:    rosterResolver,
		publisher: publisher,
		logger:    log,
	}
}

// CreateChannel creates a public or group channel. Direct channels go through
// GetOrCreateDirectChannel instead. The creator always becomes an admin
// member; other candidate members are validated against the team roster and
// unknown ids are dropped silently.
func (s *ChannelService) CreateChannel(ctx context.Context, actor identity.Actor, in httpdto.CreateChannelRequest) (domain.Channel, error) {
	if in.Type == domain.ChannelTypeDirect {
		return domain.Channel{}, fmt.Errorf("%w: direct channels are created via get-or-create", corechat_errors.ErrInvalidInput)
	}
	if !domain.ValidChannelType(in.Type) {
		return domain.Channel{}, fmt.Errorf("%w: unknown channel type %q", corechat_errors.ErrInvalidInput, in.Type)
	}
	teamID, err := uuid.Parse(in.TeamID)
	if err != nil {
		return domain.Channel{}, fmt.Errorf("%w: invalid team id", corechat_errors.ErrInvalidInput)
	}

	candidates, err := parseUUIDs(in.MemberIDs)
	if err != nil {
		return domain.Channel{}, err
	}
	// The creator is added unconditionally; keep them out of the roster call.
	candidates = excludeID(candidates, actor.UserID)

	now := time.Now().UTC()
	ch := domain.Channel{
		ID:        uuid.New(),
		Name:      in.Name,
		Type:      in.Type,
		TeamID:    uuid.NullUUID{UUID: teamID, Valid: true},
		CreatedBy: actor.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.Description != "" {
		ch.Description.String = in.Description
		ch.Description.Valid = true
	}

	members := []domain.ChannelMember{{
		ChannelID:              ch.ID,
		UserID:                 actor.UserID,
		Role:                   domain.RoleAdmin,
		JoinedAt:               now,
		NotificationPreference: "all",
	}}

	if len(candidates) > 0 {
		resolved, err := s.roster.ResolveMembers(ctx, teamID, candidates)
		if err != nil {
			return domain.Channel{}, fmt.Errorf("resolve channel members: %w", err)
		}
		for _, m := range resolved {
			members = append(members, domain.ChannelMember{
				ChannelID:              ch.ID,
				UserID:                 m.ID,
				Role:                   domain.RoleMember,
				JoinedAt:               now,
				NotificationPreference: "all",
			})
		}
	}

	if err := s.channels.CreateWithMembers(ctx, &ch, members); err != nil {
		return domain.Channel{}, err
	}
	ch.Members = members
	s.logger.InfofCtx(ctx, "channel %s created by %s with %d members", ch.ID, actor.UserID, len(members))
	return ch, nil
}

// GetChannel returns the channel with its member list. Visibility is
// membership-gated.
func (s *ChannelService) GetChannel(ctx context.Context, actor identity.Actor, channelID uuid.UUID) (domain.Channel, error) {
	ch, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return domain.Channel{}, err
	}
	if !ch.HasMember(actor.UserID) {
		return domain.Channel{}, corechat_errors.ErrForbidden
	}
	return ch, nil
}

// GetTeamChannels lists channels in a team the actor belongs to, most
// recently active first.
func (s *ChannelService) GetTeamChannels(ctx context.Context, actor identity.Actor, teamID uuid.UUID, includeArchived bool) ([]domain.Channel, error) {
	return s.channels.GetTeamChannelsForUser(ctx, teamID, actor.UserID, includeArchived)
}

// UpdateChannel renames or re-describes a channel. Admin only.
func (s *ChannelService) UpdateChannel(ctx context.Context, actor identity.Actor, channelID uuid.UUID, in httpdto.UpdateChannelRequest) (domain.Channel, error) {
	if err := s.requireAdmin(ctx, channelID, actor.UserID); err != nil {
		return domain.Channel{}, err
	}
	ch, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return domain.Channel{}, err
	}
	if in.Name != "" {
		ch.Name = in.Name
	}
	if in.Description != "" {
		ch.Description.String = in.Description
		ch.Description.Valid = true
	}
	ch.UpdatedAt = time.Now().UTC()
	if err := s.channels.Update(ctx, ch); err != nil {
		return domain.Channel{}, err
	}
	s.publish(ctx, channelID, events.EventTypeChannelUpdated, httpdto.FromChannel(ch))
	return ch, nil
}

// SetArchived archives or unarchives a channel. Admin only. Archived
// channels stay readable but reject new messages.
func (s *ChannelService) SetArchived(ctx context.Context, actor identity.Actor, channelID uuid.UUID, archived bool) (domain.Channel, error) {
	if err := s.requireAdmin(ctx, channelID, actor.UserID); err != nil {
		return domain.Channel{}, err
	}
	if err := s.channels.SetArchived(ctx, channelID, archived); err != nil {
		return domain.Channel{}, err
	}
	ch, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return domain.Channel{}, err
	}
	s.publish(ctx, channelID, events.EventTypeChannelUpdated, httpdto.FromChannel(ch))
	return ch, nil
}

type channelTombstone struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

// DeleteChannel removes a channel and everything under it: messages,
// reactions, mentions, attachments, memberships. Admin only.
func (s *ChannelService) DeleteChannel(ctx context.Context, actor identity.Actor, channelID uuid.UUID) error {
	if err := s.requireAdmin(ctx, channelID, actor.UserID); err != nil {
		return err
	}
	if err := s.channels.DeleteWithMembers(ctx, channelID); err != nil {
		return err
	}
	s.logger.InfofCtx(ctx, "channel %s deleted by %s", channelID, actor.UserID)
	s.publish(ctx, channelID, events.EventTypeChannelUpdated, channelTombstone{ID: channelID.String(), Deleted: true})
	return nil
}

// AddMembers adds roster-validated users to a channel. Admin only; direct
// channels never grow. Already-present users are skipped, so retries are
// harmless.
func (s *ChannelService) AddMembers(ctx context.Context, actor identity.Actor, channelID uuid.UUID, userIDs []string) ([]domain.ChannelMember, error) {
	if err := s.requireAdmin(ctx, channelID, actor.UserID); err != nil {
		return nil, err
	}
	ch, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if ch.Type == domain.ChannelTypeDirect {
		return nil, fmt.Errorf("%w: direct channels have a fixed membership", corechat_errors.ErrInvalidInput)
	}
	if !ch.TeamID.Valid {
		return nil, fmt.Errorf("%w: channel has no team", corechat_errors.ErrInvalidInput)
	}

	candidates, err := parseUUIDs(userIDs)
	if err != nil {
		return nil, err
	}
	resolved, err := s.roster.ResolveMembers(ctx, ch.TeamID.UUID, candidates)
	if err != nil {
		return nil, fmt.Errorf("resolve channel members: %w", err)
	}

	now := time.Now().UTC()
	var added []domain.ChannelMember
	for _, m := range resolved {
		if ch.HasMember(m.ID) {
			continue
		}
		added = append(added, domain.ChannelMember{
			ChannelID:              channelID,
			UserID:                 m.ID,
			Role:                   domain.RoleMember,
			JoinedAt:               now,
			NotificationPreference: "all",
		})
	}
	if len(added) == 0 {
		return nil, nil
	}
	if err := s.channels.AddMembers(ctx, channelID, added); err != nil {
		return nil, err
	}
	for _, m := range added {
		s.publish(ctx, channelID, events.EventTypeMemberAdded, httpdto.FromMember(m))
	}
	return added, nil
}

// RemoveMember removes a user from a channel. Admins remove anyone; a member
// may always remove themself.
func (s *ChannelService) RemoveMember(ctx context.Context, actor identity.Actor, channelID, userID uuid.UUID) error {
	if actor.UserID != userID {
		if err := s.requireAdmin(ctx, channelID, actor.UserID); err != nil {
			return err
		}
	}
	member, err := s.channels.GetMember(ctx, channelID, userID)
	if err != nil {
		return err
	}
	if err := s.channels.RemoveMember(ctx, channelID, userID); err != nil {
		return err
	}
	s.publish(ctx, channelID, events.EventTypeMemberRemoved, httpdto.FromMember(member))
	return nil
}

// GetOrCreateDirectChannel returns the 1:1 channel between the actor and
// otherUserID, creating it on first contact. Existing candidates are checked
// first; the unique direct-key index settles concurrent creates, in which
// case the loser re-reads and returns the winner's channel.
func (s *ChannelService) GetOrCreateDirectChannel(ctx context.Context, actor identity.Actor, otherUserID uuid.UUID) (domain.Channel, error) {
	if actor.UserID == otherUserID {
		return domain.Channel{}, fmt.Errorf("%w: cannot open a direct channel with yourself", corechat_errors.ErrInvalidInput)
	}

	if ch, ok, err := s.findDirect(ctx, actor.UserID, otherUserID); err != nil {
		return domain.Channel{}, err
	} else if ok {
		return ch, nil
	}

	now := time.Now().UTC()
	ch := domain.Channel{
		ID:        uuid.New(),
		Name:      "",
		Type:      domain.ChannelTypeDirect,
		CreatedBy: actor.UserID,
		DirectKey: toNullString(domain.DirectKey(actor.UserID, otherUserID)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	members := []domain.ChannelMember{
		{ChannelID: ch.ID, UserID: actor.UserID, Role: domain.RoleAdmin, JoinedAt: now, NotificationPreference: "all"},
		{ChannelID: ch.ID, UserID: otherUserID, Role: domain.RoleMember, JoinedAt: now, NotificationPreference: "all"},
	}

	err := s.channels.CreateDirectChannel(ctx, &ch, members)
	if err == nil {
		ch.Members = members
		return ch, nil
	}
	if errors.Is(err, corechat_errors.ErrAlreadyExists) {
		// Lost the race; the other side just created it.
		if existing, ok, ferr := s.findDirect(ctx, actor.UserID, otherUserID); ferr == nil && ok {
			return existing, nil
		}
	}
	return domain.Channel{}, err
}

func (s *ChannelService) findDirect(ctx context.Context, a, b uuid.UUID) (domain.Channel, bool, error) {
	candidates, err := s.channels.FindDirectCandidates(ctx, a, b)
	if err != nil {
		return domain.Channel{}, false, err
	}
	for _, c := range candidates {
		if c.Type != domain.ChannelTypeDirect || len(c.Members) != 2 {
			continue
		}
		if c.HasMember(a) && c.HasMember(b) {
			return c, true, nil
		}
	}
	return domain.Channel{}, false, nil
}

// MarkRead records that the actor has seen the channel up to now.
func (s *ChannelService) MarkRead(ctx context.Context, actor identity.Actor, channelID uuid.UUID) error {
	ok, err := s.channels.IsMember(ctx, channelID, actor.UserID)
	if err != nil {
		return err
	}
	if !ok {
		return corechat_errors.ErrForbidden
	}
	return s.channels.MarkRead(ctx, channelID, actor.UserID, time.Now().UTC())
}

func (s *ChannelService) requireAdmin(ctx context.Context, channelID, userID uuid.UUID) error {
	member, err := s.channels.GetMember(ctx, channelID, userID)
	if err != nil {
		if errors.Is(err, corechat_errors.ErrNotFound) {
			return corechat_errors.ErrForbidden
		}
		return err
	}
	if member.Role != domain.RoleAdmin {
		return corechat_errors.ErrForbidden
	}
	return nil
}

func (s *ChannelService) publish(ctx context.Context, channelID uuid.UUID, eventType string, payload any) {
	publishEvent(ctx, s.publisher, s.logger, channelID, eventType, payload)
}
