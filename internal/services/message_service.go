package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"corechat/internal/domain"
	"corechat/internal/events"
	"corechat/internal/identity"
	"corechat/internal/repository"
	"corechat/internal/transport/httpdto"
	corechat_errors "corechat/pkg/errors"
	"corechat/pkg/logger"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

type MessageService struct {
	messages  repository.MessageRepository
	channels  repository.ChannelRepository
	publisher events.Publisher
	logger    *logger.Logger
}

func NewMessageService(messages repository.MessageRepository, channels repository.ChannelRepository, publisher events.Publisher, log *logger.Logger) *MessageService {
	return &MessageService{
		messages:  messages,
		channels:  channels,
		publisher: publisher,
		logger:    log,
	}
}

// CreateMessage posts a message to a channel the actor belongs to. Mentions
// and attachment metadata are persisted in the same transaction as the
// message; the message-created event goes out only after commit.
func (s *MessageService) CreateMessage(ctx context.Context, actor identity.Actor, in httpdto.CreateMessageRequest) (domain.Message, error) {
	channelID, err := uuid.Parse(in.ChannelID)
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: invalid channel id", corechat_errors.ErrInvalidInput)
	}
	if strings.TrimSpace(in.Content) == "" {
		return domain.Message{}, fmt.Errorf("%w: content is empty", corechat_errors.ErrInvalidInput)
	}

	ch, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return domain.Message{}, err
	}
	if !ch.HasMember(actor.UserID) {
		return domain.Message{}, corechat_errors.ErrForbidden
	}
	if ch.IsArchived {
		return domain.Message{}, fmt.Errorf("%w: channel is archived", corechat_errors.ErrConflict)
	}

	messageType := in.MessageType
	if messageType == "" {
		messageType = domain.MessageTypeText
	}
	switch messageType {
	case domain.MessageTypeText, domain.MessageTypeFile, domain.MessageTypeSystem:
	default:
		return domain.Message{}, fmt.Errorf("%w: unknown message type %q", corechat_errors.ErrInvalidInput, messageType)
	}

	now := time.Now().UTC()
	msg := domain.Message{
		ID:          uuid.New(),
		ChannelID:   channelID,
		SenderID:    actor.UserID,
		SenderName:  actor.UserName,
		Content:     in.Content,
		MessageType: messageType,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if in.ParentMessageID != "" {
		parentID, err := uuid.Parse(in.ParentMessageID)
		if err != nil {
			return domain.Message{}, fmt.Errorf("%w: invalid parent message id", corechat_errors.ErrInvalidInput)
		}
		parent, err := s.messages.GetByID(ctx, parentID)
		if err != nil {
			return domain.Message{}, err
		}
		if parent.ChannelID != channelID {
			return domain.Message{}, fmt.Errorf("%w: parent message belongs to another channel", corechat_errors.ErrInvalidInput)
		}
		// Threads are one level deep.
		if parent.IsReply() {
			return domain.Message{}, fmt.Errorf("%w: cannot reply to a thread reply", corechat_errors.ErrInvalidInput)
		}
		msg.ParentMessageID = uuid.NullUUID{UUID: parentID, Valid: true}
	}

	mentionIDs, err := parseUUIDs(in.MentionUserIDs)
	if err != nil {
		return domain.Message{}, err
	}
	for _, userID := range mentionIDs {
		msg.Mentions = append(msg.Mentions, domain.MessageMention{
			ID:              uuid.New(),
			MessageID:       msg.ID,
			MentionedUserID: userID,
			CreatedAt:       now,
		})
	}
	for _, a := range in.Attachments {
		msg.Attachments = append(msg.Attachments, domain.MessageAttachment{
			ID:        uuid.New(),
			MessageID: msg.ID,
			FileName:  a.FileName,
			FileURL:   a.FileURL,
			FileType:  a.FileType,
			FileSize:  a.FileSize,
			CreatedAt: now,
		})
	}

	if err := s.messages.Create(ctx, &msg); err != nil {
		return domain.Message{}, err
	}
	s.publish(ctx, channelID, events.EventTypeMessageCreated, httpdto.FromMessage(msg))
	return msg, nil
}

// GetChannelMessages pages top-level messages. before is an exclusive
// cursor; pass the oldest created_at from the previous page to go further
// back. Results come back oldest-first within the page.
func (s *MessageService) GetChannelMessages(ctx context.Context, actor identity.Actor, channelID uuid.UUID, before *time.Time, limit int) ([]domain.Message, error) {
	if err := s.requireMember(ctx, channelID, actor.UserID); err != nil {
		return nil, err
	}
	limit = clampLimit(limit)

	msgs, err := s.messages.ListChannelMessages(ctx, channelID, before, limit)
	if err != nil {
		return nil, err
	}
	msgs, err = s.messages.LoadChildren(ctx, msgs)
	if err != nil {
		return nil, err
	}
	// Fetched newest-first to ride the index; flip for display order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// GetMessage returns a single message with reactions, mentions and
// attachments loaded. Deleted messages read as not found.
func (s *MessageService) GetMessage(ctx context.Context, actor identity.Actor, id uuid.UUID) (domain.Message, error) {
	msg, err := s.messages.GetByID(ctx, id)
	if err != nil {
		return domain.Message{}, err
	}
	if msg.IsDeleted {
		return domain.Message{}, corechat_errors.ErrNotFound
	}
	if err := s.requireMember(ctx, msg.ChannelID, actor.UserID); err != nil {
		return domain.Message{}, err
	}
	loaded, err := s.messages.LoadChildren(ctx, []domain.Message{msg})
	if err != nil {
		return domain.Message{}, err
	}
	return loaded[0], nil
}

// GetThreadMessages returns a thread's replies oldest-first.
func (s *MessageService) GetThreadMessages(ctx context.Context, actor identity.Actor, parentID uuid.UUID) ([]domain.Message, error) {
	parent, err := s.messages.GetByID(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, parent.ChannelID, actor.UserID); err != nil {
		return nil, err
	}
	replies, err := s.messages.ListThread(ctx, parentID)
	if err != nil {
		return nil, err
	}
	return s.messages.LoadChildren(ctx, replies)
}

// SearchMessages runs a substring search over channels the actor belongs to.
func (s *MessageService) SearchMessages(ctx context.Context, actor identity.Actor, in httpdto.SearchMessagesRequest, limit int) ([]domain.Message, error) {
	if strings.TrimSpace(in.Query) == "" {
		return nil, fmt.Errorf("%w: query is empty", corechat_errors.ErrInvalidInput)
	}
	q := repository.SearchQuery{
		MemberUserID: actor.UserID,
		Query:        in.Query,
		FromDate:     in.FromDate,
		ToDate:       in.ToDate,
		Limit:        clampLimit(limit),
	}
	if in.ChannelID != "" {
		channelID, err := uuid.Parse(in.ChannelID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid channel id", corechat_errors.ErrInvalidInput)
		}
		q.ChannelID = &channelID
	}
	return s.messages.Search(ctx, q)
}

// UpdateMessage edits a message's content. Only the sender may edit.
func (s *MessageService) UpdateMessage(ctx context.Context, actor identity.Actor, id uuid.UUID, content string) (domain.Message, error) {
	if strings.TrimSpace(content) == "" {
		return domain.Message{}, fmt.Errorf("%w: content is empty", corechat_errors.ErrInvalidInput)
	}
	msg, err := s.messages.GetByID(ctx, id)
	if err != nil {
		return domain.Message{}, err
	}
	if msg.IsDeleted {
		return domain.Message{}, corechat_errors.ErrNotFound
	}
	if msg.SenderID != actor.UserID {
		return domain.Message{}, corechat_errors.ErrForbidden
	}
	if err := s.messages.UpdateContent(ctx, id, content); err != nil {
		return domain.Message{}, err
	}
	msg.Content = content
	msg.IsEdited = true
	msg.UpdatedAt = time.Now().UTC()
	s.publish(ctx, msg.ChannelID, events.EventTypeMessageUpdated, httpdto.FromMessage(msg))
	return msg, nil
}

type messageTombstone struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
}

// DeleteMessage soft-deletes a message. Only the sender may delete. The row
// stays so thread structure and reply counts survive.
func (s *MessageService) DeleteMessage(ctx context.Context, actor identity.Actor, id uuid.UUID) error {
	msg, err := s.messages.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if msg.IsDeleted {
		return corechat_errors.ErrNotFound
	}
	if msg.SenderID != actor.UserID {
		return corechat_errors.ErrForbidden
	}
	if err := s.messages.SoftDelete(ctx, id, time.Now().UTC()); err != nil {
		return err
	}
	s.publish(ctx, msg.ChannelID, events.EventTypeMessageDeleted, messageTombstone{
		ID:        id.String(),
		ChannelID: msg.ChannelID.String(),
	})
	return nil
}

// ToggleReaction adds the actor's reaction, or removes it if it already
// exists. Returns the message's full reaction set after the change.
func (s *MessageService) ToggleReaction(ctx context.Context, actor identity.Actor, messageID uuid.UUID, emoji string) ([]domain.MessageReaction, error) {
	if emoji == "" {
		return nil, fmt.Errorf("%w: emoji is required", corechat_errors.ErrInvalidInput)
	}
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.IsDeleted {
		return nil, corechat_errors.ErrNotFound
	}
	if err := s.requireMember(ctx, msg.ChannelID, actor.UserID); err != nil {
		return nil, err
	}

	reaction := domain.MessageReaction{
		ID:        uuid.New(),
		MessageID: messageID,
		UserID:    actor.UserID,
		Emoji:     emoji,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.messages.AddReaction(ctx, &reaction); err != nil {
		if !errors.Is(err, corechat_errors.ErrAlreadyExists) {
			return nil, err
		}
		if err := s.messages.RemoveReaction(ctx, messageID, actor.UserID, emoji); err != nil {
			return nil, err
		}
	}

	reactions, err := s.messages.GetReactions(ctx, messageID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, msg.ChannelID, events.EventTypeReactionChanged, httpdto.ReactionChange{
		MessageID: messageID.String(),
		ChannelID: msg.ChannelID.String(),
		Reactions: httpdto.FromReactionSlice(reactions),
	})
	return reactions, nil
}

// MarkMentionsRead marks the actor's mentions on the given messages as read.
func (s *MessageService) MarkMentionsRead(ctx context.Context, actor identity.Actor, messageIDs []string) error {
	ids, err := parseUUIDs(messageIDs)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	return s.messages.MarkMentionsRead(ctx, actor.UserID, ids)
}

func (s *MessageService) requireMember(ctx context.Context, channelID, userID uuid.UUID) error {
	ok, err := s.channels.IsMember(ctx, channelID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return corechat_errors.ErrForbidden
	}
	return nil
}

func (s *MessageService) publish(ctx context.Context, channelID uuid.UUID, eventType string, payload any) {
	publishEvent(ctx, s.publisher, s.logger, channelID, eventType, payload)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultPageSize
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}
