package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"corechat/internal/domain"
	"corechat/internal/events"
	"corechat/internal/repository"
	"corechat/internal/services"
	"corechat/internal/transport/httpdto"
	corechat_errors "corechat/pkg/errors"
)

func memberChannel(channelID uuid.UUID, userIDs ...uuid.UUID) domain.Channel {
	ch := domain.Channel{ID: channelID, Type: domain.ChannelTypeGroup}
	for _, id := range userIDs {
		ch.Members = append(ch.Members, domain.ChannelMember{ChannelID: channelID, UserID: id})
	}
	return ch
}

func TestCreateMessage(t *testing.T) {
	actor := testActor()
	channelID := uuid.New()

	t.Run("NonMemberForbidden", func(t *testing.T) {
		messageRepo := new(MockMessageRepo)
		channelRepo := new(MockChannelRepo)
		svc := services.NewMessageService(messageRepo, channelRepo, &recordingPublisher{}, testLogger())

		channelRepo.On("GetByID", mock.Anything, channelID).
			Return(memberChannel(channelID, uuid.New()), nil)

		_, err := svc.CreateMessage(context.Background(), actor, httpdto.CreateMessageRequest{
			ChannelID: channelID.String(),
			Content:   "hello",
		})
		assert.ErrorIs(t, err, corechat_errors.ErrForbidden)
		messageRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("ArchivedChannelRejected", func(t *testing.T) {
		messageRepo := new(MockMessageRepo)
		channelRepo := new(MockChannelRepo)
		svc := services.NewMessageService(messageRepo, channelRepo, &recordingPublisher{}, testLogger())

		ch := memberChannel(channelID, actor.UserID)
		ch.IsArchived = true
		channelRepo.On("GetByID", mock.Anything, channelID).Return(ch, nil)

		_, err := svc.CreateMessage(context.Background(), actor, httpdto.CreateMessageRequest{
			ChannelID: channelID.String(),
			Content:   "hello",
		})
		assert.ErrorIs(t, err, corechat_errors.ErrConflict)
	})

	t.Run("ReplyToReplyRejected", func(t *testing.T) {
		messageRepo := new(MockMessageRepo)
		channelRepo := new(MockChannelRepo)
		svc := services.NewMessageService(messageRepo, channelRepo, &recordingPublisher{}, testLogger())

		channelRepo.On("GetByID", mock.Anything, channelID).
			Return(memberChannel(channelID, actor.UserID), nil)

		parentID := uuid.New()
		messageRepo.On("GetByID", mock.Anything, parentID).
			Return(domain.Message{
				ID:              parentID,
				ChannelID:       channelID,
				ParentMessageID: uuid.NullUUID{UUID: uuid.New(), Valid: true},
			}, nil)

		_, err := svc.CreateMessage(context.Background(), actor, httpdto.CreateMessageRequest{
			ChannelID:       channelID.String(),
			Content:         "nested",
			ParentMessageID: parentID.String(),
		})
		assert.ErrorIs(t, err, corechat_errors.ErrInvalidInput)
	})

	t.Run("PublishesAfterCreate", func(t *testing.T) {
		messageRepo := new(MockMessageRepo)
		channelRepo := new(MockChannelRepo)
		pub := &recordingPublisher{}
		svc := services.NewMessageService(messageRepo, channelRepo, pub, testLogger())

		channelRepo.On("GetByID", mock.Anything, channelID).
			Return(memberChannel(channelID, actor.UserID), nil)
		mentioned := uuid.New()
		messageRepo.On("Create", mock.Anything, mock.MatchedBy(func(m *domain.Message) bool {
			return m.ChannelID == channelID &&
				m.SenderID == actor.UserID &&
				m.MessageType == domain.MessageTypeText &&
				len(m.Mentions) == 1 && m.Mentions[0].MentionedUserID == mentioned
		})).Return(nil)

		msg, err := svc.CreateMessage(context.Background(), actor, httpdto.CreateMessageRequest{
			ChannelID:      channelID.String(),
			Content:        "hello @bob",
			MentionUserIDs: []string{mentioned.String()},
		})
		assert.NoError(t, err)
		assert.Equal(t, actor.UserName, msg.SenderName)

		published := pub.published()
		assert.Len(t, published, 1)
		assert.Equal(t, events.EventTypeMessageCreated, published[0].EventType)
		assert.Equal(t, channelID.String(), published[0].ChannelID)
	})
}

func TestGetChannelMessages(t *testing.T) {
	actor := testActor()
	channelID := uuid.New()

	t.Run("ReversedToOldestFirst", func(t *testing.T) {
		messageRepo := new(MockMessageRepo)
		channelRepo := new(MockChannelRepo)
		svc := services.NewMessageService(messageRepo, channelRepo, &recordingPublisher{}, testLogger())

		channelRepo.On("IsMember", mock.Anything, channelID, actor.UserID).Return(true, nil)

		base := time.Now().UTC()
		newest := domain.Message{ID: uuid.New(), CreatedAt: base}
		middle := domain.Message{ID: uuid.New(), CreatedAt: base.Add(-time.Minute)}
		oldest := domain.Message{ID: uuid.New(), CreatedAt: base.Add(-2 * time.Minute)}

		messageRepo.On("ListChannelMessages", mock.Anything, channelID, (*time.Time)(nil), 50).
			Return([]domain.Message{newest, middle, oldest}, nil)
		messageRepo.On("LoadChildren", mock.Anything, mock.Anything).
			Return([]domain.Message{newest, middle, oldest}, nil)

		msgs, err := svc.GetChannelMessages(context.Background(), actor, channelID, nil, 0)
		assert.NoError(t, err)
		assert.Equal(t, []uuid.UUID{oldest.ID, middle.ID, newest.ID}, []uuid.UUID{msgs[0].ID, msgs[1].ID, msgs[2].ID})
	})

	t.Run("CursorForwardedToStore", func(t *testing.T) {
		messageRepo := new(MockMessageRepo)
		channelRepo := new(MockChannelRepo)
		svc := services.NewMessageService(messageRepo, channelRepo, &recordingPublisher{}, testLogger())

		channelRepo.On("IsMember", mock.Anything, channelID, actor.UserID).Return(true, nil)

		// The store treats the cursor as an exclusive upper bound; the
		// service must hand it over untouched.
		cursor := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
		older := domain.Message{ID: uuid.New(), CreatedAt: cursor.Add(-time.Second)}
		messageRepo.On("ListChannelMessages", mock.Anything, channelID, mock.MatchedBy(func(before *time.Time) bool {
			return before != nil && before.Equal(cursor)
		}), 50).Return([]domain.Message{older}, nil)
		messageRepo.On("LoadChildren", mock.Anything, mock.Anything).
			Return([]domain.Message{older}, nil)

		msgs, err := svc.GetChannelMessages(context.Background(), actor, channelID, &cursor, 0)
		assert.NoError(t, err)
		assert.Len(t, msgs, 1)
		assert.Equal(t, older.ID, msgs[0].ID)
		messageRepo.AssertExpectations(t)
	})

	t.Run("LimitClamped", func(t *testing.T) {
		messageRepo := new(MockMessageRepo)
		channelRepo := new(MockChannelRepo)
		svc := services.NewMessageService(messageRepo, channelRepo, &recordingPublisher{}, testLogger())

		channelRepo.On("IsMember", mock.Anything, channelID, actor.UserID).Return(true, nil)
		messageRepo.On("ListChannelMessages", mock.Anything, channelID, (*time.Time)(nil), 100).
			Return([]domain.Message{}, nil)
		messageRepo.On("LoadChildren", mock.Anything, mock.Anything).
			Return([]domain.Message{}, nil)

		_, err := svc.GetChannelMessages(context.Background(), actor, channelID, nil, 5000)
		assert.NoError(t, err)
		messageRepo.AssertExpectations(t)
	})

	t.Run("NonMemberForbidden", func(t *testing.T) {
		messageRepo := new(MockMessageRepo)
		channelRepo := new(MockChannelRepo)
		svc := services.NewMessageService(messageRepo, channelRepo, &recordingPublisher{}, testLogger())

		channelRepo.On("IsMember", mock.Anything, channelID, actor.UserID).Return(false, nil)

		_, err := svc.GetChannelMessages(context.Background(), actor, channelID, nil, 0)
		assert.ErrorIs(t, err, corechat_errors.ErrForbidden)
	})
}

func TestUpdateMessage(t *testing.T) {
	actor := testActor()
	messageID := uuid.New()

	t.Run("SenderOnly", func(t *testing.T) {
		messageRepo := new(MockMessageRepo)
		svc := services.NewMessageService(messageRepo, new(MockChannelRepo), &recordingPublisher{}, testLogger())

		messageRepo.On("GetByID", mock.Anything, messageID).
			Return(domain.Message{ID: messageID, SenderID: uuid.New()}, nil)

		_, err := svc.UpdateMessage(context.Background(), actor, messageID, "edited")
		assert.ErrorIs(t, err, corechat_errors.ErrForbidden)
		messageRepo.AssertNotCalled(t, "UpdateContent", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("DeletedReadsAsNotFound", func(t *testing.T) {
		messageRepo := new(MockMessageRepo)
		svc := services.NewMessageService(messageRepo, new(MockChannelRepo), &recordingPublisher{}, testLogger())

		messageRepo.On("GetByID", mock.Anything, messageID).
			Return(domain.Message{ID: messageID, SenderID: actor.UserID, IsDeleted: true}, nil)

		_, err := svc.UpdateMessage(context.Background(), actor, messageID, "edited")
		assert.ErrorIs(t, err, corechat_errors.ErrNotFound)
	})

	t.Run("MarksEditedAndPublishes", func(t *testing.T) {
		messageRepo := new(MockMessageRepo)
		pub := &recordingPublisher{}
		svc := services.NewMessageService(messageRepo, new(MockChannelRepo), pub, testLogger())

		channelID := uuid.New()
		messageRepo.On("GetByID", mock.Anything, messageID).
			Return(domain.Message{ID: messageID, ChannelID: channelID, SenderID: actor.UserID, Content: "old"}, nil)
		messageRepo.On("UpdateContent", mock.Anything, messageID, "new").Return(nil)

		msg, err := svc.UpdateMessage(context.Background(), actor, messageID, "new")
		assert.NoError(t, err)
		assert.True(t, msg.IsEdited)
		assert.Equal(t, "new", msg.Content)

		published := pub.published()
		assert.Len(t, published, 1)
		assert.Equal(t, events.EventTypeMessageUpdated, published[0].EventType)
	})
}

func TestToggleReaction(t *testing.T) {
	actor := testActor()
	messageID := uuid.New()
	channelID := uuid.New()

	t.Run("AddPublishesFullSet", func(t *testing.T) {
		messageRepo := new(MockMessageRepo)
		channelRepo := new(MockChannelRepo)
		pub := &recordingPublisher{}
		svc := services.NewMessageService(messageRepo, channelRepo, pub, testLogger())

		messageRepo.On("GetByID", mock.Anything, messageID).
			Return(domain.Message{ID: messageID, ChannelID: channelID}, nil)
		channelRepo.On("IsMember", mock.Anything, channelID, actor.UserID).Return(true, nil)
		messageRepo.On("AddReaction", mock.Anything, mock.MatchedBy(func(r *domain.MessageReaction) bool {
			return r.MessageID == messageID && r.UserID == actor.UserID && r.Emoji == "👍"
		})).Return(nil)
		messageRepo.On("GetReactions", mock.Anything, messageID).
			Return([]domain.MessageReaction{{MessageID: messageID, UserID: actor.UserID, Emoji: "👍"}}, nil)

		reactions, err := svc.ToggleReaction(context.Background(), actor, messageID, "👍")
		assert.NoError(t, err)
		assert.Len(t, reactions, 1)

		published := pub.published()
		assert.Len(t, published, 1)
		assert.Equal(t, events.EventTypeReactionChanged, published[0].EventType)
	})

	t.Run("DuplicateTogglesOff", func(t *testing.T) {
		messageRepo := new(MockMessageRepo)
		channelRepo := new(MockChannelRepo)
		svc := services.NewMessageService(messageRepo, channelRepo, &recordingPublisher{}, testLogger())

		messageRepo.On("GetByID", mock.Anything, messageID).
			Return(domain.Message{ID: messageID, ChannelID: channelID}, nil)
		channelRepo.On("IsMember", mock.Anything, channelID, actor.UserID).Return(true, nil)
		messageRepo.On("AddReaction", mock.Anything, mock.Anything).Return(corechat_errors.ErrAlreadyExists)
		messageRepo.On("RemoveReaction", mock.Anything, messageID, actor.UserID, "👍").Return(nil)
		messageRepo.On("GetReactions", mock.Anything, messageID).Return([]domain.MessageReaction{}, nil)

		reactions, err := svc.ToggleReaction(context.Background(), actor, messageID, "👍")
		assert.NoError(t, err)
		assert.Empty(t, reactions)
		messageRepo.AssertExpectations(t)
	})
}

func TestSearchMessages(t *testing.T) {
	actor := testActor()

	t.Run("ScopedToActor", func(t *testing.T) {
		messageRepo := new(MockMessageRepo)
		svc := services.NewMessageService(messageRepo, new(MockChannelRepo), &recordingPublisher{}, testLogger())

		messageRepo.On("Search", mock.Anything, mock.MatchedBy(func(q repository.SearchQuery) bool {
			return q.MemberUserID == actor.UserID && q.Query == "deploy" && q.Limit == 50
		})).Return([]domain.Message{}, nil)

		_, err := svc.SearchMessages(context.Background(), actor, httpdto.SearchMessagesRequest{Query: "deploy"}, 0)
		assert.NoError(t, err)
		messageRepo.AssertExpectations(t)
	})

	t.Run("EmptyQueryRejected", func(t *testing.T) {
		svc := services.NewMessageService(new(MockMessageRepo), new(MockChannelRepo), &recordingPublisher{}, testLogger())

		_, err := svc.SearchMessages(context.Background(), actor, httpdto.SearchMessagesRequest{Query: "   "}, 0)
		assert.ErrorIs(t, err, corechat_errors.ErrInvalidInput)
	})
}

func TestDeleteMessage(t *testing.T) {
	actor := testActor()
	messageID := uuid.New()
	channelID := uuid.New()

	t.Run("SoftDeletesAndPublishesTombstone", func(t *testing.T) {
		messageRepo := new(MockMessageRepo)
		pub := &recordingPublisher{}
		svc := services.NewMessageService(messageRepo, new(MockChannelRepo), pub, testLogger())

		messageRepo.On("GetByID", mock.Anything, messageID).
			Return(domain.Message{ID: messageID, ChannelID: channelID, SenderID: actor.UserID}, nil)
		messageRepo.On("SoftDelete", mock.Anything, messageID, mock.Anything).Return(nil)

		err := svc.DeleteMessage(context.Background(), actor, messageID)
		assert.NoError(t, err)

		published := pub.published()
		assert.Len(t, published, 1)
		assert.Equal(t, events.EventTypeMessageDeleted, published[0].EventType)
	})

	t.Run("NonSenderForbidden", func(t *testing.T) {
		messageRepo := new(MockMessageRepo)
		svc := services.NewMessageService(messageRepo, new(MockChannelRepo), &recordingPublisher{}, testLogger())

		messageRepo.On("GetByID", mock.Anything, messageID).
			Return(domain.Message{ID: messageID, ChannelID: channelID, SenderID: uuid.New()}, nil)

		err := svc.DeleteMessage(context.Background(), actor, messageID)
		assert.ErrorIs(t, err, corechat_errors.ErrForbidden)
		messageRepo.AssertNotCalled(t, "SoftDelete", mock.Anything, mock.Anything, mock.Anything)
	})
}
