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
	"corechat/internal/services"
	corechat_errors "corechat/pkg/errors"
)

func TestSetStatus(t *testing.T) {
	userID := uuid.New()

	t.Run("BroadcastsToAllChannels", func(t *testing.T) {
		presenceRepo := new(MockPresenceRepo)
		channelRepo := new(MockChannelRepo)
		pub := &recordingPublisher{}
		svc := services.NewPresenceService(presenceRepo, nil, channelRepo, pub, testLogger())

		chA, chB := uuid.New(), uuid.New()
		presenceRepo.On("Upsert", mock.Anything, mock.MatchedBy(func(p domain.UserPresence) bool {
			return p.UserID == userID && p.Status == domain.PresenceOnline
		})).Return(nil)
		channelRepo.On("GetUserChannelIDs", mock.Anything, userID).
			Return([]uuid.UUID{chA, chB}, nil)

		err := svc.SetOnline(context.Background(), userID)
		assert.NoError(t, err)

		published := pub.published()
		assert.Len(t, published, 2)
		for _, env := range published {
			assert.Equal(t, events.EventTypePresenceChanged, env.EventType)
		}
	})

	t.Run("UnknownStatusRejected", func(t *testing.T) {
		svc := services.NewPresenceService(new(MockPresenceRepo), nil, new(MockChannelRepo), &recordingPublisher{}, testLogger())

		err := svc.SetStatus(context.Background(), userID, "invisible")
		assert.ErrorIs(t, err, corechat_errors.ErrInvalidInput)
	})
}

func TestGetPresence(t *testing.T) {
	userID := uuid.New()

	t.Run("UnknownUserReadsAsOffline", func(t *testing.T) {
		presenceRepo := new(MockPresenceRepo)
		svc := services.NewPresenceService(presenceRepo, nil, new(MockChannelRepo), &recordingPublisher{}, testLogger())

		presenceRepo.On("Get", mock.Anything, userID).
			Return(domain.UserPresence{}, corechat_errors.ErrNotFound)

		p, err := svc.GetPresence(context.Background(), userID)
		assert.NoError(t, err)
		assert.Equal(t, domain.PresenceOffline, p.Status)
		assert.Equal(t, userID, p.UserID)
	})

	t.Run("ServedFromCache", func(t *testing.T) {
		presenceRepo := new(MockPresenceRepo)
		cache := new(MockPresenceCache)
		svc := services.NewPresenceService(presenceRepo, cache, new(MockChannelRepo), &recordingPublisher{}, testLogger())

		cached := domain.UserPresence{UserID: userID, Status: domain.PresenceOnline, LastSeenAt: time.Now().UTC()}
		cache.On("Get", mock.Anything, userID).Return(cached, true, nil)

		p, err := svc.GetPresence(context.Background(), userID)
		assert.NoError(t, err)
		assert.Equal(t, domain.PresenceOnline, p.Status)
		presenceRepo.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})

	t.Run("CacheMissFallsBackToStore", func(t *testing.T) {
		presenceRepo := new(MockPresenceRepo)
		cache := new(MockPresenceCache)
		svc := services.NewPresenceService(presenceRepo, cache, new(MockChannelRepo), &recordingPublisher{}, testLogger())

		cache.On("Get", mock.Anything, userID).Return(domain.UserPresence{}, false, nil)
		presenceRepo.On("Get", mock.Anything, userID).
			Return(domain.UserPresence{UserID: userID, Status: domain.PresenceAway}, nil)

		p, err := svc.GetPresence(context.Background(), userID)
		assert.NoError(t, err)
		assert.Equal(t, domain.PresenceAway, p.Status)
	})
}
