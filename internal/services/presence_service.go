package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"corechat/internal/domain"
	"corechat/internal/events"
	"corechat/internal/repository"
	"corechat/internal/transport/httpdto"
	corechat_errors "corechat/pkg/errors"
	"corechat/pkg/logger"
)

// PresenceCache is the optional fast path for presence rows. Reads fall back
// to the store on a miss or a cache error.
type PresenceCache interface {
	Set(ctx context.Context, p domain.UserPresence) error
	Get(ctx context.Context, userID uuid.UUID) (domain.UserPresence, bool, error)
}

type PresenceService struct {
	presence  repository.PresenceRepository
	cache     PresenceCache
	channels  repository.ChannelRepository
	publisher events.Publisher
	logger    *logger.Logger
}

// NewPresenceService builds the presence service. cache may be nil when
// redis is not configured; the database row is always authoritative.
func NewPresenceService(presence repository.PresenceRepository, cache PresenceCache, channels repository.ChannelRepository, publisher events.Publisher, log *logger.Logger) *PresenceService {
	return &PresenceService{
		presence:  presence,
		cache:     cache,
		channels:  channels,
		publisher: publisher,
		logger:    log,
	}
}

// SetStatus records a user's presence and broadcasts presence-changed to
// every channel the user belongs to.
func (s *PresenceService) SetStatus(ctx context.Context, userID uuid.UUID, status string) error {
	switch status {
	case domain.PresenceOnline, domain.PresenceOffline, domain.PresenceAway:
	default:
		return fmt.Errorf("%w: unknown presence status %q", corechat_errors.ErrInvalidInput, status)
	}

	p := domain.UserPresence{
		UserID:     userID,
		Status:     status,
		LastSeenAt: time.Now().UTC(),
	}
	if err := s.presence.Upsert(ctx, p); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, p); err != nil {
			s.logger.ErrorfCtx(ctx, "cache presence for %s: %v", userID, err)
		}
	}

	channelIDs, err := s.channels.GetUserChannelIDs(ctx, userID)
	if err != nil {
		s.logger.ErrorfCtx(ctx, "list channels for presence broadcast of %s: %v", userID, err)
		return nil
	}
	view := httpdto.FromPresence(p)
	for _, channelID := range channelIDs {
		publishEvent(ctx, s.publisher, s.logger, channelID, events.EventTypePresenceChanged, view)
	}
	return nil
}

func (s *PresenceService) SetOnline(ctx context.Context, userID uuid.UUID) error {
	return s.SetStatus(ctx, userID, domain.PresenceOnline)
}

func (s *PresenceService) SetOffline(ctx context.Context, userID uuid.UUID) error {
	return s.SetStatus(ctx, userID, domain.PresenceOffline)
}

// GetPresence returns the cached presence row when available, otherwise the
// stored one. Users never seen read as offline rather than not found.
func (s *PresenceService) GetPresence(ctx context.Context, userID uuid.UUID) (domain.UserPresence, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, userID)
		if err != nil {
			s.logger.ErrorfCtx(ctx, "presence cache read for %s: %v", userID, err)
		} else if ok {
			return cached, nil
		}
	}

	p, err := s.presence.Get(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return domain.UserPresence{
				UserID: userID,
				Status: domain.PresenceOffline,
			}, nil
		}
		return domain.UserPresence{}, err
	}
	return p, nil
}
