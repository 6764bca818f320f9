package services_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"corechat/internal/domain"
	"corechat/internal/events"
	"corechat/internal/repository"
	"corechat/internal/roster"
	"corechat/internal/services"
)

// Mock mocks
type MockChannelRepo struct {
	mock.Mock
}

var _ repository.ChannelRepository = (*MockChannelRepo)(nil)

func (m *MockChannelRepo) CreateWithMembers(ctx context.Context, ch *domain.Channel, members []domain.ChannelMember) error {
	args := m.Called(ctx, ch, members)
	return args.Error(0)
}

func (m *MockChannelRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Channel, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Channel), args.Error(1)
}

func (m *MockChannelRepo) GetTeamChannelsForUser(ctx context.Context, teamID, userID uuid.UUID, includeArchived bool) ([]domain.Channel, error) {
	args := m.Called(ctx, teamID, userID, includeArchived)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Channel), args.Error(1)
}

func (m *MockChannelRepo) Update(ctx context.Context, ch domain.Channel) error {
	args := m.Called(ctx, ch)
	return args.Error(0)
}

func (m *MockChannelRepo) SetArchived(ctx context.Context, id uuid.UUID, archived bool) error {
	args := m.Called(ctx, id, archived)
	return args.Error(0)
}

func (m *MockChannelRepo) DeleteWithMembers(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockChannelRepo) AddMembers(ctx context.Context, channelID uuid.UUID, members []domain.ChannelMember) error {
	args := m.Called(ctx, channelID, members)
	return args.Error(0)
}

func (m *MockChannelRepo) RemoveMember(ctx context.Context, channelID, userID uuid.UUID) error {
	args := m.Called(ctx, channelID, userID)
	return args.Error(0)
}

func (m *MockChannelRepo) GetMember(ctx context.Context, channelID, userID uuid.UUID) (domain.ChannelMember, error) {
	args := m.Called(ctx, channelID, userID)
	return args.Get(0).(domain.ChannelMember), args.Error(1)
}

func (m *MockChannelRepo) GetMembers(ctx context.Context, channelID uuid.UUID) ([]domain.ChannelMember, error) {
	args := m.Called(ctx, channelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ChannelMember), args.Error(1)
}

func (m *MockChannelRepo) IsMember(ctx context.Context, channelID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, channelID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockChannelRepo) MarkRead(ctx context.Context, channelID, userID uuid.UUID, at time.Time) error {
	args := m.Called(ctx, channelID, userID, at)
	return args.Error(0)
}

func (m *MockChannelRepo) GetUserChannelIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockChannelRepo) FindDirectCandidates(ctx context.Context, userA, userB uuid.UUID) ([]domain.Channel, error) {
	args := m.Called(ctx, userA, userB)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Channel), args.Error(1)
}

func (m *MockChannelRepo) CreateDirectChannel(ctx context.Context, ch *domain.Channel, members []domain.ChannelMember) error {
	args := m.Called(ctx, ch, members)
	return args.Error(0)
}

type MockMessageRepo struct {
	mock.Mock
}

var _ repository.MessageRepository = (*MockMessageRepo)(nil)

func (m *MockMessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Message, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Message), args.Error(1)
}

func (m *MockMessageRepo) UpdateContent(ctx context.Context, id uuid.UUID, content string) error {
	args := m.Called(ctx, id, content)
	return args.Error(0)
}

func (m *MockMessageRepo) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockMessageRepo) ListChannelMessages(ctx context.Context, channelID uuid.UUID, before *time.Time, limit int) ([]domain.Message, error) {
	args := m.Called(ctx, channelID, before, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Message), args.Error(1)
}

func (m *MockMessageRepo) ListThread(ctx context.Context, parentID uuid.UUID) ([]domain.Message, error) {
	args := m.Called(ctx, parentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Message), args.Error(1)
}

func (m *MockMessageRepo) Search(ctx context.Context, in repository.SearchQuery) ([]domain.Message, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Message), args.Error(1)
}

func (m *MockMessageRepo) LoadChildren(ctx context.Context, msgs []domain.Message) ([]domain.Message, error) {
	args := m.Called(ctx, msgs)
	if args.Get(0) == nil {
		return msgs, args.Error(1)
	}
	return args.Get(0).([]domain.Message), args.Error(1)
}

func (m *MockMessageRepo) AddReaction(ctx context.Context, r *domain.MessageReaction) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockMessageRepo) RemoveReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) error {
	args := m.Called(ctx, messageID, userID, emoji)
	return args.Error(0)
}

func (m *MockMessageRepo) GetReactions(ctx context.Context, messageID uuid.UUID) ([]domain.MessageReaction, error) {
	args := m.Called(ctx, messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.MessageReaction), args.Error(1)
}

func (m *MockMessageRepo) MarkMentionsRead(ctx context.Context, userID uuid.UUID, messageIDs []uuid.UUID) error {
	args := m.Called(ctx, userID, messageIDs)
	return args.Error(0)
}

type MockPresenceRepo struct {
	mock.Mock
}

var _ repository.PresenceRepository = (*MockPresenceRepo)(nil)

func (m *MockPresenceRepo) Upsert(ctx context.Context, p domain.UserPresence) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPresenceRepo) Get(ctx context.Context, userID uuid.UUID) (domain.UserPresence, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(domain.UserPresence), args.Error(1)
}

type MockPresenceCache struct {
	mock.Mock
}

var _ services.PresenceCache = (*MockPresenceCache)(nil)

func (m *MockPresenceCache) Set(ctx context.Context, p domain.UserPresence) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPresenceCache) Get(ctx context.Context, userID uuid.UUID) (domain.UserPresence, bool, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(domain.UserPresence), args.Bool(1), args.Error(2)
}

type MockRoster struct {
	mock.Mock
}

var _ roster.Resolver = (*MockRoster)(nil)

func (m *MockRoster) ResolveMembers(ctx context.Context, teamID uuid.UUID, candidateIDs []uuid.UUID) ([]roster.Member, error) {
	args := m.Called(ctx, teamID, candidateIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]roster.Member), args.Error(1)
}

func rosterMembers(ids ...uuid.UUID) []roster.Member {
	members := make([]roster.Member, 0, len(ids))
	for _, id := range ids {
		members = append(members, roster.Member{ID: id})
	}
	return members
}

// recordingPublisher captures published envelopes for assertions.
type recordingPublisher struct {
	mu        sync.Mutex
	envelopes []events.Envelope
	rooms     []string
}

var _ events.Publisher = (*recordingPublisher)(nil)

func (p *recordingPublisher) Publish(_ context.Context, room string, env events.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rooms = append(p.rooms, room)
	p.envelopes = append(p.envelopes, env)
	return nil
}

func (p *recordingPublisher) published() []events.Envelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Envelope(nil), p.envelopes...)
}
