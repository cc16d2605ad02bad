package service

import (
	"context"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"

	"github.com/pairline/match-server-go/internal/database"
	"github.com/pairline/match-server-go/internal/model"
	"github.com/pairline/match-server-go/internal/repository"
	"github.com/pairline/match-server-go/internal/sse"
)

// fakeTxRunner stands in for *database.DB. With run set, the callback
// executes against a nil tx; the mock repositories ignore it.
type fakeTxRunner struct {
	run bool
	err error
}

func (f *fakeTxRunner) WithTx(ctx context.Context, fn database.TxFunc) error {
	if f.err != nil {
		return f.err
	}
	if !f.run {
		return nil
	}
	return fn(nil)
}

type fakeLocker struct {
	mu       sync.Mutex
	acquired bool
	err      error
	acquires int
	releases int
}

func (f *fakeLocker) AcquirePairLock(ctx context.Context, a, b string, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acquires++
	return f.acquired, f.err
}

func (f *fakeLocker) ReleasePairLock(ctx context.Context, a, b string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releases++
	return nil
}

type publishedEvent struct {
	UserID string
	Event  sse.Event
}

type capturePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (c *capturePublisher) Publish(ctx context.Context, userID string, event sse.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, publishedEvent{UserID: userID, Event: event})
	return nil
}

func (c *capturePublisher) published() []publishedEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]publishedEvent, len(c.events))
	copy(out, c.events)
	return out
}

type fakeLimiter struct {
	allowed bool
}

func (f *fakeLimiter) CheckLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Time) {
	return f.allowed, time.Now().Add(window)
}

// Mock queue repository

type mockQueueRepo struct {
	mock.Mock
}

func (m *mockQueueRepo) FindByUserID(ctx context.Context, userID string) (*model.WaitingEntry, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WaitingEntry), args.Error(1)
}

func (m *mockQueueRepo) Insert(ctx context.Context, entry model.WaitingEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *mockQueueRepo) Delete(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockQueueRepo) CandidatesForUpdate(ctx context.Context, limit int) ([]model.WaitingEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.WaitingEntry), args.Error(1)
}

func (m *mockQueueRepo) CountWaiting(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockQueueRepo) PositionOf(ctx context.Context, joinedAt time.Time) (int, error) {
	args := m.Called(ctx, joinedAt)
	return args.Int(0), args.Error(1)
}

func (m *mockQueueRepo) DeleteStale(ctx context.Context, olderThan time.Time) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockQueueRepo) WithTx(tx *sqlx.Tx) repository.QueueRepository {
	return m
}

// Mock session repository

type mockSessionRepo struct {
	mock.Mock
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

func (m *mockSessionRepo) FindByIDForUpdate(ctx context.Context, id string) (*model.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

func (m *mockSessionRepo) Create(ctx context.Context, params model.CreateSessionParams) (*model.Session, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	if rf, ok := args.Get(0).(func(context.Context, model.CreateSessionParams) *model.Session); ok {
		return rf(ctx, params), args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

func (m *mockSessionRepo) CountLiveByParticipant(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *mockSessionRepo) MarkChat(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockSessionRepo) MarkEnded(ctx context.Context, id string, endedBy *string, endedAt time.Time) error {
	args := m.Called(ctx, id, endedBy, endedAt)
	return args.Error(0)
}

func (m *mockSessionRepo) GetSignals(ctx context.Context, sessionID string) (map[string]*string, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]*string), args.Error(1)
}

func (m *mockSessionRepo) UpsertSignal(ctx context.Context, sessionID, userID string, token *string) error {
	args := m.Called(ctx, sessionID, userID, token)
	return args.Error(0)
}

func (m *mockSessionRepo) DeleteVacatedEnded(ctx context.Context, endedBefore time.Time) (int64, error) {
	args := m.Called(ctx, endedBefore)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockSessionRepo) WithTx(tx *sqlx.Tx) repository.SessionRepository {
	return m
}

// Mock user repository

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.UserRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserRecord), args.Error(1)
}

func (m *mockUserRepo) Ensure(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockUserRepo) UpdateProfile(ctx context.Context, id string, params model.UpdateProfileParams) (*model.UserRecord, error) {
	args := m.Called(ctx, id, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserRecord), args.Error(1)
}

func (m *mockUserRepo) SetActiveSession(ctx context.Context, userID, sessionID string) error {
	args := m.Called(ctx, userID, sessionID)
	return args.Error(0)
}

func (m *mockUserRepo) ClearActiveSession(ctx context.Context, userID string, endedAt time.Time) error {
	args := m.Called(ctx, userID, endedAt)
	return args.Error(0)
}

func (m *mockUserRepo) DetachSession(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockUserRepo) WithTx(tx *sqlx.Tx) repository.UserRepository {
	return m
}

// Mock message repository

type mockMessageRepo struct {
	mock.Mock
}

func (m *mockMessageRepo) Append(ctx context.Context, params model.CreateMessageParams) (*model.Message, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Message), args.Error(1)
}

func (m *mockMessageRepo) ListBySession(ctx context.Context, sessionID string, limit int) ([]model.Message, error) {
	args := m.Called(ctx, sessionID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Message), args.Error(1)
}

func (m *mockMessageRepo) CountBySession(ctx context.Context, sessionID string) (int, error) {
	args := m.Called(ctx, sessionID)
	return args.Int(0), args.Error(1)
}

func (m *mockMessageRepo) WithTx(tx *sqlx.Tx) repository.MessageRepository {
	return m
}
