package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"

	"github.com/confweb/talkvote/internal/database"
	"github.com/confweb/talkvote/internal/model"
	"github.com/confweb/talkvote/internal/repository"
	"github.com/confweb/talkvote/internal/sse"
)

type mockSessionRepo struct {
	mock.Mock
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.VotingSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.VotingSession), args.Error(1)
}

func (m *mockSessionRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*model.VotingSession, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.VotingSession), args.Error(1)
}

func (m *mockSessionRepo) LockByID(ctx context.Context, id string) (*model.VotingSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.VotingSession), args.Error(1)
}

func (m *mockSessionRepo) Create(ctx context.Context, params model.CreateVotingSessionParams) (*model.VotingSession, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	if fn, ok := args.Get(0).(func(model.CreateVotingSessionParams) *model.VotingSession); ok {
		return fn(params), args.Error(1)
	}
	return args.Get(0).(*model.VotingSession), args.Error(1)
}

func (m *mockSessionRepo) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockSessionRepo) CountByFingerprint(ctx context.Context, fingerprint string) (int, error) {
	args := m.Called(ctx, fingerprint)
	return args.Int(0), args.Error(1)
}

func (m *mockSessionRepo) WithTx(tx *sqlx.Tx) repository.VotingSessionRepository {
	return m
}

type mockVoteRepo struct {
	mock.Mock
}

func (m *mockVoteRepo) Insert(ctx context.Context, params model.CreateVoteParams) (*model.Vote, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Vote), args.Error(1)
}

func (m *mockVoteRepo) ListBySession(ctx context.Context, sessionID string) ([]model.Vote, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Vote), args.Error(1)
}

func (m *mockVoteRepo) ListAll(ctx context.Context) ([]model.Vote, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Vote), args.Error(1)
}

func (m *mockVoteRepo) LatestCoordinate(ctx context.Context, sessionID string) (*model.Coordinate, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Coordinate), args.Error(1)
}

func (m *mockVoteRepo) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockVoteRepo) CountBySession(ctx context.Context, sessionID string) (int, error) {
	args := m.Called(ctx, sessionID)
	return args.Int(0), args.Error(1)
}

func (m *mockVoteRepo) CountByChoice(ctx context.Context) (map[model.VoteChoice]int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[model.VoteChoice]int), args.Error(1)
}

func (m *mockVoteRepo) WithTx(tx *sqlx.Tx) repository.VoteRepository {
	return m
}

// fakeTx runs the function without a real transaction.
type fakeTx struct {
	calls int
}

func (f *fakeTx) WithTx(ctx context.Context, fn database.TxFunc) error {
	f.calls++
	return fn(nil)
}

type staticSource struct {
	talks []model.Talk
	err   error
}

func (s *staticSource) Talks(ctx context.Context) ([]model.Talk, error) {
	return s.talks, s.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []sse.Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, topic string, event sse.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func makeTalks(n int) []model.Talk {
	talks := make([]model.Talk, n)
	for i := range talks {
		talks[i] = model.Talk{ID: fmt.Sprintf("talk-%02d", i), Title: fmt.Sprintf("Talk %d", i)}
	}
	return talks
}
