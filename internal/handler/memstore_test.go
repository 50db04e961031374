package handler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/confweb/talkvote/internal/database"
	"github.com/confweb/talkvote/internal/model"
	"github.com/confweb/talkvote/internal/repository"
)

// memStore backs the repository interfaces for handler tests. Vote inserts
// honour the one-vote-per-coordinate rule the database enforces.
type memStore struct {
	mu       sync.Mutex
	sessions map[string]*model.VotingSession
	votes    []model.Vote
}

func newMemStore() *memStore {
	return &memStore{sessions: map[string]*model.VotingSession{}}
}

func (s *memStore) WithTx(ctx context.Context, fn database.TxFunc) error {
	return fn(nil)
}

type memSessionRepo struct{ s *memStore }

func (r memSessionRepo) FindByID(ctx context.Context, id string) (*model.VotingSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if session, ok := r.s.sessions[id]; ok {
		copied := *session
		return &copied, nil
	}
	return nil, nil
}

func (r memSessionRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*model.VotingSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, session := range r.s.sessions {
		if session.TokenHash == tokenHash {
			copied := *session
			return &copied, nil
		}
	}
	return nil, nil
}

func (r memSessionRepo) LockByID(ctx context.Context, id string) (*model.VotingSession, error) {
	return r.FindByID(ctx, id)
}

func (r memSessionRepo) Create(ctx context.Context, p model.CreateVotingSessionParams) (*model.VotingSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	session := &model.VotingSession{
		ID:          p.ID,
		TokenHash:   p.TokenHash,
		Version:     p.Version,
		Fingerprint: p.Fingerprint,
		TalkCount:   p.TalkCount,
		CreatedAt:   time.Now(),
	}
	r.s.sessions[p.ID] = session
	copied := *session
	return &copied, nil
}

func (r memSessionRepo) Count(ctx context.Context) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.sessions), nil
}

func (r memSessionRepo) CountByFingerprint(ctx context.Context, fingerprint string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, session := range r.s.sessions {
		if session.Fingerprint == fingerprint {
			n++
		}
	}
	return n, nil
}

func (r memSessionRepo) WithTx(tx *sqlx.Tx) repository.VotingSessionRepository {
	return r
}

type memVoteRepo struct{ s *memStore }

func (r memVoteRepo) Insert(ctx context.Context, p model.CreateVoteParams) (*model.Vote, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, v := range r.s.votes {
		if v.SessionID == p.SessionID && v.Coordinate() == p.Pair.Coordinate {
			return nil, repository.ErrDuplicateVote
		}
	}
	vote := model.Vote{
		ID:           p.ID,
		SessionID:    p.SessionID,
		RoundNumber:  p.Pair.Round,
		IndexInRound: p.Pair.Index,
		Choice:       p.Choice,
		LeftTalkID:   p.Pair.Left,
		RightTalkID:  p.Pair.Right,
		Version:      p.Version,
		CreatedAt:    time.Now(),
	}
	r.s.votes = append(r.s.votes, vote)
	return &vote, nil
}

func (r memVoteRepo) bySession(sessionID string) []model.Vote {
	var out []model.Vote
	for _, v := range r.s.votes {
		if v.SessionID == sessionID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Coordinate().Less(out[j].Coordinate()) })
	return out
}

func (r memVoteRepo) ListBySession(ctx context.Context, sessionID string) ([]model.Vote, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.bySession(sessionID), nil
}

func (r memVoteRepo) ListAll(ctx context.Context) ([]model.Vote, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]model.Vote(nil), r.s.votes...), nil
}

func (r memVoteRepo) LatestCoordinate(ctx context.Context, sessionID string) (*model.Coordinate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	votes := r.bySession(sessionID)
	if len(votes) == 0 {
		return nil, nil
	}
	c := votes[len(votes)-1].Coordinate()
	return &c, nil
}

func (r memVoteRepo) Count(ctx context.Context) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.votes), nil
}

func (r memVoteRepo) CountBySession(ctx context.Context, sessionID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.bySession(sessionID)), nil
}

func (r memVoteRepo) CountByChoice(ctx context.Context) (map[model.VoteChoice]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	counts := map[model.VoteChoice]int{}
	for _, v := range r.s.votes {
		counts[v.Choice]++
	}
	return counts, nil
}

func (r memVoteRepo) WithTx(tx *sqlx.Tx) repository.VoteRepository {
	return r
}
