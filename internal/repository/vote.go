package repository

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/confweb/talkvote/internal/model"
)

// ErrDuplicateVote is returned by Insert when the session already holds a
// vote at the same coordinate. The stored vote is left untouched.
var ErrDuplicateVote = errors.New("vote already recorded for coordinate")

type VoteRepository interface {
	Insert(ctx context.Context, params model.CreateVoteParams) (*model.Vote, error)
	ListBySession(ctx context.Context, sessionID string) ([]model.Vote, error)
	ListAll(ctx context.Context) ([]model.Vote, error)
	// LatestCoordinate returns the highest coordinate voted in the session,
	// or nil when the session has no votes.
	LatestCoordinate(ctx context.Context, sessionID string) (*model.Coordinate, error)
	Count(ctx context.Context) (int, error)
	CountBySession(ctx context.Context, sessionID string) (int, error)
	CountByChoice(ctx context.Context) (map[model.VoteChoice]int, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) VoteRepository
}

type voteRepo struct {
	db queryer
}

func NewVoteRepository(db *sqlx.DB) VoteRepository {
	return &voteRepo{db: db}
}

func (r *voteRepo) WithTx(tx *sqlx.Tx) VoteRepository {
	return &voteRepo{db: tx}
}

func (r *voteRepo) Insert(ctx context.Context, params model.CreateVoteParams) (*model.Vote, error) {
	var vote model.Vote
	err := r.db.GetContext(ctx, &vote, `
		INSERT INTO votes (id, session_id, round_number, index_in_round, choice, left_talk_id, right_talk_id, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (session_id, round_number, index_in_round) DO NOTHING
		RETURNING *
	`, params.ID, params.SessionID, params.Pair.Round, params.Pair.Index, params.Choice,
		params.Pair.Left, params.Pair.Right, params.Version)
	found, err := HandleNotFound(&vote, err)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateVote
		}
		return nil, err
	}
	if found == nil {
		return nil, ErrDuplicateVote
	}
	return found, nil
}

func (r *voteRepo) ListBySession(ctx context.Context, sessionID string) ([]model.Vote, error) {
	var votes []model.Vote
	err := r.db.SelectContext(ctx, &votes, `
		SELECT * FROM votes
		WHERE session_id = $1
		ORDER BY round_number, index_in_round
	`, sessionID)
	if err != nil {
		return nil, err
	}
	return votes, nil
}

func (r *voteRepo) ListAll(ctx context.Context) ([]model.Vote, error) {
	var votes []model.Vote
	err := r.db.SelectContext(ctx, &votes, `
		SELECT * FROM votes ORDER BY created_at, id
	`)
	if err != nil {
		return nil, err
	}
	return votes, nil
}

func (r *voteRepo) LatestCoordinate(ctx context.Context, sessionID string) (*model.Coordinate, error) {
	var row struct {
		Round int `db:"round_number"`
		Index int `db:"index_in_round"`
	}
	err := r.db.GetContext(ctx, &row, `
		SELECT round_number, index_in_round FROM votes
		WHERE session_id = $1
		ORDER BY round_number DESC, index_in_round DESC
		LIMIT 1
	`, sessionID)
	found, err := HandleNotFound(&row, err)
	if err != nil || found == nil {
		return nil, err
	}
	return &model.Coordinate{Round: found.Round, Index: found.Index}, nil
}

func (r *voteRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM votes`)
	return count, err
}

func (r *voteRepo) CountBySession(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM votes WHERE session_id = $1
	`, sessionID)
	return count, err
}

func (r *voteRepo) CountByChoice(ctx context.Context) (map[model.VoteChoice]int, error) {
	var rows []struct {
		Choice model.VoteChoice `db:"choice"`
		Count  int              `db:"count"`
	}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT choice, COUNT(*) AS count FROM votes GROUP BY choice
	`)
	if err != nil {
		return nil, err
	}

	counts := make(map[model.VoteChoice]int, len(rows))
	for _, row := range rows {
		counts[row.Choice] = row.Count
	}
	return counts, nil
}
