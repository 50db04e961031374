package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/confweb/talkvote/internal/model"
)

type VotingSessionRepository interface {
	FindByID(ctx context.Context, id string) (*model.VotingSession, error)
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.VotingSession, error)
	// LockByID reads the session row under FOR SHARE so concurrent vote
	// inserts for the same session serialize against deletes and rewrites.
	LockByID(ctx context.Context, id string) (*model.VotingSession, error)
	Create(ctx context.Context, params model.CreateVotingSessionParams) (*model.VotingSession, error)
	Count(ctx context.Context) (int, error)
	CountByFingerprint(ctx context.Context, fingerprint string) (int, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) VotingSessionRepository
}

type votingSessionRepo struct {
	db queryer
}

func NewVotingSessionRepository(db *sqlx.DB) VotingSessionRepository {
	return &votingSessionRepo{db: db}
}

func (r *votingSessionRepo) WithTx(tx *sqlx.Tx) VotingSessionRepository {
	return &votingSessionRepo{db: tx}
}

func (r *votingSessionRepo) FindByID(ctx context.Context, id string) (*model.VotingSession, error) {
	var session model.VotingSession
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM voting_sessions WHERE id = $1
	`, id)
	return HandleNotFound(&session, err)
}

func (r *votingSessionRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*model.VotingSession, error) {
	var session model.VotingSession
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM voting_sessions WHERE token_hash = $1
	`, tokenHash)
	return HandleNotFound(&session, err)
}

func (r *votingSessionRepo) LockByID(ctx context.Context, id string) (*model.VotingSession, error) {
	var session model.VotingSession
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM voting_sessions WHERE id = $1 FOR SHARE
	`, id)
	return HandleNotFound(&session, err)
}

func (r *votingSessionRepo) Create(ctx context.Context, params model.CreateVotingSessionParams) (*model.VotingSession, error) {
	var session model.VotingSession
	err := r.db.GetContext(ctx, &session, `
		INSERT INTO voting_sessions (id, token_hash, version, fingerprint, talk_count)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING *
	`, params.ID, params.TokenHash, params.Version, params.Fingerprint, params.TalkCount)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *votingSessionRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM voting_sessions`)
	return count, err
}

func (r *votingSessionRepo) CountByFingerprint(ctx context.Context, fingerprint string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM voting_sessions WHERE fingerprint = $1
	`, fingerprint)
	return count, err
}
