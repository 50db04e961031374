package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/confweb/talkvote/internal/database"
	apperrors "github.com/confweb/talkvote/internal/errors"
	"github.com/confweb/talkvote/internal/model"
	"github.com/confweb/talkvote/internal/repository"
)

// TxRunner is satisfied by *database.DB.
type TxRunner interface {
	WithTx(ctx context.Context, fn database.TxFunc) error
}

type VoteService struct {
	tx          TxRunner
	sessionRepo repository.VotingSessionRepository
	voteRepo    repository.VoteRepository
}

func NewVoteService(
	tx TxRunner,
	sessionRepo repository.VotingSessionRepository,
	voteRepo repository.VoteRepository,
) *VoteService {
	return &VoteService{
		tx:          tx,
		sessionRepo: sessionRepo,
		voteRepo:    voteRepo,
	}
}

// RecordVote stores the choice for pair in one transaction with a shared
// lock on the session row. A second vote at the same coordinate returns a
// DUPLICATE_VOTE error and leaves the first one in place.
func (s *VoteService) RecordVote(ctx context.Context, sessionID string, pair model.Pair, choice model.VoteChoice) (*model.Vote, error) {
	var vote *model.Vote

	err := s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		session, err := s.sessionRepo.WithTx(tx).LockByID(ctx, sessionID)
		if err != nil {
			return apperrors.Database(fmt.Errorf("lock session: %w", err))
		}
		if session == nil {
			return apperrors.NeedsSession()
		}

		vote, err = s.voteRepo.WithTx(tx).Insert(ctx, model.CreateVoteParams{
			ID:        uuid.NewString(),
			SessionID: sessionID,
			Pair:      pair,
			Choice:    choice,
			Version:   model.VoteRecordVersion,
		})
		if errors.Is(err, repository.ErrDuplicateVote) {
			return apperrors.DuplicateVote()
		}
		if err != nil {
			return apperrors.Database(fmt.Errorf("insert vote: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("sessionId", sessionID).
		Int("roundNumber", pair.Round).
		Int("indexInRound", pair.Index).
		Str("choice", string(choice)).
		Msg("vote stored")

	return vote, nil
}

func (s *VoteService) ListVotes(ctx context.Context, sessionID string) ([]model.Vote, error) {
	votes, err := s.voteRepo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("list votes: %w", err))
	}
	return votes, nil
}

func (s *VoteService) ListAll(ctx context.Context) ([]model.Vote, error) {
	votes, err := s.voteRepo.ListAll(ctx)
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("list all votes: %w", err))
	}
	return votes, nil
}

func (s *VoteService) LatestCoordinate(ctx context.Context, sessionID string) (*model.Coordinate, error) {
	c, err := s.voteRepo.LatestCoordinate(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("latest coordinate: %w", err))
	}
	return c, nil
}

func (s *VoteService) CountBySession(ctx context.Context, sessionID string) (int, error) {
	count, err := s.voteRepo.CountBySession(ctx, sessionID)
	if err != nil {
		return 0, apperrors.Database(fmt.Errorf("count votes: %w", err))
	}
	return count, nil
}

func (s *VoteService) Count(ctx context.Context) (int, error) {
	return s.voteRepo.Count(ctx)
}

func (s *VoteService) CountByChoice(ctx context.Context) (map[model.VoteChoice]int, error) {
	return s.voteRepo.CountByChoice(ctx)
}
