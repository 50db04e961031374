package service

import (
	"context"
	"fmt"

	apperrors "github.com/confweb/talkvote/internal/errors"
	"github.com/confweb/talkvote/internal/results"
	"github.com/confweb/talkvote/internal/talks"
)

type ResultsService struct {
	talks talks.Source
	votes *VoteService
}

func NewResultsService(source talks.Source, votes *VoteService) *ResultsService {
	return &ResultsService{talks: source, votes: votes}
}

// SessionResults ranks the talks by a single voter's choices.
func (s *ResultsService) SessionResults(ctx context.Context, sessionID string) (*results.Results, error) {
	list, err := s.talks.Talks(ctx)
	if err != nil {
		return nil, apperrors.External("talk source", err)
	}
	votes, err := s.votes.ListVotes(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	res := results.Aggregate(list, votes)
	return &res, nil
}

// OverallResults ranks the talks by every recorded vote.
func (s *ResultsService) OverallResults(ctx context.Context) (*results.Results, error) {
	list, err := s.talks.Talks(ctx)
	if err != nil {
		return nil, apperrors.External("talk source", err)
	}
	votes, err := s.votes.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("overall results: %w", err)
	}

	res := results.Aggregate(list, votes)
	return &res, nil
}
