package service

import (
	"context"

	"github.com/rs/zerolog/log"

	apperrors "github.com/confweb/talkvote/internal/errors"
	"github.com/confweb/talkvote/internal/model"
	"github.com/confweb/talkvote/internal/util"
)

type AdminService struct {
	tokenHash string
	sessions  *SessionService
	votes     *VoteService
	voting    *VotingService
}

func NewAdminService(
	tokenHash string,
	sessions *SessionService,
	votes *VoteService,
	voting *VotingService,
) *AdminService {
	return &AdminService{
		tokenHash: tokenHash,
		sessions:  sessions,
		votes:     votes,
		voting:    voting,
	}
}

// Enabled reports whether an admin token hash is configured.
func (s *AdminService) Enabled() bool {
	return s.tokenHash != ""
}

func (s *AdminService) ValidateToken(token string) bool {
	if !s.Enabled() || token == "" {
		return false
	}
	return util.CheckBcrypt(token, s.tokenHash)
}

type Stats struct {
	Sessions struct {
		Total   int `json:"total"`
		Current int `json:"current"`
	} `json:"sessions"`
	Votes struct {
		Total   int `json:"total"`
		A       int `json:"a"`
		B       int `json:"b"`
		Skipped int `json:"skipped"`
	} `json:"votes"`
	Talks struct {
		Count       int    `json:"count"`
		Fingerprint string `json:"fingerprint"`
	} `json:"talks"`
	VotingState model.VotingState `json:"votingState"`
}

// GetStats gathers counters for the admin dashboard. Individual counter
// failures are logged and reported as zero.
func (s *AdminService) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	stats.VotingState = s.voting.Config().VotingState

	total, err := s.sessions.Count(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to count sessions")
	}
	stats.Sessions.Total = total

	votes, err := s.votes.Count(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to count votes")
	}
	stats.Votes.Total = votes

	byChoice, err := s.votes.CountByChoice(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to count votes by choice")
	}
	stats.Votes.A = byChoice[model.VoteChoiceA]
	stats.Votes.B = byChoice[model.VoteChoiceB]
	stats.Votes.Skipped = byChoice[model.VoteChoiceSkip]

	fingerprint, count, err := s.voting.CurrentFingerprint(ctx)
	if err != nil {
		return nil, err
	}
	stats.Talks.Count = count
	stats.Talks.Fingerprint = fingerprint

	current, err := s.sessions.CountByFingerprint(ctx, fingerprint)
	if err != nil {
		log.Warn().Err(err).Msg("failed to count current sessions")
	}
	stats.Sessions.Current = current

	return stats, nil
}

type SessionDetail struct {
	Session *model.VotingSession `json:"session"`
	Votes   int                  `json:"votes"`
	// Current reports whether the session was built against the live talk
	// list and can still be served.
	Current bool `json:"current"`
}

// SessionDetail looks up a voting session by id for the admin dashboard.
func (s *AdminService) SessionDetail(ctx context.Context, id string) (*SessionDetail, error) {
	session, err := s.sessions.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, apperrors.NotFound("Voting session")
	}

	votes, err := s.votes.CountBySession(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	fingerprint, _, err := s.voting.CurrentFingerprint(ctx)
	if err != nil {
		return nil, err
	}

	return &SessionDetail{
		Session: session,
		Votes:   votes,
		Current: session.Matches(fingerprint),
	}, nil
}
