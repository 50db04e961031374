package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	apperrors "github.com/confweb/talkvote/internal/errors"
	"github.com/confweb/talkvote/internal/model"
	"github.com/confweb/talkvote/internal/repository"
	"github.com/confweb/talkvote/internal/util"
)

// SessionResult describes the session a voter ends up with. Token is only
// set when a new session was created and must be sent back as the cookie.
type SessionResult struct {
	Session *model.VotingSession
	Token   string
	Created bool
	// Reset is true when the voter presented a token that could not be
	// reused, so any client-side progress must be discarded.
	Reset bool
}

type SessionService struct {
	sessionRepo repository.VotingSessionRepository
}

func NewSessionService(sessionRepo repository.VotingSessionRepository) *SessionService {
	return &SessionService{sessionRepo: sessionRepo}
}

// GetOrCreateSession returns the voter's session when it was built against
// the current talk set and pair structure, and otherwise starts a new one.
// A mismatch is never an error.
func (s *SessionService) GetOrCreateSession(ctx context.Context, token, fingerprint string, talkCount int) (*SessionResult, error) {
	if token != "" {
		session, err := s.GetSessionByToken(ctx, token)
		if err != nil {
			return nil, err
		}
		if session != nil && session.Matches(fingerprint) {
			return &SessionResult{Session: session}, nil
		}
		if session != nil {
			log.Info().
				Str("sessionId", session.ID).
				Int("version", session.Version).
				Bool("fingerprintChanged", session.Fingerprint != fingerprint).
				Msg("voting session outdated, starting a new one")
		}
	}

	newToken, err := util.GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	session, err := s.sessionRepo.Create(ctx, model.CreateVotingSessionParams{
		ID:          uuid.NewString(),
		TokenHash:   util.HashToken(newToken),
		Version:     model.SessionStructureVersion,
		Fingerprint: fingerprint,
		TalkCount:   talkCount,
	})
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("create session: %w", err))
	}

	log.Info().
		Str("sessionId", session.ID).
		Int("talkCount", talkCount).
		Bool("reset", token != "").
		Msg("voting session created")

	return &SessionResult{
		Session: session,
		Token:   newToken,
		Created: true,
		Reset:   token != "",
	}, nil
}

func (s *SessionService) GetSession(ctx context.Context, id string) (*model.VotingSession, error) {
	if !util.IsValidUUID(id) {
		return nil, nil
	}
	session, err := s.sessionRepo.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("find session: %w", err))
	}
	return session, nil
}

func (s *SessionService) GetSessionByToken(ctx context.Context, token string) (*model.VotingSession, error) {
	if token == "" {
		return nil, nil
	}
	session, err := s.sessionRepo.FindByTokenHash(ctx, util.HashToken(token))
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("find session by token: %w", err))
	}
	return session, nil
}

// Validate returns a restart redirect when the session can no longer be
// served against the live talk set.
func (s *SessionService) Validate(session *model.VotingSession, fingerprint string) error {
	if session.Version != model.SessionStructureVersion {
		return apperrors.Restart(apperrors.ReasonStaleSession)
	}
	if session.Fingerprint != fingerprint {
		return apperrors.Restart(apperrors.ReasonInputDrift)
	}
	return nil
}

func (s *SessionService) Count(ctx context.Context) (int, error) {
	return s.sessionRepo.Count(ctx)
}

func (s *SessionService) CountByFingerprint(ctx context.Context, fingerprint string) (int, error) {
	return s.sessionRepo.CountByFingerprint(ctx, fingerprint)
}
