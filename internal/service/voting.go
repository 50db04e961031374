package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/confweb/talkvote/internal/config"
	apperrors "github.com/confweb/talkvote/internal/errors"
	"github.com/confweb/talkvote/internal/model"
	"github.com/confweb/talkvote/internal/pairing"
	"github.com/confweb/talkvote/internal/sse"
	"github.com/confweb/talkvote/internal/talks"
)

const tracerName = "github.com/confweb/talkvote/internal/service"

// EventPublisher is satisfied by *sse.Broker.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event sse.Event) error
}

// BatchRequest carries the raw query values of a batch fetch.
type BatchRequest struct {
	ClientVersion string
	FromRound     string
	FromIndex     string
	Size          string
	Token         string
}

type BatchPair struct {
	RoundNumber  int        `json:"roundNumber"`
	IndexInRound int        `json:"indexInRound"`
	Left         model.Talk `json:"left"`
	Right        model.Talk `json:"right"`
}

type BatchResult struct {
	Batch       []BatchPair       `json:"batch"`
	SessionID   string            `json:"sessionId"`
	VotingState model.VotingState `json:"votingState"`
	TotalPairs  int               `json:"totalPairs"`
	Next        *model.Coordinate `json:"next"`
}

// VoteRequest carries the raw form values of a vote submission.
type VoteRequest struct {
	ClientVersion string
	Vote          string
	RoundNumber   string
	IndexInRound  string
	Token         string
	// FormErr is the error from parsing the request body, reported once the
	// window and version checks have passed.
	FormErr error
}

type Progress struct {
	Voted int `json:"voted"`
	Total int `json:"total"`
}

type VoteResult struct {
	Success      bool              `json:"success"`
	RoundNumber  int               `json:"roundNumber"`
	IndexInRound int               `json:"indexInRound"`
	Next         *model.Coordinate `json:"next"`
	Progress     Progress          `json:"progress"`
	SessionID    string            `json:"-"`
	Choice       model.VoteChoice  `json:"-"`
}

type BootstrapResult struct {
	SessionID   string            `json:"sessionId"`
	Created     bool              `json:"created"`
	Reset       bool              `json:"reset"`
	ResumeFrom  *model.Coordinate `json:"resumeFrom"`
	TotalPairs  int               `json:"totalPairs"`
	VotingState model.VotingState `json:"votingState"`
	// Token is the new cookie value when a session was created.
	Token string `json:"-"`
}

type VotingConfig struct {
	ClientVersion model.ProtocolVersion `json:"clientVersion"`
	VotingState   model.VotingState     `json:"votingState"`
	OpensAt       *time.Time            `json:"opensAt"`
	ClosesAt      *time.Time            `json:"closesAt"`
}

// talkSet is the live talk list with everything derived from it.
type talkSet struct {
	talks       []model.Talk
	byID        map[string]model.Talk
	ids         []string
	fingerprint string
}

// VotingService runs the batch, vote and bootstrap flows. Checks run in a
// fixed order so clients get the same error for the same input.
type VotingService struct {
	source    talks.Source
	sessions  *SessionService
	votes     *VoteService
	window    *VotingWindow
	publisher EventPublisher
	tracer    trace.Tracer
}

func NewVotingService(
	source talks.Source,
	sessions *SessionService,
	votes *VoteService,
	window *VotingWindow,
	publisher EventPublisher,
) *VotingService {
	return &VotingService{
		source:    source,
		sessions:  sessions,
		votes:     votes,
		window:    window,
		publisher: publisher,
		tracer:    otel.Tracer(tracerName),
	}
}

func (s *VotingService) Config() VotingConfig {
	return VotingConfig{
		ClientVersion: model.CurrentProtocolVersion,
		VotingState:   s.window.State(),
		OpensAt:       s.window.OpensAt(),
		ClosesAt:      s.window.ClosesAt(),
	}
}

// Bootstrap resolves or creates the voter's session and reports where the
// voter should resume.
func (s *VotingService) Bootstrap(ctx context.Context, clientVersion, token string) (*BootstrapResult, error) {
	ctx, span := s.tracer.Start(ctx, "voting.bootstrap")
	defer span.End()

	if err := checkClientVersion(clientVersion); err != nil {
		return nil, err
	}
	if err := s.window.Check(); err != nil {
		return nil, err
	}

	set, err := s.loadTalks(ctx)
	if err != nil {
		return nil, recordSpanError(span, err)
	}

	res, err := s.sessions.GetOrCreateSession(ctx, token, set.fingerprint, len(set.ids))
	if err != nil {
		return nil, recordSpanError(span, err)
	}
	span.SetAttributes(
		attribute.String("session.id", res.Session.ID),
		attribute.Bool("session.created", res.Created),
	)

	schedule := pairing.Generate(set.ids, model.SessionStructureVersion, res.Session.ID)

	var resume *model.Coordinate
	if !res.Created {
		latest, err := s.votes.LatestCoordinate(ctx, res.Session.ID)
		if err != nil {
			return nil, recordSpanError(span, err)
		}
		resume = resumeFrom(schedule, latest)
	} else {
		resume = resumeFrom(schedule, nil)
	}

	return &BootstrapResult{
		SessionID:   res.Session.ID,
		Created:     res.Created,
		Reset:       res.Reset,
		ResumeFrom:  resume,
		TotalPairs:  schedule.Total(),
		VotingState: s.window.State(),
		Token:       res.Token,
	}, nil
}

func (s *VotingService) Batch(ctx context.Context, req BatchRequest) (*BatchResult, error) {
	ctx, span := s.tracer.Start(ctx, "voting.batch")
	defer span.End()

	if err := checkClientVersion(req.ClientVersion); err != nil {
		return nil, err
	}
	if err := s.window.Check(); err != nil {
		return nil, err
	}

	from, size, err := parseBatchParams(req)
	if err != nil {
		return nil, err
	}

	session, err := s.requireSession(ctx, req.Token)
	if err != nil {
		return nil, recordSpanError(span, err)
	}
	span.SetAttributes(attribute.String("session.id", session.ID))

	set, err := s.loadTalks(ctx)
	if err != nil {
		return nil, recordSpanError(span, err)
	}
	if err := s.sessions.Validate(session, set.fingerprint); err != nil {
		return nil, err
	}

	schedule := pairing.Generate(set.ids, model.SessionStructureVersion, session.ID)
	pairs := schedule.Slice(from, size)

	batch := make([]BatchPair, len(pairs))
	for i, p := range pairs {
		batch[i] = BatchPair{
			RoundNumber:  p.Round,
			IndexInRound: p.Index,
			Left:         set.byID[p.Left],
			Right:        set.byID[p.Right],
		}
	}

	var next *model.Coordinate
	if len(pairs) > 0 {
		if c, ok := schedule.Next(pairs[len(pairs)-1].Coordinate); ok {
			next = &c
		}
	}

	span.SetAttributes(
		attribute.Int("batch.size", len(batch)),
		attribute.Int("schedule.total", schedule.Total()),
	)

	return &BatchResult{
		Batch:       batch,
		SessionID:   session.ID,
		VotingState: s.window.State(),
		TotalPairs:  schedule.Total(),
		Next:        next,
	}, nil
}

func (s *VotingService) Vote(ctx context.Context, req VoteRequest) (*VoteResult, error) {
	ctx, span := s.tracer.Start(ctx, "voting.vote")
	defer span.End()

	if err := s.window.Check(); err != nil {
		return nil, err
	}
	if err := checkClientVersion(req.ClientVersion); err != nil {
		return nil, err
	}

	choice, coord, err := parseVoteParams(req)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("vote.round", coord.Round),
		attribute.Int("vote.index", coord.Index),
		attribute.String("vote.choice", string(choice)),
	)

	session, err := s.requireSession(ctx, req.Token)
	if err != nil {
		return nil, recordSpanError(span, err)
	}
	span.SetAttributes(attribute.String("session.id", session.ID))

	set, err := s.loadTalks(ctx)
	if err != nil {
		return nil, recordSpanError(span, err)
	}
	if err := s.sessions.Validate(session, set.fingerprint); err != nil {
		return nil, err
	}

	schedule := pairing.Generate(set.ids, model.SessionStructureVersion, session.ID)
	pair, ok := schedule.At(coord)
	if !ok {
		return nil, apperrors.InvalidInput("coordinate", "no such pair in this session").
			WithDetails(map[string]int{
				"rounds":   schedule.Rounds(),
				"roundLen": schedule.RoundLen(),
			})
	}

	if _, err := s.votes.RecordVote(ctx, session.ID, pair, choice); err != nil {
		if apperrors.GetCode(err) != apperrors.ErrCodeDuplicateVote {
			recordSpanError(span, err)
		}
		return nil, err
	}

	voted, err := s.votes.CountBySession(ctx, session.ID)
	if err != nil {
		log.Warn().Err(err).Str("sessionId", session.ID).Msg("failed to count votes after insert")
	}

	var next *model.Coordinate
	if c, ok := schedule.Next(coord); ok {
		next = &c
	}

	s.publishVote(ctx, session.ID, pair, choice)

	return &VoteResult{
		Success:      true,
		RoundNumber:  coord.Round,
		IndexInRound: coord.Index,
		Next:         next,
		Progress:     Progress{Voted: voted, Total: schedule.Total()},
		SessionID:    session.ID,
		Choice:       choice,
	}, nil
}

// CurrentFingerprint returns the fingerprint of the live talk list.
func (s *VotingService) CurrentFingerprint(ctx context.Context) (string, int, error) {
	set, err := s.loadTalks(ctx)
	if err != nil {
		return "", 0, err
	}
	return set.fingerprint, len(set.ids), nil
}

func (s *VotingService) requireSession(ctx context.Context, token string) (*model.VotingSession, error) {
	if token == "" {
		return nil, apperrors.NeedsSession()
	}
	session, err := s.sessions.GetSessionByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, apperrors.NeedsSession()
	}
	return session, nil
}

func (s *VotingService) loadTalks(ctx context.Context) (*talkSet, error) {
	list, err := s.source.Talks(ctx)
	if err != nil {
		return nil, apperrors.External("talk source", err)
	}

	set := &talkSet{
		talks: list,
		byID:  make(map[string]model.Talk, len(list)),
		ids:   model.TalkIDs(list),
	}
	for _, t := range list {
		set.byID[t.ID] = t
	}
	set.fingerprint = pairing.Fingerprint(set.ids)
	return set, nil
}

func (s *VotingService) publishVote(ctx context.Context, sessionID string, pair model.Pair, choice model.VoteChoice) {
	if s.publisher == nil {
		return
	}

	event, err := sse.NewEvent(sse.EventVoteRecorded, map[string]any{
		"sessionId":    sessionID,
		"roundNumber":  pair.Round,
		"indexInRound": pair.Index,
		"left":         pair.Left,
		"right":        pair.Right,
		"choice":       choice,
	})
	if err == nil {
		err = s.publisher.Publish(ctx, sse.TopicTally, event)
	}
	if err != nil {
		log.Warn().Err(err).Str("sessionId", sessionID).Msg("failed to publish vote event")
	}
}

func checkClientVersion(raw string) error {
	v, err := model.ParseProtocolVersion(raw)
	if err != nil || !v.IsCurrent() {
		log.Debug().Str("clientVersion", raw).Msg("stale client protocol version")
		return apperrors.Restart(apperrors.ReasonStaleClient)
	}
	return nil
}

func parseBatchParams(req BatchRequest) (model.Coordinate, int, error) {
	if strings.TrimSpace(req.FromRound) == "" {
		return model.Coordinate{}, 0, apperrors.MissingRequired("fromRound")
	}
	if strings.TrimSpace(req.FromIndex) == "" {
		return model.Coordinate{}, 0, apperrors.MissingRequired("fromIndex")
	}
	round, err := parseCoordinatePart("fromRound", req.FromRound)
	if err != nil {
		return model.Coordinate{}, 0, err
	}
	index, err := parseCoordinatePart("fromIndex", req.FromIndex)
	if err != nil {
		return model.Coordinate{}, 0, err
	}

	size := config.DefaultBatchSize
	if raw := strings.TrimSpace(req.Size); raw != "" {
		size, err = strconv.Atoi(raw)
		if err != nil || size < 1 {
			return model.Coordinate{}, 0, apperrors.InvalidInput("size", "must be a positive integer")
		}
		size = min(size, config.MaxBatchSize)
	}

	return model.Coordinate{Round: round, Index: index}, size, nil
}

func parseVoteParams(req VoteRequest) (model.VoteChoice, model.Coordinate, error) {
	if req.FormErr != nil {
		return "", model.Coordinate{}, apperrors.ValidationError("Invalid form body").WithCause(req.FormErr)
	}
	if strings.TrimSpace(req.Vote) == "" {
		return "", model.Coordinate{}, apperrors.MissingRequired("vote")
	}
	choice, err := model.ParseVoteChoice(strings.TrimSpace(req.Vote))
	if err != nil {
		return "", model.Coordinate{}, apperrors.InvalidInput("vote", "must be A, B or skip")
	}

	if strings.TrimSpace(req.RoundNumber) == "" {
		return "", model.Coordinate{}, apperrors.MissingRequired("roundNumber")
	}
	if strings.TrimSpace(req.IndexInRound) == "" {
		return "", model.Coordinate{}, apperrors.MissingRequired("indexInRound")
	}
	round, err := parseCoordinatePart("roundNumber", req.RoundNumber)
	if err != nil {
		return "", model.Coordinate{}, err
	}
	index, err := parseCoordinatePart("indexInRound", req.IndexInRound)
	if err != nil {
		return "", model.Coordinate{}, err
	}

	return choice, model.Coordinate{Round: round, Index: index}, nil
}

// parseCoordinatePart parses a non-negative integer no larger than
// model.MaxCoordinate.
func parseCoordinatePart(field, raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, apperrors.InvalidInput(field, "must be an integer").WithCause(err)
	}
	if n < 0 || n > model.MaxCoordinate {
		return 0, apperrors.InvalidInput(field, "out of range")
	}
	return n, nil
}

// resumeFrom returns the coordinate after latest, the first coordinate when
// nothing was voted yet, or nil when the schedule is exhausted.
func resumeFrom(schedule *pairing.Schedule, latest *model.Coordinate) *model.Coordinate {
	if latest == nil {
		if schedule.Total() == 0 {
			return nil
		}
		return &model.Coordinate{}
	}
	if c, ok := schedule.Next(*latest); ok {
		return &c
	}
	return nil
}

func recordSpanError(span trace.Span, err error) error {
	if apperrors.GetCode(err) == apperrors.ErrCodeNeedsSession {
		return err
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
