package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/confweb/talkvote/internal/audit"
	apperrors "github.com/confweb/talkvote/internal/errors"
	"github.com/confweb/talkvote/internal/middleware"
	"github.com/confweb/talkvote/internal/service"
)

type VotingHandler struct {
	votingService  *service.VotingService
	sessionService *service.SessionService
	resultsService *service.ResultsService
	voteLimiter    func(http.Handler) http.Handler
	cookieSecure   bool
}

func NewVotingHandler(
	votingService *service.VotingService,
	sessionService *service.SessionService,
	resultsService *service.ResultsService,
	voteLimiter func(http.Handler) http.Handler,
	cookieSecure bool,
) *VotingHandler {
	return &VotingHandler{
		votingService:  votingService,
		sessionService: sessionService,
		resultsService: resultsService,
		voteLimiter:    voteLimiter,
		cookieSecure:   cookieSecure,
	}
}

func (h *VotingHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/config", h.Config)
	r.Post("/session", h.Bootstrap)
	r.Get("/batch", h.Batch)
	r.Get("/results", h.Results)

	r.Group(func(r chi.Router) {
		if h.voteLimiter != nil {
			r.Use(h.voteLimiter)
		}
		r.Post("/vote", h.Vote)
	})

	return r
}

// GET /api/voting/config
func (h *VotingHandler) Config(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.votingService.Config())
}

// POST /api/voting/session
// Resolves the voter's session, creating one when needed, and reports where
// to resume.
func (h *VotingHandler) Bootstrap(w http.ResponseWriter, r *http.Request) {
	token := middleware.VotingToken(r)

	res, err := h.votingService.Bootstrap(r.Context(), r.FormValue("clientVersion"), token)
	if err != nil {
		writeVotingError(w, r, err, h.cookieSecure)
		return
	}

	if res.Created {
		middleware.SetVotingCookie(w, res.Token, h.cookieSecure)

		eventType := audit.EventSessionCreate
		if res.Reset {
			eventType = audit.EventSessionReset
		}
		event := audit.FromRequest(r, eventType)
		event.SessionID = res.SessionID
		event.Details = map[string]interface{}{"totalPairs": res.TotalPairs}
		audit.Log(r.Context(), event)
	}

	writeJSON(w, http.StatusOK, res)
}

// GET /api/voting/batch?clientVersion=&fromRound=&fromIndex=&size=
func (h *VotingHandler) Batch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	res, err := h.votingService.Batch(r.Context(), service.BatchRequest{
		ClientVersion: q.Get("clientVersion"),
		FromRound:     q.Get("fromRound"),
		FromIndex:     q.Get("fromIndex"),
		Size:          q.Get("size"),
		Token:         middleware.VotingToken(r),
	})
	if err != nil {
		writeVotingError(w, r, err, h.cookieSecure)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, res)
}

// POST /api/voting/vote (form-encoded)
func (h *VotingHandler) Vote(w http.ResponseWriter, r *http.Request) {
	formErr := r.ParseForm()

	res, err := h.votingService.Vote(r.Context(), service.VoteRequest{
		ClientVersion: r.PostFormValue("clientVersion"),
		Vote:          r.PostFormValue("vote"),
		RoundNumber:   r.PostFormValue("roundNumber"),
		IndexInRound:  r.PostFormValue("indexInRound"),
		Token:         middleware.VotingToken(r),
		FormErr:       formErr,
	})
	if err != nil {
		if apperrors.GetCode(err) == apperrors.ErrCodeDuplicateVote {
			event := audit.FromRequest(r, audit.EventVoteDuplicate)
			event.Details = map[string]interface{}{
				"roundNumber":  r.PostFormValue("roundNumber"),
				"indexInRound": r.PostFormValue("indexInRound"),
			}
			audit.Log(r.Context(), event)
		}
		writeVotingError(w, r, err, h.cookieSecure)
		return
	}

	event := audit.FromRequest(r, audit.EventVoteRecorded)
	event.SessionID = res.SessionID
	event.Details = map[string]interface{}{
		"roundNumber":  res.RoundNumber,
		"indexInRound": res.IndexInRound,
		"choice":       string(res.Choice),
	}
	audit.Log(r.Context(), event)

	writeJSON(w, http.StatusOK, res)
}

// GET /api/voting/results
// Ranking built from the caller's own votes.
func (h *VotingHandler) Results(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, err := h.sessionService.GetSessionByToken(ctx, middleware.VotingToken(r))
	if err != nil {
		log.Error().Err(err).Msg("failed to resolve voting session")
		writeVotingError(w, r, err, h.cookieSecure)
		return
	}
	if session == nil {
		writeVotingError(w, r, apperrors.NeedsSession(), h.cookieSecure)
		return
	}

	res, err := h.resultsService.SessionResults(ctx, session.ID)
	if err != nil {
		log.Error().Err(err).Str("sessionId", session.ID).Msg("failed to build session results")
		writeVotingError(w, r, err, h.cookieSecure)
		return
	}

	writeJSON(w, http.StatusOK, res)
}
