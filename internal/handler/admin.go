package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/confweb/talkvote/internal/httputil"
	"github.com/confweb/talkvote/internal/service"
)

type AdminHandler struct {
	adminService   *service.AdminService
	resultsService *service.ResultsService
	events         http.Handler
	authMiddleware func(http.Handler) http.Handler
}

func NewAdminHandler(
	adminService *service.AdminService,
	resultsService *service.ResultsService,
	events http.Handler,
	authMiddleware func(http.Handler) http.Handler,
) *AdminHandler {
	return &AdminHandler{
		adminService:   adminService,
		resultsService: resultsService,
		events:         events,
		authMiddleware: authMiddleware,
	}
}

func (h *AdminHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Use(h.authMiddleware)

		r.Get("/results", h.Results)
		r.Get("/stats", h.Stats)
		r.Get("/sessions/{id}", h.Session)
		if h.events != nil {
			r.Get("/events", h.events.ServeHTTP)
		}
	})

	return r
}

// GET /admin/api/results
func (h *AdminHandler) Results(w http.ResponseWriter, r *http.Request) {
	res, err := h.resultsService.OverallResults(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to build overall results")
		httputil.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// GET /admin/api/stats
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.adminService.GetStats(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to get stats")
		httputil.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// GET /admin/api/sessions/{id}
// The session record, its vote count and its own ranking.
func (h *AdminHandler) Session(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	detail, err := h.adminService.SessionDetail(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	res, err := h.resultsService.SessionResults(ctx, detail.Session.ID)
	if err != nil {
		log.Error().Err(err).Str("sessionId", detail.Session.ID).Msg("failed to build session results")
		httputil.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session": detail.Session,
		"votes":   detail.Votes,
		"current": detail.Current,
		"results": res,
	})
}
