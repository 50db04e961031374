package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/confweb/talkvote/internal/middleware"
	"github.com/confweb/talkvote/internal/model"
	"github.com/confweb/talkvote/internal/service"
)

const testAdminToken = "admin-secret"

// switchableSource serves a talk list that tests can replace mid-run.
type switchableSource struct {
	mu    sync.Mutex
	talks []model.Talk
	err   error
}

func (s *switchableSource) Talks(ctx context.Context) ([]model.Talk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return append([]model.Talk(nil), s.talks...), nil
}

func (s *switchableSource) set(talks []model.Talk) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.talks = talks
}

func makeTalks(n int) []model.Talk {
	list := make([]model.Talk, n)
	for i := range list {
		list[i] = model.Talk{
			ID:       fmt.Sprintf("talk-%02d", i),
			Title:    fmt.Sprintf("Talk %d", i),
			Speakers: []model.Speaker{{ID: fmt.Sprintf("sp-%d", i), Name: "Speaker"}},
		}
	}
	return list
}

type testServer struct {
	t      *testing.T
	router http.Handler
	store  *memStore
	source *switchableSource
	window *service.VotingWindow
}

func newTestServer(t *testing.T, talkCount int) *testServer {
	t.Helper()

	store := newMemStore()
	source := &switchableSource{talks: makeTalks(talkCount)}
	window := service.NewVotingWindow(time.Time{}, time.Time{}, "")

	sessionRepo := memSessionRepo{s: store}
	voteRepo := memVoteRepo{s: store}

	sessionService := service.NewSessionService(sessionRepo)
	voteService := service.NewVoteService(store, sessionRepo, voteRepo)
	votingService := service.NewVotingService(source, sessionService, voteService, window, nil)
	resultsService := service.NewResultsService(source, voteService)

	hash, err := bcrypt.GenerateFromPassword([]byte(testAdminToken), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	adminService := service.NewAdminService(string(hash), sessionService, voteService, votingService)
	auth := middleware.NewAdminAuthMiddleware(adminService)

	votingHandler := NewVotingHandler(votingService, sessionService, resultsService, nil, false)
	adminHandler := NewAdminHandler(adminService, resultsService, nil, auth.Handler)

	r := chi.NewRouter()
	r.Mount("/api/voting", votingHandler.Routes())
	r.Mount("/admin", adminHandler.Routes())

	return &testServer{t: t, router: r, store: store, source: source, window: window}
}

func (s *testServer) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) get(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	return s.do(httptest.NewRequest(http.MethodGet, path, nil), cookies...)
}

func (s *testServer) postForm(path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(req, cookies...)
}

// bootstrap creates a session and returns its cookie.
func (s *testServer) bootstrap() *http.Cookie {
	s.t.Helper()
	rec := s.postForm("/api/voting/session", url.Values{"clientVersion": {clientVersion}})
	if rec.Code != http.StatusOK {
		s.t.Fatalf("bootstrap: status %d: %s", rec.Code, rec.Body.String())
	}
	cookie := sessionCookie(rec)
	if cookie == nil || cookie.Value == "" {
		s.t.Fatalf("bootstrap: no session cookie set")
	}
	return cookie
}

var clientVersion = model.CurrentProtocolVersion.String()

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.VotingSessionCookie {
			return c
		}
	}
	return nil
}

func batchPath(round, index, size int) string {
	return fmt.Sprintf("/api/voting/batch?clientVersion=%s&fromRound=%d&fromIndex=%d&size=%d",
		clientVersion, round, index, size)
}

func voteForm(choice string, round, index int) url.Values {
	return url.Values{
		"clientVersion": {clientVersion},
		"vote":          {choice},
		"roundNumber":   {fmt.Sprint(round)},
		"indexInRound":  {fmt.Sprint(index)},
	}
}
