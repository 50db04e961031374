package handler

import (
	"net/http"

	apperrors "github.com/confweb/talkvote/internal/errors"
	"github.com/confweb/talkvote/internal/httputil"
	"github.com/confweb/talkvote/internal/middleware"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

// writeVotingError writes err and drops the voting cookie whenever the
// session it names can no longer be used.
func writeVotingError(w http.ResponseWriter, r *http.Request, err error, cookieSecure bool) {
	if redirect, ok := apperrors.AsRedirect(err); ok && redirect.ClearSession {
		middleware.ClearVotingCookie(w, cookieSecure)
	}
	if apperrors.GetCode(err) == apperrors.ErrCodeNeedsSession && middleware.VotingToken(r) != "" {
		middleware.ClearVotingCookie(w, cookieSecure)
	}
	httputil.WriteError(w, err)
}
