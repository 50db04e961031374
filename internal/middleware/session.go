package middleware

import (
	"net/http"
	"time"
)

const (
	VotingSessionCookie = "voting_session"
	VotingSessionMaxAge = 30 * 24 * time.Hour
	votingCookiePath    = "/"
)

// VotingToken returns the voter token from the session cookie, or "".
func VotingToken(r *http.Request) string {
	cookie, err := r.Cookie(VotingSessionCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func SetVotingCookie(w http.ResponseWriter, token string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     VotingSessionCookie,
		Value:    token,
		Path:     votingCookiePath,
		MaxAge:   int(VotingSessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearVotingCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     VotingSessionCookie,
		Value:    "",
		Path:     votingCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
