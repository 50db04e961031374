package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/confweb/talkvote/internal/audit"
	apperrors "github.com/confweb/talkvote/internal/errors"
)

// AdminTokenValidator is satisfied by *service.AdminService.
type AdminTokenValidator interface {
	Enabled() bool
	ValidateToken(token string) bool
}

type AdminAuthMiddleware struct {
	validator AdminTokenValidator
}

func NewAdminAuthMiddleware(validator AdminTokenValidator) *AdminAuthMiddleware {
	return &AdminAuthMiddleware{validator: validator}
}

func (m *AdminAuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.validator.Enabled() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"error": "Admin not configured",
			})
			return
		}

		token := extractToken(r)
		if token == "" {
			writeError(w, apperrors.Unauthorized("Missing authentication token"))
			return
		}

		if !m.validator.ValidateToken(token) {
			log.Warn().Str("path", r.URL.Path).Msg("admin auth: invalid token attempt")
			audit.Log(r.Context(), audit.FromRequest(r, audit.EventAdminAuthFailure))
			writeError(w, apperrors.Unauthorized("Invalid token"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// extractToken reads a bearer token, falling back to the token query
// parameter for EventSource clients that cannot set headers.
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	return r.URL.Query().Get("token")
}
