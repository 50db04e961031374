package httputil

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/confweb/talkvote/internal/errors"
	"github.com/confweb/talkvote/internal/model"
)

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error        string              `json:"error"`
	Code         apperrors.ErrorCode `json:"code"`
	State        model.VotingState   `json:"state,omitempty"`
	NeedsSession bool                `json:"needsSession,omitempty"`
	Duplicate    bool                `json:"duplicate,omitempty"`
	Details      any                 `json:"details,omitempty"`
}

// WriteError writes an AppError as an HTTP response with appropriate status code.
// Redirects are written as 303 See Other and never as an error body.
func WriteError(w http.ResponseWriter, err error) {
	if redirect, ok := apperrors.AsRedirect(err); ok {
		WriteRedirect(w, redirect.Location)
		return
	}

	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		// Wrap unknown errors as internal errors
		appErr = apperrors.Internal("An unexpected error occurred")
	}

	WriteJSON(w, statusFromCode(appErr.Code), newErrorResponse(appErr))
}

// WriteErrorWithStatus writes an error with a specific HTTP status code
func WriteErrorWithStatus(w http.ResponseWriter, status int, err *apperrors.AppError) {
	WriteJSON(w, status, newErrorResponse(err))
}

// WriteRedirect sends the client to location. It does not need the request,
// so it works from any layer that only holds the ResponseWriter.
func WriteRedirect(w http.ResponseWriter, location string) {
	w.Header().Set("Location", location)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusSeeOther)
}

func newErrorResponse(appErr *apperrors.AppError) ErrorResponse {
	response := ErrorResponse{
		Error:   appErr.Message,
		Code:    appErr.Code,
		Details: appErr.Details,
	}

	switch appErr.Code {
	case apperrors.ErrCodeNeedsSession:
		response.NeedsSession = true
	case apperrors.ErrCodeDuplicateVote:
		response.Duplicate = true
	case apperrors.ErrCodeVotingNotOpen:
		response.State = model.VotingStateNotOpen
	case apperrors.ErrCodeVotingClosed:
		response.State = model.VotingStateClosed
	}

	return response
}

// statusFromCode maps ErrorCode to HTTP status code
func statusFromCode(code apperrors.ErrorCode) int {
	switch code {
	// 400 Bad Request
	case apperrors.ErrCodeValidation,
		apperrors.ErrCodeInvalidInput,
		apperrors.ErrCodeMissingRequired:
		return http.StatusBadRequest

	// 401 Unauthorized
	case apperrors.ErrCodeUnauthorized,
		apperrors.ErrCodeNeedsSession:
		return http.StatusUnauthorized

	// 403 Forbidden
	case apperrors.ErrCodeForbidden,
		apperrors.ErrCodeVotingNotOpen,
		apperrors.ErrCodeVotingClosed:
		return http.StatusForbidden

	// 404 Not Found
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound

	// 409 Conflict
	case apperrors.ErrCodeDuplicateVote:
		return http.StatusConflict

	// 429 Too Many Requests
	case apperrors.ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests

	// 502 Bad Gateway
	case apperrors.ErrCodeExternal:
		return http.StatusBadGateway

	default:
		return http.StatusInternalServerError
	}
}
