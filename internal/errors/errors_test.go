package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/confweb/talkvote/internal/model"
)

func TestAppError(t *testing.T) {
	t.Run("Error returns formatted string", func(t *testing.T) {
		err := New(ErrCodeNotFound, "Session not found")
		assert.Equal(t, "NOT_FOUND: Session not found", err.Error())
	})

	t.Run("Error with cause includes cause", func(t *testing.T) {
		cause := errors.New("database connection failed")
		err := Wrap(ErrCodeDatabase, "Database error", cause)
		assert.Contains(t, err.Error(), "DATABASE_ERROR")
		assert.Contains(t, err.Error(), "database connection failed")
	})

	t.Run("WithCause adds cause to error", func(t *testing.T) {
		cause := errors.New("original error")
		err := New(ErrCodeInternal, "Something went wrong").WithCause(cause)
		assert.Equal(t, cause, err.Unwrap())
	})

	t.Run("WithDetails adds details to error", func(t *testing.T) {
		details := map[string]string{"field": "roundNumber"}
		err := New(ErrCodeValidation, "Validation failed").WithDetails(details)
		assert.Equal(t, details, err.Details)
	})
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name         string
		constructor  func() *AppError
		expectedCode ErrorCode
	}{
		{"Unauthorized", func() *AppError { return Unauthorized("test") }, ErrCodeUnauthorized},
		{"Forbidden", func() *AppError { return Forbidden("test") }, ErrCodeForbidden},
		{"NeedsSession", NeedsSession, ErrCodeNeedsSession},
		{"VotingNotOpen", func() *AppError { return VotingUnavailable(model.VotingStateNotOpen) }, ErrCodeVotingNotOpen},
		{"VotingClosed", func() *AppError { return VotingUnavailable(model.VotingStateClosed) }, ErrCodeVotingClosed},
		{"NotFound", func() *AppError { return NotFound("Session") }, ErrCodeNotFound},
		{"DuplicateVote", DuplicateVote, ErrCodeDuplicateVote},
		{"ValidationError", func() *AppError { return ValidationError("test") }, ErrCodeValidation},
		{"InvalidInput", func() *AppError { return InvalidInput("vote", "invalid") }, ErrCodeInvalidInput},
		{"MissingRequired", func() *AppError { return MissingRequired("vote") }, ErrCodeMissingRequired},
		{"RateLimitExceeded", RateLimitExceeded, ErrCodeRateLimitExceeded},
		{"Internal", func() *AppError { return Internal("test") }, ErrCodeInternal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.constructor()
			assert.Equal(t, tc.expectedCode, err.Code)
			assert.NotEmpty(t, err.Message)
		})
	}
}

func TestDatabase(t *testing.T) {
	cause := errors.New("connection refused")
	err := Database(cause)
	assert.Equal(t, ErrCodeDatabase, err.Code)
	assert.Equal(t, cause, err.Unwrap())
}

func TestExternal(t *testing.T) {
	cause := errors.New("timeout")
	err := External("talk source", cause)
	assert.Equal(t, ErrCodeExternal, err.Code)
	assert.Contains(t, err.Message, "talk source")
	assert.Equal(t, cause, err.Unwrap())
}

func TestAsAppError(t *testing.T) {
	t.Run("extracts wrapped AppError", func(t *testing.T) {
		original := DuplicateVote()
		wrapped := fmt.Errorf("record vote: %w", original)
		extracted, ok := AsAppError(wrapped)
		assert.True(t, ok)
		assert.Equal(t, original, extracted)
		assert.Equal(t, ErrCodeDuplicateVote, GetCode(wrapped))
	})

	t.Run("returns false for non-AppError", func(t *testing.T) {
		err := errors.New("standard error")
		extracted, ok := AsAppError(err)
		assert.False(t, ok)
		assert.Nil(t, extracted)
		assert.False(t, IsAppError(err))
		assert.Equal(t, ErrCodeInternal, GetCode(err))
	})
}

func TestRestart(t *testing.T) {
	t.Run("stale client keeps the session", func(t *testing.T) {
		r := Restart(ReasonStaleClient)
		assert.Equal(t, RestartPath, r.Location)
		assert.False(t, r.ClearSession)
	})

	t.Run("input drift clears the session", func(t *testing.T) {
		r := Restart(ReasonInputDrift)
		assert.True(t, r.ClearSession)
	})

	t.Run("survives wrapping and is not an AppError", func(t *testing.T) {
		err := fmt.Errorf("batch: %w", Restart(ReasonStaleSession))
		r, ok := AsRedirect(err)
		assert.True(t, ok)
		assert.Equal(t, ReasonStaleSession, r.Reason)
		assert.False(t, IsAppError(err))
	})
}
