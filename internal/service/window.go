package service

import (
	"time"

	apperrors "github.com/confweb/talkvote/internal/errors"
	"github.com/confweb/talkvote/internal/model"
)

// VotingWindow decides whether voting is open. A forced state wins over the
// configured bounds; a zero bound is treated as unset.
type VotingWindow struct {
	opensAt  time.Time
	closesAt time.Time
	forced   model.VotingState
	now      func() time.Time
}

func NewVotingWindow(opensAt, closesAt time.Time, forced model.VotingState) *VotingWindow {
	return &VotingWindow{
		opensAt:  opensAt,
		closesAt: closesAt,
		forced:   forced,
		now:      time.Now,
	}
}

func (w *VotingWindow) State() model.VotingState {
	if w.forced != "" {
		return w.forced
	}

	now := w.now()
	if !w.opensAt.IsZero() && now.Before(w.opensAt) {
		return model.VotingStateNotOpen
	}
	if !w.closesAt.IsZero() && !now.Before(w.closesAt) {
		return model.VotingStateClosed
	}
	return model.VotingStateOpen
}

// Check returns a 403-class error unless voting is open.
func (w *VotingWindow) Check() error {
	if state := w.State(); state != model.VotingStateOpen {
		return apperrors.VotingUnavailable(state)
	}
	return nil
}

func (w *VotingWindow) OpensAt() *time.Time {
	if w.opensAt.IsZero() {
		return nil
	}
	t := w.opensAt
	return &t
}

func (w *VotingWindow) ClosesAt() *time.Time {
	if w.closesAt.IsZero() {
		return nil
	}
	t := w.closesAt
	return &t
}
