package errors

import (
	"errors"
	"fmt"
)

// RestartPath is where clients are sent when their state can no longer be
// served: stale front-end code or a talk set that changed under the session.
const RestartPath = "/voting"

type RedirectReason string

const (
	ReasonStaleClient  RedirectReason = "stale_client"
	ReasonInputDrift   RedirectReason = "input_drift"
	ReasonStaleSession RedirectReason = "stale_session"
)

// Redirect is protocol control flow, not a failure. It travels up the call
// stack as an error so handlers can stop early, and the HTTP layer turns it
// into a 303 instead of an error body.
type Redirect struct {
	Location     string
	Reason       RedirectReason
	ClearSession bool
}

func (r *Redirect) Error() string {
	return fmt.Sprintf("redirect to %s (%s)", r.Location, r.Reason)
}

// Restart asks the client to reload the voting page. Drift reasons also
// clear the session cookie so the reload bootstraps a fresh session.
func Restart(reason RedirectReason) *Redirect {
	return &Redirect{
		Location:     RestartPath,
		Reason:       reason,
		ClearSession: reason != ReasonStaleClient,
	}
}

func AsRedirect(err error) (*Redirect, bool) {
	var r *Redirect
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}
