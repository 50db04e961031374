package model

import (
	"time"
)

type VotingSession struct {
	ID          string    `db:"id" json:"id"`
	TokenHash   string    `db:"token_hash" json:"-"`
	Version     int       `db:"version" json:"version"`
	Fingerprint string    `db:"fingerprint" json:"fingerprint"`
	TalkCount   int       `db:"talk_count" json:"talkCount"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// Matches reports whether the session was built against the given input
// set with the current pair structure.
func (s *VotingSession) Matches(fingerprint string) bool {
	return s.Version == SessionStructureVersion && s.Fingerprint == fingerprint
}

type CreateVotingSessionParams struct {
	ID          string
	TokenHash   string
	Version     int
	Fingerprint string
	TalkCount   int
}
