package model

import (
	"time"
)

type Vote struct {
	ID           string     `db:"id" json:"id"`
	SessionID    string     `db:"session_id" json:"sessionId"`
	RoundNumber  int        `db:"round_number" json:"roundNumber"`
	IndexInRound int        `db:"index_in_round" json:"indexInRound"`
	Choice       VoteChoice `db:"choice" json:"choice"`
	LeftTalkID   string     `db:"left_talk_id" json:"leftTalkId"`
	RightTalkID  string     `db:"right_talk_id" json:"rightTalkId"`
	Version      int        `db:"version" json:"version"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
}

func (v *Vote) Coordinate() Coordinate {
	return Coordinate{Round: v.RoundNumber, Index: v.IndexInRound}
}

// Winner returns the talk id the vote went to, or "" for a skip.
func (v *Vote) Winner() string {
	switch v.Choice {
	case VoteChoiceA:
		return v.LeftTalkID
	case VoteChoiceB:
		return v.RightTalkID
	default:
		return ""
	}
}

type CreateVoteParams struct {
	ID        string
	SessionID string
	Pair      Pair
	Choice    VoteChoice
	Version   int
}
