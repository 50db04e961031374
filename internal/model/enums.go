package model

import "fmt"

type VoteChoice string

const (
	VoteChoiceA    VoteChoice = "A"
	VoteChoiceB    VoteChoice = "B"
	VoteChoiceSkip VoteChoice = "skip"
)

func ParseVoteChoice(s string) (VoteChoice, error) {
	switch VoteChoice(s) {
	case VoteChoiceA, VoteChoiceB, VoteChoiceSkip:
		return VoteChoice(s), nil
	default:
		return "", fmt.Errorf("unknown vote choice %q", s)
	}
}

type VotingState string

const (
	VotingStateNotOpen VotingState = "not-open"
	VotingStateOpen    VotingState = "open"
	VotingStateClosed  VotingState = "closed"
)

func ParseVotingState(s string) (VotingState, error) {
	switch VotingState(s) {
	case VotingStateNotOpen, VotingStateOpen, VotingStateClosed:
		return VotingState(s), nil
	default:
		return "", fmt.Errorf("unknown voting state %q", s)
	}
}
