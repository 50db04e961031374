// Package results turns pairwise votes into a ranked talk list.
package results

import (
	"sort"

	"github.com/confweb/talkvote/internal/model"
)

type Entry struct {
	Talk        model.Talk `json:"talk"`
	Votes       int        `json:"votes"`
	Appearances int        `json:"appearances"`
}

// UnknownTalk tallies votes for a talk id that is no longer in the list.
type UnknownTalk struct {
	TalkID string `json:"talkId"`
	Votes  int    `json:"votes"`
}

type Results struct {
	Ranking    []Entry       `json:"ranking"`
	Unknown    []UnknownTalk `json:"unknown"`
	TotalVotes int           `json:"totalVotes"`
	Skipped    int           `json:"skipped"`
}

// Aggregate counts each non-skip vote for the talk it picked and ranks the
// talks by count, keeping list order between equal counts. The vote counts
// in Ranking and Unknown always sum to TotalVotes.
func Aggregate(talks []model.Talk, votes []model.Vote) Results {
	entries := make([]Entry, len(talks))
	index := make(map[string]int, len(talks))
	for i, t := range talks {
		entries[i] = Entry{Talk: t}
		index[t.ID] = i
	}

	unknown := map[string]int{}
	var unknownOrder []string
	res := Results{}

	for i := range votes {
		v := &votes[i]
		winner := v.Winner()
		if winner == "" {
			res.Skipped++
			continue
		}
		res.TotalVotes++

		for _, id := range []string{v.LeftTalkID, v.RightTalkID} {
			if j, ok := index[id]; ok {
				entries[j].Appearances++
			}
		}

		if j, ok := index[winner]; ok {
			entries[j].Votes++
			continue
		}
		if _, ok := unknown[winner]; !ok {
			unknownOrder = append(unknownOrder, winner)
		}
		unknown[winner]++
	}

	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].Votes > entries[b].Votes
	})

	res.Ranking = entries
	res.Unknown = make([]UnknownTalk, 0, len(unknownOrder))
	for _, id := range unknownOrder {
		res.Unknown = append(res.Unknown, UnknownTalk{TalkID: id, Votes: unknown[id]})
	}
	return res
}
