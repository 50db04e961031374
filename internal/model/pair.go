package model

import "fmt"

type Coordinate struct {
	Round int `json:"roundNumber"`
	Index int `json:"indexInRound"`
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%d/%d", c.Round, c.Index)
}

// Less orders coordinates round-major.
func (c Coordinate) Less(o Coordinate) bool {
	if c.Round != o.Round {
		return c.Round < o.Round
	}
	return c.Index < o.Index
}

// Pair is one comparison: left is shown as option A, right as option B.
type Pair struct {
	Coordinate
	Left  string `json:"left"`
	Right string `json:"right"`
}
