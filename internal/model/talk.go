package model

type Speaker struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Talk is a talk submission as returned by the upstream submission service.
type Talk struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Speakers    []Speaker `json:"speakers"`
	Categories  []string  `json:"categories"`
}

func TalkIDs(talks []Talk) []string {
	ids := make([]string, len(talks))
	for i, t := range talks {
		ids[i] = t.ID
	}
	return ids
}
