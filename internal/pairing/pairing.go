// Package pairing builds the comparison schedule served to voters.
//
// A schedule is a circle-method round robin over the talk list: every
// unordered pair of talks appears exactly once and no talk is ever compared
// with itself. The talk order and the pair order inside each round are
// permuted by a generator seeded from the structure version, the session
// seed and the talk ids, so the schedule is a pure function of those inputs
// and can be regenerated on every request instead of being stored.
//
// With an odd number of talks a bye slot is added to the circle. The talk
// facing the bye sits the round out. The bye rotates with the circle, so
// every talk sits out exactly once over the whole schedule.
package pairing

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math/rand/v2"
	"slices"

	"github.com/confweb/talkvote/internal/model"
)

const byeSlot = -1

type Schedule struct {
	pairs    []model.Pair
	rounds   int
	roundLen int
}

// Fingerprint identifies an ordered talk id list. Ids are length-prefixed so
// that ["ab","c"] and ["a","bc"] differ.
func Fingerprint(ids []string) string {
	h := sha256.New()
	var size [8]byte
	for _, id := range ids {
		binary.BigEndian.PutUint64(size[:], uint64(len(id)))
		h.Write(size[:])
		h.Write([]byte(id))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func Generate(ids []string, version int, seed string) *Schedule {
	if len(ids) < 2 {
		return &Schedule{}
	}

	rng := newRand(ids, version, seed)

	order := slices.Clone(ids)
	rng.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})

	slots := make([]int, len(order))
	for i := range slots {
		slots[i] = i
	}
	if len(slots)%2 == 1 {
		slots = append(slots, byeSlot)
	}

	n := len(slots)
	s := &Schedule{
		rounds:   n - 1,
		roundLen: len(order) / 2,
	}
	s.pairs = make([]model.Pair, 0, s.rounds*s.roundLen)

	for r := 0; r < s.rounds; r++ {
		round := make([]model.Pair, 0, s.roundLen)
		for i := 0; i < n/2; i++ {
			a, b := slots[i], slots[n-1-i]
			if a == byeSlot || b == byeSlot {
				continue
			}
			left, right := order[a], order[b]
			if (r+i)%2 == 1 {
				left, right = right, left
			}
			round = append(round, model.Pair{Left: left, Right: right})
		}

		rng.Shuffle(len(round), func(i, j int) {
			round[i], round[j] = round[j], round[i]
		})
		for i := range round {
			round[i].Coordinate = model.Coordinate{Round: r, Index: i}
		}
		s.pairs = append(s.pairs, round...)

		rotate(slots)
	}

	return s
}

// rotate keeps slot 0 fixed and moves every other slot one position
// clockwise.
func rotate(slots []int) {
	n := len(slots)
	if n < 3 {
		return
	}
	last := slots[n-1]
	copy(slots[2:], slots[1:n-1])
	slots[1] = last
}

func newRand(ids []string, version int, seed string) *rand.Rand {
	h := sha256.New()
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(version))
	h.Write(buf[:])
	h.Write([]byte(seed))
	h.Write([]byte(Fingerprint(ids)))
	sum := h.Sum(nil)
	return rand.New(rand.NewPCG(
		binary.BigEndian.Uint64(sum[0:8]),
		binary.BigEndian.Uint64(sum[8:16]),
	))
}

func (s *Schedule) Rounds() int {
	return s.rounds
}

func (s *Schedule) RoundLen() int {
	return s.roundLen
}

func (s *Schedule) Total() int {
	return len(s.pairs)
}

// Ordinal returns the flat position of c.
func (s *Schedule) Ordinal(c model.Coordinate) int {
	return c.Round*s.roundLen + c.Index
}

func (s *Schedule) Contains(c model.Coordinate) bool {
	return c.Round >= 0 && c.Round < s.rounds && c.Index >= 0 && c.Index < s.roundLen
}

func (s *Schedule) At(c model.Coordinate) (model.Pair, bool) {
	if !s.Contains(c) {
		return model.Pair{}, false
	}
	return s.pairs[s.Ordinal(c)], true
}

// Next returns the coordinate following c, or false when c is the last one.
func (s *Schedule) Next(c model.Coordinate) (model.Coordinate, bool) {
	ord := s.Ordinal(c) + 1
	if ord < 0 || ord >= len(s.pairs) {
		return model.Coordinate{}, false
	}
	return s.pairs[ord].Coordinate, true
}

// Slice returns up to size pairs starting exactly at from. A cursor that
// names no pair, past the last round or past the end of its round, yields an
// empty slice.
func (s *Schedule) Slice(from model.Coordinate, size int) []model.Pair {
	if !s.Contains(from) || size <= 0 {
		return []model.Pair{}
	}
	start := s.Ordinal(from)
	end := min(start+size, len(s.pairs))
	return slices.Clone(s.pairs[start:end])
}
