package model

import (
	"fmt"
	"strconv"
	"strings"
)

// ProtocolVersion is the client/server contract version. Front-end bundles
// send it with every voting request; anything other than
// CurrentProtocolVersion means the client is running stale cached code.
type ProtocolVersion int

const CurrentProtocolVersion ProtocolVersion = 3

// SessionStructureVersion is bumped whenever the pair generation algorithm
// changes. Sessions built with an older version are abandoned.
const SessionStructureVersion = 2

const VoteRecordVersion = 1

// MaxCoordinate bounds roundNumber and indexInRound before any session
// lookup happens.
const MaxCoordinate = 100_000

func ParseProtocolVersion(s string) (ProtocolVersion, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("protocol version is missing")
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid protocol version %q", s)
	}
	return ProtocolVersion(n), nil
}

func (v ProtocolVersion) IsCurrent() bool {
	return v == CurrentProtocolVersion
}

func (v ProtocolVersion) String() string {
	return strconv.Itoa(int(v))
}
