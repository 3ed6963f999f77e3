package model

import "fmt"

// ProbeMethod names the protocol that produced a player count
type ProbeMethod int

const (
	MethodNone ProbeMethod = iota
	MethodModern
	MethodLegacy
	MethodQuery
)

func (m ProbeMethod) String() string {
	switch m {
	case MethodModern:
		return "modern"
	case MethodLegacy:
		return "legacy"
	case MethodQuery:
		return "query"
	default:
		return "none"
	}
}

// ProbeResult is the outcome of one probe. A zero ProbeResult is Unknown.
type ProbeResult struct {
	players    int
	maxPlayers int
	method     ProbeMethod
}

// Unknown is returned when no protocol method produced a count
var Unknown = ProbeResult{}

// Found builds a successful result
func Found(method ProbeMethod, players, maxPlayers int) ProbeResult {
	if players < 0 {
		players = 0
	}
	return ProbeResult{players: players, maxPlayers: maxPlayers, method: method}
}

// Known reports whether a method succeeded
func (r ProbeResult) Known() bool { return r.method != MethodNone }

// Players returns the online count and whether it is known
func (r ProbeResult) Players() (int, bool) { return r.players, r.Known() }

// MaxPlayers is informational only
func (r ProbeResult) MaxPlayers() int { return r.maxPlayers }

func (r ProbeResult) Method() ProbeMethod { return r.method }

func (r ProbeResult) String() string {
	if !r.Known() {
		return "unknown"
	}
	return fmt.Sprintf("%d/%d via %s", r.players, r.maxPlayers, r.method)
}
