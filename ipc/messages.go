package ipc

import "github.com/nstehr/vimy/vimy-formula/model"

// Message types of the turn protocol.
const (
	TypeHello      = "hello"
	TypeAck        = "ack"
	TypeTurn       = "turn"
	TypeTurnResult = "turn_result"
	TypeError      = "error"
)

// HelloMessage opens a session. Side overrides the side named in the AI
// configuration when non-zero.
type HelloMessage struct {
	Player string `json:"player"`
	Side   int    `json:"side,omitempty"`
}

type AckMessage struct {
	Status string `json:"status"`
	Side   int    `json:"side,omitempty"`
}

// TurnMessage asks the AI to play one turn on the given position. Vars, when
// set, replaces the AI's variable store before the turn (formula-serialized
// map, as returned in a previous TurnResult).
type TurnMessage struct {
	State model.Snapshot `json:"state"`
	Vars  string         `json:"vars,omitempty"`
}

// TurnResult lists what the AI did, in order, and the position it left.
type TurnResult struct {
	Turn     int            `json:"turn"`
	Side     int            `json:"side"`
	Commands []Envelope     `json:"commands"`
	Events   []Event        `json:"events,omitempty"`
	Vars     string         `json:"vars"`
	Fallback string         `json:"fallback,omitempty"`
	State    model.Snapshot `json:"state"`
}

// Event is a notable change between the start and the end of a turn.
type Event struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

type ErrorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}
