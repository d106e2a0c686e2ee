// Package protocol defines the JSON wire format between game clients and
// worker processes: the intent/turn exchange, the desync report, and the
// archived game record. Messages are routed by their "type" field; anything
// that fails schema validation closes the connection rather than being
// partially applied.
package protocol

import "encoding/json"

// Message types, client -> server.
const (
	TypeJoin   = "join"
	TypeIntent = "intent"
	TypeHash   = "hash"
	TypeWinner = "winner"
	TypePing   = "ping"
)

// Message types, server -> client.
const (
	TypeStart  = "start"
	TypeTurn   = "turn"
	TypeDesync = "desync"
	TypeError  = "error"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type string `json:"type"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
