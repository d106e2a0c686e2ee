package server

import (
	"encoding/json"
	"time"
)

// Client is one connected player. The struct lives for the lifetime of a
// connection; the player entity in the simulation outlives it, so a
// disconnect leaves the player idle rather than removing it.
type Client struct {
	ClientID string
	Username string

	out      chan []byte
	lastPing time.Time

	// Hashes the client reported, turn -> hash. Used to report how many
	// clients agree when a desync is detected.
	hashes map[int]string

	reportedWinner string
}

func NewClient(clientID, username string) *Client {
	return &Client{
		ClientID: clientID,
		Username: username,
		out:      make(chan []byte, 256),
		lastPing: time.Now(),
		hashes:   map[int]string{},
	}
}

// Out is the send queue drained by the connection's writer goroutine. The
// channel is closed when the client is removed from its game.
func (c *Client) Out() <-chan []byte { return c.out }

// send marshals and queues a message without blocking the game loop. A slow
// client loses messages rather than stalling the turn clock; the rejoin path
// re-sends missed turns.
func (c *Client) send(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case c.out <- b:
	default:
	}
}

func (c *Client) Ping() { c.lastPing = time.Now() }
