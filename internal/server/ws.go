package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"terrafront.io/internal/protocol"
	"terrafront.io/internal/shard"
)

const (
	joinDeadline  = 5 * time.Second
	readDeadline  = 60 * time.Second
	writeDeadline = 5 * time.Second
)

// WSServer upgrades game connections. The first message must be a join;
// everything after it is routed to the client's game by type. A message that
// fails schema validation closes the connection with a policy violation
// instead of being skipped, so a misbehaving client cannot stay attached.
type WSServer struct {
	mgr        *GameManager
	workerID   int
	numWorkers int
	log        *log.Logger

	upgrader websocket.Upgrader
}

func NewWSServer(mgr *GameManager, workerID, numWorkers int, logger *log.Logger) *WSServer {
	return &WSServer{
		mgr:        mgr,
		workerID:   workerID,
		numWorkers: numWorkers,
		log:        logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *WSServer) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		g, c := s.join(conn)
		if g == nil {
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine. Exits when the game closes the client's queue.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-c.Out():
					if !ok {
						_ = conn.WriteControl(websocket.CloseMessage,
							websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
							time.Now().Add(time.Second))
						cancel()
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(writeDeadline))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			if err := protocol.ValidateClientMessage(msg); err != nil {
				s.log.Printf("game %s: invalid message from %s: %v", g.ID, c.ClientID, err)
				s.closePolicy(conn, "invalid message")
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				continue
			}
			switch base.Type {
			case protocol.TypeIntent:
				var m protocol.ClientIntentMsg
				if err := json.Unmarshal(msg, &m); err != nil {
					continue
				}
				g.HandleIntent(c.ClientID, m.Intent)
			case protocol.TypeHash:
				var m protocol.ClientHashMsg
				if err := json.Unmarshal(msg, &m); err != nil {
					continue
				}
				g.HandleHash(c.ClientID, m.TurnNumber, m.Hash)
			case protocol.TypeWinner:
				var m protocol.ClientWinnerMsg
				if err := json.Unmarshal(msg, &m); err != nil {
					continue
				}
				g.HandleWinner(c.ClientID, m.Winner, m.AllPlayersStats)
			case protocol.TypePing:
				g.HandlePing(c.ClientID)
			case protocol.TypeJoin:
				// Already joined on this connection.
			}
		}

		g.RemoveClient(c)
	}
}

// join reads and applies the mandatory first message.
func (s *WSServer) join(conn *websocket.Conn) (*GameServer, *Client) {
	_ = conn.SetReadDeadline(time.Now().Add(joinDeadline))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil, nil
	}

	if err := protocol.ValidateClientMessage(msg); err != nil {
		s.closePolicy(conn, "invalid join")
		return nil, nil
	}
	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeJoin {
		s.closePolicy(conn, "expected join")
		return nil, nil
	}
	var join protocol.ClientJoinMsg
	if err := json.Unmarshal(msg, &join); err != nil {
		s.closePolicy(conn, "bad join")
		return nil, nil
	}

	if err := shard.CheckOwner(join.GameID, s.numWorkers, s.workerID); err != nil {
		s.log.Printf("join rejected: %v", err)
		s.closePolicy(conn, protocol.ErrWorkerMismatch)
		return nil, nil
	}

	username := join.Username
	if username == "" {
		username = "Anon"
	}
	c := NewClient(join.ClientID, username)

	found, err := s.mgr.AddClient(c, join.GameID, join.LastTurn)
	if !found {
		s.closePolicy(conn, protocol.ErrGameNotFound)
		return nil, nil
	}
	if err != nil {
		// Close reasons are capped at 123 bytes; the full error goes to the
		// log only.
		s.log.Printf("join game %s client %s: %v", join.GameID, join.ClientID, err)
		s.closePolicy(conn, "join rejected")
		return nil, nil
	}
	return s.mgr.Game(join.GameID), c
}

func (s *WSServer) closePolicy(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason),
		time.Now().Add(time.Second))
}
