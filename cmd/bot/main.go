// Command bot is a headless game client. It joins a game over websocket,
// runs the full deterministic simulation locally like any real client, picks
// a random spawn, reports a state hash every turn, and reports the winner
// when the simulation declares one. Useful for filling lobbies and for
// exercising a worker end to end.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"terrafront.io/internal/protocol"
	"terrafront.io/internal/sim/game"
	"terrafront.io/internal/sim/tuning"
)

func main() {
	var (
		url      = flag.String("url", "ws://localhost:8080/w0/", "worker ws url")
		gameID   = flag.String("game", "", "game id to join")
		clientID = flag.String("client", "", "client id (default: random)")
		name     = flag.String("name", "headless", "player name")
	)
	flag.Parse()

	if *gameID == "" {
		fmt.Fprintln(os.Stderr, "missing -game")
		os.Exit(2)
	}
	id := *clientID
	if id == "" {
		id = "headless_" + uuid.NewString()[:8]
	}

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	join := protocol.ClientJoinMsg{Type: protocol.TypeJoin, GameID: *gameID, ClientID: id, Username: *name}
	if err := conn.WriteJSON(join); err != nil {
		logger.Fatalf("send join: %v", err)
	}
	logger.Printf("joined game %s as %s", *gameID, id)

	var (
		runner         *game.Runner
		spawned        bool
		reportedWinner bool
	)

	for {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Minute))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			logger.Printf("connection closed: %v", err)
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeStart:
			var start protocol.ServerStartMsg
			if err := json.Unmarshal(msg, &start); err != nil {
				continue
			}
			runner, err = game.NewRunner(start.GameStartInfo, tuning.Defaults(), logger)
			if err != nil {
				logger.Fatalf("init simulation: %v", err)
			}
			logger.Printf("game started: seed=%d players=%d",
				start.GameStartInfo.Seed, len(start.GameStartInfo.Players))
			for _, turn := range start.Turns {
				runTurn(conn, logger, runner, turn, id, &spawned, &reportedWinner)
			}

		case protocol.TypeTurn:
			if runner == nil {
				continue
			}
			var m protocol.ServerTurnMsg
			if err := json.Unmarshal(msg, &m); err != nil {
				continue
			}
			runTurn(conn, logger, runner, m.Turn, id, &spawned, &reportedWinner)

		case protocol.TypeDesync:
			var m protocol.ServerDesyncMsg
			if err := json.Unmarshal(msg, &m); err != nil {
				continue
			}
			logger.Printf("DESYNC turn=%d ours=%s correct=%s (%d/%d clients agree)",
				m.Turn, m.YourHash, m.CorrectHash, m.ClientsWithCorrectHash, m.TotalActiveClients)

		case protocol.TypeError:
			var m protocol.ServerErrorMsg
			if err := json.Unmarshal(msg, &m); err != nil {
				continue
			}
			logger.Printf("server error: %s", m.Error)
		}
	}
}

// runTurn queues our spawn on the first turn, advances the simulation, and
// reports the resulting hash.
func runTurn(conn *websocket.Conn, logger *log.Logger, r *game.Runner, turn protocol.Turn, clientID string, spawned, reportedWinner *bool) {
	if !*spawned {
		g := r.Game()
		x := rand.Intn(g.Config().MapWidth)
		y := rand.Intn(g.Config().MapHeight)
		_ = conn.WriteJSON(protocol.ClientIntentMsg{
			Type:   protocol.TypeIntent,
			Intent: protocol.Intent{Kind: protocol.IntentSpawn, ClientID: clientID, X: x, Y: y},
		})
		*spawned = true
	}

	if err := r.ExecuteTurn(turn); err != nil {
		logger.Fatalf("turn %d: %v", turn.TurnNumber, err)
	}
	_ = conn.WriteJSON(protocol.ClientHashMsg{
		Type:       protocol.TypeHash,
		TurnNumber: turn.TurnNumber,
		Hash:       r.Hash(),
	})

	if winner, ok := r.Game().Winner(); ok && !*reportedWinner {
		*reportedWinner = true
		stats := map[string]protocol.PlayerStats{}
		for _, p := range r.Game().Players() {
			stats[p.ID()] = protocol.PlayerStats{
				TilesOwned: p.NumTilesOwned(),
				Gold:       p.Gold(),
				Troops:     int64(p.Troops()),
			}
		}
		_ = conn.WriteJSON(protocol.ClientWinnerMsg{
			Type:            protocol.TypeWinner,
			Winner:          winner,
			AllPlayersStats: stats,
		})
		logger.Printf("winner: %s", winner)
	}
}
