package server

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"terrafront.io/internal/protocol"
)

func dialWS(t *testing.T, w *testWorker) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(w.srv.URL, "http") + "/w0/"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMsg(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatalf("unmarshal %s: %v", raw, err)
	}
}

func TestWSJoinIntentTurnRoundTrip(t *testing.T) {
	w := newTestWorker(t, 1)
	if _, err := w.mgr.CreateGame("abc", testServerConfig(), "alice"); err != nil {
		t.Fatal(err)
	}
	g := w.mgr.Game("abc")
	defer g.finish()

	conn := dialWS(t, w)
	join := protocol.ClientJoinMsg{Type: protocol.TypeJoin, GameID: "abc", ClientID: "alice", Username: "alice"}
	if err := conn.WriteJSON(join); err != nil {
		t.Fatal(err)
	}

	// The join is applied asynchronously; wait for the roster entry.
	deadline := time.Now().Add(5 * time.Second)
	for !g.isJoined("alice") {
		if time.Now().After(deadline) {
			t.Fatal("join never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := g.Start(); err != nil {
		t.Fatal(err)
	}
	var start protocol.ServerStartMsg
	readMsg(t, conn, &start)
	if start.Type != protocol.TypeStart || start.GameStartInfo.GameID != "abc" {
		t.Fatalf("start = %+v", start)
	}

	intent := protocol.ClientIntentMsg{
		Type:   protocol.TypeIntent,
		Intent: protocol.Intent{Kind: protocol.IntentSpawn, ClientID: "alice", X: 3, Y: 4},
	}
	if err := conn.WriteJSON(intent); err != nil {
		t.Fatal(err)
	}
	deadline = time.Now().Add(5 * time.Second)
	for {
		g.mu.Lock()
		n := len(g.intents)
		g.mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("intent never buffered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	g.endTurn()
	var turn protocol.ServerTurnMsg
	readMsg(t, conn, &turn)
	if turn.Type != protocol.TypeTurn || turn.Turn.TurnNumber != 0 {
		t.Fatalf("turn = %+v", turn)
	}
	if len(turn.Turn.Intents) != 1 || turn.Turn.Intents[0].X != 3 {
		t.Fatalf("turn intents = %+v", turn.Turn.Intents)
	}
}

func TestWSRejectsNonJoinFirstMessage(t *testing.T) {
	w := newTestWorker(t, 1)
	conn := dialWS(t, w)

	if err := conn.WriteJSON(protocol.ClientHashMsg{Type: protocol.TypeHash, TurnNumber: 0, Hash: "h"}); err != nil {
		t.Fatal(err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := conn.ReadMessage()
	if err == nil {
		t.Fatal("connection survived a non-join first message")
	}
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("close code: %v", err)
	}
}

func TestWSRejectsMalformedMessage(t *testing.T) {
	w := newTestWorker(t, 1)
	if _, err := w.mgr.CreateGame("abc", testServerConfig(), ""); err != nil {
		t.Fatal(err)
	}
	conn := dialWS(t, w)

	// Schema violation: join without a gameID.
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"join","clientID":"x"}`)); err != nil {
		t.Fatal(err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("close code: %v", err)
	}
}

func TestWSUnknownGameClosed(t *testing.T) {
	w := newTestWorker(t, 1)
	conn := dialWS(t, w)

	join := protocol.ClientJoinMsg{Type: protocol.TypeJoin, GameID: "nope", ClientID: "alice"}
	if err := conn.WriteJSON(join); err != nil {
		t.Fatal(err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("close code: %v", err)
	}
}
