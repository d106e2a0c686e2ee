package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"

	"terrafront.io/internal/persistence/indexdb"
	"terrafront.io/internal/persistence/record"
	"terrafront.io/internal/protocol"
	"terrafront.io/internal/shard"
	"terrafront.io/internal/sim/tuning"
)

const testAdminToken = "test-admin-token"

type testWorker struct {
	mgr *GameManager
	idx *indexdb.SQLiteIndex
	srv *httptest.Server
	dir string
}

func newTestWorker(t *testing.T, numWorkers int) *testWorker {
	t.Helper()
	dir := t.TempDir()
	idx, err := indexdb.OpenSQLite(filepath.Join(dir, "index", "games.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = idx.Close() })

	logger := log.New(io.Discard, "", 0)
	tn := tuning.Defaults()
	tn.TurnIntervalMs = 3_600_000
	mgr := NewGameManager(tn, dir, idx, logger)
	ws := NewWSServer(mgr, 0, numWorkers, logger)
	h := NewHTTPServer(mgr, ws, 0, numWorkers, testAdminToken, logger)
	srv := httptest.NewServer(h.Mux())
	t.Cleanup(srv.Close)
	return &testWorker{mgr: mgr, idx: idx, srv: srv, dir: dir}
}

func (w *testWorker) do(t *testing.T, method, path string, body []byte, admin bool) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, w.srv.URL+path, bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if admin {
		req.Header.Set("X-Admin-Token", testAdminToken)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	return resp, raw
}

func TestCreateGameDefaultsAndLookup(t *testing.T) {
	w := newTestWorker(t, 1)

	resp, raw := w.do(t, http.MethodPost, "/w0/api/create_game/abc", nil, false)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create: %d %s", resp.StatusCode, raw)
	}
	var info GameInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		t.Fatal(err)
	}
	if info.GameID != "abc" || info.Config.GameType != protocol.GameTypePrivate {
		t.Fatalf("info = %+v", info)
	}
	if info.Config.MapWidth == 0 || info.Config.MapHeight == 0 {
		t.Fatalf("default config missing map size: %+v", info.Config)
	}

	resp, raw = w.do(t, http.MethodGet, "/w0/api/game/abc", nil, false)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get: %d %s", resp.StatusCode, raw)
	}

	resp, raw = w.do(t, http.MethodGet, "/w0/api/game/abc/exists", nil, false)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(raw), "true") {
		t.Fatalf("exists: %d %s", resp.StatusCode, raw)
	}
	resp, raw = w.do(t, http.MethodGet, "/w0/api/game/nope/exists", nil, false)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(raw), "false") {
		t.Fatalf("exists(miss): %d %s", resp.StatusCode, raw)
	}

	resp, _ = w.do(t, http.MethodPost, "/w0/api/create_game/abc", nil, false)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate create: %d", resp.StatusCode)
	}
}

func TestCreateGameValidatesConfig(t *testing.T) {
	w := newTestWorker(t, 1)

	bad := []byte(`{"gameType":"Private","difficulty":"Extreme","maxPlayers":4,"mapWidth":64,"mapHeight":64}`)
	resp, raw := w.do(t, http.MethodPost, "/w0/api/create_game/abc", bad, false)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad difficulty accepted: %d %s", resp.StatusCode, raw)
	}
}

func TestPublicGameRequiresAdminToken(t *testing.T) {
	w := newTestWorker(t, 1)
	cfg := []byte(`{"gameType":"Public","difficulty":"Medium","maxPlayers":8,"mapWidth":64,"mapHeight":64}`)

	resp, _ := w.do(t, http.MethodPost, "/w0/api/create_game/pub", cfg, false)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("public create without token: %d", resp.StatusCode)
	}
	resp, _ = w.do(t, http.MethodPost, "/w0/api/create_game/pub", cfg, true)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("public create with token: %d", resp.StatusCode)
	}

	// Public games start on the matchmaker's schedule.
	w.mgr.Game("pub").joined = append(w.mgr.Game("pub").joined, protocol.PlayerRef{ClientID: "a", PlayerType: protocol.PlayerTypeHuman})
	resp, _ = w.do(t, http.MethodPost, "/w0/api/start_game/pub", nil, false)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("public start without token: %d", resp.StatusCode)
	}
	resp, _ = w.do(t, http.MethodPost, "/w0/api/start_game/pub", nil, true)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("public start with token: %d", resp.StatusCode)
	}
	w.mgr.Game("pub").finish()
}

func TestStartGameAndConfigFreeze(t *testing.T) {
	w := newTestWorker(t, 1)
	if _, err := w.mgr.CreateGame("abc", testServerConfig(), "alice"); err != nil {
		t.Fatal(err)
	}
	g := w.mgr.Game("abc")
	if err := g.AddClient(NewClient("alice", "alice"), 0); err != nil {
		t.Fatal(err)
	}

	upd := []byte(`{"gameType":"Private","difficulty":"Hard","maxPlayers":6,"mapWidth":64,"mapHeight":64}`)
	resp, raw := w.do(t, http.MethodPut, "/w0/api/game/abc", upd, false)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("lobby edit: %d %s", resp.StatusCode, raw)
	}

	resp, raw = w.do(t, http.MethodPost, "/w0/api/start_game/abc", nil, false)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start: %d %s", resp.StatusCode, raw)
	}
	defer g.finish()

	resp, raw = w.do(t, http.MethodPut, "/w0/api/game/abc", upd, false)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("post-start edit: %d %s", resp.StatusCode, raw)
	}
	if !strings.Contains(string(raw), protocol.ErrGameStarted) {
		t.Fatalf("edit error body = %s", raw)
	}
}

func TestKickRequiresAdminToken(t *testing.T) {
	w := newTestWorker(t, 1)
	if _, err := w.mgr.CreateGame("abc", testServerConfig(), "alice"); err != nil {
		t.Fatal(err)
	}
	g := w.mgr.Game("abc")
	if err := g.AddClient(NewClient("bob", "bob"), 0); err != nil {
		t.Fatal(err)
	}

	resp, _ := w.do(t, http.MethodPost, "/w0/api/kick_player/abc/bob", nil, false)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("kick without token: %d", resp.StatusCode)
	}
	resp, _ = w.do(t, http.MethodPost, "/w0/api/kick_player/abc/bob", nil, true)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("kick with token: %d", resp.StatusCode)
	}
	if g.isJoined("bob") {
		t.Fatal("kicked client still on roster")
	}
}

func TestWorkerMismatchRejected(t *testing.T) {
	w := newTestWorker(t, 4)

	// Find an ID that does not belong to worker 0.
	foreign := ""
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		if shard.WorkerIndex(id, 4) != 0 {
			foreign = id
			break
		}
	}
	if foreign == "" {
		t.Fatal("no foreign id found")
	}

	resp, raw := w.do(t, http.MethodPost, "/w0/api/create_game/"+foreign, nil, false)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("foreign create: %d %s", resp.StatusCode, raw)
	}
	if !strings.Contains(string(raw), protocol.ErrWorkerMismatch) {
		t.Fatalf("error body = %s", raw)
	}
}

func TestArchiveSingleplayerGame(t *testing.T) {
	w := newTestWorker(t, 1)

	rec := protocol.GameRecord{
		Info: protocol.GameInfo{
			GameID: "sp1",
			Config: protocol.GameConfig{
				GameType:   protocol.GameTypeSingleplayer,
				Difficulty: protocol.DifficultyHard,
				MaxPlayers: 1,
				NumBots:    50,
				MapWidth:   128,
				MapHeight:  128,
			},
			Seed: 99,
			Players: []protocol.PlayerRef{
				{ClientID: "alice", Username: "alice", PlayerType: protocol.PlayerTypeHuman},
			},
			StartedAt: time.Now().Add(-time.Minute).UnixMilli(),
			EndedAt:   time.Now().UnixMilli(),
			Winner:    "alice",
		},
		Turns: []protocol.Turn{
			{TurnNumber: 0, Intents: []protocol.Intent{{Kind: protocol.IntentSpawn, ClientID: "alice", X: 1, Y: 1}}},
			{TurnNumber: 1, Intents: []protocol.Intent{}},
		},
	}
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if err := json.NewEncoder(gz).Encode(rec); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}

	req, err := http.NewRequest(http.MethodPost, w.srv.URL+"/w0/api/archive_singleplayer_game", &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Encoding", "gzip")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("archive: %d %s", resp.StatusCode, raw)
	}

	got, err := record.Read(record.Path(w.dir, "sp1"))
	if err != nil {
		t.Fatalf("read archived record: %v", err)
	}
	if got.Info.Winner != "alice" || len(got.Turns) != 2 {
		t.Fatalf("archived record = %+v", got.Info)
	}

	w.idx.Flush()
	row, ok, err := w.idx.Game("sp1")
	if err != nil || !ok {
		t.Fatalf("index row: ok=%v err=%v", ok, err)
	}
	if row.Winner != "alice" || row.GameType != protocol.GameTypeSingleplayer {
		t.Fatalf("index row = %+v", row)
	}
}

func TestArchiveRejectsMultiplayerRecord(t *testing.T) {
	w := newTestWorker(t, 1)

	rec := protocol.GameRecord{
		Info: protocol.GameInfo{
			GameID: "mp1",
			Config: protocol.GameConfig{
				GameType:   protocol.GameTypePrivate,
				Difficulty: protocol.DifficultyMedium,
				MaxPlayers: 4,
				MapWidth:   64,
				MapHeight:  64,
			},
			Players: []protocol.PlayerRef{
				{ClientID: "alice", PlayerType: protocol.PlayerTypeHuman},
				{ClientID: "bob", PlayerType: protocol.PlayerTypeHuman},
			},
			StartedAt: 1,
			EndedAt:   2,
		},
		Turns: []protocol.Turn{{TurnNumber: 0, Intents: []protocol.Intent{}}},
	}
	body, _ := json.Marshal(rec)
	resp, raw := w.do(t, http.MethodPost, "/w0/api/archive_singleplayer_game", body, false)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("multiplayer upload accepted: %d %s", resp.StatusCode, raw)
	}
	if !strings.Contains(string(raw), protocol.ErrNotSingleplayer) {
		t.Fatalf("error body = %s", raw)
	}
}

func TestPrunedGameServedFromIndex(t *testing.T) {
	w := newTestWorker(t, 1)

	resp, raw := w.do(t, http.MethodPost, "/w0/api/create_game/abc", nil, false)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create: %d %s", resp.StatusCode, raw)
	}
	g := w.mgr.Game("abc")
	c := NewClient("alice", "alice")
	if err := g.AddClient(c, 0); err != nil {
		t.Fatal(err)
	}
	if err := g.Start(); err != nil {
		t.Fatal(err)
	}
	g.RemoveClient(c) // last client gone: game finishes and archives
	w.idx.Flush()
	w.mgr.Prune(0)
	if w.mgr.Game("abc") != nil {
		t.Fatal("finished game survived pruning")
	}

	resp, raw = w.do(t, http.MethodGet, "/w0/api/game/abc", nil, false)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("archived lookup: %d %s", resp.StatusCode, raw)
	}
	var row indexdb.GameRow
	if err := json.Unmarshal(raw, &row); err != nil {
		t.Fatal(err)
	}
	if row.GameID != "abc" || row.RecordPath == "" {
		t.Fatalf("row = %+v", row)
	}
	if _, err := record.Read(row.RecordPath); err != nil {
		t.Fatalf("read archived record: %v", err)
	}

	resp, raw = w.do(t, http.MethodGet, "/w0/api/game/abc/exists", nil, false)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("exists: %d %s", resp.StatusCode, raw)
	}
	var exists map[string]bool
	if err := json.Unmarshal(raw, &exists); err != nil {
		t.Fatal(err)
	}
	if !exists["exists"] {
		t.Fatal("archived game reported as missing")
	}

	resp, raw = w.do(t, http.MethodGet, "/w0/api/archived_games?limit=10", nil, false)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("archived_games: %d %s", resp.StatusCode, raw)
	}
	var rows []indexdb.GameRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].GameID != "abc" {
		t.Fatalf("rows = %+v", rows)
	}
}
