package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"terrafront.io/internal/persistence/indexdb"
	"terrafront.io/internal/protocol"
	"terrafront.io/internal/shard"
)

// Uploaded singleplayer records are decompressed with this cap so a hostile
// client cannot balloon worker memory.
const maxRecordUploadBytes = 64 << 20

// HTTPServer is one worker's control plane. Every route lives under the
// worker's /w{N}/ prefix; a request for a game this worker does not own is
// rejected instead of proxied, matching the shard mapping in internal/shard.
type HTTPServer struct {
	mgr        *GameManager
	ws         *WSServer
	workerID   int
	numWorkers int
	adminToken string
	log        *log.Logger
}

func NewHTTPServer(mgr *GameManager, ws *WSServer, workerID, numWorkers int, adminToken string, logger *log.Logger) *HTTPServer {
	return &HTTPServer{
		mgr:        mgr,
		ws:         ws,
		workerID:   workerID,
		numWorkers: numWorkers,
		adminToken: adminToken,
		log:        logger,
	}
}

// Mux mounts every route. The API lives under /w{N}/; /healthz is global so
// the fronting proxy can probe any worker directly.
func (h *HTTPServer) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})

	prefix := fmt.Sprintf("/w%d/", h.workerID)
	mux.Handle(prefix, http.StripPrefix(strings.TrimSuffix(prefix, "/"), http.HandlerFunc(h.route)))
	return mux
}

func (h *HTTPServer) route(rw http.ResponseWriter, r *http.Request) {
	path := strings.Trim(r.URL.Path, "/")
	parts := strings.Split(path, "/")

	switch {
	case path == "" && h.ws != nil:
		// WebSocket joins arrive at the bare worker prefix.
		h.ws.Handler()(rw, r)
	case len(parts) == 3 && parts[0] == "api" && parts[1] == "create_game":
		h.handleCreateGame(rw, r, parts[2])
	case len(parts) == 3 && parts[0] == "api" && parts[1] == "start_game":
		h.handleStartGame(rw, r, parts[2])
	case len(parts) == 4 && parts[0] == "api" && parts[1] == "game" && parts[3] == "exists":
		h.handleGameExists(rw, r, parts[2])
	case len(parts) == 3 && parts[0] == "api" && parts[1] == "game":
		h.handleGame(rw, r, parts[2])
	case len(parts) == 4 && parts[0] == "api" && parts[1] == "kick_player":
		h.handleKickPlayer(rw, r, parts[2], parts[3])
	case len(parts) == 2 && parts[0] == "api" && parts[1] == "archived_games":
		h.handleArchivedGames(rw, r)
	case len(parts) == 2 && parts[0] == "api" && parts[1] == "archive_singleplayer_game":
		h.handleArchiveSingleplayer(rw, r)
	default:
		http.NotFound(rw, r)
	}
}

// checkShard rejects games this worker does not own. The caller that computed
// the wrong prefix is buggy; there is no proxying.
func (h *HTTPServer) checkShard(rw http.ResponseWriter, gameID string) bool {
	if err := shard.CheckOwner(gameID, h.numWorkers, h.workerID); err != nil {
		h.log.Printf("shard mismatch: %v", err)
		writeError(rw, http.StatusBadRequest, protocol.ErrWorkerMismatch, err.Error())
		return false
	}
	return true
}

func (h *HTTPServer) isAdmin(r *http.Request) bool {
	return h.adminToken != "" && r.Header.Get("X-Admin-Token") == h.adminToken
}

func (h *HTTPServer) handleCreateGame(rw http.ResponseWriter, r *http.Request, gameID string) {
	if r.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !h.checkShard(rw, gameID) {
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(rw, http.StatusBadRequest, protocol.ErrBadMessage, "read body")
		return
	}

	var cfg protocol.GameConfig
	if len(body) > 0 && string(body) != "null" {
		if err := protocol.ValidateGameConfig(body); err != nil {
			writeError(rw, http.StatusBadRequest, protocol.ErrBadSchema, err.Error())
			return
		}
		if err := json.Unmarshal(body, &cfg); err != nil {
			writeError(rw, http.StatusBadRequest, protocol.ErrBadMessage, err.Error())
			return
		}
	} else {
		cfg = protocol.GameConfig{
			GameType:   protocol.GameTypePrivate,
			Difficulty: protocol.DifficultyMedium,
			MaxPlayers: 16,
			NumBots:    32,
			MapWidth:   512,
			MapHeight:  512,
		}
	}

	// Only the matchmaker may schedule public games.
	if cfg.GameType == protocol.GameTypePublic && !h.isAdmin(r) {
		writeError(rw, http.StatusUnauthorized, protocol.ErrUnauthorized, "public games require the admin token")
		return
	}

	creator := r.URL.Query().Get("creatorClientID")
	g, err := h.mgr.CreateGame(gameID, cfg, creator)
	if err != nil {
		writeError(rw, http.StatusConflict, protocol.ErrInternal, err.Error())
		return
	}
	h.log.Printf("created game %s type=%s", gameID, cfg.GameType)
	writeJSON(rw, http.StatusOK, g.Info())
}

func (h *HTTPServer) handleStartGame(rw http.ResponseWriter, r *http.Request, gameID string) {
	if r.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !h.checkShard(rw, gameID) {
		return
	}
	g := h.mgr.Game(gameID)
	if g == nil {
		writeError(rw, http.StatusNotFound, protocol.ErrGameNotFound, gameID)
		return
	}
	// Public games start on the matchmaker's schedule, not by request.
	if g.IsPublic() && !h.isAdmin(r) {
		writeError(rw, http.StatusUnauthorized, protocol.ErrUnauthorized, "cannot start a public game")
		return
	}
	if err := g.Start(); err != nil {
		writeError(rw, http.StatusBadRequest, protocol.ErrGameStarted, err.Error())
		return
	}
	writeJSON(rw, http.StatusOK, map[string]bool{"success": true})
}

func (h *HTTPServer) handleGame(rw http.ResponseWriter, r *http.Request, gameID string) {
	switch r.Method {
	case http.MethodGet:
		if !h.checkShard(rw, gameID) {
			return
		}
		g := h.mgr.Game(gameID)
		if g == nil {
			// The game may already be pruned from memory; serve the
			// archived index row instead.
			if row, ok := h.mgr.ArchivedGame(gameID); ok {
				writeJSON(rw, http.StatusOK, row)
				return
			}
			writeError(rw, http.StatusNotFound, protocol.ErrGameNotFound, gameID)
			return
		}
		writeJSON(rw, http.StatusOK, g.Info())
	case http.MethodPut:
		if !h.checkShard(rw, gameID) {
			return
		}
		g := h.mgr.Game(gameID)
		if g == nil {
			writeError(rw, http.StatusNotFound, protocol.ErrGameNotFound, gameID)
			return
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			writeError(rw, http.StatusBadRequest, protocol.ErrBadMessage, "read body")
			return
		}
		if err := protocol.ValidateGameConfig(body); err != nil {
			writeError(rw, http.StatusBadRequest, protocol.ErrBadSchema, err.Error())
			return
		}
		var cfg protocol.GameConfig
		if err := json.Unmarshal(body, &cfg); err != nil {
			writeError(rw, http.StatusBadRequest, protocol.ErrBadMessage, err.Error())
			return
		}
		if err := g.UpdateConfig(cfg); err != nil {
			writeError(rw, http.StatusBadRequest, errCodeOf(err), err.Error())
			return
		}
		writeJSON(rw, http.StatusOK, g.Info())
	default:
		rw.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *HTTPServer) handleGameExists(rw http.ResponseWriter, r *http.Request, gameID string) {
	if r.Method != http.MethodGet {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !h.checkShard(rw, gameID) {
		return
	}
	exists := h.mgr.Game(gameID) != nil
	if !exists {
		_, exists = h.mgr.ArchivedGame(gameID)
	}
	writeJSON(rw, http.StatusOK, map[string]bool{"exists": exists})
}

func (h *HTTPServer) handleArchivedGames(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rows := h.mgr.ArchivedGames(limit)
	if rows == nil {
		rows = []indexdb.GameRow{}
	}
	writeJSON(rw, http.StatusOK, rows)
}

func (h *HTTPServer) handleKickPlayer(rw http.ResponseWriter, r *http.Request, gameID, clientID string) {
	if r.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !h.isAdmin(r) {
		writeError(rw, http.StatusUnauthorized, protocol.ErrUnauthorized, "admin token required")
		return
	}
	if !h.checkShard(rw, gameID) {
		return
	}
	g := h.mgr.Game(gameID)
	if g == nil {
		writeError(rw, http.StatusNotFound, protocol.ErrGameNotFound, gameID)
		return
	}
	g.KickClient(clientID)
	writeJSON(rw, http.StatusOK, map[string]bool{"success": true})
}

// handleArchiveSingleplayer accepts a finished singleplayer record from the
// client that simulated it. The body is gzip-compressed JSON; anything that
// is not a valid one-human singleplayer record is refused.
func (h *HTTPServer) handleArchiveSingleplayer(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var body io.Reader = r.Body
	if strings.Contains(r.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(r.Body)
		if err != nil {
			writeError(rw, http.StatusBadRequest, protocol.ErrBadMessage, "bad gzip body")
			return
		}
		defer gz.Close()
		body = gz
	}
	raw, err := io.ReadAll(io.LimitReader(body, maxRecordUploadBytes))
	if err != nil {
		writeError(rw, http.StatusBadRequest, protocol.ErrBadMessage, "read body")
		return
	}

	if err := protocol.ValidateGameRecord(raw); err != nil {
		writeError(rw, http.StatusBadRequest, protocol.ErrBadSchema, err.Error())
		return
	}
	var rec protocol.GameRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		writeError(rw, http.StatusBadRequest, protocol.ErrBadMessage, err.Error())
		return
	}
	if rec.Info.Config.GameType != protocol.GameTypeSingleplayer {
		writeError(rw, http.StatusBadRequest, protocol.ErrNotSingleplayer, "only singleplayer records may be uploaded")
		return
	}
	humans := 0
	for _, p := range rec.Info.Players {
		if p.PlayerType == protocol.PlayerTypeHuman {
			humans++
		}
	}
	if humans != 1 {
		writeError(rw, http.StatusBadRequest, protocol.ErrNotSingleplayer, "singleplayer records carry exactly one human")
		return
	}

	h.mgr.ArchiveRecord(rec)
	writeJSON(rw, http.StatusOK, map[string]bool{"success": true})
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func writeError(rw http.ResponseWriter, status int, code, msg string) {
	writeJSON(rw, status, map[string]string{"error": code, "message": msg})
}

// errCodeOf extracts the E_* prefix errors in this package carry.
func errCodeOf(err error) string {
	s := err.Error()
	if i := strings.Index(s, ":"); i > 0 {
		if code := s[:i]; protocol.IsKnownCode(code) && strings.HasPrefix(code, "E_") {
			return code
		}
	}
	return protocol.ErrInternal
}

// PruneLoop drops stale games every minute until stop closes.
func (h *HTTPServer) PruneLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			h.mgr.Prune(time.Minute)
		}
	}
}
