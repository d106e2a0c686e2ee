package server

import (
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"terrafront.io/internal/persistence/indexdb"
	"terrafront.io/internal/persistence/record"
	"terrafront.io/internal/protocol"
	"terrafront.io/internal/sim/tuning"
)

// GameManager owns every game hosted by this worker. Finished games are
// archived (record file + index row) and pruned after a grace period so
// late GET requests still resolve.
type GameManager struct {
	tn      tuning.Tuning
	log     *log.Logger
	dataDir string
	idx     *indexdb.SQLiteIndex

	mu    sync.Mutex
	games map[string]*GameServer
	seeds *rand.Rand
}

func NewGameManager(tn tuning.Tuning, dataDir string, idx *indexdb.SQLiteIndex, logger *log.Logger) *GameManager {
	return &GameManager{
		tn:      tn,
		log:     logger,
		dataDir: dataDir,
		idx:     idx,
		games:   map[string]*GameServer{},
		seeds:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// CreateGame registers a new lobby. The seed is fixed at creation so every
// client that ever joins runs the same simulation.
func (m *GameManager) CreateGame(id string, cfg protocol.GameConfig, creatorClientID string) (*GameServer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.games[id]; ok {
		return nil, fmt.Errorf("game %s already exists", id)
	}
	g := NewGameServer(id, cfg, creatorClientID, m.seeds.Int63(), m.tn, m.log, func(rec protocol.GameRecord) {
		m.archive(rec)
	})
	m.games[id] = g
	return g, nil
}

// Game returns nil when the ID is unknown.
func (m *GameManager) Game(id string) *GameServer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.games[id]
}

// AddClient routes a joining connection to its game. Returns false when the
// game does not exist on this worker.
func (m *GameManager) AddClient(c *Client, gameID string, lastTurn int) (bool, error) {
	g := m.Game(gameID)
	if g == nil {
		return false, nil
	}
	return true, g.AddClient(c, lastTurn)
}

// archive persists a finished game: record file first, then the index row.
func (m *GameManager) archive(rec protocol.GameRecord) {
	path := record.Path(m.dataDir, rec.Info.GameID)
	if err := record.Write(path, rec); err != nil {
		m.log.Printf("archive game %s: %v", rec.Info.GameID, err)
		return
	}
	if m.idx != nil {
		m.idx.RecordGame(rec, path)
	}
	m.log.Printf("archived game %s to %s", rec.Info.GameID, path)
}

// ArchiveRecord validates and archives an externally supplied record (the
// singleplayer upload path).
func (m *GameManager) ArchiveRecord(rec protocol.GameRecord) {
	m.archive(rec)
}

// ArchivedGame resolves a game that already left memory. Lookups arriving
// after the prune grace period land here.
func (m *GameManager) ArchivedGame(gameID string) (indexdb.GameRow, bool) {
	if m.idx == nil {
		return indexdb.GameRow{}, false
	}
	row, ok, err := m.idx.Game(gameID)
	if err != nil {
		m.log.Printf("index lookup %s: %v", gameID, err)
		return indexdb.GameRow{}, false
	}
	return row, ok
}

// ArchivedGames lists this worker's finished games, newest first.
func (m *GameManager) ArchivedGames(limit int) []indexdb.GameRow {
	if m.idx == nil {
		return nil
	}
	rows, err := m.idx.RecentGames(limit)
	if err != nil {
		m.log.Printf("index list: %v", err)
		return nil
	}
	return rows
}

// Prune drops finished games after a grace period (so late lookups still
// resolve) and lobbies that never started. Active games are never pruned;
// they finish when their last client leaves.
func (m *GameManager) Prune(grace time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, g := range m.games {
		g.mu.Lock()
		phase := g.phase
		createdAge := time.Since(g.createdAt)
		finishedAge := time.Since(g.finishedAt)
		g.mu.Unlock()
		if phase == PhaseFinished && finishedAge >= grace {
			delete(m.games, id)
		}
		if phase == PhaseLobby && createdAge > 24*time.Hour {
			delete(m.games, id)
		}
	}
}

func (m *GameManager) NumGames() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.games)
}
