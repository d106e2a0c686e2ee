package server

import (
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"terrafront.io/internal/persistence/record"
	"terrafront.io/internal/protocol"
	"terrafront.io/internal/sim/tuning"
)

type Phase string

const (
	PhaseLobby    Phase = "lobby"
	PhaseActive   Phase = "active"
	PhaseFinished Phase = "finished"
)

// Over this many buffered intents the game drops new ones instead of growing
// without bound; a legitimate client cannot produce anywhere near this many
// between two turns.
const maxPendingIntents = 1024

// GameServer is the authority for one game. It never simulates: it seals
// intent batches into turns on a fixed wall-clock interval, broadcasts them,
// and collects the hash/winner reports clients send back. All state behind
// mu; the turn clock is the only goroutine that mutates turns.
type GameServer struct {
	ID string

	tn  tuning.Tuning
	log *log.Logger

	mu              sync.Mutex
	cfg             protocol.GameConfig
	creatorClientID string
	phase           Phase
	createdAt       time.Time
	startedAt       time.Time
	finishedAt      time.Time

	clients map[string]*Client
	joined  []protocol.PlayerRef // join order; fixed once the game starts
	kicked  map[string]bool

	seed    int64
	intents []protocol.Intent
	turns   []protocol.Turn

	// Replay verification mode: turns come from the archived record and
	// every reported hash is checked against it.
	replayTurns []protocol.Turn

	winner          string
	allPlayersStats map[string]protocol.PlayerStats

	stop     chan struct{}
	stopOnce sync.Once

	// onFinish receives the finished record exactly once.
	onFinish func(protocol.GameRecord)
}

func NewGameServer(id string, cfg protocol.GameConfig, creatorClientID string, seed int64, tn tuning.Tuning, logger *log.Logger, onFinish func(protocol.GameRecord)) *GameServer {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if onFinish == nil {
		onFinish = func(protocol.GameRecord) {}
	}
	return &GameServer{
		ID:              id,
		tn:              tn,
		log:             logger,
		cfg:             cfg,
		creatorClientID: creatorClientID,
		phase:           PhaseLobby,
		createdAt:       time.Now(),
		clients:         map[string]*Client{},
		kicked:          map[string]bool{},
		seed:            seed,
		allPlayersStats: map[string]protocol.PlayerStats{},
		stop:            make(chan struct{}),
		onFinish:        onFinish,
	}
}

// NewReplayGameServer verifies an archived game: clients join, receive the
// recorded turns, and every hash they report is compared against the record.
func NewReplayGameServer(rec protocol.GameRecord, tn tuning.Tuning, logger *log.Logger) *GameServer {
	s := NewGameServer(rec.Info.GameID, rec.Info.Config, "", rec.Info.Seed, tn, logger, nil)
	s.joined = append(s.joined, rec.Info.Players...)
	s.replayTurns = rec.Turns
	return s
}

func (s *GameServer) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *GameServer) IsPublic() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.GameType == protocol.GameTypePublic
}

func (s *GameServer) HasStarted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase != PhaseLobby
}

// GameInfo is the control-plane summary.
type GameInfo struct {
	GameID     string              `json:"gameID"`
	Config     protocol.GameConfig `json:"config"`
	Phase      Phase               `json:"phase"`
	NumClients int                 `json:"numClients"`
	Winner     string              `json:"winner,omitempty"`
}

func (s *GameServer) Info() GameInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return GameInfo{
		GameID:     s.ID,
		Config:     s.cfg,
		Phase:      s.phase,
		NumClients: len(s.clients),
		Winner:     s.winner,
	}
}

// UpdateConfig replaces the config. Legal only before the game starts, and a
// game can never be made public after creation.
func (s *GameServer) UpdateConfig(cfg protocol.GameConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseLobby {
		return fmt.Errorf("%s: game already started", protocol.ErrGameStarted)
	}
	if cfg.GameType == protocol.GameTypePublic {
		return fmt.Errorf("%s: cannot update game to public", protocol.ErrPublicGameEdit)
	}
	if s.cfg.GameType == protocol.GameTypePublic {
		return fmt.Errorf("%s: cannot update public game", protocol.ErrPublicGameEdit)
	}
	s.cfg = cfg
	return nil
}

// AddClient registers a connection. In the lobby it registers a new player;
// after start only known players may rejoin, resuming from lastTurn.
func (s *GameServer) AddClient(c *Client, lastTurn int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseFinished {
		return fmt.Errorf("%s: game %s is over", protocol.ErrGameNotFound, s.ID)
	}
	if s.kicked[c.ClientID] {
		return fmt.Errorf("%s: client %s was kicked", protocol.ErrUnauthorized, c.ClientID)
	}

	if s.phase == PhaseLobby {
		if !s.isJoined(c.ClientID) {
			if len(s.joined) >= s.cfg.MaxPlayers && s.cfg.MaxPlayers > 0 {
				return fmt.Errorf("game %s is full", s.ID)
			}
			s.joined = append(s.joined, protocol.PlayerRef{
				ClientID:   c.ClientID,
				Username:   c.Username,
				PlayerType: protocol.PlayerTypeHuman,
			})
		}
		s.replaceClientLocked(c)
		return nil
	}

	// Mid-game: rejoin only.
	if !s.isJoined(c.ClientID) {
		return fmt.Errorf("%s: client %s is not part of game %s", protocol.ErrUnauthorized, c.ClientID, s.ID)
	}
	s.replaceClientLocked(c)
	s.sendStartLocked(c, lastTurn)
	return nil
}

func (s *GameServer) isJoined(clientID string) bool {
	for _, p := range s.joined {
		if p.ClientID == clientID {
			return true
		}
	}
	return false
}

func (s *GameServer) replaceClientLocked(c *Client) {
	if prev, ok := s.clients[c.ClientID]; ok {
		close(prev.out)
	}
	s.clients[c.ClientID] = c
}

// RemoveClient drops a connection. The player entity persists; the game ends
// only when every client is gone from a started game. Removal matches on the
// client object, not the ID: a stale reader whose connection was replaced by
// a rejoin must not evict the replacement.
func (s *GameServer) RemoveClient(c *Client) {
	s.mu.Lock()
	if cur, ok := s.clients[c.ClientID]; ok && cur == c {
		delete(s.clients, c.ClientID)
		close(cur.out)
	}
	shouldFinish := s.phase == PhaseActive && len(s.clients) == 0
	s.mu.Unlock()

	if shouldFinish {
		s.finish()
	}
}

// KickClient force-removes a player and bars rejoining.
func (s *GameServer) KickClient(clientID string) {
	s.mu.Lock()
	s.kicked[clientID] = true
	if s.phase == PhaseLobby {
		kept := s.joined[:0]
		for _, p := range s.joined {
			if p.ClientID != clientID {
				kept = append(kept, p)
			}
		}
		s.joined = kept
	}
	c, ok := s.clients[clientID]
	if ok {
		delete(s.clients, clientID)
	}
	s.mu.Unlock()

	if ok {
		c.send(protocol.ServerErrorMsg{Type: protocol.TypeError, Error: "kicked from game"})
		close(c.out)
	}
	s.log.Printf("kicked client %s from game %s", clientID, s.ID)
}

// Start seals the lobby and begins the turn clock.
func (s *GameServer) Start() error {
	s.mu.Lock()
	if s.phase != PhaseLobby {
		s.mu.Unlock()
		return fmt.Errorf("%s: game %s already started", protocol.ErrGameStarted, s.ID)
	}
	if s.replayTurns == nil && len(s.joined) == 0 {
		s.mu.Unlock()
		return fmt.Errorf("%s: game %s has no players", protocol.ErrMissingStartInfo, s.ID)
	}
	s.phase = PhaseActive
	s.startedAt = time.Now()
	for _, c := range s.clientsLocked() {
		s.sendStartLocked(c, 0)
	}
	numPlayers := len(s.joined)
	s.mu.Unlock()

	go s.run()
	s.log.Printf("game %s started with %d players", s.ID, numPlayers)
	return nil
}

func (s *GameServer) startInfoLocked() protocol.GameStartInfo {
	return protocol.GameStartInfo{
		GameID:  s.ID,
		Config:  s.cfg,
		Seed:    s.seed,
		Players: append([]protocol.PlayerRef(nil), s.joined...),
	}
}

func (s *GameServer) sendStartLocked(c *Client, lastTurn int) {
	if lastTurn < 0 || lastTurn > len(s.turns) {
		lastTurn = 0
	}
	c.send(protocol.ServerStartMsg{
		Type:          protocol.TypeStart,
		GameStartInfo: s.startInfoLocked(),
		Turns:         append([]protocol.Turn(nil), s.turns[lastTurn:]...),
	})
}

func (s *GameServer) clientsLocked() []*Client {
	out := make([]*Client, 0, len(s.clients))
	for _, p := range s.joined {
		if c, ok := s.clients[p.ClientID]; ok {
			out = append(out, c)
		}
	}
	return out
}

// run is the turn clock. Replay verification skips wall-clock pacing: the
// recorded turns stream out as fast as the queues drain.
func (s *GameServer) run() {
	interval := time.Duration(s.tn.TurnIntervalMs) * time.Millisecond
	if s.replayTurns != nil {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if done := s.endTurn(); done {
				s.finish()
				return
			}
		}
	}
}

// endTurn seals the pending intents into the next turn and broadcasts it.
// Intents arriving after this point land in the following turn; there is no
// retroactive application.
func (s *GameServer) endTurn() (done bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseActive {
		return true
	}

	var turn protocol.Turn
	if s.replayTurns != nil {
		if len(s.turns) >= len(s.replayTurns) {
			return true
		}
		turn = s.replayTurns[len(s.turns)]
	} else {
		turn = protocol.Turn{TurnNumber: len(s.turns), Intents: s.intents}
		s.intents = nil
	}
	s.turns = append(s.turns, turn)

	msg := protocol.ServerTurnMsg{Type: protocol.TypeTurn, Turn: turn}
	for _, c := range s.clientsLocked() {
		c.send(msg)
	}
	return false
}

// HandleIntent buffers an intent for the next turn.
func (s *GameServer) HandleIntent(clientID string, intent protocol.Intent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseActive || s.replayTurns != nil {
		return
	}
	if _, ok := s.clients[clientID]; !ok {
		return
	}
	if intent.ClientID != clientID {
		s.log.Printf("SECURITY: client %s sent intent attributed to %s", clientID, intent.ClientID)
		return
	}
	if len(s.intents) >= maxPendingIntents {
		s.log.Printf("game %s: intent buffer full, dropping %s from %s", s.ID, intent.Kind, clientID)
		return
	}
	s.intents = append(s.intents, intent)
}

// HandleHash records or verifies a client's state hash for a turn. Live
// games store one sample every HashSampleIntervalTurn turns to bound record
// size; replay verification compares every report against the archive and
// answers mismatches with a desync event. Desync is diagnostic: the game
// continues either way.
func (s *GameServer) HandleHash(clientID string, turnNumber int, hash string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clients[clientID]
	if !ok {
		return
	}
	c.hashes[turnNumber] = hash

	if s.replayTurns == nil {
		if turnNumber%s.tn.HashSampleIntervalTurn != 0 {
			return
		}
		if turnNumber < 0 || turnNumber >= len(s.turns) {
			return
		}
		if s.turns[turnNumber].Hash == "" {
			s.turns[turnNumber].Hash = hash
			return
		}
		if s.turns[turnNumber].Hash != hash {
			s.sendDesyncLocked(c, turnNumber, s.turns[turnNumber].Hash, hash)
		}
		return
	}

	if turnNumber < 0 || turnNumber >= len(s.replayTurns) {
		return
	}
	archived := s.replayTurns[turnNumber].Hash
	if archived == "" {
		s.log.Printf("game %s: no archived hash for turn %d, client hash %s", s.ID, turnNumber, hash)
		return
	}
	if archived != hash {
		s.log.Printf("game %s: desync on turn %d, client %s hash %s, archived %s", s.ID, turnNumber, clientID, hash, archived)
		s.sendDesyncLocked(c, turnNumber, archived, hash)
	}
}

func (s *GameServer) sendDesyncLocked(c *Client, turn int, correct, got string) {
	agree := 0
	total := 0
	for _, other := range s.clients {
		total++
		if other.hashes[turn] == correct {
			agree++
		}
	}
	c.send(protocol.ServerDesyncMsg{
		Type:                   protocol.TypeDesync,
		Turn:                   turn,
		CorrectHash:            correct,
		ClientsWithCorrectHash: agree,
		TotalActiveClients:     total,
		YourHash:               got,
	})
}

// HandleWinner records the client-reported outcome. The first report wins;
// the game finishes once a winner is known.
func (s *GameServer) HandleWinner(clientID string, winner string, stats map[string]protocol.PlayerStats) {
	s.mu.Lock()
	if c, ok := s.clients[clientID]; ok {
		c.reportedWinner = winner
	}
	already := s.winner != ""
	if !already {
		s.winner = winner
		for id, st := range stats {
			s.allPlayersStats[id] = st
		}
	}
	s.mu.Unlock()

	if !already && winner != "" {
		s.finish()
	}
}

func (s *GameServer) HandlePing(clientID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.clients[clientID]; ok {
		c.Ping()
	}
}

// finish stops the turn clock, closes every client, and hands the record to
// the archive sink. Idempotent.
func (s *GameServer) finish() {
	s.stopOnce.Do(func() {
		close(s.stop)

		s.mu.Lock()
		s.phase = PhaseFinished
		s.finishedAt = time.Now()
		rec := protocol.GameRecord{
			Info: protocol.GameInfo{
				GameID:    s.ID,
				Config:    s.cfg,
				Seed:      s.seed,
				Players:   append([]protocol.PlayerRef(nil), s.joined...),
				StartedAt: s.startedAt.UnixMilli(),
			},
			Turns: append([]protocol.Turn(nil), s.turns...),
		}
		winner := s.winner
		clients := s.clientsLocked()
		s.clients = map[string]*Client{}
		s.mu.Unlock()

		for _, c := range clients {
			close(c.out)
		}

		if s.replayTurns == nil {
			s.onFinish(record.Finalize(rec, winner, time.Now()))
		}
		s.log.Printf("game %s finished, winner=%q turns=%d", s.ID, winner, len(rec.Turns))
	})
}
