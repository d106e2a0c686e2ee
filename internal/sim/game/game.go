// Package game is the authoritative, deterministic simulation. A Game owns
// every entity and the pending-execution list, and advances strictly one
// tick at a time on a single goroutine. Determinism is load-bearing: the
// same seed and the same intent sequence must produce bit-identical state on
// every machine, because clients predict locally and replays re-verify
// archived games against per-turn hashes.
package game

import (
	"fmt"
	"io"
	"log"

	"terrafront.io/internal/protocol"
	"terrafront.io/internal/sim/encoding"
	"terrafront.io/internal/sim/random"
	"terrafront.io/internal/sim/tuning"
)

// Tick is the sole authoritative notion of simulation time.
type Tick = int

// Stats is a write-only sink for telemetry. Implementations must not read
// game state back; they receive values, not references.
type Stats interface {
	GoldWork(player string, amount int64)
	PlayerKilled(player string, tick Tick)
	PlayerConquered(attacker, victim string, tick Tick)
	UnitDestroyed(player string, unit UnitType, tick Tick)
	EmojiSent(from, to string, emoji int)
}

// NoopStats discards everything.
type NoopStats struct{}

func (NoopStats) GoldWork(string, int64)               {}
func (NoopStats) PlayerKilled(string, Tick)            {}
func (NoopStats) PlayerConquered(string, string, Tick) {}
func (NoopStats) UnitDestroyed(string, UnitType, Tick) {}
func (NoopStats) EmojiSent(string, string, int)        {}

type Game struct {
	cfg    protocol.GameConfig
	tuning tuning.Tuning
	rand   *random.Rand
	gmap   *GameMap
	log    *log.Logger
	stats  Stats

	tick Tick

	// Arena: players[i] has SmallID i+1. Join order fixes iteration order
	// everywhere; no unordered container ever drives processing order.
	players    []*Player
	byClientID map[string]*Player

	// Active executions in insertion order, plus staged additions that join
	// at the next tick boundary.
	execs   []Execution
	pending []Execution
	// Executions received during the spawn phase that must not run until it
	// ends.
	heldForSpawnEnd []Execution

	alliances []*Alliance
	requests  []*AllianceRequest

	units      []*Unit
	nextUnitID int

	winner string
}

// New builds a fresh game. The logger may be nil (discard). An empty
// cfg.Terrain means an all-land map.
func New(cfg protocol.GameConfig, tn tuning.Tuning, seed int64, logger *log.Logger) (*Game, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	gmap := NewMap(cfg.MapWidth, cfg.MapHeight)
	if cfg.Terrain != "" {
		land, err := encoding.DecodeTerrain(cfg.Terrain, cfg.MapWidth*cfg.MapHeight)
		if err != nil {
			return nil, fmt.Errorf("terrain: %w", err)
		}
		for t, isLand := range land {
			if !isLand {
				gmap.SetWater(t)
			}
		}
	}
	g := &Game{
		cfg:        cfg,
		tuning:     tn,
		rand:       random.New(seed),
		gmap:       gmap,
		log:        logger,
		stats:      NoopStats{},
		byClientID: map[string]*Player{},
		nextUnitID: 1,
	}
	g.AddExecution(&WinCheckExecution{})
	return g, nil
}

func (g *Game) SetStats(s Stats) {
	if s != nil {
		g.stats = s
	}
}

func (g *Game) Config() protocol.GameConfig { return g.cfg }
func (g *Game) Tuning() tuning.Tuning       { return g.tuning }
func (g *Game) Rand() *random.Rand          { return g.rand }
func (g *Game) Map() *GameMap               { return g.gmap }
func (g *Game) Ticks() Tick                 { return g.tick }
func (g *Game) Logger() *log.Logger         { return g.log }

func (g *Game) InSpawnPhase() bool { return g.tick < Tick(g.tuning.SpawnPhaseTurns) }

func (g *Game) Winner() (string, bool) { return g.winner, g.winner != "" }

func (g *Game) setWinner(p *Player) {
	if g.winner == "" {
		g.winner = p.id
	}
}

// --- players ---

// AddPlayer registers a player in join order. The player holds no territory
// until a SpawnExecution places it.
func (g *Game) AddPlayer(clientID, name, playerType string) (*Player, error) {
	if _, ok := g.byClientID[clientID]; ok {
		return nil, fmt.Errorf("player %s already exists", clientID)
	}
	p := &Player{
		g:                   g,
		id:                  clientID,
		smallID:             SmallID(len(g.players) + 1),
		name:                name,
		ptype:               playerType,
		tiles:               map[TileRef]struct{}{},
		border:              map[TileRef]struct{}{},
		relations:           map[SmallID]int{},
		lastAllianceRequest: map[SmallID]Tick{},
		gold:                g.tuning.Economy.StartGold,
		troops:              float64(g.tuning.Economy.StartTroops),
	}
	g.players = append(g.players, p)
	g.byClientID[clientID] = p
	return p, nil
}

func (g *Game) HasPlayer(clientID string) bool {
	_, ok := g.byClientID[clientID]
	return ok
}

func (g *Game) Player(clientID string) *Player { return g.byClientID[clientID] }

// Players returns the arena in join order. Callers must not reorder it.
func (g *Game) Players() []*Player { return g.players }

func (g *Game) playerBySmallID(id SmallID) *Player {
	if id == TerraNullius || int(id) > len(g.players) {
		return nil
	}
	return g.players[id-1]
}

// MaxTroops is the troop cap as a function of territory.
func (g *Game) MaxTroops(p *Player) float64 {
	return g.tuning.Economy.MaxTroopsBase + g.tuning.Economy.MaxTroopsPerTile*float64(p.NumTilesOwned())
}

// --- executions ---

// AddExecution stages e; it is initialized and first ticked at the next
// tick boundary, never re-entrantly mid-tick.
func (g *Game) AddExecution(e Execution) {
	g.pending = append(g.pending, e)
}

// ActiveExecutions is exposed for tests and telemetry.
func (g *Game) ActiveExecutions() int { return len(g.execs) }

// ExecuteNextTick advances the simulation exactly one tick. Contract: called
// once per logical tick, strictly in tick order, single-threaded.
func (g *Game) ExecuteNextTick() {
	spawn := g.InSpawnPhase()

	// Stage pending executions. During the spawn phase, executions that are
	// not spawn-eligible are held back in arrival order and join at the
	// first post-spawn tick.
	incoming := g.pending
	g.pending = nil
	if spawn {
		eligible := incoming[:0]
		for _, e := range incoming {
			if e.ActiveDuringSpawnPhase() {
				eligible = append(eligible, e)
			} else {
				g.heldForSpawnEnd = append(g.heldForSpawnEnd, e)
			}
		}
		incoming = eligible
	} else if len(g.heldForSpawnEnd) > 0 {
		incoming = append(g.heldForSpawnEnd, incoming...)
		g.heldForSpawnEnd = nil
	}

	for _, e := range incoming {
		e.Init(g, g.tick)
		g.execs = append(g.execs, e)
	}

	// Run every active execution in stable insertion order.
	for _, e := range g.execs {
		if !e.IsActive() {
			continue
		}
		if spawn && !e.ActiveDuringSpawnPhase() {
			continue
		}
		e.Tick(g.tick)
	}

	// Compact: drop executions whose liveness flag fell.
	kept := g.execs[:0]
	for _, e := range g.execs {
		if e.IsActive() {
			kept = append(kept, e)
		}
	}
	g.execs = kept

	g.tick++
}

// --- alliance bookkeeping ---

func (g *Game) createAllianceRequest(requestor, recipient *Player) *AllianceRequest {
	r := &AllianceRequest{
		g:         g,
		requestor: requestor.smallID,
		recipient: recipient.smallID,
		createdAt: g.tick,
		status:    RequestPending,
	}
	g.requests = append(g.requests, r)
	return r
}

func (g *Game) allianceRequestsFor(id SmallID, outgoing bool) []*AllianceRequest {
	var out []*AllianceRequest
	for _, r := range g.requests {
		if r.status != RequestPending {
			continue
		}
		if outgoing && r.requestor == id {
			out = append(out, r)
		}
		if !outgoing && r.recipient == id {
			out = append(out, r)
		}
	}
	return out
}

func (g *Game) acceptAllianceRequest(r *AllianceRequest) {
	g.removeAllianceRequest(r)
	al := &Alliance{
		g:         g,
		a:         r.requestor,
		b:         r.recipient,
		createdAt: g.tick,
		expiresAt: g.tick + Tick(g.tuning.Alliance.DurationTicks),
	}
	g.alliances = append(g.alliances, al)
	ra := g.playerBySmallID(r.requestor)
	rb := g.playerBySmallID(r.recipient)
	ra.alliances = append(ra.alliances, al)
	rb.alliances = append(rb.alliances, al)
}

func (g *Game) removeAllianceRequest(r *AllianceRequest) {
	kept := g.requests[:0]
	for _, x := range g.requests {
		if x != r {
			kept = append(kept, x)
		}
	}
	g.requests = kept
}

func (g *Game) removeAlliance(al *Alliance) {
	kept := g.alliances[:0]
	for _, x := range g.alliances {
		if x != al {
			kept = append(kept, x)
		}
	}
	g.alliances = kept
	for _, id := range []SmallID{al.a, al.b} {
		p := g.playerBySmallID(id)
		pk := p.alliances[:0]
		for _, x := range p.alliances {
			if x != al {
				pk = append(pk, x)
			}
		}
		p.alliances = pk
	}
}

// expireAlliance dissolves without traitor marking; natural expiry is not
// betrayal.
func (g *Game) expireAlliance(al *Alliance) { g.removeAlliance(al) }

// --- units ---

func (g *Game) addUnit(owner *Player, typ UnitType, tile TileRef, active bool) *Unit {
	u := &Unit{
		id:     g.nextUnitID,
		typ:    typ,
		owner:  owner.smallID,
		tile:   tile,
		level:  1,
		active: active,
	}
	g.nextUnitID++
	g.units = append(g.units, u)
	return u
}

func (g *Game) deleteUnit(u *Unit) {
	u.active = false
	kept := g.units[:0]
	for _, x := range g.units {
		if x != u {
			kept = append(kept, x)
		}
	}
	g.units = kept
}

// conquerPlayer records full conquest of victim by attacker.
func (g *Game) conquerPlayer(attacker, victim *Player) {
	g.stats.PlayerConquered(attacker.id, victim.id, g.tick)
}
