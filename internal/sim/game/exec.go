package game

import (
	"fmt"

	"terrafront.io/internal/protocol"
)

// Execution is the unit of work that mutates game state. Lifecycle:
// created -> Init (binds to state, one-time legality checks) -> zero or more
// Tick calls -> permanently inactive. A failed Init deactivates for good; an
// execution never resurrects and never applies a partial effect.
//
// Legality failures are adversarial-input guards, not exceptions: they log a
// security warning and deactivate, never panic into the tick loop.
type Execution interface {
	Init(g *Game, tick Tick)
	Tick(tick Tick)
	IsActive() bool
	ActiveDuringSpawnPhase() bool
}

// FromIntent maps a validated intent to its execution. The kind set is
// closed; an unknown kind is a transport-layer bug, surfaced as an error
// rather than a silent drop.
func FromIntent(g *Game, intent protocol.Intent) (Execution, error) {
	p := g.Player(intent.ClientID)
	if p == nil {
		return nil, fmt.Errorf("intent %s: unknown player %s", intent.Kind, intent.ClientID)
	}
	switch intent.Kind {
	case protocol.IntentSpawn:
		return &SpawnExecution{player: p, tile: g.gmap.Ref(intent.X, intent.Y)}, nil
	case protocol.IntentAttack:
		return &AttackExecution{attacker: p, targetID: intent.Target, troops: float64(intent.Troops)}, nil
	case protocol.IntentBuildUnit:
		return &ConstructionExecution{player: p, unitType: UnitType(intent.UnitType), tile: g.gmap.Ref(intent.X, intent.Y)}, nil
	case protocol.IntentDonateGold:
		return &DonateGoldExecution{sender: p, recipientID: intent.Target, gold: intent.Gold}, nil
	case protocol.IntentDonateTroops:
		return &DonateTroopsExecution{sender: p, recipientID: intent.Target, troops: float64(intent.Troops)}, nil
	case protocol.IntentAllianceRequest:
		return &AllianceRequestExecution{requestor: p, recipientID: intent.Target}, nil
	case protocol.IntentAllianceReply:
		return &AllianceRequestReplyExecution{requestorID: intent.Target, recipient: p, accept: intent.Accept}, nil
	case protocol.IntentAllianceExtension:
		return &AllianceExtensionExecution{player: p, otherID: intent.Target}, nil
	case protocol.IntentBreakAlliance:
		return &BreakAllianceExecution{breaker: p, otherID: intent.Target}, nil
	case protocol.IntentEmbargo:
		return &EmbargoExecution{player: p, targetID: intent.Target, stop: intent.Stop}, nil
	case protocol.IntentEmoji:
		return &EmojiExecution{sender: p, recipientID: intent.Target, emoji: intent.Emoji}, nil
	case protocol.IntentDeleteUnit:
		return &DeleteUnitExecution{player: p, unitID: intent.UnitID}, nil
	case protocol.IntentTargetPlayer:
		return &TargetPlayerExecution{player: p, targetID: intent.Target}, nil
	default:
		return nil, fmt.Errorf("unknown intent kind %q", intent.Kind)
	}
}

// SpawnExecution places a player on the map during the spawn phase. A
// negative tile means "pick a free spot": placement draws from the game's
// random source, so it is reproducible.
type SpawnExecution struct {
	player *Player
	tile   TileRef
	active bool
}

// NewRandomSpawn spawns the player at a randomly selected free land tile.
func NewRandomSpawn(player *Player) *SpawnExecution {
	return &SpawnExecution{player: player, tile: -1}
}

func (e *SpawnExecution) ActiveDuringSpawnPhase() bool { return true }
func (e *SpawnExecution) IsActive() bool               { return e.active }

func (e *SpawnExecution) Init(g *Game, tick Tick) {
	e.active = true
	if !g.InSpawnPhase() {
		g.log.Printf("SECURITY: player %s spawn outside spawn phase", e.player.id)
		e.active = false
		return
	}
	if e.player.spawned {
		g.log.Printf("SECURITY: player %s already spawned", e.player.id)
		e.active = false
		return
	}
	if e.tile < 0 {
		e.tile = e.pickSpawnTile(g)
		if e.tile < 0 {
			g.log.Printf("no free spawn tile for player %s", e.player.id)
			e.active = false
			return
		}
	}
	if !g.gmap.IsLand(e.tile) || g.gmap.HasOwner(e.tile) {
		g.log.Printf("spawn tile %d unavailable for player %s", e.tile, e.player.id)
		e.active = false
		return
	}
	e.player.spawned = true
	// Claim a small diamond of free land around the spawn point.
	m := g.gmap
	cx, cy := m.X(e.tile), m.Y(e.tile)
	for dy := -2; dy <= 2; dy++ {
		for dx := -2; dx <= 2; dx++ {
			if abs(dx)+abs(dy) > 2 || !m.InBounds(cx+dx, cy+dy) {
				continue
			}
			t := m.Ref(cx+dx, cy+dy)
			if m.IsLand(t) && !m.HasOwner(t) {
				e.player.Conquer(t)
			}
		}
	}
	g.AddExecution(&PlayerExecution{player: e.player})
	if e.player.ptype != protocol.PlayerTypeHuman {
		g.AddExecution(NewBotExecution(e.player))
	}
	e.active = false
}

func (e *SpawnExecution) Tick(tick Tick) {}

// pickSpawnTile draws random tiles until it finds free land, bounded so a
// full map cannot livelock the tick.
func (e *SpawnExecution) pickSpawnTile(g *Game) TileRef {
	m := g.gmap
	for i := 0; i < 64; i++ {
		t := g.rand.NextInt(0, m.Width()*m.Height()-1)
		if m.IsLand(t) && !m.HasOwner(t) {
			return t
		}
	}
	return -1
}

// WinCheckExecution declares a winner once a player controls the configured
// share of claimable land. It stays active for the whole game and goes
// inactive when a winner is recorded.
type WinCheckExecution struct {
	g      *Game
	active bool
}

func (e *WinCheckExecution) ActiveDuringSpawnPhase() bool { return false }
func (e *WinCheckExecution) IsActive() bool               { return e.active }

func (e *WinCheckExecution) Init(g *Game, tick Tick) {
	e.g = g
	e.active = true
}

func (e *WinCheckExecution) Tick(tick Tick) {
	if tick%Tick(e.g.tuning.WinCheckIntervalTicks) != 0 {
		return
	}
	threshold := e.g.tuning.WinThresholdPercent
	landTiles := e.g.gmap.NumLandTiles()
	for _, p := range e.g.players {
		if !p.IsAlive() {
			continue
		}
		if p.NumTilesOwned()*100 >= threshold*landTiles {
			e.g.setWinner(p)
			e.active = false
			return
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
