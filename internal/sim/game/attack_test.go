package game

import (
	"testing"

	"terrafront.io/internal/protocol"
)

func TestExpandIntoUnclaimedLand(t *testing.T) {
	g := newTestGame(t, 16, 16)
	a := addSpawnedPlayer(t, g, "a", protocol.PlayerTypeHuman, g.Map().Ref(4, 4))
	a.troops = 1000

	g.AddExecution(&AttackExecution{attacker: a, troops: 100})
	g.ExecuteNextTick()

	// capacity 1, expand cost 2: one tile per tick.
	if a.NumTilesOwned() != 2 {
		t.Fatalf("tiles after one expand tick = %d", a.NumTilesOwned())
	}
	if a.troops != 900 {
		t.Fatalf("troops = %v, want committed troops removed up front", a.troops)
	}
	// Ascending tile order: the tile above (4,3) precedes left, right, below.
	if g.Map().Owner(g.Map().Ref(4, 3)) != a.SmallID() {
		t.Fatal("expansion did not take the lowest frontier tile first")
	}
}

func TestAttackStopsWhenTroopsExhausted(t *testing.T) {
	g := newTestGame(t, 16, 16)
	a := addSpawnedPlayer(t, g, "a", protocol.PlayerTypeHuman, g.Map().Ref(4, 4))
	a.troops = 100

	g.AddExecution(&AttackExecution{attacker: a, troops: 5})
	g.ExecuteNextTick()
	g.ExecuteNextTick()
	g.ExecuteNextTick()

	// 5 troops buy two expansion tiles at cost 2 each.
	if a.NumTilesOwned() != 3 {
		t.Fatalf("tiles = %d, want 3", a.NumTilesOwned())
	}
	if len(a.OutgoingAttacks()) != 0 {
		t.Fatal("spent attack still recorded")
	}
}

func TestAttackOnAllyIsRejected(t *testing.T) {
	g, a, b := twoNeighbors(t)
	ally(t, g, a, b)
	before := a.troops

	g.AddExecution(&AttackExecution{attacker: a, targetID: b.ID(), troops: 100})
	g.ExecuteNextTick()

	if a.troops != before {
		t.Fatal("troops committed to a rejected attack")
	}
	if b.NumTilesOwned() != 4 {
		t.Fatal("ally lost territory")
	}
}

func TestAttackTakesEnemyTilesAndSoursRelations(t *testing.T) {
	g, a, b := twoNeighbors(t)
	a.troops = 10000

	g.AddExecution(&AttackExecution{attacker: a, targetID: b.ID(), troops: 5000})
	g.ExecuteNextTick()

	if b.NumTilesOwned() >= 4 {
		t.Fatal("attack captured nothing")
	}
	if b.RelationWith(a) != RelationHostile {
		t.Fatalf("target relation = %v, want hostile", b.RelationWith(a))
	}
	if len(a.OutgoingAttacks()) != 1 || len(b.IncomingAttacks()) != 1 {
		t.Fatal("in-flight attack not recorded on both sides")
	}
}

func TestAttackRefundsWhenFrontierCloses(t *testing.T) {
	g := newTestGame(t, 16, 16)
	a := addSpawnedPlayer(t, g, "a", protocol.PlayerTypeHuman, row(g, 4, 4, 5)...)
	b := addSpawnedPlayer(t, g, "b", protocol.PlayerTypeHuman, g.Map().Ref(4, 5))
	a.troops = 10000

	g.AddExecution(&AttackExecution{attacker: a, targetID: b.ID(), troops: 5000})
	g.ExecuteNextTick() // takes b's only tile
	g.ExecuteNextTick() // frontier now empty

	if b.IsAlive() {
		t.Fatal("target survived losing every tile")
	}
	// 5000 committed, one tile taken at cost 10, remainder returns.
	if a.troops != 5000+4990 {
		t.Fatalf("troops after refund = %v", a.troops)
	}
	if len(a.OutgoingAttacks()) != 0 {
		t.Fatal("finished attack still recorded")
	}
}

func TestDefaultAttackCommitsHalfTheArmy(t *testing.T) {
	g := newTestGame(t, 16, 16)
	a := addSpawnedPlayer(t, g, "a", protocol.PlayerTypeHuman, g.Map().Ref(4, 4))
	a.troops = 800

	g.AddExecution(&AttackExecution{attacker: a})
	g.ExecuteNextTick()
	if a.troops != 400 {
		t.Fatalf("troops = %v, want half committed", a.troops)
	}
}

func TestEnclavedClusterAnnexed(t *testing.T) {
	g := newTestGame(t, 16, 16)
	// a owns a 7x7 block with a two-tile hole; b holds (6,6) and, a few
	// ticks in, grabs (7,6) so its cluster changed after the last recalc.
	var aTiles []TileRef
	for y := 3; y <= 9; y++ {
		for x := 3; x <= 9; x++ {
			if y == 6 && (x == 6 || x == 7) {
				continue
			}
			aTiles = append(aTiles, g.Map().Ref(x, y))
		}
	}
	a := addSpawnedPlayer(t, g, "a", protocol.PlayerTypeHuman, aTiles...)
	b := addSpawnedPlayer(t, g, "b", protocol.PlayerTypeHuman, g.Map().Ref(6, 6))

	// A standing attack lets the enclave fall to its captor.
	atk := &Attack{g: g, attacker: a.smallID, target: b.smallID, troops: 500}
	a.outgoingAttacks = append(a.outgoingAttacks, atk)
	b.incomingAttacks = append(b.incomingAttacks, atk)

	g.AddExecution(&PlayerExecution{player: b})
	g.ExecuteNextTick()
	b.Conquer(g.Map().Ref(7, 6))
	for i := 0; i < 3*g.tuning.TicksPerClusterCalc; i++ {
		g.ExecuteNextTick()
	}

	if b.NumTilesOwned() != 0 {
		t.Fatal("enclaved cluster was not annexed")
	}
	if g.Map().Owner(g.Map().Ref(6, 6)) != a.SmallID() {
		t.Fatal("annexed tile did not go to the surrounding player")
	}
}
